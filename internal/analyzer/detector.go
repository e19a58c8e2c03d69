package analyzer

import (
	"image"

	"github.com/ivlev/magicscan/internal/geom"
)

// Block is one detected question block in page coordinates.
type Block struct {
	geom.PageRect
	Column geom.Column `json:"-"`
}

// Result is the outcome of one detection. Blocks is never nil so that an
// empty page serializes as [].
type Result struct {
	Blocks     []Block
	Scale      geom.ScaleContext
	Crop       image.Rectangle // page-space region that was analyzed
	Working    image.Point     // normalized size; zero for a degenerate crop
	Candidates int
	Merged     int
}

// Rects returns the page rectangles in reading order.
func (r *Result) Rects() []geom.PageRect {
	rects := make([]geom.PageRect, len(r.Blocks))
	for i, b := range r.Blocks {
		rects[i] = b.PageRect
	}
	return rects
}

// Detector is the interface for question block detection strategies.
type Detector interface {
	Detect(img image.Image, roi *geom.ROI) (*Result, error)
}

// Engine is the vision backend: it turns a normalized page into an ink mask
// and traces the mask's outer components.
type Engine interface {
	Name() string
	BuildMask(img image.Image) (*image.Gray, error)
	TraceContours(mask *image.Gray) ([]geom.Rect, error)
}
