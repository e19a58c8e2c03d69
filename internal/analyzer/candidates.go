package analyzer

import (
	"image"

	"github.com/ivlev/magicscan/internal/config"
	"github.com/ivlev/magicscan/internal/geom"
)

// CandidateFilter drops specks and the vertical separator between columns.
type CandidateFilter struct {
	NoiseAreaRatio     float64
	SeparatorBand      int
	SeparatorMinHeight float64 // fraction of the page height
	SeparatorMaxWidth  float64 // fraction of the page width
}

func NewCandidateFilter(cfg config.Detection) CandidateFilter {
	return CandidateFilter{
		NoiseAreaRatio:     cfg.NoiseAreaRatio,
		SeparatorBand:      cfg.SeparatorBand,
		SeparatorMinHeight: cfg.SeparatorMinHeightRatio,
		SeparatorMaxWidth:  cfg.SeparatorMaxWidthRatio,
	}
}

// Apply keeps the rects of a page of the given normalized size that are
// neither noise nor separator, in their original order.
func (f CandidateFilter) Apply(rects []geom.Rect, size image.Point) []geom.Rect {
	minArea := f.NoiseAreaRatio * float64(size.X*size.Y)
	mid := size.X / 2

	out := make([]geom.Rect, 0, len(rects))
	for _, r := range rects {
		if float64(r.Area()) <= minArea {
			continue
		}
		if f.isSeparator(r, size, mid) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// isSeparator reports a tall, thin component whose left edge sits close to
// the midline.
func (f CandidateFilter) isSeparator(r geom.Rect, size image.Point, mid int) bool {
	return r.X > mid-f.SeparatorBand && r.X < mid+f.SeparatorBand &&
		float64(r.Height) > f.SeparatorMinHeight*float64(size.Y) &&
		float64(r.Width) < f.SeparatorMaxWidth*float64(size.X)
}
