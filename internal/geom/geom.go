// Package geom holds the rectangle types shared by the detection pipeline.
//
// Two coordinate spaces exist: the working space, where the page crop has been
// rescaled to a fixed width, and the page space of the original image. They are
// kept apart by type: Rect is always working space, PageRect is always page
// space, and ScaleContext.ToPage is the only conversion between them.
package geom

import (
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"
)

// Rect is an axis-aligned box in working (normalized) space.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// RectFromImage converts an image.Rectangle produced in working space.
func RectFromImage(r image.Rectangle) Rect {
	r = r.Canon()
	return Rect{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// RectFromCorners builds a Rect from its (x1,y1)-(x2,y2) corners.
func RectFromCorners(x1, y1, x2, y2 int) Rect {
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// X2 returns the right edge (exclusive).
func (r Rect) X2() int { return r.X + r.Width }

// Y2 returns the bottom edge (exclusive).
func (r Rect) Y2() int { return r.Y + r.Height }

// CenterX returns the horizontal center.
func (r Rect) CenterX() float64 { return float64(r.X) + float64(r.Width)/2 }

// Area returns width*height.
func (r Rect) Area() int { return r.Width * r.Height }

// Empty reports whether the rect has no area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Union returns the smallest Rect containing both r and o.
func (r Rect) Union(o Rect) Rect {
	return RectFromCorners(
		min(r.X, o.X), min(r.Y, o.Y),
		max(r.X2(), o.X2()), max(r.Y2(), o.Y2()),
	)
}

// Contains reports whether o lies entirely inside r.
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.X2() <= r.X2() && o.Y2() <= r.Y2()
}

// Image returns the equivalent image.Rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X2(), r.Y2())
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// PageRect is an axis-aligned box in the original image's pixel space.
// It is the public output shape of the detector.
type PageRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Image returns the equivalent image.Rectangle.
func (r PageRect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Empty reports whether the rect has no area.
func (r PageRect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Column is the left/right partition a candidate is merged within.
type Column int

const (
	ColumnLeft Column = iota
	ColumnRight
)

func (c Column) String() string {
	if c == ColumnRight {
		return "right"
	}
	return "left"
}

// ColumnOf assigns r to a column by comparing its center to midPoint.
func ColumnOf(r Rect, midPoint int) Column {
	if r.CenterX() < float64(midPoint) {
		return ColumnLeft
	}
	return ColumnRight
}

// ROI is an optional region of interest in page space.
type ROI struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Clamp fits the ROI into bounds. The origin is moved to at least 0,0 without
// shrinking the requested size, then width and height are capped at the page
// edges. ROI coordinates are relative to bounds.Min. The result may be empty.
func (r ROI) Clamp(bounds image.Rectangle) image.Rectangle {
	x, y := max(r.X, 0), max(r.Y, 0)
	w := min(r.Width, bounds.Dx()-x)
	h := min(r.Height, bounds.Dy()-y)
	if w <= 0 || h <= 0 {
		return image.Rectangle{}
	}
	return image.Rect(x, y, x+w, y+h).Add(bounds.Min)
}

// ScaleContext maps working-space coordinates back to page space:
// page = working/Ratio + offset.
type ScaleContext struct {
	Ratio   float64
	OffsetX int
	OffsetY int
}

// ToPage converts a working-space Rect to page space.
func (s ScaleContext) ToPage(r Rect) PageRect {
	return PageRect{
		X:      s.unscale(r.X) + s.OffsetX,
		Y:      s.unscale(r.Y) + s.OffsetY,
		Width:  s.unscale(r.Width),
		Height: s.unscale(r.Height),
	}
}

func (s ScaleContext) unscale(v int) int {
	return int(math.Round(float64(v) / s.Ratio))
}

// maxROIValue bounds every ROI value so that sums of them never overflow.
const maxROIValue = math.MaxInt32

// ParseROI parses x, y, width and height. Values may carry a fractional
// part, which is truncated. Exactly four values are required.
func ParseROI(vals []string) (*ROI, error) {
	if len(vals) != 4 {
		return nil, fmt.Errorf("roi needs 4 values (x y width height), got %d", len(vals))
	}
	var n [4]int
	for i, v := range vals {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("roi value %q is not a number", v)
		}
		if math.Abs(f) > maxROIValue {
			return nil, fmt.Errorf("roi value %q is out of range", v)
		}
		n[i] = int(f)
	}
	return &ROI{X: n[0], Y: n[1], Width: n[2], Height: n[3]}, nil
}
