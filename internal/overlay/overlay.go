// Package overlay draws detected question blocks over the page they were
// found on, for eyeballing detector output.
package overlay

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ivlev/magicscan/internal/analyzer"
	"github.com/ivlev/magicscan/internal/geom"
)

var (
	leftHue  = 210.0
	rightHue = 25.0
)

// ColumnColor returns the stroke color for the i-th block of a column.
// Lightness alternates so that neighbouring blocks stay distinguishable.
func ColumnColor(col geom.Column, i int) colorful.Color {
	hue := leftHue
	if col == geom.ColumnRight {
		hue = rightHue
	}
	l := 0.45
	if i%2 == 1 {
		l = 0.6
	}
	return colorful.Hcl(hue, 0.9, l).Clamped()
}

// Render returns a copy of page with the region of interest dashed and every
// block outlined and numbered in reading order.
func Render(page image.Image, res *analyzer.Result) image.Image {
	dc := gg.NewContextForImage(page)
	b := page.Bounds()
	lineWidth := max(2, float64(b.Dx())/500)

	if res.Crop != b && !res.Crop.Empty() {
		dc.SetRGB(0.4, 0.4, 0.4)
		dc.SetLineWidth(lineWidth)
		dc.SetDash(4*lineWidth, 3*lineWidth)
		r := res.Crop.Sub(b.Min)
		dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
		dc.Stroke()
		dc.SetDash()
	}

	counts := map[geom.Column]int{}
	for i, blk := range res.Blocks {
		c := ColumnColor(blk.Column, counts[blk.Column])
		counts[blk.Column]++

		r := blk.Image().Sub(b.Min)
		dc.SetColor(c)
		dc.SetLineWidth(lineWidth)
		dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
		dc.Stroke()

		dc.DrawStringAnchored(fmt.Sprint(i+1), float64(r.Min.X)+lineWidth, float64(r.Min.Y)+lineWidth, 0, 1)
	}
	return dc.Image()
}

// Save renders the overlay and writes it as PNG.
func Save(path string, page image.Image, res *analyzer.Result) error {
	img := Render(page, res)
	if err := gg.SavePNG(path, img); err != nil {
		return fmt.Errorf("save overlay %s: %w", path, err)
	}
	return nil
}
