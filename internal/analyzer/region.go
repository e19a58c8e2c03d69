package analyzer

import (
	"image"
	"image/draw"

	"github.com/ivlev/magicscan/internal/geom"
)

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// SelectRegion crops img to roi and returns the crop together with its offset
// from the page origin. A nil roi selects the whole page. The crop may be
// empty when roi lies outside the page.
func SelectRegion(img image.Image, roi *geom.ROI) (image.Image, image.Point) {
	bounds := img.Bounds()
	if roi == nil {
		return img, image.Point{}
	}

	rect := roi.Clamp(bounds)
	offset := rect.Min.Sub(bounds.Min)
	if rect.Empty() {
		return image.NewRGBA(image.Rectangle{}), offset
	}

	if si, ok := img.(subImager); ok {
		return si.SubImage(rect), offset
	}
	crop := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(crop, crop.Bounds(), img, rect.Min, draw.Src)
	return crop, offset
}
