package analyzer

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Normalize resizes crop to targetWidth, keeping the aspect ratio, and
// returns the resized image with its scale factor. ok is false when the crop
// is empty or collapses to zero height.
func Normalize(crop image.Image, targetWidth int) (img image.Image, scale float64, ok bool) {
	b := crop.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 || targetWidth <= 0 {
		return nil, 0, false
	}

	scale = float64(targetWidth) / float64(w)
	th := int(math.Round(float64(h) * scale))
	if th <= 0 {
		return nil, 0, false
	}
	if w == targetWidth {
		return crop, 1, true
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, th))
	draw.BiLinear.Scale(dst, dst.Bounds(), crop, b, draw.Src, nil)
	return dst, scale, true
}
