package analyzer

import (
	"image"
	"image/draw"

	"github.com/ivlev/magicscan/internal/config"
	"github.com/ivlev/magicscan/internal/geom"
	"github.com/ivlev/magicscan/internal/system"
)

// NativeEngine builds the ink mask in pure Go. It needs no cgo and is the
// fallback when OpenCV is not compiled in.
type NativeEngine struct {
	mask      config.Mask
	ruleWidth int
}

func NewNativeEngine(cfg config.Config) *NativeEngine {
	return &NativeEngine{mask: cfg.Mask, ruleWidth: cfg.RuleKernelWidth()}
}

func (e *NativeEngine) Name() string { return "native" }

// BuildMask returns a binary mask where 255 marks ink glued into blocks.
func (e *NativeEngine) BuildMask(img image.Image) (*image.Gray, error) {
	gray := toGrayscale(img)

	blurred := gaussianBlur(gray, e.mask.BlurKernel)
	system.PutGray(gray)
	thresh := adaptiveThresholdInv(blurred, e.mask.ThresholdBlockSize, e.mask.ThresholdC)
	system.PutGray(blurred)

	e.eraseRules(thresh)

	glued := closeRect(thresh, e.mask.GlueWidth, e.mask.GlueHeight)
	system.PutGray(thresh)
	mask := dilateRect(glued, e.mask.DilateWidth, e.mask.DilateHeight)
	system.PutGray(glued)

	return mask, nil
}

// eraseRules clears long horizontal runs (underlines, answer lines, table
// rules) from thresh, together with a small margin around them.
func (e *NativeEngine) eraseRules(thresh *image.Gray) {
	rules := openRect(thresh, e.ruleWidth, 1)
	defer system.PutGray(rules)

	footprint := rules
	if e.mask.RuleEraseMargin > 0 {
		k := e.mask.RuleEraseMargin + 1
		footprint = dilateRect(rules, k, k)
		defer system.PutGray(footprint)
	}

	for i, v := range footprint.Pix {
		if v != 0 {
			thresh.Pix[i] = 0
		}
	}
}

func (e *NativeEngine) TraceContours(mask *image.Gray) ([]geom.Rect, error) {
	return findContours(mask), nil
}

// toGrayscale converts an image to an origin-based grayscale buffer.
func toGrayscale(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := system.GetGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)
	return gray
}

// findContours returns the bounding boxes of the outer 8-connected white
// components of mask. Components that sit entirely inside a hole of another
// component are skipped.
func findContours(mask *image.Gray) []geom.Rect {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	fg := make([]bool, w*h)
	for y := 0; y < h; y++ {
		row := mask.Pix[y*mask.Stride : y*mask.Stride+w]
		for x, v := range row {
			fg[y*w+x] = v > 128
		}
	}

	outer := outerBackground(fg, w, h)
	visited := make([]bool, w*h)
	var contours []geom.Rect

	for i := range fg {
		if fg[i] && !visited[i] {
			rect, external := floodFill(fg, outer, visited, w, h, i)
			if external {
				contours = append(contours, rect)
			}
		}
	}
	return contours
}

// outerBackground marks the background pixels 4-connected to the image edge.
func outerBackground(fg []bool, w, h int) []bool {
	outer := make([]bool, w*h)
	var stack []int
	seed := func(i int) {
		if !fg[i] && !outer[i] {
			outer[i] = true
			stack = append(stack, i)
		}
	}
	for x := 0; x < w; x++ {
		seed(x)
		seed((h-1)*w + x)
	}
	for y := 0; y < h; y++ {
		seed(y * w)
		seed(y*w + w - 1)
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		if x > 0 {
			seed(i - 1)
		}
		if x < w-1 {
			seed(i + 1)
		}
		if y > 0 {
			seed(i - w)
		}
		if y < h-1 {
			seed(i + w)
		}
	}
	return outer
}

// floodFill visits the 8-connected component containing start and returns
// its bounding box. external reports whether the component touches the image
// edge or the outer background.
func floodFill(fg, outer, visited []bool, w, h, start int) (rect geom.Rect, external bool) {
	minX, minY := start%w, start/w
	maxX, maxY := minX, minY

	visited[start] = true
	stack := []int{start}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w

		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)

		if x == 0 || y == 0 || x == w-1 || y == h-1 {
			external = true
		} else if outer[i-1] || outer[i+1] || outer[i-w] || outer[i+w] {
			external = true
		}

		for dy := -1; dy <= 1; dy++ {
			ny := y + dy
			if ny < 0 || ny >= h {
				continue
			}
			for dx := -1; dx <= 1; dx++ {
				nx := x + dx
				if nx < 0 || nx >= w {
					continue
				}
				n := ny*w + nx
				if fg[n] && !visited[n] {
					visited[n] = true
					stack = append(stack, n)
				}
			}
		}
	}

	return geom.RectFromCorners(minX, minY, maxX+1, maxY+1), external
}
