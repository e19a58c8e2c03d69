package analyzer

import (
	"image"
	"math"

	"github.com/ivlev/magicscan/internal/system"
)

// All filters below work on origin-based *image.Gray buffers whose stride
// equals their width, as produced by toGrayscale and the buffer pool.

type borderFunc func(i, n int) int

// reflect101 mirrors without repeating the edge pixel: dcb|abcd|cba.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

func replicate(i, n int) int {
	return min(max(i, 0), n-1)
}

// gaussianKernel returns a normalized 1-D kernel. A non-positive sigma is
// derived from the size as 0.3*((size-1)/2-1)+0.8.
func gaussianKernel(size int, sigma float64) []float32 {
	if sigma <= 0 {
		sigma = 0.3*(float64(size-1)*0.5-1) + 0.8
	}
	k := make([]float32, size)
	c := size / 2
	var sum float64
	for i := range k {
		d := float64(i - c)
		v := math.Exp(-d * d / (2 * sigma * sigma))
		k[i] = float32(v)
		sum += v
	}
	for i := range k {
		k[i] = float32(float64(k[i]) / sum)
	}
	return k
}

// convolveSeparable applies kernel along rows then columns.
func convolveSeparable(src *image.Gray, kernel []float32, border borderFunc) []float32 {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	r := len(kernel) / 2

	tmp := make([]float32, w*h)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w]
		for x := 0; x < w; x++ {
			var sum float32
			for k, kv := range kernel {
				sum += kv * float32(row[border(x+k-r, w)])
			}
			tmp[y*w+x] = sum
		}
	}

	out := make([]float32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float32
			for k, kv := range kernel {
				sum += kv * tmp[border(y+k-r, h)*w+x]
			}
			out[y*w+x] = sum
		}
	}
	return out
}

func clampByte(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v + 0.5)
}

// gaussianBlur smooths src with a size×size Gaussian, mirroring at the edges.
func gaussianBlur(src *image.Gray, size int) *image.Gray {
	vals := convolveSeparable(src, gaussianKernel(size, 0), reflect101)
	dst := system.GetGray(src.Rect)
	for i, v := range vals {
		dst.Pix[i] = clampByte(v)
	}
	return dst
}

// adaptiveThresholdInv marks a pixel as ink (255) when it is at least c
// darker than the Gaussian-weighted mean of its block×block neighborhood.
func adaptiveThresholdInv(src *image.Gray, block int, c float64) *image.Gray {
	means := convolveSeparable(src, gaussianKernel(block, 0), replicate)
	dst := system.GetGray(src.Rect)
	for i, m := range means {
		if float64(src.Pix[i]) <= float64(clampByte(m))-c {
			dst.Pix[i] = 255
		}
	}
	return dst
}

type morphOp int

const (
	opErode morphOp = iota
	opDilate
)

// morphLine applies a 1-D binary erode or dilate of length k to n samples
// spaced stride apart. Samples outside the line are ignored, so the window
// shrinks at the ends. counts must hold n+1 ints.
func morphLine(dst, src []uint8, n, stride, k int, op morphOp, counts []int) {
	a := k / 2
	counts[0] = 0
	for i := 0; i < n; i++ {
		c := counts[i]
		if src[i*stride] != 0 {
			c++
		}
		counts[i+1] = c
	}
	for i := 0; i < n; i++ {
		lo := max(0, i-a)
		hi := min(n, i+k-a)
		set := counts[hi] - counts[lo]
		on := set > 0
		if op == opErode {
			on = set == hi-lo
		}
		if on {
			dst[i*stride] = 255
		} else {
			dst[i*stride] = 0
		}
	}
}

// morphRect erodes or dilates a binary image with a kw×kh rectangle anchored
// at its center. The rectangle is separable, so rows and columns are done in
// two linear passes.
func morphRect(src *image.Gray, kw, kh int, op morphOp) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	tmp := system.GetGray(src.Rect)
	defer system.PutGray(tmp)
	dst := system.GetGray(src.Rect)
	counts := make([]int, max(w, h)+1)

	for y := 0; y < h; y++ {
		off := y * src.Stride
		morphLine(tmp.Pix[off:], src.Pix[off:], w, 1, kw, op, counts)
	}
	for x := 0; x < w; x++ {
		morphLine(dst.Pix[x:], tmp.Pix[x:], h, src.Stride, kh, op, counts)
	}
	return dst
}

func dilateRect(src *image.Gray, kw, kh int) *image.Gray {
	return morphRect(src, kw, kh, opDilate)
}

func erodeRect(src *image.Gray, kw, kh int) *image.Gray {
	return morphRect(src, kw, kh, opErode)
}

// openRect keeps only the parts of src that can hold a kw×kh rectangle.
func openRect(src *image.Gray, kw, kh int) *image.Gray {
	eroded := erodeRect(src, kw, kh)
	defer system.PutGray(eroded)
	return dilateRect(eroded, kw, kh)
}

// closeRect fills gaps smaller than a kw×kh rectangle.
func closeRect(src *image.Gray, kw, kh int) *image.Gray {
	dilated := dilateRect(src, kw, kh)
	defer system.PutGray(dilated)
	return erodeRect(dilated, kw, kh)
}
