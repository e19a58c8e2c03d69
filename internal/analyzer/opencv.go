//go:build gocv

package analyzer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"gocv.io/x/gocv"

	"github.com/ivlev/magicscan/internal/config"
	"github.com/ivlev/magicscan/internal/geom"
)

func init() {
	registerEngine("opencv", func(cfg config.Config) Engine { return NewOpenCVEngine(cfg) })
}

// OpenCVEngine builds the ink mask with OpenCV through gocv.
type OpenCVEngine struct {
	mask      config.Mask
	ruleWidth int
}

func NewOpenCVEngine(cfg config.Config) *OpenCVEngine {
	return &OpenCVEngine{mask: cfg.Mask, ruleWidth: cfg.RuleKernelWidth()}
}

func (e *OpenCVEngine) Name() string { return "opencv" }

func (e *OpenCVEngine) BuildMask(img image.Image) (*image.Gray, error) {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	src, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, rgba.Pix)
	if err != nil {
		return nil, fmt.Errorf("wrap page: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorRGBAToGray)

	blur := gocv.NewMat()
	defer blur.Close()
	k := e.mask.BlurKernel
	gocv.GaussianBlur(gray, &blur, image.Pt(k, k), 0, 0, gocv.BorderDefault)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.AdaptiveThreshold(blur, &thresh, 255, gocv.AdaptiveThresholdGaussian,
		gocv.ThresholdBinaryInv, e.mask.ThresholdBlockSize, float32(e.mask.ThresholdC))

	e.eraseRules(&thresh)

	glueKernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(e.mask.GlueWidth, e.mask.GlueHeight))
	defer glueKernel.Close()
	glued := gocv.NewMat()
	defer glued.Close()
	gocv.MorphologyEx(thresh, &glued, gocv.MorphClose, glueKernel)

	dilateKernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(e.mask.DilateWidth, e.mask.DilateHeight))
	defer dilateKernel.Close()
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Dilate(glued, &mask, dilateKernel)

	pix, err := mask.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("read mask: %w", err)
	}
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	copy(out.Pix, pix)
	return out, nil
}

// eraseRules paints the outline of every long horizontal run black, which
// removes the rule and a thin margin around it.
func (e *OpenCVEngine) eraseRules(thresh *gocv.Mat) {
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(e.ruleWidth, 1))
	defer kernel.Close()

	rules := gocv.NewMat()
	defer rules.Close()
	gocv.MorphologyEx(*thresh, &rules, gocv.MorphOpen, kernel)

	contours := gocv.FindContours(rules, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()
	if contours.Size() == 0 || e.mask.RuleEraseMargin == 0 {
		return
	}
	gocv.DrawContours(thresh, contours, -1, color.RGBA{A: 255}, e.mask.RuleEraseMargin)
}

func (e *OpenCVEngine) TraceContours(mask *image.Gray) ([]geom.Rect, error) {
	b := mask.Bounds()
	pix := mask.Pix
	if mask.Stride != b.Dx() {
		tight := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(tight, tight.Bounds(), mask, b.Min, draw.Src)
		pix = tight.Pix
	}

	m, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC1, pix)
	if err != nil {
		return nil, fmt.Errorf("wrap mask: %w", err)
	}
	defer m.Close()

	contours := gocv.FindContours(m, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	rects := make([]geom.Rect, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		rects = append(rects, geom.RectFromImage(gocv.BoundingRect(contours.At(i))))
	}
	return rects, nil
}
