package analyzer

import (
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/ivlev/magicscan/internal/config"
	"github.com/ivlev/magicscan/internal/geom"
	"github.com/ivlev/magicscan/internal/system"
)

// QuestionDetector finds question blocks on exam pages laid out in one or
// two columns. It is safe for concurrent use when its engine is.
type QuestionDetector struct {
	targetWidth int
	engine      Engine
	filter      CandidateFilter
	merger      Merger
	finalizer   Finalizer
	log         *logrus.Entry
}

func NewQuestionDetector(cfg config.Config, engine Engine, log *logrus.Entry) *QuestionDetector {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &QuestionDetector{
		targetWidth: cfg.Detection.TargetWidth,
		engine:      engine,
		filter:      NewCandidateFilter(cfg.Detection),
		merger:      NewMerger(cfg.Detection),
		finalizer:   NewFinalizer(cfg.Detection),
		log:         log.WithField("engine", engine.Name()),
	}
}

// Engine returns the vision backend in use.
func (d *QuestionDetector) Engine() Engine { return d.engine }

// Detect returns the question blocks of img in reading order. roi limits the
// search to part of the page; nil means the whole page. A region that
// clamps to nothing yields an empty result, not an error.
func (d *QuestionDetector) Detect(img image.Image, roi *geom.ROI) (*Result, error) {
	res := &Result{Blocks: []Block{}}

	crop, offset := SelectRegion(img, roi)
	res.Crop = crop.Bounds().Sub(crop.Bounds().Min).Add(img.Bounds().Min.Add(offset))

	norm, ratio, ok := Normalize(crop, d.targetWidth)
	if !ok {
		d.log.WithField("crop", res.Crop).Debug("degenerate region, nothing to scan")
		return res, nil
	}
	res.Scale = geom.ScaleContext{Ratio: ratio, OffsetX: offset.X, OffsetY: offset.Y}
	res.Working = norm.Bounds().Size()

	mask, err := d.engine.BuildMask(norm)
	if err != nil {
		return nil, fmt.Errorf("%s: build mask: %w", d.engine.Name(), err)
	}
	raw, err := d.engine.TraceContours(mask)
	system.PutGray(mask)
	if err != nil {
		return nil, fmt.Errorf("%s: trace contours: %w", d.engine.Name(), err)
	}

	candidates := d.filter.Apply(raw, res.Working)
	merged := d.merger.Merge(candidates, res.Working.X/2)
	res.Blocks = d.finalizer.Finalize(merged, res.Working, res.Scale)
	res.Candidates = len(candidates)
	res.Merged = len(merged)

	d.log.WithFields(logrus.Fields{
		"scale":      fmt.Sprintf("%.4f", ratio),
		"components": len(raw),
		"candidates": len(candidates),
		"merged":     len(merged),
		"blocks":     len(res.Blocks),
	}).Debug("page scanned")

	return res, nil
}
