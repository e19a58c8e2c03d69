package engine

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/magicscan/internal/analyzer"
	"github.com/ivlev/magicscan/internal/geom"
	"github.com/ivlev/magicscan/internal/source"
)

// PageResult is the detection output for one page. Page is 1-based.
type PageResult struct {
	Page   int             `json:"page"`
	Blocks []geom.PageRect `json:"blocks"`
}

// PageHook is called for every scanned page, from the worker goroutine that
// scanned it. index is 0-based.
type PageHook func(index int, img image.Image, res *analyzer.Result) error

// Scanner renders pages of a source and runs the detector on each of them
// using a bounded pool of workers.
type Scanner struct {
	Source   source.Source
	Detector analyzer.Detector
	DPI      int
	Workers  int
	ROI      *geom.ROI
	OnPage   PageHook
	Log      *logrus.Entry
}

func NewScanner(src source.Source, det analyzer.Detector, dpi, workers int, log *logrus.Entry) *Scanner {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Scanner{
		Source:   src,
		Detector: det,
		DPI:      dpi,
		Workers:  workers,
		Log:      log.WithField("component", "scanner"),
	}
}

// AllPages returns the 0-based indexes of every page of the source.
func (s *Scanner) AllPages() []int {
	pages := make([]int, s.Source.PageCount())
	for i := range pages {
		pages[i] = i
	}
	return pages
}

// ScanPage renders and scans a single page.
func (s *Scanner) ScanPage(ctx context.Context, index int) (*analyzer.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := s.Source.RenderPage(index, s.DPI)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", index+1, err)
	}

	res, err := s.Detector.Detect(img, s.ROI)
	if err != nil {
		return nil, fmt.Errorf("scan page %d: %w", index+1, err)
	}

	if s.OnPage != nil {
		if err := s.OnPage(index, img, res); err != nil {
			return nil, fmt.Errorf("page %d: %w", index+1, err)
		}
	}
	return res, nil
}

// Scan processes pages concurrently and returns their results in the order
// given. The first failure cancels the remaining pages.
func (s *Scanner) Scan(ctx context.Context, pages []int) ([]PageResult, error) {
	start := time.Now()
	results := make([]PageResult, len(pages))

	workers := s.Workers
	if workers <= 0 || workers > len(pages) {
		workers = len(pages)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for pos, index := range pages {
		g.Go(func() error {
			res, err := s.ScanPage(gctx, index)
			if err != nil {
				return err
			}
			results[pos] = PageResult{Page: index + 1, Blocks: res.Rects()}
			s.Log.WithFields(logrus.Fields{
				"page":   index + 1,
				"blocks": len(res.Blocks),
			}).Debug("page ready")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	s.Log.WithFields(logrus.Fields{
		"pages":   len(pages),
		"workers": workers,
		"elapsed": elapsed.Round(time.Millisecond).String(),
	}).Info("scan finished")

	return results, nil
}
