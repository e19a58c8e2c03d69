package analyzer

import (
	"image"
	"sort"

	"github.com/ivlev/magicscan/internal/config"
	"github.com/ivlev/magicscan/internal/geom"
)

// Finalizer drops undersized blocks, maps the rest back to page space and
// puts them in reading order.
type Finalizer struct {
	MinAreaRatio float64
	RowBand      int
}

func NewFinalizer(cfg config.Detection) Finalizer {
	return Finalizer{MinAreaRatio: cfg.MinBlockAreaRatio, RowBand: cfg.ReadingRowBand}
}

func (f Finalizer) Finalize(blocks []MergedBlock, size image.Point, sc geom.ScaleContext) []Block {
	minArea := f.MinAreaRatio * float64(size.X*size.Y)

	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		if float64(b.Area()) <= minArea {
			continue
		}
		pr := sc.ToPage(b.Rect)
		if pr.Empty() {
			continue
		}
		out = append(out, Block{PageRect: pr, Column: b.Column})
	}

	band := max(f.RowBand, 1)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := floorDiv(out[i].Y, band), floorDiv(out[j].Y, band)
		if ri != rj {
			return ri < rj
		}
		return out[i].X < out[j].X
	})
	return out
}

// floorDiv rounds toward negative infinity so that bands stay uniform for
// negative coordinates.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}
