package analyzer

import (
	"github.com/ivlev/magicscan/internal/config"
	"github.com/ivlev/magicscan/internal/geom"
)

// MergedBlock is a union of candidates from a single column.
type MergedBlock struct {
	geom.Rect
	Column geom.Column
}

// Merger unions nearby candidates inside each column. Candidates from
// different columns are never combined.
type Merger struct {
	TolX int
	TolY int
}

func NewMerger(cfg config.Detection) Merger {
	return Merger{TolX: cfg.MergeToleranceX, TolY: cfg.MergeToleranceY}
}

// Merge partitions rects by column around midPoint and merges each column
// until no two of its boxes are within tolerance. Left blocks come first.
func (m Merger) Merge(rects []geom.Rect, midPoint int) []MergedBlock {
	var left, right []geom.Rect
	for _, r := range rects {
		if geom.ColumnOf(r, midPoint) == geom.ColumnLeft {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	out := make([]MergedBlock, 0, len(rects))
	for _, r := range m.mergeColumn(left) {
		out = append(out, MergedBlock{Rect: r, Column: geom.ColumnLeft})
	}
	for _, r := range m.mergeColumn(right) {
		out = append(out, MergedBlock{Rect: r, Column: geom.ColumnRight})
	}
	return out
}

// near reports whether a and b overlap once their projections are padded by
// the tolerances.
func (m Merger) near(a, b geom.Rect) bool {
	return max(a.X, b.X) < min(a.X2(), b.X2())+m.TolX &&
		max(a.Y, b.Y) < min(a.Y2(), b.Y2())+m.TolY
}

// mergeColumn runs full passes: each live box absorbs every later live box it
// is near, growing as it goes. Passes repeat until one makes no change.
func (m Merger) mergeColumn(rects []geom.Rect) []geom.Rect {
	boxes := append([]geom.Rect(nil), rects...)
	for {
		merged := false
		used := make([]bool, len(boxes))
		next := boxes[:0:0]

		for i := range boxes {
			if used[i] {
				continue
			}
			cur := boxes[i]
			for j := i + 1; j < len(boxes); j++ {
				if used[j] || !m.near(cur, boxes[j]) {
					continue
				}
				cur = cur.Union(boxes[j])
				used[j] = true
				merged = true
			}
			next = append(next, cur)
		}

		boxes = next
		if !merged {
			return boxes
		}
	}
}
