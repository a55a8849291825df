// Package vision computes the fog of war: which tiles each light source
// reveals and how brightly they are lit.
package vision

import (
	"darkest-dnd-server/level"
)

// Grid is the part of the tile map the flood reads and writes.
type Grid interface {
	InBounds(row, col int) bool
	BlocksSight(row, col int) bool
	MarkExplored(row, col int) bool
	RaiseBrightness(row, col int, b level.Brightness) bool
}

type step struct {
	row, col, n int
}

var directions = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// Flood lights the tiles 4-connected to (row, col) within radiant+dim steps.
//
// Tiles closer than radiant steps become Radiant, the next dim steps become
// Dim. Every reached tile is marked explored. Walls are lit but stop the
// spread; windows let it through. Brightness only ever rises, so several
// floods over the same grid merge to the per-tile maximum in any order.
// It returns the number of tiles reached.
func Flood(g Grid, row, col, radiant, dim int) int {
	limit := radiant + dim
	if limit <= 0 || !g.InBounds(row, col) {
		return 0
	}

	seen := map[[2]int]bool{{row, col}: true}
	queue := []step{{row, col, 0}}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]

		g.MarkExplored(s.row, s.col)
		if s.n < radiant {
			g.RaiseBrightness(s.row, s.col, level.Radiant)
		} else {
			g.RaiseBrightness(s.row, s.col, level.Dim)
		}

		if g.BlocksSight(s.row, s.col) || s.n+1 >= limit {
			continue
		}
		for _, d := range directions {
			r, c := s.row+d[0], s.col+d[1]
			k := [2]int{r, c}
			if seen[k] || !g.InBounds(r, c) {
				continue
			}
			seen[k] = true
			queue = append(queue, step{r, c, s.n + 1})
		}
	}
	return len(seen)
}
