package pathfinding

import (
	"strings"
)

// RenderASCII draws the grid with a path overlaid.
//
//	S start, E goal, + path, # blocked, ? unexplored, . walkable
func RenderASCII(g interface {
	Grid
	Rows() int
	Cols() int
}, path []*Node) string {
	onPath := make(map[cell]bool, len(path))
	for _, n := range path {
		onPath[cell{n.Row, n.Col}] = true
	}
	var start, goal cell
	if len(path) > 0 {
		goal = cell{path[0].Row, path[0].Col}
		start = cell{path[len(path)-1].Row, path[len(path)-1].Col}
	}

	var b strings.Builder
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			k := cell{r, c}
			switch {
			case len(path) > 0 && k == start:
				b.WriteString("S ")
			case len(path) > 0 && k == goal:
				b.WriteString("E ")
			case onPath[k]:
				b.WriteString("+ ")
			case g.InvalidPathTile(r, c):
				b.WriteString("# ")
			case !g.ExploredAt(r, c):
				b.WriteString("? ")
			default:
				b.WriteString(". ")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
