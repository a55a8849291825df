package vision

// Explorable is the read side of a grid's explored flags.
type Explorable interface {
	Rows() int
	Cols() int
	InBounds(row, col int) bool
	ExploredAt(row, col int) bool
}

// Patch is a rectangular window of explored flags anchored at TopRow, LeftCol.
type Patch struct {
	TopRow  int
	LeftCol int
	Area    [][]bool
}

// ExploredPatch copies the explored flags within radius of (row, col),
// clipped to the grid. It reports false if the center is off-grid.
func ExploredPatch(g Explorable, row, col, radius int) (Patch, bool) {
	if !g.InBounds(row, col) || radius < 0 {
		return Patch{}, false
	}
	top, left := max(0, row-radius), max(0, col-radius)
	bottom, right := min(g.Rows()-1, row+radius), min(g.Cols()-1, col+radius)

	p := Patch{TopRow: top, LeftCol: left}
	p.Area = make([][]bool, 0, bottom-top+1)
	for r := top; r <= bottom; r++ {
		line := make([]bool, 0, right-left+1)
		for c := left; c <= right; c++ {
			line = append(line, g.ExploredAt(r, c))
		}
		p.Area = append(p.Area, line)
	}
	return p, true
}
