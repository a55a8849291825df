package pathfinding

import (
	"container/heap"
	"errors"
	"math"
)

var (
	// ErrInvalidEndpoint is returned when the start or goal is off the grid or solid.
	ErrInvalidEndpoint = errors.New("start or goal is not a walkable tile")
	// ErrNoPath is returned when the goal cannot be reached.
	ErrNoPath = errors.New("no path found")
)

// Grid is the view of a tile map the search needs.
type Grid interface {
	InBounds(row, col int) bool
	SolidAt(row, col int) bool
	InvalidPathTile(row, col int) bool
	ExploredAt(row, col int) bool
}

// Node is one step of a path.
type Node struct {
	Row    int
	Col    int
	G      float64 // Cost from the start to this node
	H      float64 // Straight-line distance from this node to the goal
	Parent *Node

	seq   int // Insertion order, breaks ties between equal G
	index int // Heap position (container/heap)
}

// PriorityQueue orders the open set by G, then insertion order.
type PriorityQueue []*Node

func (pq PriorityQueue) Len() int { return len(pq) }

func (pq PriorityQueue) Less(i, j int) bool {
	if pq[i].G != pq[j].G {
		return pq[i].G < pq[j].G
	}
	return pq[i].seq < pq[j].seq
}

func (pq PriorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *PriorityQueue) Push(x interface{}) {
	node := x.(*Node)
	node.index = len(*pq)
	*pq = append(*pq, node)
}

func (pq *PriorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*pq = old[:n-1]
	return node
}

// Distance is the Euclidean distance between two tiles.
func Distance(r0, c0, r1, c1 int) float64 {
	dr := float64(r0 - r1)
	dc := float64(c0 - c1)
	return math.Sqrt(dr*dr + dc*dc)
}

type cell struct{ row, col int }

// FindPath searches for the cheapest 8-connected route between two tiles.
//
// The open set is expanded in order of accumulated cost G, so H only
// describes the node and never steers the search. Unexplored tiles are
// skipped unless allowUnexplored is set. A diagonal step is refused when
// both orthogonal tiles it cuts between are blocked.
//
// The returned path runs from the goal back to the start: the last element
// is the start tile and callers walk it by popping from the end.
func FindPath(g Grid, startRow, startCol, goalRow, goalCol int, allowUnexplored bool) ([]*Node, error) {
	if !g.InBounds(goalRow, goalCol) || g.SolidAt(goalRow, goalCol) ||
		!g.InBounds(startRow, startCol) || g.SolidAt(startRow, startCol) {
		return nil, ErrInvalidEndpoint
	}

	seq := 0
	start := &Node{
		Row: startRow,
		Col: startCol,
		H:   Distance(startRow, startCol, goalRow, goalCol),
	}
	open := PriorityQueue{}
	heap.Push(&open, start)

	queued := map[cell]float64{{startRow, startCol}: 0}
	closed := make(map[cell]float64)

	for open.Len() > 0 {
		current := heap.Pop(&open).(*Node)
		key := cell{current.Row, current.Col}
		if c, ok := closed[key]; ok && current.G >= c {
			continue // Superseded entry
		}

		if current.Row == goalRow && current.Col == goalCol {
			return unwind(current), nil
		}
		closed[key] = current.G

		for dr := -1; dr <= 1; dr++ {
			for dc := -1; dc <= 1; dc++ {
				if dr == 0 && dc == 0 {
					continue
				}
				r, c := current.Row+dr, current.Col+dc
				if !g.InBounds(r, c) || g.InvalidPathTile(r, c) {
					continue
				}
				if !allowUnexplored && !g.ExploredAt(r, c) {
					continue
				}
				if dr != 0 && dc != 0 &&
					g.InvalidPathTile(current.Row+dr, current.Col) &&
					g.InvalidPathTile(current.Row, current.Col+dc) {
					continue
				}

				cost := current.G + Distance(current.Row, current.Col, r, c)
				nk := cell{r, c}
				if prev, ok := closed[nk]; ok && cost >= prev {
					continue
				}
				if prev, ok := queued[nk]; ok && cost >= prev {
					continue
				}
				queued[nk] = cost

				seq++
				heap.Push(&open, &Node{
					Row:    r,
					Col:    c,
					G:      cost,
					H:      Distance(r, c, goalRow, goalCol),
					Parent: current,
					seq:    seq,
				})
			}
		}
	}
	return nil, ErrNoPath
}

func unwind(goal *Node) []*Node {
	var path []*Node
	for n := goal; n != nil; n = n.Parent {
		path = append(path, n)
	}
	return path
}

// Cost sums the step distances along a path in either direction.
func Cost(path []*Node) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += Distance(path[i-1].Row, path[i-1].Col, path[i].Row, path[i].Col)
	}
	return total
}
