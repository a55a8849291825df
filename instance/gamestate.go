package instance

import (
	"darkest-dnd-server/protocol"
)

// GameState is the authoritative paint and exploration mirror handed to
// joining peers, plus the global freeze flag.
type GameState struct {
	rows, cols int
	tiles      [][]protocol.GameTile
	frozen     bool
}

func NewGameState(rows, cols int) *GameState {
	tiles := make([][]protocol.GameTile, rows)
	for r := range tiles {
		tiles[r] = make([]protocol.GameTile, cols)
	}
	return &GameState{rows: rows, cols: cols, tiles: tiles}
}

func (s *GameState) inBounds(row, col int) bool {
	return row >= 0 && row < s.rows && col >= 0 && col < s.cols
}

// Paint sets a tile's overlay color. Off-grid coordinates are ignored.
func (s *GameState) Paint(row, col int, colorHex string) bool {
	if !s.inBounds(row, col) {
		return false
	}
	s.tiles[row][col].PaintOverColorHex = colorHex
	return true
}

// ExploreArea ORs a patch of explored flags anchored at (top, left) into the
// state and returns the number of tiles newly explored.
func (s *GameState) ExploreArea(top, left int, area [][]bool) int {
	n := 0
	for dr, line := range area {
		for dc, explored := range line {
			r, c := top+dr, left+dc
			if !explored || !s.inBounds(r, c) || s.tiles[r][c].Explored {
				continue
			}
			s.tiles[r][c].Explored = true
			n++
		}
	}
	return n
}

// ToggleFreeze flips the movement freeze and returns the new value.
func (s *GameState) ToggleFreeze() bool {
	s.frozen = !s.frozen
	return s.frozen
}

func (s *GameState) Frozen() bool { return s.frozen }

func (s *GameState) Tile(row, col int) (protocol.GameTile, bool) {
	if !s.inBounds(row, col) {
		return protocol.GameTile{}, false
	}
	return s.tiles[row][col], true
}

func (s *GameState) ExploredCount() int {
	n := 0
	for _, line := range s.tiles {
		for _, t := range line {
			if t.Explored {
				n++
			}
		}
	}
	return n
}

// Snapshot deep-copies the state for publication.
func (s *GameState) Snapshot() protocol.GameStateData {
	tiles := make([][]protocol.GameTile, s.rows)
	for r := range tiles {
		tiles[r] = append([]protocol.GameTile(nil), s.tiles[r]...)
	}
	return protocol.GameStateData{Tiles: tiles, FreezeCharacterMovement: s.frozen}
}
