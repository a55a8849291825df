package level

import (
	"errors"
	"fmt"
	"strings"

	"darkest-dnd-server/config"
)

// ErrPixelCount is returned when the pixel table does not cover the grid.
var ErrPixelCount = errors.New("pixel table size does not match grid dimensions")

// NoPixel is the color reported for coordinates outside the map.
const NoPixel = "-1"

// Grid is the tile map. Queries outside the grid never panic; they return
// the zero value for the query, and blocking queries report true.
type Grid struct {
	rows   int
	cols   int
	tiles  []Tile
	pixels []string
}

// NewGrid builds a grid from a row-major RGBA hex pixel table, one pixel per
// tile. Pixels equal to config.SOLID_HEX are solid; pixels equal to windowHex
// are solid windows.
func NewGrid(width, height int, pixels []string, windowHex string) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid %dx%d: dimensions must be positive", width, height)
	}
	if len(pixels) != width*height {
		return nil, fmt.Errorf("grid %dx%d with %d pixels: %w", width, height, len(pixels), ErrPixelCount)
	}
	windowHex = strings.ToLower(windowHex)

	g := &Grid{
		rows:   height,
		cols:   width,
		tiles:  make([]Tile, len(pixels)),
		pixels: make([]string, len(pixels)),
	}
	for i, raw := range pixels {
		hex := strings.ToLower(raw)
		g.pixels[i] = hex
		t := &g.tiles[i]
		t.Row = i / width
		t.Col = i % width
		switch {
		case hex == config.SOLID_HEX:
			t.Solid = true
		case windowHex != "" && hex == windowHex:
			t.Solid = true
			t.Window = true
		}
	}
	return g, nil
}

func (g *Grid) Rows() int { return g.rows }
func (g *Grid) Cols() int { return g.cols }

// InBounds reports whether (row, col) names a tile.
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && col >= 0 && row < g.rows && col < g.cols
}

func (g *Grid) at(row, col int) *Tile {
	if !g.InBounds(row, col) {
		return nil
	}
	return &g.tiles[row*g.cols+col]
}

// Tile returns a copy of the tile and whether it exists.
func (g *Grid) Tile(row, col int) (Tile, bool) {
	t := g.at(row, col)
	if t == nil {
		return Tile{Row: row, Col: col}, false
	}
	return *t, true
}

func (g *Grid) SolidAt(row, col int) bool {
	t := g.at(row, col)
	return t != nil && t.Solid
}

func (g *Grid) IsWindowAt(row, col int) bool {
	t := g.at(row, col)
	return t != nil && t.Window
}

func (g *Grid) ExploredAt(row, col int) bool {
	t := g.at(row, col)
	return t != nil && t.Explored
}

// InvalidPathTile reports whether movement may not enter (row, col).
// Off-grid coordinates are invalid.
func (g *Grid) InvalidPathTile(row, col int) bool {
	t := g.at(row, col)
	return t == nil || t.InvalidPathTile()
}

// BlocksSight reports whether a vision flood stops at (row, col).
// Off-grid coordinates block.
func (g *Grid) BlocksSight(row, col int) bool {
	t := g.at(row, col)
	return t == nil || t.BlocksSight()
}

func (g *Grid) PaintOverlayAt(row, col int) string {
	t := g.at(row, col)
	if t == nil {
		return ""
	}
	return t.PaintOverlay
}

// SetPaintOverlay replaces the overlay of a tile. It reports false for
// off-grid coordinates.
func (g *Grid) SetPaintOverlay(row, col int, hex string) bool {
	t := g.at(row, col)
	if t == nil {
		return false
	}
	t.PaintOverlay = hex
	return true
}

// MarkExplored sets the explored flag. Exploration is never cleared.
func (g *Grid) MarkExplored(row, col int) bool {
	t := g.at(row, col)
	if t == nil {
		return false
	}
	t.Explored = true
	return true
}

// RaiseBrightness lifts the tile to level if it is currently darker.
// Unexplored tiles stay Dark.
func (g *Grid) RaiseBrightness(row, col int, level Brightness) bool {
	t := g.at(row, col)
	if t == nil || !t.Explored || level <= t.Brightness {
		return false
	}
	t.Brightness = level
	return true
}

// ResetBrightness darkens every tile. Exploration is kept.
func (g *Grid) ResetBrightness() {
	for i := range g.tiles {
		g.tiles[i].Brightness = Dark
	}
}

// BrightnessAt returns the raw brightness computed by the last vision pass.
func (g *Grid) BrightnessAt(row, col int) Brightness {
	t := g.at(row, col)
	if t == nil {
		return Dark
	}
	return t.Brightness
}

// Brightness is the render view of a tile: explored tiles that are not lit
// at least Dim are reported as Explored.
func (g *Grid) Brightness(row, col int) Brightness {
	t := g.at(row, col)
	if t == nil {
		return Dark
	}
	if t.Explored && t.Brightness < Dim {
		return Explored
	}
	return t.Brightness
}

// ShouldBeDrawn is false for tiles walled in on all four sides, which no
// vision flood can ever reach.
func (g *Grid) ShouldBeDrawn(row, col int) bool {
	if !g.InBounds(row, col) {
		return false
	}
	walled := func(r, c int) bool {
		t := g.at(r, c)
		return t != nil && t.Solid && !t.Window
	}
	return !(walled(row-1, col) && walled(row+1, col) && walled(row, col-1) && walled(row, col+1))
}

// PixelHex returns the source map color of a tile, or NoPixel off-grid.
func (g *Grid) PixelHex(row, col int) string {
	if !g.InBounds(row, col) {
		return NoPixel
	}
	return g.pixels[row*g.cols+col]
}

// Pixels returns a copy of the row-major source pixel table.
func (g *Grid) Pixels() []string {
	out := make([]string, len(g.pixels))
	copy(out, g.pixels)
	return out
}

// ExploredCount returns the number of explored tiles.
func (g *Grid) ExploredCount() int {
	n := 0
	for i := range g.tiles {
		if g.tiles[i].Explored {
			n++
		}
	}
	return n
}
