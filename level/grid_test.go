package level

import (
	"testing"

	"darkest-dnd-server/config"
)

func mustGrid(t *testing.T, text string) *Grid {
	t.Helper()
	m, err := ParseASCII(text, config.WINDOW_HEX)
	if err != nil {
		t.Fatalf("parse map: %v", err)
	}
	g, err := m.Grid(config.WINDOW_HEX)
	if err != nil {
		t.Fatalf("build grid: %v", err)
	}
	return g
}

func TestNewGridClassifiesPixels(t *testing.T) {
	pixels := []string{
		"000000FF", "ffffffff",
		config.WINDOW_HEX, "00000000",
	}
	g, err := NewGrid(2, 2, pixels, config.WINDOW_HEX)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	if !g.SolidAt(0, 0) || g.IsWindowAt(0, 0) {
		t.Fatalf("expected (0,0) to be a solid wall")
	}
	if g.SolidAt(0, 1) {
		t.Fatalf("expected (0,1) to be floor")
	}
	if !g.SolidAt(1, 0) || !g.IsWindowAt(1, 0) {
		t.Fatalf("expected (1,0) to be a solid window")
	}
	if g.SolidAt(1, 1) {
		t.Fatalf("transparent black must not be solid")
	}
	if got := g.PixelHex(0, 0); got != "000000ff" {
		t.Fatalf("expected lowercased pixel, got %q", got)
	}
}

func TestNewGridRejectsMismatchedPixels(t *testing.T) {
	if _, err := NewGrid(3, 3, make([]string, 8), ""); err == nil {
		t.Fatalf("expected pixel count error")
	}
	if _, err := NewGrid(0, 3, nil, ""); err == nil {
		t.Fatalf("expected dimension error")
	}
}

func TestOutOfRangeQueriesReturnSentinels(t *testing.T) {
	g := mustGrid(t, "...\n...\n")

	cases := [][2]int{{-1, 0}, {0, -1}, {2, 0}, {0, 3}, {100, 100}}
	for _, c := range cases {
		r, col := c[0], c[1]
		if g.InBounds(r, col) {
			t.Fatalf("(%d,%d) reported in bounds", r, col)
		}
		if g.SolidAt(r, col) || g.IsWindowAt(r, col) || g.ExploredAt(r, col) {
			t.Fatalf("(%d,%d) reported attributes", r, col)
		}
		if !g.InvalidPathTile(r, col) || !g.BlocksSight(r, col) {
			t.Fatalf("(%d,%d) must block off-grid", r, col)
		}
		if g.SetPaintOverlay(r, col, Red.Hex) || g.MarkExplored(r, col) || g.RaiseBrightness(r, col, Radiant) {
			t.Fatalf("(%d,%d) mutation reported success", r, col)
		}
		if g.Brightness(r, col) != Dark || g.PixelHex(r, col) != NoPixel {
			t.Fatalf("(%d,%d) unexpected render view", r, col)
		}
		if _, ok := g.Tile(r, col); ok {
			t.Fatalf("(%d,%d) Tile reported existence", r, col)
		}
	}
}

func TestPaintOverlayBlocksPathing(t *testing.T) {
	g := mustGrid(t, "...\n")

	for _, c := range []PaintColor{Black, Brown, FakeWall} {
		g.SetPaintOverlay(0, 1, c.Hex)
		if !g.InvalidPathTile(0, 1) {
			t.Fatalf("%s paint should block pathing", c.Name)
		}
		if g.SolidAt(0, 1) {
			t.Fatalf("paint must not change solidity")
		}
	}
	for _, c := range []PaintColor{Clear, Trap, Curio, Red, Yellow} {
		g.SetPaintOverlay(0, 1, c.Hex)
		if g.InvalidPathTile(0, 1) {
			t.Fatalf("%s paint should not block pathing", c.Name)
		}
	}
}

func TestWindowBlocksMovementNotSight(t *testing.T) {
	g := mustGrid(t, ".W.\n")
	if !g.InvalidPathTile(0, 1) {
		t.Fatalf("window should block movement")
	}
	if g.BlocksSight(0, 1) {
		t.Fatalf("window should not block sight")
	}
	if !g.BlocksSight(0, 3) {
		t.Fatalf("off-grid should block sight")
	}
}

func TestRaiseBrightnessIsMonotonic(t *testing.T) {
	g := mustGrid(t, "..\n")

	if g.RaiseBrightness(0, 0, Radiant) {
		t.Fatalf("unexplored tile must stay dark")
	}
	g.MarkExplored(0, 0)
	if !g.RaiseBrightness(0, 0, Dim) {
		t.Fatalf("expected raise to dim")
	}
	if !g.RaiseBrightness(0, 0, Radiant) {
		t.Fatalf("expected raise to radiant")
	}
	if g.RaiseBrightness(0, 0, Dim) {
		t.Fatalf("dim must not downgrade radiant")
	}
	if got := g.BrightnessAt(0, 0); got != Radiant {
		t.Fatalf("expected radiant, got %s", got)
	}

	g.ResetBrightness()
	if got := g.BrightnessAt(0, 0); got != Dark {
		t.Fatalf("expected dark after reset, got %s", got)
	}
	if !g.ExploredAt(0, 0) {
		t.Fatalf("reset must keep exploration")
	}
	if got := g.Brightness(0, 0); got != Explored {
		t.Fatalf("expected explored render view, got %s", got)
	}
	if got := g.Brightness(0, 1); got != Dark {
		t.Fatalf("expected dark render view for unexplored tile, got %s", got)
	}
}

func TestShouldBeDrawn(t *testing.T) {
	g := mustGrid(t, "###\n#.#\n###\n")
	if g.ShouldBeDrawn(1, 1) {
		t.Fatalf("walled-in tile should be culled")
	}
	// Corners have off-grid neighbours which never cull.
	if !g.ShouldBeDrawn(0, 0) {
		t.Fatalf("corner should be drawn")
	}

	w := mustGrid(t, "#W#\n#.#\n###\n")
	if !w.ShouldBeDrawn(1, 1) {
		t.Fatalf("tile next to a window should be drawn")
	}
}
