package level

// Brightness is the visibility tier of a tile. Values are ordered so that a
// larger value is always brighter.
type Brightness int

const (
	Dark     Brightness = iota // Never seen
	Explored                   // Seen before, not lit now
	Dim
	Radiant
)

func (b Brightness) String() string {
	switch b {
	case Dark:
		return "dark"
	case Explored:
		return "explored"
	case Dim:
		return "dim"
	case Radiant:
		return "radiant"
	}
	return "unknown"
}

// PaintColor is an overlay color an administrator can paint on a tile.
type PaintColor struct {
	Hex  string `json:"hex"`
	Name string `json:"name"`
}

// Paint overlays understood by clients. Clear removes the overlay.
var (
	Clear    = PaintColor{Hex: "", Name: "clear"}
	Black    = PaintColor{Hex: "000000", Name: "black"}
	Trap     = PaintColor{Hex: "a300d5", Name: "trap"}
	Curio    = PaintColor{Hex: "496bff", Name: "curio"}
	Red      = PaintColor{Hex: "ff0000", Name: "red"}
	Yellow   = PaintColor{Hex: "ffcc00", Name: "yellow"}
	Brown    = PaintColor{Hex: "ea5d00", Name: "brown"}
	FakeWall = PaintColor{Hex: "333333", Name: "fake wall"}
)

// PaintColors is the full palette in display order.
var PaintColors = []PaintColor{Clear, Black, Trap, Curio, Red, Yellow, Brown, FakeWall}

// BlocksPath reports whether a paint overlay turns its tile into an obstacle.
func BlocksPath(hex string) bool {
	switch hex {
	case Black.Hex, Brown.Hex, FakeWall.Hex:
		return true
	}
	return false
}

// Tile is one grid cell.
type Tile struct {
	Row          int
	Col          int
	Solid        bool
	Window       bool // Solid, but light passes through
	Explored     bool
	Brightness   Brightness
	PaintOverlay string
}

// InvalidPathTile reports whether movement may not enter the tile.
func (t *Tile) InvalidPathTile() bool {
	return t.Solid || BlocksPath(t.PaintOverlay)
}

// BlocksSight reports whether the tile stops a vision flood.
func (t *Tile) BlocksSight() bool {
	return t.InvalidPathTile() && !t.Window
}
