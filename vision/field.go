package vision

import (
	"darkest-dnd-server/config"
	"darkest-dnd-server/level"
)

// Source is one vision-sharing light.
type Source struct {
	Row     int
	Col     int
	Radiant int
	Dim     int
}

// NewSource returns a source at (row, col) with the default radii.
func NewSource(row, col int) Source {
	return Source{
		Row:     row,
		Col:     col,
		Radiant: config.RadiantLightDistance,
		Dim:     config.DimLightDistance,
	}
}

// Resettable is a Grid whose brightness can be cleared before a pass.
type Resettable interface {
	Grid
	ResetBrightness()
}

// Field recomputes a grid's lighting only after something invalidated it.
type Field struct {
	grid  Resettable
	dirty bool
}

// NewField returns a field that will compute on the first Recompute call.
func NewField(g Resettable) *Field {
	return &Field{grid: g, dirty: true}
}

// MarkDirty schedules a recompute.
func (f *Field) MarkDirty() { f.dirty = true }

func (f *Field) Dirty() bool { return f.dirty }

// Recompute resets brightness and floods every source, if the field is
// dirty. It reports whether a pass ran.
func (f *Field) Recompute(sources []Source) bool {
	if !f.dirty {
		return false
	}
	f.grid.ResetBrightness()
	for _, s := range sources {
		Flood(f.grid, s.Row, s.Col, s.Radiant, s.Dim)
	}
	f.dirty = false
	return true
}

// Compile-time check.
var _ Resettable = (*level.Grid)(nil)
