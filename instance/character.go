package instance

import (
	"math"

	"darkest-dnd-server/config"
	"darkest-dnd-server/protocol"
)

// Kind tags how a character came to exist.
type Kind int

const (
	Hero   Kind = iota // Spawned for a player on first contact
	Minion             // Spawned on request by its owner
	Enemy              // Spawned for the admin from the map preset
)

func (k Kind) String() string {
	switch k {
	case Hero:
		return "hero"
	case Minion:
		return "minion"
	case Enemy:
		return "enemy"
	}
	return "unknown"
}

// ParseKind maps a wire kind back to its tag. Unknown names are heroes.
func ParseKind(s string) Kind {
	switch s {
	case "minion":
		return Minion
	case "enemy":
		return Enemy
	}
	return Hero
}

// Character is any controllable token on the map.
type Character struct {
	ID           string              // Globally unique id
	Owner        string              // Owning session id
	Kind         Kind                // Variant tag
	Row          int                 // Authoritative tile row
	Col          int                 // Authoritative tile column
	Path         []protocol.Waypoint // Remaining path, goal first, next step last
	ShareVision  bool                // Contributes light to the fog of war
	AdminSpawned bool                // Created by or for an admin
	ImageName    string              // Token image reference
	ImageFile    []byte              // Uploaded token image, if any

	// Pixel position, only animated by peers.
	X, Y float64
}

// State returns the wire view of the character.
func (c *Character) State() protocol.CharacterState {
	return protocol.CharacterState{
		ID:           c.ID,
		PlayerID:     c.Owner,
		Kind:         c.Kind.String(),
		TileRow:      c.Row,
		TileCol:      c.Col,
		ShareVision:  c.ShareVision,
		AdminSpawned: c.AdminSpawned,
		ImageName:    c.ImageName,
		ImageFile:    c.ImageFile,
	}
}

// FromState builds a character from its wire view, placed on its tile.
func FromState(s protocol.CharacterState) *Character {
	c := &Character{
		ID:           s.ID,
		Owner:        s.PlayerID,
		Kind:         ParseKind(s.Kind),
		Row:          s.TileRow,
		Col:          s.TileCol,
		ShareVision:  s.ShareVision,
		AdminSpawned: s.AdminSpawned,
		ImageName:    s.ImageName,
		ImageFile:    s.ImageFile,
	}
	c.SnapToTile()
	return c
}

// SnapToTile moves the pixel position onto the current tile.
func (c *Character) SnapToTile() {
	c.X = float64(c.Col << config.TILE_SIZE_SHIFT)
	c.Y = float64(c.Row << config.TILE_SIZE_SHIFT)
}

// Moving reports whether a path remains.
func (c *Character) Moving() bool { return len(c.Path) > 0 }

// StopAfterNextStep drops every waypoint but the one being walked to and
// returns it. ok is false if no path remains.
func (c *Character) StopAfterNextStep() (next protocol.Waypoint, ok bool) {
	if len(c.Path) == 0 {
		return protocol.Waypoint{}, false
	}
	next = c.Path[len(c.Path)-1]
	c.Path = []protocol.Waypoint{next}
	return next, true
}

// Advance walks the pixel position toward the next waypoint at
// CharacterMoveSpeed pixels per millisecond and pops the waypoint once it is
// reached. It reports whether a tile boundary was crossed.
func (c *Character) Advance(deltaMs float64) bool {
	if len(c.Path) == 0 {
		return false
	}

	crossed := false
	last := len(c.Path) - 1
	target := c.Path[last]
	goalX := float64(target.TileCol << config.TILE_SIZE_SHIFT)
	goalY := float64(target.TileRow << config.TILE_SIZE_SHIFT)

	if math.Abs(c.X-goalX) < 1 && math.Abs(c.Y-goalY) < 1 {
		c.X, c.Y = goalX, goalY
		c.Row, c.Col = target.TileRow, target.TileCol
		c.Path = c.Path[:last]
		crossed = true
	}

	step := config.CharacterMoveSpeed * deltaMs
	c.X = approach(c.X, goalX, step)
	c.Y = approach(c.Y, goalY, step)
	return crossed
}

// approach moves v toward goal by at most step without overshooting.
func approach(v, goal, step float64) float64 {
	switch {
	case goal > v:
		return math.Min(v+step, goal)
	case goal < v:
		return math.Max(v-step, goal)
	}
	return v
}
