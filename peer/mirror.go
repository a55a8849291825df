// Package peer keeps a client-side mirror of the shared world, patched by
// the events the server relays. It is what a headless peer runs and what
// tests use to watch a session from the player's side.
package peer

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"darkest-dnd-server/config"
	"darkest-dnd-server/instance"
	"darkest-dnd-server/level"
	"darkest-dnd-server/logger"
	"darkest-dnd-server/pathfinding"
	"darkest-dnd-server/protocol"
	"darkest-dnd-server/vision"
)

var (
	ErrNotLoaded = errors.New("map not loaded")
	ErrNoPOV     = errors.New("no point-of-view character")
	ErrFrozen    = errors.New("character movement is frozen")
)

// ExploredRadius is the half-size of the explored patch a moving character
// reports.
const ExploredRadius = config.RadiantLightDistance + config.DimLightDistance

// Mirror is a single-threaded replica of the world as one session sees it.
type Mirror struct {
	windowHex string
	log       *logrus.Entry

	self     protocol.PlayerData
	grid     *level.Grid
	field    *vision.Field
	entities *instance.EntityRegistry

	canMove  bool
	vignette bool
	pov      string

	hoverRow, hoverCol int
	hovering           bool
	hoverPath          []protocol.Waypoint
	repath             bool

	stepped map[string]bool // characters that crossed a tile since the last vision pass
	outbox  []protocol.Event
}

// NewMirror returns an empty mirror. Characters may arrive before the map.
func NewMirror(windowHex string, log *logrus.Entry) *Mirror {
	if log == nil {
		log = logger.Component("peer")
	}
	return &Mirror{
		windowHex: windowHex,
		log:       log,
		entities:  instance.NewEntityRegistry(),
		canMove:   true,
		stepped:   make(map[string]bool),
	}
}

func (m *Mirror) Loaded() bool { return m.grid != nil }

func (m *Mirror) Self() protocol.PlayerData { return m.self }

func (m *Mirror) Grid() *level.Grid { return m.grid }

func (m *Mirror) Entities() *instance.EntityRegistry { return m.entities }

// CanMove reports whether clicks may move characters.
func (m *Mirror) CanMove() bool { return m.canMove }

// Vignette reports whether the freeze overlay is shown.
func (m *Mirror) Vignette() bool { return m.vignette }

// HoverPath is the preview path from the POV character to the hovered tile.
func (m *Mirror) HoverPath() []protocol.Waypoint { return m.hoverPath }

func (m *Mirror) Character(id string) (*instance.Character, bool) { return m.entities.Get(id) }

// POV returns the character the session is steering, if any.
func (m *Mirror) POV() (*instance.Character, bool) {
	if m.pov == "" {
		return nil, false
	}
	return m.entities.Get(m.pov)
}

// Own lists the characters of this session.
func (m *Mirror) Own() []*instance.Character {
	return m.entities.OwnedBy(m.self.ID)
}

// SetPOV selects an owned character to steer.
func (m *Mirror) SetPOV(id string) bool {
	c, ok := m.entities.Get(id)
	if !ok || (c.Owner != m.self.ID && !m.self.Admin) {
		return false
	}
	m.pov = id
	m.repath = true
	return true
}

// Drain returns and clears the commands queued for the server.
func (m *Mirror) Drain() []protocol.Event {
	out := m.outbox
	m.outbox = nil
	return out
}

func (m *Mirror) invalidate() {
	if m.field != nil {
		m.field.MarkDirty()
	}
}

func (m *Mirror) queue(typ string, data any) {
	m.outbox = append(m.outbox, protocol.Event{Type: typ, Data: data})
}

// Apply patches the mirror with one server event.
func (m *Mirror) Apply(msg protocol.Message) error {
	var err error
	switch msg.Type {
	case protocol.InitializeCharacters:
		var states []protocol.CharacterState
		if err = msg.Bind(&states); err == nil {
			m.AddCharacters(states)
		}
	case protocol.InitializeGameState:
		var snap protocol.GameStateSnapshot
		if err = msg.Bind(&snap); err == nil {
			err = m.Load(snap)
		}
	case protocol.DisconnectUser:
		var d protocol.DisconnectUserData
		if err = msg.Bind(&d); err == nil {
			m.dropPlayer(d.PlayerID)
		}
	case protocol.MoveCharacterEvt:
		var mv protocol.MoveCharacter
		if err = msg.Bind(&mv); err == nil {
			m.move(mv)
		}
	case protocol.StopCharacterEvt:
		var st protocol.StopCharacter
		if err = msg.Bind(&st); err == nil {
			m.stop(st)
		}
	case protocol.AdminPaintEvt:
		var p protocol.AdminPaint
		if err = msg.Bind(&p); err == nil {
			m.paint(p)
		}
	case protocol.DespawnCharacterEvt:
		var d protocol.DespawnCharacter
		if err = msg.Bind(&d); err == nil {
			m.despawn(d.CharacterID)
		}
	case protocol.ChangeImageEvt:
		var ci protocol.ChangeImage
		if err = msg.Bind(&ci); err == nil {
			m.changeImage(ci)
		}
	case protocol.Freeze:
		m.receiveFreeze()
	default:
		m.log.WithField("event", msg.Type).Debug("ignoring unknown event")
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply %s: %w", msg.Type, err)
	}
	return nil
}

// AddCharacters registers characters, replacing known ids. The first own
// character becomes the POV if none is set.
func (m *Mirror) AddCharacters(states []protocol.CharacterState) {
	for _, s := range states {
		m.entities.Add(instance.FromState(s))
		if m.pov == "" && m.self.ID != "" && s.PlayerID == m.self.ID {
			m.pov = s.ID
		}
	}
	m.invalidate()
	m.repath = true
}

// Load replaces the map and game state with a server snapshot.
func (m *Mirror) Load(snap protocol.GameStateSnapshot) error {
	g, err := level.NewGrid(snap.MapData.Cols, snap.MapData.Rows, snap.MapData.HexPixels, m.windowHex)
	if err != nil {
		return err
	}
	for r, row := range snap.GameState.Tiles {
		for c, t := range row {
			if t.PaintOverColorHex != "" {
				g.SetPaintOverlay(r, c, t.PaintOverColorHex)
			}
			if t.Explored {
				g.MarkExplored(r, c)
			}
		}
	}
	m.grid = g
	m.field = vision.NewField(g)
	m.self = snap.PlayerData
	m.canMove = true
	m.vignette = false
	if snap.GameState.FreezeCharacterMovement {
		m.receiveFreeze()
	}
	if m.pov == "" {
		if own := m.Own(); len(own) > 0 {
			m.pov = own[0].ID
		}
	}
	m.repath = true
	m.log.WithFields(logrus.Fields{"rows": g.Rows(), "cols": g.Cols(), "admin": m.self.Admin}).Debug("map loaded")
	return nil
}

func (m *Mirror) dropPlayer(playerID string) {
	for _, id := range m.entities.RemoveOwnedBy(playerID) {
		delete(m.stepped, id)
		if id == m.pov {
			m.pov = ""
		}
	}
	m.invalidate()
}

func (m *Mirror) move(mv protocol.MoveCharacter) {
	c, ok := m.entities.Get(mv.ID)
	if !ok {
		return
	}
	c.Path = append([]protocol.Waypoint(nil), mv.Path...)
}

func (m *Mirror) stop(st protocol.StopCharacter) {
	c, ok := m.entities.Get(st.ID)
	if !ok {
		return
	}
	c.StopAfterNextStep()
}

func (m *Mirror) paint(p protocol.AdminPaint) {
	if m.grid == nil || !m.grid.SetPaintOverlay(p.Row, p.Col, p.ColorHex) {
		return
	}
	m.field.MarkDirty()
	m.repath = true
}

func (m *Mirror) despawn(id string) {
	if _, ok := m.entities.Remove(id); !ok {
		return
	}
	delete(m.stepped, id)
	if id == m.pov {
		m.pov = ""
		if own := m.Own(); len(own) > 0 {
			m.pov = own[0].ID
		}
		m.repath = true
	}
	m.invalidate()
}

func (m *Mirror) changeImage(ci protocol.ChangeImage) {
	c, ok := m.entities.Get(ci.CharacterID)
	if !ok {
		return
	}
	c.ImageName = ci.Name
	c.ImageFile = ci.File
}

// receiveFreeze toggles the freeze overlay. Admins keep moving. Own
// characters stop after their current step and report where they halt.
func (m *Mirror) receiveFreeze() {
	m.canMove = !m.canMove || m.self.Admin
	m.vignette = !m.vignette
	for _, c := range m.Own() {
		m.halt(c)
	}
}

// halt stops c after its next waypoint and reports the stop to the server.
func (m *Mirror) halt(c *instance.Character) bool {
	next, ok := c.StopAfterNextStep()
	if !ok {
		return false
	}
	row, col := next.TileRow, next.TileCol
	m.queue(protocol.StopCharacterCmd, protocol.StopCharacter{ID: c.ID, TileRow: &row, TileCol: &col})
	return true
}

// Stop halts the POV character, as the stop key does.
func (m *Mirror) Stop() bool {
	c, ok := m.POV()
	if !ok {
		return false
	}
	return m.halt(c)
}

// Hover records the tile under the pointer. The preview path is rebuilt on
// the next Update.
func (m *Mirror) Hover(row, col int) {
	if m.hovering && row == m.hoverRow && col == m.hoverCol {
		return
	}
	m.hoverRow, m.hoverCol, m.hovering = row, col, true
	m.repath = true
}

// Click sends the POV character to (row, col). Admins may route through
// unexplored tiles.
func (m *Mirror) Click(row, col int) ([]protocol.Waypoint, error) {
	if m.grid == nil {
		return nil, ErrNotLoaded
	}
	c, ok := m.POV()
	if !ok {
		return nil, ErrNoPOV
	}
	if !m.canMove {
		return nil, ErrFrozen
	}
	path, err := m.findPath(c, row, col)
	if err != nil {
		return nil, err
	}
	c.Path = append([]protocol.Waypoint(nil), path...)
	m.queue(protocol.MoveCharacterCmd, protocol.MoveCharacter{ID: c.ID, Path: path})
	return path, nil
}

func (m *Mirror) findPath(c *instance.Character, row, col int) ([]protocol.Waypoint, error) {
	nodes, err := pathfinding.FindPath(m.grid, c.Row, c.Col, row, col, m.self.Admin)
	if err != nil {
		return nil, err
	}
	path := make([]protocol.Waypoint, 0, len(nodes))
	for _, n := range nodes {
		path = append(path, protocol.Waypoint{TileRow: n.Row, TileCol: n.Col})
	}
	return path, nil
}

// Update advances the mirror by deltaMs: it relights the fog if needed,
// steps every moving character and refreshes the hover path.
func (m *Mirror) Update(deltaMs float64) {
	if m.grid == nil {
		return
	}
	if m.field.Dirty() {
		m.relight()
	}
	for _, c := range m.entities.All() {
		if c.Advance(deltaMs) {
			m.stepped[c.ID] = true
			m.field.MarkDirty()
			if c.ID == m.pov {
				m.repath = true
			}
		}
	}
	if m.repath {
		m.repath = false
		m.hoverPath = nil
		if c, ok := m.POV(); ok && m.hovering {
			if path, err := m.findPath(c, m.hoverRow, m.hoverCol); err == nil {
				m.hoverPath = path
			}
		}
	}
}

// relight recomputes brightness from every vision-sharing character and
// reports explored patches around own characters that are on the move.
func (m *Mirror) relight() {
	var sources []vision.Source
	for _, c := range m.entities.All() {
		if c.ShareVision && m.grid.InBounds(c.Row, c.Col) {
			sources = append(sources, vision.NewSource(c.Row, c.Col))
		}
	}
	m.field.Recompute(sources)

	for _, c := range m.Own() {
		if !c.ShareVision || !(c.Moving() || m.stepped[c.ID]) {
			continue
		}
		if p, ok := vision.ExploredPatch(m.grid, c.Row, c.Col, ExploredRadius); ok {
			m.queue(protocol.ExploredAreaCmd, protocol.ExploredArea{
				TopLeft: protocol.TilePosition{Row: p.TopRow, Col: p.LeftCol},
				Area:    p.Area,
			})
		}
	}
	clear(m.stepped)
}
