// Package instance holds the authoritative world: sessions, characters and
// the shared game state. World is not safe for concurrent use; the server
// runs every call on a single goroutine.
package instance

import (
	"errors"
	"regexp"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"darkest-dnd-server/config"
	"darkest-dnd-server/level"
	"darkest-dnd-server/logger"
	"darkest-dnd-server/protocol"
)

var (
	ErrUnknownSession = errors.New("unknown session")
	ErrSessionActive  = errors.New("session still has open transports")
)

var imageMIME = regexp.MustCompile(`^image/\w+`)

// Options configures admission and spawning.
type Options struct {
	AdminAddress string         // Network identity granted admin on first contact
	StrictAdmin  bool           // Re-check admin for paint and freeze
	Enemies      []config.Spawn // Characters handed to the admin
	Heroes       []config.Spawn // Round-robin spawn list for players
	NewID        func() string  // Id generator, uuid by default
	Log          *logrus.Entry
}

// Stats is a point-in-time summary of the world.
type Stats struct {
	Sessions       int  `json:"sessions"`
	ActiveSessions int  `json:"active_sessions"`
	Transports     int  `json:"transports"`
	Characters     int  `json:"characters"`
	Frozen         bool `json:"frozen"`
	Rows           int  `json:"rows"`
	Cols           int  `json:"cols"`
	ExploredTiles  int  `json:"explored_tiles"`
}

// SessionInfo is the operator view of one session.
type SessionInfo struct {
	ID         string                    `json:"id"`
	Address    string                    `json:"address"`
	Admin      bool                      `json:"admin"`
	Transports int                       `json:"transports"`
	Characters []protocol.CharacterState `json:"characters"`
}

// World applies session commands and returns the deliveries that publish
// their effects. Every mutation is applied before its events are built.
type World struct {
	grid       *level.Grid
	state      *GameState
	sessions   *SessionRegistry
	entities   *EntityRegistry
	transports map[string]string // transport id -> session id
	heroIdx    int
	opts       Options
	log        *logrus.Entry
}

func NewWorld(grid *level.Grid, opts Options) *World {
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.New().String() }
	}
	log := opts.Log
	if log == nil {
		log = logger.Component("world")
	}
	return &World{
		grid:       grid,
		state:      NewGameState(grid.Rows(), grid.Cols()),
		sessions:   NewSessionRegistry(),
		entities:   NewEntityRegistry(),
		transports: make(map[string]string),
		opts:       opts,
		log:        log,
	}
}

func (w *World) Grid() *level.Grid         { return w.grid }
func (w *World) State() *GameState         { return w.state }
func (w *World) Entities() *EntityRegistry { return w.entities }

// SessionOf returns the session a transport is attached to.
func (w *World) SessionOf(transport string) (*Session, bool) {
	id, ok := w.transports[transport]
	if !ok {
		return nil, false
	}
	return w.sessions.ByID(id)
}

// Session looks a session up by id.
func (w *World) Session(id string) (*Session, bool) { return w.sessions.ByID(id) }

// Connect attaches a transport to the session of address, admitting a new
// session on first contact. grantAdmin also admits a new session as admin.
func (w *World) Connect(transport, address string, grantAdmin bool) (*Session, []protocol.Delivery) {
	s, known := w.sessions.ByAddress(address)
	if !known {
		s = newSession(w.opts.NewID(), address, address == w.opts.AdminAddress || grantAdmin)
		w.sessions.add(s)
		w.spawnInitial(s)
		w.log.WithFields(logrus.Fields{"session": s.ID, "address": address, "admin": s.Admin}).Info("session admitted")
	} else {
		w.log.WithFields(logrus.Fields{"session": s.ID, "address": address}).Info("session reconnected")
	}

	if prev, ok := w.transports[transport]; ok && prev != s.ID {
		w.detach(transport)
	}
	s.AddTransport(transport)
	w.transports[transport] = s.ID

	var out []protocol.Delivery
	if s.TransportCount() == 1 {
		out = append(out, protocol.Relay(transport, protocol.InitializeCharacters, States(w.entities.OwnedBy(s.ID))))
	}
	for _, other := range w.sessions.All() {
		if !other.Active() {
			continue
		}
		out = append(out, protocol.Direct(transport, protocol.InitializeCharacters, States(w.entities.OwnedBy(other.ID))))
	}
	out = append(out, protocol.Direct(transport, protocol.InitializeGameState, w.snapshotFor(s)))
	return s, out
}

func (w *World) spawnInitial(s *Session) {
	if s.Admin {
		for _, e := range w.opts.Enemies {
			w.spawn(s, Enemy, e.ImageName, e.TileRow, e.TileCol, false)
		}
		return
	}
	if len(w.opts.Heroes) == 0 {
		return
	}
	h := w.opts.Heroes[w.heroIdx]
	w.heroIdx = (w.heroIdx + 1) % len(w.opts.Heroes)
	w.spawn(s, Hero, h.ImageName, h.TileRow, h.TileCol, true)
}

func (w *World) spawn(s *Session, kind Kind, image string, row, col int, share bool) *Character {
	c := &Character{
		ID:           w.opts.NewID(),
		Owner:        s.ID,
		Kind:         kind,
		Row:          row,
		Col:          col,
		ShareVision:  share,
		AdminSpawned: s.Admin,
		ImageName:    image,
	}
	c.SnapToTile()
	w.entities.Add(c)
	s.Characters = append(s.Characters, c.ID)
	return c
}

func (w *World) snapshotFor(s *Session) protocol.GameStateSnapshot {
	return protocol.GameStateSnapshot{
		PlayerData: protocol.PlayerData{ID: s.ID, Admin: s.Admin},
		MapData: protocol.MapData{
			HexPixels: w.grid.Pixels(),
			Rows:      w.grid.Rows(),
			Cols:      w.grid.Cols(),
		},
		GameState: w.state.Snapshot(),
	}
}

// detach removes a transport and reports the session it left, if any.
func (w *World) detach(transport string) *Session {
	id, ok := w.transports[transport]
	if !ok {
		return nil
	}
	delete(w.transports, transport)
	s, ok := w.sessions.ByID(id)
	if !ok {
		return nil
	}
	s.RemoveTransport(transport)
	return s
}

// Disconnect detaches a transport. When its session has no transports
// left, peers are told to drop its characters; the session is retained.
func (w *World) Disconnect(transport string) []protocol.Delivery {
	s := w.detach(transport)
	if s == nil || s.Active() {
		return nil
	}
	w.log.WithField("session", s.ID).Info("session dormant")
	return []protocol.Delivery{
		protocol.Relay(transport, protocol.DisconnectUser, protocol.DisconnectUserData{PlayerID: s.ID}),
	}
}

// owned resolves the calling session and one of its characters.
func (w *World) owned(transport, characterID string) (*Session, *Character, bool) {
	s, ok := w.SessionOf(transport)
	if !ok {
		return nil, nil, false
	}
	c, ok := w.entities.Get(characterID)
	if !ok || c.Owner != s.ID {
		return s, nil, false
	}
	return s, c, true
}

func (w *World) drop(transport, cmd, reason string) []protocol.Delivery {
	w.log.WithFields(logrus.Fields{"transport": transport, "command": cmd}).Debugf("dropped: %s", reason)
	return nil
}

// Move stores a path and moves the character to its head.
func (w *World) Move(transport string, m protocol.MoveCharacter) []protocol.Delivery {
	if len(m.Path) == 0 {
		return w.drop(transport, protocol.MoveCharacterCmd, "empty path")
	}
	_, c, ok := w.owned(transport, m.ID)
	if !ok {
		return w.drop(transport, protocol.MoveCharacterCmd, "character not owned")
	}
	head := m.Path[0]
	if !w.grid.InBounds(head.TileRow, head.TileCol) {
		return w.drop(transport, protocol.MoveCharacterCmd, "path off grid")
	}
	// Peer paths end on the tile the character stands on. The stored path
	// starts at the next cell so a stop lands one step ahead.
	stored := m.Path
	if tail := stored[len(stored)-1]; len(stored) > 1 && tail.TileRow == c.Row && tail.TileCol == c.Col {
		stored = stored[:len(stored)-1]
	}
	c.Path = append([]protocol.Waypoint(nil), stored...)
	c.Row, c.Col = head.TileRow, head.TileCol
	return []protocol.Delivery{
		protocol.Relay(transport, protocol.MoveCharacterEvt, protocol.MoveCharacter{ID: c.ID, Path: append([]protocol.Waypoint(nil), m.Path...)}),
	}
}

// Stop truncates a character's path to the waypoint it is walking to and
// places it on the reported tile, or on that waypoint if none was reported.
func (w *World) Stop(transport string, m protocol.StopCharacter) []protocol.Delivery {
	_, c, ok := w.owned(transport, m.ID)
	if !ok {
		return w.drop(transport, protocol.StopCharacterCmd, "character not owned")
	}
	next, moving := c.StopAfterNextStep()
	switch {
	case m.TileRow != nil && m.TileCol != nil && w.grid.InBounds(*m.TileRow, *m.TileCol):
		c.Row, c.Col = *m.TileRow, *m.TileCol
	case moving:
		c.Row, c.Col = next.TileRow, next.TileCol
	}
	row, col := c.Row, c.Col
	return []protocol.Delivery{
		protocol.Relay(transport, protocol.StopCharacterEvt, protocol.StopCharacter{ID: c.ID, TileRow: &row, TileCol: &col}),
	}
}

func (w *World) adminOnly(transport string) bool {
	if !w.opts.StrictAdmin {
		return true
	}
	s, ok := w.SessionOf(transport)
	return ok && s.Admin
}

// Paint overlays a tile color.
func (w *World) Paint(transport string, p protocol.AdminPaint) []protocol.Delivery {
	if _, ok := w.SessionOf(transport); !ok {
		return w.drop(transport, protocol.AdminPaintCmd, "unknown transport")
	}
	if !w.adminOnly(transport) {
		return w.drop(transport, protocol.AdminPaintCmd, "not admin")
	}
	if !w.state.Paint(p.Row, p.Col, p.ColorHex) {
		return w.drop(transport, protocol.AdminPaintCmd, "tile off grid")
	}
	return []protocol.Delivery{protocol.Relay(transport, protocol.AdminPaintEvt, p)}
}

// Explore merges a peer's explored patch. Nothing is published.
func (w *World) Explore(transport string, a protocol.ExploredArea) int {
	if _, ok := w.SessionOf(transport); !ok {
		return 0
	}
	return w.state.ExploreArea(a.TopLeft.Row, a.TopLeft.Col, a.Area)
}

// ToggleFreeze flips the movement freeze and tells every other transport.
func (w *World) ToggleFreeze(transport string) []protocol.Delivery {
	if _, ok := w.SessionOf(transport); !ok {
		return w.drop(transport, protocol.AdminFreezeAllCmd, "unknown transport")
	}
	if !w.adminOnly(transport) {
		return w.drop(transport, protocol.AdminFreezeAllCmd, "not admin")
	}
	frozen := w.state.ToggleFreeze()
	w.log.WithField("frozen", frozen).Info("movement freeze toggled")
	return []protocol.Delivery{protocol.Relay(transport, protocol.Freeze, protocol.FreezeData{Frozen: frozen})}
}

// SpawnMinion adds a character to the caller. Players are capped at
// MaxPlayerCharacters and spawn on their first character's tile; admins
// choose the tile. Everyone is told, including the caller, who learns the
// new id that way.
func (w *World) SpawnMinion(transport string, m protocol.SpawnMinion) []protocol.Delivery {
	s, ok := w.SessionOf(transport)
	if !ok {
		return w.drop(transport, protocol.SpawnMinionCmd, "unknown transport")
	}
	row, col := m.TileRow, m.TileCol
	if !s.Admin {
		if len(s.Characters) >= config.MaxPlayerCharacters {
			return w.drop(transport, protocol.SpawnMinionCmd, "character cap reached")
		}
		if len(s.Characters) == 0 {
			return w.drop(transport, protocol.SpawnMinionCmd, "no anchor character")
		}
		first, _ := w.entities.Get(s.Characters[0])
		row, col = first.Row, first.Col
	}
	if !w.grid.InBounds(row, col) {
		return w.drop(transport, protocol.SpawnMinionCmd, "tile off grid")
	}
	c := w.spawn(s, Minion, m.ImageName, row, col, !s.Admin)
	return []protocol.Delivery{
		protocol.Broadcast(protocol.InitializeCharacters, []protocol.CharacterState{c.State()}),
	}
}

// Despawn removes one of the caller's characters. Players keep their last
// one. Unknown ids change nothing.
func (w *World) Despawn(transport string, d protocol.DespawnCharacter) []protocol.Delivery {
	s, ok := w.SessionOf(transport)
	if !ok {
		return w.drop(transport, protocol.DespawnCharacterCmd, "unknown transport")
	}
	if !s.Admin && len(s.Characters) == 1 {
		return w.drop(transport, protocol.DespawnCharacterCmd, "last character")
	}
	if !s.owns(d.CharacterID) {
		return w.drop(transport, protocol.DespawnCharacterCmd, "character not owned")
	}
	w.entities.Remove(d.CharacterID)
	s.dropCharacter(d.CharacterID)
	return []protocol.Delivery{protocol.Broadcast(protocol.DespawnCharacterEvt, d)}
}

// ChangeImage replaces a character's token image.
func (w *World) ChangeImage(transport string, m protocol.ChangeImage) []protocol.Delivery {
	if !imageMIME.MatchString(m.FileType) {
		return w.drop(transport, protocol.ChangeImageCmd, "not an image type")
	}
	_, c, ok := w.owned(transport, m.CharacterID)
	if !ok {
		return w.drop(transport, protocol.ChangeImageCmd, "character not owned")
	}
	c.ImageName = m.Name
	c.ImageFile = m.File
	return []protocol.Delivery{protocol.Relay(transport, protocol.ChangeImageEvt, m)}
}

// Forget deletes a dormant session and despawns its characters for every
// peer. A later connection from the same address is admitted afresh.
func (w *World) Forget(sessionID string) ([]protocol.Delivery, error) {
	s, ok := w.sessions.ByID(sessionID)
	if !ok {
		return nil, ErrUnknownSession
	}
	if s.Active() {
		return nil, ErrSessionActive
	}
	var out []protocol.Delivery
	for _, id := range w.entities.RemoveOwnedBy(s.ID) {
		out = append(out, protocol.Broadcast(protocol.DespawnCharacterEvt, protocol.DespawnCharacter{CharacterID: id}))
	}
	w.sessions.remove(s.ID)
	w.log.WithField("session", s.ID).Info("session forgotten")
	return out, nil
}

// Sessions lists every session in admission order.
func (w *World) Sessions() []SessionInfo {
	all := w.sessions.All()
	out := make([]SessionInfo, 0, len(all))
	for _, s := range all {
		out = append(out, SessionInfo{
			ID:         s.ID,
			Address:    s.Address,
			Admin:      s.Admin,
			Transports: s.TransportCount(),
			Characters: States(w.entities.OwnedBy(s.ID)),
		})
	}
	return out
}

func (w *World) Stats() Stats {
	st := Stats{
		Sessions:      w.sessions.Len(),
		Transports:    len(w.transports),
		Characters:    w.entities.Len(),
		Frozen:        w.state.Frozen(),
		Rows:          w.grid.Rows(),
		Cols:          w.grid.Cols(),
		ExploredTiles: w.state.ExploredCount(),
	}
	for _, s := range w.sessions.All() {
		if s.Active() {
			st.ActiveSessions++
		}
	}
	return st
}
