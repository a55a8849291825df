package peer

import (
	"errors"
	"strings"
	"testing"

	"darkest-dnd-server/config"
	"darkest-dnd-server/instance"
	"darkest-dnd-server/level"
	"darkest-dnd-server/logger"
	"darkest-dnd-server/protocol"
)

const adminAddr = "10.0.0.1"

func newWorld(t *testing.T) *instance.World {
	t.Helper()
	logger.Silence()
	m, err := level.ParseASCII(strings.Repeat("......\n", 6), config.WINDOW_HEX)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	g, err := m.Grid(config.WINDOW_HEX)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	return instance.NewWorld(g, instance.Options{
		AdminAddress: adminAddr,
		Enemies:      []config.Spawn{{ImageName: "cultist", TileRow: 5, TileCol: 5}},
		Heroes:       []config.Spawn{{ImageName: "jester", TileRow: 1, TileCol: 1}},
	})
}

// deliver feeds every delivery that reaches transport into the mirror
// through the JSON codec, the way a websocket peer would see it.
func deliver(t *testing.T, m *Mirror, transport string, ds []protocol.Delivery) {
	t.Helper()
	for _, d := range ds {
		if !d.Reaches(transport) {
			continue
		}
		msg, err := protocol.Loopback(protocol.JSON{}, d.Event)
		if err != nil {
			t.Fatalf("loopback %s: %v", d.Event.Type, err)
		}
		if err := m.Apply(msg); err != nil {
			t.Fatalf("apply %s: %v", d.Event.Type, err)
		}
	}
}

func joined(t *testing.T, w *instance.World, transport, addr string) *Mirror {
	t.Helper()
	m := NewMirror(config.WINDOW_HEX, nil)
	_, out := w.Connect(transport, addr, false)
	deliver(t, m, transport, out)
	if !m.Loaded() {
		t.Fatalf("mirror not loaded after join")
	}
	return m
}

func ofType(evs []protocol.Event, typ string) []protocol.Event {
	var out []protocol.Event
	for _, ev := range evs {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func TestJoinLoadsMapAndPicksPOV(t *testing.T) {
	w := newWorld(t)
	m := joined(t, w, "t1", "192.168.1.2")

	if m.Self().Admin || m.Self().ID == "" {
		t.Fatalf("unexpected self %+v", m.Self())
	}
	if m.Grid().Rows() != 6 || m.Grid().Cols() != 6 {
		t.Fatalf("grid %dx%d", m.Grid().Rows(), m.Grid().Cols())
	}
	pov, ok := m.POV()
	if !ok || pov.ImageName != "jester" || pov.Row != 1 || pov.Col != 1 {
		t.Fatalf("unexpected pov %+v", pov)
	}
	if pov.X != 64 || pov.Y != 64 {
		t.Fatalf("pixel position = %v,%v, want 64,64", pov.X, pov.Y)
	}
}

func TestUpdateLightsFogAroundSharedVision(t *testing.T) {
	w := newWorld(t)
	m := joined(t, w, "t1", "192.168.1.2")

	if m.Grid().ExploredAt(4, 4) {
		t.Fatalf("fresh world must start unexplored")
	}
	m.Update(0)
	if m.Grid().Brightness(1, 1) != level.Radiant {
		t.Fatalf("origin brightness = %v", m.Grid().Brightness(1, 1))
	}
	if !m.Grid().ExploredAt(5, 5) {
		t.Fatalf("flood must reach the far corner")
	}
	// Standing still reports nothing.
	if evs := ofType(m.Drain(), protocol.ExploredAreaCmd); len(evs) != 0 {
		t.Fatalf("idle character reported %d patches", len(evs))
	}
}

func TestClickWalksAndReportsExploredArea(t *testing.T) {
	w := newWorld(t)
	m := joined(t, w, "t1", "192.168.1.2")
	m.Update(0)

	path, err := m.Click(4, 4)
	if err != nil {
		t.Fatalf("click: %v", err)
	}
	if path[0] != (protocol.Waypoint{TileRow: 4, TileCol: 4}) || path[len(path)-1] != (protocol.Waypoint{TileRow: 1, TileCol: 1}) {
		t.Fatalf("path must run goal to start, got %+v", path)
	}
	moves := ofType(m.Drain(), protocol.MoveCharacterCmd)
	if len(moves) != 1 {
		t.Fatalf("expected one move command, got %d", len(moves))
	}
	mv := moves[0].Data.(protocol.MoveCharacter)
	if out := w.Move("t1", mv); len(out) != 1 || out[0].Reaches("t1") {
		t.Fatalf("move must be relayed to others only, got %+v", out)
	}

	var patches int
	for i := 0; i < 2000; i++ {
		m.Update(10)
		patches += len(ofType(m.Drain(), protocol.ExploredAreaCmd))
	}
	pov, _ := m.POV()
	if pov.Moving() || pov.Row != 4 || pov.Col != 4 {
		t.Fatalf("character at %d,%d moving=%v, want 4,4 at rest", pov.Row, pov.Col, pov.Moving())
	}
	if pov.X != 256 || pov.Y != 256 {
		t.Fatalf("pixel position = %v,%v", pov.X, pov.Y)
	}
	if patches == 0 {
		t.Fatalf("moving character must report explored patches")
	}
}

func TestExploredPatchIsAcceptedByWorld(t *testing.T) {
	w := newWorld(t)
	m := joined(t, w, "t1", "192.168.1.2")
	m.Update(0)
	if _, err := m.Click(2, 2); err != nil {
		t.Fatalf("click: %v", err)
	}
	m.Drain()

	merged := 0
	for i := 0; i < 500; i++ {
		m.Update(10)
		for _, ev := range ofType(m.Drain(), protocol.ExploredAreaCmd) {
			merged += w.Explore("t1", ev.Data.(protocol.ExploredArea))
		}
	}
	if merged == 0 || w.State().ExploredCount() != 36 {
		t.Fatalf("merged %d, world explored %d", merged, w.State().ExploredCount())
	}
}

func TestUnexploredGoalNeedsAdmin(t *testing.T) {
	w := newWorld(t)
	m := joined(t, w, "t1", "192.168.1.2")
	// No light yet, so the goal is unexplored.
	if _, err := m.Click(3, 3); err == nil {
		t.Fatalf("player must not path into the unexplored")
	}

	admin := joined(t, w, "t2", adminAddr)
	if !admin.Self().Admin {
		t.Fatalf("admin address must load as admin")
	}
	if _, err := admin.Click(3, 3); err != nil {
		t.Fatalf("admin click: %v", err)
	}
}

func TestFreezeStopsOwnCharacters(t *testing.T) {
	w := newWorld(t)
	m := joined(t, w, "t1", "192.168.1.2")
	m.Update(0)
	if _, err := m.Click(4, 4); err != nil {
		t.Fatalf("click: %v", err)
	}
	m.Drain()
	for i := 0; i < 70; i++ {
		m.Update(10)
	}
	m.Drain()

	admin := "t2"
	w.Connect(admin, adminAddr, false)
	deliver(t, m, "t1", w.ToggleFreeze(admin))

	if m.CanMove() || !m.Vignette() {
		t.Fatalf("player must be frozen, canMove=%v vignette=%v", m.CanMove(), m.Vignette())
	}
	stops := ofType(m.Drain(), protocol.StopCharacterCmd)
	if len(stops) != 1 {
		t.Fatalf("expected one stop report, got %d", len(stops))
	}
	st := stops[0].Data.(protocol.StopCharacter)
	pov, _ := m.POV()
	if st.ID != pov.ID || st.TileRow == nil || len(pov.Path) != 1 || pov.Path[0].TileRow != *st.TileRow {
		t.Fatalf("stop %+v does not match remaining path %+v", st, pov.Path)
	}
	if _, err := m.Click(0, 0); !errors.Is(err, ErrFrozen) {
		t.Fatalf("click while frozen = %v", err)
	}

	deliver(t, m, "t1", w.ToggleFreeze(admin))
	if !m.CanMove() || m.Vignette() {
		t.Fatalf("second freeze must thaw")
	}
}

func TestAdminIgnoresFreeze(t *testing.T) {
	w := newWorld(t)
	m := joined(t, w, "t1", adminAddr)
	w.Connect("p", "192.168.1.2", false)
	deliver(t, m, "t1", w.ToggleFreeze("p"))
	if !m.CanMove() || !m.Vignette() {
		t.Fatalf("admin keeps moving under the vignette, canMove=%v", m.CanMove())
	}
}

func TestRelayedEventsPatchMirror(t *testing.T) {
	w := newWorld(t)
	admin := joined(t, w, "a", adminAddr)
	_, out := w.Connect("p", "192.168.1.2", false)
	deliver(t, admin, "a", out)

	var hero *instance.Character
	for _, c := range admin.Entities().All() {
		if c.ImageName == "jester" {
			hero = c
		}
	}
	if hero == nil {
		t.Fatalf("admin must learn the player's hero")
	}

	deliver(t, admin, "a", w.Paint("p", protocol.AdminPaint{Row: 2, Col: 3, ColorHex: level.Trap.Hex}))
	if admin.Grid().PaintOverlayAt(2, 3) != level.Trap.Hex {
		t.Fatalf("paint not mirrored")
	}

	deliver(t, admin, "a", w.ChangeImage("p", protocol.ChangeImage{
		CharacterID: hero.ID, Name: "wilbur", FileType: "image/png", File: []byte{1, 2},
	}))
	if c, _ := admin.Character(hero.ID); c.ImageName != "wilbur" || len(c.ImageFile) != 2 {
		t.Fatalf("image not mirrored: %+v", c)
	}

	deliver(t, admin, "a", w.Move("p", protocol.MoveCharacter{ID: hero.ID, Path: []protocol.Waypoint{{TileRow: 1, TileCol: 2}, {TileRow: 1, TileCol: 1}}}))
	if c, _ := admin.Character(hero.ID); len(c.Path) != 2 {
		t.Fatalf("path not mirrored: %+v", c.Path)
	}
	row, col := 1, 1
	deliver(t, admin, "a", w.Stop("p", protocol.StopCharacter{ID: hero.ID, TileRow: &row, TileCol: &col}))
	if c, _ := admin.Character(hero.ID); len(c.Path) != 1 {
		t.Fatalf("stop not mirrored: %+v", c.Path)
	}

	deliver(t, admin, "a", w.Disconnect("p"))
	if _, ok := admin.Character(hero.ID); ok {
		t.Fatalf("disconnected player's characters must leave the mirror")
	}

	enemy := admin.Own()[0]
	deliver(t, admin, "a", w.Despawn("a", protocol.DespawnCharacter{CharacterID: enemy.ID}))
	if _, ok := admin.Character(enemy.ID); ok {
		t.Fatalf("despawned character still mirrored")
	}
	if _, ok := admin.POV(); ok {
		t.Fatalf("pov must clear when its character leaves")
	}
}

func TestHoverPathFollowsPOV(t *testing.T) {
	w := newWorld(t)
	m := joined(t, w, "t1", "192.168.1.2")
	m.Hover(3, 3)
	m.Update(0)

	path := m.HoverPath()
	if len(path) == 0 || path[0] != (protocol.Waypoint{TileRow: 3, TileCol: 3}) {
		t.Fatalf("unexpected hover path %+v", path)
	}
	m.Hover(-1, -1)
	m.Update(0)
	if len(m.HoverPath()) != 0 {
		t.Fatalf("off-grid hover must clear the path")
	}
}

func TestApplyRejectsBadPayload(t *testing.T) {
	m := NewMirror(config.WINDOW_HEX, nil)
	msg, err := protocol.JSON{}.Decode([]byte(`{"type":"move-character","data":"nope"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := m.Apply(msg); err == nil {
		t.Fatalf("bad payload must fail")
	}
	msg, err = protocol.JSON{}.Decode([]byte(`{"type":"something-else"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := m.Apply(msg); err != nil {
		t.Fatalf("unknown events are ignored, got %v", err)
	}
}
