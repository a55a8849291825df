package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/proto"

	"darkest-dnd-server/auth"
	"darkest-dnd-server/config"
	"darkest-dnd-server/instance"
	"darkest-dnd-server/level"
	"darkest-dnd-server/logger"
	"darkest-dnd-server/protocol"
	"darkest-dnd-server/server"
)

type fixture struct {
	hub    *server.Hub
	srv    *httptest.Server
	cancel context.CancelFunc
	done   chan error
}

func newFixture(t *testing.T, opts Options) *fixture {
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
	world := instance.NewWorld(g, instance.Options{
		Heroes: []config.Spawn{{ImageName: "jester", TileRow: 1, TileCol: 1}},
	})
	hub := server.NewHub(world, server.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()
	waitFor(t, hub.Running)

	f := &fixture{hub: hub, srv: httptest.NewServer(NewRouter(hub, opts)), cancel: cancel, done: done}
	t.Cleanup(func() {
		f.stop()
		f.srv.Close()
	})
	return f
}

func (f *fixture) stop() {
	if f.cancel == nil {
		return
	}
	f.cancel()
	<-f.done
	f.cancel = nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (f *fixture) request(t *testing.T, method, path, bearer string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

// join opens a peer transport and waits until the hub admits it.
func (f *fixture) join(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for join: %v", err)
		}
		if strings.Contains(string(frame), protocol.InitializeGameState) {
			return conn
		}
	}
}

func (f *fixture) sessions(t *testing.T) []instance.SessionInfo {
	t.Helper()
	var out []instance.SessionInfo
	decode(t, f.request(t, http.MethodGet, "/v1/sessions", ""), &out)
	return out
}

func TestHealthFollowsHub(t *testing.T) {
	f := newFixture(t, Options{})
	if resp := f.request(t, http.MethodGet, "/v1/health", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("health = %d, want 200", resp.StatusCode)
	}
	f.stop()
	if resp := f.request(t, http.MethodGet, "/v1/health", ""); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("health after stop = %d, want 503", resp.StatusCode)
	}
}

func TestMetricsReportWorldAndTransports(t *testing.T) {
	f := newFixture(t, Options{})

	var idle MetricsResponse
	decode(t, f.request(t, http.MethodGet, "/v1/metrics", ""), &idle)
	if idle.Health != HealthHealthy || !strings.Contains(idle.HealthDescription, "awaiting") {
		t.Fatalf("idle health = %s %q", idle.Health, idle.HealthDescription)
	}
	if idle.World.Rows != 6 || idle.World.Cols != 6 || idle.World.Sessions != 0 {
		t.Fatalf("idle world = %+v", idle.World)
	}

	f.join(t)
	var busy MetricsResponse
	decode(t, f.request(t, http.MethodGet, "/v1/metrics", ""), &busy)
	if busy.World.Sessions != 1 || busy.World.Transports != 1 || busy.World.Characters != 1 {
		t.Fatalf("world = %+v", busy.World)
	}
	if busy.WebSocket.Status != WebSocketRunning || busy.WebSocket.ActiveConnections != 1 {
		t.Fatalf("websocket = %+v", busy.WebSocket)
	}

	var world instance.Stats
	decode(t, f.request(t, http.MethodGet, "/v1/metrics/world", ""), &world)
	if world.ActiveSessions != 1 {
		t.Fatalf("active sessions = %d", world.ActiveSessions)
	}
}

func TestMetricsWithoutHubReportZeroWorld(t *testing.T) {
	f := newFixture(t, Options{})
	mh := NewMetricsHandler(f.hub)

	// Cancelled requests race the hub for the stats; run under -race.
	for i := 0; i < 50; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req := httptest.NewRequest(http.MethodGet, "/v1/metrics", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		mh.GetMetrics(rec, req)
		var got MetricsResponse
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.World.Rows != 0 && got.World.Rows != 6 {
			t.Fatalf("torn world stats %+v", got.World)
		}
	}

	f.stop()
	var down MetricsResponse
	decode(t, f.request(t, http.MethodGet, "/v1/metrics", ""), &down)
	if down.Health != HealthDown || down.World != (instance.Stats{}) {
		t.Fatalf("stopped hub = %s %+v", down.Health, down.World)
	}
}

func TestStateSnapshot(t *testing.T) {
	f := newFixture(t, Options{})
	var data protocol.GameStateData
	decode(t, f.request(t, http.MethodGet, "/v1/state", ""), &data)
	if len(data.Tiles) != 6 || len(data.Tiles[0]) != 6 || data.FreezeCharacterMovement {
		t.Fatalf("unexpected state %+v", data)
	}
}

func TestForgetSession(t *testing.T) {
	f := newFixture(t, Options{})
	conn := f.join(t)

	list := f.sessions(t)
	if len(list) != 1 || list[0].Transports != 1 || len(list[0].Characters) != 1 {
		t.Fatalf("sessions = %+v", list)
	}
	id := list[0].ID

	if resp := f.request(t, http.MethodDelete, "/v1/sessions/"+id, ""); resp.StatusCode != http.StatusConflict {
		t.Fatalf("forget active = %d, want 409", resp.StatusCode)
	}

	conn.Close()
	waitFor(t, func() bool {
		s := f.sessions(t)
		return len(s) == 1 && s[0].Transports == 0
	})

	if resp := f.request(t, http.MethodDelete, "/v1/sessions/"+id, ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("forget dormant = %d, want 204", resp.StatusCode)
	}
	if list := f.sessions(t); len(list) != 0 {
		t.Fatalf("sessions after forget = %+v", list)
	}
	if resp := f.request(t, http.MethodDelete, "/v1/sessions/"+id, ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("forget unknown = %d, want 404", resp.StatusCode)
	}
}

func TestForgetRequiresBearerWhenSecretSet(t *testing.T) {
	const secret = "s3cret"
	f := newFixture(t, Options{AdminTokenSecret: secret})

	if resp := f.request(t, http.MethodDelete, "/v1/sessions/nope", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token = %d, want 401", resp.StatusCode)
	}
	bad, err := auth.Issue("other", "ops", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if resp := f.request(t, http.MethodDelete, "/v1/sessions/nope", bad); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("bad token = %d, want 403", resp.StatusCode)
	}
	good, err := auth.Issue(secret, "ops", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if resp := f.request(t, http.MethodDelete, "/v1/sessions/nope", good); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("good token = %d, want 404", resp.StatusCode)
	}
	// Reads stay open.
	if resp := f.request(t, http.MethodGet, "/v1/sessions", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("list = %d, want 200", resp.StatusCode)
	}
}

func TestGRPCHealthFollowsHub(t *testing.T) {
	f := newFixture(t, Options{})
	gs, hs := NewGRPCServer()

	lis := bufconn.Listen(1 << 20)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	watched := make(chan struct{})
	go func() {
		WatchHealth(ctx, f.hub, hs, 10*time.Millisecond)
		close(watched)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	check := func() *healthpb.HealthCheckResponse {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: HealthService})
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		return resp
	}
	serving := &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}
	waitFor(t, func() bool { return proto.Equal(check(), serving) })

	f.stop()
	notServing := &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}
	waitFor(t, func() bool { return proto.Equal(check(), notServing) })

	cancel()
	<-watched
	if got := check(); !proto.Equal(got, notServing) {
		t.Fatalf("after shutdown = %v", got)
	}
	if _, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "missing"}); err == nil {
		t.Fatalf("unknown service must fail")
	}
}
