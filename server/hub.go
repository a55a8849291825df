// Package server runs the websocket transport and the hub goroutine that
// owns the world.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"

	"darkest-dnd-server/instance"
	"darkest-dnd-server/logger"
	"darkest-dnd-server/protocol"
)

// ErrHubStopped is returned by Do once Run has returned.
var ErrHubStopped = errors.New("hub stopped")

// Options configures a Hub.
type Options struct {
	// AdminToken reports whether a connection token grants admin to a new
	// session. Nil disables tokens.
	AdminToken func(token string) bool
	Log        *logrus.Entry
}

// HubStats counts transport traffic since start.
type HubStats struct {
	Running      bool      `json:"running"`
	StartedAt    time.Time `json:"started_at"`
	Clients      int       `json:"clients"`
	Connections  uint64    `json:"connections_total"`
	FramesIn     uint64    `json:"frames_in"`
	FramesOut    uint64    `json:"frames_out"`
	SlowDropped  uint64    `json:"slow_clients_dropped"`
	CommandsSeen uint64    `json:"commands"`
}

// Hub serializes every world access on one goroutine. Connections,
// commands and operator queries are posted to its inbox and run to
// completion in arrival order.
type Hub struct {
	world    *instance.World
	inbox    chan func()
	stopped  chan struct{}
	clients  map[string]*Client // hub goroutine only
	upgrader websocket.Upgrader
	opts     Options
	log      *logrus.Entry

	mu    deadlock.Mutex // guards stats
	stats HubStats
}

func NewHub(world *instance.World, opts Options) *Hub {
	log := opts.Log
	if log == nil {
		log = logger.Component("hub")
	}
	return &Hub{
		world:   world,
		inbox:   make(chan func(), 256),
		stopped: make(chan struct{}),
		clients: make(map[string]*Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		opts: opts,
		log:  log,
	}
}

// Run processes the inbox until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) error {
	h.mu.Lock()
	h.stats.Running = true
	h.stats.StartedAt = time.Now()
	h.mu.Unlock()
	h.log.Info("hub running")

	defer func() {
		close(h.stopped)
		for id := range h.clients {
			h.removeClient(id, false)
		}
		h.mu.Lock()
		h.stats.Running = false
		h.stats.Clients = 0
		h.mu.Unlock()
		h.log.Info("hub stopped")
	}()

	for {
		select {
		case fn := <-h.inbox:
			fn()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// post queues fn for the hub goroutine. It reports false after shutdown.
func (h *Hub) post(fn func()) bool {
	select {
	case h.inbox <- fn:
		return true
	case <-h.stopped:
		return false
	}
}

// Do runs fn on the hub goroutine, publishes the deliveries it returns and
// waits for it to finish.
func (h *Hub) Do(ctx context.Context, fn func(w *instance.World) []protocol.Delivery) error {
	done := make(chan struct{})
	if !h.post(func() {
		defer close(done)
		h.publish(fn(h.world))
	}) {
		return ErrHubStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.stopped:
		return ErrHubStopped
	}
}

// Running reports whether Run is processing the inbox.
func (h *Hub) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats.Running
}

func (h *Hub) Stats() HubStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

func (h *Hub) countIn() {
	h.mu.Lock()
	h.stats.FramesIn++
	h.mu.Unlock()
}

// HandleConnections upgrades a request to a websocket transport. The codec
// is chosen with ?codec=json|msgpack and an admin token may be passed as
// ?token=...
func (h *Hub) HandleConnections(w http.ResponseWriter, r *http.Request) {
	codec, err := protocol.CodecByName(r.URL.Query().Get("codec"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	grantAdmin := false
	if token := r.URL.Query().Get("token"); token != "" && h.opts.AdminToken != nil {
		grantAdmin = h.opts.AdminToken(token)
	}
	addr := remoteHost(r.RemoteAddr)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := newClient(uuid.New().String(), addr, conn, codec, h.log)
	if !h.post(func() { h.register(client, grantAdmin) }) {
		conn.Close()
		return
	}
	go client.WritePump()
	go client.ReadPump(h)
}

// remoteHost strips the port from a remote address. Addresses rewritten by
// a proxy-aware middleware may carry no port.
func remoteHost(remote string) string {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}

func (h *Hub) register(c *Client, grantAdmin bool) {
	h.clients[c.id] = c
	s, out := h.world.Connect(c.id, c.addr, grantAdmin)
	c.log = c.log.WithField("session", s.ID)
	c.log.WithField("address", c.addr).Info("transport connected")

	h.mu.Lock()
	h.stats.Clients = len(h.clients)
	h.stats.Connections++
	h.mu.Unlock()

	h.publish(out)
}

func (h *Hub) unregister(c *Client) {
	h.post(func() { h.removeClient(c.id, true) })
}

// removeClient closes a transport's queue and, if announce is set, tells
// the world it left.
func (h *Hub) removeClient(id string, announce bool) {
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	close(c.send)

	h.mu.Lock()
	h.stats.Clients = len(h.clients)
	h.mu.Unlock()

	c.log.Info("transport closed")
	if announce {
		h.publish(h.world.Disconnect(id))
	}
}

// publish fans deliveries out to their transports. Each event is encoded
// once per codec. Clients whose queue is full are removed.
func (h *Hub) publish(ds []protocol.Delivery) {
	var slow []string
	for _, d := range ds {
		frames := make(map[string][]byte, 2)
		for id, c := range h.clients {
			if !d.Reaches(id) {
				continue
			}
			frame, ok := frames[c.codec.Name()]
			if !ok {
				var err error
				frame, err = c.codec.Encode(d.Event)
				if err != nil {
					h.log.WithError(err).WithField("event", d.Event.Type).Error("encode failed")
					break
				}
				frames[c.codec.Name()] = frame
			}
			select {
			case c.send <- frame:
				h.mu.Lock()
				h.stats.FramesOut++
				h.mu.Unlock()
			default:
				c.log.Warn("send buffer full, dropping client")
				slow = append(slow, id)
			}
		}
	}
	for _, id := range slow {
		if _, ok := h.clients[id]; !ok {
			continue
		}
		h.mu.Lock()
		h.stats.SlowDropped++
		h.mu.Unlock()
		h.removeClient(id, true)
	}
}
