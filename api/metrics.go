package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"darkest-dnd-server/instance"
	"darkest-dnd-server/protocol"
	"darkest-dnd-server/server"
)

// HealthStatus represents the overall health of the system
type HealthStatus string

const (
	HealthHealthy     HealthStatus = "healthy"
	HealthWarning     HealthStatus = "warning"
	HealthDown        HealthStatus = "down"
	HealthMaintenance HealthStatus = "maintenance"
)

// WebSocketStatus represents the state of the WebSocket server
type WebSocketStatus string

const (
	WebSocketRunning WebSocketStatus = "running"
	WebSocketStopped WebSocketStatus = "stopped"
)

// WebSocketServerMetrics holds hub transport counters
type WebSocketServerMetrics struct {
	Status            WebSocketStatus `json:"status"`
	ActiveConnections int             `json:"active_connections"`
	UptimeSec         int64           `json:"uptime_sec"`
	server.HubStats
}

// MetricsResponse is the complete metrics response structure
type MetricsResponse struct {
	Timestamp         time.Time              `json:"timestamp"`
	Health            HealthStatus           `json:"health"`
	HealthDescription string                 `json:"health_description"`
	World             instance.Stats         `json:"world"`
	WebSocket         WebSocketServerMetrics `json:"websocket"`
	ServerUptime      int64                  `json:"server_uptime_sec"`
}

// MetricsHandler reports hub and world metrics
type MetricsHandler struct {
	hub             *server.Hub
	serverStartTime time.Time

	// Send queue drops since start above which health is a warning
	slowClientWarning uint64
}

func NewMetricsHandler(hub *server.Hub) *MetricsHandler {
	return &MetricsHandler{
		hub:               hub,
		serverStartTime:   time.Now(),
		slowClientWarning: 10,
	}
}

// Routes registers metrics routes
func (h *MetricsHandler) Routes(r chi.Router) {
	r.Get("/metrics", h.GetMetrics)
	r.Get("/metrics/health", h.GetHealth)
	r.Get("/metrics/world", h.GetWorld)
	r.Get("/metrics/websocket", h.GetWebSocket)
}

// GetMetrics returns complete metrics
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := h.collectMetrics(r)
	writeJSON(w, http.StatusOK, metrics)
}

// GetHealth returns only health status
func (h *MetricsHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	metrics := h.collectMetrics(r)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"timestamp":   metrics.Timestamp,
		"health":      metrics.Health,
		"description": metrics.HealthDescription,
		"uptime_sec":  metrics.ServerUptime,
	})
}

// GetWorld returns only world metrics
func (h *MetricsHandler) GetWorld(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.collectMetrics(r).World)
}

// GetWebSocket returns only WebSocket metrics
func (h *MetricsHandler) GetWebSocket(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"timestamp": time.Now(),
		"websocket": h.webSocketMetrics(),
	})
}

// collectMetrics gathers all metrics. World stats are read on the hub
// goroutine and handed back over a channel; a stopped hub or a cancelled
// request reports zero values.
func (h *MetricsHandler) collectMetrics(r *http.Request) *MetricsResponse {
	var stats instance.Stats
	got := make(chan instance.Stats, 1)
	err := h.hub.Do(r.Context(), func(w *instance.World) []protocol.Delivery {
		got <- w.Stats()
		return nil
	})
	if err == nil {
		stats = <-got
	}

	ws := h.webSocketMetrics()
	health, desc := h.determineHealth(stats, ws)
	return &MetricsResponse{
		Timestamp:         time.Now(),
		Health:            health,
		HealthDescription: desc,
		World:             stats,
		WebSocket:         ws,
		ServerUptime:      int64(time.Since(h.serverStartTime).Seconds()),
	}
}

func (h *MetricsHandler) webSocketMetrics() WebSocketServerMetrics {
	hs := h.hub.Stats()
	ws := WebSocketServerMetrics{
		Status:            WebSocketStopped,
		ActiveConnections: hs.Clients,
		HubStats:          hs,
	}
	if hs.Running {
		ws.Status = WebSocketRunning
		ws.UptimeSec = int64(time.Since(hs.StartedAt).Seconds())
	}
	return ws
}

// determineHealth determines overall system health based on metrics
func (h *MetricsHandler) determineHealth(stats instance.Stats, ws WebSocketServerMetrics) (HealthStatus, string) {
	if ws.Status != WebSocketRunning {
		return HealthDown, "Hub is not running - no connections accepted"
	}
	if ws.SlowDropped >= h.slowClientWarning {
		return HealthWarning, fmt.Sprintf("%d slow clients dropped since start - check peer bandwidth", ws.SlowDropped)
	}
	if stats.Frozen {
		return HealthMaintenance, "Character movement is frozen by the game master"
	}
	if ws.ActiveConnections > 0 {
		connStr := "connection"
		if ws.ActiveConnections > 1 {
			connStr = "connections"
		}
		return HealthHealthy, fmt.Sprintf("All systems operational - %d active %s", ws.ActiveConnections, connStr)
	}
	return HealthHealthy, "Server ready and operational - awaiting connections"
}
