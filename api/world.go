package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"darkest-dnd-server/instance"
	"darkest-dnd-server/protocol"
	"darkest-dnd-server/server"
)

// WorldHandler serves operator views of the shared world.
type WorldHandler struct {
	hub *server.Hub
}

func NewWorldHandler(hub *server.Hub) *WorldHandler {
	return &WorldHandler{hub: hub}
}

// Routes registers world routes. guard wraps the mutating ones.
func (h *WorldHandler) Routes(r chi.Router, guard func(http.Handler) http.Handler) {
	r.Get("/state", h.GetState)
	r.Get("/sessions", h.ListSessions)
	r.With(guard).Delete("/sessions/{id}", h.ForgetSession)
}

// GetState returns the painted and explored tiles plus the freeze flag.
func (h *WorldHandler) GetState(w http.ResponseWriter, r *http.Request) {
	var data protocol.GameStateData
	err := h.hub.Do(r.Context(), func(wd *instance.World) []protocol.Delivery {
		data = wd.State().Snapshot()
		return nil
	})
	if err != nil {
		h.hubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (h *WorldHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	var sessions []instance.SessionInfo
	err := h.hub.Do(r.Context(), func(wd *instance.World) []protocol.Delivery {
		sessions = wd.Sessions()
		return nil
	})
	if err != nil {
		h.hubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// ForgetSession deletes a dormant session and despawns its characters.
func (h *WorldHandler) ForgetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var forgetErr error
	err := h.hub.Do(r.Context(), func(wd *instance.World) []protocol.Delivery {
		out, err := wd.Forget(id)
		forgetErr = err
		return out
	})
	if err != nil {
		h.hubError(w, err)
		return
	}
	switch {
	case errors.Is(forgetErr, instance.ErrUnknownSession):
		errorJSON(w, http.StatusNotFound, "session not found")
	case errors.Is(forgetErr, instance.ErrSessionActive):
		errorJSON(w, http.StatusConflict, "session has open transports")
	case forgetErr != nil:
		errorJSON(w, http.StatusInternalServerError, forgetErr.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *WorldHandler) hubError(w http.ResponseWriter, err error) {
	if errors.Is(err, server.ErrHubStopped) {
		errorJSON(w, http.StatusServiceUnavailable, "hub stopped")
		return
	}
	errorJSON(w, http.StatusServiceUnavailable, err.Error())
}
