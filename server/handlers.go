package server

import (
	"darkest-dnd-server/protocol"
)

// dispatch queues a decoded command for the hub goroutine.
func (h *Hub) dispatch(c *Client, msg protocol.Message) {
	h.post(func() { h.handleClientMessage(c, msg) })
}

// handleClientMessage binds a command payload and applies it to the world.
func (h *Hub) handleClientMessage(c *Client, msg protocol.Message) {
	if _, ok := h.clients[c.id]; !ok {
		return // Transport already removed
	}
	h.mu.Lock()
	h.stats.CommandsSeen++
	h.mu.Unlock()

	w := h.world
	var out []protocol.Delivery
	var err error

	switch msg.Type {
	case protocol.MoveCharacterCmd:
		var m protocol.MoveCharacter
		if err = msg.Bind(&m); err == nil {
			out = w.Move(c.id, m)
		}
	case protocol.StopCharacterCmd:
		var m protocol.StopCharacter
		if err = msg.Bind(&m); err == nil {
			out = w.Stop(c.id, m)
		}
	case protocol.AdminPaintCmd:
		var m protocol.AdminPaint
		if err = msg.Bind(&m); err == nil {
			out = w.Paint(c.id, m)
		}
	case protocol.SpawnMinionCmd:
		var m protocol.SpawnMinion
		if err = msg.Bind(&m); err == nil {
			out = w.SpawnMinion(c.id, m)
		}
	case protocol.DespawnCharacterCmd:
		var m protocol.DespawnCharacter
		if err = msg.Bind(&m); err == nil {
			out = w.Despawn(c.id, m)
		}
	case protocol.ExploredAreaCmd:
		var m protocol.ExploredArea
		if err = msg.Bind(&m); err == nil {
			w.Explore(c.id, m)
		}
	case protocol.ChangeImageCmd:
		var m protocol.ChangeImage
		if err = msg.Bind(&m); err == nil {
			out = w.ChangeImage(c.id, m)
		}
	case protocol.AdminFreezeAllCmd:
		out = w.ToggleFreeze(c.id)
	default:
		c.log.WithField("type", msg.Type).Warn("unknown message type")
		return
	}

	if err != nil {
		c.log.WithError(err).WithField("type", msg.Type).Warn("dropping malformed command")
		return
	}
	h.publish(out)
}
