package server

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"darkest-dnd-server/config"
	"darkest-dnd-server/protocol"
)

// Client is one websocket transport. Its pumps only move frames; every
// decision is taken on the hub goroutine.
type Client struct {
	id    string          // Transport id
	addr  string          // Network identity the session is keyed by
	conn  *websocket.Conn // The raw WebSocket connection
	codec protocol.Codec  // Frame codec negotiated at upgrade
	send  chan []byte     // Outgoing frames, closed by the hub on removal
	done  chan struct{}   // Closed when ReadPump exits
	log   *logrus.Entry
}

func newClient(id, addr string, conn *websocket.Conn, codec protocol.Codec, log *logrus.Entry) *Client {
	return &Client{
		id:    id,
		addr:  addr,
		conn:  conn,
		codec: codec,
		send:  make(chan []byte, config.SEND_BUFFER),
		done:  make(chan struct{}),
		log:   log.WithFields(logrus.Fields{"transport": id, "codec": codec.Name()}),
	}
}

// ID returns the transport id.
func (c *Client) ID() string { return c.id }

// ReadPump decodes inbound frames and hands them to the hub until the
// connection fails, then unregisters the client.
func (c *Client) ReadPump(h *Hub) {
	defer func() {
		h.unregister(c)
		close(c.done)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(config.MAX_MESSAGE_LEN)
	c.conn.SetReadDeadline(time.Now().Add(config.PONG_WAIT))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(config.PONG_WAIT))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("unexpected close")
			} else {
				c.log.WithError(err).Debug("read ended")
			}
			return
		}
		h.countIn()
		msg, err := c.codec.Decode(frame)
		if err != nil {
			c.log.WithError(err).Warn("dropping undecodable frame")
			continue
		}
		h.dispatch(c, msg)
	}
}

// WritePump writes queued frames and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(config.PING_INTERVAL)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	frameType := websocket.TextMessage
	if c.codec.Binary() {
		frameType = websocket.BinaryMessage
	}

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(config.WRITE_WAIT))
			if !ok {
				// The hub removed this client.
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(frameType, frame); err != nil {
				c.log.WithError(err).Warn("write failed")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.WRITE_WAIT))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Debug("ping failed")
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(config.WRITE_WAIT))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
