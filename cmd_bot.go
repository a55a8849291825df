package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"darkest-dnd-server/config"
	"darkest-dnd-server/logger"
	"darkest-dnd-server/peer"
	"darkest-dnd-server/protocol"
)

var (
	botURL     string
	botCodec   string
	botToken   string
	botTick    time.Duration
	botIdle    time.Duration
	botForward string
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Connect a headless peer that wanders its character",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		logger.Init(cfg.LogLevel, cfg.LogFormat)
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runBot(ctx, cfg.WindowHex)
	},
}

func init() {
	botCmd.Flags().StringVar(&botURL, "url", "ws://localhost:3000/ws", "server websocket url")
	botCmd.Flags().StringVar(&botCodec, "codec", "json", "wire codec: json or msgpack")
	botCmd.Flags().StringVar(&botToken, "token", "", "admin token")
	botCmd.Flags().DurationVar(&botTick, "tick", 16*time.Millisecond, "update interval")
	botCmd.Flags().DurationVar(&botIdle, "idle", 2*time.Second, "rest between walks")
	botCmd.Flags().StringVar(&botForward, "forwarded-for", "", "X-Forwarded-For to present, for servers with TRUST_PROXY")
}

func runBot(ctx context.Context, windowHex string) error {
	log := logger.Component("bot")
	codec, err := protocol.CodecByName(botCodec)
	if err != nil {
		return err
	}

	u, err := url.Parse(botURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("codec", codec.Name())
	if botToken != "" {
		q.Set("token", botToken)
	}
	u.RawQuery = q.Encode()

	header := http.Header{}
	if botForward != "" {
		header.Set("X-Forwarded-For", botForward)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}
	defer conn.Close()
	log.WithField("url", u.Redacted()).Info("connected")

	inbound := make(chan protocol.Message, config.SEND_BUFFER)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			msg, err := codec.Decode(frame)
			if err != nil {
				log.WithError(err).Warn("dropping bad frame")
				continue
			}
			inbound <- msg
		}
	}()

	frameType := websocket.TextMessage
	if codec.Binary() {
		frameType = websocket.BinaryMessage
	}
	flush := func(m *peer.Mirror) error {
		for _, ev := range m.Drain() {
			frame, err := codec.Encode(ev)
			if err != nil {
				return fmt.Errorf("encode %s: %w", ev.Type, err)
			}
			if err := conn.WriteMessage(frameType, frame); err != nil {
				return fmt.Errorf("write %s: %w", ev.Type, err)
			}
		}
		return nil
	}

	m := peer.NewMirror(windowHex, log)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(botTick)
	defer ticker.Stop()
	last := time.Now()
	restUntil := time.Now()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		case err := <-readErr:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		case msg := <-inbound:
			if err := m.Apply(msg); err != nil {
				log.WithError(err).Warn("apply failed")
			}
		case now := <-ticker.C:
			m.Update(float64(now.Sub(last).Milliseconds()))
			last = now
			if pov, ok := m.POV(); ok && !pov.Moving() && now.After(restUntil) && m.CanMove() {
				if row, col, ok := randomExplored(m, rng); ok {
					if path, err := m.Click(row, col); err == nil {
						log.WithFields(logrus.Fields{"character": pov.ID, "row": row, "col": col, "steps": len(path) - 1}).Debug("walking")
					}
				}
				restUntil = now.Add(botIdle)
			}
			if err := flush(m); err != nil {
				return err
			}
		}
	}
}

// randomExplored picks an explored walkable tile, trying a bounded number
// of samples.
func randomExplored(m *peer.Mirror, rng *rand.Rand) (int, int, bool) {
	g := m.Grid()
	if g == nil {
		return 0, 0, false
	}
	for range 64 {
		row, col := rng.Intn(g.Rows()), rng.Intn(g.Cols())
		if g.ExploredAt(row, col) && !g.InvalidPathTile(row, col) {
			return row, col, true
		}
	}
	return 0, 0, false
}
