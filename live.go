package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"shift_handover/internal/board"
	"shift_handover/internal/shift"
	"shift_handover/internal/summary"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
)

// liveHandler streams the board of one shift over a websocket. Each
// connection has its own board, so a client can switch shift without
// affecting anyone else.
func (s *server) liveHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	poke := make(chan struct{}, 1)
	b := board.New(s.store,
		board.WithLogger(s.log),
		board.WithOnChange(func() {
			select {
			case poke <- struct{}{}:
			default:
			}
		}))
	defer b.Close()

	if err := b.Switch(s.currentShift(r)); err != nil {
		s.log.Error("live: select shift", zap.Error(err))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "record store unavailable"),
			time.Now().Add(writeWait))
		return
	}

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		// closing unblocks the reader
		defer conn.Close()
		return pushState(ctx, conn, b, poke)
	})
	g.Go(func() error {
		return s.readLive(conn, b)
	})
	if err := g.Wait(); err != nil && !isClosed(err) {
		s.log.Debug("live connection ended", zap.Error(err))
	}
}

func pushState(ctx context.Context, conn *websocket.Conn, b *board.Board, poke <-chan struct{}) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(writeWait))
			return ctx.Err()
		case <-poke:
			st := b.State()
			msg := LiveState{
				State:   st,
				Summary: summary.Compose(st.Faults, st.Planned, st.Info, summary.Plain),
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return err
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}

func (s *server) readLive(conn *websocket.Conn, b *board.Board) error {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg LiveMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Debug("live: bad message", zap.Error(err))
			continue
		}
		switch msg.Action {
		case "switch":
			t, err := shift.ParseType(msg.Type)
			if err != nil || strings.TrimSpace(msg.Date) == "" {
				s.log.Debug("live: bad switch", zap.String("date", msg.Date), zap.String("type", msg.Type))
				continue
			}
			if err := b.Switch(shift.Info{Date: strings.TrimSpace(msg.Date), Type: t}); err != nil {
				return err
			}
		default:
			s.log.Debug("live: unknown action", zap.String("action", msg.Action))
		}
	}
}

func isClosed(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
		errors.Is(err, context.Canceled)
}
