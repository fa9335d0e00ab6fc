package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

/*
ConnectWS lets the agent play the session to the end, pushing every move
as it is made. Moves are paced by the configured delay.
*/
func (h AgentHandler) ConnectWS(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	c, err := h.ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("unable to upgrade", slog.Any("error", err))
		return
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// the client never sends anything; reading surfaces its close frame
	go func() {
		defer cancel()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.logger.Warn("abnormal ws break", slog.Any("error", err))
				}
				return
			}
		}
	}()

	send := func(msg wsMessage) bool {
		msg.SentAt = time.Now().UTC()
		if err := c.WriteJSON(msg); err != nil {
			h.logger.Warn("unable to write ws message", slog.Any("error", err))
			return false
		}
		return true
	}

	for {
		s.mu.Lock()
		if s.finished() {
			h.record(ctx, s)
			dto := newSessionDTO(s)
			s.mu.Unlock()
			send(wsMessage{Type: "result", Session: dto})
			break
		}
		move, err := s.step()
		s.mu.Unlock()

		if err != nil {
			h.logger.Error("agent aborted", slog.String("sessionId", s.id), slog.Any("error", err))
			send(wsMessage{Type: "error", Error: err.Error()})
			break
		}
		if move != nil && !send(wsMessage{Type: "move", Move: move}) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(h.ws.MoveDelay):
		}
	}

	c.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
}
