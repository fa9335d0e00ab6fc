package config

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type WebSocket struct {
	Upgrader  websocket.Upgrader
	MoveDelay time.Duration
}

// NewWebSocket reads WS_MOVE_DELAY, the pause between streamed moves.
func NewWebSocket() (*WebSocket, error) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	ws := &WebSocket{
		Upgrader:  upgrader,
		MoveDelay: 100 * time.Millisecond,
	}

	if s, ok := os.LookupEnv("WS_MOVE_DELAY"); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("unable to parse WS_MOVE_DELAY: %w", err)
		}
		ws.MoveDelay = d
	}

	return ws, nil
}
