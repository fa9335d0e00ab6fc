package app

import (
	"github.com/vancomm/minesweeper-agent/internal/handlers"
)

func (a *App) loadRoutes() {
	h := handlers.NewAgentHandler(a.logger, a.repo(), a.ws, a.board, a.limits)

	a.router.HandleFunc("POST /session", h.NewSession)
	a.router.HandleFunc("GET /session/{id}", h.Fetch)
	a.router.HandleFunc("POST /session/{id}/step", h.Step)
	a.router.HandleFunc("POST /session/{id}/play", h.Play)
	a.router.HandleFunc("GET /session/{id}/connect", h.ConnectWS)
	a.router.HandleFunc("GET /stats", h.Stats)
}
