package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"

	"github.com/vancomm/minesweeper-agent/internal/agent"
	"github.com/vancomm/minesweeper-agent/internal/config"
	"github.com/vancomm/minesweeper-agent/internal/mines"
	"github.com/vancomm/minesweeper-agent/internal/repository"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoDatabase      = errors.New("run statistics require a database")
)

type RunRepository interface {
	CreateRun(context.Context, repository.CreateRunParams) (*repository.AgentRun, error)
	FetchRun(context.Context, int64) (*repository.AgentRun, error)
	GetStats(context.Context, repository.StatsFilter) ([]repository.RunStats, error)
}

type AgentHandler struct {
	logger   *slog.Logger
	repo     RunRepository
	ws       *config.WebSocket
	board    mines.GameParams
	limits   *config.Sessions
	sessions *Sessions
}

// NewAgentHandler accepts a nil repo; finished runs are then not recorded.
func NewAgentHandler(
	logger *slog.Logger,
	repo RunRepository,
	ws *config.WebSocket,
	board mines.GameParams,
	limits *config.Sessions,
) *AgentHandler {
	return &AgentHandler{
		logger:   logger,
		repo:     repo,
		ws:       ws,
		board:    board,
		limits:   limits,
		sessions: NewSessions(limits.TTL, limits.MaxSessions),
	}
}

func (h AgentHandler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s, ok := h.sessions.get(r.PathValue("id"))
	if !ok {
		sendError(w, h.logger, http.StatusNotFound, ErrSessionNotFound)
	}
	return s, ok
}

func (h AgentHandler) NewSession(w http.ResponseWriter, r *http.Request) {
	dto, err := ParseCreateSessionDTO(r.URL.Query())
	if err != nil {
		sendError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	params := dto.Params(h.board)
	if err := params.ValidateLimit(h.limits.MaxCells); err != nil {
		sendError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	seed := rand.Uint64()
	if dto.Seed != nil {
		seed = *dto.Seed
	}

	s, err := newSession(params, seed)
	if err != nil {
		h.logger.Error("unable to generate a new field", slog.Any("error", err))
		sendError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	if err := h.sessions.add(s); err != nil {
		h.logger.Warn("session rejected", slog.Any("error", err))
		sendError(w, h.logger, http.StatusServiceUnavailable, err)
		return
	}

	h.logger.Debug(
		"created session",
		slog.String("sessionId", s.id),
		slog.String("params", params.String()),
		slog.Uint64("seed", seed),
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	sendJSONOrLog(w, h.logger, newSessionDTO(s))
}

func (h AgentHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dto := newSessionDTO(s)
	if h.repo != nil && s.runID != nil {
		run, err := h.repo.FetchRun(r.Context(), *s.runID)
		if err != nil {
			h.logger.Error(
				"unable to fetch recorded run",
				slog.String("sessionId", s.id),
				slog.Int64("runId", *s.runID),
				slog.Any("error", err),
			)
		} else {
			dto.Run = run
		}
	}
	sendJSONOrLog(w, h.logger, dto)
}

func (h AgentHandler) Step(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	move, err := s.step()
	if errors.Is(err, agent.ErrFinished) {
		sendError(w, h.logger, http.StatusConflict, err)
		return
	}
	if err != nil {
		h.logger.Error(
			"agent aborted",
			slog.String("sessionId", s.id),
			slog.Any("error", err),
		)
		sendError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	if s.finished() {
		h.record(r.Context(), s)
	}

	sendJSONOrLog(w, h.logger, struct {
		Move    *agent.Move `json:"move"`
		Session *SessionDTO `json:"session"`
	}{move, newSessionDTO(s)})
}

func (h AgentHandler) Play(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished() {
		sendError(w, h.logger, http.StatusConflict, agent.ErrFinished)
		return
	}

	for !s.finished() {
		if err := r.Context().Err(); err != nil {
			return
		}
		if _, err := s.step(); err != nil {
			h.logger.Error(
				"agent aborted",
				slog.String("sessionId", s.id),
				slog.Any("error", err),
			)
			sendError(w, h.logger, http.StatusInternalServerError, err)
			return
		}
	}

	h.record(r.Context(), s)
	sendJSONOrLog(w, h.logger, newSessionDTO(s))
}

/*
record stores a finished run once. A run replayed from a seed that is
already stored is logged and otherwise ignored. Must be called with s.mu
held.
*/
func (h AgentHandler) record(ctx context.Context, s *Session) {
	if h.repo == nil || s.recorded {
		return
	}
	s.recorded = true

	run, err := h.repo.CreateRun(ctx, repository.CreateRunParams{
		Seed:      strconv.FormatUint(s.seed, 10),
		Result:    s.agent.Result(),
		StartedAt: s.startedAt,
	})
	if errors.Is(err, repository.ErrDuplicateRun) {
		h.logger.Info("run already recorded", slog.String("sessionId", s.id))
		return
	}
	if err != nil {
		h.logger.Error(
			"unable to record run",
			slog.String("sessionId", s.id),
			slog.Any("error", err),
		)
		return
	}
	s.runID = &run.AgentRunId
}

func (h AgentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		sendError(w, h.logger, http.StatusServiceUnavailable, ErrNoDatabase)
		return
	}

	dto, err := ParseStatsFilterDTO(r.URL.Query())
	if err != nil {
		sendError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	stats, err := h.repo.GetStats(r.Context(), repository.StatsFilter{
		GameParams: dto.GameParams(),
	})
	if err != nil {
		h.logger.Error("unable to fetch stats", slog.Any("error", err))
		sendError(w, h.logger, http.StatusInternalServerError, fmt.Errorf("unable to fetch stats"))
		return
	}

	sendJSONOrLog(w, h.logger, stats)
}
