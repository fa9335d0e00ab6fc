package handlers

import (
	"strconv"
	"time"

	"github.com/gorilla/schema"

	"github.com/vancomm/minesweeper-agent/internal/agent"
	"github.com/vancomm/minesweeper-agent/internal/grid"
	"github.com/vancomm/minesweeper-agent/internal/mines"
	"github.com/vancomm/minesweeper-agent/internal/repository"
)

func newDecoder() *schema.Decoder {
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)
	return dec
}

type CreateSessionDTO struct {
	Width     *int    `schema:"width"`
	Height    *int    `schema:"height"`
	MineCount *int    `schema:"mine_count"`
	Seed      *uint64 `schema:"seed"`
}

func ParseCreateSessionDTO(src map[string][]string) (CreateSessionDTO, error) {
	var dto CreateSessionDTO
	err := newDecoder().Decode(&dto, src)
	return dto, err
}

// Params fills the fields left out of the query from defaults.
func (dto CreateSessionDTO) Params(defaults mines.GameParams) mines.GameParams {
	p := defaults
	if dto.Width != nil {
		p.Width = *dto.Width
	}
	if dto.Height != nil {
		p.Height = *dto.Height
	}
	if dto.MineCount != nil {
		p.MineCount = *dto.MineCount
	}
	return p
}

type StatsFilterDTO struct {
	Width     *int `schema:"width"`
	Height    *int `schema:"height"`
	MineCount *int `schema:"mine_count"`
}

func ParseStatsFilterDTO(src map[string][]string) (StatsFilterDTO, error) {
	var dto StatsFilterDTO
	err := newDecoder().Decode(&dto, src)
	return dto, err
}

// GameParams is nil unless the whole board is given.
func (dto StatsFilterDTO) GameParams() *mines.GameParams {
	if dto.Width == nil || dto.Height == nil || dto.MineCount == nil {
		return nil
	}
	return &mines.GameParams{
		Width:     *dto.Width,
		Height:    *dto.Height,
		MineCount: *dto.MineCount,
	}
}

type SessionDTO struct {
	SessionId  string               `json:"session_id"`
	Seed       string               `json:"seed"`
	Params     mines.GameParams     `json:"params"`
	Outcome    agent.Outcome        `json:"outcome"`
	Grid       mines.Grid           `json:"grid"`
	KnownSafes []grid.Cell          `json:"known_safes"`
	KnownMines []grid.Cell          `json:"known_mines"`
	Statements []string             `json:"statements"`
	Moves      []agent.Move         `json:"moves"`
	Result     agent.Result         `json:"result"`
	RunId      *int64               `json:"run_id,omitempty"`
	Run        *repository.AgentRun `json:"run,omitempty"`
	StartedAt  int64                `json:"started_at"`
}

// newSessionDTO must be called with s.mu held.
func newSessionDTO(s *Session) *SessionDTO {
	kb := s.agent.Knowledge()
	f := s.agent.Field()

	stmts := kb.Statements()
	rendered := make([]string, len(stmts))
	for i, stmt := range stmts {
		rendered[i] = stmt.String()
	}

	return &SessionDTO{
		SessionId:  s.id,
		Seed:       strconv.FormatUint(s.seed, 10),
		Params:     f.GameParams,
		Outcome:    s.agent.Outcome(),
		Grid:       append(mines.Grid(nil), f.PlayerGrid...),
		KnownSafes: kb.KnownSafes(),
		KnownMines: kb.KnownMines(),
		Statements: rendered,
		Moves:      append([]agent.Move{}, s.moves...),
		Result:     s.agent.Result(),
		RunId:      s.runID,
		StartedAt:  s.startedAt.UnixMilli(),
	}
}

type wsMessage struct {
	Type    string      `json:"type"`
	Move    *agent.Move `json:"move,omitempty"`
	Session *SessionDTO `json:"session,omitempty"`
	Error   string      `json:"error,omitempty"`
	SentAt  time.Time   `json:"sent_at"`
}
