package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vancomm/minesweeper-agent/internal/agent"
)

var ErrDuplicateRun = errors.New("run already recorded")

type AgentRun struct {
	AgentRunId  int64     `db:"agent_run_id" json:"agent_run_id"`
	Seed        string    `db:"seed" json:"seed"`
	Width       int       `db:"width" json:"width"`
	Height      int       `db:"height" json:"height"`
	MineCount   int       `db:"mine_count" json:"mine_count"`
	Outcome     string    `db:"outcome" json:"outcome"`
	Moves       int       `db:"moves" json:"moves"`
	SafeMoves   int       `db:"safe_moves" json:"safe_moves"`
	RandomMoves int       `db:"random_moves" json:"random_moves"`
	MinesFound  int       `db:"mines_found" json:"mines_found"`
	Derived     int       `db:"derived" json:"derived"`
	StartedAt   time.Time `db:"started_at" json:"started_at"`
	EndedAt     time.Time `db:"ended_at" json:"ended_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type CreateRunParams struct {
	Seed      string
	Result    agent.Result
	StartedAt time.Time
}

func (p CreateRunParams) Args() pgx.NamedArgs {
	r := p.Result
	return pgx.NamedArgs{
		"seed":         p.Seed,
		"width":        r.Params.Width,
		"height":       r.Params.Height,
		"mine_count":   r.Params.MineCount,
		"outcome":      r.Outcome.String(),
		"moves":        r.Moves,
		"safe_moves":   r.SafeMoves,
		"random_moves": r.RandomMoves,
		"mines_found":  r.MinesFound,
		"derived":      r.Knowledge.Derived,
		"started_at":   p.StartedAt,
		"ended_at":     p.StartedAt.Add(r.Elapsed),
	}
}

// CreateRun records a finished game. A second run with the same seed and
// board returns [ErrDuplicateRun].
func (q Queries) CreateRun(ctx context.Context, params CreateRunParams) (*AgentRun, error) {
	rows, _ := q.db.Query(
		ctx,
		`INSERT INTO agent_run (
			seed, width, height, mine_count, outcome, moves, safe_moves,
			random_moves, mines_found, derived, started_at, ended_at
		)
		VALUES (
			@seed, @width, @height, @mine_count, @outcome, @moves, @safe_moves,
			@random_moves, @mines_found, @derived, @started_at, @ended_at
		)
		RETURNING *;`,
		params.Args(),
	)
	run, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[AgentRun])

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
		return nil, ErrDuplicateRun
	}
	return run, err
}

func (q Queries) FetchRun(ctx context.Context, agentRunId int64) (*AgentRun, error) {
	rows, _ := q.db.Query(
		ctx,
		"SELECT * FROM agent_run WHERE agent_run_id = $1",
		agentRunId,
	)
	return pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[AgentRun])
}
