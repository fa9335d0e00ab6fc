package agent

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/vancomm/minesweeper-agent/internal/grid"
	"github.com/vancomm/minesweeper-agent/internal/knowledge"
	"github.com/vancomm/minesweeper-agent/internal/mines"
)

var ErrFinished = errors.New("game already finished")

type Strategy string

const (
	Safe   Strategy = "safe"
	Random Strategy = "random"
)

type Move struct {
	Cell     grid.Cell   `json:"cell"`
	Strategy Strategy    `json:"strategy"`
	Mine     bool        `json:"mine"`
	Count    int         `json:"count"`
	Flagged  []grid.Cell `json:"flagged,omitempty"`
}

type Result struct {
	Params      mines.GameParams `json:"params"`
	Outcome     Outcome          `json:"outcome"`
	Moves       int              `json:"moves"`
	SafeMoves   int              `json:"safe_moves"`
	RandomMoves int              `json:"random_moves"`
	MinesFound  int              `json:"mines_found"`
	Elapsed     time.Duration    `json:"elapsed"`
	Knowledge   knowledge.Stats  `json:"knowledge"`
}

/*
Agent plays one board: it opens cells known to be safe, falls back to a
uniformly random unknown cell, and flags every mine it deduces. Each
agent owns its knowledge base; it is not safe for concurrent use.
*/
type Agent struct {
	field *mines.Field
	kb    *knowledge.KnowledgeBase
	rnd   *rand.Rand
	cells []grid.Cell

	outcome     Outcome
	safeMoves   int
	randomMoves int
	elapsed     time.Duration
}

func New(field *mines.Field, r *rand.Rand) *Agent {
	size := field.Size()
	return &Agent{
		field: field,
		kb:    knowledge.New(size),
		rnd:   r,
		cells: size.AllCells(),
	}
}

func (a *Agent) Field() *mines.Field {
	return a.field
}

func (a *Agent) Knowledge() *knowledge.KnowledgeBase {
	return a.kb
}

func (a *Agent) Outcome() Outcome {
	return a.outcome
}

/*
Step makes one move. It returns nil without error when no move is left.
A contradiction in the knowledge base aborts the game.
*/
func (a *Agent) Step() (*Move, error) {
	if a.outcome != Playing {
		return nil, ErrFinished
	}

	start := time.Now()
	defer func() {
		a.elapsed += time.Since(start)
	}()

	move := &Move{Strategy: Safe}
	cell, ok := a.kb.SafeMove()
	if !ok {
		move.Strategy = Random
		cell, ok = a.kb.RandomMove(a.rnd, a.cells)
	}
	if !ok {
		a.outcome = Exhausted
		return nil, nil
	}
	move.Cell = cell

	if move.Strategy == Safe {
		a.safeMoves++
	} else {
		a.randomMoves++
	}

	n, err := a.field.Open(cell)
	if err != nil {
		a.outcome = Aborted
		return nil, fmt.Errorf("unable to open %v: %w", cell, err)
	}
	if n < 0 {
		move.Mine = true
		a.outcome = Lost
		return move, nil
	}
	move.Count = n

	if err := a.kb.Observe(cell, n); err != nil {
		a.outcome = Aborted
		return move, fmt.Errorf("unable to observe %v: %w", cell, err)
	}

	for _, c := range a.kb.KnownMines() {
		if a.field.Over() {
			break
		}
		if a.field.State(c) != mines.Unknown {
			continue
		}
		if err := a.field.Flag(c); err != nil {
			a.outcome = Aborted
			return move, fmt.Errorf("unable to flag %v: %w", c, err)
		}
		move.Flagged = append(move.Flagged, c)
	}

	if a.field.Won {
		a.outcome = Won
	}
	return move, nil
}

/*
Play steps until the game is decided or ctx is done. onMove, if not
nil, is called after every move. Elapsed time counts the moves only, not
the time spent in onMove.
*/
func (a *Agent) Play(ctx context.Context, onMove func(Move)) (Result, error) {
	for a.outcome == Playing {
		if err := ctx.Err(); err != nil {
			return a.Result(), err
		}
		move, err := a.Step()
		if err != nil {
			return a.Result(), err
		}
		if move != nil && onMove != nil {
			onMove(*move)
		}
	}
	return a.Result(), nil
}

func (a *Agent) Result() Result {
	return Result{
		Params:      a.field.GameParams,
		Outcome:     a.outcome,
		Moves:       a.safeMoves + a.randomMoves,
		SafeMoves:   a.safeMoves,
		RandomMoves: a.randomMoves,
		MinesFound:  len(a.kb.KnownMines()),
		Elapsed:     a.elapsed,
		Knowledge:   a.kb.Stats(),
	}
}
