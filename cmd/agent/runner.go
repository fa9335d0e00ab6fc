package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vancomm/minesweeper-agent/internal/agent"
	"github.com/vancomm/minesweeper-agent/internal/grid"
	"github.com/vancomm/minesweeper-agent/internal/mines"
	"github.com/vancomm/minesweeper-agent/internal/repository"
	"github.com/vancomm/minesweeper-agent/internal/store"
)

type runner struct {
	opts  options
	cache *store.Store[agent.Result]
	repo  *repository.Queries
}

func cacheKey(p mines.GameParams, seed uint64) string {
	return p.String() + "/" + strconv.FormatUint(seed, 10)
}

// run plays every game. Results of games that did not finish are zero.
func (r *runner) run(ctx context.Context) ([]agent.Result, error) {
	results := make([]agent.Result, r.opts.games)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.workers)
	for i := range r.opts.games {
		seed := r.opts.seed + uint64(i)
		g.Go(func() error {
			res, err := r.play(gCtx, seed)
			if err != nil {
				return fmt.Errorf("game %d (seed %d): %w", i, seed, err)
			}
			results[i] = res
			return nil
		})
	}
	err := g.Wait()
	return results, err
}

func (r *runner) play(ctx context.Context, seed uint64) (agent.Result, error) {
	p := r.opts.params
	key := cacheKey(p, seed)
	fields := logrus.Fields{"board": p.String(), "seed": seed}

	if r.cache != nil && r.opts.rerun {
		if err := r.cache.Delete(key); err != nil {
			return agent.Result{}, err
		}
	}
	if r.cache != nil {
		res, err := r.cache.Get(key)
		if err == nil {
			log.WithFields(fields).Debug("cached")
			return res, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return agent.Result{}, err
		}
	}

	rnd := rand.New(rand.NewPCG(seed, seed))
	a, err := r.newAgent(rnd)
	if err != nil {
		return agent.Result{}, err
	}

	startedAt := time.Now().UTC()
	res, err := a.Play(ctx, func(m agent.Move) {
		log.WithFields(fields).WithFields(logrus.Fields{
			"cell":     m.Cell.String(),
			"strategy": m.Strategy,
			"count":    m.Count,
			"mine":     m.Mine,
			"flagged":  len(m.Flagged),
		}).Debug("move")
	})
	if err != nil {
		return res, err
	}

	log.WithFields(fields).WithFields(logrus.Fields{
		"outcome": res.Outcome.String(),
		"moves":   res.Moves,
		"elapsed": res.Elapsed,
	}).Info("game over")
	if log.IsLevelEnabled(logrus.DebugLevel) {
		a.Field().Reveal()
		log.Debug("\n" + a.Field().PlayerGrid.ToString(p.Width))
	}

	if r.cache != nil {
		if err := r.cache.Set(key, res); err != nil {
			return res, fmt.Errorf("unable to cache result: %w", err)
		}
	}
	if r.repo != nil {
		_, err := r.repo.CreateRun(ctx, repository.CreateRunParams{
			Seed:      strconv.FormatUint(seed, 10),
			Result:    res,
			StartedAt: startedAt,
		})
		if errors.Is(err, repository.ErrDuplicateRun) {
			log.WithFields(fields).Debug("run already recorded")
		} else if err != nil {
			return res, fmt.Errorf("unable to record run: %w", err)
		}
	}
	return res, nil
}

/*
newAgent deals a board. With safe-start the first cell is drawn up front,
kept clear of mines and handed to the agent as a known safe cell.
*/
func (r *runner) newAgent(rnd *rand.Rand) (*agent.Agent, error) {
	p := r.opts.params
	if !r.opts.safeStart {
		f, err := mines.NewField(p, rnd)
		if err != nil {
			return nil, err
		}
		return agent.New(f, rnd), nil
	}

	start := grid.Cell{Row: rnd.IntN(p.Height), Col: rnd.IntN(p.Width)}
	f, err := mines.NewFieldAvoiding(p, start, rnd)
	if err != nil {
		return nil, err
	}
	a := agent.New(f, rnd)
	if err := a.Knowledge().MarkSafe(start); err != nil {
		return nil, err
	}
	return a, nil
}
