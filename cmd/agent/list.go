package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper-agent/internal/agent"
	"github.com/vancomm/minesweeper-agent/internal/store"
)

// listCached logs one entry per cached game, ordered by board and seed.
func listCached(log *logrus.Logger, cache *store.Store[agent.Result]) error {
	keys, err := cache.Keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		res, err := cache.Get(key)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		log.WithFields(logrus.Fields{
			"game":    key,
			"outcome": res.Outcome.String(),
			"moves":   res.Moves,
			"guesses": res.RandomMoves,
			"derived": res.Knowledge.Derived,
			"elapsed": res.Elapsed,
		}).Info("cached")
	}
	return nil
}
