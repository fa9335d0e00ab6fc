package main

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper-agent/internal/agent"
	"github.com/vancomm/minesweeper-agent/internal/mines"
)

type summary struct {
	params   mines.GameParams
	outcomes map[agent.Outcome]int
	played   int
	moves    int
	random   int
	derived  int
	elapsed  time.Duration
}

func summarize(p mines.GameParams, results []agent.Result) summary {
	s := summary{params: p, outcomes: make(map[agent.Outcome]int)}
	for _, res := range results {
		if res.Moves == 0 {
			continue
		}
		s.played++
		s.outcomes[res.Outcome]++
		s.moves += res.Moves
		s.random += res.RandomMoves
		s.derived += res.Knowledge.Derived
		s.elapsed += res.Elapsed
	}
	return s
}

func (s summary) winRate() float64 {
	if s.played == 0 {
		return 0
	}
	return float64(s.outcomes[agent.Won]) / float64(s.played)
}

func (s summary) log(log *logrus.Logger) {
	fields := logrus.Fields{
		"board":   s.params.String(),
		"played":  s.played,
		"won":     s.outcomes[agent.Won],
		"lost":    s.outcomes[agent.Lost],
		"winRate": s.winRate(),
		"moves":   s.moves,
		"guesses": s.random,
		"derived": s.derived,
		"elapsed": s.elapsed,
	}
	if n := s.outcomes[agent.Exhausted] + s.outcomes[agent.Aborted]; n > 0 {
		fields["unfinished"] = n
	}
	log.WithFields(fields).Info("summary")
}
