package handlers

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vancomm/minesweeper-agent/internal/agent"
	"github.com/vancomm/minesweeper-agent/internal/mines"
)

/*
Session is one board played by one agent. The knowledge base behind the
agent is not safe for concurrent use, so every access goes through mu.
*/
type Session struct {
	mu        sync.Mutex
	id        string
	seed      uint64
	agent     *agent.Agent
	moves     []agent.Move
	startedAt time.Time
	recorded  bool
	runID     *int64
}

func newSession(params mines.GameParams, seed uint64) (*Session, error) {
	r := rand.New(rand.NewPCG(seed, seed))
	field, err := mines.NewField(params, r)
	if err != nil {
		return nil, err
	}
	return &Session{
		id:        uuid.NewString(),
		seed:      seed,
		agent:     agent.New(field, r),
		startedAt: time.Now().UTC(),
	}, nil
}

// step must be called with s.mu held.
func (s *Session) step() (*agent.Move, error) {
	move, err := s.agent.Step()
	if move != nil {
		s.moves = append(s.moves, *move)
	}
	if s.finished() {
		s.agent.Field().Reveal()
	}
	return move, err
}

func (s *Session) finished() bool {
	return s.agent.Outcome() != agent.Playing
}

var ErrTooManySessions = errors.New("too many live sessions")

/*
Sessions holds the live sessions. A session not looked up for longer
than ttl is dropped the next time the registry is touched, and no more
than max sessions are kept.
*/
type Sessions struct {
	mu   sync.Mutex
	m    map[string]*Session
	seen map[string]time.Time
	ttl  time.Duration
	max  int
	now  func() time.Time
}

func NewSessions(ttl time.Duration, limit int) *Sessions {
	return &Sessions{
		m:    make(map[string]*Session),
		seen: make(map[string]time.Time),
		ttl:  ttl,
		max:  limit,
		now:  time.Now,
	}
}

// evict must be called with ss.mu held.
func (ss *Sessions) evict(now time.Time) {
	for id, seen := range ss.seen {
		if now.Sub(seen) > ss.ttl {
			delete(ss.m, id)
			delete(ss.seen, id)
		}
	}
}

func (ss *Sessions) add(s *Session) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	now := ss.now()
	ss.evict(now)
	if len(ss.m) >= ss.max {
		return ErrTooManySessions
	}
	ss.m[s.id] = s
	ss.seen[s.id] = now
	return nil
}

func (ss *Sessions) get(id string) (*Session, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	now := ss.now()
	ss.evict(now)
	s, ok := ss.m[id]
	if ok {
		ss.seen[id] = now
	}
	return s, ok
}

func (ss *Sessions) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.m)
}
