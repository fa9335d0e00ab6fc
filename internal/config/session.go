package config

import (
	"fmt"
	"os"
	"time"
)

// Sessions bounds what the server keeps in memory for agent sessions.
type Sessions struct {
	MaxCells    int
	MaxSessions int
	TTL         time.Duration
}

/*
NewSessions reads SESSION_MAX_CELLS (largest board a client may request,
default 10000), SESSION_MAX (live sessions, default 1000) and
SESSION_TTL (idle time before a session is dropped, default 30m).
*/
func NewSessions() (*Sessions, error) {
	var (
		cfg = &Sessions{TTL: 30 * time.Minute}
		err error
	)
	if cfg.MaxCells, err = lookupInt("SESSION_MAX_CELLS", 10000); err != nil {
		return nil, err
	}
	if cfg.MaxSessions, err = lookupInt("SESSION_MAX", 1000); err != nil {
		return nil, err
	}
	if s, ok := os.LookupEnv("SESSION_TTL"); ok {
		if cfg.TTL, err = time.ParseDuration(s); err != nil {
			return nil, fmt.Errorf("unable to parse SESSION_TTL: %w", err)
		}
	}
	if cfg.MaxCells <= 0 || cfg.MaxSessions <= 0 || cfg.TTL <= 0 {
		return nil, fmt.Errorf("session limits must be positive")
	}
	return cfg, nil
}
