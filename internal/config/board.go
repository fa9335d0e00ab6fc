package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/vancomm/minesweeper-agent/internal/mines"
)

func lookupInt(key string, fallback int) (int, error) {
	s, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("unable to convert %s to int: %w", key, err)
	}
	return v, nil
}

// Board returns the default board, 8x8 with 8 mines unless overridden by
// BOARD_HEIGHT, BOARD_WIDTH and BOARD_MINES.
func Board() (mines.GameParams, error) {
	var (
		p   mines.GameParams
		err error
	)
	if p.Height, err = lookupInt("BOARD_HEIGHT", 8); err != nil {
		return p, err
	}
	if p.Width, err = lookupInt("BOARD_WIDTH", 8); err != nil {
		return p, err
	}
	if p.MineCount, err = lookupInt("BOARD_MINES", 8); err != nil {
		return p, err
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}
