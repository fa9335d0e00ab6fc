package mines

import "errors"

var (
	ErrInvalidParams = errors.New("invalid game params")
	ErrOutOfBounds   = errors.New("cell out of bounds")
	ErrGameOver      = errors.New("game is over")
)
