package knowledge

import (
	"errors"
	"fmt"

	"github.com/vancomm/minesweeper-agent/internal/grid"
)

var (
	ErrContradiction = errors.New("contradiction")
	ErrPrecondition  = errors.New("precondition violated")

	ErrAlreadyObserved = errors.New("cell already observed")
	ErrOutOfBounds     = errors.New("cell out of bounds")
	ErrInvalidCount    = errors.New("mine count out of range")
)

/*
ContradictionError reports knowledge that cannot hold on a truthful
board: a cell classified both ways, or a statement whose count left
[0, |cells|]. The knowledge base must not be used after one is returned.
*/
type ContradictionError struct {
	Reason    string
	Statement string
}

// [ContradictionError] implements [error]
func (e ContradictionError) Error() string {
	if e.Statement != "" {
		return fmt.Sprintf("%s: %s in %s", ErrContradiction, e.Reason, e.Statement)
	}
	return fmt.Sprintf("%s: %s", ErrContradiction, e.Reason)
}

func (e ContradictionError) Is(target error) bool {
	return target == ErrContradiction
}

// PreconditionError is returned at the call boundary when a caller misuses
// the knowledge base. The state is left untouched.
type PreconditionError struct {
	Op   string
	Cell grid.Cell
	Err  error
}

// [PreconditionError] implements [error]
func (e PreconditionError) Error() string {
	return fmt.Sprintf("%s %v: %v", e.Op, e.Cell, e.Err)
}

func (e PreconditionError) Unwrap() error {
	return e.Err
}

func (e PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}
