package mines

import (
	"fmt"
	"math/rand/v2"

	"github.com/vancomm/minesweeper-agent/internal/grid"
)

type GameParams struct {
	Width     int `json:"width" schema:"width,required"`
	Height    int `json:"height" schema:"height,required"`
	MineCount int `json:"mine_count" schema:"mine_count,required"`
}

func (p GameParams) Size() grid.Size {
	return grid.Size{Height: p.Height, Width: p.Width}
}

func (p GameParams) String() string {
	return fmt.Sprintf("%dx%d(%d)", p.Width, p.Height, p.MineCount)
}

func (p GameParams) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: %dx%d board", ErrInvalidParams, p.Width, p.Height)
	}
	if p.MineCount < 0 || p.MineCount >= p.Width*p.Height {
		return fmt.Errorf(
			"%w: %d mines on %d cells", ErrInvalidParams, p.MineCount, p.Width*p.Height,
		)
	}
	return nil
}

// ValidateLimit rejects boards with more than maxCells cells.
func (p GameParams) ValidateLimit(maxCells int) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Width > maxCells || p.Height > maxCells || p.Width*p.Height > maxCells {
		return fmt.Errorf(
			"%w: %dx%d board exceeds %d cells", ErrInvalidParams, p.Width, p.Height, maxCells,
		)
	}
	return nil
}

func (p GameParams) ValidatePosition(c grid.Cell) bool {
	return p.Size().Contains(c)
}

// NewField places p.MineCount mines uniformly at random.
func NewField(p GameParams, r *rand.Rand) (*Field, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	candidates := make([]int, 0, p.Width*p.Height)
	for i := range p.Width * p.Height {
		candidates = append(candidates, i)
	}
	return newField(p, candidates, r), nil
}

/*
NewFieldAvoiding places mines away from start and, when the board leaves
enough room, away from every neighbor of start, so that the first move
opens an empty square.
*/
func NewFieldAvoiding(p GameParams, start grid.Cell, r *rand.Rand) (*Field, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	size := p.Size()
	if !size.Contains(start) {
		return nil, fmt.Errorf("%w: start %v", ErrOutOfBounds, start)
	}

	near := func(c grid.Cell) bool {
		return absDiff(c.Row, start.Row) <= 1 && absDiff(c.Col, start.Col) <= 1
	}
	if size.Area()-size.NeighborCount(start)-1 < p.MineCount {
		near = func(c grid.Cell) bool { return c == start }
	}

	/*
	 * Write down the list of possible mine locations.
	 */
	candidates := make([]int, 0, size.Area())
	for c := range size.Cells() {
		if !near(c) {
			candidates = append(candidates, size.Index(c))
		}
	}
	return newField(p, candidates, r), nil
}

func newField(p GameParams, candidates []int, r *rand.Rand) *Field {
	mines := make([]bool, p.Width*p.Height)

	/*
	 * Now pick n off the list at random.
	 */
	k := len(candidates)
	for range p.MineCount {
		i := r.IntN(k)
		mines[candidates[i]] = true
		k--
		candidates[i] = candidates[k]
	}

	return fieldFromGrid(p, mines)
}

// FieldFromMines builds a board with mines at exactly the given cells.
func FieldFromMines(p GameParams, cells []grid.Cell) (*Field, error) {
	size := p.Size()
	mines := make([]bool, size.Area())
	count := 0
	for _, c := range cells {
		if !size.Contains(c) {
			return nil, fmt.Errorf("%w: mine at %v", ErrOutOfBounds, c)
		}
		if !mines[size.Index(c)] {
			mines[size.Index(c)] = true
			count++
		}
	}
	p.MineCount = count
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return fieldFromGrid(p, mines), nil
}

func fieldFromGrid(p GameParams, mines []bool) *Field {
	player := make(Grid, len(mines))
	for i := range player {
		player[i] = Unknown
	}
	return &Field{
		GameParams: p,
		Grid:       mines,
		PlayerGrid: player,
	}
}

func absDiff(x, y int) int {
	if x > y {
		return x - y
	}
	return y - x
}
