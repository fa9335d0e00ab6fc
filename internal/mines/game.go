package mines

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"strings"

	"github.com/vancomm/minesweeper-agent/internal/grid"
)

/*
Field is the ground truth of one board plus what the player has seen of
it. Only the mine counts of opened cells ever reach the player.
*/
type Field struct {
	Dead, Won  bool
	Grid       []bool /* real mine points */
	PlayerGrid Grid   /* player knowledge */
	GameParams
}

func DecodeField(buf []byte) (*Field, error) {
	var f Field
	if err := gob.NewDecoder(bytes.NewBuffer(buf)).Decode(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f Field) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *Field) Over() bool {
	return f.Dead || f.Won
}

func (f *Field) IsMine(c grid.Cell) bool {
	return f.Grid[f.Size().Index(c)]
}

// NearbyMines counts the mines adjacent to c, not including c itself.
func (f *Field) NearbyMines(c grid.Cell) (n int) {
	size := f.Size()
	for nb := range size.Neighbors(c) {
		if f.Grid[size.Index(nb)] {
			n++
		}
	}
	return
}

func (f *Field) State(c grid.Cell) CellState {
	return f.PlayerGrid[f.Size().Index(c)]
}

// Mines returns every mine on the board in row-major order.
func (f *Field) Mines() []grid.Cell {
	size := f.Size()
	ret := make([]grid.Cell, 0, f.MineCount)
	for i, mine := range f.Grid {
		if mine {
			ret = append(ret, size.CellAt(i))
		}
	}
	return ret
}

/*
Open reveals c. It returns the number of adjacent mines, or -1 when the
player has landed on a mine, which ends the game.
*/
func (f *Field) Open(c grid.Cell) (int, error) {
	if !f.ValidatePosition(c) {
		return 0, fmt.Errorf("%w: %v", ErrOutOfBounds, c)
	}
	if f.Over() {
		return 0, ErrGameOver
	}

	i := f.Size().Index(c)
	if f.Grid[i] {
		f.Dead = true
		f.PlayerGrid[i] = ExplodedMine
		return -1, nil
	}

	n := f.NearbyMines(c)
	f.PlayerGrid[i] = CellState(n)
	f.checkWon()
	return n, nil
}

// Flag marks c as a mine. Flagging an opened square does nothing.
func (f *Field) Flag(c grid.Cell) error {
	if !f.ValidatePosition(c) {
		return fmt.Errorf("%w: %v", ErrOutOfBounds, c)
	}
	if f.Over() {
		return ErrGameOver
	}

	i := f.Size().Index(c)
	if f.PlayerGrid[i] == Unknown {
		f.PlayerGrid[i] = Flagged
		f.checkWon()
	}
	return nil
}

/*
The game is won once the flags are exactly the mines, or once every
covered square left is a mine.
*/
func (f *Field) checkWon() {
	if f.Dead {
		return
	}

	var nmines, ncovered, nright, nwrong int
	for i, mine := range f.Grid {
		covered := !f.PlayerGrid[i].Open()
		if covered {
			ncovered++
		}
		if mine {
			nmines++
		}
		if f.PlayerGrid[i] == Flagged {
			if mine {
				nright++
			} else {
				nwrong++
			}
		}
	}

	if (nmines > 0 && nright == nmines && nwrong == 0) || ncovered == nmines {
		f.Won = true
	}
}

// Reveal exposes the whole board once the game is over.
func (f *Field) Reveal() {
	size := f.Size()
	for i, mine := range f.Grid {
		switch state := f.PlayerGrid[i]; {
		case state == Flagged && mine:
			f.PlayerGrid[i] = CorrectlyFlagged
		case state == Flagged:
			f.PlayerGrid[i] = FalselyFlagged
		case state == Unknown && mine:
			f.PlayerGrid[i] = UnflaggedMine
		case state == Unknown:
			f.PlayerGrid[i] = CellState(f.NearbyMines(size.CellAt(i)))
		}
	}
}

// [Field] implements [fmt.Stringer]
func (f Field) String() string {
	var b strings.Builder
	line := strings.Repeat("--", f.Width) + "-\n"
	for y := range f.Height {
		b.WriteString(line)
		for x := range f.Width {
			if f.Grid[y*f.Width+x] {
				b.WriteString("|X")
			} else {
				b.WriteString("| ")
			}
		}
		b.WriteString("|\n")
	}
	b.WriteString(line)
	return b.String()
}
