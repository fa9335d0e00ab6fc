package grid

import (
	"fmt"
	"iter"
)

// Cell is a (row, column) coordinate on a fixed-size grid.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Compare orders cells row-major.
func Compare(a, b Cell) int {
	if a.Row < b.Row {
		return -1
	}
	if a.Row > b.Row {
		return 1
	}
	if a.Col < b.Col {
		return -1
	}
	if a.Col > b.Col {
		return 1
	}
	return 0
}

type Size struct {
	Height int `json:"height"`
	Width  int `json:"width"`
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Height, s.Width)
}

func (s Size) Area() int {
	return s.Height * s.Width
}

func (s Size) Contains(c Cell) bool {
	return 0 <= c.Row && c.Row < s.Height && 0 <= c.Col && c.Col < s.Width
}

func (s Size) Index(c Cell) int {
	return c.Row*s.Width + c.Col
}

func (s Size) CellAt(i int) Cell {
	return Cell{Row: i / s.Width, Col: i % s.Width}
}

/*
Neighbors yields the up-to-8 cells adjacent to c, clipped to the grid
bounds. The cell itself is never yielded.
*/
func (s Size) Neighbors(c Cell) iter.Seq[Cell] {
	return func(yield func(Cell) bool) {
		for dr := -1; dr <= 1; dr++ {
			for dc := -1; dc <= 1; dc++ {
				if dr == 0 && dc == 0 {
					continue
				}
				n := Cell{Row: c.Row + dr, Col: c.Col + dc}
				if !s.Contains(n) {
					continue
				}
				if !yield(n) {
					return
				}
			}
		}
	}
}

func (s Size) NeighborCount(c Cell) (n int) {
	for range s.Neighbors(c) {
		n++
	}
	return
}

// Cells yields every cell of the grid in row-major order.
func (s Size) Cells() iter.Seq[Cell] {
	return func(yield func(Cell) bool) {
		for r := range s.Height {
			for c := range s.Width {
				if !yield(Cell{Row: r, Col: c}) {
					return
				}
			}
		}
	}
}

func (s Size) AllCells() []Cell {
	cells := make([]Cell, 0, s.Area())
	for c := range s.Cells() {
		cells = append(cells, c)
	}
	return cells
}
