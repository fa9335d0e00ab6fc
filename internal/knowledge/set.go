package knowledge

import (
	"slices"

	"github.com/vancomm/minesweeper-agent/internal/grid"
)

type void struct{}

type set[T comparable] map[T]void

func (s set[T]) has(v T) bool {
	_, ok := s[v]
	return ok
}

func (s set[T]) add(v T) {
	s[v] = void{}
}

func (s set[T]) clone() set[T] {
	c := make(set[T], len(s))
	for k := range s {
		c[k] = void{}
	}
	return c
}

type cellset = set[grid.Cell]

func newCellSet(cells ...grid.Cell) cellset {
	s := make(cellset, len(cells))
	for _, c := range cells {
		s.add(c)
	}
	return s
}

func sorted(s cellset) []grid.Cell {
	cells := make([]grid.Cell, 0, len(s))
	for c := range s {
		cells = append(cells, c)
	}
	slices.SortFunc(cells, grid.Compare)
	return cells
}
