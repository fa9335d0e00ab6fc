package knowledge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vancomm/minesweeper-agent/internal/grid"
)

/*
Statement asserts that exactly count of its cells are mines. Every
statement owns its cell set; marking a cell updates each statement that
contains it independently.
*/
type Statement struct {
	cells cellset
	count int
}

func NewStatement(cells []grid.Cell, count int) *Statement {
	return &Statement{cells: newCellSet(cells...), count: count}
}

func (s *Statement) Count() int {
	return s.count
}

func (s *Statement) Len() int {
	return len(s.cells)
}

// Cells returns the statement's cells in row-major order.
func (s *Statement) Cells() []grid.Cell {
	return sorted(s.cells)
}

func (s *Statement) Contains(c grid.Cell) bool {
	return s.cells.has(c)
}

// Vacuous statements carry no information.
func (s *Statement) Vacuous() bool {
	return len(s.cells) == 0
}

func (s *Statement) Equal(o *Statement) bool {
	if s.count != o.count || len(s.cells) != len(o.cells) {
		return false
	}
	for c := range s.cells {
		if !o.cells.has(c) {
			return false
		}
	}
	return true
}

func (s *Statement) Clone() *Statement {
	return &Statement{cells: s.cells.clone(), count: s.count}
}

// ResolvedMines returns every cell when all of them must be mines.
func (s *Statement) ResolvedMines() []grid.Cell {
	if len(s.cells) == 0 || s.count != len(s.cells) {
		return nil
	}
	return sorted(s.cells)
}

// ResolvedSafe returns every cell when none of them can be a mine.
func (s *Statement) ResolvedSafe() []grid.Cell {
	if s.count != 0 {
		return nil
	}
	return sorted(s.cells)
}

func (s *Statement) RemoveAsMine(c grid.Cell) error {
	if !s.cells.has(c) {
		return nil
	}
	delete(s.cells, c)
	s.count--
	return s.check()
}

func (s *Statement) RemoveAsSafe(c grid.Cell) error {
	if !s.cells.has(c) {
		return nil
	}
	delete(s.cells, c)
	return s.check()
}

func (s *Statement) check() error {
	if s.count < 0 || s.count > len(s.cells) {
		return ContradictionError{
			Reason:    fmt.Sprintf("count %d outside [0, %d]", s.count, len(s.cells)),
			Statement: s.String(),
		}
	}
	return nil
}

func (s *Statement) properSubsetOf(o *Statement) bool {
	if len(s.cells) >= len(o.cells) {
		return false
	}
	for c := range s.cells {
		if !o.cells.has(c) {
			return false
		}
	}
	return true
}

// minus returns the statement about the cells of s that are not in o.
func (s *Statement) minus(o *Statement) *Statement {
	d := &Statement{cells: make(cellset, len(s.cells)), count: s.count - o.count}
	for c := range s.cells {
		if !o.cells.has(c) {
			d.cells.add(c)
		}
	}
	return d
}

// key identifies the cell set regardless of count.
func (s *Statement) key() string {
	var b strings.Builder
	for _, c := range sorted(s.cells) {
		b.WriteString(strconv.Itoa(c.Row))
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(c.Col))
		b.WriteByte(';')
	}
	return b.String()
}

// [Statement] implements [fmt.Stringer]
func (s *Statement) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, c := range sorted(s.cells) {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(c.String())
	}
	fmt.Fprintf(&b, "} = %d", s.count)
	return b.String()
}
