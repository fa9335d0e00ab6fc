package knowledge

import (
	"fmt"

	"github.com/gammazero/deque"
	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper-agent/internal/grid"
)

var Log = logrus.New()

type fact struct {
	cell grid.Cell
	mine bool
}

type Stats struct {
	Observations int `json:"observations"`
	Passes       int `json:"passes"`
	Classified   int `json:"classified"`
	Derived      int `json:"derived"`
}

/*
KnowledgeBase accumulates what one player knows about one board. Every
field only grows: facts, once established, are permanent.

A KnowledgeBase is owned by a single game session and must not be used
from more than one goroutine at a time.
*/
type KnowledgeBase struct {
	size      grid.Size
	movesMade cellset
	safes     cellset
	mines     cellset

	statements []*Statement
	index      map[string]*Statement // cell set key -> statement
	dirty      bool                  // statements mutated since index was built

	todo  deque.Deque[fact]
	stats Stats
}

func New(size grid.Size) *KnowledgeBase {
	return &KnowledgeBase{
		size:      size,
		movesMade: make(cellset),
		safes:     make(cellset),
		mines:     make(cellset),
		index:     make(map[string]*Statement),
	}
}

func (kb *KnowledgeBase) Size() grid.Size {
	return kb.size
}

/*
Observe records that cell was opened and is surrounded by count mines,
then runs inference until nothing new can be derived.

Observing a cell twice, a cell off the board, or a count the cell's
neighborhood cannot hold is a [PreconditionError] and leaves the
knowledge base unchanged.
*/
func (kb *KnowledgeBase) Observe(cell grid.Cell, count int) error {
	log := Log.WithFields(logrus.Fields{
		"op": "observe", "cell": cell, "count": count,
	})

	if !kb.size.Contains(cell) {
		return PreconditionError{Op: "observe", Cell: cell, Err: ErrOutOfBounds}
	}
	if kb.movesMade.has(cell) {
		return PreconditionError{Op: "observe", Cell: cell, Err: ErrAlreadyObserved}
	}
	if count < 0 || count > kb.size.NeighborCount(cell) {
		return PreconditionError{Op: "observe", Cell: cell, Err: ErrInvalidCount}
	}
	if kb.mines.has(cell) {
		return ContradictionError{
			Reason: fmt.Sprintf("cell %v observed safe but known to be a mine", cell),
		}
	}

	kb.movesMade.add(cell)
	kb.stats.Observations++

	if _, err := kb.classify(cell, false); err != nil {
		return err
	}

	/*
	 * Known neighbors never enter the new statement; a known mine still
	 * accounts for one of the counted mines.
	 */
	s := &Statement{cells: make(cellset, 8), count: count}
	for n := range kb.size.Neighbors(cell) {
		switch {
		case kb.safes.has(n):
		case kb.mines.has(n):
			s.count--
		default:
			s.cells.add(n)
		}
	}
	if err := s.check(); err != nil {
		return err
	}

	added, err := kb.insert(s)
	if err != nil {
		return err
	}
	log.WithField("added", added).Debugf("observed %v", s)

	return kb.Infer()
}

// MarkMine records a fact learned outside of observations. It does not
// run inference; call [KnowledgeBase.Infer] afterwards.
func (kb *KnowledgeBase) MarkMine(cell grid.Cell) error {
	return kb.mark(cell, true)
}

func (kb *KnowledgeBase) MarkSafe(cell grid.Cell) error {
	return kb.mark(cell, false)
}

func (kb *KnowledgeBase) mark(cell grid.Cell, mine bool) error {
	if !kb.size.Contains(cell) {
		return PreconditionError{Op: "mark " + kind(mine), Cell: cell, Err: ErrOutOfBounds}
	}
	if _, err := kb.classify(cell, mine); err != nil {
		return err
	}
	return kb.compact()
}

/*
Classify cell and propagate the fact into every live statement. Returns
false if the cell was already known the same way.
*/
func (kb *KnowledgeBase) classify(cell grid.Cell, mine bool) (bool, error) {
	known, opposite := kb.safes, kb.mines
	if mine {
		known, opposite = kb.mines, kb.safes
	}

	if opposite.has(cell) {
		return false, ContradictionError{
			Reason: fmt.Sprintf("cell %v classified as %s after %s",
				cell, kind(mine), kind(!mine)),
		}
	}
	if known.has(cell) {
		return false, nil
	}

	known.add(cell)
	kb.stats.Classified++

	for _, s := range kb.statements {
		if !s.Contains(cell) {
			continue
		}
		var err error
		if mine {
			err = s.RemoveAsMine(cell)
		} else {
			err = s.RemoveAsSafe(cell)
		}
		if err != nil {
			return true, err
		}
		kb.dirty = true
	}
	return true, nil
}

func kind(mine bool) string {
	if mine {
		return "mine"
	}
	return "safe"
}

/*
Insert s unless it is vacuous or its cell set is already known. Two
statements over the same cells with different counts cannot both hold.
*/
func (kb *KnowledgeBase) insert(s *Statement) (bool, error) {
	if err := kb.compact(); err != nil {
		return false, err
	}
	if s.Vacuous() {
		return false, nil
	}

	key := s.key()
	if existing, ok := kb.index[key]; ok {
		if existing.count != s.count {
			return false, ContradictionError{
				Reason:    fmt.Sprintf("conflicts with %v", existing),
				Statement: s.String(),
			}
		}
		return false, nil
	}

	kb.statements = append(kb.statements, s)
	kb.index[key] = s
	return true, nil
}

/*
Drop vacuous statements and collapse statements that became equal after
propagation, then rebuild the index.
*/
func (kb *KnowledgeBase) compact() error {
	if !kb.dirty {
		return nil
	}

	index := make(map[string]*Statement, len(kb.statements))
	live := kb.statements[:0]
	for _, s := range kb.statements {
		if s.Vacuous() {
			if s.count != 0 {
				return ContradictionError{Reason: "empty statement", Statement: s.String()}
			}
			continue
		}
		key := s.key()
		if existing, ok := index[key]; ok {
			if existing.count != s.count {
				return ContradictionError{
					Reason:    fmt.Sprintf("conflicts with %v", existing),
					Statement: s.String(),
				}
			}
			continue
		}
		index[key] = s
		live = append(live, s)
	}
	clear(kb.statements[len(live):])

	kb.statements = live
	kb.index = index
	kb.dirty = false
	return nil
}

func (kb *KnowledgeBase) IsSafe(c grid.Cell) bool {
	return kb.safes.has(c)
}

func (kb *KnowledgeBase) IsMine(c grid.Cell) bool {
	return kb.mines.has(c)
}

func (kb *KnowledgeBase) Observed(c grid.Cell) bool {
	return kb.movesMade.has(c)
}

func (kb *KnowledgeBase) KnownSafes() []grid.Cell {
	return sorted(kb.safes)
}

func (kb *KnowledgeBase) KnownMines() []grid.Cell {
	return sorted(kb.mines)
}

func (kb *KnowledgeBase) MovesMade() []grid.Cell {
	return sorted(kb.movesMade)
}

// Statements returns copies of the live, non-vacuous statements.
func (kb *KnowledgeBase) Statements() []*Statement {
	ret := make([]*Statement, 0, len(kb.statements))
	for _, s := range kb.statements {
		if !s.Vacuous() {
			ret = append(ret, s.Clone())
		}
	}
	return ret
}

func (kb *KnowledgeBase) Stats() Stats {
	return kb.stats
}
