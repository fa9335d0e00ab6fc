package knowledge

import (
	"slices"

	"github.com/sirupsen/logrus"
)

/*
Infer runs resolution and subsumption passes until a full pass neither
classifies a cell nor adds a statement.

Termination follows from the board being finite: every classification
shrinks the set of unknown cells, and every derived statement is a new
distinct subset of an existing statement's cells.
*/
func (kb *KnowledgeBase) Infer() error {
	for {
		kb.stats.Passes++

		classified, err := kb.resolve()
		if err != nil {
			return err
		}

		derived, err := kb.subsume()
		if err != nil {
			return err
		}

		if !classified && !derived {
			return nil
		}
	}
}

/*
Classify every cell of every trivially resolved statement. Classifying a
cell mutates the other statements that contain it, so the scan repeats
until it yields nothing.
*/
func (kb *KnowledgeBase) resolve() (changed bool, err error) {
	defer kb.todo.Clear()

	for {
		for _, s := range kb.statements {
			for _, c := range s.ResolvedMines() {
				kb.todo.PushBack(fact{cell: c, mine: true})
			}
			for _, c := range s.ResolvedSafe() {
				kb.todo.PushBack(fact{cell: c, mine: false})
			}
		}
		if kb.todo.Len() == 0 {
			return changed, nil
		}

		for kb.todo.Len() != 0 {
			f := kb.todo.PopFront()
			ok, err := kb.classify(f.cell, f.mine)
			if err != nil {
				return changed, err
			}
			if ok {
				changed = true
				Log.WithFields(logrus.Fields{
					"op": "resolve", "cell": f.cell, "mine": f.mine,
				}).Debug("classified")
			}
		}

		if err := kb.compact(); err != nil {
			return changed, err
		}
	}
}

/*
For every pair of statements A, B with A's cells a proper subset of B's,
the cells only in B hold exactly B.count - A.count mines. Add each such
statement that is not already known.
*/
func (kb *KnowledgeBase) subsume() (added bool, err error) {
	if err := kb.compact(); err != nil {
		return false, err
	}

	current := slices.Clone(kb.statements)
	for _, a := range current {
		if a.Vacuous() {
			continue
		}
		for _, b := range current {
			if a == b || !a.properSubsetOf(b) {
				continue
			}

			c := b.minus(a)
			if err := c.check(); err != nil {
				return added, err
			}

			ok, err := kb.insert(c)
			if err != nil {
				return added, err
			}
			if ok {
				added = true
				kb.stats.Derived++
				Log.WithFields(logrus.Fields{
					"op": "subsume", "subset": a, "superset": b,
				}).Debugf("derived %v", c)
			}
		}
	}
	return added, nil
}
