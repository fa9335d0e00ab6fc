package knowledge

import (
	"math/rand/v2"

	"github.com/vancomm/minesweeper-agent/internal/grid"
)

// SafeMove returns an unplayed cell known to be safe, preferring the first
// one in row-major order. It never modifies the knowledge base.
func (kb *KnowledgeBase) SafeMove() (cell grid.Cell, ok bool) {
	for c := range kb.safes {
		if kb.movesMade.has(c) {
			continue
		}
		if !ok || grid.Compare(c, cell) < 0 {
			cell, ok = c, true
		}
	}
	return
}

/*
RandomMove picks uniformly among cells that have not been played and are
not known to be mines. ok is false when no such cell is left.
*/
func (kb *KnowledgeBase) RandomMove(r *rand.Rand, cells []grid.Cell) (grid.Cell, bool) {
	candidates := make([]grid.Cell, 0, len(cells))
	for _, c := range cells {
		if kb.movesMade.has(c) || kb.mines.has(c) {
			continue
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return grid.Cell{}, false
	}
	return candidates[r.IntN(len(candidates))], true
}
