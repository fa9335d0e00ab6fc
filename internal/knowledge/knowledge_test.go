package knowledge

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vancomm/minesweeper-agent/internal/grid"
)

func TestMain(m *testing.M) {
	// Log.SetLevel(logrus.DebugLevel)
	Log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	m.Run()
}

var square = grid.Size{Height: 3, Width: 3}

func cell(r, c int) grid.Cell {
	return grid.Cell{Row: r, Col: c}
}

func TestObserveZeroMarksNeighborsSafe(t *testing.T) {
	kb := New(square)
	require.NoError(t, kb.Observe(cell(1, 1), 0))

	for n := range square.Neighbors(cell(1, 1)) {
		assert.True(t, kb.IsSafe(n), "%v should be safe", n)
	}
	assert.Len(t, kb.KnownSafes(), 9)
	assert.Empty(t, kb.KnownMines())
	assert.Empty(t, kb.Statements())
}

func TestObserveStoresStatement(t *testing.T) {
	kb := New(square)
	require.NoError(t, kb.Observe(cell(0, 0), 1))

	stmts := kb.Statements()
	require.Len(t, stmts, 1)
	assert.True(t, stmts[0].Equal(NewStatement(
		[]grid.Cell{cell(0, 1), cell(1, 0), cell(1, 1)}, 1,
	)))
	assert.Equal(t, []grid.Cell{cell(0, 0)}, kb.KnownSafes())
	assert.Empty(t, kb.KnownMines())
}

func TestSubsumptionDerivesSafeCell(t *testing.T) {
	kb := New(square)

	_, err := kb.insert(NewStatement([]grid.Cell{cell(0, 1), cell(1, 0)}, 1))
	require.NoError(t, err)
	_, err = kb.insert(NewStatement([]grid.Cell{cell(0, 1), cell(1, 0), cell(1, 1)}, 1))
	require.NoError(t, err)

	require.NoError(t, kb.Infer())

	assert.True(t, kb.IsSafe(cell(1, 1)))
	assert.Equal(t, 1, kb.Stats().Derived)
	for _, s := range kb.Statements() {
		assert.False(t, s.Contains(cell(1, 1)))
	}
}

func TestObservationCompletesSubset(t *testing.T) {
	kb := New(square)

	_, err := kb.insert(NewStatement([]grid.Cell{cell(0, 1), cell(1, 0)}, 1))
	require.NoError(t, err)
	require.NoError(t, kb.Infer())
	require.False(t, kb.IsSafe(cell(1, 1)))

	require.NoError(t, kb.Observe(cell(0, 0), 1))

	assert.True(t, kb.IsSafe(cell(1, 1)))
	assert.Equal(t, 1, kb.Stats().Derived)

	stmts := kb.Statements()
	require.Len(t, stmts, 1)
	assert.True(t, stmts[0].Equal(NewStatement([]grid.Cell{cell(0, 1), cell(1, 0)}, 1)))

	move, ok := kb.SafeMove()
	require.True(t, ok)
	assert.Equal(t, cell(1, 1), move)
}

func TestSubsumptionDerivesMine(t *testing.T) {
	kb := New(square)

	_, err := kb.insert(NewStatement([]grid.Cell{cell(0, 1), cell(1, 0)}, 1))
	require.NoError(t, err)
	_, err = kb.insert(NewStatement([]grid.Cell{cell(0, 1), cell(1, 0), cell(2, 2)}, 2))
	require.NoError(t, err)

	require.NoError(t, kb.Infer())

	assert.Equal(t, []grid.Cell{cell(2, 2)}, kb.KnownMines())
}

func TestObserveTwice(t *testing.T) {
	kb := New(square)
	require.NoError(t, kb.Observe(cell(0, 0), 1))
	before := kb.Statements()

	err := kb.Observe(cell(0, 0), 1)
	assert.True(t, errors.Is(err, ErrPrecondition))
	assert.True(t, errors.Is(err, ErrAlreadyObserved))
	assert.False(t, errors.Is(err, ErrContradiction))

	assert.Equal(t, 1, kb.Stats().Observations)
	assert.Len(t, kb.Statements(), len(before))
}

func TestObservePreconditions(t *testing.T) {
	testCases := []struct {
		name  string
		cell  grid.Cell
		count int
		err   error
	}{
		{"off board", cell(3, 0), 0, ErrOutOfBounds},
		{"negative row", cell(-1, 0), 0, ErrOutOfBounds},
		{"negative count", cell(1, 1), -1, ErrInvalidCount},
		{"count above neighbors", cell(0, 0), 4, ErrInvalidCount},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			kb := New(square)
			err := kb.Observe(test.cell, test.count)
			assert.True(t, errors.Is(err, ErrPrecondition), "got %v", err)
			assert.True(t, errors.Is(err, test.err), "got %v", err)
			assert.Empty(t, kb.MovesMade())
			assert.Empty(t, kb.KnownSafes())
		})
	}
}

func TestVacuousStatementDiscarded(t *testing.T) {
	kb := New(square)
	require.NoError(t, kb.Observe(cell(0, 0), 0))

	assert.Empty(t, kb.statements)
	assert.Empty(t, kb.index)
	assert.Len(t, kb.KnownSafes(), 4)

	// every neighbor is known, so the statement is empty from the start
	kb = New(square)
	require.NoError(t, kb.Observe(cell(1, 1), 0))
	require.NoError(t, kb.Observe(cell(0, 0), 0))
	assert.Empty(t, kb.statements)
	assert.Len(t, kb.MovesMade(), 2)
}

func TestObserveExcludesKnownMines(t *testing.T) {
	kb := New(grid.Size{Height: 1, Width: 3})

	require.NoError(t, kb.MarkMine(cell(0, 2)))
	require.NoError(t, kb.Observe(cell(0, 1), 1))

	assert.Equal(t, []grid.Cell{cell(0, 0), cell(0, 1)}, kb.KnownSafes())
	assert.Empty(t, kb.Statements())
}

func TestObserveChain(t *testing.T) {
	kb := New(grid.Size{Height: 1, Width: 3})

	require.NoError(t, kb.Observe(cell(0, 0), 0))
	assert.True(t, kb.IsSafe(cell(0, 1)))

	require.NoError(t, kb.Observe(cell(0, 1), 1))
	assert.Equal(t, []grid.Cell{cell(0, 2)}, kb.KnownMines())

	_, ok := kb.SafeMove()
	assert.False(t, ok)
}

func TestContradictions(t *testing.T) {
	t.Run("mine then safe", func(t *testing.T) {
		kb := New(square)
		require.NoError(t, kb.MarkMine(cell(2, 2)))
		err := kb.MarkSafe(cell(2, 2))
		assert.True(t, errors.Is(err, ErrContradiction), "got %v", err)
	})

	t.Run("observed known mine", func(t *testing.T) {
		kb := New(square)
		require.NoError(t, kb.MarkMine(cell(2, 2)))
		err := kb.Observe(cell(2, 2), 0)
		assert.True(t, errors.Is(err, ErrContradiction), "got %v", err)
	})

	t.Run("count below known mines", func(t *testing.T) {
		kb := New(square)
		require.NoError(t, kb.MarkMine(cell(0, 1)))
		err := kb.Observe(cell(0, 0), 0)
		assert.True(t, errors.Is(err, ErrContradiction), "got %v", err)
	})

	t.Run("count above unknown neighbors", func(t *testing.T) {
		kb := New(square)
		require.NoError(t, kb.MarkSafe(cell(0, 1)))
		require.NoError(t, kb.MarkSafe(cell(1, 0)))

		// only (1,1) is left unknown around the corner
		err := kb.Observe(cell(0, 0), 2)
		assert.True(t, errors.Is(err, ErrContradiction), "got %v", err)
		assert.False(t, errors.Is(err, ErrPrecondition))
		assert.Empty(t, kb.KnownMines())
	})

	t.Run("conflicting counts", func(t *testing.T) {
		kb := New(square)
		_, err := kb.insert(NewStatement([]grid.Cell{cell(0, 1), cell(1, 0)}, 1))
		require.NoError(t, err)
		_, err = kb.insert(NewStatement([]grid.Cell{cell(1, 0), cell(0, 1)}, 2))
		assert.True(t, errors.Is(err, ErrContradiction), "got %v", err)
	})

	t.Run("observations disagree", func(t *testing.T) {
		kb := New(grid.Size{Height: 1, Width: 3})
		require.NoError(t, kb.Observe(cell(0, 0), 1))
		require.True(t, kb.IsMine(cell(0, 1)))
		err := kb.Observe(cell(0, 2), 0)
		assert.True(t, errors.Is(err, ErrContradiction), "got %v", err)
	})
}

func TestDuplicateStatementRejected(t *testing.T) {
	kb := New(square)
	s := NewStatement([]grid.Cell{cell(0, 1), cell(1, 0)}, 1)

	added, err := kb.insert(s)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = kb.insert(s.Clone())
	require.NoError(t, err)
	assert.False(t, added)
	assert.Len(t, kb.Statements(), 1)
}

func TestStatementsCollapseAfterPropagation(t *testing.T) {
	kb := New(square)

	_, err := kb.insert(NewStatement([]grid.Cell{cell(0, 1), cell(1, 0)}, 1))
	require.NoError(t, err)
	_, err = kb.insert(NewStatement([]grid.Cell{cell(0, 1), cell(1, 0), cell(2, 2)}, 1))
	require.NoError(t, err)

	require.NoError(t, kb.MarkSafe(cell(2, 2)))
	assert.Len(t, kb.Statements(), 1)
}

func TestInferIsIdempotent(t *testing.T) {
	kb := New(grid.Size{Height: 4, Width: 4})
	require.NoError(t, kb.Observe(cell(0, 0), 1))
	require.NoError(t, kb.Observe(cell(3, 3), 1))
	require.NoError(t, kb.Observe(cell(0, 3), 2))

	before := kb.Stats()
	stmts := kb.Statements()

	require.NoError(t, kb.Infer())

	after := kb.Stats()
	assert.Equal(t, before.Classified, after.Classified)
	assert.Equal(t, before.Derived, after.Derived)
	assert.Equal(t, before.Passes+1, after.Passes)
	assert.Len(t, kb.Statements(), len(stmts))
}

func TestSafeMove(t *testing.T) {
	kb := New(square)

	_, ok := kb.SafeMove()
	assert.False(t, ok)

	require.NoError(t, kb.Observe(cell(0, 0), 0))

	move, ok := kb.SafeMove()
	require.True(t, ok)
	assert.Equal(t, cell(0, 1), move)

	again, _ := kb.SafeMove()
	assert.Equal(t, move, again)
	assert.Equal(t, []grid.Cell{cell(0, 0)}, kb.MovesMade())
}

func TestRandomMove(t *testing.T) {
	kb := New(grid.Size{Height: 1, Width: 3})
	r := rand.New(rand.NewPCG(1, 2))
	all := kb.Size().AllCells()

	require.NoError(t, kb.Observe(cell(0, 0), 1))
	require.True(t, kb.IsMine(cell(0, 1)))

	for range 20 {
		move, ok := kb.RandomMove(r, all)
		require.True(t, ok)
		assert.Equal(t, cell(0, 2), move)
	}

	require.NoError(t, kb.Observe(cell(0, 2), 1))
	_, ok := kb.RandomMove(r, all)
	assert.False(t, ok)
}

func TestRandomMoveCoversCandidates(t *testing.T) {
	kb := New(square)
	r := rand.New(rand.NewPCG(3, 4))
	seen := make(map[grid.Cell]bool)

	for range 500 {
		move, ok := kb.RandomMove(r, square.AllCells())
		require.True(t, ok)
		seen[move] = true
	}
	assert.Len(t, seen, 9)
	assert.Empty(t, kb.MovesMade())
}
