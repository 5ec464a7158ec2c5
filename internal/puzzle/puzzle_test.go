package puzzle_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/duel24/internal/domain"
	"github.com/victornm/duel24/internal/errors"
	"github.com/victornm/duel24/internal/puzzle"
)

func TestSolvable(t *testing.T) {
	tests := map[string]struct {
		numbers domain.Puzzle
		want    bool
	}{
		"plain product": {
			numbers: domain.Puzzle{4, 6, 1, 1},
			want:    true,
		},

		"needs a fractional intermediate (8/(3-8/3))": {
			numbers: domain.Puzzle{3, 3, 8, 8},
			want:    true,
		},

		"needs division below one (5*(5-1/5))": {
			numbers: domain.Puzzle{1, 5, 5, 5},
			want:    true,
		},

		"all ones cannot reach 24": {
			numbers: domain.Puzzle{1, 1, 1, 1},
			want:    false,
		},

		"small numbers capped below 24": {
			numbers: domain.Puzzle{1, 1, 1, 2},
			want:    false,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, puzzle.Solvable(tt.numbers))
		})
	}
}

func TestGenerator_Generate(t *testing.T) {
	g := puzzle.NewGenerator(puzzle.Config{
		Rand: rand.New(rand.NewSource(1)),
	})

	for i := 0; i < 200; i++ {
		p, err := g.Generate()
		require.NoError(t, err)

		for _, n := range p {
			require.GreaterOrEqual(t, n, 1)
			require.LessOrEqual(t, n, 13)
		}

		require.True(t, puzzle.Solvable(p), "generated puzzle %v must be solvable", p)
	}
}

func TestGenerator_retryCap(t *testing.T) {
	g := puzzle.NewGenerator(puzzle.Config{
		Rand:        rand.New(rand.NewSource(1)),
		MaxAttempts: 5,
		// A checker that never accepts simulates a regression; the
		// generator must fail fast instead of spinning.
		SolvableFunc: func(domain.Puzzle) bool { return false },
	})

	_, err := g.Generate()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInternal))
}
