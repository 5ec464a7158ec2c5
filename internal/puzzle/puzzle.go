// Package puzzle produces the four numbers of a round and decides whether a
// candidate set of numbers can be combined into 24 at all.
package puzzle

import (
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/victornm/duel24/internal/domain"
	"github.com/victornm/duel24/internal/errors"
	"github.com/victornm/duel24/internal/expr"
)

const (
	minNumber = 1
	maxNumber = 13

	defaultMaxAttempts = 1000
)

var generationRetries = promauto.NewCounter(prometheus.CounterOpts{
	Name: "duel24_puzzle_generation_retries_total",
	Help: "Number of candidate puzzles rejected as unsolvable during generation.",
})

type Config struct {
	// Rand is the randomness source. Defaults to a time-seeded source.
	Rand *rand.Rand

	// MaxAttempts caps the generate-and-check loop. Uniform draws in
	// [1,13] are solvable often enough that hitting the cap means the
	// solvability check itself has regressed; generation then fails fast
	// with CodeInternal instead of spinning. Defaults to 1000.
	MaxAttempts int

	// SolvableFunc overrides the solvability check, for tests.
	SolvableFunc func(domain.Puzzle) bool
}

// Generator produces solvable puzzles.
type Generator struct {
	mu          sync.Mutex
	rng         *rand.Rand
	maxAttempts int
	solvable    func(domain.Puzzle) bool
}

func NewGenerator(c Config) *Generator {
	g := &Generator{
		rng:         c.Rand,
		maxAttempts: c.MaxAttempts,
		solvable:    c.SolvableFunc,
	}

	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if g.maxAttempts <= 0 {
		g.maxAttempts = defaultMaxAttempts
	}
	if g.solvable == nil {
		g.solvable = Solvable
	}

	return g
}

// Generate samples four uniform numbers in [1,13] until the set is solvable.
// Every rejected candidate increments the retry counter.
func (g *Generator) Generate() (domain.Puzzle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		var p domain.Puzzle
		for i := range p {
			p[i] = minNumber + g.rng.Intn(maxNumber-minNumber+1)
		}

		if g.solvable(p) {
			return p, nil
		}

		generationRetries.Inc()
	}

	return domain.Puzzle{}, errors.New(errors.CodeInternal,
		errors.WithMessagef("no solvable puzzle after %d attempts", g.maxAttempts))
}

// Solvable reports whether the puzzle's numbers admit some expression over
// + - * / with each number used exactly once that reaches 24 within the
// shared tolerance.
//
// The search reduces the value set pairwise: pick two remaining values,
// combine them with one of the six operations (subtraction and division in
// both orders, division skipped for near-zero divisors), replace the pair
// with the result and recurse. A single remaining value solves the puzzle
// iff it is within tolerance of 24.
func Solvable(p domain.Puzzle) bool {
	vals := make([]float64, len(p))
	for i, n := range p {
		vals[i] = float64(n)
	}

	return reduce(vals)
}

func reduce(vals []float64) bool {
	if len(vals) == 1 {
		return expr.SolvesTarget(vals[0])
	}

	rest := make([]float64, 0, len(vals)-1)

	for i := 0; i < len(vals); i++ {
		for j := i + 1; j < len(vals); j++ {
			a, b := vals[i], vals[j]

			rest = rest[:0]
			for k, v := range vals {
				if k != i && k != j {
					rest = append(rest, v)
				}
			}

			for _, c := range combine(a, b) {
				if reduce(append(rest, c)) {
					return true
				}
			}
		}
	}

	return false
}

func combine(a, b float64) []float64 {
	out := []float64{a + b, a - b, b - a, a * b}
	if !expr.NearZero(b) {
		out = append(out, a/b)
	}
	if !expr.NearZero(a) {
		out = append(out, b/a)
	}
	return out
}
