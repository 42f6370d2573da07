// Package draw is the selection engine: it picks the winning particle
// ids for one lottery draw. Two policies share the same contract, a
// uniform without-replacement draw (the fair one) and the legacy
// highest-speed pick, chosen by configuration.
package draw

import (
	"fmt"
	"sort"
)

// Source yields uniform floats in [0,1). Satisfied by *rand.Rand and
// by the entropy clients.
type Source interface {
	Float64() float64
}

// InsufficientError reports a draw that asked for more ids than the
// pool holds. The draw still succeeds with every remaining id; this is
// reported, not fatal.
type InsufficientError struct {
	Want, Got int
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("insufficient particles: wanted %d, drew %d", e.Want, e.Got)
}

// UniformWithoutReplacement draws min(k, len(ids)) ids by repeated
// uniform sampling from a shrinking pool: at each step every remaining
// id has equal probability, and no id is drawn twice. The returned
// order is the draw order. The input slice is not modified.
func UniformWithoutReplacement(src Source, ids []int, k int) ([]int, error) {
	pool := append([]int(nil), ids...)

	n := k
	var insufficient error
	if n > len(pool) {
		insufficient = &InsufficientError{Want: k, Got: len(pool)}
		n = len(pool)
	}

	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		idx := int(src.Float64() * float64(len(pool)))
		if idx >= len(pool) { // Float64 can return values arbitrarily close to 1.
			idx = len(pool) - 1
		}
		out = append(out, pool[idx])
		pool[idx] = pool[len(pool)-1]
		pool = pool[:len(pool)-1]
	}
	return out, insufficient
}

// Candidate pairs an id with its current scalar speed for the
// max-speed policy.
type Candidate struct {
	ID    int
	Speed float64
}

// MaxSpeed picks the min(k, len(cands)) fastest candidates, fastest
// first, breaking speed ties by lower id. This is the legacy "the
// particle with the highest velocity wins" policy.
func MaxSpeed(cands []Candidate, k int) ([]int, error) {
	sorted := append([]Candidate(nil), cands...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Speed != sorted[j].Speed {
			return sorted[i].Speed > sorted[j].Speed
		}
		return sorted[i].ID < sorted[j].ID
	})

	n := k
	var insufficient error
	if n > len(sorted) {
		insufficient = &InsufficientError{Want: k, Got: len(sorted)}
		n = len(sorted)
	}

	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = sorted[i].ID
	}
	return out, insufficient
}
