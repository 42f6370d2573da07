package draw

import (
	"errors"
	"testing"

	"github.com/talgya/cosmic-lottery/internal/entropy"
)

func idRange(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i + 1
	}
	return ids
}

func TestUniformWithoutReplacementDistinct(t *testing.T) {
	src := entropy.NewSeeded(1)
	ids := idRange(100)

	for trial := 0; trial < 200; trial++ {
		out, err := UniformWithoutReplacement(src, ids, 6)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(out) != 6 {
			t.Fatalf("drew %d ids, want 6", len(out))
		}
		seen := make(map[int]bool)
		for _, id := range out {
			if id < 1 || id > 100 {
				t.Fatalf("id %d outside pool", id)
			}
			if seen[id] {
				t.Fatalf("id %d drawn twice", id)
			}
			seen[id] = true
		}
	}
}

func TestUniformWithoutReplacementFullPool(t *testing.T) {
	src := entropy.NewSeeded(2)
	out, err := UniformWithoutReplacement(src, idRange(10), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := make(map[int]bool)
	for _, id := range out {
		seen[id] = true
	}
	if len(seen) != 10 {
		t.Fatalf("full draw is not a permutation: %v", out)
	}
}

func TestUniformWithoutReplacementInsufficient(t *testing.T) {
	src := entropy.NewSeeded(3)
	out, err := UniformWithoutReplacement(src, idRange(4), 6)

	var insufficient *InsufficientError
	if !errors.As(err, &insufficient) {
		t.Fatalf("want InsufficientError, got %v", err)
	}
	if insufficient.Want != 6 || insufficient.Got != 4 {
		t.Fatalf("wrong error detail: %+v", insufficient)
	}
	if len(out) != 4 {
		t.Fatalf("degraded draw returned %d ids, want 4", len(out))
	}
}

func TestUniformWithoutReplacementDoesNotMutateInput(t *testing.T) {
	src := entropy.NewSeeded(4)
	ids := idRange(20)
	if _, err := UniformWithoutReplacement(src, ids, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, id := range ids {
		if id != i+1 {
			t.Fatalf("input slice mutated at %d: %v", i, ids)
		}
	}
}

// Marginal selection frequency should be approximately uniform: no id
// may have structurally higher odds than another.
func TestUniformWithoutReplacementFairness(t *testing.T) {
	src := entropy.NewSeeded(5)
	ids := idRange(10)

	const trials = 20000
	counts := make(map[int]int)
	for i := 0; i < trials; i++ {
		out, err := UniformWithoutReplacement(src, ids, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		counts[out[0]]++
	}

	expected := trials / len(ids) // 2000 per id
	for _, id := range ids {
		c := counts[id]
		if c < expected*8/10 || c > expected*12/10 {
			t.Errorf("id %d drawn %d times, expected about %d", id, c, expected)
		}
	}
}

func TestMaxSpeed(t *testing.T) {
	cands := []Candidate{
		{ID: 1, Speed: 0.5},
		{ID: 2, Speed: 2.0},
		{ID: 3, Speed: 1.5},
		{ID: 4, Speed: 2.0}, // Tie with 2; lower id wins.
		{ID: 5, Speed: 0.1},
	}

	out, err := MaxSpeed(cands, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{2, 4, 3}
	if len(out) != len(want) {
		t.Fatalf("got %v, want %v", out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %v, want %v", out, want)
		}
	}
}

func TestMaxSpeedInsufficient(t *testing.T) {
	out, err := MaxSpeed([]Candidate{{ID: 1, Speed: 1}}, 6)
	var insufficient *InsufficientError
	if !errors.As(err, &insufficient) {
		t.Fatalf("want InsufficientError, got %v", err)
	}
	if len(out) != 1 || out[0] != 1 {
		t.Fatalf("degraded draw wrong: %v", out)
	}
}
