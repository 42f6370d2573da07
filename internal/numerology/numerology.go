// Package numerology reduces a draw's id sum to its single-digit
// reading. Master numbers 11, 22 and 33 halt the reduction early and
// carry their own meanings.
package numerology

// IsMaster reports whether n is one of the master numbers exempt from
// further reduction.
func IsMaster(n int) bool {
	return n == 11 || n == 22 || n == 33
}

// Reduce repeatedly replaces n with the sum of its decimal digits
// until a single digit remains, except that the reduction halts the
// moment an intermediate value is a master number. Reduce(29) == 11,
// because 2+9 = 11 stops the chain.
func Reduce(n int) int {
	if n < 0 {
		n = -n
	}
	for n > 9 && !IsMaster(n) {
		sum := 0
		for n > 0 {
			sum += n % 10
			n /= 10
		}
		n = sum
	}
	return n
}

var meanings = map[int]string{
	1:  "New beginnings, independence, and the will to lead.",
	2:  "Partnership, balance, and quiet diplomacy.",
	3:  "Creativity, expression, and joyful expansion.",
	4:  "Foundation, discipline, and steady work.",
	5:  "Change, freedom, and restless adventure.",
	6:  "Harmony, responsibility, and care for others.",
	7:  "Introspection, mystery, and the inner search.",
	8:  "Abundance, ambition, and material mastery.",
	9:  "Completion, compassion, and letting go.",
	11: "Master number: intuition and spiritual illumination.",
	22: "Master number: the master builder of grand designs.",
	33: "Master number: the master teacher of selfless love.",
}

// Meaning returns the reading for a reduced digit. Total over
// {1..9, 11, 22, 33}; anything outside that domain gets a defined
// fallback rather than a panic.
func Meaning(digit int) string {
	if m, ok := meanings[digit]; ok {
		return m
	}
	return "The cosmos holds this number's meaning close."
}
