// internal/feedback/feedback.go
//
// Letter-position feedback for a guess against a target word.
// Responsibilities:
//   - Score a guess using the two-pass, duplicate-safe algorithm.
//   - Render marks as the coloured squares shown in chat trails.
//
// Notes:
//   - Inputs are expected to be validated, equal-length, uppercase A–Z.
//   - Each target letter is matched at most once across both passes.
package feedback

import "strings"

// Mark is the evaluation result for a single letter of a guess.
type Mark string

const (
	MarkExact   Mark = "exact"   // right letter, right position
	MarkPresent Mark = "present" // letter occurs elsewhere in the target
	MarkAbsent  Mark = "absent"  // no unmatched instance left in the target
)

// Score implements the two-pass scoring algorithm.
//
// Pass 1:
//   - Mark exact matches and take that letter out of the target pool.
//   - Count the remaining (non-exact) target letters.
//
// Pass 2:
//   - For each non-exact guess letter: if the pool still holds that letter,
//     mark Present and consume one instance; otherwise mark Absent.
func Score(guess, target string) []Mark {
	n := len(guess)
	res := make([]Mark, n)

	// Remaining target letters, A–Z.
	var pool [26]int

	for i := 0; i < len(target); i++ {
		if i < n && guess[i] == target[i] {
			res[i] = MarkExact
		} else if j := idx(target[i]); j >= 0 {
			pool[j]++
		}
	}

	for i := 0; i < n; i++ {
		if res[i] == MarkExact {
			continue
		}
		if j := idx(guess[i]); j >= 0 && pool[j] > 0 {
			res[i] = MarkPresent
			pool[j]--
		} else {
			res[i] = MarkAbsent
		}
	}
	return res
}

// AllExact reports whether every mark is MarkExact.
func AllExact(m []Mark) bool {
	if len(m) == 0 {
		return false
	}
	for _, x := range m {
		if x != MarkExact {
			return false
		}
	}
	return true
}

// Render returns the square-per-letter rendering used in guess trails.
func Render(m []Mark) string {
	var b strings.Builder
	for _, x := range m {
		switch x {
		case MarkExact:
			b.WriteString("🟩")
		case MarkPresent:
			b.WriteString("🟨")
		default:
			b.WriteString("🟥")
		}
	}
	return b.String()
}

// idx maps an uppercase ASCII letter to 0..25, or -1.
func idx(c byte) int {
	if c < 'A' || c > 'Z' {
		return -1
	}
	return int(c - 'A')
}
