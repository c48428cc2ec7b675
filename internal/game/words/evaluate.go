package words

import "strings"

// LetterStatus grades one letter of a guess.
type LetterStatus string

const (
	Correct LetterStatus = "correct"
	Present LetterStatus = "present"
	Absent  LetterStatus = "absent"
)

// Evaluate grades guess against target, case-insensitively. A letter that
// appears more often in the guess than in the target is Present only as many
// times as the target has it unmatched.
//
// Precondition: len(guess) == len(target).
// Postcondition: len(result) == len(guess).
func Evaluate(guess, target string) []LetterStatus {
	g := []byte(strings.ToUpper(guess))
	t := []byte(strings.ToUpper(target))
	out := make([]LetterStatus, len(g))

	remaining := make(map[byte]int, len(t))
	for i := range g {
		if g[i] == t[i] {
			out[i] = Correct
			continue
		}
		remaining[t[i]]++
	}
	for i := range g {
		if out[i] == Correct {
			continue
		}
		if remaining[g[i]] > 0 {
			out[i] = Present
			remaining[g[i]]--
		} else {
			out[i] = Absent
		}
	}
	return out
}

// Solved reports whether every letter is Correct.
func Solved(statuses []LetterStatus) bool {
	for _, s := range statuses {
		if s != Correct {
			return false
		}
	}
	return len(statuses) > 0
}
