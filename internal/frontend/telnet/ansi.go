// Package telnet is a line-oriented text front end for playing over telnet
// or netcat. It speaks just enough of RFC 854 to ignore option negotiation.
package telnet

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/wordrace/internal/game/words"
)

// ANSI escape codes.
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"

	BrightBlack = "\033[90m"

	BgGreen      = "\033[42m"
	BgYellow     = "\033[43m"
	BgBrightGray = "\033[100m"
)

// Colorize wraps text with color and a reset suffix.
func Colorize(color, text string) string {
	return color + text + Reset
}

// Colorf formats and then colorizes.
func Colorf(color, format string, args ...any) string {
	return color + fmt.Sprintf(format, args...) + Reset
}

// StripANSI removes \033[...m sequences.
func StripANSI(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\033' && i+1 < len(s) && s[i+1] == '[' {
			if end := strings.IndexByte(s[i+2:], 'm'); end >= 0 {
				i += end + 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func tileColor(s words.LetterStatus) string {
	switch s {
	case words.Correct:
		return BgGreen
	case words.Present:
		return BgYellow
	default:
		return BgBrightGray
	}
}

// Tiles renders a graded guess as colored letter tiles.
//
// Precondition: len(statuses) == len(guess).
func Tiles(guess string, statuses []words.LetterStatus) string {
	var b strings.Builder
	for i, s := range statuses {
		b.WriteString(Colorf(tileColor(s)+Bold, " %c ", guess[i]))
	}
	return b.String()
}

// Blocks renders statuses without letters, for opponents' guesses.
func Blocks(statuses []words.LetterStatus) string {
	var b strings.Builder
	for _, s := range statuses {
		b.WriteString(Colorize(tileColor(s), "   "))
		b.WriteByte(' ')
	}
	return strings.TrimRight(b.String(), " ")
}
