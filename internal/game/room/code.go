package room

import (
	"strings"

	"github.com/cory-johannsen/wordrace/internal/random"
)

// DefaultAlphabet is the base-36 digit set used for room codes.
const DefaultAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// DefaultCodeLength is the number of characters in a room code.
const DefaultCodeLength = 4

// CodeGenerator produces short upper-case room codes.
type CodeGenerator struct {
	src      random.Source
	alphabet string
	length   int
}

// NewCodeGenerator creates a generator over DefaultAlphabet.
//
// Precondition: src must be non-nil; length must be > 0.
func NewCodeGenerator(src random.Source, length int) *CodeGenerator {
	if length <= 0 {
		panic("room.NewCodeGenerator: length must be > 0")
	}
	return &CodeGenerator{src: src, alphabet: DefaultAlphabet, length: length}
}

// Generate draws one candidate code.
//
// Postcondition: len(result) == length and every byte is in the alphabet.
func (g *CodeGenerator) Generate() string {
	var b strings.Builder
	b.Grow(g.length)
	for i := 0; i < g.length; i++ {
		b.WriteByte(g.alphabet[g.src.Intn(len(g.alphabet))])
	}
	return b.String()
}

// Unique draws candidates until exists reports one as free.
// The loop has no attempt cap.
//
// Precondition: exists must be consistent for the duration of the call
// (callers hold the registry lock).
func (g *CodeGenerator) Unique(exists func(code string) bool) string {
	for {
		code := g.Generate()
		if !exists(code) {
			return code
		}
	}
}

// NormalizeCode trims and upper-cases a client-supplied room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
