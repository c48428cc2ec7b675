// Package words loads target-word dictionaries and draws random words from them.
package words

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/wordrace/internal/random"
)

//go:embed default.yaml
var defaultDictionary []byte

// ErrEmptyDictionary is returned when a dictionary has no usable words.
var ErrEmptyDictionary = errors.New("dictionary contains no usable words")

// yamlDictionary is the on-disk dictionary format.
type yamlDictionary struct {
	// Length, when non-zero, keeps only words of exactly this many letters.
	Length int      `yaml:"length"`
	Words  []string `yaml:"words"`
}

// Dictionary is an immutable, de-duplicated list of upper-case words.
//
// Invariant: Len() > 0.
type Dictionary struct {
	words []string
}

// New builds a Dictionary from raw words. Entries are trimmed and upper-cased;
// blanks, duplicates, entries with non-letters, and entries whose length
// differs from length (when length > 0) are skipped.
//
// Postcondition: Returns a non-empty Dictionary or ErrEmptyDictionary.
func New(raw []string, length int) (*Dictionary, error) {
	seen := make(map[string]struct{}, len(raw))
	words := make([]string, 0, len(raw))
	for _, w := range raw {
		w = strings.ToUpper(strings.TrimSpace(w))
		if w == "" || !lettersOnly(w) {
			continue
		}
		if length > 0 && len([]rune(w)) != length {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	if len(words) == 0 {
		return nil, ErrEmptyDictionary
	}
	return &Dictionary{words: words}, nil
}

func lettersOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// LoadBytes parses a YAML dictionary.
//
// Postcondition: Returns a non-empty Dictionary or a non-nil error.
func LoadBytes(data []byte) (*Dictionary, error) {
	var file yamlDictionary
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing dictionary YAML: %w", err)
	}
	return New(file.Words, file.Length)
}

// LoadFile reads a YAML dictionary from path.
//
// Precondition: path must point to a readable YAML file.
// Postcondition: Returns a non-empty Dictionary or a non-nil error.
func LoadFile(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dictionary %s: %w", path, err)
	}
	d, err := LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading dictionary %s: %w", path, err)
	}
	return d, nil
}

// Default returns the built-in five-letter dictionary.
func Default() *Dictionary {
	d, err := LoadBytes(defaultDictionary)
	if err != nil {
		panic("words: built-in dictionary is invalid: " + err.Error())
	}
	return d
}

// Load returns the dictionary at path, or the built-in one when path is empty.
func Load(path string) (*Dictionary, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// Len returns the number of words.
func (d *Dictionary) Len() int { return len(d.words) }

// Contains reports whether w (case-insensitive) is in the dictionary.
func (d *Dictionary) Contains(w string) bool {
	w = strings.ToUpper(strings.TrimSpace(w))
	for _, candidate := range d.words {
		if candidate == w {
			return true
		}
	}
	return false
}

// At returns the i-th word.
//
// Precondition: 0 <= i < Len().
func (d *Dictionary) At(i int) string { return d.words[i] }

// Picker draws uniformly random words from a Dictionary.
// It is safe for concurrent use when its Source is.
type Picker struct {
	dict *Dictionary
	src  random.Source
}

// NewPicker creates a Picker.
//
// Precondition: dict and src must be non-nil.
func NewPicker(dict *Dictionary, src random.Source) *Picker {
	return &Picker{dict: dict, src: src}
}

// RandomWord returns a word from the dictionary.
//
// Postcondition: The result is non-empty and Contains(result) is true.
func (p *Picker) RandomWord() string {
	return p.dict.At(p.src.Intn(p.dict.Len()))
}
