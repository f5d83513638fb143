// Package alphabet defines the ordered symbol sets the cipher shifts over.
package alphabet

import "fmt"

// Symbols is the default extended Cyrillic alphabet: 33 upper-case letters,
// 33 lower-case letters, then space and basic punctuation.
const Symbols = "АБВГДЕЁЖЗИЙКЛМНОПРСТУФХЦЧШЩЪЫЬЭЮЯабвгдеёжзийклмнопрстуфхцчшщъыьэюя .,!?"

// Default is the process-wide alphabet built from Symbols.
var Default = MustNew(Symbols)

// Alphabet is an immutable ordered set of runes with O(1) index lookup.
type Alphabet struct {
	runes []rune
	index map[rune]int
}

// New builds an alphabet from symbols. Order is kept; duplicates are rejected.
func New(symbols string) (*Alphabet, error) {
	runes := []rune(symbols)
	if len(runes) < 2 {
		return nil, fmt.Errorf("alphabet must contain at least 2 symbols, got %d", len(runes))
	}
	index := make(map[rune]int, len(runes))
	for i, r := range runes {
		if prev, ok := index[r]; ok {
			return nil, fmt.Errorf("duplicate symbol %q at positions %d and %d", r, prev, i)
		}
		index[r] = i
	}
	return &Alphabet{runes: runes, index: index}, nil
}

// MustNew is like New but panics on an invalid symbol set.
func MustNew(symbols string) *Alphabet {
	a, err := New(symbols)
	if err != nil {
		panic(err)
	}
	return a
}

// Len returns the number of symbols (the cipher modulus).
func (a *Alphabet) Len() int {
	return len(a.runes)
}

// MaxKey returns the largest valid shift.
func (a *Alphabet) MaxKey() int {
	return len(a.runes) - 1
}

// Index returns the position of r, or false when r is not in the alphabet.
func (a *Alphabet) Index(r rune) (int, bool) {
	i, ok := a.index[r]
	return i, ok
}

// Contains reports whether r is in the alphabet.
func (a *Alphabet) Contains(r rune) bool {
	_, ok := a.index[r]
	return ok
}

// At returns the symbol at position i. i must be in [0, Len()).
func (a *Alphabet) At(i int) rune {
	return a.runes[i]
}

// String returns the symbols in order.
func (a *Alphabet) String() string {
	return string(a.runes)
}
