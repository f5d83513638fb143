// Package cipher implements the Caesar shift over an alphabet.
package cipher

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/verte-zerg/tuicaesar/internal/alphabet"
)

// ErrInvalidKey is returned for keys outside [1, N-1].
var ErrInvalidKey = errors.New("invalid key")

// Engine shifts text over a fixed alphabet. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	alpha *alphabet.Alphabet
}

// Default is the engine over alphabet.Default.
var Default = New(alphabet.Default)

// New returns an engine for the given alphabet.
func New(alpha *alphabet.Alphabet) *Engine {
	return &Engine{alpha: alpha}
}

// Alphabet returns the alphabet the engine shifts over.
func (e *Engine) Alphabet() *alphabet.Alphabet {
	return e.alpha
}

// ValidateKey checks that key is in [1, N-1].
func (e *Engine) ValidateKey(key int) error {
	if key < 1 || key > e.alpha.MaxKey() {
		return fmt.Errorf("%w: %d (must be between 1 and %d)", ErrInvalidKey, key, e.alpha.MaxKey())
	}
	return nil
}

// ParseKey parses and validates a decimal key.
func (e *Engine) ParseKey(s string) (int, error) {
	key, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidKey, s)
	}
	if err := e.ValidateKey(key); err != nil {
		return 0, err
	}
	return key, nil
}

// Transform shifts every alphabet symbol of text by key, forward when encrypt
// is true and backward otherwise. Symbols outside the alphabet, newlines
// included, are copied unchanged. The result has as many runes as text.
func (e *Engine) Transform(text string, key int, encrypt bool) (string, error) {
	if err := e.ValidateKey(key); err != nil {
		return "", err
	}
	if text == "" {
		return "", nil
	}
	n := e.alpha.Len()
	shift := key
	if !encrypt {
		shift = (n - key) % n
	}
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		idx, ok := e.alpha.Index(r)
		if !ok {
			b.WriteRune(r)
			continue
		}
		b.WriteRune(e.alpha.At((idx + shift) % n))
	}
	return b.String(), nil
}

// Encrypt is Transform with encrypt set.
func (e *Engine) Encrypt(text string, key int) (string, error) {
	return e.Transform(text, key, true)
}

// Decrypt is Transform with encrypt cleared.
func (e *Engine) Decrypt(text string, key int) (string, error) {
	return e.Transform(text, key, false)
}

// Transform runs Default.Transform.
func Transform(text string, key int, encrypt bool) (string, error) {
	return Default.Transform(text, key, encrypt)
}

// ValidateKey runs Default.ValidateKey.
func ValidateKey(key int) error {
	return Default.ValidateKey(key)
}

// ParseKey runs Default.ParseKey.
func ParseKey(s string) (int, error) {
	return Default.ParseKey(s)
}
