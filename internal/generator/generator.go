// Package generator picks random cipher keys.
package generator

import (
	"math/rand"
	"time"
)

// Generator produces random keys for a given key range.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeeded returns a deterministic Generator.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Key returns a key in [1, maxKey]. maxKey below 1 yields 0.
func (g *Generator) Key(maxKey int) int {
	if maxKey < 1 {
		return 0
	}
	return 1 + g.rnd.Intn(maxKey)
}
