// Package attack recovers Caesar keys by exhaustive search and by letter
// frequency analysis.
package attack

import (
	"context"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/tuicaesar/internal/cipher"
	"github.com/verte-zerg/tuicaesar/internal/freq"
)

// DefaultTolerance is the score distance under which two keys count as tied.
const DefaultTolerance = 1e-6

// Decoding is the result of decrypting with one key.
type Decoding struct {
	Key  int
	Text string
}

// KeyScore is the frequency score of one key's decoding.
type KeyScore struct {
	Key   int
	Score float64
}

// Options configures an Analyzer. Zero values select defaults.
type Options struct {
	Reference freq.Distribution
	Tolerance float64
	Workers   int
}

// Analyzer scores every key of an engine against a reference distribution.
type Analyzer struct {
	engine    *cipher.Engine
	reference freq.Distribution
	tolerance float64
	workers   int
}

var defaultAnalyzer = NewAnalyzer(cipher.Default, Options{})

// NewAnalyzer returns an Analyzer over engine.
func NewAnalyzer(engine *cipher.Engine, opts Options) *Analyzer {
	a := &Analyzer{
		engine:    engine,
		reference: opts.Reference,
		tolerance: opts.Tolerance,
		workers:   opts.Workers,
	}
	if a.reference == nil {
		a.reference = freq.Reference
	}
	if a.tolerance <= 0 {
		a.tolerance = DefaultTolerance
	}
	if a.workers <= 0 {
		a.workers = runtime.GOMAXPROCS(0)
	}
	return a
}

// Engine returns the cipher engine the analyzer decodes with.
func (a *Analyzer) Engine() *cipher.Engine {
	return a.engine
}

// BruteForce decodes text with every key from 1 to N-1, in key order.
func (a *Analyzer) BruteForce(ctx context.Context, text string) ([]Decoding, error) {
	out := make([]Decoding, a.engine.Alphabet().MaxKey())
	err := a.forEachKey(ctx, func(key int) error {
		decoded, err := a.engine.Decrypt(text, key)
		if err != nil {
			return err
		}
		out[key-1] = Decoding{Key: key, Text: decoded}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Scores returns the frequency score of every key's decoding, in key order.
func (a *Analyzer) Scores(ctx context.Context, text string) ([]KeyScore, error) {
	out := make([]KeyScore, a.engine.Alphabet().MaxKey())
	err := a.forEachKey(ctx, func(key int) error {
		decoded, err := a.engine.Decrypt(text, key)
		if err != nil {
			return err
		}
		out[key-1] = KeyScore{Key: key, Score: freq.Score(freq.Calculate(decoded), a.reference)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Candidates returns the best-scoring keys in ascending order. The result is
// never empty for a non-empty key range.
func (a *Analyzer) Candidates(ctx context.Context, text string) ([]int, error) {
	scores, err := a.Scores(ctx, text)
	if err != nil {
		return nil, err
	}
	return SelectCandidates(scores, a.tolerance), nil
}

// Rank returns every key ordered by score, best first; ties keep key order.
func (a *Analyzer) Rank(ctx context.Context, text string) ([]KeyScore, error) {
	scores, err := a.Scores(ctx, text)
	if err != nil {
		return nil, err
	}
	return RankScores(scores), nil
}

// Analyze scores every key once and returns both the ranking and the
// candidate keys.
func (a *Analyzer) Analyze(ctx context.Context, text string) ([]KeyScore, []int, error) {
	scores, err := a.Scores(ctx, text)
	if err != nil {
		return nil, nil, err
	}
	return RankScores(scores), SelectCandidates(scores, a.tolerance), nil
}

// RankScores returns a copy of scores ordered best first; ties keep their
// input order.
func RankScores(scores []KeyScore) []KeyScore {
	ranked := make([]KeyScore, len(scores))
	copy(ranked, scores)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score < ranked[j].Score
	})
	return ranked
}

func (a *Analyzer) forEachKey(ctx context.Context, fn func(key int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for key := 1; key <= a.engine.Alphabet().MaxKey(); key++ {
		key := key
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(key)
		})
	}
	return g.Wait()
}

// SelectCandidates walks scores in the given order, keeping the keys at the
// running minimum. A strictly lower score restarts the set; a score within
// tolerance of the minimum joins it. The result is sorted ascending.
func SelectCandidates(scores []KeyScore, tolerance float64) []int {
	best := math.MaxFloat64
	var keys []int
	for _, ks := range scores {
		switch {
		case ks.Score < best:
			best = ks.Score
			keys = keys[:0]
			keys = append(keys, ks.Key)
		case math.Abs(ks.Score-best) < tolerance:
			keys = append(keys, ks.Key)
		}
	}
	sort.Ints(keys)
	return keys
}

// BruteForce decodes text with every key of the default alphabet.
func BruteForce(text string) []Decoding {
	// Background is never cancelled and every key in range is valid.
	out, _ := defaultAnalyzer.BruteForce(context.Background(), text)
	return out
}

// StatisticalAttack returns the best-matching keys for text under the
// default alphabet and the Russian reference table.
func StatisticalAttack(text string) []int {
	keys, _ := defaultAnalyzer.Candidates(context.Background(), text)
	return keys
}
