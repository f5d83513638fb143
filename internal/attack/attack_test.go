package attack

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/verte-zerg/tuicaesar/internal/alphabet"
	"github.com/verte-zerg/tuicaesar/internal/cipher"
)

func loadSample(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "sample_ru.txt"))
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	return string(data)
}

func TestBruteForceCoversEveryKey(t *testing.T) {
	ciphertext, err := cipher.Transform("Привет, мир!", 9, true)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	decodings := BruteForce(ciphertext)
	if len(decodings) != alphabet.Default.MaxKey() {
		t.Fatalf("expected %d decodings, got %d", alphabet.Default.MaxKey(), len(decodings))
	}
	for i, d := range decodings {
		if d.Key != i+1 {
			t.Fatalf("expected key %d at position %d, got %d", i+1, i, d.Key)
		}
	}
	if decodings[8].Text != "Привет, мир!" {
		t.Fatalf("expected key 9 to restore plaintext, got %q", decodings[8].Text)
	}
}

func TestStatisticalAttackFindsKey(t *testing.T) {
	plaintext := loadSample(t)
	for _, key := range []int{1, 3, 17, 33, 38, 52, 70} {
		ciphertext, err := cipher.Transform(plaintext, key, true)
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}
		candidates := StatisticalAttack(ciphertext)
		if !containsKey(candidates, key) {
			t.Fatalf("key %d: expected candidates to contain key, got %v", key, candidates)
		}
	}
}

func TestStatisticalAttackAllTiedWithoutAlphabetSymbols(t *testing.T) {
	for _, text := range []string{"", "123\n456", "1+2=3\t"} {
		candidates := StatisticalAttack(text)
		if len(candidates) != alphabet.Default.MaxKey() {
			t.Fatalf("expected every key to tie for %q, got %d", text, len(candidates))
		}
		for i, key := range candidates {
			if key != i+1 {
				t.Fatalf("expected ascending keys, got %v", candidates)
			}
		}
	}
}

func TestStatisticalAttackSpaceOnlyInput(t *testing.T) {
	// Space is in the alphabet, so most keys decode it to a letter. Only keys
	// that map it to punctuation or Ё/ё leave the text letter-free.
	got := StatisticalAttack("123 456\n")
	want := []int{27, 60, 67, 68, 69, 70}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSelectCandidates(t *testing.T) {
	scores := []KeyScore{
		{Key: 1, Score: 10},
		{Key: 2, Score: 5},
		{Key: 3, Score: 5 + 1e-9},
		{Key: 4, Score: 7},
		{Key: 5, Score: 5 - 1e-7},
	}
	// Key 5 is strictly lower, so it restarts the set even though it is
	// within tolerance of keys 2 and 3.
	got := SelectCandidates(scores, DefaultTolerance)
	if len(got) != 1 || got[0] != 5 {
		t.Fatalf("expected [5], got %v", got)
	}
}

func TestSelectCandidatesTies(t *testing.T) {
	scores := []KeyScore{
		{Key: 1, Score: 3},
		{Key: 2, Score: 8},
		{Key: 3, Score: 3 + 5e-7},
		{Key: 4, Score: 3 + 2e-6},
	}
	got := SelectCandidates(scores, DefaultTolerance)
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("expected [1 3], got %v", got)
	}
	if got := SelectCandidates(scores, 1e-5); len(got) != 3 {
		t.Fatalf("expected a wider tolerance to admit key 4, got %v", got)
	}
}

func TestSelectCandidatesEmpty(t *testing.T) {
	if got := SelectCandidates(nil, DefaultTolerance); len(got) != 0 {
		t.Fatalf("expected no candidates, got %v", got)
	}
}

func TestRankOrdersByScore(t *testing.T) {
	plaintext := loadSample(t)
	ciphertext, err := cipher.Transform(plaintext, 21, true)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	a := NewAnalyzer(cipher.Default, Options{Workers: 2})
	ranked, err := a.Rank(context.Background(), ciphertext)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(ranked) != alphabet.Default.MaxKey() {
		t.Fatalf("expected %d entries, got %d", alphabet.Default.MaxKey(), len(ranked))
	}
	if ranked[0].Key != 21 {
		t.Fatalf("expected key 21 first, got %d", ranked[0].Key)
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score < ranked[i-1].Score {
			t.Fatalf("ranking not sorted at %d", i)
		}
	}
}

func TestAnalyzeMatchesRankAndCandidates(t *testing.T) {
	ciphertext, err := cipher.Transform(loadSample(t), 44, true)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	a := NewAnalyzer(cipher.Default, Options{Workers: 4})
	ctx := context.Background()
	ranked, candidates, err := a.Analyze(ctx, ciphertext)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	wantRanked, err := a.Rank(ctx, ciphertext)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	wantCandidates, err := a.Candidates(ctx, ciphertext)
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(ranked) != len(wantRanked) {
		t.Fatalf("expected %d ranked keys, got %d", len(wantRanked), len(ranked))
	}
	for i := range ranked {
		if ranked[i] != wantRanked[i] {
			t.Fatalf("ranking differs at %d: %+v vs %+v", i, ranked[i], wantRanked[i])
		}
	}
	if len(candidates) != 1 || candidates[0] != 44 || wantCandidates[0] != 44 {
		t.Fatalf("expected candidate 44, got %v (candidates %v)", candidates, wantCandidates)
	}
}

func TestRankScoresLeavesInputInKeyOrder(t *testing.T) {
	scores := []KeyScore{{Key: 1, Score: 3}, {Key: 2, Score: 1}, {Key: 3, Score: 2}, {Key: 4, Score: 1}}
	ranked := RankScores(scores)
	wantOrder := []int{2, 4, 3, 1}
	for i, key := range wantOrder {
		if ranked[i].Key != key {
			t.Fatalf("expected rank order %v, got %+v", wantOrder, ranked)
		}
	}
	for i, ks := range scores {
		if ks.Key != i+1 {
			t.Fatalf("input reordered: %+v", scores)
		}
	}
	if got := SelectCandidates(scores, DefaultTolerance); len(got) != 2 || got[0] != 2 || got[1] != 4 {
		t.Fatalf("expected candidates [2 4] from unsorted scores, got %v", got)
	}
}

func TestScoresMatchSerialOrder(t *testing.T) {
	a := NewAnalyzer(cipher.Default, Options{Workers: 8})
	scores, err := a.Scores(context.Background(), "Шифр")
	if err != nil {
		t.Fatalf("scores: %v", err)
	}
	for i, ks := range scores {
		if ks.Key != i+1 {
			t.Fatalf("expected key %d at %d, got %d", i+1, i, ks.Key)
		}
	}
}

func TestAnalyzerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := NewAnalyzer(cipher.Default, Options{Workers: 1})
	if _, err := a.Candidates(ctx, "текст"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := a.BruteForce(ctx, "текст"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func containsKey(keys []int, key int) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
