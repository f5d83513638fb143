// Package freq computes letter frequency distributions and compares them
// against a reference language model.
package freq

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Letters are the 32 scored upper-case letters А..Я in code point order.
// Ё sits outside that range and is not scored.
var Letters = buildLetters()

// Distribution maps a letter to its share of the counted letters, in percent.
// A letter absent from the map reads as 0.
type Distribution map[rune]float64

// Get returns the percentage for r, or 0 when r is absent.
func (d Distribution) Get(r rune) float64 {
	return d[r]
}

// Sum returns the total over Letters.
func (d Distribution) Sum() float64 {
	var total float64
	for _, r := range Letters {
		total += d[r]
	}
	return total
}

// Reference holds expected letter frequencies of Russian prose.
var Reference = Distribution{
	'О': 10.97,
	'Е': 8.45,
	'А': 8.01,
	'И': 7.35,
	'Н': 6.70,
	'Т': 6.26,
	'С': 5.47,
	'Р': 4.73,
	'В': 4.54,
	'Л': 4.40,
	'К': 3.49,
	'М': 3.21,
	'Д': 3.01,
	'П': 2.81,
	'У': 2.62,
	'Я': 2.01,
	'Ы': 1.95,
	'Ь': 1.74,
	'Г': 1.70,
	'З': 1.65,
	'Б': 1.59,
	'Ч': 1.44,
	'Й': 1.21,
	'Х': 0.96,
	'Ж': 0.94,
	'Ш': 0.73,
	'Ц': 0.48,
	'Ю': 0.47,
	'Э': 0.36,
	'Ф': 0.25,
	'Щ': 0.25,
	'Ъ': 0.04,
}

// Counts returns occurrences of each scored letter after upper-casing text,
// and their total. Everything else is ignored.
func Counts(text string) (map[rune]int, int) {
	counts := make(map[rune]int, len(Letters))
	for _, r := range Letters {
		counts[r] = 0
	}
	total := 0
	upper := cases.Upper(language.Russian).String(text)
	for _, r := range upper {
		if !isLetter(r) {
			continue
		}
		counts[r]++
		total++
	}
	return counts, total
}

// Calculate returns the percentage distribution of Letters in text. Text
// without any scored letter yields all zeros.
func Calculate(text string) Distribution {
	counts, total := Counts(text)
	dist := make(Distribution, len(Letters))
	for _, r := range Letters {
		if total == 0 {
			dist[r] = 0
			continue
		}
		dist[r] = float64(counts[r]) * 100.0 / float64(total)
	}
	return dist
}

// Score is the sum of squared differences between observed and reference over
// Letters. Lower is a closer match; 0 is exact.
func Score(observed, reference Distribution) float64 {
	var score float64
	for _, r := range Letters {
		diff := observed.Get(r) - reference.Get(r)
		score += diff * diff
	}
	return score
}

func isLetter(r rune) bool {
	return r >= 'А' && r <= 'Я'
}

func buildLetters() []rune {
	letters := make([]rune, 0, 32)
	for r := 'А'; r <= 'Я'; r++ {
		letters = append(letters, r)
	}
	return letters
}
