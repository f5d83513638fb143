// Package model defines shared data structures.
package model

import "time"

// Mode names a cipher operation.
type Mode string

// Operation modes, matching the interactive menu entries.
const (
	ModeEncrypt Mode = "encrypt"
	ModeDecrypt Mode = "decrypt"
	ModeBrute   Mode = "brute"
	ModeAnalyze Mode = "analyze"
)

// Modes lists every mode in menu order.
var Modes = []Mode{ModeEncrypt, ModeDecrypt, ModeBrute, ModeAnalyze}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	for _, known := range Modes {
		if m == known {
			return true
		}
	}
	return false
}

// Config defines cipher and analysis settings.
type Config struct {
	Key       int
	Preview   int
	Workers   int
	Tolerance float64
	Top       int
	History   bool
}

// Operation records a completed cipher run.
type Operation struct {
	ID         int64
	CreatedAt  time.Time
	Mode       Mode
	InputPath  string
	OutputPath string
	Key        int
	Candidates []int
	Runes      int
}

// HistoryFilter narrows history listings.
type HistoryFilter struct {
	Mode Mode
	Last int
}
