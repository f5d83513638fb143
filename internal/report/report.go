package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/verte-zerg/tuicaesar/internal/attack"
	"github.com/verte-zerg/tuicaesar/internal/freq"
	"github.com/verte-zerg/tuicaesar/internal/model"
)

const (
	// DefaultPreview is the number of runes shown per decoding.
	DefaultPreview = 300
	// Ellipsis marks a truncated preview.
	Ellipsis = "..."

	terminalWidthBackup = 80
	minBarWidth         = 10
	barChar             = "#"
	refMarker           = "|"
)

// Preview returns the first limit runes of text, followed by Ellipsis when
// anything was cut. A limit of 0 or less disables truncation.
func Preview(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	count := 0
	for i := range text {
		if count == limit {
			return text[:i] + Ellipsis
		}
		count++
	}
	return text
}

// RenderDecodings prints a preview of each decoding under its key.
func RenderDecodings(w io.Writer, decodings []attack.Decoding, preview int) error {
	for _, d := range decodings {
		if _, err := fmt.Fprintf(w, "\nKey: %d\n-----\n%s\n", d.Key, Preview(d.Text, preview)); err != nil {
			return err
		}
	}
	return nil
}

// RenderCandidates prints the candidate key list.
func RenderCandidates(w io.Writer, keys []int) error {
	_, err := fmt.Fprintf(w, "Candidate keys: %s\n", FormatKeys(keys))
	return err
}

// FormatKeys joins keys with commas.
func FormatKeys(keys []int) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = strconv.Itoa(k)
	}
	return strings.Join(parts, ", ")
}

// RenderRanking prints the top keys by score. Candidate keys are marked.
func RenderRanking(w io.Writer, ranked []attack.KeyScore, candidates []int, top int) error {
	if len(ranked) == 0 {
		_, err := fmt.Fprintln(w, "No keys scored.")
		return err
	}
	if top <= 0 || top > len(ranked) {
		top = len(ranked)
	}
	isCandidate := make(map[int]bool, len(candidates))
	for _, k := range candidates {
		isCandidate[k] = true
	}
	if _, err := fmt.Fprintln(w, "Ranking"); err != nil {
		return err
	}
	headers := []string{"#", "Key", "Score", "Best"}
	rows := make([][]string, 0, top)
	for i, ks := range ranked[:top] {
		mark := ""
		if isCandidate[ks.Key] {
			mark = "*"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(ks.Key),
			fmt.Sprintf("%.4f", ks.Score),
			mark,
		})
	}
	return writeLines(w, formatTable(headers, rows, map[int]bool{0: true, 1: true, 2: true}))
}

// RenderFrequency prints observed letter frequencies of text next to the
// reference table, with a bar per letter scaled to width. A width of 0 uses
// the terminal width.
func RenderFrequency(w io.Writer, text string, reference freq.Distribution, width int) error {
	counts, total := freq.Counts(text)
	observed := freq.Calculate(text)
	if _, err := fmt.Fprintf(w, "Letters counted: %d\n", total); err != nil {
		return err
	}
	if total == 0 {
		_, err := fmt.Fprintln(w, "No reference letters found.")
		return err
	}

	maxPct := 0.0
	for _, r := range freq.Letters {
		maxPct = math.Max(maxPct, math.Max(observed.Get(r), reference.Get(r)))
	}

	headers := []string{"Letter", "Count", "Text %", "Ref %", "Diff"}
	rows := make([][]string, 0, len(freq.Letters))
	for _, r := range freq.Letters {
		rows = append(rows, []string{
			string(r),
			strconv.Itoa(counts[r]),
			fmt.Sprintf("%.2f", observed.Get(r)),
			fmt.Sprintf("%.2f", reference.Get(r)),
			fmt.Sprintf("%+.2f", observed.Get(r)-reference.Get(r)),
		})
	}
	lines := formatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true})

	if width <= 0 {
		width = terminalWidth()
	}
	tableWidth := 0
	for _, line := range lines {
		tableWidth = max(tableWidth, displayWidth(line))
	}
	barWidth := max(minBarWidth, width-tableWidth-2)
	for i, r := range freq.Letters {
		lines[i+1] = padCell(lines[i+1], tableWidth, false) + "  " + frequencyBar(observed.Get(r), reference.Get(r), maxPct, barWidth)
	}
	if err := writeLines(w, lines); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Score vs reference: %.4f\n", freq.Score(observed, reference))
	return err
}

func frequencyBar(observed, reference, maxPct float64, width int) string {
	if maxPct <= 0 || width <= 0 {
		return ""
	}
	filled := int(math.Round(observed / maxPct * float64(width)))
	ref := int(math.Round(reference / maxPct * float64(width)))
	cells := make([]string, width)
	for i := range cells {
		cells[i] = " "
		if i < filled {
			cells[i] = barChar
		}
	}
	if ref > 0 {
		cells[min(ref, width)-1] = refMarker
	}
	return strings.TrimRight(strings.Join(cells, ""), " ")
}

// RenderHistory prints stored operations.
func RenderHistory(w io.Writer, ops []model.Operation) error {
	if len(ops) == 0 {
		_, err := fmt.Fprintln(w, "No operations found.")
		return err
	}
	headers := []string{"When", "Mode", "Key", "Candidates", "Runes", "Input", "Output"}
	rows := make([][]string, 0, len(ops))
	for _, op := range ops {
		key := "-"
		if op.Key > 0 {
			key = strconv.Itoa(op.Key)
		}
		rows = append(rows, []string{
			op.CreatedAt.Local().Format("2006-01-02 15:04"),
			string(op.Mode),
			key,
			orDash(FormatKeys(op.Candidates)),
			strconv.Itoa(op.Runes),
			orDash(op.InputPath),
			orDash(op.OutputPath),
		})
	}
	return writeLines(w, formatTable(headers, rows, map[int]bool{2: true, 4: true}))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}
