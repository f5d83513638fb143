package tui

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tuicaesar/internal/attack"
	"github.com/verte-zerg/tuicaesar/internal/model"
	"github.com/verte-zerg/tuicaesar/internal/report"
	"github.com/verte-zerg/tuicaesar/internal/store"
	"github.com/verte-zerg/tuicaesar/internal/textfile"
)

type state int

const (
	stateMenu state = iota
	stateInputPath
	stateKey
	stateResults
	stateOutputPath
)

const (
	headerHeight = 2
	footerHeight = 3
	promptHeight = 1
)

var menuItems = []struct {
	key   string
	mode  model.Mode
	label string
}{
	{key: "1", mode: model.ModeEncrypt, label: "Encrypt a file"},
	{key: "2", mode: model.ModeDecrypt, label: "Decrypt a file with a key"},
	{key: "3", mode: model.ModeBrute, label: "Brute force"},
	{key: "4", mode: model.ModeAnalyze, label: "Brute force with statistical analysis"},
}

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	menuStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7FBF7F"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

// Model implements the interactive cipher menu.
type Model struct {
	cfg      model.Config
	analyzer *attack.Analyzer
	store    *store.Store

	width  int
	height int

	state   state
	mode    model.Mode
	input   textinput.Model
	results viewport.Model

	inputPath  string
	content    string
	key        int
	candidates []int

	status string
	errMsg string
}

// NewModel constructs the menu model. st may be nil to skip history.
func NewModel(cfg model.Config, analyzer *attack.Analyzer, st *store.Store) *Model {
	m := &Model{
		cfg:      cfg,
		analyzer: analyzer,
		store:    st,
		input:    textinput.New(),
		results:  viewport.New(80, 20),
	}
	m.input.CharLimit = 0
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.state == stateMenu {
			return m.updateMenu(msg)
		}
		switch msg.String() {
		case "esc":
			m.backToMenu("Operation cancelled.")
			return m, nil
		case "enter":
			m.submit()
			return m, nil
		case "up", "down", "pgup", "pgdown":
			if m.state == stateResults {
				var cmd tea.Cmd
				m.results, cmd = m.results.Update(msg)
				return m, cmd
			}
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	parts := []string{m.renderHeader()}
	switch m.state {
	case stateMenu:
		parts = append(parts, m.renderMenu())
	case stateResults:
		parts = append(parts, m.results.View(), m.input.View())
	default:
		parts = append(parts, m.input.View())
	}
	parts = append(parts, m.renderFooter())
	return strings.Join(parts, "\n")
}

func (m *Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "0", "q", "esc":
		return m, tea.Quit
	}
	for _, item := range menuItems {
		if msg.String() == item.key {
			m.mode = item.mode
			m.status = ""
			m.errMsg = ""
			return m, m.prompt(stateInputPath, "Input file: ")
		}
	}
	m.errMsg = "Invalid choice. Try again."
	return m, nil
}

func (m *Model) prompt(next state, label string) tea.Cmd {
	m.state = next
	m.input.Prompt = label
	m.input.SetValue("")
	return m.input.Focus()
}

func (m *Model) submit() {
	m.errMsg = ""
	value := strings.TrimSpace(m.input.Value())
	switch m.state {
	case stateInputPath:
		m.submitInputPath(value)
	case stateKey:
		key, err := m.analyzer.Engine().ParseKey(value)
		if err != nil {
			m.errMsg = err.Error()
			return
		}
		m.key = key
		m.prompt(stateOutputPath, "Output file: ")
	case stateResults:
		m.submitChosenKey(value)
	case stateOutputPath:
		m.submitOutputPath(value)
	}
}

func (m *Model) submitInputPath(path string) {
	if path == "" {
		m.errMsg = "Enter a file path."
		return
	}
	content, err := textfile.Read(path)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.inputPath = path
	m.content = content

	ctx := context.Background()
	switch m.mode {
	case model.ModeEncrypt, model.ModeDecrypt:
		m.prompt(stateKey, fmt.Sprintf("Key (1-%d): ", m.analyzer.Engine().Alphabet().MaxKey()))
	case model.ModeBrute:
		decodings, err := m.analyzer.BruteForce(ctx, content)
		if err != nil {
			m.errMsg = err.Error()
			return
		}
		var buf bytes.Buffer
		if err := report.RenderDecodings(&buf, decodings, m.cfg.Preview); err != nil {
			m.errMsg = err.Error()
			return
		}
		m.showResults(buf.String(), "Key to save (0 to cancel): ")
	case model.ModeAnalyze:
		candidates, err := m.analyzer.Candidates(ctx, content)
		if err != nil {
			m.errMsg = err.Error()
			return
		}
		m.candidates = candidates
		var buf bytes.Buffer
		if err := report.RenderCandidates(&buf, candidates); err != nil {
			m.errMsg = err.Error()
			return
		}
		decodings := make([]attack.Decoding, 0, len(candidates))
		for _, key := range candidates {
			text, err := m.analyzer.Engine().Decrypt(content, key)
			if err != nil {
				m.errMsg = err.Error()
				return
			}
			decodings = append(decodings, attack.Decoding{Key: key, Text: text})
		}
		if err := report.RenderDecodings(&buf, decodings, m.cfg.Preview); err != nil {
			m.errMsg = err.Error()
			return
		}
		m.showResults(buf.String(), "Key from the list (0 to cancel): ")
	}
}

func (m *Model) showResults(content, label string) {
	m.results.SetContent(wrapText(content, m.results.Width))
	m.results.GotoTop()
	m.prompt(stateResults, label)
}

func (m *Model) submitChosenKey(value string) {
	if value == "0" {
		m.backToMenu("Operation cancelled.")
		return
	}
	key, err := m.analyzer.Engine().ParseKey(value)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	if m.mode == model.ModeAnalyze && !containsKey(m.candidates, key) {
		m.errMsg = "Choose a key from the list or 0."
		return
	}
	m.key = key
	m.prompt(stateOutputPath, "Output file: ")
}

func (m *Model) submitOutputPath(path string) {
	if path == "" {
		m.errMsg = "Enter a file path."
		return
	}
	out, err := m.analyzer.Engine().Transform(m.content, m.key, m.mode == model.ModeEncrypt)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	if err := textfile.Write(path, out); err != nil {
		m.errMsg = err.Error()
		return
	}
	histErr := m.recordOperation(path)
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	status := fmt.Sprintf("Saved %s result to %s", m.mode, abs)
	if histErr != nil {
		// Stderr is hidden behind the alt screen, so report it in the footer.
		status += fmt.Sprintf(" (history not saved: %v)", histErr)
	}
	m.backToMenu(status)
}

func (m *Model) recordOperation(outputPath string) error {
	if m.store == nil {
		return nil
	}
	op := model.Operation{
		CreatedAt:  time.Now(),
		Mode:       m.mode,
		InputPath:  m.inputPath,
		OutputPath: outputPath,
		Key:        m.key,
		Candidates: m.candidates,
		Runes:      utf8.RuneCountInString(m.content),
	}
	if _, err := m.store.InsertOperation(context.Background(), op); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

func (m *Model) backToMenu(status string) {
	m.state = stateMenu
	m.status = status
	m.inputPath = ""
	m.content = ""
	m.key = 0
	m.candidates = nil
	m.input.SetValue("")
	m.input.Blur()
	m.results.SetContent("")
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	m.results.Width = m.width
	m.results.Height = max(1, m.height-headerHeight-footerHeight-promptHeight)
	m.input.Width = max(10, m.width-lipgloss.Width(m.input.Prompt)-2)
}

func (m *Model) renderHeader() string {
	title := "Caesar Cipher"
	for _, item := range menuItems {
		if m.state != stateMenu && item.mode == m.mode {
			title += " · " + item.label
		}
	}
	return titleStyle.Render(title) + "\n"
}

func (m *Model) renderMenu() string {
	lines := make([]string, 0, len(menuItems)+2)
	lines = append(lines, "Choose a mode:")
	for _, item := range menuItems {
		lines = append(lines, fmt.Sprintf("%s - %s", item.key, item.label))
	}
	lines = append(lines, "0 - Exit")
	return menuStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderFooter() string {
	lines := []string{""}
	switch {
	case m.errMsg != "":
		lines = append(lines, errorStyle.Render(m.errMsg))
	case m.status != "":
		lines = append(lines, statusStyle.Render(m.status))
	default:
		lines = append(lines, "")
	}
	help := "Confirm: enter  Back: esc"
	switch m.state {
	case stateMenu:
		help = "Choose: 1-4  Quit: 0/q"
	case stateResults:
		help = "Scroll: up/down/pgup/pgdn  Confirm: enter  Back: esc"
	}
	lines = append(lines, helpStyle.Render(help))
	return strings.Join(lines, "\n")
}

func containsKey(keys []int, key int) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
