// Package main provides the CLI entrypoint for tuicaesar.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tuicaesar/internal/attack"
	"github.com/verte-zerg/tuicaesar/internal/cipher"
	"github.com/verte-zerg/tuicaesar/internal/config"
	"github.com/verte-zerg/tuicaesar/internal/freq"
	"github.com/verte-zerg/tuicaesar/internal/generator"
	"github.com/verte-zerg/tuicaesar/internal/model"
	"github.com/verte-zerg/tuicaesar/internal/report"
	"github.com/verte-zerg/tuicaesar/internal/store"
	"github.com/verte-zerg/tuicaesar/internal/textfile"
	"github.com/verte-zerg/tuicaesar/internal/tui"
)

const (
	defaultPreview = report.DefaultPreview
	defaultTop     = 5
	defaultHistory = true
)

// options holds flag values shared by the subcommands.
type options struct {
	in        string
	out       string
	key       int
	preview   int
	workers   int
	tolerance float64
	top       int
	history   bool

	historyMode string
	historyLast int
}

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:           "tuicaesar",
		Short:         "Caesar cipher over the Russian alphabet with brute-force and frequency attacks",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMenuCmd(cmd, opts)
		},
	}
	addAnalysisFlags(rootCmd, opts)

	rootCmd.AddCommand(newTransformCmd(model.ModeEncrypt))
	rootCmd.AddCommand(newTransformCmd(model.ModeDecrypt))
	rootCmd.AddCommand(newBruteCmd())
	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newFreqCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func addIOFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().StringVarP(&opts.in, "in", "i", "", "input file (default: stdin)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file (default: stdout)")
}

func addKeyFlag(cmd *cobra.Command, opts *options) {
	cmd.Flags().IntVarP(&opts.key, "key", "k", 0, fmt.Sprintf("shift key (1-%d)", cipher.Default.Alphabet().MaxKey()))
}

func addAnalysisFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().IntVar(&opts.preview, "preview", defaultPreview, "runes shown per decoding (0 shows everything)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "parallel key workers (default: number of CPUs)")
	cmd.Flags().Float64Var(&opts.tolerance, "tolerance", attack.DefaultTolerance, "score distance treated as a tie")
	cmd.Flags().BoolVar(&opts.history, "history", defaultHistory, "record completed operations")
}

func runMenuCmd(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	st, closeStore := openHistory(cfg)
	defer closeStore()

	m := tui.NewModel(cfg, newAnalyzer(cfg), st)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newTransformCmd(mode model.Mode) *cobra.Command {
	opts := &options{}
	short := "Encrypt text with a key"
	if mode == model.ModeDecrypt {
		short = "Decrypt text with a key"
	}
	cmd := &cobra.Command{
		Use:   string(mode),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTransformCmd(cmd, opts, mode)
		},
	}
	addIOFlags(cmd, opts)
	addKeyFlag(cmd, opts)
	cmd.Flags().BoolVar(&opts.history, "history", defaultHistory, "record completed operations")
	return cmd
}

func runTransformCmd(cmd *cobra.Command, opts *options, mode model.Mode) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	if cfg.Key == 0 {
		if mode != model.ModeEncrypt {
			return fmt.Errorf("--key is required for %s", mode)
		}
		cfg.Key = generator.New().Key(cipher.Default.Alphabet().MaxKey())
		logErrf("Using random key %d\n", cfg.Key)
	}
	text, err := readInput(cmd, opts.in)
	if err != nil {
		return err
	}
	out, err := cipher.Transform(text, cfg.Key, mode == model.ModeEncrypt)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd, opts.out, out); err != nil {
		return err
	}
	recordOperation(cfg, model.Operation{
		Mode:       mode,
		InputPath:  opts.in,
		OutputPath: opts.out,
		Key:        cfg.Key,
		Runes:      utf8.RuneCountInString(text),
	})
	return nil
}

func newBruteCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "brute",
		Short: "Show a decoding for every key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBruteCmd(cmd, opts)
		},
	}
	addIOFlags(cmd, opts)
	addKeyFlag(cmd, opts)
	addAnalysisFlags(cmd, opts)
	return cmd
}

func runBruteCmd(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	text, err := readInput(cmd, opts.in)
	if err != nil {
		return err
	}
	analyzer := newAnalyzer(cfg)
	decodings, err := analyzer.BruteForce(cmd.Context(), text)
	if err != nil {
		return fmt.Errorf("failed to brute force: %w", err)
	}
	if opts.out == "" {
		if err := report.RenderDecodings(cmd.OutOrStdout(), decodings, cfg.Preview); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	// Saving requires an explicit key: brute force does not rank.
	if !cmd.Flags().Changed("key") {
		return fmt.Errorf("--key is required with --out")
	}
	if err := cipher.ValidateKey(opts.key); err != nil {
		return err
	}
	if err := writeOutput(cmd, opts.out, decodings[opts.key-1].Text); err != nil {
		return err
	}
	recordOperation(cfg, model.Operation{
		Mode:       model.ModeBrute,
		InputPath:  opts.in,
		OutputPath: opts.out,
		Key:        opts.key,
		Runes:      utf8.RuneCountInString(text),
	})
	return nil
}

func newAnalyzeCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Find likely keys by letter frequency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyzeCmd(cmd, opts)
		},
	}
	addIOFlags(cmd, opts)
	addKeyFlag(cmd, opts)
	addAnalysisFlags(cmd, opts)
	cmd.Flags().IntVar(&opts.top, "top", defaultTop, "rows in the ranking table (0 shows every key)")
	return cmd
}

func runAnalyzeCmd(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	text, err := readInput(cmd, opts.in)
	if err != nil {
		return err
	}
	analyzer := newAnalyzer(cfg)
	ranked, candidates, err := analyzer.Analyze(cmd.Context(), text)
	if err != nil {
		return fmt.Errorf("failed to analyze: %w", err)
	}

	key := candidates[0]
	if cmd.Flags().Changed("key") {
		if !containsKey(candidates, opts.key) {
			return fmt.Errorf("key %d is not a candidate (candidates: %s)", opts.key, report.FormatKeys(candidates))
		}
		key = opts.key
	}

	// With --out the report goes to stderr so stdout stays free for piping.
	w := cmd.OutOrStdout()
	if opts.out != "" {
		w = cmd.ErrOrStderr()
	}
	if err := renderAnalysis(w, analyzer, text, ranked, candidates, cfg); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if opts.out == "" {
		return nil
	}

	plain, err := analyzer.Engine().Decrypt(text, key)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd, opts.out, plain); err != nil {
		return err
	}
	recordOperation(cfg, model.Operation{
		Mode:       model.ModeAnalyze,
		InputPath:  opts.in,
		OutputPath: opts.out,
		Key:        key,
		Candidates: candidates,
		Runes:      utf8.RuneCountInString(text),
	})
	return nil
}

func renderAnalysis(w io.Writer, analyzer *attack.Analyzer, text string, ranked []attack.KeyScore, candidates []int, cfg model.Config) error {
	if err := report.RenderCandidates(w, candidates); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	if err := report.RenderRanking(w, ranked, candidates, cfg.Top); err != nil {
		return err
	}
	decodings := make([]attack.Decoding, 0, len(candidates))
	for _, key := range candidates {
		plain, err := analyzer.Engine().Decrypt(text, key)
		if err != nil {
			return err
		}
		decodings = append(decodings, attack.Decoding{Key: key, Text: plain})
	}
	return report.RenderDecodings(w, decodings, cfg.Preview)
}

func newFreqCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "freq",
		Short: "Compare letter frequencies with the Russian reference",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := readInput(cmd, opts.in)
			if err != nil {
				return err
			}
			if err := report.RenderFrequency(cmd.OutOrStdout(), text, freq.Reference, 0); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.in, "in", "i", "", "input file (default: stdin)")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show completed operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistoryCmd(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.historyMode, "mode", "", "mode filter (encrypt, decrypt, brute, analyze)")
	cmd.Flags().IntVar(&opts.historyLast, "last", 0, "limit to last N operations")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, opts *options) error {
	mode := model.Mode(strings.TrimSpace(strings.ToLower(opts.historyMode)))
	if mode != "" && !mode.Valid() {
		return fmt.Errorf("unknown mode %q", opts.historyMode)
	}
	if opts.historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	ops, err := st.ListOperations(cmd.Context(), model.HistoryFilter{Mode: mode, Last: opts.historyLast})
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	return report.RenderHistory(cmd.OutOrStdout(), ops)
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// loadConfig merges the config file under the flags that were set
// explicitly and validates the result.
func loadConfig(cmd *cobra.Command, opts *options) (model.Config, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.preview == 0 && !cmd.Flags().Changed("preview") {
		opts.preview = defaultPreview
	}
	if opts.tolerance == 0 && !cmd.Flags().Changed("tolerance") {
		opts.tolerance = attack.DefaultTolerance
	}
	if opts.top == 0 && !cmd.Flags().Changed("top") {
		opts.top = defaultTop
	}
	if cmd.Flags().Lookup("history") == nil {
		opts.history = defaultHistory
	}
	applyIntConfig(cmd, "key", &opts.key, fileCfg.Cipher.Key)
	applyIntConfig(cmd, "preview", &opts.preview, fileCfg.Analysis.Preview)
	applyIntConfig(cmd, "workers", &opts.workers, fileCfg.Analysis.Workers)
	applyFloatConfig(cmd, "tolerance", &opts.tolerance, fileCfg.Analysis.Tolerance)
	applyIntConfig(cmd, "top", &opts.top, fileCfg.Analysis.Top)
	applyBoolConfig(cmd, "history", &opts.history, fileCfg.History.Enabled)

	cfg := model.Config{
		Key:       opts.key,
		Preview:   opts.preview,
		Workers:   opts.workers,
		Tolerance: opts.tolerance,
		Top:       opts.top,
		History:   opts.history,
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg model.Config) error {
	if cfg.Key != 0 {
		if err := cipher.ValidateKey(cfg.Key); err != nil {
			return fmt.Errorf("--key: %w", err)
		}
	}
	if cfg.Preview < 0 {
		return fmt.Errorf("--preview must be >= 0")
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("--workers must be >= 0")
	}
	if cfg.Tolerance <= 0 {
		return fmt.Errorf("--tolerance must be > 0")
	}
	if cfg.Top < 0 {
		return fmt.Errorf("--top must be >= 0")
	}
	return nil
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# tuicaesar configuration
# Uncomment a value to enable it. CLI flags override config values.

[cipher]
# key = 3                 # Default key for encrypt/decrypt (1-%d)

[analysis]
# preview = %d           # Runes shown per decoding (0 shows everything)
# workers = 0             # Parallel key workers (0 = number of CPUs)
# tolerance = %g        # Score distance treated as a tie
# top = %d                 # Rows in the analyze ranking table

[history]
# enabled = %t            # Record completed operations
`,
		cipher.Default.Alphabet().MaxKey(),
		defaultPreview,
		attack.DefaultTolerance,
		defaultTop,
		defaultHistory,
	)
}

func newAnalyzer(cfg model.Config) *attack.Analyzer {
	return attack.NewAnalyzer(cipher.Default, attack.Options{
		Tolerance: cfg.Tolerance,
		Workers:   cfg.Workers,
	})
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "" || path == "-" {
		text, err := textfile.ReadFrom(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return text, nil
	}
	return textfile.Read(path)
}

func writeOutput(cmd *cobra.Command, path, text string) error {
	if path == "" || path == "-" {
		if _, err := io.WriteString(cmd.OutOrStdout(), text); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	if err := textfile.Write(path, text); err != nil {
		return err
	}
	logErrf("Wrote %s\n", path)
	return nil
}

// openHistory opens the history store when enabled. Failures disable history
// instead of aborting the run.
func openHistory(cfg model.Config) (*store.Store, func()) {
	if !cfg.History {
		return nil, func() {}
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		logErrf("failed to open history db: %v\n", err)
		return nil, func() {}
	}
	return st, func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}
}

func recordOperation(cfg model.Config, op model.Operation) {
	st, closeStore := openHistory(cfg)
	defer closeStore()
	if st == nil {
		return
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now()
	}
	if _, err := st.InsertOperation(context.Background(), op); err != nil {
		logErrf("failed to save history: %v\n", err)
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

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
