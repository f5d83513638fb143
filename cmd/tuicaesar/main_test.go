package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/tuicaesar/internal/cipher"
)

func setupHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func readSample(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "internal", "attack", "testdata", "sample_ru.txt"))
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	return string(data)
}

func TestEncryptDecryptFiles(t *testing.T) {
	dir := setupHome(t)
	plain := filepath.Join(dir, "plain.txt")
	enc := filepath.Join(dir, "enc.txt")
	dec := filepath.Join(dir, "dec.txt")
	if err := os.WriteFile(plain, []byte("Съешь же ещё этих мягких булок!"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := execute(t, "", "encrypt", "--in", plain, "--out", enc, "--key", "7"); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := execute(t, "", "decrypt", "--in", enc, "--out", dec, "--key", "7"); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	got, err := os.ReadFile(dec)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "Съешь же ещё этих мягких булок!" {
		t.Fatalf("round trip mismatch: %q", got)
	}

	out, err := execute(t, "", "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "encrypt") || !strings.Contains(out, "decrypt") {
		t.Fatalf("expected both operations in history:\n%s", out)
	}
}

func TestEncryptStdinToStdout(t *testing.T) {
	setupHome(t)
	out, err := execute(t, "абв", "encrypt", "--key", "1", "--history=false")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if out != "бвг" {
		t.Fatalf("expected %q, got %q", "бвг", out)
	}
}

func TestDecryptRequiresKey(t *testing.T) {
	setupHome(t)
	if _, err := execute(t, "абв", "decrypt"); err == nil {
		t.Fatalf("expected error without key")
	}
}

func TestRejectsOutOfRangeKey(t *testing.T) {
	setupHome(t)
	_, err := execute(t, "абв", "encrypt", "--key", "71")
	if err == nil || !strings.Contains(err.Error(), "invalid key") {
		t.Fatalf("expected invalid key error, got %v", err)
	}
}

func TestKeyFromConfig(t *testing.T) {
	dir := setupHome(t)
	cfgDir := filepath.Join(dir, "config", "tuicaesar")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfg := "[cipher]\nkey = 2\n\n[history]\nenabled = false\n"
	if err := os.WriteFile(filepath.Join(cfgDir, "config.toml"), []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	out, err := execute(t, "в", "decrypt")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if out != "а" {
		t.Fatalf("expected %q, got %q", "а", out)
	}
	out, err = execute(t, "в", "decrypt", "--key", "1")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if out != "б" {
		t.Fatalf("expected flag to override config, got %q", out)
	}
}

func TestBruteListsEveryKey(t *testing.T) {
	setupHome(t)
	out, err := execute(t, "Тест", "brute")
	if err != nil {
		t.Fatalf("brute: %v", err)
	}
	if n := strings.Count(out, "Key: "); n != 70 {
		t.Fatalf("expected 70 decodings, got %d", n)
	}
}

func TestBruteOutRequiresKey(t *testing.T) {
	dir := setupHome(t)
	_, err := execute(t, "Тест", "brute", "--out", filepath.Join(dir, "out.txt"))
	if err == nil {
		t.Fatalf("expected error without key")
	}
}

func TestAnalyzeSavesBestCandidate(t *testing.T) {
	dir := setupHome(t)
	sample := readSample(t)
	enc, err := cipher.Transform(sample, 33, true)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	in := filepath.Join(dir, "enc.txt")
	out := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(in, []byte(enc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := execute(t, "", "analyze", "--in", in, "--out", out); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != sample {
		t.Fatalf("expected sample to be recovered")
	}

	history, err := execute(t, "", "history", "--mode", "analyze")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(history, "analyze") || !strings.Contains(history, "33") {
		t.Fatalf("expected analyze entry with key 33:\n%s", history)
	}
}

func TestAnalyzeRejectsNonCandidateKey(t *testing.T) {
	setupHome(t)
	enc, err := cipher.Transform(readSample(t), 5, true)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	_, err = execute(t, enc, "analyze", "--key", "6")
	if err == nil || !strings.Contains(err.Error(), "not a candidate") {
		t.Fatalf("expected candidate error, got %v", err)
	}
}

func TestAnalyzeReport(t *testing.T) {
	setupHome(t)
	enc, err := cipher.Transform(readSample(t), 5, true)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	out, err := execute(t, enc, "analyze", "--top", "3")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out, "Key: 5") {
		t.Fatalf("expected decoding for key 5:\n%s", out)
	}
}

func TestFreqReport(t *testing.T) {
	setupHome(t)
	out, err := execute(t, "Дом", "freq")
	if err != nil {
		t.Fatalf("freq: %v", err)
	}
	if !strings.Contains(out, "Letters counted: 3") {
		t.Fatalf("unexpected freq output:\n%s", out)
	}
}

func TestHistoryRejectsUnknownMode(t *testing.T) {
	setupHome(t)
	if _, err := execute(t, "", "history", "--mode", "rot13"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestDefaultConfigTemplateParses(t *testing.T) {
	dir := setupHome(t)
	path := filepath.Join(dir, "config", "tuicaesar", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := execute(t, "абв", "encrypt", "--key", "3", "--history=false"); err != nil {
		t.Fatalf("expected template to load: %v", err)
	}
}
