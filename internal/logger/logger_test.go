package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewStderrWhenUnconfigured(t *testing.T) {
	lg, closer := New(Config{})
	if lg == nil {
		t.Fatalf("expected logger")
	}
	if closer != nil {
		t.Fatalf("stderr logger must not return a closer")
	}
}

func TestNewFileLogger(t *testing.T) {
	dir := t.TempDir()
	lg, closer := New(Config{Dir: dir})
	if closer == nil {
		t.Fatalf("file logger must return a closer")
	}
	defer func() { _ = closer.Close() }()

	lg.Info("hello", "k", "v")

	b, err := os.ReadFile(filepath.Join(dir, "webwatch.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "hello") || !strings.Contains(string(b), "k=v") {
		t.Fatalf("unexpected log contents: %s", b)
	}
}

func TestNewJSONFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	lg, closer := New(Config{File: path, JSON: true})
	defer func() { _ = closer.Close() }()

	lg.Info("structured")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), `"msg":"structured"`) {
		t.Fatalf("expected JSON output, got: %s", b)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
