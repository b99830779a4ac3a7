package search

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

const contents = `Rust:
Safe, Fast, Productive.
Select 3.
Trust me.`

func TestSearch(t *testing.T) {
	got := Search("duct", contents)
	want := []string{"Safe, Fast, Productive."}
	if !slices.Equal(got, want) {
		t.Errorf("Search() = %v, want %v", got, want)
	}
}

func TestSearchInsensitive(t *testing.T) {
	got := SearchInsensitive("rUsT", contents)
	want := []string{"Rust:", "Trust me."}
	if !slices.Equal(got, want) {
		t.Errorf("SearchInsensitive() = %v, want %v", got, want)
	}
}

func TestSearchNoMatch(t *testing.T) {
	if got := Search("missing", contents); len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
}

func TestBuild(t *testing.T) {
	env := map[string]string{"INSENSITIVE": "1"}
	getenv := func(k string) string { return env[k] }

	cfg, err := Build([]string{"to", "poem.txt"}, getenv)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if cfg.Query != "to" || cfg.Path != "poem.txt" || !cfg.CaseInsensitive {
		t.Errorf("unexpected config: %+v", cfg)
	}

	env["INSENSITIVE"] = "0"
	cfg, _ = Build([]string{"to", "poem.txt"}, getenv)
	if cfg.CaseInsensitive {
		t.Error("expected case-sensitive search")
	}
}

func TestBuildMissingArgs(t *testing.T) {
	if _, err := Build(nil, nil); !errors.Is(err, ErrMissingQuery) {
		t.Errorf("expected ErrMissingQuery, got %v", err)
	}
	if _, err := Build([]string{"q"}, nil); !errors.Is(err, ErrMissingPath) {
		t.Errorf("expected ErrMissingPath, got %v", err)
	}
}

func TestRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poem.txt")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	var buf bytes.Buffer
	cfg := Config{Query: "rust", Path: path, CaseInsensitive: true}
	if err := cfg.Run(&buf); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if buf.String() != "Rust:\nTrust me.\n" {
		t.Errorf("unexpected output: %q", buf.String())
	}

	cfg.Path = filepath.Join(t.TempDir(), "missing.txt")
	if err := cfg.Run(&buf); err == nil {
		t.Error("expected error for missing file")
	}
}
