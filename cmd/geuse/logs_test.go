package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTailLinesReturnsLastNLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.log")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\nfour\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got, err := tailLines(path, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "three" || got[1] != "four" {
		t.Errorf("unexpected tail: %+v", got)
	}
}

func TestTailLinesReturnsAllWhenNIsZero(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.log")
	if err := os.WriteFile(path, []byte("a\nb\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got, err := tailLines(path, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected all lines, got %+v", got)
	}
}

func TestTailLinesErrorsForMissingFile(t *testing.T) {
	if _, err := tailLines("/nonexistent/path.log", 10); err == nil {
		t.Fatal("expected error for missing file")
	}
}
