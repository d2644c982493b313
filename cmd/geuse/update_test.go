package main

import "testing"

func TestParseImagePairsParsesCommaSeparatedList(t *testing.T) {
	got, err := parseImagePairs("n8n=n8nio/n8n:1.2, ollama=ollama/ollama:latest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["n8n"] != "n8nio/n8n:1.2" || got["ollama"] != "ollama/ollama:latest" {
		t.Errorf("unexpected parse result: %+v", got)
	}
}

func TestParseImagePairsRejectsMissingEquals(t *testing.T) {
	if _, err := parseImagePairs("n8n"); err == nil {
		t.Fatal("expected error for pair missing '='")
	}
}

func TestParseImagePairsReturnsNilForEmptySpec(t *testing.T) {
	got, err := parseImagePairs("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil map for empty spec, got %+v", got)
	}
}
