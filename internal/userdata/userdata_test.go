package userdata

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"testing"
)

func TestRenderProducesValidGzip(t *testing.T) {
	data, err := Render(Params{StackName: "demo", Tier: "dev", Region: "us-east-1"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	plain, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("read gzip: %v", err)
	}
	if !strings.Contains(string(plain), "demo") {
		t.Fatalf("rendered script missing stack name: %s", plain)
	}
}

func TestRenderIncludesMountWhenFilesystemSet(t *testing.T) {
	data, err := Render(Params{StackName: "demo", Tier: "dev", Region: "us-east-1", FilesystemDNS: "fs-123.efs.us-east-1.amazonaws.com"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	gz, _ := gzip.NewReader(bytes.NewReader(data))
	plain, _ := io.ReadAll(gz)
	if !strings.Contains(string(plain), "mount -t efs") {
		t.Fatalf("rendered script missing efs mount: %s", plain)
	}
}

func TestGeneratePasswordUsesAlphabet(t *testing.T) {
	pw, err := generatePassword(32)
	if err != nil {
		t.Fatalf("generatePassword: %v", err)
	}
	if len(pw) != 32 {
		t.Fatalf("len(pw) = %d, want 32", len(pw))
	}
	for _, c := range pw {
		if !strings.ContainsRune(passwordAlphabet, c) {
			t.Fatalf("password contains character outside alphabet: %q", c)
		}
	}
}
