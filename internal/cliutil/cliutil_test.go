package cliutil

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPrintEncodesJSONEnvelope(t *testing.T) {
	var buf bytes.Buffer
	if err := Print(&buf, OutputJSON, OK("demo-data", "done")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"status": "ok"`) {
		t.Errorf("expected encoded status field, got %s", buf.String())
	}
}

func TestPrintEncodesYAMLEnvelope(t *testing.T) {
	var buf bytes.Buffer
	if err := Print(&buf, OutputYAML, Failed("E_VALIDATION", "bad input", []string{"stack_name required"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "status: error") {
		t.Errorf("expected yaml status field, got %s", buf.String())
	}
}

func TestLoadConfigParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "stack_name: demo\ntier: dev\nregion: us-east-1\ninstance_type: t3.medium\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StackName != "demo" || cfg.Region != "us-east-1" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfigReturnsErrorForMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/path.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestStateDirHonorsEnvOverride(t *testing.T) {
	t.Setenv("GEUSE_STATE_DIR", "/tmp/custom-state")
	if got := StateDir(); got != "/tmp/custom-state" {
		t.Errorf("expected override to take effect, got %s", got)
	}
}

func TestRegisterBaseFlagsDefaultsToText(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	bf := RegisterBaseFlags(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bf.Format() != OutputText {
		t.Errorf("expected default format text, got %s", bf.Format())
	}
}

func TestBaseFlagsFormatRecognizesJSON(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	bf := RegisterBaseFlags(fs)
	if err := fs.Parse([]string{"-output", "json"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bf.Format() != OutputJSON {
		t.Errorf("expected json format, got %s", bf.Format())
	}
}

func TestBaseFlagsStateDirOverridesDefault(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	bf := RegisterBaseFlags(fs)
	if err := fs.Parse([]string{"-state-dir", "/tmp/override"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := bf.StateDirOrDefault(); got != "/tmp/override" {
		t.Errorf("expected override state dir, got %s", got)
	}
}
