// Package cliutil holds the output envelope, exit codes, shared flags,
// and config loading common to every geuse subcommand.
package cliutil

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/geuse/internal/model"
)

// Exit codes. 1 covers every operational failure (failed validation,
// unhealthy deployment, destruction/rollback error); 2 is reserved for
// usage errors (bad flags, missing required arguments).
const (
	ExitOK          = 0
	ExitOperational = 1
	ExitUsage       = 2
)

// OutputFormat selects how a command renders its result.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

// Envelope is the structured result a command renders in json/yaml output
// mode, matching the non-text envelope shape shared across the CLI.
type Envelope struct {
	Status    string    `json:"status" yaml:"status"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Message   string    `json:"message,omitempty" yaml:"message,omitempty"`
	ErrorCode string    `json:"error_code,omitempty" yaml:"error_code,omitempty"`
	Errors    []string  `json:"errors,omitempty" yaml:"errors,omitempty"`
	Data      any       `json:"data,omitempty" yaml:"data,omitempty"`
}

// OK builds a successful envelope.
func OK(data any, message string) Envelope {
	return Envelope{Status: "ok", Timestamp: time.Now().UTC(), Message: message, Data: data}
}

// Failed builds an error envelope.
func Failed(errCode, message string, errs []string) Envelope {
	return Envelope{Status: "error", Timestamp: time.Now().UTC(), ErrorCode: errCode, Message: message, Errors: errs}
}

// Print renders e to w in the given format. Text mode prints only the
// message (callers handle their own free-form text rendering instead of
// calling Print for the text case).
func Print(w io.Writer, format OutputFormat, e Envelope) error {
	switch format {
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(e)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(e)
	}
}

// BaseFlags are the flags every subcommand registers: output format,
// state directory, and verbosity.
type BaseFlags struct {
	Output   *string
	StateDir *string
	Verbose  *bool
	Silent   *bool
}

// RegisterBaseFlags adds the shared flags to fs and returns handles to
// their values.
func RegisterBaseFlags(fs *flag.FlagSet) *BaseFlags {
	return &BaseFlags{
		Output:   fs.String("output", "text", "Output format: text, json, or yaml"),
		StateDir: fs.String("state-dir", "", "Override the default state directory (~/.geusemaker)"),
		Verbose:  fs.Bool("v", false, "Verbose logging"),
		Silent:   fs.Bool("silent", false, "Suppress non-essential output"),
	}
}

// Format resolves the requested OutputFormat, defaulting to text on an
// unrecognized value.
func (b *BaseFlags) Format() OutputFormat {
	switch OutputFormat(*b.Output) {
	case OutputJSON:
		return OutputJSON
	case OutputYAML:
		return OutputYAML
	default:
		return OutputText
	}
}

// StateDirOrDefault returns the resolved state directory: the --state-dir
// flag if set, else GEUSE_STATE_DIR, else "<home>/.geusemaker".
func (b *BaseFlags) StateDirOrDefault() string {
	if b.StateDir != nil && *b.StateDir != "" {
		return *b.StateDir
	}
	return StateDir()
}

// LoadConfig reads a DeploymentConfig from a YAML file at path.
func LoadConfig(path string) (model.DeploymentConfig, error) {
	var cfg model.DeploymentConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// StateDir returns the directory geuse stores deployment records in:
// GEUSE_STATE_DIR if set, else "<home>/.geusemaker".
func StateDir() string {
	if dir := os.Getenv("GEUSE_STATE_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".geusemaker"
	}
	return filepath.Join(home, ".geusemaker")
}

// LogDir returns the directory geuse writes rotated log files to:
// GEUSE_LOG_DIR if set, else "<home>/.geusemaker/logs".
func LogDir() string {
	if dir := os.Getenv("GEUSE_LOG_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".geusemaker/logs"
	}
	return filepath.Join(home, ".geusemaker", "logs")
}
