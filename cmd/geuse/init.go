package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/geuse/internal/cliutil"
	"github.com/GoCodeAlone/geuse/internal/model"
)

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	base := cliutil.RegisterBaseFlags(fs)
	directory := fs.String("directory", ".", "Directory to scaffold the config file in")
	force := fs.Bool("force", false, "Overwrite an existing config file")
	stackName := fs.String("stack-name", "my-stack", "Stack name for the scaffolded config")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: geuse init [--directory D] [--stack-name S] [--force]

Write a starter deployment config to <directory>/geuse.yaml.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return usageErrorf("%v", err)
	}

	path := filepath.Join(*directory, "geuse.yaml")
	if _, err := os.Stat(path); err == nil && !*force {
		return fmt.Errorf("%s already exists; pass --force to overwrite", path)
	}

	cfg := model.DeploymentConfig{
		StackName:           *stackName,
		Tier:                model.TierDev,
		Region:              "us-east-1",
		InstanceType:        "t3.medium",
		OS:                  "ubuntu",
		Architecture:        "x86_64",
		EnableHTTPS:         true,
		RedirectHTTPToHTTPS: true,
		Rollback:            model.RollbackPolicy{Enabled: true, TimeoutMinutes: 15},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal starter config: %w", err)
	}
	if err := os.MkdirAll(*directory, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", *directory, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	if base.Format() != cliutil.OutputText {
		return cliutil.Print(fs.Output(), base.Format(), cliutil.OK(map[string]string{"path": path}, "initialized"))
	}
	fmt.Printf("wrote starter config to %s\n", path)
	return nil
}
