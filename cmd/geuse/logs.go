package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/GoCodeAlone/geuse/internal/cliutil"
)

func runLogs(args []string) error {
	fs := flag.NewFlagSet("logs", flag.ContinueOnError)
	base := cliutil.RegisterBaseFlags(fs)
	stack := fs.String("stack-name", "", "Stack whose monitor log to read (required)")
	tail := fs.Int("tail", 100, "Number of trailing lines to print (0 = all)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: geuse logs --stack-name <name> [--tail N]

Print the tail of a stack's recorded monitor event log.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return usageErrorf("%v", err)
	}
	if *stack == "" {
		return usageErrorf("--stack-name is required")
	}

	path := filepath.Join(base.StateDirOrDefault(), "logs", *stack+".monitor.log")
	if custom := cliutil.LogDir(); custom != "" {
		if alt := filepath.Join(custom, *stack+".monitor.log"); fileReadable(alt) {
			path = alt
		}
	}

	lines, err := tailLines(path, *tail)
	if err != nil {
		return err
	}

	if base.Format() != cliutil.OutputText {
		return cliutil.Print(fs.Output(), base.Format(), cliutil.OK(lines, "logs"))
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}

func fileReadable(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func tailLines(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	defer f.Close()

	var all []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		all = append(all, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log %s: %w", path, err)
	}
	if n <= 0 || n >= len(all) {
		return all, nil
	}
	return all[len(all)-n:], nil
}
