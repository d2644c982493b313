package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/GoCodeAlone/geuse/internal/cliutil"
	"github.com/GoCodeAlone/geuse/internal/health"
	"github.com/GoCodeAlone/geuse/internal/monitor"
)

const monitorBackgroundEnv = "GEUSE_MONITOR_BACKGROUND"

func runMonitor(args []string) error {
	if len(args) == 0 {
		return usageErrorf("monitor requires a subcommand: start or stop")
	}
	switch args[0] {
	case "start":
		return runMonitorStart(args[1:])
	case "stop":
		return runMonitorStop(args[1:])
	default:
		return usageErrorf("unknown monitor subcommand %q: expected start or stop", args[0])
	}
}

func runMonitorStart(args []string) error {
	fs := flag.NewFlagSet("monitor start", flag.ContinueOnError)
	base := cliutil.RegisterBaseFlags(fs)
	stack := fs.String("stack-name", "", "Stack name to monitor (required)")
	host := fs.String("host", "", "Override the host to probe (defaults to the stack's recorded public host)")
	interval := fs.Duration("interval", 30*time.Second, "Time between health check rounds")
	checks := fs.Int("checks", 0, "Stop after this many rounds (0 = run until stopped)")
	background := fs.Bool("background", false, "Detach and run as a background process, recording a pid file")
	logDir := fs.String("log-dir", "", "Directory for monitor event logs (defaults to the state dir's logs subdirectory)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: geuse monitor start --stack-name <name> [options]

Run continuous health checks against a deployed stack until interrupted,
a bound number of --checks complete, or "geuse monitor stop" is invoked.

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

	if *background && os.Getenv(monitorBackgroundEnv) == "" {
		return spawnBackgroundMonitor(*stack, args)
	}

	e, err := newEnv(base.StateDirOrDefault())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	state, err := e.store.Load(ctx, *stack, true)
	if err != nil {
		return err
	}
	target := state.PublicHost
	if *host != "" {
		target = *host
	}
	if target == "" {
		return fmt.Errorf("stack %s has no recorded public host to monitor; pass --host", *stack)
	}

	dir := *logDir
	if dir == "" {
		dir = filepath.Join(cliutil.LogDir())
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log dir %s: %w", dir, err)
	}
	logPath := filepath.Join(dir, *stack+".monitor.log")

	notifiers := []monitor.Notifier{monitor.NewConsoleNotifier(os.Stdout)}
	ln := monitor.NewLogNotifier(logPath)
	defer ln.Close()
	notifiers = append(notifiers, ln)

	opts := []monitor.Option{monitor.WithInterval(*interval), monitor.WithLogger(e.logger)}
	if *checks > 0 {
		opts = append(opts, monitor.WithMaxRounds(*checks))
	}
	m := monitor.New(target, health.DefaultProbes(), notifiers, opts...)

	if err := writePIDFile(base.StateDirOrDefault(), *stack); err != nil {
		return err
	}
	defer removePIDFile(base.StateDirOrDefault(), *stack)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	stop := make(chan struct{})
	go func() {
		<-sigCh
		close(stop)
	}()

	return m.Run(ctx, stop)
}

func runMonitorStop(args []string) error {
	fs := flag.NewFlagSet("monitor stop", flag.ContinueOnError)
	base := cliutil.RegisterBaseFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: geuse monitor stop <stack-name>\n\nSignal a background monitor started with --background to exit.\n")
	}
	if err := fs.Parse(args); err != nil {
		return usageErrorf("%v", err)
	}
	if fs.NArg() != 1 {
		return usageErrorf("monitor stop requires exactly one stack name argument")
	}
	stack := fs.Arg(0)

	pid, err := readPIDFile(base.StateDirOrDefault(), stack)
	if err != nil {
		return err
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find monitor process %d for stack %s: %w", pid, stack, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal monitor process %d for stack %s: %w", pid, stack, err)
	}
	fmt.Printf("sent stop signal to monitor for stack %s (pid %d)\n", stack, pid)
	return nil
}

func spawnBackgroundMonitor(stack string, passthroughArgs []string) error {
	binary, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable for background monitor: %w", err)
	}
	childArgs := append([]string{"monitor", "start"}, passthroughArgs...)
	cmd := exec.Command(binary, childArgs...)
	cmd.Env = append(os.Environ(), monitorBackgroundEnv+"=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start background monitor: %w", err)
	}
	fmt.Printf("started background monitor for stack %s (pid %d)\n", stack, cmd.Process.Pid)
	return nil
}

func pidFilePath(stateDir, stack string) string {
	return filepath.Join(stateDir, "monitoring", stack+".pid")
}

func writePIDFile(stateDir, stack string) error {
	path := pidFilePath(stateDir, stack)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create monitoring dir: %w", err)
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func removePIDFile(stateDir, stack string) {
	_ = os.Remove(pidFilePath(stateDir, stack))
}

func readPIDFile(stateDir, stack string) (int, error) {
	raw, err := os.ReadFile(pidFilePath(stateDir, stack))
	if err != nil {
		return 0, fmt.Errorf("no running monitor recorded for stack %s: %w", stack, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("corrupt pid file for stack %s: %w", stack, err)
	}
	return pid, nil
}
