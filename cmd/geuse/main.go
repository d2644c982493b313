package main

import (
	"fmt"
	"os"
)

var version = "dev"

var commands = map[string]func([]string) error{
	"deploy":   runDeploy,
	"destroy":  runDestroy,
	"update":   runUpdate,
	"rollback": runRollback,
	"validate": runValidate,
	"report":   runReport,
	"health":   runHealth,
	"monitor":  runMonitor,
	"list":     runList,
	"inspect":  runInspect,
	"info":     runInfo,
	"backup":   runBackup,
	"restore":  runRestore,
	"cleanup":  runCleanup,
	"status":   runStatus,
	"logs":     runLogs,
	"cost":     runCost,
	"init":     runInit,
	"migrate":  runMigrate,
}

func usage() {
	fmt.Fprintf(os.Stderr, `geuse - cloud stack orchestrator (version %s)

Usage:
  geuse <command> [options]

Commands:
  init       Scaffold a starter deployment config
  validate   Run pre-deployment checks without deploying
  deploy     Provision a new stack from a deployment config
  destroy    Tear down a stack's owned resources
  update     Apply an instance-type or container-image change in place
  rollback   Revert a stack to a previous snapshot
  status     Show the current recorded state of a stack
  info       Show a stack's configuration and live service health
  inspect    Dump a stack's full recorded state record
  report     Produce a combined state/checks/health report
  health     Probe a host's services without a recorded stack
  monitor    Start or stop continuous health checks against a stack
  list       List recorded deployments
  backup     Snapshot or list a stack's state backups
  restore    Replace a stack's state with a backup
  cleanup    Find and remove orphaned resources left by partial failures
  logs       Print a stack's recorded monitor event log
  cost       Estimate monthly compute cost
  migrate    Manage state-record schema migrations

Run 'geuse <command> -h' for command-specific help.
`, version)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		usage()
		os.Exit(0)
	}
	if cmd == "-v" || cmd == "--version" || cmd == "version" {
		fmt.Println(version)
		os.Exit(0)
	}

	fn, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}

	if err := fn(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}
