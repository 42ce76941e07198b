package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "ingest":
		return runIngest(args[1:])
	case "venues":
		return runVenues(args[1:])
	case "events":
		return runEvents(args[1:])
	case "scan":
		return runScan(args[1:])
	case "merge":
		return runMerge(args[1:])
	case "stats":
		return runStats(args[1:])
	case "serve":
		return runServe(args[1:])
	case "daemon":
		return runDaemon(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "lineup CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  lineup <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health   Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  ingest   Ingest one raw event record through venue resolution")
	fmt.Fprintln(os.Stderr, "  venues   List, add, or renormalize venues")
	fmt.Fprintln(os.Stderr, "  events   List events with their resolved venues")
	fmt.Fprintln(os.Stderr, "  scan     Scan venues and events for duplicate candidates")
	fmt.Fprintln(os.Stderr, "  merge    Merge duplicate venues or events")
	fmt.Fprintln(os.Stderr, "  stats    Show listing counts and ingestion recency")
	fmt.Fprintln(os.Stderr, "  serve    Start Echo API server")
	fmt.Fprintln(os.Stderr, "  daemon   Manage the systemd unit for the API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"lineup <command> -h\" for command-specific flags.")
}
