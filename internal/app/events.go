package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/lineup/internal/cli"
)

func runEvents(args []string) int {
	if len(args) == 0 {
		printEventsUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "-h", "--help":
		printEventsUsage()
		return 0
	case "list":
		return runEventsList(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown events action: %s\n\n", args[0])
		printEventsUsage()
		return 2
	}
}

func runEventsList(args []string) int {
	fs := flag.NewFlagSet("events list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	from := fs.String("from", defaultUTCDayString(), "Window start date (YYYY-MM-DD, inclusive)")
	to := fs.String("to", "", "Window end date (YYYY-MM-DD, inclusive; default from+90d)")
	limit := fs.Int("limit", 100, "Maximum rows to return")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "events list does not accept positional arguments")
		return 2
	}
	if *limit < 1 {
		fmt.Fprintln(os.Stderr, "--limit must be >= 1")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	fromDay, err := parseUTCDate(*from)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --from: %v\n", err)
		return 2
	}
	toEnd := fromDay.Add(90 * 24 * time.Hour)
	if strings.TrimSpace(*to) != "" {
		_, toEnd, err = parseUTCDateRange(*from, *to)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid window: %v\n", err)
			return 2
		}
	}

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	items, err := pool.ListEvents(ctx, fromDay, toEnd, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query events: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(items); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		venueLabel := pointerStringOrEmpty(item.VenueName)
		if venueLabel == "" && item.VenueID == nil {
			venueLabel = "(unresolved)"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.EventID),
			truncateForTable(item.Name, 40),
			formatUTCTimestamp(item.Date),
			truncateForTable(venueLabel, 32),
			pointerStringOrEmpty(item.Price),
			truncateForTable(item.UserID, 24),
		})
	}
	if err := writeTable([]string{"id", "name", "date", "venue", "price", "source"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}

func printEventsUsage() {
	fmt.Fprintln(os.Stderr, "lineup events")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  lineup events list [flags]")
}
