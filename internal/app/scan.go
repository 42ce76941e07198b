package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/lineup/internal/cli"
	"horse.fit/lineup/internal/config"
	"horse.fit/lineup/internal/db"
	"horse.fit/lineup/internal/dedup"
	"horse.fit/lineup/internal/logging"
)

func runScan(args []string) int {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 120*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "scan does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := contextWithTimeout(*timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	scanner := dedup.NewScanner(pool, cfg.FuzzyThreshold, logger)
	report, err := scanner.Scan(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Scan failed: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(report); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	venueRows := make([][]string, 0, len(report.VenueGroups))
	for _, group := range report.VenueGroups {
		venueRows = append(venueRows, []string{
			string(group.Strategy),
			truncateForTable(group.Key, 40),
			formatVenueMembers(group),
		})
	}
	if err := writeTable([]string{"strategy", "key", "venues (id:name)"}, venueRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render venue table: %v\n", err)
		return 1
	}

	fmt.Println()
	eventRows := make([][]string, 0, len(report.EventGroups))
	for _, group := range report.EventGroups {
		eventRows = append(eventRows, []string{
			string(group.Strategy),
			truncateForTable(group.Key, 40),
			formatEventMembers(group),
		})
	}
	if err := writeTable([]string{"strategy", "key", "events (id@time)"}, eventRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render event table: %v\n", err)
		return 1
	}

	fmt.Println()
	fmt.Printf("venue_groups=%d event_groups=%d\n", len(report.VenueGroups), len(report.EventGroups))
	return 0
}

func formatVenueMembers(group dedup.VenueGroup) string {
	parts := make([]string, 0, len(group.Members))
	for _, member := range group.Members {
		parts = append(parts, fmt.Sprintf("%d:%s", member.VenueID, truncateForTable(member.Name, 24)))
	}
	return joinForTable(parts)
}

func formatEventMembers(group dedup.EventGroup) string {
	parts := make([]string, 0, len(group.Members))
	for _, member := range group.Members {
		parts = append(parts, fmt.Sprintf("%d@%s", member.EventID, member.Date.UTC().Format("15:04")))
	}
	return joinForTable(parts)
}
