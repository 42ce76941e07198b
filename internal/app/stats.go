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

type statsReport struct {
	Listings        db.ListingStats `json:"listings"`
	VenueCandidates int             `json:"duplicate_venue_groups"`
	EventCandidates int             `json:"duplicate_event_groups"`
}

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 60*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	skipScan := fs.Bool("skip-scan", false, "Skip the duplicate scan (faster on large tables)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "stats does not accept positional arguments")
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

	dayStart := defaultUTCDay()
	_, dayEnd := utcDayBounds(dayStart)

	listings, err := pool.QueryListingStats(ctx, dayStart, dayEnd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query listing stats: %v\n", err)
		return 1
	}

	report := statsReport{Listings: listings}
	if !*skipScan {
		scanner := dedup.NewScanner(pool, cfg.FuzzyThreshold, logger)
		scanReport, err := scanner.Scan(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Duplicate scan failed: %v\n", err)
			return 1
		}
		report.VenueCandidates = len(scanReport.VenueGroups)
		report.EventCandidates = len(scanReport.EventGroups)
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(report); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := [][]string{
		{"venues", fmt.Sprintf("%d", listings.Venues)},
		{"events", fmt.Sprintf("%d", listings.Events)},
		{"approved_events", fmt.Sprintf("%d", listings.ApprovedEvents)},
		{"unresolved_events", fmt.Sprintf("%d", listings.UnresolvedEvents)},
		{"scraper_events", fmt.Sprintf("%d", listings.ScraperEvents)},
		{"user_events", fmt.Sprintf("%d", listings.UserEvents)},
		{"events_ingested_today", fmt.Sprintf("%d", listings.EventsToday)},
		{"last_event_at", formatUTCTimestampPtr(listings.LastEventAt)},
		{"last_venue_at", formatUTCTimestampPtr(listings.LastVenueAt)},
	}
	if !*skipScan {
		rows = append(rows,
			[]string{"duplicate_venue_groups", fmt.Sprintf("%d", report.VenueCandidates)},
			[]string{"duplicate_event_groups", fmt.Sprintf("%d", report.EventCandidates)},
		)
	}
	if err := writeTable([]string{"metric", "value"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render stats table: %v\n", err)
		return 1
	}

	return 0
}
