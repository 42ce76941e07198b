package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/lineup/internal/cli"
	"horse.fit/lineup/internal/config"
	"horse.fit/lineup/internal/db"
	"horse.fit/lineup/internal/globaltime"
	"horse.fit/lineup/internal/logging"
	"horse.fit/lineup/internal/normalize"
)

func runVenues(args []string) int {
	if len(args) == 0 {
		printVenuesUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "-h", "--help":
		printVenuesUsage()
		return 0
	case "list":
		return runVenuesList(args[1:])
	case "add":
		return runVenuesAdd(args[1:])
	case "renormalize":
		return runVenuesRenormalize(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown venues action: %s\n\n", args[0])
		printVenuesUsage()
		return 2
	}
}

func runVenuesList(args []string) int {
	fs := flag.NewFlagSet("venues list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	city := fs.String("city", "", "Filter by city (exact match)")
	limit := fs.Int("limit", 100, "Maximum rows to return")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "venues list does not accept positional arguments")
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

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	items, err := pool.ListVenues(ctx, strings.TrimSpace(*city), *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query venues: %v\n", err)
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
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.VenueID),
			truncateForTable(item.Name, 40),
			truncateForTable(item.NormalizedName, 32),
			pointerStringOrEmpty(item.City),
			fmt.Sprintf("%d", item.EventCount),
			fmt.Sprintf("%t", item.Approved),
		})
	}
	if err := writeTable([]string{"id", "name", "normalized", "city", "events", "approved"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}

// runVenuesAdd is the one place a venue row is ever created.
func runVenuesAdd(args []string) int {
	fs := flag.NewFlagSet("venues add", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 20*time.Second, "Command timeout")
	name := fs.String("name", "", "Venue display name (required)")
	city := fs.String("city", "", "City")
	address := fs.String("address", "", "Street address")
	postcode := fs.String("postcode", "", "Postcode")
	capacity := fs.Int("capacity", 0, "Capacity (0 = unknown)")
	email := fs.String("email", "", "Contact email")
	website := fs.String("website", "", "Website URL")
	phone := fs.String("phone", "", "Contact phone")
	approved := fs.Bool("approved", true, "Mark the venue as approved")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "venues add does not accept positional arguments")
		return 2
	}
	if strings.TrimSpace(*name) == "" {
		fmt.Fprintln(os.Stderr, "--name is required")
		return 2
	}
	if *capacity < 0 {
		fmt.Fprintln(os.Stderr, "--capacity must be >= 0")
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

	namer := normalize.NewNamer(cfg.CityStoplistEntries())
	normalizedName := namer.Name(*name)
	if normalizedName == "" {
		fmt.Fprintf(os.Stderr, "Venue name %q normalizes to nothing; pick a more specific name\n", strings.TrimSpace(*name))
		return 2
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

	input := db.VenueInput{
		Name:           strings.TrimSpace(*name),
		NormalizedName: normalizedName,
		City:           optionalFlagString(*city),
		Address:        optionalFlagString(*address),
		Postcode:       optionalFlagString(*postcode),
		Email:          optionalFlagString(*email),
		Website:        optionalFlagString(*website),
		Phone:          optionalFlagString(*phone),
		Approved:       *approved,
	}
	if *capacity > 0 {
		capacityValue := *capacity
		input.Capacity = &capacityValue
	}

	venueID, err := pool.InsertVenue(ctx, input, globaltime.UTC())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to insert venue: %v\n", err)
		return 1
	}

	logger.Info().
		Int64("venue_id", venueID).
		Str("normalized_name", normalizedName).
		Msg("venue created")
	fmt.Printf("venue_id=%d normalized_name=%s\n", venueID, normalizedName)
	return 0
}

// runVenuesRenormalize recomputes every venue's normalized_name. Run it after
// changing the normalizer or the city stoplist; matching only works while
// stored keys agree with what the current normalizer produces.
func runVenuesRenormalize(args []string) int {
	fs := flag.NewFlagSet("venues renormalize", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 120*time.Second, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "venues renormalize does not accept positional arguments")
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

	namer := normalize.NewNamer(cfg.CityStoplistEntries())
	updated, err := pool.RenormalizeVenues(ctx, namer.Name, globaltime.UTC())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Renormalize failed: %v\n", err)
		return 1
	}

	logger.Info().Int64("venues_updated", updated).Msg("venues renormalized")
	fmt.Printf("venues_updated=%d\n", updated)
	return 0
}

func optionalFlagString(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func printVenuesUsage() {
	fmt.Fprintln(os.Stderr, "lineup venues")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  lineup venues <action> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Actions:")
	fmt.Fprintln(os.Stderr, "  list         List venues with event counts")
	fmt.Fprintln(os.Stderr, "  add          Create a venue (the only creation path)")
	fmt.Fprintln(os.Stderr, "  renormalize  Recompute all normalized names")
}
