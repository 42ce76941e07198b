package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/lineup/internal/cli"
	"horse.fit/lineup/internal/config"
	"horse.fit/lineup/internal/db"
	"horse.fit/lineup/internal/ingest"
	"horse.fit/lineup/internal/logging"
	"horse.fit/lineup/internal/match"
	"horse.fit/lineup/internal/normalize"
	payloadschema "horse.fit/lineup/schema"
)

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 20*time.Second, "Command timeout")
	payload := fs.String("payload", "", "Raw event record JSON")
	payloadFile := fs.String("payload-file", "", "Path to record JSON file (overrides --payload)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "ingest does not accept positional arguments")
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

	payloadJSON, err := loadJSONInput(*payload, *payloadFile, "payload")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid payload: %v\n", err)
		return 2
	}

	record, err := payloadschema.ValidateRawRecord(payloadJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid payload: %v\n", err)
		return 2
	}

	date, err := record.DateTime()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid payload: %v\n", err)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	namer := normalize.NewNamer(cfg.CityStoplistEntries())
	matcher := match.NewMatcher(pool, namer, logger)
	gate := match.NewGate(matcher, logger)
	svc := ingest.NewService(pool, gate, logger)

	result, err := svc.IngestOne(ctx, ingest.Request{
		Name:      record.Name,
		VenueName: record.Venue,
		City:      pointerStringOrEmpty(record.City),
		Date:      date,
		Price:     pointerStringOrEmpty(record.Price),
		SourceTag: record.SourceTag,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		return 1
	}

	fmt.Printf("outcome=%s\n", result.Outcome)
	if result.Fingerprint != "" {
		fmt.Printf("fingerprint=%s\n", result.Fingerprint)
	}
	if result.EventID != nil {
		fmt.Printf("event_id=%d\n", *result.EventID)
	}
	if result.VenueID != nil {
		fmt.Printf("venue_id=%d\n", *result.VenueID)
	}

	return 0
}

func loadJSONInput(inlineValue, filePath, label string) (json.RawMessage, error) {
	if path := strings.TrimSpace(filePath); path != "" {
		payload, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s file %q: %w", label, path, err)
		}
		trimmed := strings.TrimSpace(string(payload))
		if trimmed == "" {
			return nil, fmt.Errorf("%s file %q is empty", label, path)
		}
		return json.RawMessage(trimmed), nil
	}

	trimmed := strings.TrimSpace(inlineValue)
	if trimmed == "" {
		return nil, fmt.Errorf("%s JSON is empty", label)
	}
	return json.RawMessage(trimmed), nil
}
