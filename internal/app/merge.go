package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/lineup/internal/cli"
	"horse.fit/lineup/internal/config"
	"horse.fit/lineup/internal/db"
	"horse.fit/lineup/internal/dedup"
	"horse.fit/lineup/internal/globaltime"
	"horse.fit/lineup/internal/logging"
	"horse.fit/lineup/internal/merge"
)

const (
	mergeEntityVenues = "venues"
	mergeEntityEvents = "events"
)

func runMerge(args []string) int {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 120*time.Second, "Command timeout")
	entity := fs.String("entity", "", "What to merge: venues or events")
	keep := fs.Int64("keep", 0, "Id of the row that survives")
	remove := fs.String("remove", "", "Comma-separated ids to fold into --keep")
	planFile := fs.String("plan-file", "", "Path to a JSON array of {keep, remove} plans")
	auto := fs.Bool("auto", false, "Scan and apply event plans automatically; venue plans are printed for review")
	dryRun := fs.Bool("dry-run", false, "Print the plans without executing them")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "merge does not accept positional arguments")
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

	if *auto {
		if strings.TrimSpace(*entity) != "" || *keep != 0 || strings.TrimSpace(*remove) != "" || strings.TrimSpace(*planFile) != "" {
			fmt.Fprintln(os.Stderr, "--auto cannot be combined with --entity, --keep, --remove, or --plan-file")
			return 2
		}
		return runMergeAuto(ctx, pool, cfg, logger, *dryRun)
	}

	entityName := strings.ToLower(strings.TrimSpace(*entity))
	if entityName != mergeEntityVenues && entityName != mergeEntityEvents {
		fmt.Fprintln(os.Stderr, "--entity must be venues or events")
		return 2
	}

	plans, err := collectMergePlans(*keep, *remove, *planFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid plan: %v\n", err)
		return 2
	}

	if *dryRun {
		if err := printJSON(plans); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	for _, plan := range plans {
		if err := executeMergePlan(ctx, pool, entityName, plan, logger); err != nil {
			if errors.Is(err, db.ErrMergeConflict) {
				fmt.Fprintf(os.Stderr, "Merge conflict for keep=%d: a concurrent merge already removed one of the rows; re-run scan\n", plan.Keep)
				return 1
			}
			fmt.Fprintf(os.Stderr, "Merge failed for keep=%d: %v\n", plan.Keep, err)
			return 1
		}
	}
	return 0
}

// runMergeAuto derives plans from a fresh scan. Event plans execute; venue
// plans are only printed, because same-name venues can be distinct real
// places and need a human decision.
func runMergeAuto(ctx context.Context, pool *db.Pool, cfg *config.Config, logger zerolog.Logger, dryRun bool) int {
	scanner := dedup.NewScanner(pool, cfg.FuzzyThreshold, logger)
	report, err := scanner.Scan(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Scan failed: %v\n", err)
		return 1
	}

	venuePlans := merge.VenuePlans(report.VenueGroups)
	eventPlans := merge.EventPlans(report.EventGroups)

	if len(venuePlans) > 0 {
		fmt.Printf("Suggested venue merges (NOT applied; run merge --entity venues to apply):\n")
		if err := printJSON(venuePlans); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
	}

	if dryRun {
		fmt.Printf("Event merges that would be applied:\n")
		if err := printJSON(eventPlans); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	applied := 0
	for _, plan := range eventPlans {
		if err := executeMergePlan(ctx, pool, mergeEntityEvents, plan, logger); err != nil {
			if errors.Is(err, db.ErrMergeConflict) {
				// Another merge got there first. The next scan will not
				// report this group again.
				logger.Warn().Int64("keep", plan.Keep).Msg("event merge skipped, rows changed underneath")
				continue
			}
			fmt.Fprintf(os.Stderr, "Merge failed for keep=%d: %v\n", plan.Keep, err)
			return 1
		}
		applied++
	}

	fmt.Printf("event_merges_applied=%d venue_merges_suggested=%d\n", applied, len(venuePlans))
	return 0
}

func executeMergePlan(ctx context.Context, pool *db.Pool, entityName string, plan merge.Plan, logger zerolog.Logger) error {
	if err := plan.Validate(); err != nil {
		return err
	}

	switch entityName {
	case mergeEntityVenues:
		result, err := pool.MergeVenues(ctx, plan.Keep, plan.Remove, globaltime.UTC())
		if err != nil {
			return err
		}
		logger.Info().
			Int64("keep_venue_id", result.KeepVenueID).
			Int64("venues_removed", result.VenuesRemoved).
			Int64("events_reassigned", result.EventsReassigned).
			Msg("venues merged")
		fmt.Printf("merged venues: keep=%d removed=%d events_reassigned=%d\n",
			result.KeepVenueID, result.VenuesRemoved, result.EventsReassigned)
		return nil
	case mergeEntityEvents:
		result, err := pool.MergeEvents(ctx, plan.Keep, plan.Remove)
		if err != nil {
			return err
		}
		logger.Info().
			Int64("keep_event_id", result.KeepEventID).
			Int64("events_removed", result.EventsRemoved).
			Msg("events merged")
		fmt.Printf("merged events: keep=%d removed=%d\n", result.KeepEventID, result.EventsRemoved)
		return nil
	default:
		return fmt.Errorf("unknown merge entity %q", entityName)
	}
}

func collectMergePlans(keep int64, removeCSV, planFilePath string) ([]merge.Plan, error) {
	hasInline := keep != 0 || strings.TrimSpace(removeCSV) != ""
	hasFile := strings.TrimSpace(planFilePath) != ""

	switch {
	case hasInline && hasFile:
		return nil, fmt.Errorf("--plan-file cannot be combined with --keep/--remove")
	case hasFile:
		payload, err := os.ReadFile(strings.TrimSpace(planFilePath))
		if err != nil {
			return nil, fmt.Errorf("read plan file: %w", err)
		}
		var plans []merge.Plan
		if err := json.Unmarshal(payload, &plans); err != nil {
			return nil, fmt.Errorf("decode plan file: %w", err)
		}
		if len(plans) == 0 {
			return nil, fmt.Errorf("plan file contains no plans")
		}
		for i, plan := range plans {
			if err := plan.Validate(); err != nil {
				return nil, fmt.Errorf("plan %d: %w", i, err)
			}
		}
		return plans, nil
	case hasInline:
		removeIDs, err := parseIDList(removeCSV)
		if err != nil {
			return nil, fmt.Errorf("--remove: %w", err)
		}
		plan := merge.Plan{Keep: keep, Remove: removeIDs}
		if err := plan.Validate(); err != nil {
			return nil, err
		}
		return []merge.Plan{plan}, nil
	default:
		return nil, fmt.Errorf("either --keep/--remove or --plan-file is required (or use --auto)")
	}
}

func parseIDList(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		id, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid id", trimmed)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no ids given")
	}
	return ids, nil
}
