// Package ingest turns validated raw records into venue-resolved event rows.
// It is invoked once per record, possibly by several scraper runs at once;
// the fingerprint unique index is the only concurrency mechanism it needs.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/lineup/internal/db"
	"horse.fit/lineup/internal/fingerprint"
	"horse.fit/lineup/internal/globaltime"
	"horse.fit/lineup/internal/match"
)

// scraperTagPrefix marks automated submissions in user_id. Anything else is
// treated as a human submission and bypasses the never-create gate's drop
// behaviour (the record is kept with a transient null venue instead).
const scraperTagPrefix = "scraper:"

// Outcome names the benign terminal states of one ingestion.
type Outcome string

const (
	OutcomeInserted  Outcome = "inserted"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeSkipped   Outcome = "skipped_unresolved_venue"
)

// EventStore is the write surface the service needs. *db.Pool satisfies it.
type EventStore interface {
	InsertEventIfNew(ctx context.Context, input db.EventInsert, now time.Time) (*int64, error)
}

type Request struct {
	Name      string
	VenueName string
	City      string
	Date      time.Time
	Price     string
	SourceTag string
}

type Result struct {
	Outcome     Outcome
	EventID     *int64
	VenueID     *int64
	Fingerprint string
}

type Service struct {
	store  EventStore
	gate   *match.Gate
	logger zerolog.Logger
}

func NewService(store EventStore, gate *match.Gate, logger zerolog.Logger) *Service {
	return &Service{store: store, gate: gate, logger: logger}
}

// IngestOne resolves the record's venue, fingerprints it, and attempts the
// single guarded insert. A fingerprint conflict is success-already-exists. An
// unresolved venue drops automated records before the insert; human
// submissions keep flowing with a transient null venue.
func (s *Service) IngestOne(ctx context.Context, req Request) (Result, error) {
	if s == nil || s.store == nil {
		return Result{}, fmt.Errorf("ingest service is not initialized")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Result{}, fmt.Errorf("event name is required")
	}
	sourceTag := strings.TrimSpace(req.SourceTag)
	if sourceTag == "" {
		return Result{}, fmt.Errorf("source tag is required")
	}
	if req.Date.IsZero() {
		return Result{}, fmt.Errorf("event date is required")
	}

	venueName := strings.TrimSpace(req.VenueName)
	automated := strings.HasPrefix(sourceTag, scraperTagPrefix)

	var venueID *int64
	resolution, err := s.gate.ResolveForIngestion(ctx, venueName, strings.TrimSpace(req.City))
	if err != nil {
		return Result{}, fmt.Errorf("resolve venue: %w", err)
	}
	if id, ok := resolution.Matched(); ok {
		venueID = &id
	} else if automated {
		return Result{Outcome: OutcomeSkipped}, nil
	}

	// Unresolved human submissions fingerprint against the venue's normalized
	// name until an operator attaches the real venue. Two records naming
	// different unresolved venues must stay distinct rows.
	var key string
	if venueID != nil {
		key = fingerprint.Event(name, *venueID, req.Date)
	} else {
		key = fingerprint.UnresolvedEvent(name, s.gate.Key(venueName), req.Date)
	}

	var price *string
	if trimmed := strings.TrimSpace(req.Price); trimmed != "" {
		price = &trimmed
	}

	eventID, err := s.store.InsertEventIfNew(ctx, db.EventInsert{
		Name:        name,
		Date:        req.Date,
		VenueID:     venueID,
		Price:       price,
		UserID:      sourceTag,
		Fingerprint: key,
	}, globaltime.UTC())
	if err != nil {
		return Result{}, fmt.Errorf("insert event: %w", err)
	}

	result := Result{
		EventID:     eventID,
		VenueID:     venueID,
		Fingerprint: key,
	}
	if eventID == nil {
		// The store already reflects this observation. Existing manual edits
		// stay untouched.
		result.Outcome = OutcomeDuplicate
		s.logger.Debug().
			Str("fingerprint", key).
			Str("name", name).
			Msg("duplicate fingerprint, event already known")
		return result, nil
	}

	result.Outcome = OutcomeInserted
	s.logger.Info().
		Int64("event_id", *eventID).
		Str("fingerprint", key).
		Str("source_tag", sourceTag).
		Msg("event ingested")
	return result, nil
}
