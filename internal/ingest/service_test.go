package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/lineup/internal/db"
	"horse.fit/lineup/internal/match"
	"horse.fit/lineup/internal/normalize"
)

// memoryStore enforces fingerprint uniqueness the way the Postgres unique
// index does: the second insert of a known fingerprint returns no row.
type memoryStore struct {
	events map[string]int64
	nextID int64
	venues []db.VenueMatch
}

func newMemoryStore(venues ...db.VenueMatch) *memoryStore {
	return &memoryStore{events: make(map[string]int64), nextID: 1, venues: venues}
}

func (s *memoryStore) InsertEventIfNew(_ context.Context, input db.EventInsert, _ time.Time) (*int64, error) {
	if _, exists := s.events[input.Fingerprint]; exists {
		return nil, nil
	}
	id := s.nextID
	s.nextID++
	s.events[input.Fingerprint] = id
	return &id, nil
}

func (s *memoryStore) FindVenuesByKey(_ context.Context, key, city string) ([]db.VenueMatch, error) {
	matches := make([]db.VenueMatch, 0, 1)
	for _, venue := range s.venues {
		if venue.NormalizedName != key {
			continue
		}
		if city != "" && venue.City != nil && *venue.City != city {
			continue
		}
		matches = append(matches, venue)
	}
	return matches, nil
}

func strPtr(s string) *string { return &s }

func testService(store *memoryStore) *Service {
	namer := normalize.NewNamer([]string{"edinburgh", "glasgow"})
	matcher := match.NewMatcher(store, namer, zerolog.Nop())
	gate := match.NewGate(matcher, zerolog.Nop())
	return NewService(store, gate, zerolog.Nop())
}

func TestIngestOne_IdempotentUnderRescraping(t *testing.T) {
	t.Parallel()

	store := newMemoryStore(db.VenueMatch{
		VenueID: 60, Name: "Broadcast", NormalizedName: "broadcast", City: strPtr("Glasgow"),
	})
	svc := testService(store)

	req := Request{
		Name:      "Live Band Night",
		VenueName: "Broadcast",
		City:      "Glasgow",
		Date:      time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC),
		SourceTag: "scraper:gigfeed",
	}

	first, err := svc.IngestOne(context.Background(), req)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if first.Outcome != OutcomeInserted || first.EventID == nil {
		t.Fatalf("expected insert, got %+v", first)
	}
	if first.VenueID == nil || *first.VenueID != 60 {
		t.Fatalf("expected venue 60, got %+v", first.VenueID)
	}

	second, err := svc.IngestOne(context.Background(), req)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if second.Outcome != OutcomeDuplicate {
		t.Fatalf("expected duplicate outcome, got %q", second.Outcome)
	}
	if second.Fingerprint != first.Fingerprint {
		t.Fatalf("fingerprints diverged: %q vs %q", first.Fingerprint, second.Fingerprint)
	}
	if len(store.events) != 1 {
		t.Fatalf("expected exactly one event row, got %d", len(store.events))
	}
}

func TestIngestOne_AutomatedMissIsDropped(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	svc := testService(store)

	result, err := svc.IngestOne(context.Background(), Request{
		Name:      "Secret Show",
		VenueName: "Unknown Cellar",
		City:      "Edinburgh",
		Date:      time.Date(2024, 6, 1, 19, 30, 0, 0, time.UTC),
		SourceTag: "scraper:gigfeed",
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.Outcome != OutcomeSkipped {
		t.Fatalf("expected skip, got %q", result.Outcome)
	}
	if len(store.events) != 0 {
		t.Fatalf("expected no event rows, got %d", len(store.events))
	}
}

func TestIngestOne_HumanMissKeepsRecord(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	svc := testService(store)

	result, err := svc.IngestOne(context.Background(), Request{
		Name:      "House Party Set",
		VenueName: "Somebody's Flat",
		City:      "Edinburgh",
		Date:      time.Date(2024, 6, 2, 21, 0, 0, 0, time.UTC),
		SourceTag: "user:42",
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.Outcome != OutcomeInserted || result.EventID == nil {
		t.Fatalf("expected insert with transient null venue, got %+v", result)
	}
	if result.VenueID != nil {
		t.Fatalf("expected nil venue id, got %d", *result.VenueID)
	}
}

func TestIngestOne_DistinctUnresolvedVenuesStayDistinct(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	svc := testService(store)

	date := time.Date(2024, 6, 2, 21, 0, 0, 0, time.UTC)
	cellarA := Request{
		Name:      "House Party Set",
		VenueName: "Cellar A",
		City:      "Edinburgh",
		Date:      date,
		SourceTag: "user:a",
	}
	cellarB := cellarA
	cellarB.VenueName = "Cellar B"
	cellarB.SourceTag = "user:b"

	first, err := svc.IngestOne(context.Background(), cellarA)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	second, err := svc.IngestOne(context.Background(), cellarB)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if first.Outcome != OutcomeInserted || second.Outcome != OutcomeInserted {
		t.Fatalf("expected two inserts, got %q and %q", first.Outcome, second.Outcome)
	}
	if first.Fingerprint == second.Fingerprint {
		t.Fatalf("different unresolved venues produced the same fingerprint %q", first.Fingerprint)
	}
	if len(store.events) != 2 {
		t.Fatalf("expected two event rows, got %d", len(store.events))
	}

	// The same unresolved venue submitted again is still a duplicate.
	repeat, err := svc.IngestOne(context.Background(), cellarA)
	if err != nil {
		t.Fatalf("repeat ingest: %v", err)
	}
	if repeat.Outcome != OutcomeDuplicate {
		t.Fatalf("expected duplicate outcome, got %q", repeat.Outcome)
	}
	if len(store.events) != 2 {
		t.Fatalf("expected two event rows after repeat, got %d", len(store.events))
	}
}

func TestIngestOne_Validation(t *testing.T) {
	t.Parallel()

	svc := testService(newMemoryStore())

	if _, err := svc.IngestOne(context.Background(), Request{
		VenueName: "Broadcast",
		Date:      time.Now(),
		SourceTag: "scraper:gigfeed",
	}); err == nil {
		t.Fatalf("expected error for missing name")
	}

	if _, err := svc.IngestOne(context.Background(), Request{
		Name:      "Gig",
		VenueName: "Broadcast",
		Date:      time.Now(),
	}); err == nil {
		t.Fatalf("expected error for missing source tag")
	}

	if _, err := svc.IngestOne(context.Background(), Request{
		Name:      "Gig",
		VenueName: "Broadcast",
		SourceTag: "scraper:gigfeed",
	}); err == nil {
		t.Fatalf("expected error for missing date")
	}
}
