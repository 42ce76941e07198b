package match

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/lineup/internal/db"
	"horse.fit/lineup/internal/normalize"
)

// memoryVenueStore mimics the Pool query: key equality, null city wildcard,
// rows ordered by id. It counts rows so the no-create property is observable.
type memoryVenueStore struct {
	venues []db.VenueMatch
	calls  int
}

func (s *memoryVenueStore) FindVenuesByKey(_ context.Context, key, city string) ([]db.VenueMatch, error) {
	s.calls++
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

func testMatcher(store *memoryVenueStore) *Matcher {
	namer := normalize.NewNamer([]string{"edinburgh", "glasgow"})
	return NewMatcher(store, namer, zerolog.Nop())
}

func TestMatch_NormalizedVariants(t *testing.T) {
	t.Parallel()

	store := &memoryVenueStore{venues: []db.VenueMatch{
		{VenueID: 3, Name: "Leith Depot", NormalizedName: "leith depot", City: strPtr("Edinburgh")},
	}}
	matcher := testMatcher(store)

	for _, raw := range []string{"Leith Depot", "The Leith Depot", "Leith Depot Bar", "LEITH DEPOTS"} {
		venue, err := matcher.Match(context.Background(), raw, "Edinburgh")
		if err != nil {
			t.Fatalf("match %q: %v", raw, err)
		}
		if venue == nil || venue.VenueID != 3 {
			t.Fatalf("expected %q to resolve to venue 3, got %+v", raw, venue)
		}
	}
}

func TestMatch_NullCityWildcard(t *testing.T) {
	t.Parallel()

	store := &memoryVenueStore{venues: []db.VenueMatch{
		{VenueID: 7, Name: "Bannermans", NormalizedName: "bannerman", City: nil},
	}}
	matcher := testMatcher(store)

	venue, err := matcher.Match(context.Background(), "Bannermans", "Edinburgh")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if venue == nil || venue.VenueID != 7 {
		t.Fatalf("expected null-city venue to match any city, got %+v", venue)
	}

	venue, err = matcher.Match(context.Background(), "Bannermans", "")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if venue == nil || venue.VenueID != 7 {
		t.Fatalf("expected blank query city to act as wildcard, got %+v", venue)
	}
}

func TestMatch_CityMismatch(t *testing.T) {
	t.Parallel()

	store := &memoryVenueStore{venues: []db.VenueMatch{
		{VenueID: 7, Name: "Broadcast", NormalizedName: "broadcast", City: strPtr("Glasgow")},
	}}
	matcher := testMatcher(store)

	venue, err := matcher.Match(context.Background(), "Broadcast", "Edinburgh")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if venue != nil {
		t.Fatalf("expected no match for differing city, got %+v", venue)
	}
}

func TestMatch_AmbiguousPicksLowestID(t *testing.T) {
	t.Parallel()

	store := &memoryVenueStore{venues: []db.VenueMatch{
		{VenueID: 3, Name: "Leith Depot", NormalizedName: "leith depot", City: strPtr("Edinburgh")},
		{VenueID: 23, Name: "Leith Depot Bar", NormalizedName: "leith depot", City: strPtr("Edinburgh")},
	}}
	matcher := testMatcher(store)

	venue, err := matcher.Match(context.Background(), "Leith Depot", "Edinburgh")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if venue == nil || venue.VenueID != 3 {
		t.Fatalf("expected deterministic lowest-id pick, got %+v", venue)
	}
}

func TestMatch_EmptyKeyNeverQueries(t *testing.T) {
	t.Parallel()

	store := &memoryVenueStore{}
	matcher := testMatcher(store)

	venue, err := matcher.Match(context.Background(), "!!!", "")
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if venue != nil {
		t.Fatalf("expected no match for noise-only name, got %+v", venue)
	}
	if store.calls != 0 {
		t.Fatalf("expected no store query for empty key, got %d", store.calls)
	}
}

func TestGate_NeverCreates(t *testing.T) {
	t.Parallel()

	store := &memoryVenueStore{venues: []db.VenueMatch{
		{VenueID: 60, Name: "King Tut's Wah Wah Hut", NormalizedName: "king tut wah wah hut", City: strPtr("Glasgow")},
	}}
	gate := NewGate(testMatcher(store), zerolog.Nop())

	before := len(store.venues)
	unmatched := []string{"Totally Unknown Venue", "Another Mystery Hall", "", "??"}
	for _, raw := range unmatched {
		res, err := gate.ResolveForIngestion(context.Background(), raw, "Glasgow")
		if err != nil {
			t.Fatalf("resolve %q: %v", raw, err)
		}
		if !res.Skipped() {
			t.Fatalf("expected skip for %q", raw)
		}
	}
	if len(store.venues) != before {
		t.Fatalf("gate created venues: %d -> %d", before, len(store.venues))
	}

	res, err := gate.ResolveForIngestion(context.Background(), "King Tuts Wah Wah Hut", "Glasgow")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	id, ok := res.Matched()
	if !ok || id != 60 {
		t.Fatalf("expected match on venue 60, got matched=%t id=%d", ok, id)
	}
	if len(store.venues) != before {
		t.Fatalf("gate created venues on hit path: %d -> %d", before, len(store.venues))
	}
}
