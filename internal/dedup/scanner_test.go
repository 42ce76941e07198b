package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/lineup/internal/db"
)

func strPtr(s string) *string { return &s }
func intPtr(i int64) *int64   { return &i }

func TestGroupExactNames(t *testing.T) {
	t.Parallel()

	venues := []db.VenueScanRow{
		{VenueID: 3, Name: "Leith Depot", NormalizedName: "leith depot", City: strPtr("Edinburgh"), EventCount: 5},
		{VenueID: 23, Name: "Leith Depot Bar", NormalizedName: "leith depot", City: strPtr("Edinburgh"), EventCount: 2},
		{VenueID: 40, Name: "Leith Depot", NormalizedName: "leith depot", City: strPtr("Glasgow")},
		{VenueID: 41, Name: "Summerhall", NormalizedName: "summerhall", City: strPtr("Edinburgh")},
		{VenueID: 50, Name: "???", NormalizedName: ""},
		{VenueID: 51, Name: "!!!", NormalizedName: ""},
	}

	groups := GroupExactNames(venues)
	if len(groups) != 1 {
		t.Fatalf("expected one group, got %d: %+v", len(groups), groups)
	}
	group := groups[0]
	if group.Strategy != StrategyExactName {
		t.Fatalf("unexpected strategy: %q", group.Strategy)
	}
	if len(group.Members) != 2 || group.Members[0].VenueID != 3 || group.Members[1].VenueID != 23 {
		t.Fatalf("unexpected members: %+v", group.Members)
	}
	if group.Members[0].EventCount != 5 {
		t.Fatalf("expected dependent counts carried, got %d", group.Members[0].EventCount)
	}
}

func TestGroupFuzzyNames(t *testing.T) {
	t.Parallel()

	venues := []db.VenueScanRow{
		{VenueID: 1, Name: "Sneaky Pete's", NormalizedName: "sneaky pete", City: strPtr("Edinburgh")},
		{VenueID: 2, Name: "Sneaky Petes", NormalizedName: "sneaky pete", City: strPtr("Edinburgh")},
		{VenueID: 3, Name: "Usher Hall", NormalizedName: "usher", City: strPtr("Edinburgh")},
		{VenueID: 4, Name: "Sneaky Petes", NormalizedName: "sneaky pete", City: strPtr("Glasgow")},
		{VenueID: 5, Name: "No City Venue", NormalizedName: "no city"},
	}

	groups := GroupFuzzyNames(venues, 0.6)
	if len(groups) != 1 {
		t.Fatalf("expected one same-city pair, got %d: %+v", len(groups), groups)
	}
	members := groups[0].Members
	if len(members) != 2 || members[0].VenueID != 1 || members[1].VenueID != 2 {
		t.Fatalf("unexpected members: %+v", members)
	}
}

func TestGroupFuzzyNames_ThresholdIsConfig(t *testing.T) {
	t.Parallel()

	venues := []db.VenueScanRow{
		{VenueID: 1, Name: "The Caves", NormalizedName: "cave", City: strPtr("Edinburgh")},
		{VenueID: 2, Name: "The Cave Bar", NormalizedName: "cave", City: strPtr("Edinburgh")},
	}

	strict := GroupFuzzyNames(venues, 0.99)
	if len(strict) != 0 {
		t.Fatalf("expected no pair above 0.99 for non-prefix names, got %+v", strict)
	}

	loose := GroupFuzzyNames(venues, 0.5)
	if len(loose) != 1 {
		t.Fatalf("expected a pair at 0.5, got %+v", loose)
	}
}

func TestGroupAddresses(t *testing.T) {
	t.Parallel()

	venues := []db.VenueScanRow{
		{VenueID: 1, Name: "Sneaky Pete's", Address: strPtr("73 Cowgate")},
		{VenueID: 2, Name: "Sneaky Petes", Address: strPtr("73 Cowgate, Edinburgh")},
		{VenueID: 3, Name: "Summerhall", Address: strPtr("1 Summerhall Place")},
		{VenueID: 4, Name: "No Address"},
	}

	groups := GroupAddresses(venues)
	if len(groups) != 1 {
		t.Fatalf("expected one containment group, got %d: %+v", len(groups), groups)
	}
	members := groups[0].Members
	if len(members) != 2 || members[0].VenueID != 1 || members[1].VenueID != 2 {
		t.Fatalf("unexpected members: %+v", members)
	}
}

func TestGroupEvents(t *testing.T) {
	t.Parallel()

	night := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	midnight := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	rows := []db.EventScanRow{
		{EventID: 10, Name: "Live Band Night", Date: night, VenueID: intPtr(60)},
		{EventID: 11, Name: "Live Band Night", Date: night, VenueID: intPtr(60)},
		{EventID: 12, Name: "Club Takeover", Date: night, VenueID: intPtr(61)},
		{EventID: 13, Name: "Club Takeover", Date: midnight, VenueID: intPtr(61)},
	}

	groups := GroupEvents(rows)
	if len(groups) != 2 {
		t.Fatalf("expected one exact and one day-level group, got %d: %+v", len(groups), groups)
	}

	var exact, daily *EventGroup
	for i := range groups {
		switch groups[i].Strategy {
		case StrategyEventTriple:
			exact = &groups[i]
		case StrategyEventDay:
			daily = &groups[i]
		}
	}
	if exact == nil || len(exact.Members) != 2 || exact.Members[0].EventID != 10 {
		t.Fatalf("unexpected exact group: %+v", exact)
	}
	if daily == nil || len(daily.Members) != 2 || daily.Members[0].EventID != 12 {
		t.Fatalf("unexpected day-level group: %+v", daily)
	}
}

type memoryScanStore struct {
	venues []db.VenueScanRow
	events []db.EventScanRow
}

func (s *memoryScanStore) ListVenuesForScan(context.Context) ([]db.VenueScanRow, error) {
	return s.venues, nil
}

func (s *memoryScanStore) ListDuplicateEventCandidates(context.Context) ([]db.EventScanRow, error) {
	return s.events, nil
}

func TestScan_Restartable(t *testing.T) {
	t.Parallel()

	store := &memoryScanStore{
		venues: []db.VenueScanRow{
			{VenueID: 3, Name: "Leith Depot", NormalizedName: "leith depot", City: strPtr("Edinburgh")},
			{VenueID: 23, Name: "Leith Depot Bar", NormalizedName: "leith depot", City: strPtr("Edinburgh")},
		},
	}
	scanner := NewScanner(store, 0.6, zerolog.Nop())

	first, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	// Exact group plus the overlapping fuzzy pair; strategies are not disjoint.
	if len(first.VenueGroups) != 2 {
		t.Fatalf("expected two overlapping groups, got %+v", first.VenueGroups)
	}

	store.venues = store.venues[:1]
	second, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if len(second.VenueGroups) != 0 {
		t.Fatalf("expected rescan over current state to find nothing, got %+v", second.VenueGroups)
	}
}
