package merge

import (
	"testing"
	"time"

	"horse.fit/lineup/internal/db"
	"horse.fit/lineup/internal/dedup"
)

func strPtr(s string) *string { return &s }
func intPtr(i int64) *int64   { return &i }

func TestPlanValidate(t *testing.T) {
	t.Parallel()

	if err := (Plan{Keep: 3, Remove: []int64{23}}).Validate(); err != nil {
		t.Fatalf("expected valid plan, got %v", err)
	}
	if err := (Plan{Keep: 3}).Validate(); err == nil {
		t.Fatalf("expected error for empty remove list")
	}
	if err := (Plan{Keep: 3, Remove: []int64{3}}).Validate(); err == nil {
		t.Fatalf("expected error for self-merge")
	}
	if err := (Plan{Keep: 3, Remove: []int64{5, 5}}).Validate(); err == nil {
		t.Fatalf("expected error for duplicated remove id")
	}
	if err := (Plan{Keep: 0, Remove: []int64{5}}).Validate(); err == nil {
		t.Fatalf("expected error for non-positive keep id")
	}
}

func TestChooseVenueKeep_AddressWins(t *testing.T) {
	t.Parallel()

	members := []db.VenueScanRow{
		{VenueID: 3, Name: "Leith Depot", EventCount: 5},
		{VenueID: 23, Name: "Leith Depot Bar", Address: strPtr("140 Leith Walk"), EventCount: 2},
	}
	keep, ok := ChooseVenueKeep(members)
	if !ok {
		t.Fatalf("expected a keep choice")
	}
	if keep.VenueID != 23 {
		t.Fatalf("expected addressed member to win, got %d", keep.VenueID)
	}
}

func TestChooseVenueKeep_EventCountThenLowestID(t *testing.T) {
	t.Parallel()

	members := []db.VenueScanRow{
		{VenueID: 23, EventCount: 2},
		{VenueID: 3, EventCount: 5},
	}
	keep, _ := ChooseVenueKeep(members)
	if keep.VenueID != 3 {
		t.Fatalf("expected higher event count to win, got %d", keep.VenueID)
	}

	members = []db.VenueScanRow{
		{VenueID: 23, Address: strPtr(" ")},
		{VenueID: 3},
	}
	keep, _ = ChooseVenueKeep(members)
	if keep.VenueID != 3 {
		t.Fatalf("expected blank address to not count and lowest id to win, got %d", keep.VenueID)
	}

	if _, ok := ChooseVenueKeep(members[:1]); ok {
		t.Fatalf("expected no choice for a single-member group")
	}
}

func TestChooseEventKeep_TimeOfDayWins(t *testing.T) {
	t.Parallel()

	members := []db.EventScanRow{
		{EventID: 10, Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
		{EventID: 11, Date: time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)},
	}
	keep, ok := ChooseEventKeep(members)
	if !ok {
		t.Fatalf("expected a keep choice")
	}
	if keep.EventID != 11 {
		t.Fatalf("expected the timed member to beat the midnight placeholder, got %d", keep.EventID)
	}

	members = []db.EventScanRow{
		{EventID: 11, Date: time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)},
		{EventID: 10, Date: time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)},
	}
	keep, _ = ChooseEventKeep(members)
	if keep.EventID != 10 {
		t.Fatalf("expected lowest id among timed members, got %d", keep.EventID)
	}
}

func TestVenuePlans_OnlyExactGroups(t *testing.T) {
	t.Parallel()

	groups := []dedup.VenueGroup{
		{
			Strategy: dedup.StrategyExactName,
			Members: []db.VenueScanRow{
				{VenueID: 3, Address: strPtr("140 Leith Walk"), EventCount: 5},
				{VenueID: 23, EventCount: 2},
				{VenueID: 40},
			},
		},
		{
			Strategy: dedup.StrategyFuzzyName,
			Members: []db.VenueScanRow{
				{VenueID: 7},
				{VenueID: 8},
			},
		},
	}

	plans := VenuePlans(groups)
	if len(plans) != 1 {
		t.Fatalf("expected fuzzy groups excluded, got %+v", plans)
	}
	plan := plans[0]
	if plan.Keep != 3 {
		t.Fatalf("unexpected keep: %d", plan.Keep)
	}
	if len(plan.Remove) != 2 || plan.Remove[0] != 23 || plan.Remove[1] != 40 {
		t.Fatalf("unexpected remove list: %v", plan.Remove)
	}
	if err := plan.Validate(); err != nil {
		t.Fatalf("generated plan should validate: %v", err)
	}
}

func TestEventPlans(t *testing.T) {
	t.Parallel()

	groups := []dedup.EventGroup{
		{
			Strategy: dedup.StrategyEventDay,
			Members: []db.EventScanRow{
				{EventID: 12, Date: time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC), VenueID: intPtr(61)},
				{EventID: 13, Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), VenueID: intPtr(61)},
			},
		},
	}

	plans := EventPlans(groups)
	if len(plans) != 1 {
		t.Fatalf("expected one plan, got %+v", plans)
	}
	if plans[0].Keep != 12 || len(plans[0].Remove) != 1 || plans[0].Remove[0] != 13 {
		t.Fatalf("unexpected plan: %+v", plans[0])
	}
}
