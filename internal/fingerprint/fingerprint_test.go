package fingerprint

import (
	"testing"
	"time"
)

func TestEvent_Stable(t *testing.T) {
	t.Parallel()

	date := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	first := Event("Gig A", 60, date)
	second := Event("Gig A", 60, date)
	if first != second {
		t.Fatalf("fingerprint not stable: %q vs %q", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("unexpected fingerprint length: %d", len(first))
	}
}

func TestEvent_DistinguishesDateAndVenue(t *testing.T) {
	t.Parallel()

	base := Event("Gig A", 60, time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC))
	nextNight := Event("Gig A", 60, time.Date(2024, 5, 2, 20, 0, 0, 0, time.UTC))
	otherVenue := Event("Gig A", 61, time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC))

	if base == nextNight {
		t.Fatalf("same fingerprint for different nights")
	}
	if base == otherVenue {
		t.Fatalf("same fingerprint for different venues")
	}
}

func TestEvent_NormalizesNameAndTimezone(t *testing.T) {
	t.Parallel()

	utc := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	bst := utc.In(time.FixedZone("BST", 3600))

	if Event("Live Band Night!", 60, utc) != Event("  live band night ", 60, bst) {
		t.Fatalf("expected casing, punctuation and timezone to be irrelevant")
	}
}

func TestEvent_NoDelimiterCollision(t *testing.T) {
	t.Parallel()

	date := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	if Event("a venue=1", 2, date) == Event("a", 1, date) {
		t.Fatalf("field boundary collision")
	}
}

func TestUnresolvedEvent_DistinguishesVenueKeys(t *testing.T) {
	t.Parallel()

	date := time.Date(2024, 6, 2, 21, 0, 0, 0, time.UTC)
	cellarA := UnresolvedEvent("House Party Set", "cellar a", date)
	cellarB := UnresolvedEvent("House Party Set", "cellar b", date)
	if cellarA == cellarB {
		t.Fatalf("same fingerprint for different unresolved venues")
	}
	if again := UnresolvedEvent("House Party Set", "cellar a", date); again != cellarA {
		t.Fatalf("fingerprint not stable: %q vs %q", cellarA, again)
	}
}

func TestUnresolvedEvent_DisjointFromResolvedKeys(t *testing.T) {
	t.Parallel()

	date := time.Date(2024, 6, 2, 21, 0, 0, 0, time.UTC)
	for _, venueID := range []int64{0, 1, 60} {
		if Event("House Party Set", venueID, date) == UnresolvedEvent("House Party Set", "", date) {
			t.Fatalf("unresolved key collides with venue id %d", venueID)
		}
	}
}
