// Package merge turns duplicate-candidate groups into data-driven merge
// plans. Detection (the scanner) and mutation (the transactional Pool
// methods) stay out of here; this is only the decision layer, and the
// automatic policy below is replaceable by a manual override.
package merge

import (
	"fmt"
	"sort"
	"strings"

	"horse.fit/lineup/internal/db"
	"horse.fit/lineup/internal/dedup"
)

// Plan is one keep/remove decision, ready for the transactional executor.
type Plan struct {
	Keep   int64   `json:"keep"`
	Remove []int64 `json:"remove"`
}

// Validate rejects plans that would be no-ops or self-merges.
func (p Plan) Validate() error {
	if p.Keep <= 0 {
		return fmt.Errorf("keep id must be positive, got %d", p.Keep)
	}
	if len(p.Remove) == 0 {
		return fmt.Errorf("at least one remove id is required")
	}
	seen := make(map[int64]struct{}, len(p.Remove))
	for _, id := range p.Remove {
		if id <= 0 {
			return fmt.Errorf("remove id must be positive, got %d", id)
		}
		if id == p.Keep {
			return fmt.Errorf("id %d cannot be both keep and remove", id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("remove id %d listed twice", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// ChooseVenueKeep picks the member to survive an automatic venue merge: a
// non-empty address wins, then the higher dependent-event count, then the
// lowest id. Returns false for groups too small to merge.
func ChooseVenueKeep(members []db.VenueScanRow) (db.VenueScanRow, bool) {
	if len(members) < 2 {
		return db.VenueScanRow{}, false
	}

	best := members[0]
	for _, member := range members[1:] {
		if venueBeats(member, best) {
			best = member
		}
	}
	return best, true
}

func venueBeats(a, b db.VenueScanRow) bool {
	aAddr := hasAddress(a)
	bAddr := hasAddress(b)
	if aAddr != bAddr {
		return aAddr
	}
	if a.EventCount != b.EventCount {
		return a.EventCount > b.EventCount
	}
	return a.VenueID < b.VenueID
}

func hasAddress(v db.VenueScanRow) bool {
	return v.Address != nil && strings.TrimSpace(*v.Address) != ""
}

// ChooseEventKeep picks the member to survive an automatic event dedup: a
// recorded time-of-day that is not the midnight placeholder beats one that
// is, then the lowest id wins. A populated time is evidence of a deliberately
// entered record rather than a default.
func ChooseEventKeep(members []db.EventScanRow) (db.EventScanRow, bool) {
	if len(members) < 2 {
		return db.EventScanRow{}, false
	}

	best := members[0]
	for _, member := range members[1:] {
		if eventBeats(member, best) {
			best = member
		}
	}
	return best, true
}

func eventBeats(a, b db.EventScanRow) bool {
	aTimed := hasTimeOfDay(a)
	bTimed := hasTimeOfDay(b)
	if aTimed != bTimed {
		return aTimed
	}
	return a.EventID < b.EventID
}

func hasTimeOfDay(e db.EventScanRow) bool {
	utc := e.Date.UTC()
	return utc.Hour() != 0 || utc.Minute() != 0 || utc.Second() != 0
}

// VenuePlans converts exact-normalized-name scanner groups into suggested
// plans for operator review. Venue merges are never applied automatically:
// two venues can legitimately share a normalized name in the same city
// (branches of the same chain), and only a human can tell. Fuzzy and address
// groups are not even suggested.
func VenuePlans(groups []dedup.VenueGroup) []Plan {
	plans := make([]Plan, 0, len(groups))
	for _, group := range groups {
		if group.Strategy != dedup.StrategyExactName {
			continue
		}
		keep, ok := ChooseVenueKeep(group.Members)
		if !ok {
			continue
		}
		plan := Plan{Keep: keep.VenueID}
		for _, member := range group.Members {
			if member.VenueID != keep.VenueID {
				plan.Remove = append(plan.Remove, member.VenueID)
			}
		}
		sort.Slice(plan.Remove, func(i, j int) bool { return plan.Remove[i] < plan.Remove[j] })
		plans = append(plans, plan)
	}
	return plans
}

// EventPlans converts scanner event groups into automatic dedup plans.
func EventPlans(groups []dedup.EventGroup) []Plan {
	plans := make([]Plan, 0, len(groups))
	for _, group := range groups {
		keep, ok := ChooseEventKeep(group.Members)
		if !ok {
			continue
		}
		plan := Plan{Keep: keep.EventID}
		for _, member := range group.Members {
			if member.EventID != keep.EventID {
				plan.Remove = append(plan.Remove, member.EventID)
			}
		}
		sort.Slice(plan.Remove, func(i, j int) bool { return plan.Remove[i] < plan.Remove[j] })
		plans = append(plans, plan)
	}
	return plans
}
