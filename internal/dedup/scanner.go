// Package dedup scans the live venue and event tables for groups that should
// have matched at ingestion time but did not, and reports merge candidates.
// Detection is read-only; deciding and mutating live elsewhere.
package dedup

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/lineup/internal/db"
	"horse.fit/lineup/internal/normalize"
)

// Strategy tags how a candidate group was found. A real duplicate may be
// found by more than one strategy; groups are not disjoint.
type Strategy string

const (
	StrategyExactName   Strategy = "exact_normalized_name"
	StrategyFuzzyName   Strategy = "fuzzy_name"
	StrategyAddress     Strategy = "similar_address"
	StrategyEventTriple Strategy = "event_triple"
	StrategyEventDay    Strategy = "event_day"
)

// VenueGroup is a set of venues suspected to be one real-world venue. Members
// carry their dependent-event counts as tie-break signal for the resolver.
type VenueGroup struct {
	Strategy Strategy          `json:"strategy"`
	Key      string            `json:"key"`
	Members  []db.VenueScanRow `json:"members"`
}

// EventGroup is a set of events suspected to be one real-world listing. The
// members' recorded time-of-day is the tie-break signal: a populated time
// beats the midnight placeholder.
type EventGroup struct {
	Strategy Strategy          `json:"strategy"`
	Key      string            `json:"key"`
	Members  []db.EventScanRow `json:"members"`
}

// Report is one scan's output, recomputed from current store state on every
// invocation.
type Report struct {
	VenueGroups []VenueGroup `json:"venue_groups"`
	EventGroups []EventGroup `json:"event_groups"`
}

// Store is the read-only surface the scanner needs. *db.Pool satisfies it.
type Store interface {
	ListVenuesForScan(ctx context.Context) ([]db.VenueScanRow, error)
	ListDuplicateEventCandidates(ctx context.Context) ([]db.EventScanRow, error)
}

type Scanner struct {
	store          Store
	fuzzyThreshold float64
	logger         zerolog.Logger
}

func NewScanner(store Store, fuzzyThreshold float64, logger zerolog.Logger) *Scanner {
	return &Scanner{store: store, fuzzyThreshold: fuzzyThreshold, logger: logger}
}

// Scan runs every detection strategy against current store state.
func (s *Scanner) Scan(ctx context.Context) (Report, error) {
	venues, err := s.store.ListVenuesForScan(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list venues for scan: %w", err)
	}
	eventRows, err := s.store.ListDuplicateEventCandidates(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list duplicate event candidates: %w", err)
	}

	report := Report{}
	report.VenueGroups = append(report.VenueGroups, GroupExactNames(venues)...)
	report.VenueGroups = append(report.VenueGroups, GroupFuzzyNames(venues, s.fuzzyThreshold)...)
	report.VenueGroups = append(report.VenueGroups, GroupAddresses(venues)...)
	report.EventGroups = GroupEvents(eventRows)

	s.logger.Info().
		Int("venues_scanned", len(venues)).
		Int("venue_groups", len(report.VenueGroups)).
		Int("event_groups", len(report.EventGroups)).
		Msg("duplicate scan complete")

	return report, nil
}

func cityLabel(city *string) string {
	if city == nil {
		return "<nil>"
	}
	return strings.TrimSpace(*city)
}

// GroupExactNames groups venues by (normalized_name, city) and reports every
// group with more than one member. An empty normalized name never groups: a
// noise-only name matching another noise-only name means nothing.
func GroupExactNames(venues []db.VenueScanRow) []VenueGroup {
	byKey := make(map[string][]db.VenueScanRow)
	order := make([]string, 0, len(venues))
	for _, venue := range venues {
		if venue.NormalizedName == "" {
			continue
		}
		key := venue.NormalizedName + "|" + cityLabel(venue.City)
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], venue)
	}

	groups := make([]VenueGroup, 0, 4)
	for _, key := range order {
		members := byKey[key]
		if len(members) < 2 {
			continue
		}
		groups = append(groups, VenueGroup{Strategy: StrategyExactName, Key: key, Members: members})
	}
	return groups
}

// GroupFuzzyNames flags same-city venue pairs whose raw names are either
// prefix-related or above the similarity threshold. Pairs already identical
// under normalization still appear here; strategies overlap by design.
func GroupFuzzyNames(venues []db.VenueScanRow, threshold float64) []VenueGroup {
	byCity := make(map[string][]db.VenueScanRow)
	cities := make([]string, 0, 8)
	for _, venue := range venues {
		city := cityLabel(venue.City)
		if city == "<nil>" || city == "" {
			continue
		}
		if _, seen := byCity[city]; !seen {
			cities = append(cities, city)
		}
		byCity[city] = append(byCity[city], venue)
	}
	sort.Strings(cities)

	groups := make([]VenueGroup, 0, 4)
	for _, city := range cities {
		members := byCity[city]
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				left, right := members[i], members[j]
				if !PrefixAfterTrim(left.Name, right.Name) && Similarity(left.Name, right.Name) < threshold {
					continue
				}
				groups = append(groups, VenueGroup{
					Strategy: StrategyFuzzyName,
					Key:      fmt.Sprintf("%s|%d|%d", city, left.VenueID, right.VenueID),
					Members:  []db.VenueScanRow{left, right},
				})
			}
		}
	}
	return groups
}

// GroupAddresses groups venues whose normalized address text is equal to or
// contained in another's. Containment is transitive enough for merging via
// union: "13 nicolson st" pulls in "13 nicolson st edinburgh".
func GroupAddresses(venues []db.VenueScanRow) []VenueGroup {
	type addressed struct {
		row  db.VenueScanRow
		text string
	}
	candidates := make([]addressed, 0, len(venues))
	for _, venue := range venues {
		if venue.Address == nil {
			continue
		}
		text := normalize.Text(*venue.Address)
		if text == "" {
			continue
		}
		candidates = append(candidates, addressed{row: venue, text: text})
	}

	parent := make([]int, len(candidates))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(i, j int) {
		parent[find(i)] = find(j)
	}

	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			a, b := candidates[i].text, candidates[j].text
			if a == b || strings.Contains(a, b) || strings.Contains(b, a) {
				union(i, j)
			}
		}
	}

	byRoot := make(map[int][]int)
	for i := range candidates {
		root := find(i)
		byRoot[root] = append(byRoot[root], i)
	}

	roots := make([]int, 0, len(byRoot))
	for root, indexes := range byRoot {
		if len(indexes) > 1 {
			roots = append(roots, root)
		}
	}
	sort.Ints(roots)

	groups := make([]VenueGroup, 0, len(roots))
	for _, root := range roots {
		indexes := byRoot[root]
		sort.Ints(indexes)
		members := make([]db.VenueScanRow, 0, len(indexes))
		for _, i := range indexes {
			members = append(members, candidates[i].row)
		}
		groups = append(groups, VenueGroup{
			Strategy: StrategyAddress,
			Key:      candidates[indexes[0]].text,
			Members:  members,
		})
	}
	return groups
}

// GroupEvents splits day-level duplicate candidate rows into exact
// (name, venue, timestamp) groups and day-level groups where only the
// time-of-day differs.
func GroupEvents(rows []db.EventScanRow) []EventGroup {
	exact := make(map[string][]db.EventScanRow)
	daily := make(map[string][]db.EventScanRow)
	exactOrder := make([]string, 0, len(rows))
	dailyOrder := make([]string, 0, len(rows))

	venueLabel := func(id *int64) string {
		if id == nil {
			return "<nil>"
		}
		return fmt.Sprintf("%d", *id)
	}

	for _, row := range rows {
		exactKey := fmt.Sprintf("%s|%s|%s", row.Name, venueLabel(row.VenueID), row.Date.UTC().Format(time.RFC3339))
		if _, seen := exact[exactKey]; !seen {
			exactOrder = append(exactOrder, exactKey)
		}
		exact[exactKey] = append(exact[exactKey], row)

		dayKey := fmt.Sprintf("%s|%s|%s", row.Name, venueLabel(row.VenueID), row.Date.UTC().Format("2006-01-02"))
		if _, seen := daily[dayKey]; !seen {
			dailyOrder = append(dailyOrder, dayKey)
		}
		daily[dayKey] = append(daily[dayKey], row)
	}

	groups := make([]EventGroup, 0, 4)
	for _, key := range exactOrder {
		members := exact[key]
		if len(members) < 2 {
			continue
		}
		groups = append(groups, EventGroup{Strategy: StrategyEventTriple, Key: key, Members: members})
	}
	for _, key := range dailyOrder {
		members := daily[key]
		if len(members) < 2 {
			continue
		}
		// Skip day groups that are exactly one exact group; they add nothing.
		allSameInstant := true
		for _, member := range members[1:] {
			if !member.Date.Equal(members[0].Date) {
				allSameInstant = false
				break
			}
		}
		if allSameInstant {
			continue
		}
		groups = append(groups, EventGroup{Strategy: StrategyEventDay, Key: key, Members: members})
	}
	return groups
}
