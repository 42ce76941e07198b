package db

import (
	"context"
	"fmt"
	"time"
)

// ListingStats is the aggregate snapshot used by the stats command and the
// HTTP API.
type ListingStats struct {
	Venues            int64      `json:"venues"`
	Events            int64      `json:"events"`
	ApprovedEvents    int64      `json:"approved_events"`
	UnresolvedEvents  int64      `json:"unresolved_events"`
	ScraperEvents     int64      `json:"scraper_events"`
	UserEvents        int64      `json:"user_events"`
	EventsToday       int64      `json:"events_ingested_today"`
	LastEventAt       *time.Time `json:"last_event_at,omitempty"`
	LastVenueAt       *time.Time `json:"last_venue_at,omitempty"`
}

// QueryListingStats returns entity counts and ingestion recency.
func (p *Pool) QueryListingStats(ctx context.Context, dayStart, dayEnd time.Time) (ListingStats, error) {
	const q = `
SELECT
	(SELECT COUNT(*)::BIGINT FROM listings.venues),
	(SELECT COUNT(*)::BIGINT FROM listings.events),
	(SELECT COUNT(*)::BIGINT FROM listings.events WHERE approved),
	(SELECT COUNT(*)::BIGINT FROM listings.events WHERE venue_id IS NULL),
	(SELECT COUNT(*)::BIGINT FROM listings.events WHERE user_id LIKE 'scraper:%'),
	(SELECT COUNT(*)::BIGINT FROM listings.events WHERE user_id LIKE 'user:%'),
	(SELECT COUNT(*)::BIGINT FROM listings.events WHERE created_at >= $1 AND created_at < $2),
	(SELECT MAX(created_at) FROM listings.events),
	(SELECT MAX(created_at) FROM listings.venues)
`

	var stats ListingStats
	err := p.QueryRow(ctx, q, dayStart.UTC(), dayEnd.UTC()).Scan(
		&stats.Venues,
		&stats.Events,
		&stats.ApprovedEvents,
		&stats.UnresolvedEvents,
		&stats.ScraperEvents,
		&stats.UserEvents,
		&stats.EventsToday,
		&stats.LastEventAt,
		&stats.LastVenueAt,
	)
	if err != nil {
		return ListingStats{}, fmt.Errorf("query listing stats: %w", err)
	}

	return stats, nil
}
