package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// EventInsert carries one resolved raw record ready for the guarded insert.
type EventInsert struct {
	Name        string
	Date        time.Time
	VenueID     *int64
	Price       *string
	UserID      string
	Fingerprint string
}

// InsertEventIfNew attempts the single guarded insert of event ingestion. A
// fingerprint conflict is not an error: the row already reflects this
// observation, and any manual edits on it must survive re-scraping, so the
// insert skips rather than upserts. Returns the new event id when a row was
// created, nil when the fingerprint was already known.
func (p *Pool) InsertEventIfNew(ctx context.Context, input EventInsert, now time.Time) (*int64, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("event name is required")
	}
	if strings.TrimSpace(input.Fingerprint) == "" {
		return nil, fmt.Errorf("event fingerprint is required")
	}

	const q = `
INSERT INTO listings.events (
	name, date, venue_id, price, user_id, fingerprint, approved, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, $7)
ON CONFLICT (fingerprint) DO NOTHING
RETURNING event_id
`

	var eventID int64
	err := p.QueryRow(ctx, q,
		name,
		input.Date.UTC(),
		input.VenueID,
		input.Price,
		input.UserID,
		input.Fingerprint,
		now.UTC(),
	).Scan(&eventID)
	if IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	return &eventID, nil
}

// EventListItem is used by the events CLI command and the HTTP API.
type EventListItem struct {
	EventID   int64     `json:"event_id"`
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	VenueID   *int64    `json:"venue_id,omitempty"`
	VenueName *string   `json:"venue_name,omitempty"`
	Price     *string   `json:"price,omitempty"`
	UserID    string    `json:"user_id"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
}

// ListEvents lists events in a UTC date window with their venue names.
func (p *Pool) ListEvents(ctx context.Context, from, to time.Time, limit int) ([]EventListItem, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}
	if !from.Before(to) {
		return nil, fmt.Errorf("from must be before to")
	}

	const q = `
SELECT
	e.event_id,
	e.name,
	e.date,
	e.venue_id,
	v.name,
	e.price,
	e.user_id,
	e.approved,
	e.created_at
FROM listings.events e
LEFT JOIN listings.venues v ON v.venue_id = e.venue_id
WHERE e.date >= $1
  AND e.date < $2
ORDER BY e.date, e.event_id
LIMIT $3
`

	rows, err := p.Query(ctx, q, from.UTC(), to.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	items := make([]EventListItem, 0, limit)
	for rows.Next() {
		var row EventListItem
		if err := rows.Scan(
			&row.EventID,
			&row.Name,
			&row.Date,
			&row.VenueID,
			&row.VenueName,
			&row.Price,
			&row.UserID,
			&row.Approved,
			&row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return items, nil
}

// EventScanRow is one member of a potentially duplicated event triple.
type EventScanRow struct {
	EventID  int64     `json:"event_id"`
	Name     string    `json:"name"`
	Date     time.Time `json:"date"`
	VenueID  *int64    `json:"venue_id,omitempty"`
	UserID   string    `json:"user_id"`
	Approved bool      `json:"approved"`
}

// ListDuplicateEventCandidates returns the members of every (name, venue,
// day) group with more than one row, ordered deterministically. Day-level
// grouping is a superset of exact grouping; the scanner splits the rows into
// exact and time-of-day-differs groups in memory.
func (p *Pool) ListDuplicateEventCandidates(ctx context.Context) ([]EventScanRow, error) {
	const q = `
SELECT
	e.event_id,
	e.name,
	e.date,
	e.venue_id,
	e.user_id,
	e.approved
FROM listings.events e
JOIN (
	SELECT name, venue_id, (date AT TIME ZONE 'UTC')::date AS day
	FROM listings.events
	GROUP BY 1, 2, 3
	HAVING COUNT(*) > 1
) d
	ON d.name = e.name
	AND d.venue_id IS NOT DISTINCT FROM e.venue_id
	AND d.day = (e.date AT TIME ZONE 'UTC')::date
ORDER BY e.name, e.venue_id, e.date, e.event_id
`

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query duplicate event candidates: %w", err)
	}
	defer rows.Close()

	items := make([]EventScanRow, 0, 16)
	for rows.Next() {
		var row EventScanRow
		if err := rows.Scan(
			&row.EventID,
			&row.Name,
			&row.Date,
			&row.VenueID,
			&row.UserID,
			&row.Approved,
		); err != nil {
			return nil, fmt.Errorf("scan duplicate event row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate duplicate event rows: %w", err)
	}

	return items, nil
}
