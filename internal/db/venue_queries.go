package db

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// VenueMatch is the row shape the venue matcher consumes.
type VenueMatch struct {
	VenueID        int64
	Name           string
	NormalizedName string
	City           *string
}

// VenueListItem is used by the venues CLI command and the HTTP API.
type VenueListItem struct {
	VenueID        int64     `json:"venue_id"`
	Name           string    `json:"name"`
	NormalizedName string    `json:"normalized_name"`
	City           *string   `json:"city,omitempty"`
	Address        *string   `json:"address,omitempty"`
	Postcode       *string   `json:"postcode,omitempty"`
	Capacity       *int      `json:"capacity,omitempty"`
	Approved       bool      `json:"approved"`
	EventCount     int64     `json:"event_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// VenueInput carries the fields of the human-facing venue-creation flow.
type VenueInput struct {
	Name           string
	NormalizedName string
	City           *string
	Address        *string
	Postcode       *string
	Capacity       *int
	Email          *string
	Website        *string
	Phone          *string
	Approved       bool
}

// FindVenuesByKey returns every venue whose normalized_name equals key,
// filtered by city where both sides carry one. A NULL city on either side acts
// as a wildcard, deliberately permissive towards scrapers that omit city.
// Rows come back ordered by venue_id so callers can pick deterministically.
func (p *Pool) FindVenuesByKey(ctx context.Context, key, city string) ([]VenueMatch, error) {
	const q = `
SELECT
	v.venue_id,
	v.name,
	v.normalized_name,
	v.city
FROM listings.venues v
WHERE v.normalized_name = $1
  AND ($2 = '' OR v.city IS NULL OR v.city = $2)
ORDER BY v.venue_id
`

	rows, err := p.Query(ctx, q, key, strings.TrimSpace(city))
	if err != nil {
		return nil, fmt.Errorf("query venues by key: %w", err)
	}
	defer rows.Close()

	matches := make([]VenueMatch, 0, 1)
	for rows.Next() {
		var row VenueMatch
		if err := rows.Scan(&row.VenueID, &row.Name, &row.NormalizedName, &row.City); err != nil {
			return nil, fmt.Errorf("scan venue match row: %w", err)
		}
		matches = append(matches, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate venue match rows: %w", err)
	}

	return matches, nil
}

// InsertVenue creates a venue. This is the only write path that creates venue
// rows; automated ingestion never reaches it.
func (p *Pool) InsertVenue(ctx context.Context, input VenueInput, now time.Time) (int64, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return 0, fmt.Errorf("venue name is required")
	}

	const q = `
INSERT INTO listings.venues (
	name, normalized_name, city, address, postcode, capacity, email, website, phone, approved, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
RETURNING venue_id
`

	var venueID int64
	err := p.QueryRow(ctx, q,
		name,
		input.NormalizedName,
		input.City,
		input.Address,
		input.Postcode,
		input.Capacity,
		input.Email,
		input.Website,
		input.Phone,
		input.Approved,
		now.UTC(),
	).Scan(&venueID)
	if err != nil {
		return 0, fmt.Errorf("insert venue: %w", err)
	}

	return venueID, nil
}

// ListVenues lists venues with their dependent-event counts.
func (p *Pool) ListVenues(ctx context.Context, city string, limit int) ([]VenueListItem, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0")
	}

	const q = `
SELECT
	v.venue_id,
	v.name,
	v.normalized_name,
	v.city,
	v.address,
	v.postcode,
	v.capacity,
	v.approved,
	COALESCE(e.event_count, 0),
	v.created_at
FROM listings.venues v
LEFT JOIN (
	SELECT venue_id, COUNT(*)::BIGINT AS event_count
	FROM listings.events
	GROUP BY venue_id
) e ON e.venue_id = v.venue_id
WHERE ($1 = '' OR v.city = $1)
ORDER BY v.name, v.venue_id
LIMIT $2
`

	rows, err := p.Query(ctx, q, strings.TrimSpace(city), limit)
	if err != nil {
		return nil, fmt.Errorf("query venues: %w", err)
	}
	defer rows.Close()

	items := make([]VenueListItem, 0, limit)
	for rows.Next() {
		var row VenueListItem
		if err := rows.Scan(
			&row.VenueID,
			&row.Name,
			&row.NormalizedName,
			&row.City,
			&row.Address,
			&row.Postcode,
			&row.Capacity,
			&row.Approved,
			&row.EventCount,
			&row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan venue row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate venue rows: %w", err)
	}

	return items, nil
}

// VenueScanRow is the shape the duplicate scanner works over.
type VenueScanRow struct {
	VenueID        int64   `json:"venue_id"`
	Name           string  `json:"name"`
	NormalizedName string  `json:"normalized_name"`
	City           *string `json:"city,omitempty"`
	Address        *string `json:"address,omitempty"`
	EventCount     int64   `json:"event_count"`
}

// ListVenuesForScan returns every venue with its dependent-event count, in a
// deterministic order.
func (p *Pool) ListVenuesForScan(ctx context.Context) ([]VenueScanRow, error) {
	const q = `
SELECT
	v.venue_id,
	v.name,
	v.normalized_name,
	v.city,
	v.address,
	COALESCE(e.event_count, 0)
FROM listings.venues v
LEFT JOIN (
	SELECT venue_id, COUNT(*)::BIGINT AS event_count
	FROM listings.events
	GROUP BY venue_id
) e ON e.venue_id = v.venue_id
ORDER BY v.venue_id
`

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query venues for scan: %w", err)
	}
	defer rows.Close()

	items := make([]VenueScanRow, 0, 64)
	for rows.Next() {
		var row VenueScanRow
		if err := rows.Scan(
			&row.VenueID,
			&row.Name,
			&row.NormalizedName,
			&row.City,
			&row.Address,
			&row.EventCount,
		); err != nil {
			return nil, fmt.Errorf("scan venue scan row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate venue scan rows: %w", err)
	}

	return items, nil
}

// RenormalizeVenues recomputes normalized_name for every venue using keyFn and
// rewrites the rows whose cached key changed, in one transaction. Used after
// normalizer or stoplist changes.
func (p *Pool) RenormalizeVenues(ctx context.Context, keyFn func(string) string, now time.Time) (int64, error) {
	if keyFn == nil {
		return 0, fmt.Errorf("key function is required")
	}

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const selectQuery = `
SELECT venue_id, name, normalized_name
FROM listings.venues
ORDER BY venue_id
`
	rows, err := tx.Query(ctx, selectQuery)
	if err != nil {
		return 0, fmt.Errorf("query venues for renormalize: %w", err)
	}

	type pendingUpdate struct {
		venueID int64
		key     string
	}
	updates := make([]pendingUpdate, 0, 16)
	for rows.Next() {
		var (
			venueID int64
			name    string
			current string
		)
		if err := rows.Scan(&venueID, &name, &current); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan venue for renormalize: %w", err)
		}
		if key := keyFn(name); key != current {
			updates = append(updates, pendingUpdate{venueID: venueID, key: key})
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterate venues for renormalize: %w", err)
	}
	rows.Close()

	const updateQuery = `
UPDATE listings.venues
SET
	normalized_name = $2,
	updated_at = $3
WHERE venue_id = $1
`
	for _, update := range updates {
		if _, err := tx.Exec(ctx, updateQuery, update.venueID, update.key, now.UTC()); err != nil {
			return 0, fmt.Errorf("renormalize venue %d: %w", update.venueID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return int64(len(updates)), nil
}
