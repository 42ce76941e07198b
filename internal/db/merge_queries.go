package db

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMergeConflict is returned when a merge plan references a row that no
// longer exists. The whole transaction rolls back; no partial reassignment is
// ever left behind.
var ErrMergeConflict = errors.New("merge conflict")

// VenueMergeResult reports what one committed venue merge changed.
type VenueMergeResult struct {
	KeepVenueID      int64 `json:"keep_venue_id"`
	VenuesRemoved    int64 `json:"venues_removed"`
	EventsReassigned int64 `json:"events_reassigned"`
}

// MergeVenues repoints every event from each remove venue to the keep venue,
// then deletes the remove venues, in one transaction. The keep row is locked
// first so a concurrent merge deleting it aborts this one instead of leaving
// events pointing at a ghost.
func (p *Pool) MergeVenues(ctx context.Context, keepID int64, removeIDs []int64, now time.Time) (VenueMergeResult, error) {
	if len(removeIDs) == 0 {
		return VenueMergeResult{}, fmt.Errorf("at least one remove venue id is required")
	}
	for _, removeID := range removeIDs {
		if removeID == keepID {
			return VenueMergeResult{}, fmt.Errorf("venue %d cannot be both keep and remove", keepID)
		}
	}

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return VenueMergeResult{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const lockKeepQuery = `
SELECT venue_id FROM listings.venues WHERE venue_id = $1 FOR UPDATE
`
	var lockedID int64
	if err := tx.QueryRow(ctx, lockKeepQuery, keepID).Scan(&lockedID); err != nil {
		if IsNoRows(err) {
			return VenueMergeResult{}, fmt.Errorf("keep venue %d: %w", keepID, ErrMergeConflict)
		}
		return VenueMergeResult{}, fmt.Errorf("lock keep venue %d: %w", keepID, err)
	}

	result := VenueMergeResult{KeepVenueID: keepID}

	const reassignQuery = `
UPDATE listings.events
SET
	venue_id = $1,
	updated_at = $3
WHERE venue_id = $2
`
	const deleteQuery = `
DELETE FROM listings.venues WHERE venue_id = $1
`
	for _, removeID := range removeIDs {
		tag, err := tx.Exec(ctx, reassignQuery, keepID, removeID, now.UTC())
		if err != nil {
			return VenueMergeResult{}, fmt.Errorf("reassign events from venue %d: %w", removeID, err)
		}
		result.EventsReassigned += tag.RowsAffected()

		tag, err = tx.Exec(ctx, deleteQuery, removeID)
		if err != nil {
			return VenueMergeResult{}, fmt.Errorf("delete venue %d: %w", removeID, err)
		}
		if tag.RowsAffected() == 0 {
			return VenueMergeResult{}, fmt.Errorf("remove venue %d: %w", removeID, ErrMergeConflict)
		}
		result.VenuesRemoved += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return VenueMergeResult{}, fmt.Errorf("commit transaction: %w", err)
	}

	return result, nil
}

// EventMergeResult reports what one committed event dedup pass changed.
type EventMergeResult struct {
	KeepEventID   int64 `json:"keep_event_id"`
	EventsRemoved int64 `json:"events_removed"`
}

// MergeEvents deletes the remove events of a duplicate group once a keep has
// been chosen. Events carry no dependent rows, so a merge is deletion only.
func (p *Pool) MergeEvents(ctx context.Context, keepID int64, removeIDs []int64) (EventMergeResult, error) {
	if len(removeIDs) == 0 {
		return EventMergeResult{}, fmt.Errorf("at least one remove event id is required")
	}
	for _, removeID := range removeIDs {
		if removeID == keepID {
			return EventMergeResult{}, fmt.Errorf("event %d cannot be both keep and remove", keepID)
		}
	}

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return EventMergeResult{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const lockKeepQuery = `
SELECT event_id FROM listings.events WHERE event_id = $1 FOR UPDATE
`
	var lockedID int64
	if err := tx.QueryRow(ctx, lockKeepQuery, keepID).Scan(&lockedID); err != nil {
		if IsNoRows(err) {
			return EventMergeResult{}, fmt.Errorf("keep event %d: %w", keepID, ErrMergeConflict)
		}
		return EventMergeResult{}, fmt.Errorf("lock keep event %d: %w", keepID, err)
	}

	result := EventMergeResult{KeepEventID: keepID}

	const deleteQuery = `
DELETE FROM listings.events WHERE event_id = $1
`
	for _, removeID := range removeIDs {
		tag, err := tx.Exec(ctx, deleteQuery, removeID)
		if err != nil {
			return EventMergeResult{}, fmt.Errorf("delete event %d: %w", removeID, err)
		}
		if tag.RowsAffected() == 0 {
			return EventMergeResult{}, fmt.Errorf("remove event %d: %w", removeID, ErrMergeConflict)
		}
		result.EventsRemoved += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return EventMergeResult{}, fmt.Errorf("commit transaction: %w", err)
	}

	return result, nil
}
