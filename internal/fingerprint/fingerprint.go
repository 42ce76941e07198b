// Package fingerprint computes the stable dedup key for events. The key is
// what makes repeated scraper runs idempotent: the events table carries a
// unique index on it, and an insert conflict means "already known".
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"horse.fit/lineup/internal/normalize"
)

// timeLayout keeps minute precision. Day-level would collapse the same show on
// one night with two start times; the duplicate scanner handles the inverse
// case (same show, differing time-of-day) instead.
const timeLayout = "2006-01-02T15:04"

// Event returns a deterministic hex key for (name, venue, date). The name is
// length-prefixed before hashing so field boundaries cannot collide, and the
// name goes through normalize.Text so casing and punctuation differences hash
// identically.
func Event(name string, venueID int64, date time.Time) string {
	n := normalize.Text(name)
	canonical := fmt.Sprintf("%d:%s|venue=%d|%s", len(n), n, venueID, date.UTC().Format(timeLayout))
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// UnresolvedEvent keys events whose venue has no canonical id yet. The
// venue's comparison key (the matcher's normalized name) stands in for the
// id, so the same show reported at two different unresolved venues keys
// differently, while spelling variants of one venue still collide. The
// "venue-name" field tag keeps these keys disjoint from Event keys for any
// venue id.
func UnresolvedEvent(name, venueKey string, date time.Time) string {
	n := normalize.Text(name)
	v := normalize.Text(venueKey)
	canonical := fmt.Sprintf("%d:%s|venue-name=%d:%s|%s", len(n), n, len(v), v, date.UTC().Format(timeLayout))
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
