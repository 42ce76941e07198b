package match

import (
	"context"

	"github.com/rs/zerolog"
)

// Resolution is the explicit sum-type result of gate resolution. A nullable
// id would let callers confuse "not yet resolved" with "intentionally null";
// this cannot.
type Resolution struct {
	matched bool
	venueID int64
}

// Matched reports whether a canonical venue was resolved, and its id.
func (r Resolution) Matched() (int64, bool) {
	return r.venueID, r.matched
}

// Skipped reports the no-match outcome.
func (r Resolution) Skipped() bool {
	return !r.matched
}

func matchedVenue(id int64) Resolution {
	return Resolution{matched: true, venueID: id}
}

var skip = Resolution{}

// Gate applies the never-create policy for automated sources. A miss is a
// Skip, never a new venue: name variants from scrapers are the primary source
// of duplicate venues, and a missed event is recoverable (an operator adds the
// venue once) where a forked venue identity is not.
type Gate struct {
	matcher *Matcher
	logger  zerolog.Logger
}

func NewGate(matcher *Matcher, logger zerolog.Logger) *Gate {
	return &Gate{matcher: matcher, logger: logger}
}

// ResolveForIngestion resolves a raw record's venue or signals Skip. It has
// no write path at all; venue creation lives in the human-facing add flow.
func (g *Gate) ResolveForIngestion(ctx context.Context, rawName, city string) (Resolution, error) {
	venue, err := g.matcher.Match(ctx, rawName, city)
	if err != nil {
		return skip, err
	}
	if venue == nil {
		// Expected, frequent outcome. Logged with the normalized key so an
		// operator can create the venue and let future runs match it.
		g.logger.Info().
			Str("raw_name", rawName).
			Str("normalized_key", g.matcher.Key(rawName)).
			Str("city", city).
			Msg("unresolved venue, skipping record")
		return skip, nil
	}
	return matchedVenue(venue.VenueID), nil
}

// Key exposes the matcher's normalized key for a raw venue name. Ingestion
// uses it to fingerprint records whose venue stayed unresolved.
func (g *Gate) Key(rawName string) string {
	return g.matcher.Key(rawName)
}
