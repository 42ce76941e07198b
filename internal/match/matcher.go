// Package match resolves raw venue names to canonical venue identities. The
// gate enforces the central policy of the whole engine: automated sources
// consume the human-curated venue list, they never extend it.
package match

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/lineup/internal/db"
	"horse.fit/lineup/internal/normalize"
)

// VenueStore is the read-only slice of the venue table the matcher needs.
// *db.Pool satisfies it; tests use an in-memory implementation.
type VenueStore interface {
	FindVenuesByKey(ctx context.Context, key, city string) ([]db.VenueMatch, error)
}

// Matcher looks up canonical venues by normalized name and city.
type Matcher struct {
	store  VenueStore
	namer  *normalize.Namer
	logger zerolog.Logger
}

func NewMatcher(store VenueStore, namer *normalize.Namer, logger zerolog.Logger) *Matcher {
	return &Matcher{store: store, namer: namer, logger: logger}
}

// Match resolves rawName (+ optional city) to a venue id, or nil when no
// canonical venue matches. A NULL city on either side is a wildcard. When
// more than one venue matches (a latent duplicate the scanner will surface),
// the lowest id wins so ingestion keeps flowing deterministically, and the
// ambiguity is logged as a data-quality warning rather than returned as an
// error.
func (m *Matcher) Match(ctx context.Context, rawName, city string) (*db.VenueMatch, error) {
	key := m.namer.Name(rawName)
	if key == "" {
		return nil, nil
	}

	matches, err := m.store.FindVenuesByKey(ctx, key, strings.TrimSpace(city))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	if len(matches) > 1 {
		ids := make([]int64, 0, len(matches))
		for _, match := range matches {
			ids = append(ids, match.VenueID)
		}
		m.logger.Warn().
			Str("raw_name", rawName).
			Str("normalized_key", key).
			Str("city", city).
			Ints64("venue_ids", ids).
			Msg("ambiguous venue match, picking lowest id")
	}

	// Store rows are ordered by venue_id; the first is the deterministic pick.
	picked := matches[0]
	return &picked, nil
}

// Key exposes the matcher's normalized key for a raw name, for logging the
// skip path.
func (m *Matcher) Key(rawName string) string {
	return m.namer.Name(rawName)
}
