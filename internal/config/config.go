package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// defaultCityStoplist covers the cities our current scrapers append to venue
// names. Deployments elsewhere override LINEUP_CITY_STOPLIST.
const defaultCityStoplist = "edinburgh,glasgow,aberdeen,dundee,inverness,stirling,perth,falkirk,paisley,leith"

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"LINEUP_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"LINEUP_DB_MAX_CONNS" default:"8"`

	// FuzzyThreshold is the minimum normalized edit-distance similarity for
	// the scanner to flag two same-city venue names as duplicate candidates.
	FuzzyThreshold float64 `envconfig:"LINEUP_FUZZY_THRESHOLD" default:"0.6"`

	// CityStoplist is the comma-separated list of city names stripped from
	// the tail of venue names during normalization.
	CityStoplist string `envconfig:"LINEUP_CITY_STOPLIST" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("LINEUP_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("LINEUP_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("LINEUP_DB_MIN_CONNS (%d) cannot exceed LINEUP_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.FuzzyThreshold <= 0 || c.FuzzyThreshold > 1 {
		return fmt.Errorf("LINEUP_FUZZY_THRESHOLD must be in (0, 1], got %v", c.FuzzyThreshold)
	}
	return nil
}

// CityStoplistEntries returns the configured stoplist, falling back to the
// built-in default when unset.
func (c *Config) CityStoplistEntries() []string {
	raw := strings.TrimSpace(c.CityStoplist)
	if raw == "" {
		raw = defaultCityStoplist
	}

	parts := strings.Split(raw, ",")
	cities := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		city := strings.ToLower(strings.TrimSpace(part))
		if city == "" {
			continue
		}
		if _, exists := seen[city]; exists {
			continue
		}
		seen[city] = struct{}{}
		cities = append(cities, city)
	}
	return cities
}
