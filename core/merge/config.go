package merge

import (
	"fmt"
	"strings"

	"feed-merger/core/graph"
)

// Mode overrides the decisions of a kind's strategy.
type Mode string

const (
	// ModeAuto applies the strategy as is.
	ModeAuto Mode = "auto"
	// ModeInsertOnly never deduplicates: matches become inserts or renames.
	ModeInsertOnly Mode = "insert_only"
	// ModeReuseOnly never renames: conflicts reuse the colliding target entity.
	ModeReuseOnly Mode = "reuse_only"
)

// Config holds the merge settings.
type Config struct {
	// StopToleranceMeters is the maximum distance between two stops considered the same.
	StopToleranceMeters float64 `mapstructure:"stop_tolerance_meters" default:"50"`
	// FuzzyStops also matches stops with different ids by name and proximity.
	FuzzyStops bool `mapstructure:"fuzzy_stops" default:"false"`
	// Overrides forces a mode per kind, e.g. "trips=insert_only,stops=reuse_only".
	Overrides string `mapstructure:"overrides" default:""`
	// Workers bounds the goroutines computing signatures.
	Workers int `mapstructure:"workers" default:"4"`
	// MaxRenameAttempts bounds the search for a free identifier on conflict.
	MaxRenameAttempts int `mapstructure:"max_rename_attempts" default:"1000"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		StopToleranceMeters: 50,
		Workers:             4,
		MaxRenameAttempts:   1000,
	}
}

// Modes parses Overrides.
func (c Config) Modes() (map[graph.Kind]Mode, error) {
	modes := make(map[graph.Kind]Mode)
	if strings.TrimSpace(c.Overrides) == "" {
		return modes, nil
	}
	for _, pair := range strings.Split(c.Overrides, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid override %q: want kind=mode", pair)
		}
		kind, err := graph.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("invalid override %q: %w", pair, err)
		}
		mode := Mode(strings.ToLower(strings.TrimSpace(value)))
		switch mode {
		case ModeAuto, ModeInsertOnly, ModeReuseOnly:
			modes[kind] = mode
		default:
			return nil, fmt.Errorf("invalid override %q: unknown mode %q", pair, value)
		}
	}
	return modes, nil
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.StopToleranceMeters <= 0 {
		c.StopToleranceMeters = d.StopToleranceMeters
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.MaxRenameAttempts <= 0 {
		c.MaxRenameAttempts = d.MaxRenameAttempts
	}
	return c
}
