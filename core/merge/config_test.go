package merge

import (
	"testing"

	"feed-merger/core/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigModes(t *testing.T) {
	cfg := Config{Overrides: "trips=insert_only, stops = reuse_only,agency=AUTO"}
	modes, err := cfg.Modes()
	require.NoError(t, err)
	assert.Equal(t, map[graph.Kind]Mode{
		graph.KindTrip:   ModeInsertOnly,
		graph.KindStop:   ModeReuseOnly,
		graph.KindAgency: ModeAuto,
	}, modes)

	modes, err = Config{}.Modes()
	require.NoError(t, err)
	assert.Empty(t, modes)
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{FuzzyStops: true}.withDefaults()
	assert.Equal(t, 50.0, cfg.StopToleranceMeters)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 1000, cfg.MaxRenameAttempts)
	assert.True(t, cfg.FuzzyStops)
}
