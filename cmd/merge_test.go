package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"feed-merger/core/config"
	"feed-merger/core/feed"
	"feed-merger/core/graph"
	"feed-merger/core/merge"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFeed(t *testing.T, dir, agency string) string {
	p := filepath.Join(dir, agency)
	require.NoError(t, os.MkdirAll(p, 0o755))
	tables := map[string]string{
		"agency.txt": "agency_id,agency_name,agency_url,agency_timezone\n" +
			agency + "," + agency + ",https://example.com,Europe/Paris\n",
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n" +
			"S1,Central,48.85,2.35\n",
		"routes.txt": "route_id,agency_id,route_short_name,route_type\n" +
			"R1," + agency + ",1,3\n",
		"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
			"WK,1,1,1,1,1,0,0,20240101,20240131\n",
		"trips.txt": "route_id,service_id,trip_id\n" +
			"R1,WK,T1\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"T1,08:00:00,08:00:00,S1,1\n",
	}
	for name, content := range tables {
		require.NoError(t, os.WriteFile(filepath.Join(p, name), []byte(content), 0o644))
	}
	return p
}

func TestRunMerge(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)

	opts := mergeOptions{
		Sources:    []string{writeFeed(t, dir, "metro"), writeFeed(t, dir, "bus")},
		Out:        filepath.Join(dir, "merged.zip"),
		ReportPath: filepath.Join(dir, "report.json"),
	}
	require.NoError(t, runMerge(context.Background(), cfg, zap.NewNop(), opts))

	merged, err := feed.LoadPath(opts.Out, feed.Options{ScopedIDs: true})
	require.NoError(t, err)
	assert.Len(t, merged.All(graph.KindAgency), 2)
	assert.Len(t, merged.All(graph.KindStopTime), 2)

	data, err := os.ReadFile(opts.ReportPath)
	require.NoError(t, err)
	var report merge.Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, []string{"metro", "bus"}, report.Sources)
	assert.Equal(t, 2, report.Summary(graph.KindTrip).Inserted)
}

func TestRunMergeSameBaseName(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)

	first := filepath.Join(dir, "today")
	second := filepath.Join(dir, "yesterday")
	opts := mergeOptions{
		Sources:    []string{writeFeed(t, first, "metro"), writeFeed(t, second, "metro")},
		Out:        filepath.Join(dir, "merged"),
		ReportPath: filepath.Join(dir, "report.json"),
	}
	require.NoError(t, runMerge(context.Background(), cfg, zap.NewNop(), opts))

	data, err := os.ReadFile(opts.ReportPath)
	require.NoError(t, err)
	var report merge.Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, []string{"metro", "metro-2"}, report.Sources)
	assert.Equal(t, 1, report.Summary(graph.KindTrip).Reused)
}

func TestSourceNames(t *testing.T) {
	tests := []struct {
		name  string
		paths []string
		want  []string
	}{
		{"distinct", []string{"feeds/metro.zip", "feeds/bus"}, []string{"metro", "bus"}},
		{"same base name", []string{"a/metro.zip", "b/metro.zip", "c/metro"}, []string{"metro", "metro-2", "metro-3"}},
		{"suffix already taken", []string{"metro-2.zip", "a/metro", "b/metro"}, []string{"metro-2", "metro", "metro-3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sourceNames(tt.paths))
		})
	}
}

func TestRunMergeMissingSource(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadConfig(dir)
	require.NoError(t, err)

	err = runMerge(context.Background(), cfg, zap.NewNop(), mergeOptions{
		Sources: []string{filepath.Join(dir, "nope")},
		Out:     filepath.Join(dir, "out"),
	})
	assert.Error(t, err)
}

func TestApplyMergeFlags(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().Float64("stop-tolerance", 0, "")
	cmd.Flags().Bool("fuzzy-stops", false, "")
	cmd.Flags().String("overrides", "", "")
	cmd.Flags().Int("workers", 0, "")
	cmd.Flags().Bool("scoped-ids", false, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--stop-tolerance=10", "--overrides=trips=insert_only"}))

	cfg := config.MergeConfig{Config: merge.DefaultConfig()}
	require.NoError(t, applyMergeFlags(cmd, &cfg))

	assert.Equal(t, 10.0, cfg.StopToleranceMeters)
	assert.Equal(t, "trips=insert_only", cfg.Overrides)
	assert.Equal(t, 4, cfg.Workers)
	assert.False(t, cfg.FuzzyStops)
}
