package checks

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"testing"

	"feed-merger/core/feed"
	"feed-merger/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zipOf(t *testing.T, tables map[string]string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range tables {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestCheckFeed(t *testing.T) {
	ctx := context.Background()
	data := zipOf(t, map[string]string{
		"agency.txt": "agency_id,agency_name,agency_url,agency_timezone\n" +
			"metro,Metro,https://metro.example,Europe/Paris\n",
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n" +
			"S1,Central,48.85,2.35\n",
		"routes.txt": "route_id,agency_id,route_short_name,route_type\n" +
			"R1,metro,1,3\n",
		"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
			"WK,1,1,1,1,1,0,0,20240101,20240131\n",
		"trips.txt": "route_id,service_id,trip_id\n" +
			"R1,WK,T1\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"T1,08:05:00,08:05:00,GONE,2\n" +
			"T1,08:00:00,08:00:00,S1,1\n",
	})

	client := new(mocks.Client)
	client.On("GetObject", ctx, "feeds", "in/metro.zip", minio.GetObjectOptions{}).
		Return(io.NopCloser(bytes.NewReader(data)), nil)

	report, err := CheckFeed(ctx, client, "feeds", "in/metro.zip", feed.Options{})
	require.NoError(t, err)

	assert.Equal(t, "metro", report.Name)
	assert.False(t, report.Valid)
	require.Len(t, report.Problems, 1)
	assert.Contains(t, report.Problems[0], "GONE")
	assert.Equal(t, 2, report.Counts["stop_time"])
	assert.Equal(t, map[string]int{"stop_time": 1}, report.Unordered)
}

func TestCheckFeedLoadError(t *testing.T) {
	ctx := context.Background()
	client := new(mocks.Client)
	client.On("GetObject", ctx, "feeds", "in/x.zip", minio.GetObjectOptions{}).
		Return(nil, assert.AnError)

	_, err := CheckFeed(ctx, client, "feeds", "in/x.zip", feed.Options{})
	assert.ErrorIs(t, err, assert.AnError)
}
