package merge

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"feed-merger/core/database"
	"feed-merger/core/feed"
	"feed-merger/core/graph"
	engine "feed-merger/core/merge"
	"feed-merger/core/reconcile"
	"feed-merger/core/storage/mocks"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func archive(t *testing.T, agency, stopName string) []byte {
	tables := map[string]string{
		"agency.txt": "agency_id,agency_name,agency_url,agency_timezone\n" +
			agency + "," + agency + ",https://example.com,Europe/Paris\n",
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n" +
			"S1," + stopName + ",48.85,2.35\n" +
			"S2,Market,48.86,2.36\n",
		"routes.txt": "route_id,agency_id,route_short_name,route_type\n" +
			"R1," + agency + ",1,3\n",
		"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
			"WK,1,1,1,1,1,0,0,20240101,20240131\n",
		"trips.txt": "route_id,service_id,trip_id\n" +
			"R1,WK,T1\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"T1,08:00:00,08:00:00,S1,1\n" +
			"T1,08:05:00,08:05:00,S2,2\n",
	}
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

type notFoundReader struct{}

func (notFoundReader) Read([]byte) (int, error) {
	return 0, minio.ErrorResponse{Code: "NoSuchKey"}
}

func setupTestApp(t *testing.T, withDB bool) (*fiber.App, *mocks.Client) {
	var db *gorm.DB
	if withDB {
		conn, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
		require.NoError(t, err)
		db = conn
	}
	eng, err := engine.NewEngine(engine.DefaultConfig())
	require.NoError(t, err)

	client := new(mocks.Client)
	feature := NewFeature(client, "feeds", zap.NewNop(), db, eng, Options{OutputPrefix: "merged/"})
	app := fiber.New()
	require.NoError(t, feature.Load(app))
	return app, client
}

func serve(t *testing.T, client *mocks.Client, object string, data []byte) {
	client.On("GetObject", mock.Anything, "feeds", object, minio.GetObjectOptions{}).
		Return(io.NopCloser(bytes.NewReader(data)), nil)
}

func postMerge(t *testing.T, app *fiber.App, body string) (int, map[string]any) {
	req := httptest.NewRequest("POST", "/merge", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestFeature(t *testing.T) {
	feature := NewFeature(new(mocks.Client), "feeds", zap.NewNop(), nil, nil, Options{})
	assert.Equal(t, "merge", feature.Name())
	assert.False(t, feature.IsEnabled())
}

func TestHandleMerge(t *testing.T) {
	app, client := setupTestApp(t, true)
	serve(t, client, "in/a.zip", archive(t, "metro", "Central"))
	serve(t, client, "in/b.zip", archive(t, "bus", "Central"))

	var uploaded []byte
	client.On("PutObject", mock.Anything, "feeds", "out/all.zip", mock.Anything, mock.AnythingOfType("int64"), mock.Anything).
		Run(func(args mock.Arguments) {
			data, err := io.ReadAll(args.Get(3).(io.Reader))
			require.NoError(t, err)
			uploaded = data
		}).
		Return(minio.UploadInfo{Key: "out/all.zip"}, nil)

	code, body := postMerge(t, app, `{"sources":["in/a.zip","in/b.zip"],"output":"out/all.zip"}`)
	require.Equal(t, fiber.StatusOK, code, body)
	assert.Equal(t, "out/all.zip", body["output"])
	assert.Equal(t, true, body["persisted"])

	report := body["report"].(map[string]any)
	runID := report["run_id"].(string)
	assert.NotEmpty(t, runID)
	assert.Equal(t, []any{"a", "b"}, report["sources"])

	merged, err := feed.LoadArchive(uploaded, feed.Options{ScopedIDs: true})
	require.NoError(t, err)
	assert.Len(t, merged.All(graph.KindAgency), 2)
	assert.Len(t, merged.All(graph.KindTrip), 2)
	client.AssertExpectations(t)

	t.Run("Run Report", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/merge/runs/"+runID, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var got engine.Report
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, runID, got.RunID)
	})

	t.Run("Run List", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/merge/runs?limit=5", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var got struct {
			Runs []struct {
				ID     string `json:"id"`
				Output string `json:"output"`
			} `json:"runs"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		require.Len(t, got.Runs, 1)
		assert.Equal(t, runID, got.Runs[0].ID)
		assert.Equal(t, "out/all.zip", got.Runs[0].Output)
	})

	t.Run("Run Archive", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/merge/runs/"+runID+"/archive", nil), -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))

		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		exported, err := feed.LoadArchive(data, feed.Options{ScopedIDs: true})
		require.NoError(t, err)
		assert.Len(t, exported.All(graph.KindStopTime), len(merged.All(graph.KindStopTime)))
	})

	t.Run("Unknown Run", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/merge/runs/nope", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestHandleMergeDefaultOutput(t *testing.T) {
	app, client := setupTestApp(t, false)
	serve(t, client, "a.zip", archive(t, "metro", "Central"))
	client.On("PutObject", mock.Anything, "feeds", mock.MatchedBy(func(object string) bool {
		return strings.HasPrefix(object, "merged/") && strings.HasSuffix(object, ".zip")
	}), mock.Anything, mock.Anything, mock.Anything).Return(minio.UploadInfo{}, nil)

	code, body := postMerge(t, app, `{"sources":["a.zip"]}`)
	require.Equal(t, fiber.StatusOK, code, body)

	report := body["report"].(map[string]any)
	assert.Equal(t, "merged/"+report["run_id"].(string)+".zip", body["output"])
	assert.Equal(t, false, body["persisted"])
}

func TestHandleMergeErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		setup func(*mocks.Client)
		want  int
	}{
		{name: "Invalid Body", body: `{`, want: fiber.StatusBadRequest},
		{name: "No Sources", body: `{"sources":[]}`, want: fiber.StatusBadRequest},
		{name: "Output Not Zip", body: `{"sources":["a.zip"],"output":"out"}`, want: fiber.StatusBadRequest},
		{
			name: "Missing Source",
			body: `{"sources":["gone.zip"]}`,
			setup: func(c *mocks.Client) {
				c.On("GetObject", mock.Anything, "feeds", "gone.zip", minio.GetObjectOptions{}).
					Return(io.NopCloser(notFoundReader{}), nil)
			},
			want: fiber.StatusNotFound,
		},
		{
			name: "Broken Feed",
			body: `{"sources":["bad.zip"]}`,
			setup: func(c *mocks.Client) {
				var buf bytes.Buffer
				zw := zip.NewWriter(&buf)
				w, _ := zw.Create("stops.txt")
				_, _ = io.WriteString(w, "stop_id,stop_name,stop_lat,stop_lon\nS1,Central,north,2.35\n")
				_ = zw.Close()
				c.On("GetObject", mock.Anything, "feeds", "bad.zip", minio.GetObjectOptions{}).
					Return(io.NopCloser(bytes.NewReader(buf.Bytes())), nil)
			},
			want: fiber.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, client := setupTestApp(t, false)
			if tt.setup != nil {
				tt.setup(client)
			}

			req := httptest.NewRequest("POST", "/merge", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestHandleRunsWithoutDatabase(t *testing.T) {
	app, _ := setupTestApp(t, false)

	for _, path := range []string{"/merge/runs", "/merge/runs/x", "/merge/runs/x/archive"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode, path)
	}
}

func TestHandleFeeds(t *testing.T) {
	app, client := setupTestApp(t, false)

	ch := make(chan minio.ObjectInfo, 3)
	ch <- minio.ObjectInfo{Key: "in/b.zip"}
	ch <- minio.ObjectInfo{Key: "in/readme.md"}
	ch <- minio.ObjectInfo{Key: "in/a.zip"}
	close(ch)
	client.On("ListObjects", mock.Anything, "feeds", minio.ListObjectsOptions{Prefix: "in/", Recursive: true}).
		Return((<-chan minio.ObjectInfo)(ch))

	resp, err := app.Test(httptest.NewRequest("GET", "/merge/feeds?prefix=in/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"in/a.zip", "in/b.zip"}, body["feeds"])
}

func TestServiceMergeAborted(t *testing.T) {
	client := new(mocks.Client)
	serve(t, client, "a.zip", archive(t, "metro", "Central"))
	eng, err := engine.NewEngine(engine.DefaultConfig())
	require.NoError(t, err)
	svc := NewService(client, "feeds", zap.NewNop(), nil, eng, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Merge(ctx, Request{Sources: []string{"a.zip"}})
	assert.Error(t, err)
	client.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleReconcile(t *testing.T) {
	app, client := setupTestApp(t, true)
	serve(t, client, "a.zip", archive(t, "metro", "Central"))

	var uploaded []byte
	client.On("PutObject", mock.Anything, "feeds", "merged/gone.zip", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			data, err := io.ReadAll(args.Get(3).(io.Reader))
			require.NoError(t, err)
			uploaded = data
		}).
		Return(minio.UploadInfo{}, nil)

	code, _ := postMerge(t, app, `{"sources":["a.zip"],"output":"merged/gone.zip"}`)
	require.Equal(t, fiber.StatusOK, code)
	first := uploaded
	uploaded = nil

	// The bucket only holds an unrelated archive: the run's output is missing.
	listing := func() <-chan minio.ObjectInfo {
		ch := make(chan minio.ObjectInfo, 1)
		ch <- minio.ObjectInfo{Key: "merged/other.zip"}
		close(ch)
		return ch
	}
	client.On("ListObjects", mock.Anything, "feeds", minio.ListObjectsOptions{Prefix: "merged/", Recursive: true}).
		Return(listing()).Once()

	resp, err := app.Test(httptest.NewRequest("GET", "/merge/reconcile?restore=true", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var plan reconcile.ReconcilePlan
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&plan))
	assert.Equal(t, 1, plan.Summary.MissingStorage)
	assert.Equal(t, 1, plan.Summary.MissingDB)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, reconcile.ActionRestoreStorage, plan.Actions[0].Type)
	assert.Equal(t, "merged/gone.zip", plan.Actions[0].Key)
	assert.Nil(t, uploaded, "planning does not upload")

	resp, err = app.Test(httptest.NewRequest("POST", "/merge/reconcile?restore=true&confirm=true", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var applied struct {
		Executed int `json:"executed"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&applied))
	assert.Equal(t, 1, applied.Executed)

	restored, err := feed.LoadArchive(uploaded, feed.Options{ScopedIDs: true})
	require.NoError(t, err)
	original, err := feed.LoadArchive(first, feed.Options{ScopedIDs: true})
	require.NoError(t, err)
	assert.Equal(t, original.Counts(), restored.Counts())
}
