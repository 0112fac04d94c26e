package merge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"feed-merger/core/feed"
	"feed-merger/core/feedstore"
	"feed-merger/core/graph"
	engine "feed-merger/core/merge"
	"feed-merger/core/reconcile"
	"feed-merger/core/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var (
	// ErrInvalidRequest is returned for malformed merge requests.
	ErrInvalidRequest = errors.New("invalid merge request")
	// ErrNoDatabase is returned by run queries when no database is configured.
	ErrNoDatabase = errors.New("no database configured")
)

// Options controls how the service reads and names feeds.
type Options struct {
	// ScopedIDs reads input identifiers as scope_local tokens.
	ScopedIDs bool
	// OutputPrefix prefixes the default output object name.
	OutputPrefix string
}

// Request is the body of a merge request.
type Request struct {
	// Sources lists the archive objects in merge order.
	Sources []string `json:"sources"`
	// Output is the object receiving the merged archive. Defaults to
	// <prefix><run id>.zip.
	Output string `json:"output,omitempty"`
}

// Response is the outcome of a merge request.
type Response struct {
	Output    string         `json:"output"`
	Persisted bool           `json:"persisted"`
	Report    *engine.Report `json:"report"`
}

// Service runs merges against the bucket.
type Service struct {
	client storage.Client
	bucket string
	logger *zap.Logger
	engine *engine.Engine
	store  *feedstore.Store
	opts   Options
}

// NewService creates a new merge service. db may be nil.
func NewService(client storage.Client, bucket string, logger *zap.Logger, db *gorm.DB, eng *engine.Engine, opts Options) *Service {
	s := &Service{
		client: client,
		bucket: bucket,
		logger: logger,
		engine: eng,
		opts:   opts,
	}
	if db != nil {
		s.store = feedstore.New(db)
	}
	return s
}

// Migrate prepares the run tables when a database is configured.
func (s *Service) Migrate() error {
	if s.store == nil {
		return nil
	}
	return s.store.Migrate()
}

// Merge fetches the sources, merges them and uploads the result.
func (s *Service) Merge(ctx context.Context, req Request) (*Response, error) {
	if len(req.Sources) == 0 {
		return nil, fmt.Errorf("%w: no sources", ErrInvalidRequest)
	}
	if req.Output != "" && !strings.HasSuffix(strings.ToLower(req.Output), ".zip") {
		return nil, fmt.Errorf("%w: output %q is not a zip object", ErrInvalidRequest, req.Output)
	}

	sources, err := s.fetch(ctx, req.Sources)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Merge(ctx, sources...)
	if err != nil {
		return nil, err
	}

	output := req.Output
	if output == "" {
		output = s.opts.OutputPrefix + result.Report.RunID + ".zip"
	}
	if _, err := feed.Upload(ctx, s.client, s.bucket, output, result.Target); err != nil {
		return nil, err
	}

	resp := &Response{Output: output, Report: result.Report}
	if s.store != nil {
		if err := s.store.Save(ctx, result, output); err != nil {
			return nil, err
		}
		resp.Persisted = true
		reconcile.InvalidateCache(s.reconcileSpec())
	}

	s.logger.Info("Merge request completed",
		zap.String("run_id", result.Report.RunID),
		zap.Strings("sources", req.Sources),
		zap.String("output", output),
		zap.Bool("persisted", resp.Persisted),
	)
	return resp, nil
}

// fetch loads the sources concurrently, keeping their order.
func (s *Service) fetch(ctx context.Context, objects []string) ([]*graph.Graph, error) {
	sources := make([]*graph.Graph, len(objects))
	g, gctx := errgroup.WithContext(ctx)
	for i, object := range objects {
		g.Go(func() error {
			src, err := feed.LoadObject(gctx, s.client, s.bucket, object, feed.Options{
				ScopedIDs: s.opts.ScopedIDs,
				Logger:    s.logger,
			})
			if err != nil {
				return fmt.Errorf("source %s: %w", object, err)
			}
			sources[i] = src
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sources, nil
}

// Feeds lists the archives under prefix.
func (s *Service) Feeds(ctx context.Context, prefix string) ([]string, error) {
	return storage.ListArchives(ctx, s.client, s.bucket, prefix)
}

// Runs lists the latest persisted runs.
func (s *Service) Runs(ctx context.Context, limit int) ([]feedstore.RunRecord, error) {
	if s.store == nil {
		return nil, ErrNoDatabase
	}
	return s.store.Runs(ctx, limit)
}

// Report returns the report of a persisted run.
func (s *Service) Report(ctx context.Context, runID string) (*engine.Report, error) {
	if s.store == nil {
		return nil, ErrNoDatabase
	}
	return s.store.Report(ctx, runID)
}

// Archive rebuilds the merged feed of a persisted run as a zip archive.
func (s *Service) Archive(ctx context.Context, runID string) ([]byte, error) {
	if s.store == nil {
		return nil, ErrNoDatabase
	}
	g, err := s.store.Export(ctx, runID)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := feed.WriteZip(&buf, g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
