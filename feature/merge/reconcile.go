package merge

import (
	"context"
	"strings"
	"time"

	"feed-merger/core/feed"
	"feed-merger/core/feedstore"
	"feed-merger/core/reconcile"
	"feed-merger/core/storage"

	"gorm.io/gorm"
)

// reconcileTTL bounds how long bucket listings are reused between plans.
const reconcileTTL = 30 * time.Second

// RunsAdapter reconciles persisted runs with the merged archives of the bucket.
type RunsAdapter struct {
	store  *feedstore.Store
	client storage.Client
	bucket string
}

// NewRunsAdapter creates an adapter applying mutations through store and client.
func NewRunsAdapter(store *feedstore.Store, client storage.Client, bucket string) *RunsAdapter {
	return &RunsAdapter{store: store, client: client, bucket: bucket}
}

// Name returns the adapter name.
func (a *RunsAdapter) Name() string {
	return "merge_runs"
}

// LoadDBIndex indexes the runs by output object. When several runs wrote the
// same object the newest one wins.
func (a *RunsAdapter) LoadDBIndex(ctx context.Context, db *gorm.DB, prefix string) (map[string]reconcile.DBItem, error) {
	runs, err := feedstore.New(db).Runs(ctx, 0)
	if err != nil {
		return nil, err
	}
	index := make(map[string]reconcile.DBItem, len(runs))
	for _, run := range runs {
		if run.Output == "" || !strings.HasPrefix(run.Output, prefix) {
			continue
		}
		if _, seen := index[run.Output]; seen {
			continue
		}
		index[run.Output] = reconcile.DBItem{RunID: run.ID}
	}
	return index, nil
}

// LoadStorageSet lists the archives under prefix.
func (a *RunsAdapter) LoadStorageSet(ctx context.Context, client storage.Client, bucket, prefix string) (map[string]struct{}, error) {
	names, err := storage.ListArchives(ctx, client, bucket, prefix)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set, nil
}

// DeleteDB removes a run and its entities.
func (a *RunsAdapter) DeleteDB(ctx context.Context, runID string) error {
	return a.store.DeleteRun(ctx, runID)
}

// RestoreStorage rebuilds the merged feed of a run and uploads it to key.
func (a *RunsAdapter) RestoreStorage(ctx context.Context, runID, key string) error {
	g, err := a.store.Export(ctx, runID)
	if err != nil {
		return err
	}
	_, err = feed.Upload(ctx, a.client, a.bucket, key, g)
	return err
}

// Reconcile plans, and with a confirmed non-dry-run opts applies, the repair
// of runs whose archive is missing from the bucket.
func (s *Service) Reconcile(ctx context.Context, opts reconcile.ReconcileOptions) (*reconcile.ReconcilePlan, int, error) {
	if s.store == nil {
		return nil, 0, ErrNoDatabase
	}
	return reconcile.ReconcileAndApply(ctx, s.reconcileSpec(), s.store.DB(), s.client, s.bucket, opts)
}

func (s *Service) reconcileSpec() *reconcile.Spec {
	return &reconcile.Spec{
		Adapter:       NewRunsAdapter(s.store, s.client, s.bucket),
		CacheTTL:      reconcileTTL,
		StoragePrefix: s.opts.OutputPrefix,
	}
}
