package integrity

import (
	"context"

	"feed-merger/core/feed"
	"feed-merger/core/storage"
	"feed-merger/feature/integrity/checks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service handles integrity checks.
type Service struct {
	client  storage.Client
	bucket  string
	region  string
	folders []string
	logger  *zap.Logger
	db      *gorm.DB
	opts    feed.Options
}

// NewService creates a new integrity service. folders lists the bucket
// prefixes that must exist; db may be nil.
func NewService(client storage.Client, cfg storage.Config, folders []string, logger *zap.Logger, db *gorm.DB, opts feed.Options) *Service {
	opts.Logger = logger
	return &Service{
		client:  client,
		bucket:  cfg.Bucket,
		region:  cfg.Region,
		folders: folders,
		logger:  logger,
		db:      db,
		opts:    opts,
	}
}

// CheckStorage reports the bucket and the missing folders.
func (s *Service) CheckStorage(ctx context.Context) (*checks.StorageReport, error) {
	return checks.CheckStorage(ctx, s.client, s.bucket, s.folders)
}

// FixStorage creates the bucket and the missing folders.
func (s *Service) FixStorage(ctx context.Context, missing []string) error {
	return checks.FixStorage(ctx, s.client, s.bucket, s.region, s.logger, missing)
}

// CheckDatabase compares the run tables with the store models.
func (s *Service) CheckDatabase() (*checks.DatabaseReport, error) {
	return checks.CheckDatabase(s.db)
}

// CheckFeed validates a feed archive of the bucket.
func (s *Service) CheckFeed(ctx context.Context, object string) (*checks.FeedReport, error) {
	return checks.CheckFeed(ctx, s.client, s.bucket, object, s.opts)
}
