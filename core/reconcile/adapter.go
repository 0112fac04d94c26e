package reconcile

import (
	"context"

	"feed-merger/core/storage"

	"gorm.io/gorm"
)

// Adapter loads both sides of a reconciliation.
type Adapter interface {
	// Name returns the unique name of this adapter.
	Name() string

	// LoadDBIndex returns the persisted records indexed by output object name.
	LoadDBIndex(ctx context.Context, db *gorm.DB, prefix string) (map[string]DBItem, error)

	// LoadStorageSet returns the object names present under prefix.
	LoadStorageSet(ctx context.Context, client storage.Client, bucket, prefix string) (map[string]struct{}, error)
}

// Mutator applies planned actions.
type Mutator interface {
	// DeleteDB removes a persisted run and its entities.
	DeleteDB(ctx context.Context, runID string) error

	// RestoreStorage uploads the archive of a persisted run to key.
	RestoreStorage(ctx context.Context, runID, key string) error
}
