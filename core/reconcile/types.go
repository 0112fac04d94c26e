package reconcile

import "time"

// ReconcileResult is the reconciliation output for one output object.
type ReconcileResult struct {
	// ID is the output object name.
	ID string `json:"id"`

	// RunID is the run that produced the object, when it is persisted.
	RunID string `json:"run_id,omitempty"`

	// DBPresent indicates whether a persisted run names the object.
	DBPresent bool `json:"db_present"`

	// StoragePresent indicates whether the object exists in the bucket.
	StoragePresent bool `json:"storage_present"`
}

// Spec defines the configuration for a reconciliation operation.
type Spec struct {
	// Adapter loads the indices and applies mutations.
	Adapter Adapter

	// CacheTTL is the time-to-live for cached indices.
	// If zero, caching is disabled.
	CacheTTL time.Duration

	// StoragePrefix is the prefix under which merged archives are stored.
	StoragePrefix string
}

// CacheKey returns a unique key for caching based on spec parameters.
func (s *Spec) CacheKey() string {
	return s.Adapter.Name() + "|" + s.StoragePrefix
}

// DBItem is the database record of an output object.
type DBItem struct {
	RunID string
}

// ActionType represents the type of mutation action.
type ActionType string

const (
	// ActionDeleteDB deletes a persisted run whose archive is gone.
	ActionDeleteDB ActionType = "delete_db"
	// ActionRestoreStorage uploads the archive of a persisted run again.
	ActionRestoreStorage ActionType = "restore_storage"
)

// Action represents a planned mutation operation.
type Action struct {
	// Type specifies the action to perform.
	Type ActionType `json:"type"`

	// Key is the output object name.
	Key string `json:"key"`

	// RunID is the run the action applies to.
	RunID string `json:"run_id"`

	// Reason explains why this action is needed.
	Reason string `json:"reason"`
}

// ReconcilePlan contains reconciliation results and planned actions.
type ReconcilePlan struct {
	Results []ReconcileResult `json:"results"`
	Actions []Action          `json:"actions"`
	Summary PlanSummary       `json:"summary"`
}

// PlanSummary provides aggregate statistics for a reconcile plan.
type PlanSummary struct {
	// TotalItems is the total number of unique output objects.
	TotalItems int `json:"total_items"`

	// MissingStorage counts persisted runs without an archive.
	MissingStorage int `json:"missing_storage"`

	// MissingDB counts archives no persisted run names.
	MissingDB int `json:"missing_db"`

	// PurgeActions counts planned run deletions.
	PurgeActions int `json:"purge_actions"`

	// RestoreActions counts planned archive uploads.
	RestoreActions int `json:"restore_actions"`
}

// ReconcileOptions controls which actions are planned and whether they run.
type ReconcileOptions struct {
	// DryRun prevents execution of any mutations if true.
	DryRun bool

	// DoPurge plans the deletion of runs whose archive is missing.
	DoPurge bool

	// DoRestore plans the upload of missing archives from persisted runs.
	// Restore takes precedence over purge.
	DoRestore bool

	// Confirmed indicates the caller has confirmed mutations.
	// If false, mutations will not execute regardless of DryRun.
	Confirmed bool
}
