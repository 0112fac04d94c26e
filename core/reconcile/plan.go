package reconcile

import (
	"context"
	"fmt"

	"feed-merger/core/storage"

	"gorm.io/gorm"
)

// ReconcileWithPlan reconciles and plans the actions enabled by opts.
// It does NOT execute actions; use ApplyPlan for that.
func ReconcileWithPlan(
	ctx context.Context,
	spec *Spec,
	db *gorm.DB,
	client storage.Client,
	bucket string,
	opts ReconcileOptions,
) (*ReconcilePlan, error) {
	cache, err := GetOrBuildCache(ctx, spec, db, client, bucket)
	if err != nil {
		return nil, err
	}

	results := reconcileFromCache(cache)
	summary, actions := buildPlanFromResults(results, opts)

	return &ReconcilePlan{
		Results: results,
		Actions: actions,
		Summary: summary,
	}, nil
}

// ApplyPlan executes the actions in a reconcile plan and returns how many ran.
// Requires opts.Confirmed=true and opts.DryRun=false to actually execute.
func ApplyPlan(ctx context.Context, spec *Spec, plan *ReconcilePlan, opts ReconcileOptions) (executed int, err error) {
	// Safety check: do not execute if not confirmed or dry-run
	if !opts.Confirmed || opts.DryRun {
		return 0, nil
	}

	mutator, ok := spec.Adapter.(Mutator)
	if !ok {
		return 0, fmt.Errorf("adapter %s does not implement Mutator interface", spec.Adapter.Name())
	}
	if len(plan.Actions) > 0 {
		defer InvalidateCache(spec)
	}

	for _, action := range plan.Actions {
		switch action.Type {
		case ActionDeleteDB:
			if err := mutator.DeleteDB(ctx, action.RunID); err != nil {
				return executed, fmt.Errorf("failed to delete run %s: %w", action.RunID, err)
			}
		case ActionRestoreStorage:
			if err := mutator.RestoreStorage(ctx, action.RunID, action.Key); err != nil {
				return executed, fmt.Errorf("failed to restore %s: %w", action.Key, err)
			}
		default:
			return executed, fmt.Errorf("unknown action %q", action.Type)
		}
		executed++
	}
	return executed, nil
}

// ReconcileAndApply plans and optionally applies actions.
func ReconcileAndApply(
	ctx context.Context,
	spec *Spec,
	db *gorm.DB,
	client storage.Client,
	bucket string,
	opts ReconcileOptions,
) (*ReconcilePlan, int, error) {
	plan, err := ReconcileWithPlan(ctx, spec, db, client, bucket, opts)
	if err != nil {
		return nil, 0, err
	}

	executed, err := ApplyPlan(ctx, spec, plan, opts)
	return plan, executed, err
}

func buildPlanFromResults(results []ReconcileResult, opts ReconcileOptions) (PlanSummary, []Action) {
	summary := PlanSummary{TotalItems: len(results)}
	actions := []Action{}

	for _, result := range results {
		if !result.DBPresent {
			// Archives without a run are left alone: they may be inputs.
			summary.MissingDB++
			continue
		}
		if result.StoragePresent {
			continue
		}
		summary.MissingStorage++

		switch {
		case opts.DoRestore:
			actions = append(actions, Action{
				Type:   ActionRestoreStorage,
				Key:    result.ID,
				RunID:  result.RunID,
				Reason: "archive missing in storage",
			})
			summary.RestoreActions++
		case opts.DoPurge:
			actions = append(actions, Action{
				Type:   ActionDeleteDB,
				Key:    result.ID,
				RunID:  result.RunID,
				Reason: "archive missing in storage",
			})
			summary.PurgeActions++
		}
	}
	return summary, actions
}
