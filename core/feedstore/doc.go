// Package feedstore persists merge runs and their merged feeds with GORM.
//
// Two tables are used:
//   - merge_runs: one row per run with its counts and the JSON report.
//   - feed_entities: one row per written entity of a merged feed, holding the
//     run id, kind, token, parent token, sequence and the row values.
//
// Export rebuilds the merged feed of a run from feed_entities by replaying the
// rows through the feed loader, so a stored feed reads back exactly like a
// written archive.
//
// # Usage
//
//	store := feedstore.New(db)
//	if err := store.Migrate(); err != nil { ... }
//	err = store.Save(ctx, result, "merged/out.zip")
//	report, err := store.Report(ctx, runID)
package feedstore
