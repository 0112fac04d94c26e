package cmd

import (
	"fmt"
	"os"

	"feed-merger/core/config"
	"feed-merger/core/database"
	"feed-merger/core/logger"
	"feed-merger/core/merge"
	"feed-merger/core/reconcile"
	"feed-merger/core/storage"
	mergefeature "feed-merger/feature/merge"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile persisted runs with the merged archives of the bucket",
	Long: `Lists persisted runs whose merged archive is missing from the bucket and
archives no run names. With --restore the missing archives are rebuilt from the
database; with --purge the runs are deleted. Nothing changes without --confirm.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer logg.Sync()

		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to create storage client: %w", err)
		}
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("database connection required: %w", err)
		}
		engine, err := merge.NewEngine(cfg.Merge.Config, merge.WithLogger(logg))
		if err != nil {
			return err
		}

		f := cmd.Flags()
		purge, _ := f.GetBool("purge")
		restore, _ := f.GetBool("restore")
		confirm, _ := f.GetBool("confirm")
		asJSON, _ := f.GetBool("json")

		svc := mergefeature.NewService(client, cfg.Storage.Bucket, logg, db, engine, mergefeature.Options{
			ScopedIDs:    cfg.Merge.ScopedIDs,
			OutputPrefix: cfg.Merge.OutputPrefix,
		})
		plan, executed, err := svc.Reconcile(cmd.Context(), reconcile.ReconcileOptions{
			DoPurge:   purge,
			DoRestore: restore,
			Confirmed: confirm,
		})
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(plan)
		}

		for _, a := range plan.Actions {
			logg.Info("Planned action", zap.String("type", string(a.Type)), zap.String("object", a.Key), zap.String("run_id", a.RunID))
		}
		fmt.Println("\n=== Reconcile Summary ===")
		fmt.Printf("Objects: %d\n", plan.Summary.TotalItems)
		fmt.Printf("Storage Missing: %d\n", plan.Summary.MissingStorage)
		fmt.Printf("DB Missing: %d\n", plan.Summary.MissingDB)
		fmt.Printf("Planned Purges: %d\n", plan.Summary.PurgeActions)
		fmt.Printf("Planned Restores: %d\n", plan.Summary.RestoreActions)
		fmt.Printf("Executed: %d\n", executed)
		if len(plan.Actions) > 0 && !confirm {
			fmt.Println("\nRun with --confirm to apply the planned actions.")
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(reconcileCmd)
	reconcileCmd.Flags().Bool("purge", false, "Delete runs whose archive is missing")
	reconcileCmd.Flags().Bool("restore", false, "Upload missing archives rebuilt from the database")
	reconcileCmd.Flags().Bool("confirm", false, "Apply the planned actions")
	reconcileCmd.Flags().Bool("json", false, "Print the plan as JSON")
}
