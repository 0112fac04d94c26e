package cmd

import (
	"context"
	"fmt"

	"feed-merger/core/config"
	"feed-merger/core/database"
	"feed-merger/core/feed"
	"feed-merger/core/logger"
	"feed-merger/core/storage"
	"feed-merger/feature/integrity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var fixFlag bool

// integrityCmd represents the integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Perform integrity checks on the merge infrastructure",
	Long:  `Checks that the feed bucket, its folders and the run tables are in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, logg, err := integrityService()
		if err != nil {
			return err
		}
		checkStorage(cmd.Context(), svc, logg, false)
		checkDatabase(svc, logg)
		return nil
	},
}

// storageCmd represents the integrity storage command
var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Check and fix the feed bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, logg, err := integrityService()
		if err != nil {
			return err
		}
		return checkStorage(cmd.Context(), svc, logg, fixFlag)
	},
}

// databaseCmd represents the integrity database command
var databaseCmd = &cobra.Command{
	Use:   "database",
	Short: "Check the run tables schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, logg, err := integrityService()
		if err != nil {
			return err
		}
		return checkDatabase(svc, logg)
	},
}

// feedCmd represents the integrity feed command
var feedCmd = &cobra.Command{
	Use:   "feed <object>",
	Short: "Validate a feed archive stored in the bucket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, logg, err := integrityService()
		if err != nil {
			return err
		}
		report, err := svc.CheckFeed(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, p := range report.Problems {
			logg.Warn("Dangling reference", zap.String("problem", p))
		}
		if !report.Valid {
			return fmt.Errorf("feed %s has %d dangling references", args[0], len(report.Problems))
		}
		logg.Info("Feed is valid", zap.String("object", args[0]))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(integrityCmd)
	integrityCmd.AddCommand(storageCmd, databaseCmd, feedCmd)

	storageCmd.Flags().BoolVar(&fixFlag, "fix", false, "Create the bucket and missing folders")
}

func integrityService() (*integrity.Service, *zap.Logger, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	client, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	// Connect to Database (Optional)
	var db *gorm.DB
	if conn, err := database.Connect(cfg.Database); err != nil {
		logg.Warn("Optional database connection failed", zap.Error(err))
	} else {
		db = conn
	}

	svc := integrity.NewService(client, cfg.Storage, outputFolders(cfg), logg, db, feed.Options{ScopedIDs: cfg.Merge.ScopedIDs})
	return svc, logg, nil
}

// outputFolders lists the bucket folders merges write to.
func outputFolders(cfg *config.Config) []string {
	if cfg.Merge.OutputPrefix == "" {
		return nil
	}
	return []string{cfg.Merge.OutputPrefix}
}

func checkStorage(ctx context.Context, svc *integrity.Service, logg *zap.Logger, fix bool) error {
	logg.Info("Checking feed bucket...")
	report, err := svc.CheckStorage(ctx)
	if err != nil {
		logg.Error("Storage check failed", zap.Error(err))
		return err
	}

	if report.Exists && len(report.Missing) == 0 {
		logg.Info("Storage is intact.", zap.String("bucket", report.Bucket))
		return nil
	}
	logg.Warn("Storage incomplete", zap.Bool("bucket_exists", report.Exists), zap.Strings("missing", report.Missing))

	if !fix {
		logg.Info("Run 'integrity storage --fix' to create what is missing.")
		return nil
	}
	if err := svc.FixStorage(ctx, report.Missing); err != nil {
		return fmt.Errorf("failed to fix storage: %w", err)
	}
	logg.Info("Storage fixed successfully.")
	return nil
}

func checkDatabase(svc *integrity.Service, logg *zap.Logger) error {
	logg.Info("Checking run tables...")
	report, err := svc.CheckDatabase()
	if err != nil {
		logg.Error("Database check failed", zap.Error(err))
		return err
	}
	if report.Matched {
		logg.Info("Run tables match the expected schema.")
		return nil
	}

	for table, tbl := range report.Tables {
		if tbl.Status != "ok" {
			logg.Warn("Missing Columns", zap.String("table", table), zap.Strings("columns", tbl.MissingColumns))
		}
	}
	for _, e := range report.Errors {
		logg.Error("Inspection Error", zap.String("error", e))
	}
	return fmt.Errorf("run tables do not match the expected schema")
}
