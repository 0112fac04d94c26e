package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feed-merger/core/config"
	"feed-merger/core/database"
	"feed-merger/core/feed"
	"feed-merger/core/feedstore"
	"feed-merger/core/graph"
	"feed-merger/core/logger"
	"feed-merger/core/merge"
	"feed-merger/core/storage"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// mergeOptions are the inputs of one CLI merge.
type mergeOptions struct {
	Sources    []string
	Out        string
	ReportPath string
	Persist    bool
	Upload     string
}

var mergeFlags mergeOptions

// mergeCmd represents the merge command
var mergeCmd = &cobra.Command{
	Use:   "merge <feed>...",
	Short: "Merge transit feeds into one",
	Long: `Merges the given feeds (directories or zip archives) in order and writes the
merged feed to --out. Feeds later in the list are merged into the result of the
earlier ones.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := applyMergeFlags(cmd, &cfg.Merge); err != nil {
			return err
		}

		logg, err := logger.New(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer logg.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := mergeFlags
		opts.Sources = args
		return runMerge(ctx, cfg, logg, opts)
	},
}

func init() {
	RootCmd.AddCommand(mergeCmd)

	f := mergeCmd.Flags()
	f.StringVarP(&mergeFlags.Out, "out", "o", "", "Output directory or .zip archive")
	f.StringVar(&mergeFlags.ReportPath, "report", "", "Write the merge report as JSON to this file")
	f.BoolVar(&mergeFlags.Persist, "persist", false, "Store the merged feed and report in the database")
	f.StringVar(&mergeFlags.Upload, "upload", "", "Also upload the merged archive to this object of the bucket")
	f.Float64("stop-tolerance", 0, "Maximum distance in meters between stops considered the same")
	f.Bool("fuzzy-stops", false, "Also match stops with different ids by name and proximity")
	f.String("overrides", "", "Per-kind decision override, e.g. trips=insert_only,stops=reuse_only")
	f.Int("workers", 0, "Goroutines computing signatures")
	f.Bool("scoped-ids", false, "Input identifiers are already scope_local tokens")
	_ = mergeCmd.MarkFlagRequired("out")
}

// applyMergeFlags lets explicitly set flags win over the configuration.
func applyMergeFlags(cmd *cobra.Command, cfg *config.MergeConfig) error {
	f := cmd.Flags()
	var err error
	if f.Changed("stop-tolerance") {
		cfg.StopToleranceMeters, err = f.GetFloat64("stop-tolerance")
	}
	if err == nil && f.Changed("fuzzy-stops") {
		cfg.FuzzyStops, err = f.GetBool("fuzzy-stops")
	}
	if err == nil && f.Changed("overrides") {
		cfg.Overrides, err = f.GetString("overrides")
	}
	if err == nil && f.Changed("workers") {
		cfg.Workers, err = f.GetInt("workers")
	}
	if err == nil && f.Changed("scoped-ids") {
		cfg.ScopedIDs, err = f.GetBool("scoped-ids")
	}
	return err
}

func runMerge(ctx context.Context, cfg *config.Config, logg *zap.Logger, opts mergeOptions) error {
	startTime := time.Now()

	engine, err := merge.NewEngine(cfg.Merge.Config, merge.WithLogger(logg))
	if err != nil {
		return err
	}

	names := sourceNames(opts.Sources)
	sources := make([]*graph.Graph, 0, len(opts.Sources))
	for i, p := range opts.Sources {
		g, err := feed.LoadPath(p, feed.Options{Name: names[i], ScopedIDs: cfg.Merge.ScopedIDs, Logger: logg})
		if err != nil {
			return err
		}
		sources = append(sources, g)
	}

	result, err := engine.Merge(ctx, sources...)
	if err != nil {
		return err
	}

	if err := feed.WritePath(opts.Out, result.Target); err != nil {
		return fmt.Errorf("failed to write merged feed: %w", err)
	}
	logg.Info("Merged feed written", zap.String("out", opts.Out))

	if opts.ReportPath != "" {
		data, err := json.MarshalIndent(result.Report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		if err := os.WriteFile(opts.ReportPath, data, 0644); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		logg.Info("Merge report saved", zap.String("file", opts.ReportPath))
	}

	if opts.Upload != "" {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to create storage client: %w", err)
		}
		if err := storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
			return err
		}
		if _, err := feed.Upload(ctx, client, cfg.Storage.Bucket, opts.Upload, result.Target); err != nil {
			return err
		}
		logg.Info("Merged feed uploaded", zap.String("bucket", cfg.Storage.Bucket), zap.String("object", opts.Upload))
	}

	if opts.Persist {
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("database connection required: %w", err)
		}
		store := feedstore.New(db)
		if err := store.Migrate(); err != nil {
			return fmt.Errorf("failed to migrate feed store: %w", err)
		}
		output := opts.Out
		if opts.Upload != "" {
			output = opts.Upload
		}
		if err := store.Save(ctx, result, output); err != nil {
			return err
		}
		logg.Info("Merge run persisted", zap.String("run_id", result.Report.RunID))
	}

	printSummary(result.Report, time.Since(startTime))
	return nil
}

// sourceNames names every input after its base name. Inputs sharing a base
// name get a "-n" suffix so reports and errors tell them apart.
func sourceNames(paths []string) []string {
	names := make([]string, len(paths))
	used := make(map[string]bool, len(paths))
	for i, p := range paths {
		base := feed.NameOf(p)
		name := base
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s-%d", base, n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func printSummary(report *merge.Report, elapsed time.Duration) {
	fmt.Println("\n=== Merge Summary ===")
	fmt.Printf("Run: %s\n", report.RunID)
	fmt.Printf("%-16s %9s %9s %9s %9s\n", "Kind", "Inserted", "Reused", "Renamed", "Dropped")
	for _, k := range report.Kinds {
		if k.Total == 0 {
			continue
		}
		fmt.Printf("%-16s %9d %9d %9d %9d\n", k.Kind, k.Inserted, k.Reused, k.Renamed, k.Dropped)
	}
	fmt.Printf("Renames: %d\n", len(report.Renames))
	fmt.Printf("Execution Time: %s\n", elapsed.String())
}
