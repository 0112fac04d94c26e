package feedstore

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"feed-merger/core/database"
	"feed-merger/core/feed"
	"feed-merger/core/graph"
	"feed-merger/core/identity"
	"feed-merger/core/merge"

	"github.com/goccy/go-json"
	"gorm.io/gorm"
)

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("merge run not found")

const batchSize = 500

// Store reads and writes merge runs.
type Store struct {
	db *gorm.DB
}

// New creates a store on db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Migrate creates or updates the tables.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&RunRecord{}, &EntityRecord{})
}

// Verify returns the expected columns missing from the live schema, as
// "table.column".
func (s *Store) Verify() ([]string, error) {
	byTable, err := s.MissingByTable()
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, table := range Tables() {
		for _, c := range byTable[table] {
			missing = append(missing, table+"."+c)
		}
	}
	return missing, nil
}

// MissingByTable returns the expected columns missing from each table.
// Every table of Tables has an entry.
func (s *Store) MissingByTable() (map[string][]string, error) {
	missing := make(map[string][]string, len(expectedColumns))
	for _, table := range Tables() {
		columns, err := database.MissingColumns(s.db, table, expectedColumns[table])
		if err != nil {
			return nil, err
		}
		missing[table] = columns
	}
	return missing, nil
}

// Save stores the report and the merged feed of a run in one transaction.
func (s *Store) Save(ctx context.Context, result *merge.Result, output string) error {
	report := result.Report
	encoded, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	run := RunRecord{
		ID:         report.RunID,
		Sources:    strings.Join(report.Sources, ","),
		Output:     output,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Report:     string(encoded),
	}
	for _, k := range report.Kinds {
		run.Inserted += k.Inserted
		run.Reused += k.Reused
		run.Renamed += k.Renamed
	}

	records, err := entityRecords(report.RunID, result.Target)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("save run %s: %w", run.ID, err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(records, batchSize).Error; err != nil {
			return fmt.Errorf("save feed of run %s: %w", run.ID, err)
		}
		return nil
	})
}

func entityRecords(runID string, g *graph.Graph) ([]EntityRecord, error) {
	var records []EntityRecord
	for _, kind := range graph.MergeOrder {
		for _, e := range feed.Entities(g, kind) {
			values, err := json.Marshal(e.Values())
			if err != nil {
				return nil, err
			}
			r := EntityRecord{
				RunID:  runID,
				Kind:   kind.String(),
				Token:  identity.Format(e.ID()),
				Values: string(values),
			}
			if p, ok := e.(graph.Positional); ok {
				r.Parent = identity.Format(p.Parent())
				r.Sequence = p.Sequence()
			}
			records = append(records, r)
		}
	}
	return records, nil
}

// Record returns the audit row of a run.
func (s *Store) Record(ctx context.Context, runID string) (*RunRecord, error) {
	var run RunRecord
	err := s.db.WithContext(ctx).Where("id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Report returns the decoded report of a run.
func (s *Store) Report(ctx context.Context, runID string) (*merge.Report, error) {
	run, err := s.Record(ctx, runID)
	if err != nil {
		return nil, err
	}
	var report merge.Report
	if err := json.Unmarshal([]byte(run.Report), &report); err != nil {
		return nil, fmt.Errorf("decode report of run %s: %w", runID, err)
	}
	return &report, nil
}

// Runs returns the latest runs, newest first. A limit <= 0 returns every run.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	var runs []RunRecord
	err := s.db.WithContext(ctx).
		Omit("report").
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// DeleteRun removes a run and its entities.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", runID).Delete(&EntityRecord{}).Error; err != nil {
			return fmt.Errorf("delete feed of run %s: %w", runID, err)
		}
		res := tx.Where("id = ?", runID).Delete(&RunRecord{})
		if res.Error != nil {
			return fmt.Errorf("delete run %s: %w", runID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil
	})
}

// Export rebuilds the merged feed of a run.
func (s *Store) Export(ctx context.Context, runID string) (*graph.Graph, error) {
	if _, err := s.Record(ctx, runID); err != nil {
		return nil, err
	}

	var records []EntityRecord
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}

	tables := make(map[graph.Kind][][]string)
	for _, r := range records {
		kind, err := graph.ParseKind(r.Kind)
		if err != nil {
			return nil, fmt.Errorf("run %s entity %d: %w", runID, r.ID, err)
		}
		var values []string
		if err := json.Unmarshal([]byte(r.Values), &values); err != nil {
			return nil, fmt.Errorf("run %s entity %d: %w", runID, r.ID, err)
		}
		tables[kind] = append(tables[kind], values)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	sink := feed.ZipSink(zw)
	for _, kind := range graph.MergeOrder {
		rows, ok := tables[kind]
		if !ok {
			continue
		}
		if err := feed.WriteTable(sink, graph.SchemaOf(kind), rows); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	return feed.LoadArchive(buf.Bytes(), feed.Options{Name: "run-" + runID, ScopedIDs: true})
}
