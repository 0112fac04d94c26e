package feedstore

import (
	"sort"
	"time"
)

// RunRecord is the audit row of one merge run.
type RunRecord struct {
	ID         string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	Sources    string    `gorm:"column:sources;type:text" json:"sources"`
	Output     string    `gorm:"column:output;size:512" json:"output"`
	StartedAt  time.Time `gorm:"column:started_at;index" json:"started_at"`
	FinishedAt time.Time `gorm:"column:finished_at" json:"finished_at"`
	Inserted   int       `gorm:"column:inserted" json:"inserted"`
	Reused     int       `gorm:"column:reused" json:"reused"`
	Renamed    int       `gorm:"column:renamed" json:"renamed"`
	Report     string    `gorm:"column:report;type:text" json:"-"`
}

// TableName overrides the table name used by RunRecord.
func (RunRecord) TableName() string {
	return "merge_runs"
}

// EntityRecord is one entity of a merged feed.
type EntityRecord struct {
	ID       uint   `gorm:"column:id;primaryKey;autoIncrement"`
	RunID    string `gorm:"column:run_id;size:36;index:idx_feed_entities_run_kind,priority:1"`
	Kind     string `gorm:"column:kind;size:32;index:idx_feed_entities_run_kind,priority:2"`
	Token    string `gorm:"column:token;size:255"`
	Parent   string `gorm:"column:parent;size:255"`
	Sequence int    `gorm:"column:sequence"`
	Values   string `gorm:"column:row_values;type:text"`
}

// TableName overrides the table name used by EntityRecord.
func (EntityRecord) TableName() string {
	return "feed_entities"
}

var expectedColumns = map[string][]string{
	"merge_runs":    {"id", "sources", "output", "started_at", "finished_at", "inserted", "reused", "renamed", "report"},
	"feed_entities": {"id", "run_id", "kind", "token", "parent", "sequence", "row_values"},
}

// Tables returns the names of the tables the store owns, sorted.
func Tables() []string {
	tables := make([]string, 0, len(expectedColumns))
	for table := range expectedColumns {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	return tables
}
