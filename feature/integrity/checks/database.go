package checks

import (
	"fmt"

	"feed-merger/core/feedstore"

	"gorm.io/gorm"
)

// DatabaseReport describes whether the run tables match the store models.
type DatabaseReport struct {
	Matched bool                   `json:"matched"`
	Tables  map[string]TableReport `json:"tables"`
	Errors  []string               `json:"errors"`
}

type TableReport struct {
	MissingColumns []string `json:"missing_columns"`
	Status         string   `json:"status"` // "ok", "error"
}

// CheckDatabase compares the live schema with the columns the store writes.
func CheckDatabase(db *gorm.DB) (*DatabaseReport, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	report := &DatabaseReport{
		Matched: true,
		Tables:  make(map[string]TableReport),
		Errors:  []string{},
	}

	missing, err := feedstore.New(db).MissingByTable()
	if err != nil {
		// Partial fail
		report.Matched = false
		report.Errors = append(report.Errors, fmt.Sprintf("Failed to inspect tables: %v", err))
		return report, nil
	}

	for table, columns := range missing {
		tbl := TableReport{MissingColumns: []string{}, Status: "ok"}
		if len(columns) > 0 {
			tbl.MissingColumns = columns
			tbl.Status = "error"
			report.Matched = false
		}
		report.Tables[table] = tbl
	}
	return report, nil
}
