// Package database handles database connections and schema inspection.
//
// It provides a wrapper around GORM to configure MySQL or SQLite connections
// based on the application's configuration. MySQL backs deployments; SQLite
// serves local runs and tests.
//
// # Connect
//
// Connect establishes a connection and verifies it with a ping bounded by
// TimeoutSeconds.
//
// # Schema Inspection
//
// GetTableColumns reads the live column list of a table. The feed store uses
// it to verify that the merged-feed tables match the expected models.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "merge_runs")
package database
