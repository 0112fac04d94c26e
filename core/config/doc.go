// Package config provides configuration management for the feed merger.
//
// It utilizes Viper for loading configuration from environment variables and
// an optional .env file. Defaults come from the `default` struct tags of each
// section and are bound by reflection.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key, body limit)
//   - Database: MySQL or SQLite connection details
//   - Storage: S3/MinIO credentials and the feed bucket
//   - Log: Logging level and format
//   - Merge: engine settings (stop tolerance, fuzzy stops, overrides,
//     workers, rename attempts) and how input identifiers are read
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	engine, err := merge.NewEngine(cfg.Merge.Config)
package config
