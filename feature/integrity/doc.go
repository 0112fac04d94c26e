// Package integrity provides health checks for the merge infrastructure.
//
// # Checks Provided
//
//   - Storage: Checks that the feed bucket and the configured folders exist (e.g. merged/).
//   - Database: Validates that the run tables match the columns the feed store writes.
//   - Feed: Loads one archive from the bucket and reports dangling references
//     and positional rows presented out of sequence order.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs the storage and database checks.
//   - GET /integrity/storage : Runs the storage check (supports ?fix=true).
//   - GET /integrity/database : Runs the database schema check.
//   - GET /integrity/feed?object=<name> : Validates one feed archive.
package integrity
