// Package merge exposes the feed merge engine over HTTP.
//
// Input feeds are zip archives stored in the configured bucket. A merge
// request names the archives in merge order; the merged feed is uploaded
// back to the bucket and, when a database is configured, the run report and
// the merged entities are persisted for later export.
//
// # HTTP Endpoints
//
//   - POST /merge : Merges the listed archives and returns the run report.
//   - GET /merge/feeds : Lists the archives available in the bucket (supports ?prefix=).
//   - GET /merge/runs : Lists persisted runs, newest first (supports ?limit=).
//   - GET /merge/runs/:id : Returns the report of a persisted run.
//   - GET /merge/runs/:id/archive : Rebuilds the merged feed of a run as a zip archive.
//   - GET /merge/reconcile : Plans the repair of runs whose archive is missing (supports ?purge=, ?restore=).
//   - POST /merge/reconcile : Applies that plan when ?confirm=true.
package merge
