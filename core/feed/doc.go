// Package feed reads and writes feeds as CSV tables.
//
// A feed is a set of tables (agency.txt, stops.txt, trips.txt, ...) stored in
// a directory, a zip archive or a zip object in the bucket. Load turns any
// fs.FS holding those tables into a *graph.Graph; Write renders a graph back
// into tables, rows ordered by graph.CompareEntities so the output of a merge
// is stable.
//
// # Identifiers
//
// Plain feeds carry bare identifiers. The loader scopes them with the feed's
// scope: Options.Scope if set, else the first agency_id, else the feed name.
// Feeds written by this package carry full "scope_local" tokens and are read
// back with Options.ScopedIDs.
//
// # Synthesized entities
//
//   - One Shape per distinct shape_id of shapes.txt.
//   - A calendar without weekday pattern for every service found only in
//     calendar_dates.txt. Such calendars are not written to calendar.txt.
//   - Fare rules are numbered in file order within their fare.
//
// # Usage
//
//	g, err := feed.LoadPath("feeds/metro.zip", feed.Options{Logger: logger})
//	err = feed.WriteZip(w, result.Target)
package feed
