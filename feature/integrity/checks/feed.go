package checks

import (
	"context"

	"feed-merger/core/feed"
	"feed-merger/core/graph"
	"feed-merger/core/storage"

	"go.uber.org/multierr"
)

// FeedReport describes the integrity of one feed.
type FeedReport struct {
	Name   string         `json:"name"`
	Valid  bool           `json:"valid"`
	Counts map[string]int `json:"counts"`
	// Unordered counts positional rows presented out of sequence order.
	Unordered map[string]int `json:"unordered"`
	Problems  []string       `json:"problems"`
}

// Recorder collects the ordering problems reported while a feed loads.
type Recorder struct {
	unordered map[string]int
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{unordered: make(map[string]int)}
}

// Observe plugs the recorder into feed loading options.
func (r *Recorder) Observe(opts feed.Options) feed.Options {
	opts.OnUnordered = func(kind graph.Kind, rows int) {
		r.unordered[kind.String()] += rows
	}
	return opts
}

// Inspect checks the referential integrity of a loaded feed.
func (r *Recorder) Inspect(g *graph.Graph) *FeedReport {
	report := &FeedReport{
		Name:      g.Name(),
		Counts:    make(map[string]int),
		Unordered: r.unordered,
		Problems:  []string{},
	}
	for kind, n := range g.Counts() {
		report.Counts[kind.String()] = n
	}
	for _, err := range multierr.Errors(g.Validate()) {
		report.Problems = append(report.Problems, err.Error())
	}
	report.Valid = len(report.Problems) == 0
	return report
}

// CheckFeed loads a feed archive from the bucket and inspects it.
func CheckFeed(ctx context.Context, client storage.Client, bucket, object string, opts feed.Options) (*FeedReport, error) {
	rec := NewRecorder()
	g, err := feed.LoadObject(ctx, client, bucket, object, rec.Observe(opts))
	if err != nil {
		return nil, err
	}
	return rec.Inspect(g), nil
}
