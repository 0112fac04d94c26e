package merge

import (
	"fmt"
	"time"

	"feed-merger/core/graph"
)

// Decision classifies one source entity.
type Decision int

const (
	// Insert copies the entity into the target under its own key.
	Insert Decision = iota
	// Reuse maps the entity onto an equivalent target entity.
	Reuse
	// Conflict inserts the entity under a fresh key because its key is taken
	// by an incompatible entity.
	Conflict
)

func (d Decision) String() string {
	switch d {
	case Insert:
		return "insert"
	case Reuse:
		return "reuse"
	case Conflict:
		return "conflict"
	}
	return fmt.Sprintf("decision(%d)", int(d))
}

// MarshalText encodes the decision by name.
func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a decision name.
func (d *Decision) UnmarshalText(text []byte) error {
	for _, candidate := range []Decision{Insert, Reuse, Conflict} {
		if candidate.String() == string(text) {
			*d = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown decision %q", text)
}

// Outcome is the audit record of one decision.
type Outcome struct {
	Source   string   `json:"source"`
	Kind     string   `json:"kind"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Decision Decision `json:"decision"`
	Reason   string   `json:"reason,omitempty"`
}

// KindSummary counts the decisions of one kind.
type KindSummary struct {
	Kind     string `json:"kind"`
	Inserted int    `json:"inserted"`
	Reused   int    `json:"reused"`
	Renamed  int    `json:"renamed"`
	// Dropped counts children of a reused parent the target parent lacks.
	Dropped int `json:"dropped"`
	Total   int `json:"total"`
}

// Report describes a finished merge run.
type Report struct {
	RunID      string        `json:"run_id"`
	Sources    []string      `json:"sources"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Kinds      []KindSummary `json:"kinds"`
	// Renames lists every Conflict, for operator review.
	Renames []Outcome `json:"renames"`
	// Matches lists Reuse decisions that mapped onto a different key.
	Matches []Outcome `json:"matches"`
}

// Summary returns the counts of a kind.
func (r *Report) Summary(kind graph.Kind) KindSummary {
	for _, s := range r.Kinds {
		if s.Kind == kind.String() {
			return s
		}
	}
	return KindSummary{Kind: kind.String()}
}

// Result is the output of a merge run.
type Result struct {
	Target *graph.Graph
	Report *Report
}
