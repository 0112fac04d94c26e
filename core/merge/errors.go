package merge

import (
	"errors"
	"fmt"

	"feed-merger/core/graph"
	"feed-merger/core/identity"
)

var (
	// ErrUnresolvedReference means a foreign key has no remapping. The source
	// is incomplete or the merge order was violated.
	ErrUnresolvedReference = errors.New("unresolved reference")
	// ErrRenameExhausted means no free identifier was found for a conflicting entity.
	ErrRenameExhausted = errors.New("identifier rename exhausted")
	// ErrAborted is returned when the run is cancelled between passes.
	ErrAborted = errors.New("merge aborted")
)

// UnresolvedError names the unresolved foreign key.
type UnresolvedError struct {
	Source string
	Kind   graph.Kind
	Entity identity.ID
	Column string
	Ref    identity.ID
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("%s: %s %s in %s: column %s references %s",
		ErrUnresolvedReference, e.Kind, e.Entity, e.Source, e.Column, e.Ref)
}

func (e *UnresolvedError) Unwrap() error {
	return ErrUnresolvedReference
}

// RenameExhaustedError names the identifier that could not be disambiguated.
type RenameExhaustedError struct {
	Kind     graph.Kind
	ID       identity.ID
	Attempts int
}

func (e *RenameExhaustedError) Error() string {
	return fmt.Sprintf("%s: %s %s after %d attempts", ErrRenameExhausted, e.Kind, e.ID, e.Attempts)
}

func (e *RenameExhaustedError) Unwrap() error {
	return ErrRenameExhausted
}
