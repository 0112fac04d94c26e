package identity

import (
	"errors"
	"fmt"
	"strings"
)

// Separator joins the scope and local parts of a token.
const Separator = "_"

// ErrMalformedIdentifier is returned when a token or a pair of parts cannot form a valid ID.
var ErrMalformedIdentifier = errors.New("malformed identifier")

// MalformedError describes the offending token.
type MalformedError struct {
	Token  string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrMalformedIdentifier, e.Token, e.Reason)
}

func (e *MalformedError) Unwrap() error {
	return ErrMalformedIdentifier
}

// ID is an immutable scoped identifier. The zero value means "no reference".
type ID struct {
	scope string
	local string
}

// New builds an ID from its parts.
func New(scope, local string) (ID, error) {
	token := scope + Separator + local
	switch {
	case scope == "":
		return ID{}, &MalformedError{Token: token, Reason: "empty scope"}
	case local == "":
		return ID{}, &MalformedError{Token: token, Reason: "empty local id"}
	case strings.Contains(scope, Separator):
		return ID{}, &MalformedError{Token: token, Reason: "scope contains separator"}
	}
	return ID{scope: scope, local: local}, nil
}

// MustNew is like New but panics on invalid parts. Intended for tests and literals.
func MustNew(scope, local string) ID {
	id, err := New(scope, local)
	if err != nil {
		panic(err)
	}
	return id
}

// Parse splits a token on the first separator.
func Parse(token string) (ID, error) {
	scope, local, ok := strings.Cut(token, Separator)
	if !ok {
		return ID{}, &MalformedError{Token: token, Reason: "missing separator"}
	}
	if scope == "" {
		return ID{}, &MalformedError{Token: token, Reason: "empty scope"}
	}
	if local == "" {
		return ID{}, &MalformedError{Token: token, Reason: "empty local id"}
	}
	return ID{scope: scope, local: local}, nil
}

// Format is the inverse of Parse.
func Format(id ID) string {
	return id.scope + Separator + id.local
}

// Rescope replaces the scope part, keeping the local id. The new scope is
// checked like in New, so the result always survives a Format/Parse round trip.
func Rescope(id ID, scope string) (ID, error) {
	return New(scope, id.local)
}

// WithLocal replaces the local part, keeping the scope. It fails for an empty
// local part and for the zero ID.
func WithLocal(id ID, local string) (ID, error) {
	return New(id.scope, local)
}

// Compare orders IDs lexicographically on (scope, local).
func Compare(a, b ID) int {
	if c := strings.Compare(a.scope, b.scope); c != 0 {
		return c
	}
	return strings.Compare(a.local, b.local)
}

// Scope returns the owning scope.
func (id ID) Scope() string { return id.scope }

// Local returns the locally unique part.
func (id ID) Local() string { return id.local }

// IsZero reports whether id is the empty reference.
func (id ID) IsZero() bool { return id.scope == "" && id.local == "" }

// String returns the token form, or an empty string for the zero ID.
func (id ID) String() string {
	if id.IsZero() {
		return ""
	}
	return Format(id)
}
