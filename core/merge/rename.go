package merge

import (
	"strconv"

	"feed-merger/core/graph"
	"feed-merger/core/identity"
)

type renameKey struct {
	kind graph.Kind
	id   identity.ID
}

// namer picks fresh identifiers for conflicting entities by suffixing the
// local id with "-n". The next counter per base id is remembered so repeated
// conflicts on one id do not rescan taken suffixes.
//
// Keys owned by any source are reserved: a renamed entity must not take the
// key a later entity of the same kind arrives with.
type namer struct {
	target      *graph.Graph
	sources     []*graph.Graph
	maxAttempts int
	next        map[renameKey]int
}

func newNamer(target *graph.Graph, sources []*graph.Graph, maxAttempts int) *namer {
	return &namer{target: target, sources: sources, maxAttempts: maxAttempts, next: make(map[renameKey]int)}
}

func (n *namer) taken(kind graph.Kind, id identity.ID) bool {
	if n.target.Has(kind, id) {
		return true
	}
	for _, src := range n.sources {
		if src.Has(kind, id) {
			return true
		}
	}
	return false
}

func (n *namer) rename(kind graph.Kind, id identity.ID) (identity.ID, error) {
	key := renameKey{kind: kind, id: id}
	counter := n.next[key]
	if counter == 0 {
		counter = 1
	}
	for attempt := 0; attempt < n.maxAttempts; attempt++ {
		candidate, err := identity.WithLocal(id, id.Local()+"-"+strconv.Itoa(counter))
		if err != nil {
			return identity.ID{}, err
		}
		counter++
		if !n.taken(kind, candidate) {
			n.next[key] = counter
			return candidate, nil
		}
	}
	return identity.ID{}, &RenameExhaustedError{Kind: kind, ID: id, Attempts: n.maxAttempts}
}
