package merge

import (
	"errors"
	"testing"

	"feed-merger/core/graph"
	"feed-merger/core/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTablePutAndFreeze(t *testing.T) {
	src := graph.New("a")
	tables := newTables()
	assert.Nil(t, tables.Get(src, graph.KindStop))

	table := tables.create(src, graph.KindStop)
	assert.Same(t, table, tables.Get(src, graph.KindStop))
	assert.Nil(t, tables.Get(graph.New("a"), graph.KindStop), "tables are keyed by graph, not name")

	from := identity.MustNew("a", "S1")
	require.NoError(t, table.put(from, identity.MustNew("a", "S1-1")))
	require.NoError(t, table.put(from, identity.MustNew("a", "S1-1")), "same mapping twice is fine")
	assert.Error(t, table.put(from, identity.MustNew("a", "S1-2")))

	to, ok := table.Lookup(from)
	assert.True(t, ok)
	assert.Equal(t, identity.MustNew("a", "S1-1"), to)
	assert.Equal(t, 1, table.Len())

	table.freeze()
	assert.True(t, table.Frozen())
	assert.Error(t, table.put(identity.MustNew("a", "S2"), identity.MustNew("a", "S2")))
}

func TestNamer(t *testing.T) {
	target := graph.New("merged")
	require.NoError(t, target.Insert(&graph.Stop{StopID: identity.MustNew("m", "S1")}))
	require.NoError(t, target.Insert(&graph.Stop{StopID: identity.MustNew("m", "S1-1")}))

	n := newNamer(target, nil, 5)
	id, err := n.rename(graph.KindStop, identity.MustNew("m", "S1"))
	require.NoError(t, err)
	assert.Equal(t, identity.MustNew("m", "S1-2"), id)

	// Suffixes are per kind.
	id, err = n.rename(graph.KindRoute, identity.MustNew("m", "S1"))
	require.NoError(t, err)
	assert.Equal(t, identity.MustNew("m", "S1-1"), id)

	// The counter continues even if the previous name was never inserted.
	id, err = n.rename(graph.KindStop, identity.MustNew("m", "S1"))
	require.NoError(t, err)
	assert.Equal(t, identity.MustNew("m", "S1-3"), id)

	exhausted := newNamer(target, nil, 1)
	_, err = exhausted.rename(graph.KindStop, identity.MustNew("m", "S1"))
	assert.True(t, errors.Is(err, ErrRenameExhausted))
}
