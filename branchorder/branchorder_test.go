package branchorder

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrder(t *testing.T) {
	o := New()

	require.Equal(t, 0, o.Register("alice"))
	require.Equal(t, 1, o.Register("bob"))
	require.Equal(t, 0, o.Register("alice"), "re-registering must keep the rank")
	require.Equal(t, 2, o.Len())

	require.Equal(t, -1, o.Cmp("alice", "bob"))
	require.Equal(t, +1, o.Cmp("bob", "alice"))
	require.Equal(t, 0, o.Cmp("bob", "bob"))

	// Key bytes must not matter, only registration order.
	require.Equal(t, 2, o.Register("aaaa"))
	require.Equal(t, -1, o.Cmp("bob", "aaaa"))

	var got []Branch
	for _, b := range o.Branches() {
		got = append(got, b)
	}
	require.Equal(t, []Branch{"alice", "bob", "aaaa"}, got)
}

func TestNewRandom(t *testing.T) {
	a := NewRandom()
	b := NewRandom()
	require.NotEqual(t, a, b)
	require.NotEmpty(t, a)
}
