package colx

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSet(t *testing.T) {
	var s Set[string]
	require.False(t, s.Has("a"))
	require.Equal(t, 0, s.Len())
	require.Nil(t, s.Slice())

	s.Put("a")
	s.Put("b")
	s.Put("a")
	require.True(t, s.Has("a"))
	require.True(t, s.Has("b"))
	require.Equal(t, 2, s.Len())

	got := s.Slice()
	slices.Sort(got)
	require.Equal(t, []string{"a", "b"}, got)

	clone := s.Clone()
	s.Delete("a")
	require.False(t, s.Has("a"))
	require.True(t, clone.Has("a"), "clone must not share storage")

	var collected []string
	for v := range s.All() {
		collected = append(collected, v)
	}
	require.Equal(t, []string{"b"}, collected)
}
