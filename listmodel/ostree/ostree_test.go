package ostree

import (
	"cmp"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func intTree(t *testing.T, keys ...int) (*Tree[int], map[int]*Node[int]) {
	t.Helper()
	tr := New[int](cmp.Compare)
	nodes := make(map[int]*Node[int])
	for _, k := range keys {
		n, err := tr.Add(k, 1)
		require.NoError(t, err)
		nodes[k] = n
	}
	require.NoError(t, tr.SelfTest())
	return tr, nodes
}

func keysOf(tr *Tree[int]) []int {
	var out []int
	for n := range tr.InOrder() {
		out = append(out, n.Item)
	}
	return out
}

func TestAddKeepsOrder(t *testing.T) {
	tr, _ := intTree(t, 5, 1, 9, 3, 7, 2, 8, 4, 6, 0)
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, keysOf(tr))
	require.Equal(t, 10, tr.Len())
	require.Equal(t, 10, tr.Total())

	_, err := tr.Add(5, 1)
	require.Error(t, err, "duplicate keys must be rejected")
}

func TestOffsets(t *testing.T) {
	tr, nodes := intTree(t, 1, 2, 3, 4, 5)

	for i, k := range []int{1, 2, 3, 4, 5} {
		require.Equal(t, i, nodes[k].Offset())
	}

	// Shrinking a node shifts every successor.
	tr.SetWidth(nodes[2], 0)
	require.Equal(t, []int{0, 1, 1, 2, 3}, offsetsOf(nodes, 1, 2, 3, 4, 5))
	require.Equal(t, 4, tr.Total())

	tr.SetWidth(nodes[2], 3)
	require.Equal(t, []int{0, 1, 4, 5, 6}, offsetsOf(nodes, 1, 2, 3, 4, 5))
	require.Equal(t, 7, tr.Total())
	require.NoError(t, tr.SelfTest())
}

func offsetsOf(nodes map[int]*Node[int], keys ...int) []int {
	out := make([]int, len(keys))
	for i, k := range keys {
		out[i] = nodes[k].Offset()
	}
	return out
}

func TestNeighbors(t *testing.T) {
	tr, nodes := intTree(t, 1, 2, 3)

	require.Nil(t, nodes[1].Prev())
	require.Same(t, nodes[2], nodes[1].Next())
	require.Same(t, nodes[1], nodes[2].Prev())
	require.Nil(t, nodes[3].Next())
	require.Same(t, nodes[1], tr.First())
	require.Same(t, nodes[3], tr.Last())
}

func TestRangeSearch(t *testing.T) {
	tr, nodes := intTree(t, 1, 2, 3, 4, 5, 6, 7)

	rel := func(k int) int {
		switch {
		case k < 3:
			return -1
		case k > 5:
			return +1
		default:
			return 0
		}
	}

	b := tr.RangeSearch(rel)
	require.Equal(t, []*Node[int]{nodes[2]}, b.Lesser)
	require.Equal(t, []*Node[int]{nodes[3], nodes[4], nodes[5]}, b.Range)
	require.Equal(t, []*Node[int]{nodes[6]}, b.Greater)

	// A range before everything.
	b = tr.RangeSearch(func(int) int { return +1 })
	require.Nil(t, b.Lesser)
	require.Nil(t, b.Range)
	require.Equal(t, []*Node[int]{nodes[1]}, b.Greater)

	// A range after everything.
	b = tr.RangeSearch(func(int) int { return -1 })
	require.Equal(t, []*Node[int]{nodes[7]}, b.Lesser)
	require.Nil(t, b.Range)
	require.Nil(t, b.Greater)
}

func TestOffsetSearch(t *testing.T) {
	tr, nodes := intTree(t, 1, 2, 3)
	tr.SetWidth(nodes[1], 4) // ldoc [0,4)
	tr.SetWidth(nodes[2], 0) // tombstone at 4
	tr.SetWidth(nodes[3], 2) // ldoc [4,6)

	touching, anchored := tr.OffsetSearch(2)
	require.Equal(t, []*Node[int]{nodes[1]}, touching)
	require.Empty(t, anchored)

	touching, anchored = tr.OffsetSearch(4)
	require.Equal(t, []*Node[int]{nodes[1]}, touching)
	require.Equal(t, []*Node[int]{nodes[2], nodes[3]}, anchored)

	touching, anchored = tr.OffsetSearch(6)
	require.Equal(t, []*Node[int]{nodes[3]}, touching)
	require.Empty(t, anchored)

	touching, anchored = tr.OffsetSearch(0)
	require.Empty(t, touching)
	require.Equal(t, []*Node[int]{nodes[1]}, anchored)
}

func TestRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tr := New[int](cmp.Compare)

	seen := make(map[int]*Node[int])
	for range 500 {
		k := rng.Intn(2000)
		if _, ok := seen[k]; ok {
			continue
		}
		n, err := tr.Add(k, rng.Intn(4))
		require.NoError(t, err)
		seen[k] = n
	}
	require.NoError(t, tr.SelfTest())

	// Offsets must agree with a linear scan.
	off := 0
	for n := range tr.InOrder() {
		require.Equal(t, off, n.Offset())
		off += n.Width()
	}
	require.Equal(t, off, tr.Total())
}
