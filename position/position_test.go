package position

import (
	"testing"

	"github.com/stretchr/testify/require"

	"anchordoc/branchorder"
)

func testOrder(t *testing.T) *branchorder.Order {
	t.Helper()
	bo := branchorder.New()
	bo.Register("A")
	bo.Register("B")
	bo.Register("C")
	return bo
}

func TestCmp(t *testing.T) {
	bo := testOrder(t)

	a3 := New(Lv(3, "A"))
	a4 := New(Lv(4, "A"))
	b3 := New(Lv(3, "B"))
	nested := New(Lv(3, "A"), Lv(1, "B"))

	require.Equal(t, -1, a3.Cmp(a4, bo))
	require.Equal(t, +1, a4.Cmp(a3, bo))
	require.Equal(t, 0, a3.Cmp(a3, bo))

	// Branch rank breaks atom ties.
	require.Equal(t, -1, a3.Cmp(b3, bo))

	// The shorter position sorts before anything nested under it.
	require.Equal(t, -1, a3.Cmp(nested, bo))
	require.Equal(t, +1, nested.Cmp(a3, bo))
	require.Equal(t, -1, nested.Cmp(a4, bo))
}

func TestOffsetLowest(t *testing.T) {
	p := New(Lv(3, "A"), Lv(1, "B"))

	up := p.OffsetLowest(4)
	require.True(t, up.Equal(New(Lv(3, "A"), Lv(5, "B"))))

	down := up.InverseOffsetLowest(4)
	require.True(t, down.Equal(p))

	// The source must not be mutated.
	require.True(t, p.Equal(New(Lv(3, "A"), Lv(1, "B"))))
}

func TestNewBetweenEmptyDoc(t *testing.T) {
	bo := testOrder(t)

	p, err := NewBetween(bo, "A", 5, nil, nil)
	require.NoError(t, err)
	require.True(t, p.Equal(New(Lv(1, "A"))))
}

func TestNewBetweenEdges(t *testing.T) {
	bo := testOrder(t)
	a1 := New(Lv(1, "A"))

	// Only right bound: allocate immediately below it, on the inserting
	// branch.
	p, err := NewBetween(bo, "B", 3, nil, a1)
	require.NoError(t, err)
	require.True(t, p.Equal(New(Lv(-2, "B"))))
	require.Equal(t, -1, p.OffsetLowest(2).Cmp(a1, bo))

	// Only left bound: continue at the left neighbour's first free slot,
	// on the inserting branch.
	p, err = NewBetween(bo, "B", 3, a1, nil)
	require.NoError(t, err)
	require.True(t, p.Equal(New(Lv(1, "B"))))

	// Two branches generating against the same edge stay distinct and
	// order by rank, not by arrival.
	q, err := NewBetween(bo, "C", 3, a1, nil)
	require.NoError(t, err)
	require.False(t, q.Equal(p))
	require.Equal(t, -1, p.Cmp(q, bo))
}

func TestNewBetweenRoom(t *testing.T) {
	bo := testOrder(t)

	p, err := NewBetween(bo, "B", 2, New(Lv(1, "A")), New(Lv(10, "A")))
	require.NoError(t, err)
	require.True(t, p.Equal(New(Lv(2, "B"))))
}

func TestNewBetweenDescends(t *testing.T) {
	bo := testOrder(t)
	a3 := New(Lv(3, "A"))
	a4 := New(Lv(4, "A"))

	// Adjacent atoms force a fresh level on the inserting branch.
	p, err := NewBetween(bo, "B", 2, a3, a4)
	require.NoError(t, err)
	require.True(t, p.Equal(New(Lv(3, "A"), Lv(1, "B"))))
	require.Equal(t, -1, a3.Cmp(p, bo))
	require.Equal(t, -1, p.OffsetLowest(1).Cmp(a4, bo))

	// Same interval on another branch lands on the same atoms, so the
	// branch rank alone decides the final order.
	q, err := NewBetween(bo, "C", 2, a3, a4)
	require.NoError(t, err)
	require.True(t, q.Equal(New(Lv(3, "A"), Lv(1, "C"))))
	require.Equal(t, -1, p.Cmp(q, bo))
}

func TestNewBetweenPoint(t *testing.T) {
	bo := testOrder(t)
	a4 := New(Lv(4, "A"))

	// A point insertion nests under the slot right before the point.
	p, err := NewBetween(bo, "B", 2, a4, a4)
	require.NoError(t, err)
	require.True(t, p.Equal(New(Lv(3, "A"), Lv(1, "B"))))
}

func TestNewBetweenDeepLeft(t *testing.T) {
	bo := testOrder(t)
	left := New(Lv(3, "A"), Lv(5, "B"))
	right := New(Lv(4, "A"))

	// No room at level 0 and the right neighbour has no deeper levels:
	// the run continues below the left neighbour.
	p, err := NewBetween(bo, "C", 1, left, right)
	require.NoError(t, err)
	require.True(t, p.Equal(New(Lv(3, "A"), Lv(6, "C"))))

	require.Equal(t, -1, left.Cmp(p, bo))
	require.Equal(t, -1, p.Cmp(right, bo))
}

func TestNewBetweenPrefixRight(t *testing.T) {
	bo := testOrder(t)
	left := New(Lv(3, "A"))
	right := New(Lv(3, "A"), Lv(4, "B"))

	// Left is a strict prefix of right: allocate below right's deeper level.
	p, err := NewBetween(bo, "C", 2, left, right)
	require.NoError(t, err)
	require.True(t, p.Equal(New(Lv(3, "A"), Lv(2, "C"))))

	require.Equal(t, -1, left.Cmp(p, bo))
	require.Equal(t, -1, p.OffsetLowest(1).Cmp(right, bo))
}

func TestNewBetweenRejects(t *testing.T) {
	bo := testOrder(t)

	_, err := NewBetween(bo, "A", 0, nil, nil)
	require.Error(t, err)

	_, err = NewBetween(bo, "A", 1, New(Lv(4, "A")), New(Lv(3, "A")))
	require.Error(t, err)
}

func TestRunSplitOffset(t *testing.T) {
	bo := testOrder(t)
	run := New(Lv(1, "A")) // atoms 1..10

	for _, tt := range []struct {
		name string
		b    Position
		want int
	}{
		{"before the run", New(Lv(0, "A")), 0},
		{"at the first atom", New(Lv(1, "A")), 0},
		{"mid run", New(Lv(4, "A")), 3},
		{"at one past the end", New(Lv(11, "A")), 10},
		{"way past the end", New(Lv(1000, "A")), 10},
		{"nested under an atom", New(Lv(4, "A"), Lv(1, "B")), 4},
		{"same atom higher rank", New(Lv(4, "B")), 4},
	} {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, RunSplitOffset(bo, run, 10, tt.b))
		})
	}
}

func TestRunSplitOffsetDeepRun(t *testing.T) {
	bo := testOrder(t)
	run := New(Lv(3, "A"), Lv(1, "B")) // atoms (3:A)(1:B) .. (3:A)(5:B)

	// A boundary above the run's subtree.
	require.Equal(t, 5, RunSplitOffset(bo, run, 5, New(Lv(4, "A"))))
	// A boundary that is the run's own prefix sorts before every atom.
	require.Equal(t, 0, RunSplitOffset(bo, run, 5, New(Lv(3, "A"))))
	// A boundary inside the run's level.
	require.Equal(t, 2, RunSplitOffset(bo, run, 5, New(Lv(3, "A"), Lv(3, "B"))))
}
