// Package branchorder maintains the total order of branch identifiers.
//
// Branches are opaque keys. The order of two branches is decided by the
// rank the registry assigned them, not by the key bytes, so replicas that
// need to converge must register branches in the same order. The registry
// itself is treated as externally agreed upon.
package branchorder

import (
	"cmp"
	"iter"

	"github.com/google/uuid"
)

// Branch is an opaque branch (site) identifier.
type Branch string

// NewRandom mints a random branch identifier for a fresh site.
func NewRandom() Branch {
	return Branch(uuid.NewString())
}

// Order assigns each branch a stable rank and compares branches by it.
// The zero value is not usable, call New.
type Order struct {
	ranks map[Branch]int
	seq   []Branch
}

// New creates an empty branch order.
func New() *Order {
	return &Order{ranks: make(map[Branch]int)}
}

// Register adds b to the order if it isn't there yet and returns its rank.
func (o *Order) Register(b Branch) int {
	if r, ok := o.ranks[b]; ok {
		return r
	}
	r := len(o.seq)
	o.ranks[b] = r
	o.seq = append(o.seq, b)
	return r
}

// Rank returns the rank of b.
func (o *Order) Rank(b Branch) (int, bool) {
	r, ok := o.ranks[b]
	return r, ok
}

// Len returns the number of registered branches.
func (o *Order) Len() int {
	return len(o.seq)
}

// Cmp compares two branches by rank. Unregistered branches are
// registered on first sight.
func (o *Order) Cmp(a, b Branch) int {
	if a == b {
		return 0
	}
	return cmp.Compare(o.Register(a), o.Register(b))
}

// Branches iterates over the registered branches in rank order.
func (o *Order) Branches() iter.Seq2[int, Branch] {
	return func(yield func(int, Branch) bool) {
		for i, b := range o.seq {
			if !yield(i, b) {
				return
			}
		}
	}
}
