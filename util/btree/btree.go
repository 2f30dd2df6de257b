// Package btree provides a B-Tree map wrapper for an existing library, exposing a simpler and more convenient API.
package btree

import (
	"iter"

	"github.com/tidwall/btree"
)

// Map is a B-Tree map data structure.
type Map[K, V any] struct {
	hint btree.PathHint
	tr   *btree.BTreeG[entry[K, V]]
	cmp  func(K, K) int
}

type entry[K, V any] struct {
	K K
	V V
}

// New creates a new B-Tree map.
func New[K, V any](degree int, cmp func(K, K) int) *Map[K, V] {
	tr := btree.NewBTreeGOptions(
		func(a, b entry[K, V]) bool {
			return cmp(a.K, b.K) < 0
		},
		btree.Options{
			NoLocks: true,
			Degree:  degree,
		},
	)

	return &Map[K, V]{
		tr:  tr,
		cmp: cmp,
	}
}

// Set key k to value v, reporting whether a previous value was replaced.
func (b *Map[K, V]) Set(k K, v V) (replaced bool) {
	_, replaced = b.tr.SetHint(entry[K, V]{K: k, V: v}, &b.hint)
	return replaced
}

// GetOK returns the value at key k.
func (b *Map[K, V]) GetOK(k K) (v V, ok bool) {
	b.tr.AscendHint(entry[K, V]{K: k}, func(e entry[K, V]) bool {
		if b.cmp(e.K, k) == 0 {
			v = e.V
			ok = true
		}
		return false
	}, &b.hint)

	return v, ok
}

// Len returns the number of entries.
func (b *Map[K, V]) Len() int {
	return b.tr.Len()
}

// Iter iterates over the entries in ascending key order.
func (b *Map[K, V]) Iter() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		b.tr.Scan(func(e entry[K, V]) bool {
			return yield(e.K, e.V)
		})
	}
}

// Seek iterates in ascending key order starting from the first key
// greater than or equal to k.
func (b *Map[K, V]) Seek(k K) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		b.tr.Ascend(entry[K, V]{K: k}, func(e entry[K, V]) bool {
			return yield(e.K, e.V)
		})
	}
}
