// Package bigint provides an immutable arbitrary-precision signed integer
// with an inline fast path for values that fit in a machine word.
// Position atoms and node clocks are almost always tiny, so the inline
// representation avoids a heap allocation per atom.
package bigint

import (
	"math/big"
)

// Int is an immutable arbitrary-precision signed integer.
// The zero value is 0 and ready to use.
type Int struct {
	small int64
	// wide is set only when the value doesn't fit in small.
	// It is never mutated after creation.
	wide *big.Int
}

// New creates an Int from a machine integer.
func New(v int64) Int {
	return Int{small: v}
}

// FromBig creates an Int from a big.Int, copying the value.
func FromBig(b *big.Int) Int {
	if b.IsInt64() {
		return Int{small: b.Int64()}
	}
	return Int{wide: new(big.Int).Set(b)}
}

func norm(b *big.Int) Int {
	if b.IsInt64() {
		return Int{small: b.Int64()}
	}
	return Int{wide: b}
}

// Big returns the value as a fresh big.Int.
func (x Int) Big() *big.Int {
	if x.wide != nil {
		return new(big.Int).Set(x.wide)
	}
	return big.NewInt(x.small)
}

// Int64 returns the value as an int64 when it fits.
func (x Int) Int64() (int64, bool) {
	if x.wide != nil {
		return 0, false
	}
	return x.small, true
}

// Add returns x + y.
func (x Int) Add(y Int) Int {
	if x.wide == nil && y.wide == nil {
		sum := x.small + y.small
		if (x.small^sum)&(y.small^sum) >= 0 {
			return Int{small: sum}
		}
	}
	return norm(new(big.Int).Add(x.Big(), y.Big()))
}

// Sub returns x - y.
func (x Int) Sub(y Int) Int {
	if x.wide == nil && y.wide == nil {
		diff := x.small - y.small
		if (x.small^y.small)&(x.small^diff) >= 0 {
			return Int{small: diff}
		}
	}
	return norm(new(big.Int).Sub(x.Big(), y.Big()))
}

// AddInt64 returns x + k.
func (x Int) AddInt64(k int64) Int {
	return x.Add(Int{small: k})
}

// Cmp compares x and y, returning -1, 0, or +1.
func (x Int) Cmp(y Int) int {
	if x.wide == nil && y.wide == nil {
		switch {
		case x.small < y.small:
			return -1
		case x.small > y.small:
			return +1
		default:
			return 0
		}
	}
	return x.Big().Cmp(y.Big())
}

// Equal reports whether x and y hold the same value.
func (x Int) Equal(y Int) bool {
	return x.Cmp(y) == 0
}

// Sign returns -1, 0, or +1 depending on the sign of x.
func (x Int) Sign() int {
	if x.wide != nil {
		return x.wide.Sign()
	}
	switch {
	case x.small < 0:
		return -1
	case x.small > 0:
		return +1
	default:
		return 0
	}
}

// String returns the decimal representation of x.
func (x Int) String() string {
	if x.wide != nil {
		return x.wide.String()
	}
	return big.NewInt(x.small).String()
}

// Parse decodes a decimal string produced by String.
func Parse(s string) (Int, bool) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Int{}, false
	}
	return norm(b), true
}
