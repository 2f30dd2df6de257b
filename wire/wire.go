// Package wire encodes positions and operation envelopes for transport.
//
// Positions serialize as arrays of [atom, branch_id] pairs, with atoms
// rendered as big-endian decimal digit strings (arbitrary precision) and
// branches mapped through a compact small-integer table that both sides
// of a connection maintain.
package wire

import (
	"cmp"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"anchordoc/branchorder"
	"anchordoc/position"
	"anchordoc/util/bigint"
	"anchordoc/util/btree"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

// BranchTable maps branches to compact wire identifiers, assigned in
// first-seen order. Encoding and decoding sides must agree on the
// assignment, which the Snapshot/Restore pair ships alongside payloads.
type BranchTable struct {
	ids  map[branchorder.Branch]uint32
	byID *btree.Map[uint32, branchorder.Branch]
}

// NewBranchTable creates an empty branch table.
func NewBranchTable() *BranchTable {
	return &BranchTable{
		ids:  make(map[branchorder.Branch]uint32),
		byID: btree.New[uint32, branchorder.Branch](8, cmp.Compare),
	}
}

// ID returns the wire identifier for b, assigning the next free one on
// first sight.
func (t *BranchTable) ID(b branchorder.Branch) uint32 {
	if id, ok := t.ids[b]; ok {
		return id
	}
	id := uint32(len(t.ids))
	t.ids[b] = id
	t.byID.Set(id, b)
	return id
}

// Branch resolves a wire identifier.
func (t *BranchTable) Branch(id uint32) (branchorder.Branch, bool) {
	return t.byID.GetOK(id)
}

// Snapshot returns all branches in identifier order.
func (t *BranchTable) Snapshot() []branchorder.Branch {
	out := make([]branchorder.Branch, 0, t.byID.Len())
	for _, b := range t.byID.Iter() {
		out = append(out, b)
	}
	return out
}

// Restore rebuilds a table from a snapshot.
func Restore(branches []branchorder.Branch) *BranchTable {
	t := NewBranchTable()
	for _, b := range branches {
		t.ID(b)
	}
	return t
}

// Level is one encoded position level.
type Level struct {
	_      struct{} `cbor:",toarray"`
	Atom   string
	Branch uint32
}

// Position is an encoded position; empty means a document edge.
type Position []Level

// EncodePosition encodes p through the branch table. A nil position
// (document edge) encodes as nil.
func EncodePosition(t *BranchTable, p position.Position) Position {
	if p == nil {
		return nil
	}
	out := make(Position, p.Len())
	for i := range p.Len() {
		lv := p.Level(i)
		out[i] = Level{Atom: lv.Atom.String(), Branch: t.ID(lv.Branch)}
	}
	return out
}

// DecodePosition resolves an encoded position against the branch table.
func DecodePosition(t *BranchTable, wp Position) (position.Position, error) {
	if wp == nil {
		return nil, nil
	}
	out := make(position.Position, len(wp))
	for i, lv := range wp {
		atom, ok := bigint.Parse(lv.Atom)
		if !ok {
			return nil, fmt.Errorf("bad atom digits %q at level %d", lv.Atom, i)
		}
		b, ok := t.Branch(lv.Branch)
		if !ok {
			return nil, fmt.Errorf("unknown branch id %d at level %d", lv.Branch, i)
		}
		out[i] = position.Level{Atom: atom, Branch: b}
	}
	return out, nil
}

// Insertion is the envelope for a logical insertion.
type Insertion struct {
	Branch uint32   `cbor:"1,keyasint"`
	Left   Position `cbor:"2,keyasint,omitempty"`
	Right  Position `cbor:"3,keyasint,omitempty"`
	Length int      `cbor:"4,keyasint"`
	Clock  string   `cbor:"5,keyasint"`
}

// Removal is the envelope for a logical removal.
type Removal struct {
	Start  Position `cbor:"1,keyasint"`
	Length int      `cbor:"2,keyasint"`
	Clock  string   `cbor:"3,keyasint"`
}

// Marshal encodes any envelope with the deterministic encoder.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes an envelope.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// NewInsertion builds an insertion envelope from merge inputs.
func NewInsertion(t *BranchTable, br branchorder.Branch, left, right position.Position, length int, clk bigint.Int) Insertion {
	return Insertion{
		Branch: t.ID(br),
		Left:   EncodePosition(t, left),
		Right:  EncodePosition(t, right),
		Length: length,
		Clock:  clk.String(),
	}
}

// Resolve turns the envelope back into merge inputs.
func (ins Insertion) Resolve(t *BranchTable) (br branchorder.Branch, left, right position.Position, length int, clk bigint.Int, err error) {
	br, ok := t.Branch(ins.Branch)
	if !ok {
		return "", nil, nil, 0, bigint.Int{}, fmt.Errorf("unknown branch id %d", ins.Branch)
	}
	if left, err = DecodePosition(t, ins.Left); err != nil {
		return "", nil, nil, 0, bigint.Int{}, err
	}
	if right, err = DecodePosition(t, ins.Right); err != nil {
		return "", nil, nil, 0, bigint.Int{}, err
	}
	clk, ok = bigint.Parse(ins.Clock)
	if !ok {
		return "", nil, nil, 0, bigint.Int{}, fmt.Errorf("bad clock digits %q", ins.Clock)
	}
	return br, left, right, ins.Length, clk, nil
}

// NewRemoval builds a removal envelope.
func NewRemoval(t *BranchTable, start position.Position, length int, clk bigint.Int) Removal {
	return Removal{
		Start:  EncodePosition(t, start),
		Length: length,
		Clock:  clk.String(),
	}
}

// Resolve turns the envelope back into merge inputs.
func (rm Removal) Resolve(t *BranchTable) (start position.Position, length int, clk bigint.Int, err error) {
	if start, err = DecodePosition(t, rm.Start); err != nil {
		return nil, 0, bigint.Int{}, err
	}
	clk, ok := bigint.Parse(rm.Clock)
	if !ok {
		return nil, 0, bigint.Int{}, fmt.Errorf("bad clock digits %q", rm.Clock)
	}
	return start, rm.Length, clk, nil
}
