package listmodel

import (
	"fmt"

	"go.uber.org/multierr"
)

// SelfTest verifies every model invariant and returns all violations at
// once, wrapped in ErrCorrupt. It walks every node pair, so it is meant
// for tests and debugging, not for production hot paths.
func (d *Document) SelfTest() error {
	var err error

	if terr := d.tree.SelfTest(); terr != nil {
		err = multierr.Append(err, fmt.Errorf("ordered index: %w", terr))
	}

	var all []*AnchorNode
	for n := range d.Nodes() {
		all = append(all, n)
	}

	offset := 0
	for i, n := range all {
		if n.length < 1 {
			err = multierr.Append(err, fmt.Errorf("node %s has no atoms", n.start))
		}
		if n.typ == DummyNode {
			err = multierr.Append(err, fmt.Errorf("dummy node %s leaked into the index", n.start))
		}

		if got := n.LdocStart(); got != offset {
			err = multierr.Append(err, fmt.Errorf("node %s local offset is %d, want %d", n.start, got, offset))
		}
		offset += n.LdocLength()

		if n.left != nil && n.left.Cmp(n.start, d.bo) > 0 {
			err = multierr.Append(err, fmt.Errorf("node %s left anchor %s is past its start", n.start, n.left))
		}
		if n.right != nil && n.right.Cmp(n.End(), d.bo) < 0 {
			err = multierr.Append(err, fmt.Errorf("node %s right anchor %s is before its end", n.start, n.right))
		}

		if i == 0 {
			continue
		}
		p := all[i-1]
		if p.start.Cmp(n.start, d.bo) >= 0 {
			err = multierr.Append(err, fmt.Errorf("nodes %s and %s are out of order", p.start, n.start))
		}
		// Overlap is legal across levels (nesting) and across branches
		// (concurrent siblings); two runs on the same level and branch
		// crossing each other means the index is broken.
		if p.End().Cmp(n.start, d.bo) > 0 &&
			p.start.Len() == n.start.Len() &&
			p.start.Lowest().Branch == n.start.Lowest().Branch {
			err = multierr.Append(err, fmt.Errorf("nodes %s and %s overlap", p.start, n.start))
		}
	}
	if offset != d.Length() {
		err = multierr.Append(err, fmt.Errorf("local lengths sum to %d, index says %d", offset, d.Length()))
	}

	// Conflict sets must match the anchor rule exactly, in both
	// directions, for every ordered pair.
	for i, p := range all {
		for _, n := range all[i+1:] {
			if want, have := d.conflictHolds(p, n), n.conflict.Has(p); want != have {
				err = multierr.Append(err, fmt.Errorf(
					"conflict record %s in %s: have %v, want %v", p.start, n.start, have, want))
			}
			if want, have := d.conflictHolds(n, p), p.conflict.Has(n); want != have {
				err = multierr.Append(err, fmt.Errorf(
					"conflict record %s in %s: have %v, want %v", n.start, p.start, have, want))
			}
		}
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return nil
}
