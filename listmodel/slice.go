package listmodel

import (
	"slices"

	"anchordoc/position"
)

// sliceIntoRanges partitions nodes, sorted by logical order, into
// len(bounds)+1 groups around the ascending boundary positions. A node
// whose run straddles a boundary is split in place: the left half stays
// where it was, the right half is attached to the index and regrouped
// under the later boundaries.
func (d *Document) sliceIntoRanges(bounds []position.Position, nodes []*AnchorNode) [][]*AnchorNode {
	out := make([][]*AnchorNode, len(bounds)+1)

	g := 0
	queue := slices.Clone(nodes)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		for g < len(bounds) && n.start.Cmp(bounds[g], d.bo) >= 0 {
			g++
		}
		if g < len(bounds) {
			if off := position.RunSplitOffset(d.bo, n.start, n.length, bounds[g]); off > 0 && off < n.length {
				right := d.splitNode(n, off)
				queue = append([]*AnchorNode{right}, queue...)
			}
		}
		out[g] = append(out[g], n)
	}
	return out
}
