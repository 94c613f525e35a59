package trie

import "fmt"

// node is an ephemeral accessor over one level-order entry of a frozen
// trie: a back-reference to the trie plus the entry index. All fields are
// computed on demand from the bit streams; nodes are plain values and
// never outlive their trie.
type node struct {
	t   *FrozenTrie
	idx uint64
}

// nodeAt returns the accessor for level-order index i.
func (t *FrozenTrie) nodeAt(i uint64) node { return node{t: t, idx: i} }

// off returns the bit offset of this node's packed entry in the letter
// stream.
func (n node) off() uint64 {
	return n.t.letterStart + n.idx*uint64(n.t.bitslen)
}

// letter returns the W-bit letter field.
func (n node) letter() byte {
	return byte(n.t.data.Get(n.off()+2, n.t.w))
}

// final reports whether the path ending at this node is a complete key.
func (n node) final() bool {
	return n.t.data.Get(n.off()+1, 1) == 1
}

// compressed reports whether the compressed header bit is set.
func (n node) compressed() bool {
	return n.t.data.Get(n.off(), 1) == 1
}

// flag reports whether this node carries one code unit of its parent's
// tag bitmap (the compressed+final header pattern).
func (n node) flag() bool {
	return n.t.data.Get(n.off(), 2) == hdrFlag
}

// chainLink reports whether this node is a compressed non-flag entry, the
// only kind that extends a radix run.
func (n node) chainLink() bool {
	return n.t.data.Get(n.off(), 2) == hdrCompressed
}

// children locates this node's child span from the child-count stream:
// the bit position of the (i+1)-th zero gives the first child's index,
// the next zero bounds the count.
func (n node) children() (firstChild, count uint64, err error) {
	s1, err := n.t.dir.Select0(n.idx + 1)
	if err != nil {
		return 0, 0, fmt.Errorf("trie: node %d: %w", n.idx, err)
	}
	s2, err := n.t.dir.Select0(n.idx + 2)
	if err != nil {
		return 0, 0, fmt.Errorf("trie: node %d: %w", n.idx, err)
	}
	firstChild = s1 - n.idx
	count = s2 - n.idx - 1 - firstChild
	return firstChild, count, nil
}

// lastFlagChild returns the child-local index of the last flag child, or
// -1 when the node has none. Flag children always form a prefix of the
// child span, so the scan stops at the first letter child.
func (n node) lastFlagChild(firstChild, count uint64) int {
	last := -1
	for j := uint64(0); j < count; j++ {
		if !n.t.nodeAt(firstChild + j).flag() {
			break
		}
		last = int(j)
	}
	return last
}
