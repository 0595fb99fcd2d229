package mpt

import (
	"sort"

	"github.com/mptindexer/mpt-indexer/pkg/util"
)

// node is a single trie node. The full key of a node is the concatenation
// of all ancestor segments and its own segment.
type node[V any] struct {
	segment   []byte
	value     V
	hasValue  bool
	valueHash util.Uint256
	// children are sorted by the first byte of their segments, no two
	// children share it.
	children []*node[V]

	digest      util.Uint256
	digestValid bool
}

// newLeaf returns a new childless node holding value under a copy of segment.
func newLeaf[V any](segment []byte, value V, valueHash util.Uint256) *node[V] {
	n := &node[V]{segment: copySlice(segment)}
	n.setValue(value, valueHash)
	return n
}

// isEmpty returns true if n has neither a value nor children.
func (n *node[V]) isEmpty() bool {
	return !n.hasValue && len(n.children) == 0
}

// childIndex returns the position of the child which segment starts with b
// and whether it exists. If it doesn't, the position is where such a child
// is to be inserted.
func (n *node[V]) childIndex(b byte) (int, bool) {
	i := sort.Search(len(n.children), func(i int) bool {
		return n.children[i].segment[0] >= b
	})
	return i, i < len(n.children) && n.children[i].segment[0] == b
}

// child returns the child which segment starts with b or nil.
func (n *node[V]) child(b byte) *node[V] {
	if i, ok := n.childIndex(b); ok {
		return n.children[i]
	}
	return nil
}

// addChild inserts c keeping children order. n must not already have a
// child starting with the same byte.
func (n *node[V]) addChild(c *node[V]) {
	i, _ := n.childIndex(c.segment[0])
	n.children = append(n.children, nil)
	copy(n.children[i+1:], n.children[i:])
	n.children[i] = c
}

// removeChild drops the i-th child.
func (n *node[V]) removeChild(i int) {
	copy(n.children[i:], n.children[i+1:])
	n.children[len(n.children)-1] = nil
	n.children = n.children[:len(n.children)-1]
}

func (n *node[V]) setValue(v V, h util.Uint256) {
	n.value = v
	n.valueHash = h
	n.hasValue = true
}

// clearValue removes the value from n and returns it.
func (n *node[V]) clearValue() V {
	var zero V
	v := n.value
	n.value = zero
	n.valueHash = util.Uint256{}
	n.hasValue = false
	return v
}

// split truncates the segment of n to its first l bytes. Everything n had
// (the rest of the segment, value and children) moves to a new node which
// becomes the only child of n.
func (n *node[V]) split(l int) {
	tail := &node[V]{
		segment:   copySlice(n.segment[l:]),
		value:     n.value,
		hasValue:  n.hasValue,
		valueHash: n.valueHash,
		children:  n.children,
	}
	n.segment = copySlice(n.segment[:l])
	n.clearValue()
	n.children = []*node[V]{tail}
	n.invalidateCache()
}

// compress restores the canonical form of n after a removal at n or below
// it. An empty node loses its segment, a node without value having exactly
// one child absorbs this child.
func (n *node[V]) compress() {
	switch {
	case n.isEmpty():
		n.segment = nil
	case !n.hasValue && len(n.children) == 1:
		c := n.children[0]
		seg := make([]byte, 0, len(n.segment)+len(c.segment))
		seg = append(seg, n.segment...)
		n.segment = append(seg, c.segment...)
		n.value = c.value
		n.hasValue = c.hasValue
		n.valueHash = c.valueHash
		n.children = c.children
	}
	n.invalidateCache()
}

// invalidateCache marks the digest of n as outdated.
func (n *node[V]) invalidateCache() {
	n.digestValid = false
}

// lcp returns the length of the longest common prefix of a and b.
func lcp(a, b []byte) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	var i int
	for i = 0; i < len(a); i++ {
		if a[i] != b[i] {
			break
		}
	}
	return i
}

func copySlice(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}
