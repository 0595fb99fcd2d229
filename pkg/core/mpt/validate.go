package mpt

import (
	"errors"
	"fmt"

	"github.com/mptindexer/mpt-indexer/pkg/util"
)

// ErrInvalidTrie is returned by Validate for every broken invariant.
var ErrInvalidTrie = errors.New("invalid trie")

// Validate traverses the whole trie and checks its structural invariants:
// children are ordered and unique by the first segment byte, non-root nodes
// have non-empty segments and are never empty, no node has no value and a
// single child, an empty root has an empty segment, the number of values
// matches Len and every cached digest equals the recomputed one.
func (t *Trie[V]) Validate() error {
	if t.root.isEmpty() && len(t.root.segment) != 0 {
		return fmt.Errorf("%w: empty root with segment %x", ErrInvalidTrie, t.root.segment)
	}
	var count int
	if err := t.validateNode(t.root, nil, true, &count); err != nil {
		return err
	}
	if count != t.count {
		return fmt.Errorf("%w: %d values found, %d expected", ErrInvalidTrie, count, t.count)
	}
	return nil
}

func (t *Trie[V]) validateNode(n *node[V], prefix []byte, isRoot bool, count *int) error {
	prefix = append(prefix, n.segment...)
	if !isRoot {
		if len(n.segment) == 0 {
			return fmt.Errorf("%w: empty segment at %x", ErrInvalidTrie, prefix)
		}
		if n.isEmpty() {
			return fmt.Errorf("%w: empty node at %x", ErrInvalidTrie, prefix)
		}
	}
	if !n.hasValue && len(n.children) == 1 {
		return fmt.Errorf("%w: uncompressed node at %x", ErrInvalidTrie, prefix)
	}
	for i, c := range n.children {
		if len(c.segment) == 0 {
			return fmt.Errorf("%w: empty segment below %x", ErrInvalidTrie, prefix)
		}
		if i > 0 && c.segment[0] <= n.children[i-1].segment[0] {
			return fmt.Errorf("%w: unordered children at %x", ErrInvalidTrie, prefix)
		}
		if err := t.validateNode(c, prefix, false, count); err != nil {
			return err
		}
	}
	if n.hasValue {
		*count++
		vh, err := t.valueDigest(n.value)
		if err != nil {
			return err
		}
		if vh != n.valueHash {
			return fmt.Errorf("%w: value digest mismatch at %x", ErrInvalidTrie, prefix)
		}
	}
	if !n.digestValid {
		return fmt.Errorf("%w: outdated digest at %x", ErrInvalidTrie, prefix)
	}
	// Children digests are already checked at this point.
	d, err := t.nodeDigest(n, func(c *node[V]) (util.Uint256, error) { return c.digest, nil })
	if err != nil {
		return err
	}
	if d != n.digest {
		return fmt.Errorf("%w: digest mismatch at %x", ErrInvalidTrie, prefix)
	}
	return nil
}
