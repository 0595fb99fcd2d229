package mpt

import (
	"fmt"

	"github.com/mptindexer/mpt-indexer/pkg/util"
)

// Hasher is a digest function used to compute node digests. It must be
// deterministic and collision-resistant.
type Hasher interface {
	Hash(data []byte) (util.Uint256, error)
}

// Encoder converts values to their canonical byte representation before
// hashing. Equal values must always be encoded identically.
type Encoder[V any] interface {
	Encode(V) ([]byte, error)
}

// EncoderFunc is an adapter allowing to use ordinary functions as Encoder.
type EncoderFunc[V any] func(V) ([]byte, error)

// Encode implements Encoder interface.
func (f EncoderFunc[V]) Encode(v V) ([]byte, error) {
	return f(v)
}

// BytesEncoder is an identity Encoder for byte slice values.
type BytesEncoder struct{}

// Encode implements Encoder interface.
func (BytesEncoder) Encode(v []byte) ([]byte, error) {
	return v, nil
}

// Value presence flags, the first byte of every non-empty node digest
// preimage.
const (
	noValueFlag byte = 0x00
	valueFlag   byte = 0x01
)

// valueDigest encodes v and hashes the result.
func (t *Trie[V]) valueDigest(v V) (util.Uint256, error) {
	data, err := t.encoder.Encode(v)
	if err != nil {
		return util.Uint256{}, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	h, err := t.hasher.Hash(data)
	if err != nil {
		return util.Uint256{}, fmt.Errorf("%w: %w", ErrDigest, err)
	}
	return h, nil
}

// hashNode returns the digest of n updating all outdated digests in its
// subtree. Nodes with valid digests are not traversed.
func (t *Trie[V]) hashNode(n *node[V]) (util.Uint256, error) {
	if n.digestValid {
		return n.digest, nil
	}
	d, err := t.nodeDigest(n, t.hashNode)
	if err != nil {
		return util.Uint256{}, err
	}
	n.digest = d
	n.digestValid = true
	return d, nil
}

// nodeDigest computes the digest of n taking the digests of its children
// from childDigest. An empty node has zero digest, for any other node it's
//
//	H(flag || H(segment) || [valueHash] || digest(child_0) || ... || digest(child_n))
//
// where flag tells whether the value is present.
func (t *Trie[V]) nodeDigest(n *node[V], childDigest func(*node[V]) (util.Uint256, error)) (util.Uint256, error) {
	if n.isEmpty() {
		return util.Uint256{}, nil
	}
	buf := make([]byte, 0, 1+util.Uint256Size*(2+len(n.children)))
	segHash, err := t.hasher.Hash(n.segment)
	if err != nil {
		return util.Uint256{}, fmt.Errorf("%w: %w", ErrDigest, err)
	}
	if n.hasValue {
		buf = append(buf, valueFlag)
		buf = append(buf, segHash[:]...)
		buf = append(buf, n.valueHash[:]...)
	} else {
		buf = append(buf, noValueFlag)
		buf = append(buf, segHash[:]...)
	}
	for _, c := range n.children {
		h, err := childDigest(c)
		if err != nil {
			return util.Uint256{}, err
		}
		buf = append(buf, h[:]...)
	}
	d, err := t.hasher.Hash(buf)
	if err != nil {
		return util.Uint256{}, fmt.Errorf("%w: %w", ErrDigest, err)
	}
	return d, nil
}
