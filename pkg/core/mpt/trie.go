package mpt

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mptindexer/mpt-indexer/pkg/crypto/hash"
	"github.com/mptindexer/mpt-indexer/pkg/util"
)

var (
	// ErrKeyExists is returned on an attempt to insert a key that already has
	// a value. The trie is not modified in this case.
	ErrKeyExists = errors.New("key exists")
	// ErrEncoding is returned when a value can't be encoded.
	ErrEncoding = errors.New("value encoding failure")
	// ErrDigest is returned when the digest function fails.
	ErrDigest = errors.New("digest failure")
)

// Config contains the pluggable parts of the Trie.
type Config[V any] struct {
	// Hasher is the node digest function, sha256 is used if not set.
	Hasher Hasher
	// Encoder is the value encoder. It can be omitted only for []byte values,
	// BytesEncoder is used then.
	Encoder Encoder[V]
}

// Trie is a Merkle radix trie storing key-value pairs.
type Trie[V any] struct {
	hasher  Hasher
	encoder Encoder[V]

	root  *node[V]
	count int
}

// NewTrie returns an empty trie. Its root digest is zero. It panics if no
// encoder is given for values other than []byte.
func NewTrie[V any](cfg Config[V]) *Trie[V] {
	if cfg.Hasher == nil {
		cfg.Hasher = hash.Sha256Func
	}
	if cfg.Encoder == nil {
		enc, ok := any(BytesEncoder{}).(Encoder[V])
		if !ok {
			panic("mpt: no value encoder")
		}
		cfg.Encoder = enc
	}
	return &Trie[V]{
		hasher:  cfg.Hasher,
		encoder: cfg.Encoder,
		root:    &node[V]{digestValid: true},
	}
}

// Get returns the value stored exactly under key.
func (t *Trie[V]) Get(key []byte) (V, bool) {
	if n := t.find(key); n != nil && n.hasValue {
		return n.value, true
	}
	var zero V
	return zero, false
}

// find returns the node which full key is key or nil.
func (t *Trie[V]) find(key []byte) *node[V] {
	n := t.root
	for {
		if !bytes.HasPrefix(key, n.segment) {
			return nil
		}
		key = key[len(n.segment):]
		if len(key) == 0 {
			return n
		}
		if n = n.child(key[0]); n == nil {
			return nil
		}
	}
}

// Insert puts a new key-value pair into the trie. It returns ErrKeyExists if
// the key already has a value, existing values are never overwritten.
// Encoder and Hasher failures are returned as ErrEncoding and ErrDigest.
func (t *Trie[V]) Insert(key []byte, value V) error {
	if n := t.find(key); n != nil && n.hasValue {
		return fmt.Errorf("%w: %x", ErrKeyExists, key)
	}
	vh, err := t.valueDigest(value)
	if err != nil {
		return err
	}
	if t.root.isEmpty() {
		t.root.segment = copySlice(key)
		t.root.setValue(value, vh)
		t.root.invalidateCache()
	} else {
		t.putIntoNode(t.root, key, value, vh)
	}
	t.count++
	return t.rehash()
}

// putIntoNode puts value under the path relative to n. The path is known
// to have no value yet.
func (t *Trie[V]) putIntoNode(n *node[V], path []byte, value V, vh util.Uint256) {
	l := lcp(n.segment, path)
	if l < len(n.segment) {
		n.split(l)
	}
	n.invalidateCache()

	rest := path[l:]
	if len(rest) == 0 {
		n.setValue(value, vh)
		return
	}
	if c := n.child(rest[0]); c != nil {
		t.putIntoNode(c, rest, value, vh)
		return
	}
	n.addChild(newLeaf(rest, value, vh))
}

// Remove deletes key from the trie and returns the removed value. Missing
// key is not an error, false is returned then and the trie is not changed.
func (t *Trie[V]) Remove(key []byte) (V, bool, error) {
	v, ok := t.deleteFromNode(t.root, key)
	if !ok {
		return v, false, nil
	}
	t.count--
	return v, true, t.rehash()
}

// deleteFromNode removes the value under the path relative to n and
// compresses every node on the way back up.
func (t *Trie[V]) deleteFromNode(n *node[V], path []byte) (V, bool) {
	var zero V
	if !bytes.HasPrefix(path, n.segment) {
		return zero, false
	}
	rest := path[len(n.segment):]
	if len(rest) == 0 {
		if !n.hasValue {
			return zero, false
		}
		v := n.clearValue()
		n.compress()
		return v, true
	}
	i, ok := n.childIndex(rest[0])
	if !ok {
		return zero, false
	}
	c := n.children[i]
	v, ok := t.deleteFromNode(c, rest)
	if !ok {
		return zero, false
	}
	if c.isEmpty() {
		n.removeChild(i)
	}
	n.compress()
	return v, true
}

// rehash recomputes all outdated digests. On failure they stay outdated and
// are retried on the next call.
func (t *Trie[V]) rehash() error {
	_, err := t.hashNode(t.root)
	return err
}

// IsEmpty returns true if the trie holds no keys.
func (t *Trie[V]) IsEmpty() bool {
	return t.root.isEmpty()
}

// Len returns the number of keys stored in the trie.
func (t *Trie[V]) Len() int {
	return t.count
}

// StateRoot returns the root digest of t. The digest of an empty trie is
// zero.
func (t *Trie[V]) StateRoot() (util.Uint256, error) {
	return t.hashNode(t.root)
}

// Equals checks whether t and other have the same root digest.
func (t *Trie[V]) Equals(other *Trie[V]) bool {
	r1, err := t.StateRoot()
	if err != nil {
		return false
	}
	r2, err := other.StateRoot()
	if err != nil {
		return false
	}
	return r1 == r2
}

// Walk calls f for every key-value pair in ascending key order until f
// returns false. The key passed to f must not be retained. The trie must
// not be modified from f.
func (t *Trie[V]) Walk(f func(key []byte, value V) bool) {
	walk(t.root, nil, f)
}

func walk[V any](n *node[V], prefix []byte, f func([]byte, V) bool) bool {
	prefix = append(prefix, n.segment...)
	if n.hasValue && !f(prefix, n.value) {
		return false
	}
	for _, c := range n.children {
		if !walk(c, prefix, f) {
			return false
		}
	}
	return true
}
