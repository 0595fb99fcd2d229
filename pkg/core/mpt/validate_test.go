package mpt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrie_Validate(t *testing.T) {
	// root "ca" -> {"r" -> {"t"}, "t"}
	newCarTrie := func(t *testing.T) *Trie[[]byte] {
		tr := newTestTrie(t)
		for _, k := range []string{"cat", "car", "cart"} {
			require.NoError(t, tr.Insert([]byte(k), []byte(k)))
		}
		require.NoError(t, tr.Validate())
		return tr
	}
	check := func(t *testing.T, tr *Trie[[]byte]) {
		require.ErrorIs(t, tr.Validate(), ErrInvalidTrie)
	}

	t.Run("digest mismatch", func(t *testing.T) {
		tr := newCarTrie(t)
		tr.root.children[1].digest[0] ^= 0xff
		check(t, tr)
	})
	t.Run("outdated digest", func(t *testing.T) {
		tr := newCarTrie(t)
		tr.root.children[0].invalidateCache()
		check(t, tr)
	})
	t.Run("value digest mismatch", func(t *testing.T) {
		tr := newCarTrie(t)
		tr.root.children[1].value = []byte("dog")
		check(t, tr)
	})
	t.Run("unordered children", func(t *testing.T) {
		tr := newCarTrie(t)
		c := tr.root.children
		c[0], c[1] = c[1], c[0]
		check(t, tr)
	})
	t.Run("duplicate first byte", func(t *testing.T) {
		tr := newCarTrie(t)
		tr.root.children[1].segment = []byte("rx")
		check(t, tr)
	})
	t.Run("empty segment", func(t *testing.T) {
		tr := newCarTrie(t)
		tr.root.children[0].children[0].segment = nil
		check(t, tr)
	})
	t.Run("uncompressed node", func(t *testing.T) {
		tr := newCarTrie(t)
		r := tr.root.children[0]
		r.clearValue()
		check(t, tr)
	})
	t.Run("uncompressed root", func(t *testing.T) {
		tr := newTestTrie(t)
		require.NoError(t, tr.Insert([]byte("ab"), []byte{1}))
		tr.root.split(1)
		require.NoError(t, tr.rehash())
		check(t, tr)
	})
	t.Run("empty node", func(t *testing.T) {
		tr := newCarTrie(t)
		tr.root.children[1].clearValue()
		check(t, tr)
	})
	t.Run("empty root with segment", func(t *testing.T) {
		tr := newTestTrie(t)
		tr.root.segment = []byte{1}
		check(t, tr)
	})
	t.Run("wrong count", func(t *testing.T) {
		tr := newCarTrie(t)
		tr.count++
		check(t, tr)
	})
}
