/*
Package hash contains the digest functions the trie can be configured with.
Every function here produces a 32-byte util.Uint256.
*/
package hash

import (
	"crypto/sha256"
	"fmt"
	"hash"
	"strings"

	"github.com/mptindexer/mpt-indexer/pkg/util"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Names of the supported digest functions as used in configuration.
const (
	NameSha256       = "sha256"
	NameDoubleSha256 = "doublesha256"
	NameKeccak256    = "keccak256"
	NameBlake2b256   = "blake2b256"
)

// Func is a digest function. It implements mpt.Hasher.
type Func func(data []byte) (util.Uint256, error)

// Hash implements mpt.Hasher interface.
func (f Func) Hash(data []byte) (util.Uint256, error) {
	return f(data)
}

// Digest functions that can't fail.
var (
	Sha256Func       = Func(func(b []byte) (util.Uint256, error) { return Sha256(b), nil })
	DoubleSha256Func = Func(func(b []byte) (util.Uint256, error) { return DoubleSha256(b), nil })
	Keccak256Func    = Func(func(b []byte) (util.Uint256, error) { return Keccak256(b), nil })
	Blake2b256Func   = Func(func(b []byte) (util.Uint256, error) { return Blake2b256(b), nil })
)

// Sha256 hashes the incoming byte slice using the sha256 algorithm.
func Sha256(data []byte) util.Uint256 {
	return sha256.Sum256(data)
}

// DoubleSha256 performs sha256 twice on the given data.
func DoubleSha256(data []byte) util.Uint256 {
	h1 := Sha256(data)
	return Sha256(h1[:])
}

// Keccak256 hashes the incoming byte slice using the legacy (pre-standard)
// Keccak-256 algorithm.
func Keccak256(data []byte) util.Uint256 {
	var res util.Uint256
	d := sha3.NewLegacyKeccak256()
	_, _ = d.Write(data)
	d.Sum(res[:0])
	return res
}

// Blake2b256 hashes the incoming byte slice using the unkeyed 256-bit
// BLAKE2b algorithm.
func Blake2b256(data []byte) util.Uint256 {
	return blake2b.Sum256(data)
}

// FromHash makes a digest function out of any hash.Hash constructor. The
// hash must produce exactly util.Uint256Size bytes.
func FromHash(newHash func() hash.Hash) (Func, error) {
	if size := newHash().Size(); size != util.Uint256Size {
		return nil, fmt.Errorf("unsupported digest size %d, expected %d", size, util.Uint256Size)
	}
	return func(data []byte) (util.Uint256, error) {
		var res util.Uint256
		h := newHash()
		if _, err := h.Write(data); err != nil {
			return res, fmt.Errorf("failed to hash data: %w", err)
		}
		h.Sum(res[:0])
		return res, nil
	}, nil
}

// ByName returns the digest function with the given (case-insensitive)
// name. An empty name means sha256.
func ByName(name string) (Func, error) {
	switch strings.ToLower(name) {
	case "", NameSha256:
		return Sha256Func, nil
	case NameDoubleSha256:
		return DoubleSha256Func, nil
	case NameKeccak256:
		return Keccak256Func, nil
	case NameBlake2b256:
		return Blake2b256Func, nil
	default:
		return nil, fmt.Errorf("unknown hash function: %s", name)
	}
}
