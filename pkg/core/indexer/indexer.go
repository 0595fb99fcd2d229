/*
Package indexer keeps a Merkle radix trie in sync with a persistent Store.
Every successful mutation writes the entry and the new root digest in a
single change set, so the store always describes a consistent trie.
*/
package indexer

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mptindexer/mpt-indexer/pkg/core/mpt"
	"github.com/mptindexer/mpt-indexer/pkg/core/storage"
	"github.com/mptindexer/mpt-indexer/pkg/crypto/hash"
	"github.com/mptindexer/mpt-indexer/pkg/util"
	"go.uber.org/zap"
)

// Version is the persisted data format version.
const Version = "0.1.0"

var (
	// ErrRootMismatch is returned by Load when the trie rebuilt from the
	// stored entries doesn't match the stored root.
	ErrRootMismatch = errors.New("stored state root mismatch")
	// ErrVersionMismatch is returned by Load when the DB was created by an
	// incompatible version or with another hash function.
	ErrVersionMismatch = errors.New("DB version mismatch")
)

// Config is the indexer configuration.
type Config struct {
	// Hasher is the name of the digest function, see hash.ByName.
	Hasher string
}

// Indexer is a persistent key-value index with a verifiable root digest.
// It's safe for concurrent use.
type Indexer struct {
	store   storage.Store
	hasher  hash.Func
	version string
	log     *zap.Logger

	lock sync.RWMutex
	trie *mpt.Trie[[]byte]
}

// New creates an Indexer with an empty trie on top of the given store. Load
// must be called to pick up the stored data.
func New(st storage.Store, cfg Config, log *zap.Logger) (*Indexer, error) {
	h, err := hash.ByName(cfg.Hasher)
	if err != nil {
		return nil, err
	}
	name := strings.ToLower(cfg.Hasher)
	if name == "" {
		name = hash.NameSha256
	}
	if log == nil {
		log = zap.NewNop()
	}
	ix := &Indexer{
		store:   st,
		hasher:  h,
		version: Version + "/" + name,
		log:     log,
	}
	ix.trie = ix.newTrie()
	return ix, nil
}

func (ix *Indexer) newTrie() *mpt.Trie[[]byte] {
	return mpt.NewTrie(mpt.Config[[]byte]{Hasher: ix.hasher})
}

// Load rebuilds the trie from the store and checks it against the stored
// root. A new DB is marked with the current version.
func (ix *Indexer) Load() error {
	ix.lock.Lock()
	defer ix.lock.Unlock()

	ver, err := ix.store.Get(storage.SYSVersion.Bytes())
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
		if err := ix.store.Put(storage.SYSVersion.Bytes(), []byte(ix.version)); err != nil {
			return fmt.Errorf("failed to store version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to get DB version: %w", err)
	case string(ver) != ix.version:
		return fmt.Errorf("%w: %s expected, %s found", ErrVersionMismatch, ix.version, ver)
	}

	var (
		tr     = ix.newTrie()
		insErr error
	)
	err = ix.store.Seek(storage.SeekRange{Prefix: storage.DataMPT.Bytes()}, func(k, v []byte) bool {
		insErr = tr.Insert(bytes.Clone(k[1:]), bytes.Clone(v))
		return insErr == nil
	})
	if err == nil {
		err = insErr
	}
	if err != nil {
		return fmt.Errorf("failed to load trie: %w", err)
	}
	root, err := tr.StateRoot()
	if err != nil {
		return err
	}

	sr, err := getStateRoot(ix.store)
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
		if !tr.IsEmpty() {
			return fmt.Errorf("%w: no root for %d entries", ErrRootMismatch, tr.Len())
		}
	case err != nil:
		return fmt.Errorf("failed to get state root: %w", err)
	case sr.Root != root || sr.Count != uint64(tr.Len()):
		return fmt.Errorf("%w: stored %s (%d keys), computed %s (%d keys)",
			ErrRootMismatch, sr.Root.StringBE(), sr.Count, root.StringBE(), tr.Len())
	}
	ix.trie = tr
	updateKeysMetric(tr.Len())
	ix.log.Info("trie loaded",
		zap.Int("keys", tr.Len()),
		zap.Stringer("root", root))
	return nil
}

// Get returns the value stored under key.
func (ix *Indexer) Get(key []byte) ([]byte, bool) {
	ix.lock.RLock()
	defer ix.lock.RUnlock()
	v, ok := ix.trie.Get(key)
	if ok {
		addOperationMetric("get")
	}
	return bytes.Clone(v), ok
}

// Put adds a new key-value pair. Existing keys are not overwritten,
// mpt.ErrKeyExists is returned for them. Nothing is changed on error.
func (ix *Indexer) Put(key, value []byte) error {
	ix.lock.Lock()
	defer ix.lock.Unlock()

	value = bytes.Clone(value)
	if value == nil {
		// nil means deletion for the store.
		value = []byte{}
	}
	err := ix.trie.Insert(key, value)
	if err != nil {
		if !errors.Is(err, mpt.ErrKeyExists) {
			ix.undoInsert(key)
		}
		return err
	}
	root, err := ix.persist(key, value)
	if err != nil {
		ix.undoInsert(key)
		return fmt.Errorf("failed to persist %x: %w", key, err)
	}
	addOperationMetric("put")
	ix.log.Debug("key added",
		zap.String("key", hex.EncodeToString(key)),
		zap.Stringer("root", root))
	return nil
}

// Delete removes key and returns true if it was present. Nothing is changed
// on error.
func (ix *Indexer) Delete(key []byte) (bool, error) {
	ix.lock.Lock()
	defer ix.lock.Unlock()

	v, ok, err := ix.trie.Remove(key)
	if !ok {
		return false, nil
	}
	if err == nil {
		var root util.Uint256
		root, err = ix.persist(key, nil)
		if err == nil {
			addOperationMetric("delete")
			ix.log.Debug("key removed",
				zap.String("key", hex.EncodeToString(key)),
				zap.Stringer("root", root))
			return true, nil
		}
		err = fmt.Errorf("failed to persist removal of %x: %w", key, err)
	}
	if rerr := ix.trie.Insert(key, v); rerr != nil {
		ix.log.Error("failed to restore removed key",
			zap.String("key", hex.EncodeToString(key)),
			zap.Error(rerr))
	}
	return false, err
}

// undoInsert removes key inserted by a failed Put.
func (ix *Indexer) undoInsert(key []byte) {
	if _, ok := ix.trie.Get(key); !ok {
		return
	}
	if _, _, err := ix.trie.Remove(key); err != nil {
		ix.log.Error("failed to roll back insertion",
			zap.String("key", hex.EncodeToString(key)),
			zap.Error(err))
	}
}

// persist writes the entry (nil value removes it) along with the new state
// root.
func (ix *Indexer) persist(key, value []byte) (util.Uint256, error) {
	root, err := ix.trie.StateRoot()
	if err != nil {
		return root, err
	}
	sr := &StateRoot{Root: root, Count: uint64(ix.trie.Len())}
	err = ix.store.PutChangeSet(map[string][]byte{
		string(makeEntryKey(key)):            value,
		string(storage.SYSStateRoot.Bytes()): sr.bytes(),
	})
	if err != nil {
		return root, err
	}
	addRootUpdateMetric()
	updateKeysMetric(ix.trie.Len())
	return root, nil
}

// StateRoot returns the current root digest. Outdated digests are
// recomputed, hence the write lock.
func (ix *Indexer) StateRoot() (util.Uint256, error) {
	ix.lock.Lock()
	defer ix.lock.Unlock()
	return ix.trie.StateRoot()
}

// Len returns the number of stored keys.
func (ix *Indexer) Len() int {
	ix.lock.RLock()
	defer ix.lock.RUnlock()
	return ix.trie.Len()
}

// Walk iterates over all key-value pairs in ascending key order until f
// returns false. Values are copies, keys are only valid until f returns.
// f must not call Put or Delete.
func (ix *Indexer) Walk(f func(key, value []byte) bool) {
	ix.lock.RLock()
	defer ix.lock.RUnlock()
	ix.trie.Walk(func(k, v []byte) bool {
		return f(k, bytes.Clone(v))
	})
}
