package storage

import (
	"errors"
	"fmt"

	"github.com/mptindexer/mpt-indexer/pkg/core/storage/dbconfig"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// KeyPrefix constants.
const (
	// DataMPT is used for trie entries, the rest of the key is the entry
	// key.
	DataMPT KeyPrefix = 0x03
	// SYSStateRoot holds the root digest of the persisted trie.
	SYSStateRoot KeyPrefix = 0xc0
	SYSVersion   KeyPrefix = 0xf0
)

// ErrKeyNotFound is an error returned by Store implementations
// when a certain key is not found.
var ErrKeyNotFound = errors.New("key not found")

// SeekRange represents options for Store.Seek operation.
type SeekRange struct {
	// Prefix denotes the Seek's lookup key.
	// Empty Prefix means seeking through all keys in the DB.
	Prefix []byte
	// Start denotes value appended to the Prefix to start Seek from.
	// Seeking starting from some key includes this key to the result;
	// if no matching key was found then next suitable key is picked up.
	// Start may be empty.
	Start []byte
	// Backwards denotes whether Seek direction should be reversed, i.e.
	// whether seeking should be performed in a descending way. For
	// backwards seeking, Start is the last key (with Prefix) to return,
	// keys having Prefix+Start as their prefix are included.
	Backwards bool
}

// KeyValue represents a key-value pair.
type KeyValue struct {
	Key   []byte
	Value []byte
}

type (
	// Store is the underlying KV backend for the persisted trie. All
	// methods are synchronous.
	Store interface {
		Get([]byte) ([]byte, error)
		Put(k, v []byte) error
		// Delete removes the key, missing keys are not an error.
		Delete(k []byte) error
		// PutChangeSet applies all the changes atomically, a nil value
		// means deletion.
		PutChangeSet(changes map[string][]byte) error
		// Seek calls f for every key-value pair in the range until f returns
		// false. Key and value are only valid until the next call to f and
		// must not be modified. Items are sorted by key in ascending way
		// (descending for backwards seek).
		Seek(rng SeekRange, f func(k, v []byte) bool) error
		Close() error
	}

	// KeyPrefix is a constant byte added as a prefix for each key
	// stored.
	KeyPrefix uint8
)

// Bytes returns the bytes representation of KeyPrefix.
func (k KeyPrefix) Bytes() []byte {
	return []byte{byte(k)}
}

// seekRangeToPrefixes converts SeekRange to a key interval with inclusive
// Start and exclusive Limit, nil Limit means there is no upper bound.
func seekRangeToPrefixes(sr SeekRange) *util.Range {
	var (
		rang  *util.Range
		start = make([]byte, len(sr.Prefix)+len(sr.Start))
	)
	copy(start, sr.Prefix)
	copy(start[len(sr.Prefix):], sr.Start)

	if !sr.Backwards {
		rang = util.BytesPrefix(sr.Prefix)
		rang.Start = start
	} else {
		rang = util.BytesPrefix(start)
		rang.Start = sr.Prefix
	}
	return rang
}

// NewStore creates storage with preselected in configuration database type.
func NewStore(cfg dbconfig.DBConfiguration) (Store, error) {
	var store Store
	var err error
	switch cfg.Type {
	case dbconfig.LevelDB:
		store, err = NewLevelDBStore(cfg.LevelDBOptions)
	case dbconfig.InMemoryDB:
		store = NewMemoryStore()
	case dbconfig.BoltDB:
		store, err = NewBoltDBStore(cfg.BoltDBOptions)
	case dbconfig.BadgerDB:
		store, err = NewBadgerDBStore(cfg.BadgerDBOptions)
	case dbconfig.PebbleDB:
		store, err = NewPebbleStore(cfg.PebbleOptions)
	default:
		return nil, fmt.Errorf("unknown storage: %s", cfg.Type)
	}
	return store, err
}
