package storage

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	"github.com/mptindexer/mpt-indexer/pkg/core/storage/dbconfig"
)

// BadgerDBStore is the official storage implementation for storing and
// retrieving trie data in a badger database.
type BadgerDBStore struct {
	db *badger.DB
}

// NewBadgerDBStore returns a new BadgerDBStore object that will
// initialize the database found at the given path.
func NewBadgerDBStore(cfg dbconfig.BadgerDBOptions) (*BadgerDBStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger database: %w", err)
	}

	return &BadgerDBStore{db: db}, nil
}

// Get implements the Store interface.
func (b *BadgerDBStore) Get(key []byte) (value []byte, err error) {
	err = b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	return value, err
}

// Put implements the Store interface.
func (b *BadgerDBStore) Put(key, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Delete implements the Store interface.
func (b *BadgerDBStore) Delete(key []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// PutChangeSet implements the Store interface. The whole change set is a
// single transaction, so it's limited by badger.ErrTxnTooBig.
func (b *BadgerDBStore) PutChangeSet(changes map[string][]byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		var err error
		for k, v := range changes {
			if v != nil {
				err = txn.Set([]byte(k), v)
			} else {
				err = txn.Delete([]byte(k))
			}
			if err != nil {
				return fmt.Errorf("writing 0x%x: %w", k, err)
			}
		}
		return nil
	})
}

// Seek implements the Store interface.
func (b *BadgerDBStore) Seek(rng SeekRange, f func(k, v []byte) bool) error {
	rang := seekRangeToPrefixes(rng)
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = rng.Backwards
		it := txn.NewIterator(opts)
		defer it.Close()

		switch {
		case !rng.Backwards:
			it.Seek(rang.Start)
		case len(rang.Limit) == 0:
			it.Rewind()
		default:
			// Reverse Seek stops at the greatest key <= Limit.
			it.Seek(rang.Limit)
		}
		for ; it.Valid(); it.Next() {
			item := it.Item()
			k := item.Key()
			if len(rang.Limit) != 0 && bytes.Compare(k, rang.Limit) >= 0 {
				if rng.Backwards {
					continue
				}
				break
			}
			if bytes.Compare(k, rang.Start) < 0 {
				if rng.Backwards {
					break
				}
				continue
			}
			var goOn bool
			err := item.Value(func(v []byte) error {
				goOn = f(k, v)
				return nil
			})
			if err != nil {
				return err
			}
			if !goOn {
				break
			}
		}
		return nil
	})
}

// Close releases all db resources.
func (b *BadgerDBStore) Close() error {
	return b.db.Close()
}
