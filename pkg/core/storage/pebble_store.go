package storage

import (
	"errors"
	"fmt"
	"os"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/mptindexer/mpt-indexer/pkg/core/storage/dbconfig"
)

// PebbleStore is a Store backed by the Pebble LSM engine.
type PebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore opens (creating it if needed) a Pebble database in the
// configured directory.
func NewPebbleStore(cfg dbconfig.PebbleOptions) (*PebbleStore, error) {
	opts := &pebble.Options{ReadOnly: cfg.ReadOnly}
	if cfg.InMemory {
		opts.FS = vfs.NewMem()
	} else if !cfg.ReadOnly {
		if err := os.MkdirAll(cfg.DataDirectoryPath, os.ModePerm); err != nil {
			return nil, fmt.Errorf("could not create dir for Pebble: %w", err)
		}
	}
	db, err := pebble.Open(cfg.DataDirectoryPath, opts)
	if err != nil {
		return nil, fmt.Errorf("opening pebble db: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

// Get implements the Store interface.
func (p *PebbleStore) Get(key []byte) ([]byte, error) {
	dat, closer, err := p.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	ret := make([]byte, len(dat))
	copy(ret, dat)
	if err := closer.Close(); err != nil {
		return nil, fmt.Errorf("closing after get: %w", err)
	}
	return ret, nil
}

// Put implements the Store interface.
func (p *PebbleStore) Put(key, value []byte) error {
	return p.db.Set(key, value, pebble.Sync)
}

// Delete implements the Store interface.
func (p *PebbleStore) Delete(key []byte) error {
	return p.db.Delete(key, pebble.Sync)
}

// PutChangeSet implements the Store interface.
func (p *PebbleStore) PutChangeSet(changes map[string][]byte) error {
	b := p.db.NewBatch()
	defer b.Close()
	for k, v := range changes {
		var err error
		if v != nil {
			err = b.Set([]byte(k), v, nil)
		} else {
			err = b.Delete([]byte(k), nil)
		}
		if err != nil {
			return err
		}
	}
	return b.Commit(pebble.Sync)
}

// Seek implements the Store interface.
func (p *PebbleStore) Seek(rng SeekRange, f func(k, v []byte) bool) error {
	rang := seekRangeToPrefixes(rng)
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: rang.Start,
		UpperBound: rang.Limit,
	})
	if err != nil {
		return err
	}
	var (
		ok   bool
		next func() bool
	)
	if !rng.Backwards {
		ok = iter.First()
		next = iter.Next
	} else {
		ok = iter.Last()
		next = iter.Prev
	}
	for ; ok; ok = next() {
		if !f(iter.Key(), iter.Value()) {
			break
		}
	}
	if err := iter.Error(); err != nil {
		_ = iter.Close()
		return err
	}
	return iter.Close()
}

// Close implements the Store interface.
func (p *PebbleStore) Close() error {
	return p.db.Close()
}
