package storage

import (
	"bytes"
	"errors"
	"slices"
	"sync"
)

// errClosed is returned by MemoryStore after Close.
var errClosed = errors.New("store is closed")

// MemoryStore is an in-memory implementation of a Store, mainly
// used for testing. Do not use MemoryStore in production.
type MemoryStore struct {
	mut sync.RWMutex
	mem map[string][]byte
}

// NewMemoryStore creates a new MemoryStore object.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mem: make(map[string][]byte),
	}
}

// Get implements the Store interface.
func (s *MemoryStore) Get(key []byte) ([]byte, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()
	if val, ok := s.mem[string(key)]; ok {
		return slices.Clone(val), nil
	}
	return nil, ErrKeyNotFound
}

// Put implements the Store interface.
func (s *MemoryStore) Put(key, value []byte) error {
	return s.PutChangeSet(map[string][]byte{string(key): value})
}

// Delete implements the Store interface.
func (s *MemoryStore) Delete(key []byte) error {
	return s.PutChangeSet(map[string][]byte{string(key): nil})
}

// PutChangeSet implements the Store interface.
func (s *MemoryStore) PutChangeSet(changes map[string][]byte) error {
	s.mut.Lock()
	defer s.mut.Unlock()
	if s.mem == nil {
		return errClosed
	}
	for k, v := range changes {
		if v == nil {
			delete(s.mem, k)
			continue
		}
		s.mem[k] = slices.Clone(v)
	}
	return nil
}

// Seek implements the Store interface.
func (s *MemoryStore) Seek(rng SeekRange, f func(k, v []byte) bool) error {
	s.mut.RLock()
	defer s.mut.RUnlock()
	if s.mem == nil {
		return errClosed
	}
	var (
		r       = seekRangeToPrefixes(rng)
		memList []KeyValue
	)
	for k, v := range s.mem {
		key := []byte(k)
		if bytes.Compare(key, r.Start) >= 0 && (r.Limit == nil || bytes.Compare(key, r.Limit) < 0) {
			memList = append(memList, KeyValue{Key: key, Value: v})
		}
	}
	slices.SortFunc(memList, func(a, b KeyValue) int {
		if rng.Backwards {
			return bytes.Compare(b.Key, a.Key)
		}
		return bytes.Compare(a.Key, b.Key)
	})
	for _, kv := range memList {
		if !f(kv.Key, kv.Value) {
			break
		}
	}
	return nil
}

// Close implements Store interface and clears up memory. Never returns an
// error.
func (s *MemoryStore) Close() error {
	s.mut.Lock()
	s.mem = nil
	s.mut.Unlock()
	return nil
}
