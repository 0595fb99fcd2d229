package storage

import (
	"bytes"
	"path/filepath"
	"reflect"
	"runtime"
	"slices"
	"testing"

	"github.com/mptindexer/mpt-indexer/pkg/core/storage/dbconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dbSetup struct {
	name   string
	create func(testing.TB) Store
}

type dbTestFunction func(*testing.T, Store)

func newMemoryStoreForTesting(t testing.TB) Store {
	return NewMemoryStore()
}

func newLevelDBForTesting(t testing.TB) Store {
	s, err := NewLevelDBStore(dbconfig.LevelDBOptions{DataDirectoryPath: t.TempDir()})
	require.NoError(t, err)
	return s
}

func newBoltStoreForTesting(t testing.TB) Store {
	testFileName := filepath.Join(t.TempDir(), "test_bolt_db")
	s, err := NewBoltDBStore(dbconfig.BoltDBOptions{FilePath: testFileName})
	require.NoError(t, err)
	return s
}

func newBadgerDBForTesting(t testing.TB) Store {
	s, err := NewBadgerDBStore(dbconfig.BadgerDBOptions{Dir: t.TempDir()})
	require.NoError(t, err)
	return s
}

func newPebbleForTesting(t testing.TB) Store {
	s, err := NewPebbleStore(dbconfig.PebbleOptions{DataDirectoryPath: filepath.Join(t.TempDir(), "pebble")})
	require.NoError(t, err)
	return s
}

func testStoreGetNonExistent(t *testing.T, s Store) {
	key := []byte("sparse")

	_, err := s.Get(key)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func testStorePutGetDelete(t *testing.T, s Store) {
	var (
		key   = []byte("sparse")
		value = []byte("rocks")
	)
	require.NoError(t, s.Put(key, value))
	actual, err := s.Get(key)
	require.NoError(t, err)
	require.Equal(t, value, actual)

	// Overwrite.
	require.NoError(t, s.Put(key, []byte("stones")))
	actual, err = s.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte("stones"), actual)

	require.NoError(t, s.Delete(key))
	_, err = s.Get(key)
	require.ErrorIs(t, err, ErrKeyNotFound)

	// Missing key.
	require.NoError(t, s.Delete(key))
}

func testStorePutChangeSet(t *testing.T, s Store) {
	require.NoError(t, s.Put([]byte("gone"), []byte{1}))
	require.NoError(t, s.PutChangeSet(map[string][]byte{
		"one":  {1},
		"two":  {2},
		"gone": nil,
	}))
	for k, v := range map[string][]byte{"one": {1}, "two": {2}} {
		actual, err := s.Get([]byte(k))
		require.NoError(t, err)
		require.Equal(t, v, actual)
	}
	_, err := s.Get([]byte("gone"))
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func pushSeekDataSet(t *testing.T, s Store) []KeyValue {
	// Use the same set of kvs to test Seek with different prefix/start values.
	kvs := []KeyValue{
		{[]byte("10"), []byte("bar")},
		{[]byte("11"), []byte("bara")},
		{[]byte("20"), []byte("barb")},
		{[]byte("21"), []byte("barc")},
		{[]byte("22"), []byte("bard")},
		{[]byte("30"), []byte("bare")},
		{[]byte("31"), []byte("barf")},
	}
	changes := make(map[string][]byte, len(kvs))
	for _, v := range kvs {
		changes[string(v.Key)] = v.Value
	}
	require.NoError(t, s.PutChangeSet(changes))
	return kvs
}

func testStoreSeek(t *testing.T, s Store) {
	kvs := pushSeekDataSet(t, s)
	check := func(t *testing.T, goodprefix, start []byte, goodkvs []KeyValue, backwards bool, cont func(k, v []byte) bool) {
		// Seek result expected to be sorted in an ascending (for forwards seeking) or descending (for backwards seeking) way.
		goodkvs = slices.Clone(goodkvs)
		slices.SortFunc(goodkvs, func(a, b KeyValue) int {
			if backwards {
				return bytes.Compare(b.Key, a.Key)
			}
			return bytes.Compare(a.Key, b.Key)
		})

		rng := SeekRange{
			Prefix:    goodprefix,
			Start:     start,
			Backwards: backwards,
		}
		actual := make([]KeyValue, 0, len(goodkvs))
		require.NoError(t, s.Seek(rng, func(k, v []byte) bool {
			actual = append(actual, KeyValue{
				Key:   bytes.Clone(k),
				Value: bytes.Clone(v),
			})
			if cont == nil {
				return true
			}
			return cont(k, v)
		}))
		assert.Equal(t, goodkvs, actual)
	}

	t.Run("empty prefix", func(t *testing.T) {
		check(t, nil, nil, kvs, false, nil)
		check(t, nil, nil, kvs, true, nil)
	})
	t.Run("non-empty prefix, empty start", func(t *testing.T) {
		t.Run("forwards", func(t *testing.T) {
			t.Run("good", func(t *testing.T) {
				check(t, []byte("2"), nil, kvs[2:5], false, nil)
			})
			t.Run("no matching items", func(t *testing.T) {
				check(t, []byte("0"), nil, []KeyValue{}, false, nil)
			})
			t.Run("early stop", func(t *testing.T) {
				check(t, []byte("2"), nil, kvs[2:4], false, func(k, v []byte) bool {
					return string(k) < "21"
				})
			})
		})
		t.Run("backwards", func(t *testing.T) {
			t.Run("good", func(t *testing.T) {
				check(t, []byte("2"), nil, kvs[2:5], true, nil)
			})
			t.Run("no matching items", func(t *testing.T) {
				check(t, []byte("0"), nil, []KeyValue{}, true, nil)
			})
			t.Run("early stop", func(t *testing.T) {
				check(t, []byte("2"), nil, kvs[3:5], true, func(k, v []byte) bool {
					return string(k) > "21"
				})
			})
		})
	})
	t.Run("non-empty prefix, non-empty start", func(t *testing.T) {
		t.Run("forwards", func(t *testing.T) {
			t.Run("good", func(t *testing.T) {
				// start is appended to the prefix to start seek from
				check(t, []byte("2"), []byte("1"), kvs[3:5], false, nil)
			})
			t.Run("no matching items", func(t *testing.T) {
				// start is more than all keys prefixed by '2'.
				check(t, []byte("2"), []byte("3"), []KeyValue{}, false, nil)
			})
		})
		t.Run("backwards", func(t *testing.T) {
			t.Run("good", func(t *testing.T) {
				check(t, []byte("2"), []byte("1"), kvs[2:4], true, nil)
			})
			t.Run("no matching items", func(t *testing.T) {
				// start is less than all keys prefixed by '2'.
				check(t, []byte("2"), []byte("."), []KeyValue{}, true, nil)
			})
			t.Run("early stop", func(t *testing.T) {
				check(t, []byte("2"), []byte("2"), kvs[3:5], true, func(k, v []byte) bool {
					return string(k) > "21"
				})
			})
		})
	})
	t.Run("prefix with 0xff", func(t *testing.T) {
		require.NoError(t, s.Put([]byte{0xff, 0x01}, []byte{1}))
		require.NoError(t, s.Put([]byte{0xff, 0x02}, []byte{2}))
		goodkvs := []KeyValue{
			{[]byte{0xff, 0x01}, []byte{1}},
			{[]byte{0xff, 0x02}, []byte{2}},
		}
		check(t, []byte{0xff}, nil, goodkvs, false, nil)
		check(t, []byte{0xff}, nil, goodkvs, true, nil)
	})
}

func TestAllDBs(t *testing.T) {
	var DBs = []dbSetup{
		{"BadgerDB", newBadgerDBForTesting},
		{"BoltDB", newBoltStoreForTesting},
		{"LevelDB", newLevelDBForTesting},
		{"Memory", newMemoryStoreForTesting},
		{"Pebble", newPebbleForTesting},
	}
	var tests = []dbTestFunction{testStoreGetNonExistent, testStorePutGetDelete,
		testStorePutChangeSet, testStoreSeek}
	for _, db := range DBs {
		for _, test := range tests {
			s := db.create(t)
			twrapper := func(t *testing.T) {
				test(t, s)
			}
			fname := runtime.FuncForPC(reflect.ValueOf(test).Pointer()).Name()
			t.Run(db.name+"/"+fname, twrapper)
			require.NoError(t, s.Close())
		}
	}
}

func TestStorageNames(t *testing.T) {
	tmp := t.TempDir()
	cfg := dbconfig.DBConfiguration{
		LevelDBOptions: dbconfig.LevelDBOptions{
			DataDirectoryPath: filepath.Join(tmp, "level"),
		},
		BoltDBOptions: dbconfig.BoltDBOptions{
			FilePath: filepath.Join(tmp, "bolt"),
		},
		BadgerDBOptions: dbconfig.BadgerDBOptions{
			InMemory: true,
		},
		PebbleOptions: dbconfig.PebbleOptions{
			DataDirectoryPath: filepath.Join(tmp, "pebble"),
		},
	}
	for _, name := range []string{dbconfig.BoltDB, dbconfig.LevelDB, dbconfig.InMemoryDB,
		dbconfig.BadgerDB, dbconfig.PebbleDB} {
		t.Run(name, func(t *testing.T) {
			cfg.Type = name
			s, err := NewStore(cfg)
			require.NoError(t, err)
			require.NoError(t, s.Close())
		})
	}
	t.Run("unknown", func(t *testing.T) {
		cfg.Type = "rocksdb"
		_, err := NewStore(cfg)
		require.Error(t, err)
	})
}

func TestPersistence(t *testing.T) {
	tmp := t.TempDir()
	for _, cfg := range []dbconfig.DBConfiguration{
		{Type: dbconfig.LevelDB, LevelDBOptions: dbconfig.LevelDBOptions{DataDirectoryPath: filepath.Join(tmp, "level")}},
		{Type: dbconfig.BoltDB, BoltDBOptions: dbconfig.BoltDBOptions{FilePath: filepath.Join(tmp, "bolt")}},
		{Type: dbconfig.BadgerDB, BadgerDBOptions: dbconfig.BadgerDBOptions{Dir: filepath.Join(tmp, "badger")}},
		{Type: dbconfig.PebbleDB, PebbleOptions: dbconfig.PebbleOptions{DataDirectoryPath: filepath.Join(tmp, "pebble")}},
	} {
		t.Run(cfg.Type, func(t *testing.T) {
			s, err := NewStore(cfg)
			require.NoError(t, err)
			require.NoError(t, s.Put(SYSVersion.Bytes(), []byte("v1")))
			require.NoError(t, s.Close())

			s, err = NewStore(cfg)
			require.NoError(t, err)
			v, err := s.Get(SYSVersion.Bytes())
			require.NoError(t, err)
			require.Equal(t, []byte("v1"), v)
			require.NoError(t, s.Close())
		})
	}
}

func TestMemoryStoreClosed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())
	require.Error(t, s.Put([]byte{1}, []byte{2}))
	require.Error(t, s.Seek(SeekRange{}, func(k, v []byte) bool { return true }))
	_, err := s.Get([]byte{1})
	require.ErrorIs(t, err, ErrKeyNotFound)
}
