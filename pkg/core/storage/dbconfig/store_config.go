/*
Package dbconfig is a micropackage that contains storage DB configuration options.
*/
package dbconfig

// Supported DB types.
const (
	InMemoryDB = "inmemory"
	LevelDB    = "leveldb"
	BoltDB     = "boltdb"
	BadgerDB   = "badgerdb"
	PebbleDB   = "pebble"
)

type (
	// DBConfiguration describes configuration for DB. Supported types:
	// [LevelDB], [BoltDB], [BadgerDB], [PebbleDB] or [InMemoryDB] (not
	// persistent, for testing).
	DBConfiguration struct {
		Type            string          `yaml:"Type"`
		LevelDBOptions  LevelDBOptions  `yaml:"LevelDBOptions"`
		BoltDBOptions   BoltDBOptions   `yaml:"BoltDBOptions"`
		BadgerDBOptions BadgerDBOptions `yaml:"BadgerDBOptions"`
		PebbleOptions   PebbleOptions   `yaml:"PebbleOptions"`
	}
	// LevelDBOptions configuration for LevelDB.
	LevelDBOptions struct {
		DataDirectoryPath string `yaml:"DataDirectoryPath"`
		ReadOnly          bool   `yaml:"ReadOnly"`
	}
	// BoltDBOptions configuration for BoltDB.
	BoltDBOptions struct {
		FilePath string `yaml:"FilePath"`
		ReadOnly bool   `yaml:"ReadOnly"`
	}
	// BadgerDBOptions configuration for BadgerDB. Dir is ignored if InMemory
	// is set.
	BadgerDBOptions struct {
		Dir      string `yaml:"Dir"`
		InMemory bool   `yaml:"InMemory"`
	}
	// PebbleOptions configuration for Pebble.
	PebbleOptions struct {
		DataDirectoryPath string `yaml:"DataDirectoryPath"`
		ReadOnly          bool   `yaml:"ReadOnly"`
		// InMemory makes Pebble use an in-memory filesystem.
		InMemory bool `yaml:"InMemory"`
	}
)
