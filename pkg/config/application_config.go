package config

import (
	"fmt"

	"github.com/mptindexer/mpt-indexer/pkg/core/storage/dbconfig"
	"github.com/mptindexer/mpt-indexer/pkg/crypto/hash"
	"go.uber.org/zap/zapcore"
)

// ApplicationConfiguration config specific to the node.
type ApplicationConfiguration struct {
	LogLevel        string                   `yaml:"LogLevel"`
	LogPath         string                   `yaml:"LogPath"`
	DBConfiguration dbconfig.DBConfiguration `yaml:"DBConfiguration"`
	Trie            TrieConfiguration        `yaml:"Trie"`
	Health          BasicService             `yaml:"Health"`
	Pprof           BasicService             `yaml:"Pprof"`
	Prometheus      BasicService             `yaml:"Prometheus"`
}

// TrieConfiguration describes the trie parameters. They can't be changed
// for an existing DB.
type TrieConfiguration struct {
	// Hasher is the name of the digest function, see hash.ByName.
	Hasher string `yaml:"Hasher"`
}

// Validate checks ApplicationConfiguration for internal consistency and
// returns an error if any invalid settings are found.
func (a *ApplicationConfiguration) Validate() error {
	if len(a.LogLevel) > 0 {
		if _, err := zapcore.ParseLevel(a.LogLevel); err != nil {
			return fmt.Errorf("invalid LogLevel: %w", err)
		}
	}
	if _, err := hash.ByName(a.Trie.Hasher); err != nil {
		return fmt.Errorf("invalid Trie configuration: %w", err)
	}
	switch a.DBConfiguration.Type {
	case dbconfig.InMemoryDB, dbconfig.LevelDB, dbconfig.BoltDB, dbconfig.BadgerDB, dbconfig.PebbleDB:
	default:
		return fmt.Errorf("unknown DB type: %q", a.DBConfiguration.Type)
	}
	for name, s := range map[string]BasicService{
		"Health":     a.Health,
		"Pprof":      a.Pprof,
		"Prometheus": a.Prometheus,
	} {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("invalid %s configuration: %w", name, err)
		}
	}
	return nil
}
