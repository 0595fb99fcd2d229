package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mptindexer/mpt-indexer/pkg/core/storage/dbconfig"
	"github.com/mptindexer/mpt-indexer/pkg/crypto/hash"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the default path to the config file.
const DefaultConfigPath = "./config/mpt.yml"

// Version is the version of the node, set at build time.
var Version string

// Config top level struct representing the config for the node.
type Config struct {
	ApplicationConfiguration ApplicationConfiguration `yaml:"ApplicationConfiguration"`
}

// LoadFile loads config from the provided path. Relative file paths in the
// config are prefixed with relativePath if it's not empty.
func LoadFile(configPath string, relativePath ...string) (Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config '%s' doesn't exist", configPath)
	}

	configData, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}
	return Unmarshal(configData, relativePath...)
}

// Unmarshal parses the YAML config, applies defaults and validates the result.
func Unmarshal(data []byte, relativePath ...string) (Config, error) {
	config := Config{
		ApplicationConfiguration: ApplicationConfiguration{
			DBConfiguration: dbconfig.DBConfiguration{
				Type: dbconfig.InMemoryDB,
			},
			Trie: TrieConfiguration{
				Hasher: hash.NameSha256,
			},
		},
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	err := decoder.Decode(&config)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	if len(relativePath) == 1 && relativePath[0] != "" {
		updateRelativePaths(relativePath[0], &config)
	}

	err = config.ApplicationConfiguration.Validate()
	if err != nil {
		return Config{}, err
	}
	return config, nil
}

// updateRelativePaths updates relative paths in the config structure based
// on the provided relative path.
func updateRelativePaths(relativePath string, config *Config) {
	updatePath := func(path *string) {
		if *path != "" && !filepath.IsAbs(*path) {
			*path = filepath.Join(relativePath, *path)
		}
	}

	db := &config.ApplicationConfiguration.DBConfiguration
	updatePath(&config.ApplicationConfiguration.LogPath)
	updatePath(&db.LevelDBOptions.DataDirectoryPath)
	updatePath(&db.BoltDBOptions.FilePath)
	updatePath(&db.BadgerDBOptions.Dir)
	updatePath(&db.PebbleOptions.DataDirectoryPath)
}
