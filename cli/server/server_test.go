package server

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mptindexer/mpt-indexer/pkg/config"
	"github.com/mptindexer/mpt-indexer/pkg/core/mpt"
	"github.com/mptindexer/mpt-indexer/pkg/core/storage/dbconfig"
	"github.com/mptindexer/mpt-indexer/pkg/crypto/hash"
	"github.com/mptindexer/mpt-indexer/pkg/services/health"
	json "github.com/nspcc-dev/go-ordered-json"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
	"go.uber.org/zap/zaptest"
)

// writeConfig creates a config file using LevelDB in a temporary directory
// and returns its path.
func writeConfig(t *testing.T, extra string) string {
	d := t.TempDir()
	cfg := fmt.Sprintf(`ApplicationConfiguration:
  LogPath: %q
  DBConfiguration:
    Type: leveldb
    LevelDBOptions:
      DataDirectoryPath: %q
%s`, filepath.Join(d, "mpt.log"), filepath.Join(d, "leveldb"), extra)
	path := filepath.Join(d, "mpt.yml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func newTestApp() (*cli.App, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	app := cli.NewApp()
	app.Name = "mpt-indexer"
	app.Writer = buf
	app.ErrWriter = buf
	app.Commands = NewCommands()
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app, buf
}

// run executes the command and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	app, buf := newTestApp()
	err := app.Run(append([]string{"mpt-indexer"}, args...))
	return buf.String(), err
}

func freeAddress(t *testing.T) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestInitIndexer(t *testing.T) {
	t.Run("bad storage", func(t *testing.T) {
		cfg := config.Config{}
		cfg.ApplicationConfiguration.DBConfiguration.Type = "unknown"
		_, _, err := initIndexer(cfg, zaptest.NewLogger(t))
		require.Error(t, err)
	})
	t.Run("bad hasher", func(t *testing.T) {
		cfg := config.Config{}
		cfg.ApplicationConfiguration.DBConfiguration.Type = dbconfig.InMemoryDB
		cfg.ApplicationConfiguration.Trie.Hasher = "md5"
		_, _, err := initIndexer(cfg, zaptest.NewLogger(t))
		require.Error(t, err)
	})
	t.Run("good", func(t *testing.T) {
		cfg := config.Config{}
		cfg.ApplicationConfiguration.DBConfiguration.Type = dbconfig.InMemoryDB
		ix, store, err := initIndexer(cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, store.Close()) })
		require.Equal(t, 0, ix.Len())
	})
}

func TestDB(t *testing.T) {
	cfgPath := writeConfig(t, "")

	out, err := run(t, "db", "root", "--config-file", cfgPath)
	require.NoError(t, err)
	require.Equal(t, "root: 0x"+strings.Repeat("00", 32)+"\nkeys: 0\n", out)

	_, err = run(t, "db", "put", "--config-file", cfgPath, "cat", "meow")
	require.NoError(t, err)
	_, err = run(t, "db", "put", "--hex", "--config-file", cfgPath, "0x636172", "7675726f6f6d")
	require.NoError(t, err)

	t.Run("existing key", func(t *testing.T) {
		_, err := run(t, "db", "put", "--config-file", cfgPath, "cat", "purr")
		require.ErrorContains(t, err, mpt.ErrKeyExists.Error())
	})
	t.Run("bad hex", func(t *testing.T) {
		_, err := run(t, "db", "put", "--hex", "--config-file", cfgPath, "zz", "00")
		require.Error(t, err)
	})
	t.Run("wrong argument count", func(t *testing.T) {
		_, err := run(t, "db", "put", "--config-file", cfgPath, "dog")
		require.Error(t, err)
		_, err = run(t, "db", "root", "--config-file", cfgPath, "extra")
		require.Error(t, err)
	})

	t.Run("get", func(t *testing.T) {
		out, err := run(t, "db", "get", "--config-file", cfgPath, "cat")
		require.NoError(t, err)
		require.Equal(t, "meow\n", out)

		out, err = run(t, "db", "get", "--hex", "--config-file", cfgPath, "636172")
		require.NoError(t, err)
		require.Equal(t, "7675726f6f6d\n", out)

		_, err = run(t, "db", "get", "--config-file", cfgPath, "dog")
		require.ErrorContains(t, err, errKeyNotFound.Error())
	})

	t.Run("root", func(t *testing.T) {
		tr := mpt.NewTrie(mpt.Config[[]byte]{Hasher: hash.Sha256Func})
		require.NoError(t, tr.Insert([]byte("cat"), []byte("meow")))
		require.NoError(t, tr.Insert([]byte("car"), []byte("vuroom")))
		expected, err := tr.StateRoot()
		require.NoError(t, err)

		out, err := run(t, "db", "root", "--config-file", cfgPath)
		require.NoError(t, err)
		require.Equal(t, "root: 0x"+expected.StringBE()+"\nkeys: 2\n", out)
	})

	t.Run("dump", func(t *testing.T) {
		out, err := run(t, "db", "dump", "--config-file", cfgPath)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 2)
		var pairs []KVPair
		for _, l := range lines {
			var p KVPair
			require.NoError(t, json.Unmarshal([]byte(l), &p))
			pairs = append(pairs, p)
		}
		require.Equal(t, []KVPair{
			{Key: "636172", Value: "7675726f6f6d"},
			{Key: "636174", Value: "6d656f77"},
		}, pairs)

		outFile := filepath.Join(t.TempDir(), "dump.json")
		out, err = run(t, "db", "dump", "--out", outFile, "--config-file", cfgPath)
		require.NoError(t, err)
		require.Empty(t, out)
		data, err := os.ReadFile(outFile)
		require.NoError(t, err)
		require.Equal(t, strings.Join(lines, "\n")+"\n", string(data))
	})

	t.Run("delete", func(t *testing.T) {
		out, err := run(t, "db", "delete", "--config-file", cfgPath, "car")
		require.NoError(t, err)
		require.True(t, strings.HasSuffix(out, "keys: 1\n"))

		_, err = run(t, "db", "delete", "--config-file", cfgPath, "car")
		require.ErrorContains(t, err, errKeyNotFound.Error())
	})

	t.Run("bad config", func(t *testing.T) {
		_, err := run(t, "db", "root", "--config-file", filepath.Join(t.TempDir(), "nope.yml"))
		require.Error(t, err)
	})
}

type failingCloser struct{}

func (failingCloser) Close() error { return errors.New("disk full") }

func TestCloseOutput(t *testing.T) {
	var err error
	closeOutput(failingCloser{}, &err)
	require.ErrorContains(t, err, "disk full")

	err = errKeyNotFound
	closeOutput(failingCloser{}, &err)
	require.Equal(t, errKeyNotFound, err)

	f, err := os.Create(filepath.Join(t.TempDir(), "dump.json"))
	require.NoError(t, err)
	closeOutput(f, &err)
	require.NoError(t, err)
	// Already closed.
	closeOutput(f, &err)
	require.Error(t, err)
}

func TestNode(t *testing.T) {
	addr := freeAddress(t)
	cfgPath := writeConfig(t, fmt.Sprintf(`  Health:
    Enabled: true
    Addresses:
      - %q
`, addr))
	_, err := run(t, "db", "put", "--config-file", cfgPath, "key", "value")
	require.NoError(t, err)

	set := flag.NewFlagSet("flagSet", flag.ExitOnError)
	set.String("config-file", cfgPath, "")
	ctx := cli.NewContext(cli.NewApp(), set, nil)

	grace, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- runNode(grace, ctx) }()

	url := "http://" + addr + health.HealthPath
	var st *health.Status
	require.Eventually(t, func() bool {
		st, err = health.Probe(context.Background(), url)
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)
	require.Equal(t, health.StatusOK, st.Status)
	require.Equal(t, 1, st.Keys)

	out, err := run(t, "health", "--url", url)
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("status: ok\nroot: 0x%s\nkeys: 1\n", st.Root.StringBE()), out)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("node hasn't stopped")
	}

	_, err = run(t, "health", "--url", url, "--timeout", "1s")
	require.Error(t, err)
}

func TestNode_Errors(t *testing.T) {
	t.Run("arguments", func(t *testing.T) {
		_, err := run(t, "node", "--config-file", writeConfig(t, ""), "extra")
		require.Error(t, err)
	})
	t.Run("bad config", func(t *testing.T) {
		_, err := run(t, "node", "--config-file", filepath.Join(t.TempDir(), "nope.yml"))
		require.Error(t, err)
	})
	t.Run("busy address", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		t.Cleanup(func() { _ = ln.Close() })
		cfgPath := writeConfig(t, fmt.Sprintf(`  Prometheus:
    Enabled: true
    Addresses:
      - %q
`, ln.Addr().String()))
		_, err = run(t, "node", "--config-file", cfgPath)
		require.Error(t, err)
	})
}
