package server

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mptindexer/mpt-indexer/cli/cmdargs"
	"github.com/mptindexer/mpt-indexer/cli/options"
	"github.com/mptindexer/mpt-indexer/pkg/core/indexer"
	json "github.com/nspcc-dev/go-ordered-json"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

var errKeyNotFound = errors.New("key not found")

// KVPair is a single dumped key-value pair.
type KVPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// withIndexer opens the configured DB, loads the indexer and runs f with it.
func withIndexer(ctx *cli.Context, f func(ix *indexer.Indexer) error) error {
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	log, _, logCloser, err := options.HandleLoggingParams(ctx.Bool("debug"), cfg.ApplicationConfiguration)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if logCloser != nil {
		defer func() { _ = logCloser() }()
	}
	ix, store, err := initIndexer(cfg, log)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("failed to close the DB", zap.Error(err))
		}
	}()
	if err := f(ix); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

// parseArgs parses exactly n positional arguments.
func parseArgs(ctx *cli.Context, n int) ([][]byte, error) {
	if err := cmdargs.EnsureCount(ctx, n); err != nil {
		return nil, err
	}
	res := make([][]byte, n)
	for i := range res {
		b, err := cmdargs.ParseBytes(ctx.Args().Get(i), ctx.Bool("hex"))
		if err != nil {
			return nil, cli.NewExitError(fmt.Errorf("invalid argument #%d: %w", i+1, err), 1)
		}
		res[i] = b
	}
	return res, nil
}

func formatBytes(b []byte, isHex bool) string {
	if isHex {
		return hex.EncodeToString(b)
	}
	return string(b)
}

func dbPut(ctx *cli.Context) error {
	args, err := parseArgs(ctx, 2)
	if err != nil {
		return err
	}
	return withIndexer(ctx, func(ix *indexer.Indexer) error {
		if err := ix.Put(args[0], args[1]); err != nil {
			return err
		}
		return printRoot(ctx.App.Writer, ix)
	})
}

func dbGet(ctx *cli.Context) error {
	args, err := parseArgs(ctx, 1)
	if err != nil {
		return err
	}
	return withIndexer(ctx, func(ix *indexer.Indexer) error {
		v, ok := ix.Get(args[0])
		if !ok {
			return errKeyNotFound
		}
		fmt.Fprintln(ctx.App.Writer, formatBytes(v, ctx.Bool("hex")))
		return nil
	})
}

func dbDelete(ctx *cli.Context) error {
	args, err := parseArgs(ctx, 1)
	if err != nil {
		return err
	}
	return withIndexer(ctx, func(ix *indexer.Indexer) error {
		ok, err := ix.Delete(args[0])
		if err != nil {
			return err
		}
		if !ok {
			return errKeyNotFound
		}
		return printRoot(ctx.App.Writer, ix)
	})
}

func dbRoot(ctx *cli.Context) error {
	if err := cmdargs.EnsureNone(ctx); err != nil {
		return err
	}
	return withIndexer(ctx, func(ix *indexer.Indexer) error {
		return printRoot(ctx.App.Writer, ix)
	})
}

func printRoot(w io.Writer, ix *indexer.Indexer) error {
	root, err := ix.StateRoot()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "root: 0x%s\nkeys: %d\n", root.StringBE(), ix.Len())
	return nil
}

func dbDump(ctx *cli.Context) (err error) {
	if err := cmdargs.EnsureNone(ctx); err != nil {
		return err
	}
	var (
		w   = ctx.App.Writer
		out = ctx.String("out")
	)
	if out != "" {
		f, createErr := os.Create(out)
		if createErr != nil {
			return cli.NewExitError(fmt.Errorf("can't create output file: %w", createErr), 1)
		}
		defer closeOutput(f, &err)
		w = f
	}
	return withIndexer(ctx, func(ix *indexer.Indexer) error {
		var (
			enc    = json.NewEncoder(w)
			encErr error
		)
		ix.Walk(func(k, v []byte) bool {
			encErr = enc.Encode(KVPair{
				Key:   hex.EncodeToString(k),
				Value: hex.EncodeToString(v),
			})
			return encErr == nil
		})
		if encErr != nil {
			return fmt.Errorf("failed to write dump: %w", encErr)
		}
		return nil
	})
}

// closeOutput closes the dump file. Its failure is returned via err unless
// err is already set.
func closeOutput(c io.Closer, err *error) {
	if closeErr := c.Close(); closeErr != nil && *err == nil {
		*err = cli.NewExitError(fmt.Errorf("failed to close output file: %w", closeErr), 1)
	}
}
