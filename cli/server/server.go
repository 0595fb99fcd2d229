package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mptindexer/mpt-indexer/cli/cmdargs"
	"github.com/mptindexer/mpt-indexer/cli/options"
	"github.com/mptindexer/mpt-indexer/pkg/config"
	"github.com/mptindexer/mpt-indexer/pkg/core/indexer"
	"github.com/mptindexer/mpt-indexer/pkg/core/storage"
	"github.com/mptindexer/mpt-indexer/pkg/services/health"
	"github.com/mptindexer/mpt-indexer/pkg/services/metrics"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewCommands returns 'node', 'db' and 'health' commands.
func NewCommands() []cli.Command {
	cfgFlags := []cli.Flag{options.ConfigFile, options.RelativePath, options.Debug}
	hexFlag := cli.BoolFlag{
		Name:  "hex, x",
		Usage: "keys and values are hex-encoded",
	}
	cfgHexFlags := append([]cli.Flag{hexFlag}, cfgFlags...)
	cfgDumpFlags := append([]cli.Flag{cli.StringFlag{
		Name:  "out, o",
		Usage: "output file (stdout if not given)",
	}}, cfgFlags...)
	return []cli.Command{
		{
			Name:      "node",
			Usage:     "Start the indexer node",
			UsageText: "mpt-indexer node [--config-file file] [--relative-path path] [--debug]",
			Action:    startServer,
			Flags:     cfgFlags,
		},
		{
			Name:  "db",
			Usage: "Database manipulations",
			Subcommands: []cli.Command{
				{
					Name:      "put",
					Usage:     "Add a new key-value pair",
					UsageText: "mpt-indexer db put [--hex] [--config-file file] <key> <value>",
					Action:    dbPut,
					Flags:     cfgHexFlags,
				},
				{
					Name:      "get",
					Usage:     "Print the value stored under the key",
					UsageText: "mpt-indexer db get [--hex] [--config-file file] <key>",
					Action:    dbGet,
					Flags:     cfgHexFlags,
				},
				{
					Name:      "delete",
					Usage:     "Remove the key",
					UsageText: "mpt-indexer db delete [--hex] [--config-file file] <key>",
					Action:    dbDelete,
					Flags:     cfgHexFlags,
				},
				{
					Name:      "root",
					Usage:     "Print the root digest and the number of keys",
					UsageText: "mpt-indexer db root [--config-file file]",
					Action:    dbRoot,
					Flags:     cfgFlags,
				},
				{
					Name:      "dump",
					Usage:     "Dump all key-value pairs as JSON",
					UsageText: "mpt-indexer db dump [--out file] [--config-file file]",
					Action:    dbDump,
					Flags:     cfgDumpFlags,
				},
			},
		},
		{
			Name:      "health",
			Usage:     "Check the health of a running node",
			UsageText: "mpt-indexer health [--url url] [--timeout duration]",
			Action:    checkHealth,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "url, u",
					Usage: "health endpoint URL",
					Value: "http://localhost:8080" + health.HealthPath,
				},
				options.Timeout,
			},
		},
	}
}

// initIndexer opens the configured store and loads the indexer from it.
func initIndexer(cfg config.Config, log *zap.Logger) (*indexer.Indexer, storage.Store, error) {
	store, err := storage.NewStore(cfg.ApplicationConfiguration.DBConfiguration)
	if err != nil {
		return nil, nil, fmt.Errorf("could not initialize storage: %w", err)
	}
	ix, err := indexer.New(store, indexer.Config{Hasher: cfg.ApplicationConfiguration.Trie.Hasher}, log)
	if err == nil {
		err = ix.Load()
	}
	if err != nil {
		if closeErr := store.Close(); closeErr != nil {
			err = fmt.Errorf("%w, failed to close the DB: %w", err, closeErr)
		}
		return nil, nil, fmt.Errorf("could not initialize indexer: %w", err)
	}
	return ix, store, nil
}

func newServices(cfg config.ApplicationConfiguration, ix *indexer.Indexer, log *zap.Logger) []*metrics.Service {
	return []*metrics.Service{
		metrics.NewPrometheusService(cfg.Prometheus, log),
		metrics.NewPprofService(cfg.Pprof, log),
		health.NewService(cfg.Health, ix, log),
	}
}

func startServices(services []*metrics.Service) error {
	for _, s := range services {
		if err := s.Start(); err != nil {
			shutDownServices(services)
			return fmt.Errorf("failed to start %s service: %w", s.Name(), err)
		}
	}
	return nil
}

func shutDownServices(services []*metrics.Service) {
	for _, s := range services {
		s.ShutDown()
	}
}

func startServer(ctx *cli.Context) error {
	grace, cancel := context.WithCancel(newGraceContext())
	defer cancel()
	return runNode(grace, ctx)
}

// runNode runs the node until grace is done.
func runNode(grace context.Context, ctx *cli.Context) error {
	if err := cmdargs.EnsureNone(ctx); err != nil {
		return err
	}
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	var logDebug = ctx.Bool("debug")
	log, logLevel, logCloser, err := options.HandleLoggingParams(logDebug, cfg.ApplicationConfiguration)
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

	services := newServices(cfg.ApplicationConfiguration, ix, log)
	if err := startServices(services); err != nil {
		return cli.NewExitError(err, 1)
	}
	root, err := ix.StateRoot()
	if err != nil {
		shutDownServices(services)
		return cli.NewExitError(err, 1)
	}
	log.Info("node started",
		zap.Int("keys", ix.Len()),
		zap.Stringer("root", root))

	sighupCh := make(chan os.Signal, 1)
	signal.Notify(sighupCh, sighup)
	defer signal.Stop(sighupCh)

Main:
	for {
		select {
		case <-sighupCh:
			newCfg, err := options.GetConfigFromContext(ctx)
			if err != nil {
				log.Warn("can't reread the config file, signal ignored", zap.Error(err))
				break // Continue working.
			}
			if newCfg.ApplicationConfiguration.DBConfiguration != cfg.ApplicationConfiguration.DBConfiguration ||
				newCfg.ApplicationConfiguration.Trie != cfg.ApplicationConfiguration.Trie {
				log.Warn("DB and trie settings can't be changed without restart, signal ignored")
				break
			}
			if !logDebug {
				lvl := zapcore.InfoLevel
				if l := newCfg.ApplicationConfiguration.LogLevel; l != "" {
					lvl, _ = zapcore.ParseLevel(l) // Validated on load.
				}
				logLevel.SetLevel(lvl)
			}
			log.Info("SIGHUP received, restarting services")
			shutDownServices(services)
			cfg = newCfg
			services = newServices(cfg.ApplicationConfiguration, ix, log)
			if err := startServices(services); err != nil {
				log.Error("failed to restart services", zap.Error(err))
				return cli.NewExitError(err, 1)
			}
		case <-grace.Done():
			shutDownServices(services)
			break Main
		}
	}
	log.Info("node stopped")
	return nil
}

// newGraceContext returns a context cancelled on SIGINT or SIGTERM.
func newGraceContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()
	return ctx
}

func checkHealth(ctx *cli.Context) error {
	if err := cmdargs.EnsureNone(ctx); err != nil {
		return err
	}
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	s, err := health.Probe(gctx, ctx.String("url"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintf(ctx.App.Writer, "status: %s\nroot: 0x%s\nkeys: %d\n", s.Status, s.Root.StringBE(), s.Keys)
	return nil
}
