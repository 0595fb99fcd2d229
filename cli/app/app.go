package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/mptindexer/mpt-indexer/cli/server"
	"github.com/mptindexer/mpt-indexer/pkg/config"
	"github.com/urfave/cli"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "MPT indexer\nVersion: %s\nGoVersion: %s\n",
		config.Version,
		runtime.Version(),
	)
}

// New creates an instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "mpt-indexer"
	ctl.Version = config.Version
	ctl.Usage = "Merkle radix trie key-value indexer"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, server.NewCommands()...)
	return ctl
}
