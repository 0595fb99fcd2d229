/*
Package cmdargs contains helpers for positional command line arguments.
*/
package cmdargs

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/urfave/cli"
)

// EnsureNone returns an error if there are any positional arguments present.
// It can be used to check for them in commands that don't accept arguments.
func EnsureNone(ctx *cli.Context) *cli.ExitError {
	if ctx.Args().Present() {
		return cli.NewExitError("additional arguments given while this command expects none", 1)
	}
	return nil
}

// EnsureCount returns an error if the number of positional arguments is not n.
func EnsureCount(ctx *cli.Context, n int) *cli.ExitError {
	if got := len(ctx.Args()); got != n {
		return cli.NewExitError(fmt.Errorf("%d argument(s) expected, %d given", n, got), 1)
	}
	return nil
}

// ParseBytes converts a command line argument into bytes. If isHex is set,
// the argument is a hex string (with or without 0x prefix), otherwise it's
// taken as is.
func ParseBytes(arg string, isHex bool) ([]byte, error) {
	if !isHex {
		return []byte(arg), nil
	}
	b, err := hex.DecodeString(strings.TrimPrefix(arg, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid hex argument %q: %w", arg, err)
	}
	return b, nil
}
