//go:build windows

package server

import "syscall"

// sighup is not delivered on Windows, config reload is unavailable there.
const sighup = syscall.SIGHUP
