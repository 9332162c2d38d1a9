//go:build unix

package main

import (
	"os"
	"syscall"
)

// cancelSignals abort the running session without stopping the daemon.
var cancelSignals = []os.Signal{syscall.SIGUSR1}
