//go:build unix

package shell

import (
	"os"

	"golang.org/x/sys/unix"
)

// Signals that cancel the running command.
var interruptSignals = []os.Signal{unix.SIGINT, unix.SIGTERM}
