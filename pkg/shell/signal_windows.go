package shell

import "os"

// Signals that cancel the running command.
var interruptSignals = []os.Signal{os.Interrupt}
