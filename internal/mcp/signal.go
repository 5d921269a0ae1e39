package mcp

import (
	"os"
	"os/signal"
	"syscall"
)

// shutdownSignals end a stdio session. Windows only ever delivers
// os.Interrupt, but SIGTERM is defined there too.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, shutdownSignals...)
}
