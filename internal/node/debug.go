package node

import (
	"io"
	"log"
)

var debugLogger *log.Logger

// SetDebugLogger installs a logger for routing diagnostics. Pass nil to
// disable it.
func SetDebugLogger(w io.Writer) {
	if w == nil {
		debugLogger = nil
		return
	}
	debugLogger = log.New(w, "[node] ", log.LstdFlags|log.Lmicroseconds)
}

func debugf(format string, args ...interface{}) {
	if debugLogger != nil {
		debugLogger.Printf(format, args...)
	}
}
