// Package monitoring holds the process-wide operational logger. Pipelines
// report skipped records and periodic counters through Logf so tests can
// capture or mute them.
package monitoring

import (
	"io"
	"log"
)

// Logf defaults to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetOutput points Logf at w with microsecond timestamps.
func SetOutput(w io.Writer) {
	SetLogger(log.New(w, "", log.LstdFlags|log.Lmicroseconds).Printf)
}
