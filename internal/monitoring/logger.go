// Package monitoring holds the process-wide diagnostic logger used by the
// command-line tools and the session recorder.
package monitoring

import (
	"io"
	"log"
	"strings"
)

// Logf is the process-wide logger. It defaults to log.Printf; SetLogger
// redirects or mutes it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Writer returns an io.Writer that forwards each write to Logf, so
// packages configured with SetLogWriters can share the process logger.
func Writer() io.Writer {
	return logfWriter{}
}

type logfWriter struct{}

func (logfWriter) Write(p []byte) (int, error) {
	if msg := strings.TrimRight(string(p), "\n"); msg != "" {
		Logf("%s", msg)
	}
	return len(p), nil
}
