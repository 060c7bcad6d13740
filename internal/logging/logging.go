// Package logging builds the run transcript logger.
//
// Every run appends a structured transcript to the configured log file
// and, unless quiet mode is set, mirrors it to standard error. The log
// file is the sole sink in quiet mode; the final error summary and the
// process exit code are never suppressed.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// Transcript couples the run logger with its file handle so the caller
// can close it at the end of the run.
type Transcript struct {
	Logger logr.Logger

	file *os.File
}

// Open creates the transcript logger. The log file is opened
// append-only with owner/group read-write permissions. When the file
// cannot be opened (typically: not running as root), logging degrades
// to the console sink alone rather than failing the run.
func Open(path string, quiet bool) (*Transcript, error) {
	var sinks []io.Writer
	tr := &Transcript{}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o660) // #nosec G302,G304
	if err == nil {
		tr.file = file
		sinks = append(sinks, file)
	}

	if !quiet {
		sinks = append(sinks, os.Stderr)
	}

	if len(sinks) == 0 && err != nil {
		// Quiet mode with an unusable log file leaves no sink at all;
		// that configuration is an error the operator must see.
		return nil, fmt.Errorf("cannot open log file %s in quiet mode: %w", path, err)
	}

	out := io.MultiWriter(sinks...)
	tr.Logger = funcr.New(func(prefix, args string) {
		ts := time.Now().Format("2006-01-02 15:04:05")
		if prefix != "" {
			fmt.Fprintf(out, "%s %s: %s\n", ts, prefix, args)
			return
		}
		fmt.Fprintf(out, "%s %s\n", ts, args)
	}, funcr.Options{})

	return tr, nil
}

// Close releases the log file handle.
func (t *Transcript) Close() error {
	if t.file == nil {
		return nil
	}
	return t.file.Close()
}

// Discard returns a transcript that drops everything. For tests.
func Discard() *Transcript {
	return &Transcript{Logger: logr.Discard()}
}
