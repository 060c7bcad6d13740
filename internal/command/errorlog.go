package command

import (
	"fmt"
	"strings"
)

// Severity classifies an error log entry.
type Severity string

const (
	// SeverityWarning marks a degradation the run survived.
	SeverityWarning Severity = "warning"
	// SeverityFatal marks the failure that terminated the run.
	SeverityFatal Severity = "fatal"
)

// Entry is one recorded failure or degradation.
type Entry struct {
	Phase    string
	Severity Severity
	Message  string

	// Result carries the failed command when the entry came from one.
	Result *Result
}

// ErrorLog is the append-only, single-writer record of everything that
// went wrong during a run. It is surfaced in the end-of-run summary even
// on success and is the sole input to rollback decisions.
type ErrorLog struct {
	entries []Entry
}

// NewErrorLog creates an empty error log.
func NewErrorLog() *ErrorLog {
	return &ErrorLog{}
}

// RecordFailure appends a failed command result.
func (l *ErrorLog) RecordFailure(phase string, sev Severity, res Result) {
	r := res
	l.entries = append(l.entries, Entry{
		Phase:    phase,
		Severity: sev,
		Message:  fmt.Sprintf("command %q exited %d", res.Command.String(), res.ExitCode),
		Result:   &r,
	})
}

// RecordWarning appends a free-form degradation message.
func (l *ErrorLog) RecordWarning(phase, message string) {
	l.entries = append(l.entries, Entry{Phase: phase, Severity: SeverityWarning, Message: message})
}

// RecordFatal appends a free-form fatal message.
func (l *ErrorLog) RecordFatal(phase, message string) {
	l.entries = append(l.entries, Entry{Phase: phase, Severity: SeverityFatal, Message: message})
}

// Entries returns the recorded entries in order.
func (l *ErrorLog) Entries() []Entry {
	return l.entries
}

// Empty reports whether nothing was recorded.
func (l *ErrorLog) Empty() bool {
	return len(l.entries) == 0
}

// HasFatal reports whether any entry is fatal.
func (l *ErrorLog) HasFatal() bool {
	for _, e := range l.entries {
		if e.Severity == SeverityFatal {
			return true
		}
	}
	return false
}

// Summary renders the log for the end-of-run report, one entry per line.
func (l *ErrorLog) Summary() string {
	if l.Empty() {
		return "no errors recorded"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d issue(s) recorded:\n", len(l.entries))
	for i, e := range l.entries {
		fmt.Fprintf(&b, "  %d. [%s] %s: %s\n", i+1, e.Severity, e.Phase, e.Message)
		if e.Result != nil && e.Result.Output != "" {
			out := strings.TrimSpace(e.Result.Output)
			if len(out) > 300 {
				out = out[:300] + "..."
			}
			for _, line := range strings.Split(out, "\n") {
				fmt.Fprintf(&b, "       %s\n", line)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Failure is the error returned when an invoked tool exits non-zero.
type Failure struct {
	Result Result
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return fmt.Sprintf("command %q failed with exit code %d", f.Result.Command.String(), f.Result.ExitCode)
}

// NewFailure wraps a failed result as an error.
func NewFailure(res Result) *Failure {
	return &Failure{Result: res}
}
