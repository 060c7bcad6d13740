// Package command executes the external tools the provisioner drives
// (package managers, systemctl, firewall backends) and records their
// outcomes. All invocations go through the Runner interface so that the
// pipeline can swap in a dry-run recorder or a scripted fake in tests.
package command

import (
	"context"
	"strings"
	"time"
)

// Command describes one external tool invocation. Argv is passed to the
// tool verbatim; there is no shell interpolation anywhere in the system.
type Command struct {
	// Name is the binary to invoke (resolved via PATH).
	Name string

	// Argv holds the arguments, excluding the binary name.
	Argv []string

	// Stdin, when non-empty, is fed to the process on standard input.
	Stdin string
}

// String renders the command the way an operator would type it.
func (c Command) String() string {
	if len(c.Argv) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Argv, " ")
}

// Result records the outcome of a single command.
type Result struct {
	Command  Command
	ExitCode int
	Output   string
	Start    time.Time
	Duration time.Duration

	// Skipped is true when the command was recorded but never executed
	// (dry-run mode).
	Skipped bool
}

// OK reports whether the command succeeded (or was skipped in dry-run).
func (r Result) OK() bool {
	return r.Skipped || r.ExitCode == 0
}

// Runner executes commands. Implementations: ExecRunner (real execution),
// DryRunner (record only), and test fakes.
type Runner interface {
	Run(ctx context.Context, cmd Command) Result
}
