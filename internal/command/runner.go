package command

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// ExecRunner executes commands on the local host via os/exec.
type ExecRunner struct{}

// NewExecRunner creates a runner that really executes commands.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command and captures combined output and exit status.
// A command that cannot be started at all (binary missing, permission
// denied) is reported with exit code 127 and the error text as output,
// matching shell conventions so the error log stays uniform.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) Result {
	start := time.Now()

	// #nosec G204 -- argv comes from the static phase catalog, never from input
	c := exec.CommandContext(ctx, cmd.Name, cmd.Argv...)
	if cmd.Stdin != "" {
		c.Stdin = strings.NewReader(cmd.Stdin)
	}

	out, err := c.CombinedOutput()
	result := Result{
		Command:  cmd,
		Output:   string(out),
		Start:    start,
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = 127
			if result.Output == "" {
				result.Output = err.Error()
			}
		}
	}

	return result
}

// DryRunner records command descriptors without executing anything.
type DryRunner struct {
	// Recorded accumulates every command that would have run, in order.
	Recorded []Command
}

// NewDryRunner creates a runner for dry-run mode.
func NewDryRunner() *DryRunner {
	return &DryRunner{}
}

// Run records the command and reports success without executing it.
func (r *DryRunner) Run(_ context.Context, cmd Command) Result {
	r.Recorded = append(r.Recorded, cmd)
	return Result{
		Command: cmd,
		Start:   time.Now(),
		Skipped: true,
	}
}
