package command

import (
	"context"
	"strings"
	"sync"
)

// FakeRunner is a scripted Runner for tests. Responses are matched by
// command prefix (binary name plus leading arguments); unmatched commands
// succeed with empty output. All invocations are recorded in order.
type FakeRunner struct {
	mu sync.Mutex

	// RunFunc, when set, overrides scripted matching entirely.
	RunFunc func(ctx context.Context, cmd Command) Result

	// Responses maps a command-line prefix to the scripted result.
	// The longest matching prefix wins.
	Responses map[string]Result

	// Calls records every command in invocation order.
	Calls []Command
}

// NewFakeRunner creates an empty fake runner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{Responses: make(map[string]Result)}
}

// Respond scripts a result for commands starting with the given prefix.
func (f *FakeRunner) Respond(prefix string, exitCode int, output string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses[prefix] = Result{ExitCode: exitCode, Output: output}
}

// Run implements Runner.
func (f *FakeRunner) Run(ctx context.Context, cmd Command) Result {
	f.mu.Lock()
	f.Calls = append(f.Calls, cmd)
	f.mu.Unlock()

	if f.RunFunc != nil {
		return f.RunFunc(ctx, cmd)
	}

	line := cmd.String()
	var best string
	var res Result
	f.mu.Lock()
	for prefix, r := range f.Responses {
		if strings.HasPrefix(line, prefix) && len(prefix) > len(best) {
			best = prefix
			res = r
		}
	}
	f.mu.Unlock()

	res.Command = cmd
	return res
}

// CallLines returns the recorded invocations as rendered command lines.
func (f *FakeRunner) CallLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		lines[i] = c.String()
	}
	return lines
}
