package provisioning

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/streamprov/streamprov/internal/command"
	"github.com/streamprov/streamprov/internal/config"
	"github.com/streamprov/streamprov/internal/platform"
)

// Stage is the coarse position of a run in its lifecycle.
type Stage string

const (
	StageInit             Stage = "init"
	StageConfigResolved   Stage = "config-resolved"
	StagePlatformDetected Stage = "platform-detected"
	StagePhasesRunning    Stage = "phases-running"
	StageDeployed         Stage = "deployed"
	StageValidated        Stage = "validated"
)

// Terminal is the final classification of a run.
type Terminal string

const (
	TerminalSuccess          Terminal = "success"
	TerminalFailedRolledBack Terminal = "failed-rolled-back"
	TerminalFailedNoRollback Terminal = "failed-no-rollback"
)

// State tracks the run's mutable bookkeeping. Everything else in the
// context is read-only once the run starts.
type State struct {
	Stage Stage

	// PhasesCompleted counts phases that finished (run, satisfied or
	// degraded), for progress reporting.
	PhasesCompleted int
	PhasesTotal     int

	// ServiceStarted records whether the unit was actually started,
	// which gates health validation.
	ServiceStarted bool

	// Descriptor is populated by the deploy step and consumed by the
	// start, labeling, health and rollback steps.
	Descriptor *Descriptor
}

// RunContext carries everything a phase needs. It is created once per
// run and passed explicitly to every component; there is no ambient
// state.
type RunContext struct {
	context.Context

	Config   config.Configuration
	Profile  *platform.Profile
	Runner   command.Runner
	Errors   *command.ErrorLog
	Observer Observer
	Timeouts *config.Timeouts
	State    *State
}

// NewRunContext assembles a run context.
func NewRunContext(ctx context.Context, cfg config.Configuration, profile *platform.Profile, runner command.Runner, log logr.Logger) *RunContext {
	return &RunContext{
		Context:  ctx,
		Config:   cfg,
		Profile:  profile,
		Runner:   runner,
		Errors:   command.NewErrorLog(),
		Observer: NewLogObserver(log),
		Timeouts: config.LoadTimeouts(),
		State:    &State{Stage: StageInit},
	}
}

// RunCommand executes a command through the context's runner. Non-zero
// exits are returned as *command.Failure; the pipeline records
// propagated failures in the error log exactly once. Callers that
// swallow a failure record their own warning.
func (c *RunContext) RunCommand(phase string, cmd command.Command) error {
	res := c.Runner.Run(c, cmd)
	if res.Skipped {
		c.Observer.Event(Event{Type: EventCommandPlanned, Phase: phase, Message: cmd.String()})
		return nil
	}
	if res.ExitCode != 0 {
		return command.NewFailure(res)
	}
	return nil
}
