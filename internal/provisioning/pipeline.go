package provisioning

import (
	"errors"
	"strconv"
	"time"

	"github.com/streamprov/streamprov/internal/command"
	"github.com/streamprov/streamprov/internal/platform"
	"github.com/streamprov/streamprov/internal/util/retry"
)

// Outcome is the terminal result of a pipeline run.
type Outcome struct {
	Terminal    Terminal
	ExitCode    int
	FailedPhase string
}

// RollbackFunc reverses service-related artifacts after a fatal
// failure. It is invoked at most once per run and never when the
// configuration suppresses rollback.
type RollbackFunc func(ctx *RunContext)

// RunPhases executes the phases strictly in declaration order.
//
// Each phase's idempotency predicate is evaluated first; a satisfied
// phase is reported and skipped, never silently. Warn-critical failures
// are recorded and the run continues; a fatal failure triggers rollback
// (unless suppressed) and terminates the run with exit code 1. A
// missing capability is always a recorded warning regardless of the
// phase's criticality. Progress is reported after every phase.
func RunPhases(ctx *RunContext, phases []Phase, rollback RollbackFunc) Outcome {
	start := time.Now()
	ctx.State.Stage = StagePhasesRunning
	ctx.State.PhasesTotal = len(phases)
	ctx.Observer.Printf("Starting provisioning with %d phases", len(phases))

	for i, phase := range phases {
		phaseStart := time.Now()
		ctx.Observer.Event(Event{Type: EventPhaseStarted, Phase: phase.Name, Message: "starting"})

		if satisfied := checkSatisfied(ctx, phase); satisfied {
			ctx.Observer.Event(Event{Type: EventPhaseSatisfied, Phase: phase.Name, Message: "already satisfied"})
			advance(ctx, i)
			continue
		}

		err := runPhase(ctx, phase)
		if err == nil {
			ctx.Observer.Event(Event{
				Type:    EventPhaseCompleted,
				Phase:   phase.Name,
				Message: "completed",
				Fields:  map[string]string{"duration": time.Since(phaseStart).Round(time.Millisecond).String()},
			})
			if phase.Milestone != "" && !ctx.Config.DryRun {
				ctx.State.Stage = phase.Milestone
			}
			advance(ctx, i)
			continue
		}

		var capMissing *platform.CapabilityMissing
		if errors.As(err, &capMissing) {
			ctx.Errors.RecordWarning(phase.Name, capMissing.Error())
			ctx.Observer.Event(Event{Type: EventPhaseDegraded, Phase: phase.Name, Message: capMissing.Error()})
			advance(ctx, i)
			continue
		}

		if phase.Criticality == Warn {
			recordError(ctx, phase.Name, command.SeverityWarning, err)
			ctx.Observer.Event(Event{Type: EventWarning, Phase: phase.Name, Message: err.Error()})
			advance(ctx, i)
			continue
		}

		recordError(ctx, phase.Name, command.SeverityFatal, err)
		ctx.Observer.Event(Event{Type: EventPhaseFailed, Phase: phase.Name, Message: err.Error()})
		advance(ctx, i)

		return failRun(ctx, phase.Name, rollback)
	}

	ctx.Observer.Printf("Provisioning completed in %v", time.Since(start).Round(time.Millisecond))
	return Outcome{Terminal: TerminalSuccess, ExitCode: 0}
}

// checkSatisfied evaluates the idempotency predicate. Predicates are
// skipped entirely in dry-run mode so every forward action gets
// recorded. A predicate error is reported and treated as unsatisfied;
// running the phase again is safe by construction.
func checkSatisfied(ctx *RunContext, phase Phase) bool {
	if ctx.Config.DryRun || phase.Check == nil {
		return false
	}
	ok, err := phase.Check(ctx)
	if err != nil {
		ctx.Observer.Event(Event{
			Type:    EventWarning,
			Phase:   phase.Name,
			Message: "idempotency check failed, running phase: " + err.Error(),
		})
		return false
	}
	return ok
}

func runPhase(ctx *RunContext, phase Phase) error {
	if !phase.Retryable {
		return phase.Run(ctx)
	}

	return retry.Do(ctx, func() error {
		err := phase.Run(ctx)
		var capMissing *platform.CapabilityMissing
		if errors.As(err, &capMissing) {
			// A subsystem absent now is absent on the next attempt too.
			return retry.Fatal(err)
		}
		return err
	},
		retry.WithMaxAttempts(ctx.Timeouts.RetryMaxAttempts),
		retry.WithDelay(ctx.Timeouts.RetryInitialDelay),
		retry.WithOnRetry(func(attempt int, err error) {
			ctx.Observer.Event(Event{
				Type:    EventPhaseRetrying,
				Phase:   phase.Name,
				Message: err.Error(),
				Fields:  map[string]string{"attempt": strconv.Itoa(attempt)},
			})
		}),
	)
}

func failRun(ctx *RunContext, phaseName string, rollback RollbackFunc) Outcome {
	if ctx.Config.NoRollback || rollback == nil {
		ctx.Observer.Printf("Rollback suppressed; artifacts left in place for inspection")
		return Outcome{Terminal: TerminalFailedNoRollback, ExitCode: 1, FailedPhase: phaseName}
	}

	ctx.Observer.Event(Event{Type: EventRollbackStarted, Message: "reversing service artifacts"})
	rollback(ctx)
	ctx.Observer.Event(Event{Type: EventRollbackCompleted, Message: "rollback finished"})
	return Outcome{Terminal: TerminalFailedRolledBack, ExitCode: 1, FailedPhase: phaseName}
}

// advance bumps the completed counter and reports progress. Progress is
// emitted after every phase regardless of its outcome.
func advance(ctx *RunContext, index int) {
	ctx.State.PhasesCompleted = index + 1
	ctx.Observer.Progress(ctx.State.PhasesCompleted, ctx.State.PhasesTotal)
}

// recordError appends a propagated phase error to the error log,
// preserving the failed command when there is one.
func recordError(ctx *RunContext, phase string, sev command.Severity, err error) {
	var failure *command.Failure
	if errors.As(err, &failure) {
		ctx.Errors.RecordFailure(phase, sev, failure.Result)
		return
	}
	if sev == command.SeverityFatal {
		ctx.Errors.RecordFatal(phase, err.Error())
		return
	}
	ctx.Errors.RecordWarning(phase, err.Error())
}
