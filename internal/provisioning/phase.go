package provisioning

// Criticality controls how a phase failure affects the run.
type Criticality string

const (
	// Fatal aborts the run and triggers rollback.
	Fatal Criticality = "fatal"
	// Warn records the failure and continues with the next phase.
	Warn Criticality = "warn"
)

// Phase is one named, ordered step of the provisioning pipeline. Phases
// are declared once, statically, and executed strictly in declaration
// order.
type Phase struct {
	// Name identifies the phase in progress output and the error log.
	Name string

	// Criticality decides fatal-vs-warn on failure.
	Criticality Criticality

	// Check is the idempotency predicate: when it reports true the
	// phase is announced as already satisfied and not re-run. A nil
	// Check always runs. Predicates are not consulted in dry-run mode,
	// where every forward action is recorded instead.
	Check func(ctx *RunContext) (bool, error)

	// Run is the forward action.
	Run func(ctx *RunContext) error

	// Retryable marks phases whose forward action depends on the
	// network; they run under the bounded retry policy.
	Retryable bool

	// Milestone, when set, is the run stage reached after the phase
	// completes. Dry runs never advance milestones.
	Milestone Stage
}
