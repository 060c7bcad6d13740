package provisioning

import (
	"fmt"

	"github.com/go-logr/logr"
)

// EventType classifies a structured provisioning event.
type EventType string

const (
	// EventPhaseStarted indicates a phase has started executing.
	EventPhaseStarted EventType = "phase.started"
	// EventPhaseCompleted indicates a phase completed successfully.
	EventPhaseCompleted EventType = "phase.completed"
	// EventPhaseFailed indicates a phase failed.
	EventPhaseFailed EventType = "phase.failed"
	// EventPhaseSatisfied indicates a phase's desired state already held.
	EventPhaseSatisfied EventType = "phase.satisfied"
	// EventPhaseRetrying indicates a retryable phase is backing off.
	EventPhaseRetrying EventType = "phase.retrying"
	// EventPhaseDegraded indicates a phase was skipped for a missing capability.
	EventPhaseDegraded EventType = "phase.degraded"
	// EventCommandPlanned indicates a dry-run recorded a command.
	EventCommandPlanned EventType = "command.planned"
	// EventRollbackStarted indicates rollback began.
	EventRollbackStarted EventType = "rollback.started"
	// EventRollbackCompleted indicates rollback finished.
	EventRollbackCompleted EventType = "rollback.completed"
	// EventWarning indicates a recorded, non-fatal degradation.
	EventWarning EventType = "warning"
)

// Event is a structured provisioning event.
type Event struct {
	Type    EventType
	Phase   string
	Message string
	Fields  map[string]string
}

// Observer receives structured events and progress during a run.
type Observer interface {
	// Printf emits an unstructured progress message.
	Printf(format string, v ...interface{})

	// Event emits a structured event.
	Event(event Event)

	// Progress reports completed/total after every phase, success or
	// not, so operators can estimate remaining work.
	Progress(completed, total int)
}

// LogObserver writes events through the run transcript logger.
type LogObserver struct {
	log logr.Logger
}

// NewLogObserver creates an observer backed by the given logger.
func NewLogObserver(log logr.Logger) *LogObserver {
	return &LogObserver{log: log}
}

// Printf implements Observer.
func (o *LogObserver) Printf(format string, v ...interface{}) {
	o.log.Info(fmt.Sprintf(format, v...))
}

// Event implements Observer.
func (o *LogObserver) Event(event Event) {
	kv := []interface{}{"event", string(event.Type)}
	if event.Phase != "" {
		kv = append(kv, "phase", event.Phase)
	}
	for k, v := range event.Fields {
		kv = append(kv, k, v)
	}
	o.log.Info(event.Message, kv...)
}

// Progress implements Observer.
func (o *LogObserver) Progress(completed, total int) {
	o.log.Info(fmt.Sprintf("progress %d/%d", completed, total))
}

// RecordingObserver captures events for assertions in tests.
type RecordingObserver struct {
	Events     []Event
	Messages   []string
	ProgressAt [][2]int
}

// Printf implements Observer.
func (o *RecordingObserver) Printf(format string, v ...interface{}) {
	o.Messages = append(o.Messages, fmt.Sprintf(format, v...))
}

// Event implements Observer.
func (o *RecordingObserver) Event(event Event) {
	o.Events = append(o.Events, event)
}

// Progress implements Observer.
func (o *RecordingObserver) Progress(completed, total int) {
	o.ProgressAt = append(o.ProgressAt, [2]int{completed, total})
}

// EventsOfType filters captured events.
func (o *RecordingObserver) EventsOfType(t EventType) []Event {
	var out []Event
	for _, e := range o.Events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
