// Package metrics records coordinator activity with OpenTelemetry
// instruments. Without a configured MeterProvider the global noop provider
// is used and every call is a pass-through.
//
// Instruments:
//   - axonrender.workers.registered (Int64Counter)
//   - axonrender.tasks.submitted (Int64Counter), attribute pinned
//   - axonrender.tasks.claimed (Int64Counter), attribute pinned
//   - axonrender.polls.empty (Int64Counter)
//   - axonrender.tasks.status (Int64Counter), attribute status
//   - axonrender.task.log_lines (Int64Counter)
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for coordinator metrics.
const meterName = "github.com/athulya-anil/axon-render"

// Recorder holds the coordinator instruments. Safe for concurrent use.
type Recorder struct {
	registered metric.Int64Counter
	submitted  metric.Int64Counter
	claimed    metric.Int64Counter
	emptyPolls metric.Int64Counter
	statuses   metric.Int64Counter
	logLines   metric.Int64Counter
}

// New returns a Recorder backed by the global MeterProvider.
func New() *Recorder {
	return NewWithMeter(otel.Meter(meterName))
}

// NewWithMeter returns a Recorder using the provided meter.
func NewWithMeter(meter metric.Meter) *Recorder {
	// On error the API hands back noop instruments, so errors are ignored.
	registered, _ := meter.Int64Counter("axonrender.workers.registered",
		metric.WithDescription("Worker registrations, including re-registrations"),
		metric.WithUnit("{registration}"))
	submitted, _ := meter.Int64Counter("axonrender.tasks.submitted",
		metric.WithDescription("Render tasks accepted by the coordinator"),
		metric.WithUnit("{task}"))
	claimed, _ := meter.Int64Counter("axonrender.tasks.claimed",
		metric.WithDescription("Tasks handed to a polling worker"),
		metric.WithUnit("{task}"))
	emptyPolls, _ := meter.Int64Counter("axonrender.polls.empty",
		metric.WithDescription("Polls that found no task for the worker"),
		metric.WithUnit("{poll}"))
	statuses, _ := meter.Int64Counter("axonrender.tasks.status",
		metric.WithDescription("Status overwrites reported by workers"),
		metric.WithUnit("{update}"))
	logLines, _ := meter.Int64Counter("axonrender.task.log_lines",
		metric.WithDescription("Render log lines appended to tasks"),
		metric.WithUnit("{line}"))

	return &Recorder{
		registered: registered,
		submitted:  submitted,
		claimed:    claimed,
		emptyPolls: emptyPolls,
		statuses:   statuses,
		logLines:   logLines,
	}
}

func (r *Recorder) WorkerRegistered() {
	r.registered.Add(context.Background(), 1)
}

func (r *Recorder) TaskSubmitted(pinned bool) {
	r.submitted.Add(context.Background(), 1, metric.WithAttributes(attribute.Bool("pinned", pinned)))
}

func (r *Recorder) TaskClaimed(pinned bool) {
	r.claimed.Add(context.Background(), 1, metric.WithAttributes(attribute.Bool("pinned", pinned)))
}

func (r *Recorder) EmptyPoll() {
	r.emptyPolls.Add(context.Background(), 1)
}

func (r *Recorder) StatusChanged(status string) {
	r.statuses.Add(context.Background(), 1, metric.WithAttributes(attribute.String("status", status)))
}

func (r *Recorder) LogLine() {
	r.logLines.Add(context.Background(), 1)
}
