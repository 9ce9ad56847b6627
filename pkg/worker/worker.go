// Package worker implements the render node agent: it registers with the
// coordinator, keeps its heartbeat fresh, claims tasks and streams renderer
// output back as log lines and progress.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/athulya-anil/axon-render/pkg/estimator"
	"github.com/athulya-anil/axon-render/pkg/models"
)

// Coordinator is the subset of the coordinator API the agent drives. Both
// the REST client and the gRPC client satisfy it.
type Coordinator interface {
	RegisterWorker(ctx context.Context, req models.RegisterWorkerRequest) (*models.Worker, error)
	UpdateWorker(ctx context.Context, req models.UpdateWorkerRequest) (*models.Worker, error)
	PollForTask(ctx context.Context, workerID string) (*models.Task, error)
	UpdateTask(ctx context.Context, update models.TaskUpdate) error
}

// Runner executes one task, calling onLine for every output line in
// order. It returns nil when the render exits cleanly, an *ExitError for a
// non-zero exit, and any other error when the render could not be started.
type Runner interface {
	Run(ctx context.Context, task *models.Task, onLine func(line string)) error
}

// Observer receives local notifications about the task being rendered.
type Observer interface {
	TaskStarted(task *models.Task)
	TaskLog(task *models.Task, line string)
	TaskProgress(task *models.Task, progress estimator.Progress)
	TaskFinished(task *models.Task, status models.TaskStatus, err error)
}

// Agent represents a render node that executes one task at a time.
type Agent struct {
	ID   string
	Name string

	coordinator Coordinator
	runner      Runner
	observer    Observer
	logger      *slog.Logger
	info        map[string]string

	available atomic.Bool
	wake      chan struct{}

	heartbeatInterval   time.Duration
	idleInterval        time.Duration
	unavailableInterval time.Duration
	errorBackoff        time.Duration
	requestTimeout      time.Duration
	frameWindow         int
	now                 func() time.Time
}

// Option configures an Agent.
type Option func(*Agent)

// WithName sets the display name. It defaults to the id.
func WithName(name string) Option {
	return func(a *Agent) { a.Name = name }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// WithObserver sets the local progress observer.
func WithObserver(o Observer) Option {
	return func(a *Agent) { a.observer = o }
}

// WithAvailable sets the initial availability. Agents start available.
func WithAvailable(v bool) Option {
	return func(a *Agent) { a.available.Store(v) }
}

// WithInfo attaches host metadata sent at registration.
func WithInfo(info map[string]string) Option {
	return func(a *Agent) { a.info = maps.Clone(info) }
}

// WithHeartbeatInterval sets how often availability is reported.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(a *Agent) { a.heartbeatInterval = d }
}

// WithIdleInterval sets the pause after a poll that found no task.
func WithIdleInterval(d time.Duration) Option {
	return func(a *Agent) { a.idleInterval = d }
}

// WithUnavailableInterval sets how often an unavailable agent rechecks
// its flag.
func WithUnavailableInterval(d time.Duration) Option {
	return func(a *Agent) { a.unavailableInterval = d }
}

// WithErrorBackoff sets the pause after a failed coordinator call.
func WithErrorBackoff(d time.Duration) Option {
	return func(a *Agent) { a.errorBackoff = d }
}

// WithRequestTimeout bounds each coordinator call.
func WithRequestTimeout(d time.Duration) Option {
	return func(a *Agent) { a.requestTimeout = d }
}

// WithFrameWindow sets the estimator's sliding window.
func WithFrameWindow(n int) Option {
	return func(a *Agent) { a.frameWindow = n }
}

// WithClock overrides the estimator time source.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

// NewAgent creates a new agent instance
func NewAgent(id string, coordinator Coordinator, runner Runner, opts ...Option) *Agent {
	a := &Agent{
		ID:                  id,
		coordinator:         coordinator,
		runner:              runner,
		observer:            nopObserver{},
		logger:              slog.Default(),
		wake:                make(chan struct{}, 1),
		heartbeatInterval:   2 * time.Second,
		idleInterval:        800 * time.Millisecond,
		unavailableInterval: time.Second,
		errorBackoff:        2 * time.Second,
		requestTimeout:      4 * time.Second,
		frameWindow:         estimator.DefaultWindow,
		now:                 time.Now,
	}
	a.available.Store(true)
	for _, opt := range opts {
		opt(a)
	}
	if a.Name == "" {
		a.Name = a.ID
	}
	return a
}

// Available reports the agent's availability flag.
func (a *Agent) Available() bool {
	return a.available.Load()
}

// SetAvailable changes availability and pushes a heartbeat immediately.
// A render already in progress is not interrupted.
func (a *Agent) SetAvailable(v bool) {
	a.available.Store(v)
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// ToggleAvailable flips availability and returns the new value.
func (a *Agent) ToggleAvailable() bool {
	for {
		old := a.available.Load()
		if a.available.CompareAndSwap(old, !old) {
			a.SetAvailable(!old)
			return !old
		}
	}
}

// Run registers the agent and runs the heartbeat and work loops until ctx
// is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.register(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		newHeartbeatSender(a).Run(ctx)
		return nil
	})
	g.Go(func() error {
		a.workLoop(ctx)
		return nil
	})
	return g.Wait()
}

// register retries until the coordinator accepts the agent or ctx ends.
func (a *Agent) register(ctx context.Context) error {
	for {
		reqCtx, cancel := context.WithTimeout(ctx, a.requestTimeout)
		_, err := a.coordinator.RegisterWorker(reqCtx, a.registration())
		cancel()
		if err == nil {
			a.logger.Info("worker registered",
				slog.String("worker_id", a.ID),
				slog.String("name", a.Name),
				slog.Bool("available", a.Available()),
			)
			return nil
		}

		a.logger.Warn("registration failed", slog.String("worker_id", a.ID), slog.String("error", err.Error()))
		if !sleep(ctx, a.errorBackoff) {
			return ctx.Err()
		}
	}
}

func (a *Agent) registration() models.RegisterWorkerRequest {
	return models.RegisterWorkerRequest{
		ID:        a.ID,
		Name:      a.Name,
		Available: a.Available(),
		Info:      a.info,
	}
}

func (a *Agent) workLoop(ctx context.Context) {
	for ctx.Err() == nil {
		if !a.Available() {
			sleep(ctx, a.unavailableInterval)
			continue
		}

		reqCtx, cancel := context.WithTimeout(ctx, a.requestTimeout)
		task, err := a.coordinator.PollForTask(reqCtx, a.ID)
		cancel()
		if err != nil {
			if ctx.Err() == nil {
				a.logger.Warn("poll failed", slog.String("worker_id", a.ID), slog.String("error", err.Error()))
			}
			sleep(ctx, a.errorBackoff)
			continue
		}
		if task == nil {
			sleep(ctx, a.idleInterval)
			continue
		}

		a.execute(ctx, task)
	}
}

// execute runs one claimed task to a terminal status.
func (a *Agent) execute(ctx context.Context, task *models.Task) {
	a.logger.Info("task started",
		slog.String("worker_id", a.ID),
		slog.String("task_id", task.ID),
		slog.String("source", task.SourcePath),
	)
	a.post(ctx, models.TaskUpdate{
		TaskID: task.ID,
		Status: models.StatusRunning,
		Log:    fmt.Sprintf("Worker %s started task.", a.Name),
	})
	a.observer.TaskStarted(task)

	est := estimator.New(task.FrameStart, task.FrameEnd,
		estimator.WithWindow(a.frameWindow),
		estimator.WithClock(a.now),
	)
	runErr := a.runner.Run(ctx, task, func(line string) {
		if line == "" {
			return
		}
		a.post(ctx, models.TaskUpdate{TaskID: task.ID, Log: line})
		a.observer.TaskLog(task, line)

		progress, ok := est.Observe(line)
		if !ok {
			return
		}
		update := progress.Update()
		a.post(ctx, models.TaskUpdate{TaskID: task.ID, Progress: &update})
		a.observer.TaskProgress(task, progress)
	})

	status, line := outcome(runErr)
	// The terminal status goes out even when shutdown cancelled the render.
	a.post(context.WithoutCancel(ctx), models.TaskUpdate{TaskID: task.ID, Status: status, Log: line})
	a.observer.TaskFinished(task, status, runErr)

	attrs := []any{
		slog.String("worker_id", a.ID),
		slog.String("task_id", task.ID),
		slog.String("status", string(status)),
	}
	if runErr != nil {
		a.logger.Warn("task finished", append(attrs, slog.String("error", runErr.Error()))...)
	} else {
		a.logger.Info("task finished", attrs...)
	}
}

func outcome(err error) (models.TaskStatus, string) {
	var exitErr *ExitError
	switch {
	case err == nil:
		return models.StatusDone, "Worker finished: exit 0"
	case errors.As(err, &exitErr):
		return models.StatusError, fmt.Sprintf("Worker finished with error: exit %d", exitErr.Code)
	default:
		return models.StatusError, fmt.Sprintf("Failed to start renderer: %v", err)
	}
}

// post sends an update and logs failures; a lost log line or progress
// update does not stop the render.
func (a *Agent) post(ctx context.Context, update models.TaskUpdate) {
	reqCtx, cancel := context.WithTimeout(ctx, a.requestTimeout)
	defer cancel()
	if err := a.coordinator.UpdateTask(reqCtx, update); err != nil {
		a.logger.Warn("task update failed",
			slog.String("task_id", update.TaskID),
			slog.String("error", err.Error()),
		)
	}
}

// sleep waits for d or until ctx ends, reporting false in the latter case.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

type nopObserver struct{}

func (nopObserver) TaskStarted(*models.Task)                            {}
func (nopObserver) TaskLog(*models.Task, string)                        {}
func (nopObserver) TaskProgress(*models.Task, estimator.Progress)       {}
func (nopObserver) TaskFinished(*models.Task, models.TaskStatus, error) {}
