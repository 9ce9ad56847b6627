package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/athulya-anil/axon-render/pkg/metrics"
	"github.com/athulya-anil/axon-render/pkg/models"
	"github.com/athulya-anil/axon-render/pkg/queue"
)

// DefaultLogLimit is the number of log lines retained per task.
const DefaultLogLimit = 5000

// Scheduler is the coordination service. It owns the worker registry and
// the task store; every read and write of either goes through mu, so no
// caller can observe a partially applied update. Nothing under mu blocks
// on I/O.
type Scheduler struct {
	mu      sync.Mutex
	workers *WorkerRegistry
	tasks   *queue.TaskQueue

	logger           *slog.Logger
	metrics          *metrics.Recorder
	now              func() time.Time
	newID            func() string
	logLimit         int
	requireAvailable bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithClock overrides the time source used for LastSeen, log and task
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithIDGenerator overrides task id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Scheduler) { s.newID = fn }
}

// WithLogLimit sets how many log lines each task retains.
func WithLogLimit(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.logLimit = n
		}
	}
}

// WithRequireAvailable makes PollForTask hand out work only to registered
// workers whose availability flag is set. Off by default.
func WithRequireAvailable(enabled bool) Option {
	return func(s *Scheduler) { s.requireAvailable = enabled }
}

// New creates a new scheduler instance
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		workers:  NewWorkerRegistry(),
		tasks:    queue.NewTaskQueue(),
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
		logLimit: DefaultLogLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	return s
}

// RegisterWorker creates or replaces a worker and stamps LastSeen.
// Registration is idempotent and always succeeds.
func (s *Scheduler) RegisterWorker(req models.RegisterWorkerRequest) *models.Worker {
	s.mu.Lock()
	w := s.workers.Register(req, s.now()).Clone()
	s.mu.Unlock()

	s.metrics.WorkerRegistered()
	s.logger.Info("worker registered",
		slog.String("worker_id", w.ID),
		slog.String("name", w.Name),
		slog.Bool("available", w.Available),
	)
	return w
}

// UpdateWorker applies a heartbeat. It fails with ErrUnknownWorker when the
// id was never registered.
func (s *Scheduler) UpdateWorker(req models.UpdateWorkerRequest) (*models.Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.workers.Update(req, s.now())
	if err != nil {
		return nil, err
	}
	return w.Clone(), nil
}

// ListWorkers returns a snapshot of all known workers in registration order.
func (s *Scheduler) ListWorkers() []*models.Worker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workers.Snapshot()
}

// Stats summarizes coordinator state for status endpoints.
type Stats struct {
	WorkersTotal     int                       `json:"workers_total"`
	WorkersAvailable int                       `json:"workers_available"`
	TasksTotal       int                       `json:"tasks_total"`
	TasksByStatus    map[models.TaskStatus]int `json:"tasks_by_status"`
}

// Stats returns worker and task counts.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	total, available := s.workers.Counts()
	return Stats{
		WorkersTotal:     total,
		WorkersAvailable: available,
		TasksTotal:       s.tasks.Len(),
		TasksByStatus:    s.tasks.CountByStatus(),
	}
}
