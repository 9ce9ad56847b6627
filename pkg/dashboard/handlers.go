// Package dashboard streams coordinator state to browsers and terminal
// watchers over Server-Sent Events.
package dashboard

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/athulya-anil/axon-render/pkg/models"
	"github.com/athulya-anil/axon-render/pkg/scheduler"
)

// DefaultInterval is how often each stream pushes a fresh snapshot.
const DefaultInterval = time.Second

// Dashboard provides the live event streams.
type Dashboard struct {
	scheduler *scheduler.Scheduler
	interval  time.Duration
	logger    *slog.Logger
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithInterval sets the push interval for every stream.
func WithInterval(d time.Duration) Option {
	return func(db *Dashboard) {
		if d > 0 {
			db.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(db *Dashboard) { db.logger = l }
}

// NewDashboard creates a new dashboard instance
func NewDashboard(s *scheduler.Scheduler, opts ...Option) *Dashboard {
	d := &Dashboard{
		scheduler: s,
		interval:  DefaultInterval,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetupRoutes configures dashboard routes
func (d *Dashboard) SetupRoutes(router gin.IRouter) {
	router.GET("/events/tasks", d.tasksSSE)
	router.GET("/events/workers", d.workersSSE)
	router.GET("/events/status", d.statusSSE)
}

// StatusEvent is the payload of the status stream.
type StatusEvent struct {
	scheduler.Stats
	Timestamp time.Time `json:"timestamp"`
}

// taskSummaries drops logs; the stream only needs progress columns.
func (d *Dashboard) taskSummaries() any {
	tasks := d.scheduler.ListTasks()
	out := make([]*models.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Summary()
	}
	return out
}

func (d *Dashboard) workers() any {
	return d.scheduler.ListWorkers()
}

func (d *Dashboard) status() any {
	return StatusEvent{Stats: d.scheduler.Stats(), Timestamp: time.Now().UTC()}
}
