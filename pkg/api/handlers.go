package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/athulya-anil/axon-render/pkg/metrics"
	"github.com/athulya-anil/axon-render/pkg/models"
	"github.com/athulya-anil/axon-render/pkg/scheduler"
	"github.com/athulya-anil/axon-render/pkg/timefmt"
)

// CodeInvalidRequest is reported for payloads that fail to bind.
const CodeInvalidRequest = "invalid_request"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	scheduler.Stats
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// API wraps the scheduler and provides HTTP handlers
type API struct {
	scheduler *scheduler.Scheduler
	reader    sdkmetric.Reader
	logger    *slog.Logger
	started   time.Time
}

// Option configures an API.
type Option func(*API)

// WithMetricsReader exposes the reader's counters on GET /metrics.
func WithMetricsReader(r sdkmetric.Reader) Option {
	return func(a *API) { a.reader = r }
}

// WithLogger sets the logger used for request and error logging.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) { a.logger = l }
}

// NewAPI creates a new API instance
func NewAPI(s *scheduler.Scheduler, opts ...Option) *API {
	a := &API{
		scheduler: s,
		logger:    slog.Default(),
		started:   time.Now(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetupRoutes configures all API routes
func (a *API) SetupRoutes(router gin.IRouter) {
	// Worker endpoints
	router.POST("/workers/register", a.registerWorker)
	router.POST("/workers/:id/heartbeat", a.heartbeat)
	router.GET("/workers", a.listWorkers)
	router.GET("/workers/:id/task", a.pollTask)

	// Task endpoints
	router.POST("/tasks", a.submitTask)
	router.GET("/tasks", a.listTasks)
	router.GET("/tasks/:id", a.getTask)
	router.PATCH("/tasks/:id", a.updateTask)

	// Status endpoints
	router.GET("/status", a.getStatus)
	router.GET("/health", a.healthCheck)
	router.GET("/metrics", a.getMetrics)
}

// registerWorker handles POST /workers/register
func (a *API) registerWorker(c *gin.Context) {
	var req models.RegisterWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}

	c.JSON(http.StatusOK, a.scheduler.RegisterWorker(req))
}

// heartbeat handles POST /workers/:id/heartbeat. An empty body only
// refreshes last_seen.
func (a *API) heartbeat(c *gin.Context) {
	var req models.UpdateWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		a.badRequest(c, err)
		return
	}
	req.ID = c.Param("id")

	w, err := a.scheduler.UpdateWorker(req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// listWorkers handles GET /workers
func (a *API) listWorkers(c *gin.Context) {
	workers := a.scheduler.ListWorkers()
	c.JSON(http.StatusOK, models.ListWorkersResponse{Count: len(workers), Workers: workers})
}

// pollTask handles GET /workers/:id/task
func (a *API) pollTask(c *gin.Context) {
	task, _ := a.scheduler.PollForTask(c.Param("id"))
	c.JSON(http.StatusOK, models.PollTaskResponse{Task: task})
}

// submitTask handles POST /tasks
func (a *API) submitTask(c *gin.Context) {
	var req models.SubmitTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}

	task, err := a.scheduler.SubmitTask(req)
	if err != nil {
		a.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.SubmitTaskResponse{
		TaskID:         task.ID,
		AssignedWorker: task.AssignedWorker,
	})
}

// listTasks handles GET /tasks. ?tail=N keeps only the last N log lines of
// each task.
func (a *API) listTasks(c *gin.Context) {
	tail := -1
	if raw := c.Query("tail"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "tail must be a non-negative integer", Code: CodeInvalidRequest})
			return
		}
		tail = n
	}

	tasks := a.scheduler.ListTasks()
	if tail >= 0 {
		for _, t := range tasks {
			if len(t.Log) > tail {
				t.Log = t.Log[len(t.Log)-tail:]
			}
		}
	}
	c.JSON(http.StatusOK, models.ListTasksResponse{Count: len(tasks), Tasks: tasks})
}

// getTask handles GET /tasks/:id
func (a *API) getTask(c *gin.Context) {
	task, err := a.scheduler.GetTask(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// updateTask handles PATCH /tasks/:id
func (a *API) updateTask(c *gin.Context) {
	var update models.TaskUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		a.badRequest(c, err)
		return
	}
	update.TaskID = c.Param("id")

	if err := a.scheduler.UpdateTask(update); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Ack{OK: true})
}

// getStatus handles GET /status
func (a *API) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Stats:     a.scheduler.Stats(),
		Uptime:    time.Since(a.started).Truncate(time.Second).String(),
		Timestamp: timefmt.NowISO(),
	})
}

// healthCheck handles GET /health
func (a *API) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// getMetrics handles GET /metrics
func (a *API) getMetrics(c *gin.Context) {
	if a.reader == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "metrics disabled"})
		return
	}
	snap, err := metrics.Snapshot(c.Request.Context(), a.reader)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (a *API) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: CodeInvalidRequest})
}

// fail writes err with the status its scheduler sentinel maps to.
func (a *API) fail(c *gin.Context, err error) {
	code := scheduler.ErrorCode(err)
	status := http.StatusInternalServerError
	switch {
	case scheduler.IsNotFound(err):
		status = http.StatusNotFound
	case code != "":
		status = http.StatusBadRequest
	default:
		a.logger.Error("request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()),
		)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}
