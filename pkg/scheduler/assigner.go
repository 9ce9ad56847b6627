package scheduler

import (
	"log/slog"

	"github.com/athulya-anil/axon-render/pkg/models"
)

// PollForTask hands the polling worker at most one queued task and marks it
// assigned. Tasks pinned to workerID are preferred over unpinned ones, and a
// task pinned to another worker is never returned. The second return value
// is false when nothing is available.
//
// Unless WithRequireAvailable is set, the worker's own availability flag is
// not consulted and unregistered ids may poll.
func (s *Scheduler) PollForTask(workerID string) (*models.Task, bool) {
	s.mu.Lock()
	task, pinned := s.claimLocked(workerID)
	var out *models.Task
	if task != nil {
		out = task.Clone()
	}
	s.mu.Unlock()

	if out == nil {
		s.metrics.EmptyPoll()
		return nil, false
	}

	s.metrics.TaskClaimed(pinned)
	s.logger.Info("task assigned",
		slog.String("task_id", out.ID),
		slog.String("worker_id", workerID),
		slog.Bool("pinned", pinned),
	)
	return out, true
}

// claimLocked runs the two-pass scan. It reports whether the claimed task
// was pinned to the worker.
func (s *Scheduler) claimLocked(workerID string) (*models.Task, bool) {
	if s.requireAvailable {
		w := s.workers.Get(workerID)
		if w == nil || !w.Available {
			return nil, false
		}
	}

	// Pass 1: tasks pinned to this worker.
	task := s.tasks.Find(func(t *models.Task) bool {
		return t.Status == models.StatusQueued && t.AssignedWorker != nil && *t.AssignedWorker == workerID
	})
	pinned := task != nil

	// Pass 2: anonymous tasks.
	if task == nil {
		task = s.tasks.Find(func(t *models.Task) bool {
			return t.Status == models.StatusQueued && t.AssignedWorker == nil
		})
	}
	if task == nil {
		return nil, false
	}

	id := workerID
	task.AssignedWorker = &id
	task.Status = models.StatusAssigned
	task.UpdatedAt = s.now()
	return task, pinned
}
