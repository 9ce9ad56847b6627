package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/athulya-anil/axon-render/pkg/models"
)

// SubmitTask validates the frame range and stores a new queued task.
//
// The initial pin is resolved as follows: a known worker id is kept even if
// that worker is currently unavailable; empty or "auto" pins the first
// available worker in registration order, or nobody when none is available;
// an unknown id leaves the task unpinned.
func (s *Scheduler) SubmitTask(req models.SubmitTaskRequest) (*models.Task, error) {
	start, end := req.Range()
	if end < start {
		return nil, fmt.Errorf("%w: start %d, end %d", ErrInvalidFrameRange, start, end)
	}

	s.mu.Lock()
	now := s.now()
	task := &models.Task{
		ID:             s.newID(),
		SourcePath:     req.SourcePath,
		FrameStart:     start,
		FrameEnd:       end,
		TotalFrames:    end - start + 1,
		Submitter:      req.Submitter,
		Status:         models.StatusQueued,
		AssignedWorker: s.resolvePinLocked(req.PinnedWorker),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if !s.tasks.Add(task) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrDuplicateTaskID, task.ID)
	}
	out := task.Clone()
	s.mu.Unlock()

	s.metrics.TaskSubmitted(out.AssignedWorker != nil)
	s.logger.Info("task submitted",
		slog.String("task_id", out.ID),
		slog.String("source", out.SourcePath),
		slog.Int("frame_start", start),
		slog.Int("frame_end", end),
		slog.String("assigned_worker", out.AssignedTo()),
	)
	return out, nil
}

func (s *Scheduler) resolvePinLocked(pin string) *string {
	if pin != "" && pin != models.PinAuto {
		if s.workers.Get(pin) == nil {
			return nil
		}
		return &pin
	}
	if w := s.workers.FirstAvailable(); w != nil {
		id := w.ID
		return &id
	}
	return nil
}

// UpdateTask applies a status overwrite, a log line and a partial progress
// update, in any combination. The status is stored in its canonical
// lowercase form. Status transitions are not validated here;
// their ordering is the calling worker's contract. A failed call changes
// nothing.
func (s *Scheduler) UpdateTask(update models.TaskUpdate) error {
	var status models.TaskStatus
	if update.Status != "" {
		st, err := models.ParseTaskStatus(string(update.Status))
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidStatus, update.Status)
		}
		status = st
	}
	if update.Progress != nil {
		if err := validateProgress(update.Progress); err != nil {
			return err
		}
	}

	s.mu.Lock()
	task := s.tasks.Get(update.TaskID)
	if task == nil {
		s.mu.Unlock()
		return ErrUnknownTask
	}

	now := s.now()
	if status != "" {
		task.Status = status
	}
	if update.Log != "" {
		task.Log = append(task.Log, models.LogEntry{Time: now, Line: update.Log})
		if excess := len(task.Log) - s.logLimit; excess > 0 {
			n := copy(task.Log, task.Log[excess:])
			clear(task.Log[n:])
			task.Log = task.Log[:n]
		}
	}
	if update.Progress != nil {
		applyProgress(task, update.Progress)
	}
	task.UpdatedAt = now
	s.mu.Unlock()

	if update.Log != "" {
		s.metrics.LogLine()
	}
	if status != "" {
		s.metrics.StatusChanged(string(status))
		s.logger.Info("task status updated",
			slog.String("task_id", update.TaskID),
			slog.String("status", string(status)),
		)
	}
	return nil
}

func validateProgress(p *models.ProgressUpdate) error {
	if p.TotalFrames.Set && (p.TotalFrames.Value == nil || *p.TotalFrames.Value < 1) {
		return fmt.Errorf("%w: total_frames must be at least 1", ErrInvalidProgress)
	}
	if p.ProgressPercent.Set {
		v := p.ProgressPercent.Value
		if v == nil || *v < 0 || *v > 100 {
			return fmt.Errorf("%w: progress_percent must be within 0-100", ErrInvalidProgress)
		}
	}
	return nil
}

func applyProgress(task *models.Task, p *models.ProgressUpdate) {
	if p.CurrentFrame.Set {
		task.CurrentFrame = copyValue(p.CurrentFrame.Value)
	}
	if p.TotalFrames.Set {
		task.TotalFrames = *p.TotalFrames.Value
	}
	if p.ProgressPercent.Set {
		task.ProgressPercent = *p.ProgressPercent.Value
	}
	if p.EtaSeconds.Set {
		task.EtaSeconds = copyValue(p.EtaSeconds.Value)
	}
}

func copyValue(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// GetTask returns a copy of one task.
func (s *Scheduler) GetTask(taskID string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := s.tasks.Get(taskID)
	if task == nil {
		return nil, ErrUnknownTask
	}
	return task.Clone(), nil
}

// ListTasks returns copies of every task, full logs included, in
// submission order.
func (s *Scheduler) ListTasks() []*models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Task, 0, s.tasks.Len())
	s.tasks.Each(func(task *models.Task) bool {
		out = append(out, task.Clone())
		return true
	})
	return out
}
