package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// TaskStatus is the lifecycle state of a render task.
type TaskStatus string

const (
	StatusQueued   TaskStatus = "queued"
	StatusAssigned TaskStatus = "assigned"
	StatusRunning  TaskStatus = "running"
	StatusDone     TaskStatus = "done"
	StatusError    TaskStatus = "error"
)

// ParseTaskStatus converts a wire value into a TaskStatus.
func ParseTaskStatus(value string) (TaskStatus, error) {
	switch s := TaskStatus(strings.ToLower(strings.TrimSpace(value))); s {
	case StatusQueued, StatusAssigned, StatusRunning, StatusDone, StatusError:
		return s, nil
	default:
		return "", fmt.Errorf("invalid task status %q", value)
	}
}

// IsTerminal reports whether no further transition is expected.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusDone || s == StatusError
}

// LogEntry is one timestamped line of render output.
type LogEntry struct {
	Time time.Time `json:"t"`
	Line string    `json:"line"`
}

// Task is one render job covering the inclusive frame range [FrameStart, FrameEnd].
type Task struct {
	ID              string     `json:"id"`
	SourcePath      string     `json:"source_path"`
	FrameStart      int        `json:"frame_start"`
	FrameEnd        int        `json:"frame_end"`
	TotalFrames     int        `json:"total_frames"`
	Submitter       string     `json:"submitter"`
	Status          TaskStatus `json:"status"`
	AssignedWorker  *string    `json:"assigned_worker"` // pin while queued, binding once assigned
	Log             []LogEntry `json:"log"`
	CurrentFrame    *int       `json:"current_frame"`
	ProgressPercent float64    `json:"progress_percent"`
	EtaSeconds      *int       `json:"eta_seconds"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Clone returns a deep copy of t.
func (t *Task) Clone() *Task {
	cp := *t
	cp.AssignedWorker = clonePtr(t.AssignedWorker)
	cp.CurrentFrame = clonePtr(t.CurrentFrame)
	cp.EtaSeconds = clonePtr(t.EtaSeconds)
	cp.Log = slices.Clone(t.Log)
	return &cp
}

// Summary returns a copy of t without its log.
func (t *Task) Summary() *Task {
	cp := *t
	cp.AssignedWorker = clonePtr(t.AssignedWorker)
	cp.CurrentFrame = clonePtr(t.CurrentFrame)
	cp.EtaSeconds = clonePtr(t.EtaSeconds)
	cp.Log = nil
	return &cp
}

// AssignedTo returns the assigned worker id, or "" when unset.
func (t *Task) AssignedTo() string {
	if t.AssignedWorker == nil {
		return ""
	}
	return *t.AssignedWorker
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
