package models

// PinAuto asks the coordinator to pin the first available worker at submission.
const PinAuto = "auto"

// RegisterWorkerRequest is the payload for worker registration.
type RegisterWorkerRequest struct {
	ID        string            `json:"id" binding:"required"`
	Name      string            `json:"name"`
	Available bool              `json:"available"`
	Info      map[string]string `json:"info,omitempty"`
}

// UpdateWorkerRequest is a heartbeat. Nil fields are left untouched.
type UpdateWorkerRequest struct {
	ID        string            `json:"id"`
	Available *bool             `json:"available,omitempty"`
	Name      *string           `json:"name,omitempty"`
	Info      map[string]string `json:"info,omitempty"`
}

// SubmitTaskRequest is the payload for task submission. FrameStart defaults
// to 1 and FrameEnd to FrameStart when omitted.
type SubmitTaskRequest struct {
	SourcePath   string `json:"source_path" binding:"required"`
	FrameStart   *int   `json:"frame_start,omitempty"`
	FrameEnd     *int   `json:"frame_end,omitempty"`
	Submitter    string `json:"submitter"`
	PinnedWorker string `json:"pinned_worker,omitempty"` // worker id, "auto" or empty
}

// Range resolves the requested frame range with defaults applied.
func (r SubmitTaskRequest) Range() (start, end int) {
	start = 1
	if r.FrameStart != nil {
		start = *r.FrameStart
	}
	end = start
	if r.FrameEnd != nil {
		end = *r.FrameEnd
	}
	return start, end
}

// SubmitTaskResponse reports the new task id and the resolved pin.
type SubmitTaskResponse struct {
	TaskID         string  `json:"task_id"`
	AssignedWorker *string `json:"assigned_worker"`
}

// PollTaskRequest asks for work on behalf of a worker.
type PollTaskRequest struct {
	WorkerID string `json:"worker_id"`
}

// PollTaskResponse carries the claimed task, or nil when none is available.
type PollTaskResponse struct {
	Task *Task `json:"task"`
}

// ProgressUpdate is a partial overwrite of a task's progress fields.
// Absent fields are left untouched; an explicit null clears nullable fields.
type ProgressUpdate struct {
	CurrentFrame    Optional[int]     `json:"current_frame,omitzero"`
	TotalFrames     Optional[int]     `json:"total_frames,omitzero"`
	ProgressPercent Optional[float64] `json:"progress_percent,omitzero"`
	EtaSeconds      Optional[int]     `json:"eta_seconds,omitzero"`
}

// IsZero reports whether the update carries no fields.
func (p ProgressUpdate) IsZero() bool {
	return !p.CurrentFrame.Set && !p.TotalFrames.Set && !p.ProgressPercent.Set && !p.EtaSeconds.Set
}

// TaskUpdate is the payload of an update-task call. Every part is optional
// and applied independently.
type TaskUpdate struct {
	TaskID   string          `json:"task_id,omitempty"`
	Status   TaskStatus      `json:"status,omitempty"`
	Log      string          `json:"log,omitempty"`
	Progress *ProgressUpdate `json:"progress,omitempty"`
}

// ListWorkersResponse wraps a worker snapshot.
type ListWorkersResponse struct {
	Count   int       `json:"count"`
	Workers []*Worker `json:"workers"`
}

// ListTasksResponse wraps a task snapshot.
type ListTasksResponse struct {
	Count int     `json:"count"`
	Tasks []*Task `json:"tasks"`
}

// Empty is used for calls without a payload.
type Empty struct{}

// Ack acknowledges a mutating call.
type Ack struct {
	OK bool `json:"ok"`
}
