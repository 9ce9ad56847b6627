package models

import (
	"encoding/json"
	"testing"
)

func TestProgressUpdateAbsentVersusNull(t *testing.T) {
	var p ProgressUpdate
	if err := json.Unmarshal([]byte(`{"current_frame":3,"eta_seconds":null}`), &p); err != nil {
		t.Fatal(err)
	}

	if !p.CurrentFrame.Set || p.CurrentFrame.Value == nil || *p.CurrentFrame.Value != 3 {
		t.Errorf("current_frame = %+v", p.CurrentFrame)
	}
	if !p.EtaSeconds.Set || p.EtaSeconds.Value != nil {
		t.Errorf("eta_seconds = %+v, want explicit null", p.EtaSeconds)
	}
	if p.TotalFrames.Set || p.ProgressPercent.Set {
		t.Error("absent fields reported as set")
	}
	if p.IsZero() {
		t.Error("IsZero() = true for a populated update")
	}
}

func TestProgressUpdateOmitsAbsentFields(t *testing.T) {
	data, err := json.Marshal(ProgressUpdate{
		ProgressPercent: Some(30.0),
		EtaSeconds:      Null[int](),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), `{"progress_percent":30,"eta_seconds":null}`; got != want {
		t.Errorf("Marshal = %s, want %s", got, want)
	}
	if !(ProgressUpdate{}).IsZero() {
		t.Error("empty update is not zero")
	}
}

func TestParseTaskStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    TaskStatus
		wantErr bool
	}{
		{"queued", StatusQueued, false},
		{" Running ", StatusRunning, false},
		{"DONE", StatusDone, false},
		{"error", StatusError, false},
		{"cancelled", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseTaskStatus(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseTaskStatus(%q) = %q, %v", tt.in, got, err)
		}
	}

	if StatusRunning.IsTerminal() || !StatusDone.IsTerminal() || !StatusError.IsTerminal() {
		t.Error("IsTerminal mismatch")
	}
}

func TestTaskCloneIsDeep(t *testing.T) {
	w, frame := "w1", 4
	task := &Task{ID: "t1", AssignedWorker: &w, CurrentFrame: &frame, Log: []LogEntry{{Line: "a"}}}

	cp := task.Clone()
	*cp.AssignedWorker = "w2"
	*cp.CurrentFrame = 9
	cp.Log[0].Line = "b"
	if *task.AssignedWorker != "w1" || *task.CurrentFrame != 4 || task.Log[0].Line != "a" {
		t.Errorf("clone shares state: %+v", task)
	}

	if s := task.Summary(); s.Log != nil || s.AssignedTo() != "w1" {
		t.Errorf("Summary() = %+v", s)
	}
}

func TestSubmitTaskRequestRange(t *testing.T) {
	start, end := 5, 9
	tests := []struct {
		req                SubmitTaskRequest
		wantStart, wantEnd int
	}{
		{SubmitTaskRequest{}, 1, 1},
		{SubmitTaskRequest{FrameStart: &start}, 5, 5},
		{SubmitTaskRequest{FrameStart: &start, FrameEnd: &end}, 5, 9},
		{SubmitTaskRequest{FrameEnd: &end}, 1, 9},
	}
	for _, tt := range tests {
		s, e := tt.req.Range()
		if s != tt.wantStart || e != tt.wantEnd {
			t.Errorf("Range() = %d, %d, want %d, %d", s, e, tt.wantStart, tt.wantEnd)
		}
	}
}
