package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/athulya-anil/axon-render/pkg/models"
	"github.com/athulya-anil/axon-render/pkg/scheduler"
)

func TestClient_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"healthy"}`))
		}
	}))
	defer server.Close()

	if err := New(server.URL).Health(context.Background()); err != nil {
		t.Errorf("Health check failed: %v", err)
	}
}

func TestClient_SubmitTask(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tasks" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req models.SubmitTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.SourcePath != "shot.blend" || req.FrameStart == nil || *req.FrameStart != 1 || req.PinnedWorker != "w1" {
			t.Errorf("request = %+v", req)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"task_id":"t-1","assigned_worker":"w1"}`))
	}))
	defer server.Close()

	start, end := 1, 24
	resp, err := New(server.URL).SubmitTask(context.Background(), models.SubmitTaskRequest{
		SourcePath:   "shot.blend",
		FrameStart:   &start,
		FrameEnd:     &end,
		PinnedWorker: "w1",
	})
	if err != nil {
		t.Fatalf("SubmitTask: %v", err)
	}
	if resp.TaskID != "t-1" || resp.AssignedWorker == nil || *resp.AssignedWorker != "w1" {
		t.Errorf("response = %+v", resp)
	}
}

func TestClient_PollForTask(t *testing.T) {
	body := `{"task":null}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/workers/w 1/task" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(body))
	}))
	defer server.Close()

	c := New(server.URL)
	task, err := c.PollForTask(context.Background(), "w 1")
	if err != nil || task != nil {
		t.Fatalf("empty poll = %v, %v", task, err)
	}

	body = `{"task":{"id":"t-1","source_path":"a.blend","frame_start":1,"frame_end":2,"total_frames":2,"status":"assigned","assigned_worker":"w 1"}}`
	task, err = c.PollForTask(context.Background(), "w 1")
	if err != nil {
		t.Fatal(err)
	}
	if task == nil || task.ID != "t-1" || task.Status != models.StatusAssigned {
		t.Errorf("task = %+v", task)
	}
}

func TestClient_UpdateTaskSendsExplicitNull(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/tasks/t-1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	err := New(server.URL).UpdateTask(context.Background(), models.TaskUpdate{
		TaskID:   "t-1",
		Status:   models.StatusRunning,
		Progress: &models.ProgressUpdate{CurrentFrame: models.Some(2), EtaSeconds: models.Null[int]()},
	})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	progress, ok := got["progress"].(map[string]any)
	if !ok {
		t.Fatalf("body = %v", got)
	}
	if v, present := progress["eta_seconds"]; !present || v != nil {
		t.Errorf("eta_seconds = %v (present %v), want explicit null", v, present)
	}
	if _, present := progress["total_frames"]; present {
		t.Error("absent field was sent")
	}
	if got["status"] != "running" {
		t.Errorf("status = %v", got["status"])
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"unknown worker", http.StatusNotFound, `{"error":"scheduler: unknown worker","code":"unknown_worker"}`, scheduler.ErrUnknownWorker},
		{"unknown task", http.StatusNotFound, `{"error":"scheduler: unknown task","code":"unknown_task"}`, scheduler.ErrUnknownTask},
		{"frame range", http.StatusBadRequest, `{"error":"bad","code":"invalid_frame_range"}`, scheduler.ErrInvalidFrameRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := New(server.URL).UpdateWorker(context.Background(), models.UpdateWorkerRequest{ID: "w1"})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
			if !IsStatus(err, tt.status) {
				t.Errorf("status not preserved: %v", err)
			}
		})
	}
}

func TestClient_PlainTextError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := New(server.URL).ListWorkers(context.Background())
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("got %T %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Message != "upstream down" {
		t.Errorf("error = %+v", apiErr)
	}
	if errors.Is(err, scheduler.ErrUnknownTask) {
		t.Error("plain error should not map to a sentinel")
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := New(server.URL, WithTimeout(50*time.Millisecond)).ListTasks(context.Background(), -1)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

type countingTransport struct {
	calls int
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls++
	return http.DefaultTransport.RoundTrip(r)
}

func TestClient_WithHTTPClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"count":0,"workers":[]}`))
	}))
	defer server.Close()

	transport := &countingTransport{}
	c := New(server.URL, WithHTTPClient(&http.Client{Transport: transport}), WithTimeout(time.Second))
	workers, err := c.ListWorkers(context.Background())
	if err != nil {
		t.Fatalf("ListWorkers: %v", err)
	}
	if len(workers) != 0 {
		t.Errorf("workers = %+v", workers)
	}
	if transport.calls != 1 {
		t.Errorf("transport calls = %d, want 1", transport.calls)
	}
}
