package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/athulya-anil/axon-render/pkg/models"
)

func TestWorkerRegistryLifecycle(t *testing.T) {
	s, clock := newTestScheduler()

	w := s.RegisterWorker(models.RegisterWorkerRequest{ID: "worker-1", Name: "node-a", Available: true})
	if !w.Available || w.Name != "node-a" {
		t.Fatalf("unexpected worker after register: %+v", w)
	}
	firstSeen := w.LastSeen

	clock.Advance(5 * time.Second)
	updated, err := s.UpdateWorker(models.UpdateWorkerRequest{ID: "worker-1", Available: boolPtr(false)})
	if err != nil {
		t.Fatalf("UpdateWorker: %v", err)
	}
	if updated.Available {
		t.Error("expected worker to be unavailable after heartbeat")
	}
	if updated.Name != "node-a" {
		t.Errorf("name changed to %q without being provided", updated.Name)
	}
	if !updated.LastSeen.After(firstSeen) {
		t.Error("LastSeen was not refreshed by heartbeat")
	}

	// Empty names are ignored.
	updated, err = s.UpdateWorker(models.UpdateWorkerRequest{ID: "worker-1", Name: strPtr("")})
	if err != nil {
		t.Fatalf("UpdateWorker: %v", err)
	}
	if updated.Name != "node-a" {
		t.Errorf("empty name overwrote display name: %q", updated.Name)
	}
}

func TestRegisterWorkerIsIdempotent(t *testing.T) {
	s, _ := newTestScheduler()

	s.RegisterWorker(models.RegisterWorkerRequest{ID: "w1", Name: "first", Available: true})
	s.RegisterWorker(models.RegisterWorkerRequest{ID: "w2", Available: true})
	s.RegisterWorker(models.RegisterWorkerRequest{ID: "w1", Name: "renamed", Available: false})

	workers := s.ListWorkers()
	if len(workers) != 2 {
		t.Fatalf("expected 2 workers, got %d", len(workers))
	}
	if workers[0].ID != "w1" || workers[1].ID != "w2" {
		t.Errorf("registration order not preserved: %s, %s", workers[0].ID, workers[1].ID)
	}
	if workers[0].Name != "renamed" || workers[0].Available {
		t.Errorf("re-registration did not replace fields: %+v", workers[0])
	}
	if workers[1].Name != "w2" {
		t.Errorf("default name = %q, want the id", workers[1].Name)
	}
}

func TestUpdateUnknownWorker(t *testing.T) {
	s, _ := newTestScheduler()

	_, err := s.UpdateWorker(models.UpdateWorkerRequest{ID: "ghost", Available: boolPtr(true)})
	if !errors.Is(err, ErrUnknownWorker) {
		t.Fatalf("expected ErrUnknownWorker, got %v", err)
	}
	if len(s.ListWorkers()) != 0 {
		t.Error("unknown-worker update must not create a worker")
	}
}

func TestListWorkersReturnsCopies(t *testing.T) {
	s, _ := newTestScheduler()
	s.RegisterWorker(models.RegisterWorkerRequest{ID: "w1", Available: true, Info: map[string]string{"os": "linux"}})

	snapshot := s.ListWorkers()
	snapshot[0].Available = false
	snapshot[0].Info["os"] = "plan9"

	fresh := s.ListWorkers()
	if !fresh[0].Available || fresh[0].Info["os"] != "linux" {
		t.Errorf("snapshot mutation leaked into registry: %+v", fresh[0])
	}
}
