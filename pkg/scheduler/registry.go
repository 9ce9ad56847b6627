package scheduler

import (
	"maps"
	"time"

	"github.com/athulya-anil/axon-render/pkg/models"
)

// WorkerRegistry keeps track of all known workers in first-registration
// order. Workers are never removed; a silent worker simply stops
// refreshing LastSeen.
//
// WorkerRegistry does no locking; Scheduler serializes access.
type WorkerRegistry struct {
	workers map[string]*models.Worker
	order   []string
}

// NewWorkerRegistry creates a new registry
func NewWorkerRegistry() *WorkerRegistry {
	return &WorkerRegistry{
		workers: make(map[string]*models.Worker),
	}
}

// Register creates the worker or replaces its name, availability and info.
// A re-registered worker keeps its original position.
func (r *WorkerRegistry) Register(req models.RegisterWorkerRequest, now time.Time) *models.Worker {
	name := req.Name
	if name == "" {
		name = req.ID
	}

	w, ok := r.workers[req.ID]
	if !ok {
		w = &models.Worker{ID: req.ID}
		r.workers[req.ID] = w
		r.order = append(r.order, req.ID)
	}
	w.Name = name
	w.Available = req.Available
	w.Info = maps.Clone(req.Info)
	w.LastSeen = now
	return w
}

// Update applies the provided fields of a heartbeat and stamps LastSeen.
func (r *WorkerRegistry) Update(req models.UpdateWorkerRequest, now time.Time) (*models.Worker, error) {
	w, ok := r.workers[req.ID]
	if !ok {
		return nil, ErrUnknownWorker
	}
	if req.Available != nil {
		w.Available = *req.Available
	}
	if req.Name != nil && *req.Name != "" {
		w.Name = *req.Name
	}
	if req.Info != nil {
		w.Info = maps.Clone(req.Info)
	}
	w.LastSeen = now
	return w, nil
}

// Get returns the live worker record, or nil.
func (r *WorkerRegistry) Get(workerID string) *models.Worker {
	return r.workers[workerID]
}

// FirstAvailable returns the earliest-registered available worker, or nil.
func (r *WorkerRegistry) FirstAvailable() *models.Worker {
	for _, id := range r.order {
		if w := r.workers[id]; w.Available {
			return w
		}
	}
	return nil
}

// Snapshot returns copies of all workers in registration order.
func (r *WorkerRegistry) Snapshot() []*models.Worker {
	out := make([]*models.Worker, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.workers[id].Clone())
	}
	return out
}

// Counts returns the number of known and available workers.
func (r *WorkerRegistry) Counts() (total, available int) {
	for _, w := range r.workers {
		if w.Available {
			available++
		}
	}
	return len(r.workers), available
}
