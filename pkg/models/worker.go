package models

import (
	"maps"
	"time"
)

// Worker holds the state of a render node known to the coordinator.
type Worker struct {
	ID        string            `json:"id"`             // Caller-supplied, immutable after registration
	Name      string            `json:"name"`           // Display name
	Available bool              `json:"available"`      // Accepts new assignments only when true
	Info      map[string]string `json:"info,omitempty"` // Free-form host metadata (hostname, os, cpus)
	LastSeen  time.Time         `json:"last_seen"`      // Stamped on every registration and heartbeat
}

// Clone returns a copy that shares no mutable state with w.
func (w *Worker) Clone() *Worker {
	cp := *w
	cp.Info = maps.Clone(w.Info)
	return &cp
}
