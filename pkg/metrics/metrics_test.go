package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRecorderCounts(t *testing.T) {
	mp, reader := NewProvider()
	r := NewWithMeter(mp.Meter("test"))

	r.WorkerRegistered()
	r.TaskSubmitted(true)
	r.TaskSubmitted(false)
	r.TaskClaimed(false)
	r.EmptyPoll()
	r.EmptyPoll()
	r.StatusChanged("running")
	r.LogLine()

	snap, err := Snapshot(context.Background(), reader)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	want := map[string]int64{
		"axonrender.workers.registered": 1,
		"axonrender.tasks.submitted":    2,
		"axonrender.tasks.claimed":      1,
		"axonrender.polls.empty":        2,
		"axonrender.tasks.status":       1,
		"axonrender.task.log_lines":     1,
	}
	for name, v := range want {
		if snap[name] != v {
			t.Errorf("%s = %d, want %d", name, snap[name], v)
		}
	}
}

func TestRecorderAttributes(t *testing.T) {
	mp, reader := NewProvider()
	r := NewWithMeter(mp.Meter("test"))

	r.StatusChanged("done")
	r.StatusChanged("done")
	r.StatusChanged("error")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	var sum metricdata.Sum[int64]
	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "axonrender.tasks.status" {
				sum, found = m.Data.(metricdata.Sum[int64])
			}
		}
	}
	if !found {
		t.Fatal("axonrender.tasks.status not recorded")
	}

	byStatus := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("status"))
		byStatus[v.AsString()] = dp.Value
	}
	if byStatus["done"] != 2 || byStatus["error"] != 1 {
		t.Errorf("status counts = %v", byStatus)
	}
}
