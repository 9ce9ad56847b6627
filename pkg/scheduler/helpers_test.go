package scheduler

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/athulya-anil/axon-render/pkg/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("task-%d", n)
	}
}

func newTestScheduler(opts ...Option) (*Scheduler, *fakeClock) {
	clock := newFakeClock()
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(clock.Now),
		WithIDGenerator(sequentialIDs()),
	}
	return New(append(base, opts...)...), clock
}

func frames(start, end int) (*int, *int) {
	return &start, &end
}

func submit(s *Scheduler, path string, start, end int, pin string) *models.Task {
	fs, fe := frames(start, end)
	task, err := s.SubmitTask(models.SubmitTaskRequest{
		SourcePath:   path,
		FrameStart:   fs,
		FrameEnd:     fe,
		Submitter:    "tester",
		PinnedWorker: pin,
	})
	if err != nil {
		panic(err)
	}
	return task
}

func boolPtr(v bool) *bool       { return &v }
func strPtr(v string) *string    { return &v }
func intPtr(v int) *int          { return &v }
func floatPtr(v float64) *float64 { return &v }
