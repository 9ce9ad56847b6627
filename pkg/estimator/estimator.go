// Package estimator turns a renderer's log stream into progress and ETA
// figures. It does no I/O; callers feed it lines and forward the results.
package estimator

import (
	"math"
	"time"

	"github.com/athulya-anil/axon-render/pkg/models"
)

const (
	// DefaultWindow is the number of recent inter-frame durations averaged.
	DefaultWindow = 8

	// minFrameDelta floors every recorded duration.
	minFrameDelta = 100 * time.Microsecond
)

// Progress is the estimate derived from one matched line.
type Progress struct {
	CurrentFrame int
	TotalFrames  int
	Percent      float64
	// ETA is nil until an average frame duration can be computed.
	ETA *time.Duration
}

// EtaSeconds returns the ETA rounded to whole seconds, or nil.
func (p Progress) EtaSeconds() *int {
	if p.ETA == nil {
		return nil
	}
	s := int(math.Round(p.ETA.Seconds()))
	return &s
}

// Update converts p into the partial task update posted to the
// coordinator. An undefined ETA is sent as an explicit null so a stale
// value on the task is cleared.
func (p Progress) Update() models.ProgressUpdate {
	u := models.ProgressUpdate{
		CurrentFrame:    models.Some(p.CurrentFrame),
		TotalFrames:     models.Some(p.TotalFrames),
		ProgressPercent: models.Some(p.Percent),
		EtaSeconds:      models.Null[int](),
	}
	if eta := p.EtaSeconds(); eta != nil {
		u.EtaSeconds = models.Some(*eta)
	}
	return u
}

// Estimator tracks one render attempt. It is not safe for concurrent use;
// the agent feeds it lines from a single goroutine.
type Estimator struct {
	frameStart int
	total      int

	matchers []Matcher
	window   int
	now      func() time.Time
	start    time.Time

	deltas    []time.Duration
	lastTime  time.Time
	lastFrame int
	observed  bool
	seen      map[int]struct{}
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithWindow sets the sliding window capacity.
func WithWindow(n int) Option {
	return func(e *Estimator) {
		if n > 0 {
			e.window = n
		}
	}
}

// WithMatchers replaces the frame matchers.
func WithMatchers(m ...Matcher) Option {
	return func(e *Estimator) {
		if len(m) > 0 {
			e.matchers = m
		}
	}
}

// WithClock sets the time source used by Observe.
func WithClock(now func() time.Time) Option {
	return func(e *Estimator) { e.now = now }
}

// WithStart sets the render start time. It defaults to the clock's time
// when New is called.
func WithStart(t time.Time) Option {
	return func(e *Estimator) { e.start = t }
}

// New creates an estimator for the inclusive frame range start..end.
func New(frameStart, frameEnd int, opts ...Option) *Estimator {
	e := &Estimator{
		frameStart: frameStart,
		total:      max(1, frameEnd-frameStart+1),
		matchers:   DefaultMatchers(),
		window:     DefaultWindow,
		now:        time.Now,
		seen:       make(map[int]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.start.IsZero() {
		e.start = e.now()
	}
	return e
}

// Observe feeds one line using the estimator's clock.
func (e *Estimator) Observe(line string) (Progress, bool) {
	return e.ObserveAt(line, e.now())
}

// ObserveAt feeds one line observed at now. It reports false when no
// matcher recognizes a frame number, in which case state is unchanged.
func (e *Estimator) ObserveAt(line string, now time.Time) (Progress, bool) {
	frame, ok := Match(e.matchers, line)
	if !ok {
		return Progress{}, false
	}

	if e.observed && frame != e.lastFrame {
		e.push(max(minFrameDelta, now.Sub(e.lastTime)))
	}
	e.observed = true
	e.lastTime = now
	e.lastFrame = frame
	e.seen[frame] = struct{}{}

	completed := max(0, frame-e.frameStart+1)
	p := Progress{
		CurrentFrame: frame,
		TotalFrames:  e.total,
		Percent:      round2(min(100, float64(completed)/float64(e.total)*100)),
	}
	if avg, ok := e.average(now); ok {
		remaining := max(0, e.total-completed)
		eta := time.Duration(float64(avg) * float64(remaining))
		p.ETA = &eta
	}
	return p, true
}

// Window returns a copy of the recorded inter-frame durations, oldest first.
func (e *Estimator) Window() []time.Duration {
	return append([]time.Duration(nil), e.deltas...)
}

func (e *Estimator) push(d time.Duration) {
	if len(e.deltas) == e.window {
		copy(e.deltas, e.deltas[1:])
		e.deltas = e.deltas[:len(e.deltas)-1]
	}
	e.deltas = append(e.deltas, d)
}

// average is the window mean, falling back to elapsed time over distinct
// frames seen while the window is empty.
func (e *Estimator) average(now time.Time) (time.Duration, bool) {
	if n := len(e.deltas); n > 0 {
		var sum time.Duration
		for _, d := range e.deltas {
			sum += d
		}
		return sum / time.Duration(n), true
	}
	if len(e.seen) == 0 {
		return 0, false
	}
	return now.Sub(e.start) / time.Duration(len(e.seen)), true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
