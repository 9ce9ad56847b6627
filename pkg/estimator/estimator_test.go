package estimator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"testing"
	"time"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestDefaultMatchers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line  string
		frame int
		ok    bool
	}{
		{"Fra:12 Mem:143.21M (Peak 150.00M) | Time:00:01.23", 12, true},
		{"fra: 7 | Rendering 1 / 64 samples", 7, true},
		{"Frame 42 | Sampling", 42, true},
		{"Saved: '/tmp/out/render_0017.png'", 17, true},
		{"Finished rendering frame 9 in 00:03.12", 9, true},
		{"Blender 3.6.2 (hash abc)", 0, false},
		{"Time: 00:01.00 (Saving: 00:00.10)", 0, false},
		{"", 0, false},
	}

	matchers := DefaultMatchers()
	for _, tt := range tests {
		frame, ok := Match(matchers, tt.line)
		if ok != tt.ok || frame != tt.frame {
			t.Errorf("Match(%q) = %d, %v; want %d, %v", tt.line, frame, ok, tt.frame, tt.ok)
		}
	}
}

func TestMatchPriority(t *testing.T) {
	t.Parallel()

	// "Fra:" wins over a later "Saved:" on the same line.
	frame, ok := Match(DefaultMatchers(), "Fra:3 Saved: frame_0099.png")
	if !ok || frame != 3 {
		t.Errorf("got %d, %v; want 3", frame, ok)
	}
}

func TestRegexpMatcherOverflow(t *testing.T) {
	t.Parallel()

	m := RegexpMatcher(regexp.MustCompile(`F(\d+)`))
	if _, ok := m("F99999999999999999999999"); ok {
		t.Error("overflowing capture should not match")
	}
	if n, ok := m("F12"); !ok || n != 12 {
		t.Errorf("got %d, %v", n, ok)
	}
}

func TestSlidingWindowScenario(t *testing.T) {
	e := New(1, 10, WithStart(t0))

	steps := []struct {
		line string
		at   time.Duration
	}{
		{"Fra:1 Mem:10M", 0},
		{"Fra:2 Mem:10M", 10 * time.Second},
		{"Fra:3 Mem:10M", 25 * time.Second},
	}

	var p Progress
	for _, s := range steps {
		var ok bool
		p, ok = e.ObserveAt(s.line, t0.Add(s.at))
		if !ok {
			t.Fatalf("line %q not matched", s.line)
		}
	}

	window := e.Window()
	if len(window) != 2 || window[0] != 10*time.Second || window[1] != 15*time.Second {
		t.Fatalf("window = %v, want [10s 15s]", window)
	}
	if p.CurrentFrame != 3 || p.TotalFrames != 10 {
		t.Errorf("frame %d of %d", p.CurrentFrame, p.TotalFrames)
	}
	if p.Percent != 30 {
		t.Errorf("Percent = %v, want 30", p.Percent)
	}
	if p.ETA == nil || *p.ETA != 87500*time.Millisecond {
		t.Fatalf("ETA = %v, want 87.5s", p.ETA)
	}
	if eta := p.EtaSeconds(); eta == nil || *eta != 88 {
		t.Errorf("EtaSeconds = %v, want 88", eta)
	}
}

func TestFallbackAverage(t *testing.T) {
	e := New(1, 5, WithStart(t0))

	// First observation 20s after start: window empty, 20s over one frame.
	p, ok := e.ObserveAt("Fra:1", t0.Add(20*time.Second))
	if !ok {
		t.Fatal("not matched")
	}
	if eta := p.EtaSeconds(); eta == nil || *eta != 80 {
		t.Errorf("EtaSeconds = %v, want 80", eta)
	}
	if len(e.Window()) != 0 {
		t.Errorf("window should be empty, got %v", e.Window())
	}
}

func TestRepeatedFrameRefreshesTimestamp(t *testing.T) {
	e := New(1, 10, WithStart(t0))

	e.ObserveAt("Fra:1", t0)
	e.ObserveAt("Fra:1", t0.Add(8*time.Second))
	e.ObserveAt("Fra:2", t0.Add(10*time.Second))

	window := e.Window()
	if len(window) != 1 || window[0] != 2*time.Second {
		t.Errorf("window = %v, want [2s]", window)
	}
}

func TestWindowEvictsOldest(t *testing.T) {
	e := New(1, 100, WithStart(t0), WithWindow(3))

	at := t0
	for frame, gap := range []time.Duration{0, 1, 2, 3, 4, 5} {
		at = at.Add(gap * time.Second)
		e.ObserveAt(fmt.Sprintf("Frame %d", frame+1), at)
	}

	window := e.Window()
	want := []time.Duration{3 * time.Second, 4 * time.Second, 5 * time.Second}
	if len(window) != len(want) {
		t.Fatalf("window = %v, want %v", window, want)
	}
	for i := range want {
		if window[i] != want[i] {
			t.Errorf("window[%d] = %v, want %v", i, window[i], want[i])
		}
	}
}

func TestDeltaFloor(t *testing.T) {
	e := New(1, 10, WithStart(t0))

	e.ObserveAt("Fra:1", t0)
	e.ObserveAt("Fra:2", t0)

	if w := e.Window(); len(w) != 1 || w[0] != minFrameDelta {
		t.Errorf("window = %v, want [%v]", w, minFrameDelta)
	}
}

func TestPercentClamping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		start, end  int
		line        string
		wantPercent float64
		wantETA     int
	}{
		{"frame before range", 10, 19, "Fra:3", 0, 50},
		{"frame past range", 1, 4, "Fra:9", 100, 0},
		{"rounded to two places", 1, 3, "Fra:1", 33.33, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(tt.start, tt.end, WithStart(t0))
			p, ok := e.ObserveAt(tt.line, t0.Add(5*time.Second))
			if !ok {
				t.Fatal("not matched")
			}
			if p.Percent != tt.wantPercent {
				t.Errorf("Percent = %v, want %v", p.Percent, tt.wantPercent)
			}
			if eta := p.EtaSeconds(); eta == nil || *eta != tt.wantETA {
				t.Errorf("EtaSeconds = %v, want %d", eta, tt.wantETA)
			}
		})
	}
}

func TestUnmatchedLineLeavesStateAlone(t *testing.T) {
	e := New(1, 10, WithStart(t0))
	e.ObserveAt("Fra:1", t0)

	if _, ok := e.ObserveAt("Synchronizing object | Cube", t0.Add(time.Hour)); ok {
		t.Fatal("unexpected match")
	}
	e.ObserveAt("Fra:2", t0.Add(4*time.Second))
	if w := e.Window(); len(w) != 1 || w[0] != 4*time.Second {
		t.Errorf("window = %v, want [4s]", w)
	}
}

func TestCustomMatchersAndClock(t *testing.T) {
	now := t0
	clock := func() time.Time { return now }
	tile := func(line string) (int, bool) {
		if line == "tick" {
			return 5, true
		}
		return 0, false
	}

	e := New(1, 10, WithClock(clock), WithMatchers(tile))
	now = now.Add(10 * time.Second)

	p, ok := e.Observe("tick")
	if !ok || p.CurrentFrame != 5 {
		t.Fatalf("got %+v, %v", p, ok)
	}
	// Start came from the clock at New: 10s over one frame, five remaining.
	if eta := p.EtaSeconds(); eta == nil || *eta != 50 {
		t.Errorf("EtaSeconds = %v, want 50", eta)
	}
	if _, ok := e.Observe("Fra:1"); ok {
		t.Error("default matchers should be replaced")
	}
}

func TestProgressUpdate(t *testing.T) {
	t.Parallel()

	eta := 1500 * time.Millisecond
	data, err := json.Marshal(Progress{CurrentFrame: 4, TotalFrames: 10, Percent: 40, ETA: &eta}.Update())
	if err != nil {
		t.Fatal(err)
	}
	want := `{"current_frame":4,"total_frames":10,"progress_percent":40,"eta_seconds":2}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}

	data, err = json.Marshal(Progress{CurrentFrame: 1, TotalFrames: 10, Percent: 10}.Update())
	if err != nil {
		t.Fatal(err)
	}
	want = `{"current_frame":1,"total_frames":10,"progress_percent":10,"eta_seconds":null}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}
