package console

import (
	"bufio"
	"io"
	"sync"
)

const clearLine = "\r\033[2K"

// StickyRenderer keeps one status line pinned below ordinary output.
// A status longer than Width columns is cut so it never wraps; zero means
// no limit.
type StickyRenderer struct {
	Width int

	mu     sync.Mutex
	out    *bufio.Writer
	status string
	active bool
}

func NewStickyRenderer(w io.Writer) *StickyRenderer {
	return &StickyRenderer{out: bufio.NewWriter(w)}
}

// Write prints p above the status line.
func (r *StickyRenderer) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		r.clearStatusLocked()
	}
	n, err := r.out.Write(p)
	if err != nil {
		return n, err
	}
	if r.active {
		r.renderStatusLocked()
	}
	return n, r.out.Flush()
}

func (r *StickyRenderer) SetStatus(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if line == r.status {
		return
	}
	if line == "" {
		if r.active {
			r.clearStatusLocked()
		}
		r.status = ""
		r.active = false
		_ = r.out.Flush()
		return
	}
	r.status = line
	r.active = true
	r.renderStatusLocked()
	_ = r.out.Flush()
}

func (r *StickyRenderer) ClearStatus() {
	r.SetStatus("")
}

func (r *StickyRenderer) renderStatusLocked() {
	_, _ = r.out.WriteString(clearLine)
	_, _ = r.out.WriteString(truncate(r.status, r.Width))
}

func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width])
}

func (r *StickyRenderer) clearStatusLocked() {
	_, _ = r.out.WriteString(clearLine)
}
