package console

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/athulya-anil/axon-render/pkg/estimator"
	"github.com/athulya-anil/axon-render/pkg/models"
	"github.com/athulya-anil/axon-render/pkg/timefmt"
)

const barWidth = 30

// Printer reports a worker agent's local progress. On a terminal it
// redraws one progress line; otherwise progress goes to the logger.
type Printer struct {
	sticky *StickyRenderer
	logger *slog.Logger
	echo   bool
}

// NewPrinter writes to out, redrawing only when out is a terminal. With
// echo set, renderer output lines are printed too.
func NewPrinter(out *os.File, logger *slog.Logger, echo bool) *Printer {
	if IsTerminal(out) {
		p := NewPrinterTo(out, logger, echo)
		if w := TerminalWidth(out); w > 1 {
			p.sticky.Width = w - 1
		}
		return p
	}
	return NewPrinterTo(nil, logger, echo)
}

// NewPrinterTo redraws on w, or only logs when w is nil.
func NewPrinterTo(w io.Writer, logger *slog.Logger, echo bool) *Printer {
	p := &Printer{logger: logger, echo: echo}
	if w != nil {
		p.sticky = NewStickyRenderer(w)
	}
	return p
}

func (p *Printer) TaskStarted(task *models.Task) {
	if p.sticky == nil {
		p.logger.Info("render started",
			slog.String("task_id", task.ID),
			slog.String("source", task.SourcePath),
			slog.Int("frame_start", task.FrameStart),
			slog.Int("frame_end", task.FrameEnd),
		)
		return
	}
	fmt.Fprintf(p.sticky, "%s %s started: %s frames %d-%d\n",
		TagInfo(), task.ID, task.SourcePath, task.FrameStart, task.FrameEnd)
}

func (p *Printer) TaskLog(task *models.Task, line string) {
	if !p.echo {
		return
	}
	if p.sticky == nil {
		p.logger.Debug("render output", slog.String("task_id", task.ID), slog.String("line", line))
		return
	}
	fmt.Fprintln(p.sticky, line)
}

func (p *Printer) TaskProgress(task *models.Task, progress estimator.Progress) {
	eta := timefmt.FormatETA(progress.EtaSeconds())
	if p.sticky == nil {
		p.logger.Info("render progress",
			slog.String("task_id", task.ID),
			slog.Int("frame", progress.CurrentFrame),
			slog.Float64("percent", progress.Percent),
			slog.String("eta", eta),
		)
		return
	}
	p.sticky.SetStatus(StatusLine(progress))
}

func (p *Printer) TaskFinished(task *models.Task, status models.TaskStatus, err error) {
	if p.sticky == nil {
		attrs := []any{slog.String("task_id", task.ID), slog.String("status", string(status))}
		if err != nil {
			p.logger.Warn("render finished", append(attrs, slog.String("error", err.Error()))...)
		} else {
			p.logger.Info("render finished", attrs...)
		}
		return
	}
	p.sticky.ClearStatus()
	if err != nil {
		fmt.Fprintf(p.sticky, "%s %s %s: %v\n", TagError(), task.ID, status, err)
		return
	}
	fmt.Fprintf(p.sticky, "%s %s %s\n", TagSuccess(), task.ID, status)
}

// StatusLine renders "frame 3/10 [###---]  30.00% ETA 1m28s".
func StatusLine(progress estimator.Progress) string {
	eta := "unavailable"
	if s := progress.EtaSeconds(); s != nil {
		eta = timefmt.FormatETA(s)
	}
	return fmt.Sprintf("frame %d/%d %s ETA %s",
		progress.CurrentFrame, progress.TotalFrames,
		timefmt.ProgressBar(progress.Percent, barWidth), eta)
}
