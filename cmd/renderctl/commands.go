package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strconv"
	"text/tabwriter"
	"time"

	"golang.org/x/time/rate"

	"github.com/athulya-anil/axon-render/pkg/client"
	"github.com/athulya-anil/axon-render/pkg/console"
	"github.com/athulya-anil/axon-render/pkg/models"
	"github.com/athulya-anil/axon-render/pkg/timefmt"
)

var (
	errUsage      = errors.New("usage")
	errTaskFailed = errors.New("task finished with error")
)

const barWidth = 30

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func submitCommand(ctx context.Context, c *client.Client, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("submit", stderr)
	start := fs.Int("start", 1, "first frame")
	end := fs.Int("end", 0, "last frame (defaults to -start)")
	pin := fs.String("worker", "", `worker id to pin, or "auto"`)
	submitter := fs.String("submitter", "", "submitter name")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: submit takes exactly one source path", errUsage)
	}

	req := models.SubmitTaskRequest{
		SourcePath:   fs.Arg(0),
		FrameStart:   start,
		Submitter:    *submitter,
		PinnedWorker: *pin,
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "end" {
			req.FrameEnd = end
		}
	})

	resp, err := c.SubmitTask(ctx, req)
	if err != nil {
		return err
	}
	assigned := "any worker"
	if resp.AssignedWorker != nil {
		assigned = *resp.AssignedWorker
	}
	fmt.Fprintf(stdout, "%s submitted %s (pinned to %s)\n", console.TagSuccess(), resp.TaskID, assigned)
	return nil
}

func workersCommand(ctx context.Context, c *client.Client, stdout io.Writer) error {
	workers, err := c.ListWorkers(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tAVAILABLE\tLAST SEEN\tHOST")
	now := time.Now()
	for _, w := range workers {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s ago\t%s\n",
			w.ID, w.Name, w.Available, timefmt.FormatDuration(now.Sub(w.LastSeen)), w.Info["hostname"])
	}
	return tw.Flush()
}

func tasksCommand(ctx context.Context, c *client.Client, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("tasks", stderr)
	tail := fs.Int("tail", 0, "log lines to include per task")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	tasks, err := c.ListTasks(ctx, *tail)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSOURCE\tFRAMES\tSTATUS\tWORKER\tPROGRESS\tETA")
	for _, t := range tasks {
		worker := t.AssignedTo()
		if worker == "" {
			worker = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d-%d\t%s\t%s\t%s\t%s\n",
			t.ID, t.SourcePath, t.FrameStart, t.FrameEnd, t.Status, worker,
			timefmt.FormatPercent(t.ProgressPercent), timefmt.FormatETA(t.EtaSeconds))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if *tail > 0 {
		for _, t := range tasks {
			for _, entry := range t.Log {
				fmt.Fprintf(stdout, "%s %s %s\n", t.ID, timefmt.ISO(entry.Time), entry.Line)
			}
		}
	}
	return nil
}

func statusCommand(ctx context.Context, c *client.Client, stdout io.Writer) error {
	stats, err := c.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "workers: %d (%d available)\n", stats.WorkersTotal, stats.WorkersAvailable)
	fmt.Fprintf(stdout, "tasks:   %d\n", stats.TasksTotal)

	statuses := make([]string, 0, len(stats.TasksByStatus))
	for s := range stats.TasksByStatus {
		statuses = append(statuses, string(s))
	}
	slices.Sort(statuses)
	for _, s := range statuses {
		fmt.Fprintf(stdout, "  %-9s %d\n", s, stats.TasksByStatus[models.TaskStatus(s)])
	}
	return nil
}

func watchCommand(ctx context.Context, c *client.Client, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("watch", stderr)
	interval := fs.Duration("interval", time.Second, "poll interval")
	logs := fs.Bool("logs", false, "print new log lines")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: watch takes exactly one task id", errUsage)
	}
	if *interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", errUsage)
	}
	return watch(ctx, c, fs.Arg(0), rate.NewLimiter(rate.Every(*interval), 1), *logs, stdout)
}

// watch polls a task until it reaches a terminal status, printing one status
// line per poll.
func watch(ctx context.Context, c *client.Client, taskID string, limiter *rate.Limiter, logs bool, stdout io.Writer) error {
	var cursor logCursor
	for {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		task, err := c.GetTask(ctx, taskID)
		if err != nil {
			return err
		}

		if logs {
			for _, entry := range cursor.next(task.Log) {
				fmt.Fprintf(stdout, "  %s\n", entry.Line)
			}
		}
		fmt.Fprintln(stdout, statusLine(task))

		switch task.Status {
		case models.StatusDone:
			fmt.Fprintf(stdout, "%s %s done\n", console.TagSuccess(), task.ID)
			return nil
		case models.StatusError:
			return fmt.Errorf("%w: %s", errTaskFailed, task.ID)
		}
	}
}

// logCursor remembers how far a task log has been printed. The coordinator
// evicts the oldest entries once the log is full, so the position is
// re-anchored on the last printed entry when the log has shifted.
type logCursor struct {
	printed int
	last    models.LogEntry
}

// next returns the entries appended since the previous call.
func (c *logCursor) next(log []models.LogEntry) []models.LogEntry {
	start := min(c.printed, len(log))
	if c.printed > 0 && (start == 0 || !sameEntry(log[start-1], c.last)) {
		start = 0
		for i := len(log) - 1; i >= 0; i-- {
			if sameEntry(log[i], c.last) {
				start = i + 1
				break
			}
		}
	}
	fresh := log[start:]
	c.printed = len(log)
	if len(log) > 0 {
		c.last = log[len(log)-1]
	}
	return fresh
}

func sameEntry(a, b models.LogEntry) bool {
	return a.Line == b.Line && a.Time.Equal(b.Time)
}

func statusLine(t *models.Task) string {
	frame := "-"
	if t.CurrentFrame != nil {
		frame = strconv.Itoa(*t.CurrentFrame)
	}
	eta := "unavailable"
	if t.EtaSeconds != nil {
		eta = timefmt.FormatETA(t.EtaSeconds)
	}
	return fmt.Sprintf("%-8s frame %s (%d-%d) %s ETA: %s",
		t.Status, frame, t.FrameStart, t.FrameEnd, timefmt.ProgressBar(t.ProgressPercent, barWidth), eta)
}
