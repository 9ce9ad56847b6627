package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/athulya-anil/axon-render/pkg/models"
)

// ErrLaunch wraps failures to start the renderer process.
var ErrLaunch = errors.New("worker: renderer launch failed")

// ExitError reports a renderer that exited with a non-zero code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return "renderer exited with code " + strconv.Itoa(e.Code)
}

// maxLineSize bounds a single renderer output line.
const maxLineSize = 1 << 20

// ExecRunner renders a task by running Blender in background mode:
//
//	<Binary> <ExtraArgs...> -b <source> -s <start> -e <end> -a
//
// stdout and stderr are merged into one ordered line stream.
type ExecRunner struct {
	Binary    string
	ExtraArgs []string
	// Env is appended to the agent's environment.
	Env    []string
	Logger *slog.Logger
}

// Args returns the command-line arguments for task.
func (r *ExecRunner) Args(task *models.Task) []string {
	args := append([]string(nil), r.ExtraArgs...)
	return append(args,
		"-b", task.SourcePath,
		"-s", strconv.Itoa(task.FrameStart),
		"-e", strconv.Itoa(task.FrameEnd),
		"-a",
	)
}

// Run executes the renderer and streams its output. Cancelling ctx kills
// the process.
func (r *ExecRunner) Run(ctx context.Context, task *models.Task, onLine func(string)) error {
	args := r.Args(task)
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLaunch, err)
	}
	cmd.Stderr = cmd.Stdout

	if r.Logger != nil {
		r.Logger.Info("launching renderer",
			slog.String("task_id", task.ID),
			slog.String("command", r.Binary+" "+strings.Join(args, " ")),
		)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		onLine(strings.TrimRight(scanner.Text(), " \t\r"))
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// Keep the pipe drained so the renderer cannot block on a full buffer.
		_, _ = io.Copy(io.Discard, stdout)
	}

	err = cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		return &ExitError{Code: exitErr.ExitCode()}
	case err != nil:
		return err
	case scanErr != nil:
		return fmt.Errorf("read renderer output: %w", scanErr)
	}
	return nil
}
