package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/athulya-anil/axon-render/pkg/models"
)

// TestHelperProcess stands in for the renderer when ExecRunner re-executes
// the test binary.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("AXON_RENDER_HELPER") != "1" {
		return
	}
	args := os.Args
	if i := slices.Index(args, "--"); i >= 0 {
		args = args[i+1:]
	}

	source := args[slices.Index(args, "-b")+1]
	switch source {
	case "missing.blend":
		fmt.Fprintln(os.Stderr, "Error: cannot read file")
		os.Exit(3)
	default:
		fmt.Println(strings.Join(args, " "))
		fmt.Println("Fra:1 Mem:10M   ")
		fmt.Fprintln(os.Stderr, "Saved: 'out_0001.png'")
		os.Exit(0)
	}
}

func helperRunner() *ExecRunner {
	return &ExecRunner{
		Binary:    os.Args[0],
		ExtraArgs: []string{"-test.run=TestHelperProcess", "--"},
		Env:       []string{"AXON_RENDER_HELPER=1"},
	}
}

func TestExecRunnerArgs(t *testing.T) {
	r := &ExecRunner{Binary: "blender", ExtraArgs: []string{"--factory-startup"}}
	got := r.Args(&models.Task{SourcePath: "/shots/a.blend", FrameStart: 5, FrameEnd: 12})
	want := []string{"--factory-startup", "-b", "/shots/a.blend", "-s", "5", "-e", "12", "-a"}
	if !slices.Equal(got, want) {
		t.Errorf("Args = %v, want %v", got, want)
	}
}

func TestExecRunnerStreamsMergedOutput(t *testing.T) {
	var lines []string
	err := helperRunner().Run(context.Background(), &models.Task{SourcePath: "a.blend", FrameStart: 1, FrameEnd: 2}, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	if lines[0] != "-b a.blend -s 1 -e 2 -a" {
		t.Errorf("renderer saw args %q", lines[0])
	}
	if lines[1] != "Fra:1 Mem:10M" {
		t.Errorf("trailing space not trimmed: %q", lines[1])
	}
	if lines[2] != "Saved: 'out_0001.png'" {
		t.Errorf("stderr line = %q", lines[2])
	}
}

func TestExecRunnerExitCode(t *testing.T) {
	var lines []string
	err := helperRunner().Run(context.Background(), &models.Task{SourcePath: "missing.blend", FrameStart: 1, FrameEnd: 1}, func(line string) {
		lines = append(lines, line)
	})

	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 3 {
		t.Fatalf("Run = %v, want exit code 3", err)
	}
	if len(lines) != 1 || lines[0] != "Error: cannot read file" {
		t.Errorf("lines = %q", lines)
	}
}

func TestExecRunnerLaunchFailure(t *testing.T) {
	r := &ExecRunner{Binary: "/nonexistent/blender"}
	err := r.Run(context.Background(), &models.Task{SourcePath: "a.blend"}, func(string) {})
	if !errors.Is(err, ErrLaunch) {
		t.Fatalf("Run = %v, want ErrLaunch", err)
	}
	if status, line := outcome(err); status != models.StatusError || !strings.HasPrefix(line, "Failed to start renderer") {
		t.Errorf("outcome = %s %q", status, line)
	}
}
