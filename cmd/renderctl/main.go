package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/athulya-anil/axon-render/pkg/client"
	"github.com/athulya-anil/axon-render/pkg/console"
)

const defaultCoordinatorURL = "http://localhost:5000"

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  renderctl [-coordinator URL] submit [-start N] [-end N] [-worker ID|auto] [-submitter NAME] <source>")
	fmt.Fprintln(w, "  renderctl [-coordinator URL] workers")
	fmt.Fprintln(w, "  renderctl [-coordinator URL] tasks [-tail N]")
	fmt.Fprintln(w, "  renderctl [-coordinator URL] watch [-interval D] [-logs] <task-id>")
	fmt.Fprintln(w, "  renderctl [-coordinator URL] status")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "COORDINATOR_URL sets the default coordinator.")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		usage(os.Stderr)
		os.Exit(2)
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, console.TagWarn(), "interrupted")
		os.Exit(130)
	default:
		fmt.Fprintln(os.Stderr, console.TagError(), err)
		os.Exit(1)
	}
}

// run parses the global flags and dispatches to a subcommand.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	defaultURL := os.Getenv("COORDINATOR_URL")
	if defaultURL == "" {
		defaultURL = defaultCoordinatorURL
	}

	fs := newFlagSet("renderctl", stderr)
	fs.Usage = func() {}
	baseURL := fs.String("coordinator", defaultURL, "coordinator base URL")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			usage(stdout)
			return nil
		}
		return errUsage
	}
	args = fs.Args()
	if len(args) == 0 {
		return errUsage
	}

	c := client.New(*baseURL)
	command, rest := args[0], args[1:]
	switch command {
	case "submit":
		return submitCommand(ctx, c, rest, stdout, stderr)
	case "workers":
		return workersCommand(ctx, c, stdout)
	case "tasks":
		return tasksCommand(ctx, c, rest, stdout, stderr)
	case "watch":
		return watchCommand(ctx, c, rest, stdout, stderr)
	case "status":
		return statusCommand(ctx, c, stdout)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}
