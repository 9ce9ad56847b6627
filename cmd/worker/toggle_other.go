//go:build !unix

package main

import (
	"context"
	"log/slog"

	"github.com/athulya-anil/axon-render/pkg/worker"
)

func watchToggle(context.Context, *worker.Agent, *slog.Logger) {}
