// Package app provides the GraphRAG server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/graphrag/cmd/graphrag/app/options"
	"github.com/kart-io/graphrag/pkg/infra/app"
)

const (
	// Name is the name of the application.
	Name = "graphrag"

	// commandDesc is the description of the command.
	commandDesc = `GraphRAG Service

Answers questions over a knowledge graph and an entity vector index.

This server provides:
  - Hybrid retrieval: LLM entity extraction, vector entity matching, graph relation expansion
  - Answer generation with a validator that can retry retrieval or generation
  - Per-thread conversation memory (in-memory or redis)
  - Knowledge base sync from the graph store into the vector store
  - Health, model and Prometheus metrics endpoints`
)

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	application := app.NewApp(
		app.WithName(Name),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithWatchConfig(),
		app.WithRunFunc(run(opts)),
	)

	return application
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := setupSignalContext()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		return server.Run(ctx)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
