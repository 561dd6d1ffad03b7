// Package main provides the entry point for the voice ingest service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/fx"

	"github.com/Raikerian/go-voice-ingest/internal/app"
	"github.com/Raikerian/go-voice-ingest/internal/config"
	"github.com/Raikerian/go-voice-ingest/internal/infrastructure"
	"github.com/Raikerian/go-voice-ingest/internal/metrics"
	"github.com/Raikerian/go-voice-ingest/internal/openai"
	"github.com/Raikerian/go-voice-ingest/internal/pipeline"
	"github.com/Raikerian/go-voice-ingest/internal/responder"
	"github.com/Raikerian/go-voice-ingest/internal/synthesis"
	"github.com/Raikerian/go-voice-ingest/internal/transcription"
	"github.com/Raikerian/go-voice-ingest/internal/transport"
	pkginfra "github.com/Raikerian/go-voice-ingest/pkg/infrastructure"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	application := app.New(
		// Core modules
		config.Module,
		infrastructure.LoggerModule,
		metrics.Module,

		// External service modules
		openai.Module,
		transcription.Module,
		synthesis.Module,
		responder.Module,

		// Application modules
		pipeline.Module,
		transport.Module,

		fx.Supply(*configPath),
		fx.WithLogger(pkginfra.NewFxLoggerAdapter),
	)
	if err := application.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build application: %v\n", err)
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	err := application.Start(startCtx)
	cancelStart()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	fmt.Printf("Received signal: %s, initiating shutdown.\n", sig)

	// open sessions get this long to release their transports
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = application.Stop(shutdownCtx)
	cancel()

	if err != nil {
		fmt.Printf("Error during shutdown: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Application has shut down gracefully.")
}
