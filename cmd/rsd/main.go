package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rsdeploy/rsd/cmd/rsd/commands"
	"github.com/rsdeploy/rsd/pkg/rsderr"
)

// Version is set via ldflags during build.
var Version = "dev"

func main() {
	setupLogging()

	// Cancel outstanding gathers on interrupt.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn().Msg("interrupted, cancelling")
		cancel()
	}()

	if err := commands.Execute(ctx, Version); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(rsderr.ExitCode(err))
	}
}

// setupLogging configures zerolog for structured output on stderr;
// stdout is reserved for pipeline data.
func setupLogging() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	switch os.Getenv("RSD_LOG_LEVEL") {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
