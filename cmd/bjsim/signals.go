package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
)

// SetupSignalHandlerWithLogger returns a context cancelled on SIGINT or
// SIGTERM, so an interrupted run stops its workers and leaves no partial
// output file behind.
func SetupSignalHandlerWithLogger(logger zerolog.Logger) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Warn().Str("signal", sig.String()).Msg("Received signal, stopping simulation")
		cancel()
	}()

	return ctx
}
