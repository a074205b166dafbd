// Package logger provides utilities for working with [zerolog] and [context.Context].
package logger

import (
	"context"
	"os"

	"github.com/rs/zerolog"
)

// InContext returns a copy of ctx carrying l, retrievable with [FromContext].
func InContext(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}

// FromContext returns the logger carried by ctx, or the global
// [zerolog.Logger] if ctx doesn't carry one.
func FromContext(ctx context.Context) zerolog.Logger {
	return *zerolog.Ctx(ctx)
}

// Fatal logs msg at error level and terminates the process.
func Fatal(ctx context.Context, msg string) {
	log := FromContext(ctx)
	log.Error().Msg(msg)
	os.Exit(1)
}

// FatalError logs msg with err at error level and terminates the process.
// Used for startup failures that occur before a request-scoped context exists.
func FatalError(msg string, err error) {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	log.Error().Err(err).Msg(msg)
	os.Exit(1)
}

// FatalErrorContext logs msg with err at error level, using the logger
// carried by ctx, and terminates the process.
func FatalErrorContext(ctx context.Context, msg string, err error) {
	log := FromContext(ctx)
	log.Error().Err(err).Msg(msg)
	os.Exit(1)
}
