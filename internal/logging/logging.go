// Package logging configures zerolog for the command line tool and adapts
// the library's evaluator and activity hooks to it.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/goliatone/go-treeselect"
	"github.com/goliatone/go-treeselect/pkg/activity"
)

// LevelFor maps a -v count to a zerolog level: warn by default, then info,
// debug and trace.
func LevelFor(verbosity int) zerolog.Level {
	switch {
	case verbosity <= 0:
		return zerolog.WarnLevel
	case verbosity == 1:
		return zerolog.InfoLevel
	case verbosity == 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// SetupLogger configures the global logger with a console writer on stderr.
func SetupLogger(verbosity int) {
	SetupLoggerTo(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}, verbosity)
}

// SetupLoggerTo configures the global logger to write to w.
func SetupLoggerTo(w io.Writer, verbosity int) {
	zerolog.SetGlobalLevel(LevelFor(verbosity))
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	if verbosity >= 2 {
		log.Logger = log.Logger.With().Caller().Logger()
	}
	log.Debug().Int("verbosity", verbosity).Msg("logger initialized")
}

// GetLogger returns the global logger tagged with component.
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// EvaluatorLogger forwards evaluator events: failures at warn, the rest at
// debug.
func EvaluatorLogger(logger zerolog.Logger) treeselect.EvaluatorLogger {
	return treeselect.EvaluatorLoggerFunc(func(event treeselect.EvaluatorLogEvent) {
		entry := logger.Debug()
		if event.Err != nil {
			entry = logger.Warn().Err(event.Err)
		}
		entry.
			Str("engine", event.Engine).
			Str("expr", event.Expr).
			Str("path", event.Path).
			Str("scope", event.Scope).
			Dur("duration", event.Duration).
			Msg("evaluation")
	})
}

// ActivityHook logs activity events at debug level. It never fails.
func ActivityHook(logger zerolog.Logger) activity.ActivityHook {
	return activity.HookFunc(func(_ context.Context, event activity.Event) error {
		logger.Debug().
			Str("verb", event.Verb).
			Str("object_type", event.ObjectType).
			Str("object_id", event.ObjectID).
			Str("channel", event.Channel).
			Fields(event.Metadata).
			Msg("activity")
		return nil
	})
}
