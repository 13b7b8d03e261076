// Package monitoring configures structured logging.
package monitoring

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Development switches output to a human-readable console writer.
const Development = "development"

// Init configures the global logger for env at the named level. An empty
// level means info.
func Init(env, level string) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if env == Development {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("monitoring: %w", err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	return nil
}

// NewLogger returns a child of the global logger tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
