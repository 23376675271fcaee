package group

import (
	"os"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts github.com/rs/zerolog to the Logger interface.
// This is the production logger; DefaultLogger remains the
// dependency-free fallback used by package tests.
type ZerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger builds a ZerologLogger writing structured JSON to
// stderr, tagged with the given component name.
func NewZerologLogger(component string) *ZerologLogger {
	l := zerolog.New(os.Stderr).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{logger: l}
}

func (z *ZerologLogger) Debugf(format string, v ...interface{}) {
	z.logger.Debug().Msgf(format, v...)
}

func (z *ZerologLogger) Infof(format string, v ...interface{}) {
	z.logger.Info().Msgf(format, v...)
}

func (z *ZerologLogger) Warnf(format string, v ...interface{}) {
	z.logger.Warn().Msgf(format, v...)
}

func (z *ZerologLogger) Errorf(format string, v ...interface{}) {
	z.logger.Error().Msgf(format, v...)
}

func (z *ZerologLogger) Fatalf(format string, v ...interface{}) {
	z.logger.Fatal().Msgf(format, v...)
}

func (z *ZerologLogger) ToggleDebug(value bool) bool {
	if value {
		z.logger = z.logger.Level(zerolog.DebugLevel)
	} else {
		z.logger = z.logger.Level(zerolog.InfoLevel)
	}
	return value
}
