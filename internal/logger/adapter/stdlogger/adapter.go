// Package stdlogger adapts zerolog to the printf style logger interface
// expected by libraries that take a standard logger.
package stdlogger

import (
	"github.com/rs/zerolog/log"
)

// StdLogger wraps the global zerolog logger.
type StdLogger struct{}

// New creates a printf style logger backed by zerolog.
func New() *StdLogger {
	return &StdLogger{}
}

// Debugf logs at debug level.
func (l *StdLogger) Debugf(format string, v ...interface{}) {
	log.Debug().Msgf(format, v...)
}

// Infof logs at info level.
func (l *StdLogger) Infof(format string, v ...interface{}) {
	log.Info().Msgf(format, v...)
}

// Warningf logs at warn level.
func (l *StdLogger) Warningf(format string, v ...interface{}) {
	log.Warn().Msgf(format, v...)
}

// Errorf logs at error level.
func (l *StdLogger) Errorf(format string, v ...interface{}) {
	log.Error().Msgf(format, v...)
}
