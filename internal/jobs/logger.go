package jobs

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Logger adapts zerolog to asynq.Logger.
type Logger struct {
	log zerolog.Logger
}

// NewLogger wraps a zerolog logger for asynq.
func NewLogger(log zerolog.Logger) *Logger {
	return &Logger{log: log.With().Str("component", "asynq").Logger()}
}

func (l *Logger) Debug(args ...interface{}) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l *Logger) Info(args ...interface{})  { l.log.Info().Msg(fmt.Sprint(args...)) }
func (l *Logger) Warn(args ...interface{})  { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l *Logger) Error(args ...interface{}) { l.log.Error().Msg(fmt.Sprint(args...)) }

// Fatal logs and exits, as asynq expects.
func (l *Logger) Fatal(args ...interface{}) { l.log.Fatal().Msg(fmt.Sprint(args...)) }
