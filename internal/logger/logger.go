package logger

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger
func Init(serviceName string, debug bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "timestamp"
	zerolog.MessageFieldName = "message"

	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
		FormatLevel: func(i interface{}) string {
			return fmt.Sprintf("| %-6s|", i)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("%s=", i)
		},
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Debug logs a user action at debug level
// Format: user_id=... action=... details=...
func Debug(userID int64, action, details string) {
	event(log.Debug(), userID, action).Str("details", details).Send()
}

// Error logs a failed user action with the error attached
func Error(userID int64, action string, err error) {
	event(log.Error(), userID, action).Err(err).Send()
}

// Info returns an info-level event
func Info() *zerolog.Event {
	return log.Info()
}

// Warn returns a warn-level event
func Warn() *zerolog.Event {
	return log.Warn()
}

func event(e *zerolog.Event, userID int64, action string) *zerolog.Event {
	return e.Int64("user_id", userID).Str("action", action)
}
