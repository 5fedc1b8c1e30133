package logger

import (
	"os"

	corelogger "github.com/opensar/rescue/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

// New returns a Logger for the given component. The backend is selected via
// the LOG_BACKEND environment variable ("logrus" for the JSON logrus adapter,
// zerolog otherwise); zerolog additionally pretty-prints when APP_ENV=dev.
func New(component string) Logger {
	if os.Getenv("LOG_BACKEND") == "logrus" {
		return NewLogrusLogger(component)
	}
	return NewZerologLogger(component)
}
