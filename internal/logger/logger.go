package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

func init() {
	Logger = logrus.New()
	Logger.SetOutput(os.Stdout)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	Logger.SetLevel(logrus.InfoLevel)

	// MEALSYNC_LOG_LEVEL wins over the generic LOG_LEVEL
	for _, env := range []string{"LOG_LEVEL", "MEALSYNC_LOG_LEVEL"} {
		if level := os.Getenv(env); level != "" {
			if parsedLevel, err := logrus.ParseLevel(strings.ToLower(level)); err == nil {
				Logger.SetLevel(parsedLevel)
			}
		}
	}
}

// SetLevel parses level and applies it. Unknown levels leave the current level untouched
// and return false.
func SetLevel(level string) bool {
	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return false
	}
	Logger.SetLevel(parsed)
	return true
}

// WithComponent adds a component field to the logger
func WithComponent(component string) *logrus.Entry {
	return Logger.WithField("component", component)
}

// WithKey is WithComponent plus the cache key the log line is about.
func WithKey(component, key string) *logrus.Entry {
	return Logger.WithFields(logrus.Fields{"component": component, "key": key})
}
