package logging

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Setup configures the process-wide logger from the log section of the
// configuration. Unknown levels fall back to info; format "json" switches
// to JSON output, anything else stays text.
func Setup(level, format string) {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)

	if strings.ToLower(format) == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// Logf logs a formatted message at info level.
func Logf(format string, v ...interface{}) {
	logrus.Infof(format, v...)
}

// Debugf logs a formatted message at debug level.
func Debugf(format string, v ...interface{}) {
	logrus.Debugf(format, v...)
}

// Warnf logs a formatted message at warning level.
func Warnf(format string, v ...interface{}) {
	logrus.Warnf(format, v...)
}

// Errorf logs a formatted message at error level.
func Errorf(format string, v ...interface{}) {
	logrus.Errorf(format, v...)
}

// Fatalf logs a formatted message and exits.
func Fatalf(format string, v ...interface{}) {
	logrus.Fatalf(format, v...)
}

// WithFields returns a structured entry for callers that want key/value
// context instead of a preformatted message.
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return logrus.WithFields(logrus.Fields(fields))
}

// DebugEnabled reports whether debug-level logging is active. Hot paths
// use it to skip building expensive log arguments.
func DebugEnabled() bool {
	return logrus.IsLevelEnabled(logrus.DebugLevel)
}
