package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger. It is usable before Init with logrus
// defaults so packages and tests can log without setup.
var Log = logrus.New()

// Init configures the global logger. level is a logrus level name ("debug",
// "info", ...); format is "json" for production collectors, anything else for
// human-readable text.
func Init(level string, format string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if strings.ToLower(format) == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	Log.SetOutput(os.Stdout)
}

// Silence discards all output. Tests call it to keep go test output readable.
func Silence() {
	Log.SetOutput(io.Discard)
}

// Component returns an entry tagged with the component name.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
