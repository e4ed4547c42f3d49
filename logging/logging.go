// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Setup sets the level and output format of the standard logger. format is
// "text" (the default when empty) or "json".
func Setup(level, format string) error {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	var formatter logrus.Formatter
	switch strings.ToLower(format) {
	case "", "text":
		formatter = &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		}
	case "json":
		formatter = &logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		}
	default:
		return fmt.Errorf("log format %q: want text or json", format)
	}

	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(lvl)
	logrus.SetFormatter(formatter)
	return nil
}
