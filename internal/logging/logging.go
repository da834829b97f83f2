// Package logging configures the logrus logger shared by the reactor,
// evaluator, and AOF dumper.
package logging

import (
	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger at the given level (trace/debug/info/warn/
// error/fatal), falling back to info on an unrecognized level.
func New(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)

	return log
}
