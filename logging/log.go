package logging

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Configure sets level and output format ("text" or "json") on the standard logger.
func Configure(level, format string) error {
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)

	switch format {
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("invalid formatter: '%s'", format)
	}
	return nil
}

// Module returns a logger whose entries are tagged with the given module name.
func Module(name string) *logrus.Entry {
	return logrus.StandardLogger().WithField("module", name)
}
