// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/khabaznak/gym-tracker/internal/config"
)

const (
	maxFileSizeMB = 50
	maxBackups    = 10
)

// Setup applies cfg to the standard logger and returns a func that closes
// the log file, if one was opened.
func Setup(cfg config.LogConfig) (closeFn func()) {
	if cfg.JSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logrus.SetLevel(GetLevel(cfg.Level))

	file := rotatingFile(cfg.File)
	if file == nil {
		logrus.SetOutput(os.Stdout)
		return func() {}
	}

	if cfg.Stdout {
		logrus.SetOutput(io.MultiWriter(os.Stdout, file))
	} else {
		logrus.SetOutput(file)
	}
	logrus.WithField("file", file.Filename).Info("logging to file")
	return func() { _ = file.Close() }
}

// rotatingFile returns nil when name is empty. Rotated files are compressed
// and stamped in UTC.
func rotatingFile(name string) *lumberjack.Logger {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	if !strings.HasSuffix(name, ".log") {
		name += ".log"
	}
	return &lumberjack.Logger{
		Filename:   name,
		MaxSize:    maxFileSizeMB,
		MaxBackups: maxBackups,
		Compress:   true,
	}
}

// GetLevel parses level, defaulting to info.
func GetLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}
