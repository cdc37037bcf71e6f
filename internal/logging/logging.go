// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logFileName = "hireledger.log"

// Options selects the log level and destination.
type Options struct {
	Debug         bool
	LoggingToFile bool
	LogDir        string
}

// Setup applies opts to the standard logger. The returned closer releases the
// log file and is never nil.
func Setup(opts Options) (io.Closer, error) {
	return configure(log.StandardLogger(), opts)
}

func configure(logger *log.Logger, opts Options) (io.Closer, error) {
	logger.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	if opts.Debug {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}

	if !opts.LoggingToFile {
		logger.SetOutput(os.Stdout)
		return nopCloser{}, nil
	}

	dir := strings.TrimSpace(opts.LogDir)
	if dir == "" {
		dir = "logs"
	}
	if errMkdir := os.MkdirAll(dir, 0o755); errMkdir != nil {
		return nopCloser{}, fmt.Errorf("logging: create log dir: %w", errMkdir)
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
		Compress:   true,
	}
	logger.SetOutput(rotator)
	return rotator, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
