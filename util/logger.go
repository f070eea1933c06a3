package util

import (
	"io"
	"os"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

// LogFormat is the line format used for both the log file and the console.
const LogFormat = `%{time:2006-01-02 15:04:05} %{level:.4s} %{message}`

// NewLogger returns a logger writing every message at or above level to each
// of the given writers. The returned logger has its own backend, so loggers
// made for different runs (or tests) do not interfere with each other.
func NewLogger(module string, level logging.Level, writers ...io.Writer) *logging.Logger {
	formatter := logging.MustStringFormatter(LogFormat)
	var backends []logging.Backend
	for _, w := range writers {
		b := logging.NewLogBackend(w, "", 0)
		backends = append(backends, logging.NewBackendFormatter(b, formatter))
	}
	leveled := logging.MultiLogger(backends...)
	leveled.SetLevel(level, "")
	log := logging.MustGetLogger(module)
	log.SetBackend(leveled)
	return log
}

// OpenLog opens (or creates) the append-only log file at filename and returns
// a logger that writes to it and mirrors everything to console. Close the
// returned io.Closer when the run finishes. levelName is a go-logging level
// name such as "INFO" or "DEBUG".
func OpenLog(filename string, levelName string, console io.Writer) (*logging.Logger, io.Closer, error) {
	level, err := logging.LogLevel(levelName)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "log level %q", levelName)
	}
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open log file")
	}
	return NewLogger("bagingest", level, f, console), f, nil
}
