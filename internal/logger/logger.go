package logger

import (
	"fmt"
	"io"
	"os"

	"artnetd/internal/config"
	"github.com/sirupsen/logrus"
)

// Log is a logrus entry carrying the fields of the component that owns it.
type Log struct {
	*logrus.Entry
}

// NewLogger builds a logger on stdout at the configured level.
func NewLogger(cfg config.LogConf) (*Log, error) {
	return New(os.Stdout, cfg)
}

// New builds a logger writing to out. Format "json" selects one JSON object
// per line; anything else is the colored text layout.
func New(out io.Writer, cfg config.LogConf) (*Log, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logger. Error in settings (level: %s): %w", cfg.Level, err)
	}

	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)

	switch cfg.Format {
	case "json":
		log.Formatter = &logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000000Z07:00"}
	case "", "text":
		log.Formatter = &logrus.TextFormatter{
			TimestampFormat:  "2006-01-02 15:04:05.0000",
			ForceColors:      out == os.Stdout,
			FullTimestamp:    true,
			QuoteEmptyFields: true,
		}
	default:
		return nil, fmt.Errorf("logger. Error in settings (format: %s): unknown format", cfg.Format)
	}

	return &Log{Entry: log.WithFields(nil)}, nil
}

// NewDiscard returns a logger that drops everything.
func NewDiscard() *Log {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return &Log{Entry: log.WithFields(nil)}
}

// With returns a child logger with fields added to the ones l already has.
func (l *Log) With(fields Fields) *Log {
	return &Log{Entry: l.WithFields(logrus.Fields(fields))}
}

// Module tags every entry of the returned logger with the component name.
func (l *Log) Module(name string) *Log {
	return l.With(Fields{"module": name})
}

func (l *Log) GetLevel() string {
	return l.Logger.Level.String()
}

// Fields are a representation of formatted log fields.
type Fields map[string]interface{}

// Logger is what the services need from a logger.
type Logger interface {
	// GetLevel returns the active level name.
	GetLevel() string
	With(fields Fields) *Log
	Module(name string) *Log
}
