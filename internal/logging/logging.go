package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ComponentKey is the log field naming the subsystem that emitted an entry.
const ComponentKey = "component"

// Init parses and sets the log level and destination. An empty logPath or
// "console" logs to stderr; anything else is a rotated file.
func Init(logLevel string, logPath string) error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed parsing log-level %s: %w", logLevel, err)
	}

	var out io.Writer = os.Stderr
	if logPath != "" && logPath != "console" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		out = &lumberjack.Logger{
			// Log file absolute path, os agnostic
			Filename:   filepath.ToSlash(logPath),
			MaxSize:    5, // MB
			MaxBackups: 10,
			MaxAge:     30, // days
			Compress:   true,
		}
	}

	log.SetOutput(out)
	log.SetFormatter(NewFormatter())
	log.SetLevel(level)
	return nil
}

// Formatter prefixes the message with the emitting component.
type Formatter struct {
	log.TextFormatter
}

// NewFormatter returns the formatter installed by Init.
func NewFormatter() *Formatter {
	return &Formatter{TextFormatter: log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	}}
}

func (f *Formatter) Format(entry *log.Entry) ([]byte, error) {
	component, ok := entry.Data[ComponentKey].(string)
	if !ok || component == "" {
		return f.TextFormatter.Format(entry)
	}

	// Copy so the prefix does not leak into hooks sharing the entry.
	clone := entry.Dup()
	clone.Level = entry.Level
	clone.Caller = entry.Caller
	clone.Buffer = entry.Buffer
	clone.Message = "[" + component + "] " + entry.Message
	delete(clone.Data, ComponentKey)
	return f.TextFormatter.Format(clone)
}

// Component returns a logger entry tagged with name.
func Component(name string) *log.Entry {
	return log.WithField(ComponentKey, name)
}
