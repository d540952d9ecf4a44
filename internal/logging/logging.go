// Package logging provides the structured, component-scoped logger used
// across the extraction pipeline. It is a small leveled logger over an
// io.Writer, not a wrapper around log/slog.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Level represents the severity of a log message.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

var levelPriority = map[Level]int{
	DebugLevel: 0,
	InfoLevel:  1,
	WarnLevel:  2,
	ErrorLevel: 3,
}

// Format is the rendering used for each log line.
type Format string

const (
	JSONFormat  Format = "json"
	HumanFormat Format = "human"
)

// Config configures a Logger.
type Config struct {
	Format Format
	Level  Level
	Output io.Writer // defaults to stderr when nil
}

// Logger is a leveled, field-carrying logger.
type Logger struct {
	config    Config
	writer    io.Writer
	component string
}

// NewLogger creates a Logger from Config.
func NewLogger(config Config) *Logger {
	writer := config.Output
	if writer == nil {
		writer = os.Stderr
	}
	if config.Level == "" {
		config.Level = InfoLevel
	}
	if config.Format == "" {
		config.Format = HumanFormat
	}
	return &Logger{config: config, writer: writer}
}

// WithComponent returns a derived Logger that tags every entry it logs
// with a "component" field, so a single root Logger handed to main can
// be specialized per pipeline stage (extract, llm, summarize, fsm) while
// sharing one Config and writer. Deriving from an already-tagged logger
// composes "outer/inner" rather than overwriting the outer tag, so the
// FSM's machine logger reads as "fsm/machine", not just "machine".
func (l *Logger) WithComponent(component string) *Logger {
	next := *l
	if next.component != "" {
		next.component = next.component + "/" + component
	} else {
		next.component = component
	}
	return &next
}

type logEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func (l *Logger) shouldLog(level Level) bool {
	return levelPriority[level] >= levelPriority[l.config.Level]
}

func (l *Logger) log(level Level, message string, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}
	if l.component != "" {
		tagged := make(map[string]interface{}, len(fields)+1)
		for k, v := range fields {
			tagged[k] = v
		}
		tagged["component"] = l.component
		fields = tagged
	}
	entry := logEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     string(level),
		Message:   message,
		Fields:    fields,
	}
	if l.config.Format == JSONFormat {
		l.logJSON(entry)
		return
	}
	l.logHuman(entry)
}

func (l *Logger) logJSON(entry logEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "logging: failed to marshal entry: %v\n", err)
		return
	}
	_, _ = fmt.Fprintln(l.writer, string(data))
}

func (l *Logger) logHuman(entry logEntry) {
	_, _ = fmt.Fprintf(l.writer, "%s [%s] %s", entry.Timestamp, entry.Level, entry.Message)
	if len(entry.Fields) > 0 {
		_, _ = fmt.Fprint(l.writer, " |")
		for k, v := range entry.Fields {
			_, _ = fmt.Fprintf(l.writer, " %s=%v", k, v)
		}
	}
	_, _ = fmt.Fprintln(l.writer)
}

// Debug logs at debug level.
func (l *Logger) Debug(message string, fields map[string]interface{}) { l.log(DebugLevel, message, fields) }

// Info logs at info level.
func (l *Logger) Info(message string, fields map[string]interface{}) { l.log(InfoLevel, message, fields) }

// Warn logs at warn level.
func (l *Logger) Warn(message string, fields map[string]interface{}) { l.log(WarnLevel, message, fields) }

// Error logs at error level.
func (l *Logger) Error(message string, fields map[string]interface{}) { l.log(ErrorLevel, message, fields) }
