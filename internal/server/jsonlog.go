// jsonlog.go - Structured leveled logging for the transfer server.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"
)

// LogLevel represents the severity of a log entry.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var levelRank = map[LogLevel]int{
	LogLevelDebug: 0,
	LogLevelInfo:  1,
	LogLevelWarn:  2,
	LogLevelError: 3,
}

// Logger writes one line per event, as JSON in production or key=val text
// in development. Format and minimum level come from DFT_LOG_FORMAT and
// DFT_LOG_LEVEL when NewLoggerFromEnv is used.
type Logger struct {
	output   io.Writer
	minLevel LogLevel
	json     bool
}

type logEntry struct {
	Level   LogLevel       `json:"level"`
	Time    string         `json:"time"`
	Message string         `json:"msg"`
	Session string         `json:"session_id,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// NewLogger returns a logger with an explicit configuration. Tests pass
// their own writer.
func NewLogger(out io.Writer, minLevel LogLevel, jsonFormat bool) *Logger {
	if _, ok := levelRank[minLevel]; !ok {
		minLevel = LogLevelInfo
	}
	return &Logger{output: out, minLevel: minLevel, json: jsonFormat}
}

// NewLoggerFromEnv builds the production logger from the environment:
// DFT_LOG_LEVEL selects the minimum level (default info) and JSON output
// is enabled by DFT_LOG_FORMAT=json or DFT_ENV=production.
func NewLoggerFromEnv() *Logger {
	jsonFormat := os.Getenv("DFT_LOG_FORMAT") == "json" || os.Getenv("DFT_ENV") == "production"
	return NewLogger(os.Stdout, LogLevel(os.Getenv("DFT_LOG_LEVEL")), jsonFormat)
}

// WithSession returns a logger that stamps every entry with the session id.
func (l *Logger) WithSession(id string) *SessionLogger {
	return &SessionLogger{l: l, session: id}
}

func (l *Logger) log(level LogLevel, session, msg string, fields map[string]any, err error) {
	if l == nil || levelRank[level] < levelRank[l.minLevel] {
		return
	}

	entry := logEntry{
		Level:   level,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Message: msg,
		Session: session,
		Fields:  fields,
	}
	if err != nil {
		entry.Error = err.Error()
	}

	if l.json {
		data, _ := json.Marshal(entry)
		fmt.Fprintln(l.output, string(data))
		return
	}

	fmt.Fprintf(l.output, "[%s] %s %s", entry.Level, entry.Time, entry.Message)
	if entry.Session != "" {
		fmt.Fprintf(l.output, " session=%s", entry.Session)
	}
	// Deterministic field order keeps text logs diffable.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(l.output, " %s=%v", k, fields[k])
	}
	if entry.Error != "" {
		fmt.Fprintf(l.output, " error=%q", entry.Error)
	}
	fmt.Fprintln(l.output)
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields map[string]any) {
	l.log(LogLevelDebug, "", msg, fields, nil)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields map[string]any) {
	l.log(LogLevelInfo, "", msg, fields, nil)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields map[string]any) {
	l.log(LogLevelWarn, "", msg, fields, nil)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields map[string]any, err error) {
	l.log(LogLevelError, "", msg, fields, err)
}

// SessionLogger is a Logger bound to one connection's session id.
type SessionLogger struct {
	l       *Logger
	session string
}

func (s *SessionLogger) Debug(msg string, fields map[string]any) {
	s.l.log(LogLevelDebug, s.session, msg, fields, nil)
}

func (s *SessionLogger) Info(msg string, fields map[string]any) {
	s.l.log(LogLevelInfo, s.session, msg, fields, nil)
}

func (s *SessionLogger) Warn(msg string, fields map[string]any) {
	s.l.log(LogLevelWarn, s.session, msg, fields, nil)
}

func (s *SessionLogger) Error(msg string, fields map[string]any, err error) {
	s.l.log(LogLevelError, s.session, msg, fields, err)
}
