// Package logging provides the leveled, structured logger used by the
// server, the resolver and the command.
//
// Two output formats are supported:
//
//	json: {"time":"2026-01-02T15:04:05Z","level":"INFO","msg":"listening","addr":":8080"}
//	text: 2026-01-02T15:04:05Z INFO listening addr=:8080
//
// A nil *Logger is valid and discards everything.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// Level is a log severity.
type Level int8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError

	levelOff
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses "debug", "info", "warn"/"warning" or "error" in any case.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("logging: unknown level %q", s)
}

// Format selects the encoding of log lines.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// ParseFormat parses "json" or "text". Empty means json.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatText:
		return FormatText, nil
	}
	return FormatJSON, fmt.Errorf("logging: unknown format %q", s)
}

// Field is one key/value pair attached to a log line.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field      { return Field{key, value} }
func Int(key string, value int) Field     { return Field{key, value} }
func Int64(key string, value int64) Field { return Field{key, value} }
func Bool(key string, value bool) Field   { return Field{key, value} }
func Any(key string, value any) Field     { return Field{key, value} }
func Duration(key string, d time.Duration) Field {
	return Field{key, float64(d.Microseconds()) / 1000.0}
}

// Err attaches err under the "error" key. A nil error yields an empty value.
func Err(err error) Field {
	if err == nil {
		return Field{"error", ""}
	}
	return Field{"error", err.Error()}
}

// Logger writes leveled lines to an io.Writer. It is safe for concurrent use.
type Logger struct {
	mu     *sync.Mutex
	out    io.Writer
	level  Level
	format Format
	fields []Field
	now    func() time.Time
}

// New returns a Logger writing lines at or above level to out.
// A nil out means os.Stderr.
func New(out io.Writer, level Level, format Format) *Logger {
	if out == nil {
		out = os.Stderr
	}
	if format == "" {
		format = FormatJSON
	}
	return &Logger{
		mu:     &sync.Mutex{},
		out:    out,
		level:  level,
		format: format,
		now:    time.Now,
	}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return New(io.Discard, levelOff, FormatJSON)
}

// With returns a child logger that adds fields to every line.
// The child shares the parent's writer and lock.
func (l *Logger) With(fields ...Field) *Logger {
	if l == nil {
		return nil
	}
	child := *l
	child.fields = make([]Field, 0, len(l.fields)+len(fields))
	child.fields = append(child.fields, l.fields...)
	child.fields = append(child.fields, fields...)
	return &child
}

// Enabled reports whether lines at level are written.
func (l *Logger) Enabled(level Level) bool {
	return l != nil && level >= l.level
}

// Level returns the minimum level written.
func (l *Logger) Level() Level {
	if l == nil {
		return levelOff
	}
	return l.level
}

func (l *Logger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.log(LevelError, msg, fields) }

func (l *Logger) log(level Level, msg string, fields []Field) {
	if !l.Enabled(level) {
		return
	}

	ts := l.now().UTC().Format(time.RFC3339)
	var line []byte
	if l.format == FormatText {
		line = l.appendText(nil, ts, level, msg, fields)
	} else {
		line = l.appendJSON(nil, ts, level, msg, fields)
	}
	l.write(line)
}

// appendJSON renders an object with time, level and msg first, then the
// logger's own fields, then the call's fields, in order.
func (l *Logger) appendJSON(dst []byte, ts string, level Level, msg string, fields []Field) []byte {
	dst = append(dst, `{"time":`...)
	dst = appendJSONValue(dst, ts)
	dst = append(dst, `,"level":`...)
	dst = appendJSONValue(dst, level.String())
	dst = append(dst, `,"msg":`...)
	dst = appendJSONValue(dst, msg)
	for _, group := range [2][]Field{l.fields, fields} {
		for _, f := range group {
			dst = append(dst, ',')
			dst = appendJSONValue(dst, f.Key)
			dst = append(dst, ':')
			dst = appendJSONValue(dst, f.Value)
		}
	}
	return append(dst, '}', '\n')
}

func appendJSONValue(dst []byte, v any) []byte {
	if err, ok := v.(error); ok {
		v = err.Error()
	}
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(fmt.Sprint(v))
	}
	return append(dst, b...)
}

func (l *Logger) appendText(dst []byte, ts string, level Level, msg string, fields []Field) []byte {
	dst = append(dst, ts...)
	dst = append(dst, ' ')
	dst = append(dst, level.String()...)
	dst = append(dst, ' ')
	dst = append(dst, msg...)
	for _, group := range [2][]Field{l.fields, fields} {
		for _, f := range group {
			dst = append(dst, ' ')
			dst = append(dst, f.Key...)
			dst = append(dst, '=')
			dst = appendTextValue(dst, f.Value)
		}
	}
	return append(dst, '\n')
}

func appendTextValue(dst []byte, v any) []byte {
	s := fmt.Sprint(v)
	if strings.ContainsAny(s, " \t\"=") || s == "" {
		return fmt.Appendf(dst, "%q", s)
	}
	return append(dst, s...)
}

func (l *Logger) write(line []byte) {
	l.mu.Lock()
	_, err := l.out.Write(line)
	l.mu.Unlock()
	if err != nil {
		log.Printf("Failed to write log: %v", err)
	}
}
