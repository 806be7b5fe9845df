package logging

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// AccessEntry is one line of the access log, written once per connection.
//
// Output (json):
//
//	{"time":"2026-01-02T15:04:05Z","conn_id":"7d3c…","remote":"127.0.0.1:50312","method":"GET","path":"/index.html","status":200,"bytes":187,"duration_ms":0.42}
type AccessEntry struct {
	Time       string  `json:"time"`
	ConnID     string  `json:"conn_id"`
	Remote     string  `json:"remote"`
	Method     string  `json:"method,omitempty"`
	Path       string  `json:"path,omitempty"`
	Status     int     `json:"status"`
	Bytes      int64   `json:"bytes"`
	DurationMS float64 `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
}

// NewAccessEntry fills Time and DurationMS from start.
func NewAccessEntry(start time.Time) AccessEntry {
	return AccessEntry{
		Time:       start.UTC().Format(time.RFC3339),
		DurationMS: float64(time.Since(start).Microseconds()) / 1000.0,
	}
}

// Access writes entry at info level. A status of 0 means no response was
// written.
func (l *Logger) Access(entry AccessEntry) {
	if !l.Enabled(LevelInfo) {
		return
	}

	if l.format == FormatText {
		l.write(appendAccessText(nil, entry))
		return
	}

	b, err := json.Marshal(entry)
	if err != nil {
		l.Error("access log encode failed", Err(err))
		return
	}
	l.write(append(b, '\n'))
}

func appendAccessText(dst []byte, e AccessEntry) []byte {
	method, path := e.Method, e.Path
	if method == "" {
		method = "-"
	}
	if path == "" {
		path = "-"
	}
	dst = fmt.Appendf(dst, "%s %s %s %s %s - %d - %dB - %.3fms",
		e.Time, e.ConnID, e.Remote, method, path, e.Status, e.Bytes, e.DurationMS)
	if e.Error != "" {
		dst = fmt.Appendf(dst, " - ERROR: %s", e.Error)
	}
	return append(dst, '\n')
}
