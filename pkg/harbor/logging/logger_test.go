package logging

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

var fixedTime = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

func newTestLogger(buf *bytes.Buffer, level Level, format Format) *Logger {
	l := New(buf, level, format)
	l.now = func() time.Time { return fixedTime }
	return l
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{" warn ", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"Error", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("TEXT"); err != nil || f != FormatText {
		t.Errorf("ParseFormat(TEXT) = %q, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(\"\") = %q, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, LevelInfo, FormatJSON)

	l.Info("listening", String("addr", ":8080"), Int("port", 8080), Err(errors.New("boom")))

	want := `{"time":"2026-01-02T15:04:05Z","level":"INFO","msg":"listening","addr":":8080","port":8080,"error":"boom"}` + "\n"
	if buf.String() != want {
		t.Errorf("got  %q\nwant %q", buf.String(), want)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
}

func TestLoggerText(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, LevelDebug, FormatText)

	l.Debug("resolved", String("path", "/a b"), Bool("cached", true), String("empty", ""))

	want := `2026-01-02T15:04:05Z DEBUG resolved path="/a b" cached=true empty=""` + "\n"
	if buf.String() != want {
		t.Errorf("got  %q\nwant %q", buf.String(), want)
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, LevelWarn, FormatText)

	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "WARN w") || !strings.Contains(lines[1], "ERROR e") {
		t.Errorf("lines = %q", lines)
	}
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	parent := newTestLogger(&buf, LevelInfo, FormatText)
	child := parent.With(String("conn_id", "abc"))

	child.Info("one", Int("n", 1))
	parent.Info("two")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if !strings.HasSuffix(lines[0], "one conn_id=abc n=1") {
		t.Errorf("child line = %q", lines[0])
	}
	if strings.Contains(lines[1], "conn_id") {
		t.Errorf("parent inherited child fields: %q", lines[1])
	}
}

func TestNilAndNopLogger(t *testing.T) {
	var nilLogger *Logger
	nilLogger.Info("ignored")
	nilLogger.Access(AccessEntry{})
	if nilLogger.With(String("a", "b")) != nil {
		t.Error("With on nil logger should return nil")
	}
	if nilLogger.Enabled(LevelError) {
		t.Error("nil logger reports enabled")
	}

	nop := Nop()
	nop.Error("ignored")
	if nop.Enabled(LevelError) {
		t.Error("Nop logger reports enabled")
	}
}

func TestAccessJSON(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, LevelInfo, FormatJSON)

	l.Access(AccessEntry{
		Time:       "2026-01-02T15:04:05Z",
		ConnID:     "c1",
		Remote:     "127.0.0.1:5000",
		Method:     "GET",
		Path:       "/index.html",
		Status:     200,
		Bytes:      187,
		DurationMS: 1.5,
	})

	var got AccessEntry
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if got.ConnID != "c1" || got.Status != 200 || got.Bytes != 187 || got.Path != "/index.html" {
		t.Errorf("decoded = %+v", got)
	}
	if strings.Contains(buf.String(), `"error"`) {
		t.Errorf("empty error should be omitted: %s", buf.String())
	}
}

func TestAccessText(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, LevelInfo, FormatText)

	l.Access(AccessEntry{
		Time:   "2026-01-02T15:04:05Z",
		ConnID: "c2",
		Remote: "10.0.0.1:1",
		Status: 0,
		Error:  "timeout",
	})

	want := "2026-01-02T15:04:05Z c2 10.0.0.1:1 - - - 0 - 0B - 0.000ms - ERROR: timeout\n"
	if buf.String() != want {
		t.Errorf("got  %q\nwant %q", buf.String(), want)
	}
}

func TestNewAccessEntry(t *testing.T) {
	start := time.Now().Add(-5 * time.Millisecond)
	e := NewAccessEntry(start)
	if e.DurationMS < 5 {
		t.Errorf("DurationMS = %v, want >= 5", e.DurationMS)
	}
	if _, err := time.Parse(time.RFC3339, e.Time); err != nil {
		t.Errorf("Time %q is not RFC3339: %v", e.Time, err)
	}
}

func TestLoggerConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, LevelInfo, FormatJSON)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			l.With(Int("worker", n)).Info("tick")
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 50 {
		t.Fatalf("got %d lines, want 50", len(lines))
	}
	for _, line := range lines {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("interleaved output %q: %v", line, err)
		}
	}
}
