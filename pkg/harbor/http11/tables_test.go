package http11

import (
	"strconv"
	"testing"
)

func TestMimeType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"index.html", "text/html"},
		{"INDEX.HTML", "text/html"},
		{"style.css", "text/css"},
		{"app.js", "text/javascript"},
		{"data.json", "application/json"},
		{"logo.PNG", "image/png"},
		{"archive.tar.gz", "application/gzip"},
		{"notes.txt", "text/plain"},
		{"README", DefaultMimeType},
		{"file.unknownext", DefaultMimeType},
		{"trailingdot.", DefaultMimeType},
		{"", DefaultMimeType},
	}

	for _, tt := range tests {
		if got := MimeType(tt.name); got != tt.want {
			t.Errorf("MimeType(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"a.HTML", "html"},
		{"a.b.c", "c"},
		{".bashrc", "bashrc"},
		{"noext", ""},
		{"dir.d/file", "d/file"},
	}

	for _, tt := range tests {
		if got := Extension(tt.name); got != tt.want {
			t.Errorf("Extension(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestStatusText(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "OK"},
		{101, "Switching Protocol"},
		{300, "Multiple Choice"},
		{404, "Not Found"},
		{405, "Method Not Allowed"},
		{413, "Payload Too Large"},
		{418, "I'm a teapot"},
		{431, "Request Header Fields Too Large"},
		{500, "Internal Server Error"},
		{0, UnknownStatusText},
		{299, UnknownStatusText},
		{999, UnknownStatusText},
		{-1, UnknownStatusText},
	}

	for _, tt := range tests {
		if got := StatusText(tt.code); got != tt.want {
			t.Errorf("StatusText(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestStatusLineMatchesText(t *testing.T) {
	for code, text := range statusTexts {
		want := "HTTP/1.1 " + strconv.Itoa(code) + " " + text + "\r\n"
		if got := string(appendStatusLine(nil, code)); got != want {
			t.Errorf("status line for %d = %q, want %q", code, got, want)
		}
	}

	if got := string(appendStatusLine(nil, 799)); got != "HTTP/1.1 799 Unknown code\r\n" {
		t.Errorf("unknown status line = %q", got)
	}
}

func TestParseMethodID(t *testing.T) {
	for _, m := range []string{
		MethodGet, MethodHead, MethodPost, MethodPut, MethodDelete,
		MethodConnect, MethodOptions, MethodTrace, MethodPatch,
	} {
		id := ParseMethodID(m)
		if id == MethodUnknown {
			t.Errorf("ParseMethodID(%q) = MethodUnknown", m)
			continue
		}
		if MethodString(id) != m {
			t.Errorf("MethodString(ParseMethodID(%q)) = %q", m, MethodString(id))
		}
	}

	for _, m := range []string{"get", "Post", "PROPFIND", "", "GETS"} {
		if id := ParseMethodID(m); id != MethodUnknown {
			t.Errorf("ParseMethodID(%q) = %d, want MethodUnknown", m, id)
		}
	}
}
