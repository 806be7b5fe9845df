package http11

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"testing"
	"time"
)

func parseString(t *testing.T, p *Parser, raw string) (*Request, error) {
	t.Helper()
	return p.Parse(bufio.NewReader(strings.NewReader(raw)))
}

// TestParserSimpleGET tests parsing a minimal GET request
func TestParserSimpleGET(t *testing.T) {
	req, err := parseString(t, NewParser(), "GET /index.html HTTP/1.1\r\nHost: x\r\n\r\n")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if req.Method() != "GET" {
		t.Errorf("Method = %q, want GET", req.Method())
	}
	if req.MethodID() != MethodIDGet {
		t.Errorf("MethodID = %d, want %d", req.MethodID(), MethodIDGet)
	}
	if req.Path() != "/index.html" {
		t.Errorf("Path = %q, want /index.html", req.Path())
	}
	if req.Proto() != ProtoHTTP11 {
		t.Errorf("Proto = %q, want HTTP/1.1", req.Proto())
	}
	if req.Header("Host") != "x" {
		t.Errorf("Host = %q, want x", req.Header("Host"))
	}
	if len(req.Body()) != 0 {
		t.Errorf("Body length = %d, want 0", len(req.Body()))
	}
	if req.ContentLength() != -1 {
		t.Errorf("ContentLength = %d, want -1", req.ContentLength())
	}
}

func TestParserHeaders(t *testing.T) {
	raw := "GET / HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"X-Trim:    padded value  \t\r\n" +
		"X-Dup: first\r\n" +
		"x-dup: second\r\n" +
		"Empty:\r\n" +
		"\r\n"

	req, err := parseString(t, NewParser(), raw)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	tests := []struct {
		name string
		want string
	}{
		{"host", "example.com"},
		{"HOST", "example.com"},
		{"X-Trim", "padded value"},
		{"X-DUP", "second"},
		{"empty", ""},
	}
	for _, tt := range tests {
		if got := req.Header(tt.name); got != tt.want {
			t.Errorf("Header(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}

	if !req.HasHeader("Empty") {
		t.Error("HasHeader(Empty) = false, want true")
	}

	all := req.Headers()
	if len(all) != 4 {
		t.Errorf("Headers() has %d entries, want 4: %v", len(all), all)
	}
	if _, ok := all["x-dup"]; !ok {
		t.Errorf("Headers() keys should be lower-cased, got %v", all)
	}

	// Headers returns a copy
	all["host"] = "mutated"
	if req.Header("host") != "example.com" {
		t.Error("mutating Headers() result changed the request")
	}
}

func TestParserBareLF(t *testing.T) {
	req, err := parseString(t, NewParser(), "GET /a HTTP/1.0\nHost: x\n\n")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if req.Proto() != ProtoHTTP10 || req.Header("host") != "x" {
		t.Errorf("got proto=%q host=%q", req.Proto(), req.Header("host"))
	}
}

func TestParserBody(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantBody   string
		wantLength int64
	}{
		{
			name:       "content length",
			raw:        "POST /u HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello",
			wantBody:   "hello",
			wantLength: 5,
		},
		{
			name:       "extra bytes ignored",
			raw:        "POST /u HTTP/1.1\r\nContent-Length: 2\r\n\r\nhello",
			wantBody:   "he",
			wantLength: 2,
		},
		{
			name:       "zero length",
			raw:        "POST /u HTTP/1.1\r\nContent-Length: 0\r\n\r\n",
			wantBody:   "",
			wantLength: 0,
		},
		{
			name:       "non numeric length means empty body",
			raw:        "POST /u HTTP/1.1\r\nContent-Length: abc\r\n\r\nhello",
			wantBody:   "",
			wantLength: -1,
		},
		{
			name:       "negative length means empty body",
			raw:        "POST /u HTTP/1.1\r\nContent-Length: -4\r\n\r\nhello",
			wantBody:   "",
			wantLength: -1,
		},
		{
			name:       "no length means empty body",
			raw:        "POST /u HTTP/1.1\r\n\r\nhello",
			wantBody:   "",
			wantLength: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := parseString(t, NewParser(), tt.raw)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if string(req.Body()) != tt.wantBody {
				t.Errorf("Body = %q, want %q", req.Body(), tt.wantBody)
			}
			if req.ContentLength() != tt.wantLength {
				t.Errorf("ContentLength = %d, want %d", req.ContentLength(), tt.wantLength)
			}
		})
	}
}

func TestParserTargets(t *testing.T) {
	tests := []struct {
		target    string
		wantPath  string
		wantQuery string
	}{
		{"/", "/", ""},
		{"/a/b/../c", "/a/c", ""},
		{"/../../etc/passwd", "/etc/passwd", ""},
		{"/docs/", "/docs", ""},
		{"/hello%20world.txt", "/hello world.txt", ""},
		{"/%2e%2e/secret", "/secret", ""},
		{"/search?q=go&page=2", "/search", "q=go&page=2"},
		{"http://example.com/x/./y?z=1", "/x/y", "z=1"},
		{"example.com:443", "example.com:443", ""},
		{"*", "*", ""},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			req, err := parseString(t, NewParser(), "GET "+tt.target+" HTTP/1.1\r\n\r\n")
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if req.Path() != tt.wantPath {
				t.Errorf("Path = %q, want %q", req.Path(), tt.wantPath)
			}
			if req.Query() != tt.wantQuery {
				t.Errorf("Query = %q, want %q", req.Query(), tt.wantQuery)
			}
			if req.Target() != tt.target {
				t.Errorf("Target = %q, want %q", req.Target(), tt.target)
			}
		})
	}
}

func TestParserUnknownMethodIsAccepted(t *testing.T) {
	for _, method := range []string{"BREW", "get", "PROPFIND"} {
		req, err := parseString(t, NewParser(), method+" / HTTP/1.1\r\n\r\n")
		if err != nil {
			t.Fatalf("%s: Parse error: %v", method, err)
		}
		if req.MethodID() != MethodUnknown {
			t.Errorf("%s: MethodID = %d, want MethodUnknown", method, req.MethodID())
		}
		if req.Method() != method {
			t.Errorf("Method = %q, want %q", req.Method(), method)
		}
	}
}

func TestParserMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"two fields", "GET /\r\n\r\n"},
		{"four fields", "GET / HTTP/1.1 extra\r\n\r\n"},
		{"double space", "GET  / HTTP/1.1\r\n\r\n"},
		{"empty line", "\r\n\r\n"},
		{"bad protocol", "GET / HTTP/2.0\r\n\r\n"},
		{"lower case protocol", "GET / http/1.1\r\n\r\n"},
		{"invalid method char", "G(ET / HTTP/1.1\r\n\r\n"},
		{"header without colon", "GET / HTTP/1.1\r\nHost example.com\r\n\r\n"},
		{"space before colon", "GET / HTTP/1.1\r\nHost : example.com\r\n\r\n"},
		{"empty header name", "GET / HTTP/1.1\r\n: value\r\n\r\n"},
		{"folded header", "GET / HTTP/1.1\r\nX-A: 1\r\n  continued\r\n\r\n"},
		{"bad escape", "GET /%zz HTTP/1.1\r\n\r\n"},
		{"nul byte", "GET /a%00b HTTP/1.1\r\n\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseString(t, NewParser(), tt.raw)
			if !errors.Is(err, ErrMalformedRequest) {
				t.Fatalf("err = %v, want ErrMalformedRequest", err)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err is %T, want *ParseError", err)
			}
			if pe.StatusCode() != 400 {
				t.Errorf("StatusCode = %d, want 400", pe.StatusCode())
			}
			if pe.Transport() {
				t.Error("malformed request reported as transport failure")
			}
		})
	}
}

func TestParserLimits(t *testing.T) {
	p := &Parser{
		MaxRequestLineBytes: 32,
		MaxHeaderBytes:      64,
		MaxHeaderCount:      3,
		MaxBodyBytes:        8,
	}

	tests := []struct {
		name       string
		raw        string
		want       error
		wantStatus int
	}{
		{
			name:       "request line too long",
			raw:        "GET /" + strings.Repeat("a", 40) + " HTTP/1.1\r\n\r\n",
			want:       ErrHeaderTooLarge,
			wantStatus: 431,
		},
		{
			name:       "header block too large",
			raw:        "GET / HTTP/1.1\r\nX-Big: " + strings.Repeat("b", 80) + "\r\n\r\n",
			want:       ErrHeaderTooLarge,
			wantStatus: 431,
		},
		{
			name:       "too many headers",
			raw:        "GET / HTTP/1.1\r\nA: 1\r\nB: 2\r\nC: 3\r\nD: 4\r\n\r\n",
			want:       ErrHeaderTooLarge,
			wantStatus: 431,
		},
		{
			name:       "body too large",
			raw:        "POST / HTTP/1.1\r\nContent-Length: 9\r\n\r\n123456789",
			want:       ErrBodyTooLarge,
			wantStatus: 413,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseString(t, p, tt.raw)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err is %T, want *ParseError", err)
			}
			if pe.StatusCode() != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", pe.StatusCode(), tt.wantStatus)
			}
		})
	}
}

func TestParserBodyLengthMismatch(t *testing.T) {
	_, err := parseString(t, NewParser(), "POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nshort")
	if !errors.Is(err, ErrBodyLengthMismatch) {
		t.Fatalf("err = %v, want ErrBodyLengthMismatch", err)
	}
	var pe *ParseError
	errors.As(err, &pe)
	if pe.StatusCode() != 400 {
		t.Errorf("StatusCode = %d, want 400", pe.StatusCode())
	}
}

func TestParserConnectionClosedEarly(t *testing.T) {
	tests := []string{
		"",
		"GET / HT",
		"GET / HTTP/1.1\r\n",
		"GET / HTTP/1.1\r\nHost: x\r\n",
	}

	for _, raw := range tests {
		_, err := parseString(t, NewParser(), raw)
		if !errors.Is(err, ErrConnectionClosedEarly) {
			t.Errorf("%q: err = %v, want ErrConnectionClosedEarly", raw, err)
			continue
		}
		var pe *ParseError
		errors.As(err, &pe)
		if !pe.Transport() || pe.StatusCode() != 0 {
			t.Errorf("%q: Transport=%v StatusCode=%d, want true/0", raw, pe.Transport(), pe.StatusCode())
		}
	}
}

func TestParserTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		client.Write([]byte("GET / HTTP/1.1\r\n"))
	}()

	server.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	_, err := NewParser().Parse(bufio.NewReader(server))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	var pe *ParseError
	errors.As(err, &pe)
	if pe.Kind != KindTimeout || !pe.Transport() {
		t.Errorf("Kind = %v Transport = %v, want timeout/true", pe.Kind, pe.Transport())
	}
}

func TestErrorKindString(t *testing.T) {
	if KindHeaderTooLarge.String() != "header_too_large" {
		t.Errorf("String = %q", KindHeaderTooLarge.String())
	}
	if ErrorKind(99).String() != "unknown" {
		t.Errorf("String = %q", ErrorKind(99).String())
	}
}
