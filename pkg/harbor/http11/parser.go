package http11

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
)

// Parser reads one HTTP/1.x request from a buffered connection.
//
// Design:
// - Line-oriented: request line, then header lines up to the blank line
// - Bounded: every read is limited so hostile input cannot grow memory
// - Content-Length framing only; any other body framing is ignored
//
// Zero-valued limits fall back to the package defaults. A Parser holds no
// per-request state and may be shared between goroutines.
type Parser struct {
	// MaxRequestLineBytes bounds the request line, CRLF excluded.
	MaxRequestLineBytes int

	// MaxHeaderBytes bounds the header block, CRLFs included.
	MaxHeaderBytes int

	// MaxHeaderCount bounds the number of header fields.
	MaxHeaderCount int

	// MaxBodyBytes bounds the declared Content-Length.
	MaxBodyBytes int64
}

// NewParser returns a Parser with default limits.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads the request line, the header block and a Content-Length
// framed body from br.
//
// Every error is a *ParseError; use errors.Is with the package sentinels or
// ParseError.StatusCode to decide how to answer.
func (p *Parser) Parse(br *bufio.Reader) (*Request, error) {
	line, err := readLine(br, p.requestLineLimit())
	if err != nil {
		return nil, classifyReadErr(err, "request line")
	}

	req, err := parseRequestLine(line)
	if err != nil {
		return nil, err
	}

	if err := p.parseHeaders(br, req); err != nil {
		return nil, err
	}

	if err := p.readBody(br, req); err != nil {
		return nil, err
	}
	return req, nil
}

// parseRequestLine parses "METHOD SP TARGET SP VERSION".
func parseRequestLine(line string) (*Request, error) {
	fields := strings.Split(line, " ")
	if len(fields) != 3 {
		return nil, parseErr(KindMalformed, "request line has %d fields, want 3", len(fields))
	}
	method, target, proto := fields[0], fields[1], fields[2]

	if method == "" || target == "" || proto == "" {
		return nil, parseErr(KindMalformed, "empty field in request line")
	}
	for i := 0; i < len(method); i++ {
		if !isTokenChar(method[i]) {
			return nil, parseErr(KindMalformed, "invalid method %q", method)
		}
	}
	if proto != ProtoHTTP11 && proto != ProtoHTTP10 {
		return nil, parseErr(KindMalformed, "unsupported protocol %q", proto)
	}

	path, query, err := splitTarget(target)
	if err != nil {
		return nil, err
	}

	return &Request{
		methodID:      ParseMethodID(method),
		method:        method,
		target:        target,
		path:          path,
		query:         query,
		proto:         proto,
		contentLength: -1,
	}, nil
}

// parseHeaders reads "Name: Value" lines until the blank line.
func (p *Parser) parseHeaders(br *bufio.Reader, req *Request) error {
	budget := p.headerBytesLimit()
	maxCount := p.headerCountLimit()

	for {
		if budget <= 0 {
			return parseErr(KindHeaderTooLarge, "header block exceeds %d bytes", p.headerBytesLimit())
		}
		line, consumed, err := readLineCounted(br, budget)
		if err != nil {
			if errors.Is(err, errLineTooLong) {
				return parseErr(KindHeaderTooLarge, "header block exceeds %d bytes", p.headerBytesLimit())
			}
			return classifyReadErr(err, "header")
		}
		budget -= consumed

		if line == "" {
			return nil
		}
		if req.header.Len() >= maxCount {
			return parseErr(KindHeaderTooLarge, "more than %d header fields", maxCount)
		}

		// obsolete line folding is rejected (RFC 7230 §3.2.4)
		if line[0] == ' ' || line[0] == '\t' {
			return parseErr(KindMalformed, "folded header line")
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return parseErr(KindMalformed, "header line without colon")
		}
		if name == "" || strings.ContainsAny(name, " \t") {
			return parseErr(KindMalformed, "invalid header name %q", name)
		}

		// later duplicates overwrite earlier ones
		req.header.Set(strings.ToLower(name), strings.Trim(value, " \t"))
	}
}

// readBody reads exactly Content-Length bytes when the header carries a
// non-negative integer; otherwise the body is empty.
func (p *Parser) readBody(br *bufio.Reader, req *Request) error {
	req.body = []byte{}

	cl, ok := req.header.Lookup("content-length")
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(cl, 10, 64)
	if err != nil || n < 0 {
		return nil
	}
	if n > p.bodyLimit() {
		return parseErr(KindBodyTooLarge, "Content-Length %d exceeds %d", n, p.bodyLimit())
	}

	req.contentLength = n
	if n == 0 {
		return nil
	}

	body := make([]byte, n)
	read, err := io.ReadFull(br, body)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return parseErr(KindBodyLengthMismatch, "got %d of %d body bytes", read, n)
		}
		return classifyReadErr(err, "body")
	}
	req.body = body
	return nil
}

func (p *Parser) requestLineLimit() int {
	if p.MaxRequestLineBytes <= 0 {
		return DefaultMaxRequestLineBytes
	}
	return p.MaxRequestLineBytes
}

func (p *Parser) headerBytesLimit() int {
	if p.MaxHeaderBytes <= 0 {
		return DefaultMaxHeaderBytes
	}
	return p.MaxHeaderBytes
}

func (p *Parser) headerCountLimit() int {
	if p.MaxHeaderCount <= 0 {
		return DefaultMaxHeaderCount
	}
	return p.MaxHeaderCount
}

func (p *Parser) bodyLimit() int64 {
	if p.MaxBodyBytes <= 0 {
		return DefaultMaxBodyBytes
	}
	return p.MaxBodyBytes
}

// errLineTooLong is internal; callers see ErrHeaderTooLarge.
var errLineTooLong = errors.New("http11: line too long")

// readLine reads one line of at most limit bytes, CRLF or LF excluded.
func readLine(br *bufio.Reader, limit int) (string, error) {
	line, _, err := readLineCounted(br, limit+2)
	if err != nil {
		return "", err
	}
	if len(line) > limit {
		return "", errLineTooLong
	}
	return line, nil
}

// readLineCounted reads one line consuming at most limit bytes including the
// terminator. It returns the line without terminator and the bytes consumed.
func readLineCounted(br *bufio.Reader, limit int) (string, int, error) {
	var buf []byte
	for {
		chunk, err := br.ReadSlice('\n')
		if len(buf)+len(chunk) > limit {
			return "", 0, errLineTooLong
		}
		buf = append(buf, chunk...)
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return "", 0, err
	}

	consumed := len(buf)
	buf = buf[:len(buf)-1]
	if n := len(buf); n > 0 && buf[n-1] == '\r' {
		buf = buf[:n-1]
	}
	return string(buf), consumed, nil
}

// classifyReadErr maps an I/O failure to a ParseError.
func classifyReadErr(err error, stage string) *ParseError {
	if errors.Is(err, errLineTooLong) {
		return parseErr(KindHeaderTooLarge, "%s too long", stage)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return parseErr(KindClosedEarly, "reading %s", stage)
	}
	var ne net.Error
	if errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &ParseError{Kind: KindTimeout, Err: fmt.Errorf("%w: reading %s: %w", ErrTimeout, stage, err)}
	}
	return &ParseError{Kind: KindTransport, Err: fmt.Errorf("%w: reading %s: %w", ErrTransport, stage, err)}
}
