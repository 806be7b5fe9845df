package http11

import (
	"errors"
	"fmt"
)

// Parser errors
var (
	// ErrMalformedRequest indicates the request line or a header line does not
	// follow the HTTP/1.x grammar.
	ErrMalformedRequest = errors.New("http11: malformed request")

	// ErrHeaderTooLarge indicates the request line, the header block or the
	// number of header fields exceeds the configured ceiling.
	ErrHeaderTooLarge = errors.New("http11: request header too large")

	// ErrBodyLengthMismatch indicates the connection ended before the number
	// of body bytes declared by Content-Length arrived.
	ErrBodyLengthMismatch = errors.New("http11: body shorter than Content-Length")

	// ErrBodyTooLarge indicates Content-Length exceeds the body ceiling.
	ErrBodyTooLarge = errors.New("http11: request body too large")

	// ErrConnectionClosedEarly indicates the peer closed the connection before
	// the header block was complete.
	ErrConnectionClosedEarly = errors.New("http11: connection closed before request was complete")

	// ErrTimeout indicates a read deadline expired while waiting for the client.
	ErrTimeout = errors.New("http11: timeout")
)

// Serializer errors
var (
	// ErrTransport wraps write failures on the underlying connection.
	ErrTransport = errors.New("http11: transport error")
)

// ErrorKind classifies a parse failure.
type ErrorKind int

const (
	KindMalformed ErrorKind = iota
	KindHeaderTooLarge
	KindBodyLengthMismatch
	KindBodyTooLarge
	KindClosedEarly
	KindTimeout
	KindTransport
)

// String returns the label used in logs and metrics.
func (k ErrorKind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindHeaderTooLarge:
		return "header_too_large"
	case KindBodyLengthMismatch:
		return "body_length_mismatch"
	case KindBodyTooLarge:
		return "body_too_large"
	case KindClosedEarly:
		return "closed_early"
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// ParseError is returned by Parser.Parse for every failure. Kind decides
// whether a response can still be written; Err carries the cause.
type ParseError struct {
	Kind ErrorKind
	Err  error
}

func (e *ParseError) Error() string {
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// StatusCode returns the response status the connection manager should send
// for this failure, or 0 when the connection must be closed without one.
func (e *ParseError) StatusCode() int {
	switch e.Kind {
	case KindMalformed, KindBodyLengthMismatch:
		return 400
	case KindBodyTooLarge:
		return 413
	case KindHeaderTooLarge:
		return 431
	default:
		return 0
	}
}

// Transport reports whether the failure came from the connection itself.
func (e *ParseError) Transport() bool {
	switch e.Kind {
	case KindClosedEarly, KindTimeout, KindTransport:
		return true
	}
	return false
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindMalformed:
		return ErrMalformedRequest
	case KindHeaderTooLarge:
		return ErrHeaderTooLarge
	case KindBodyLengthMismatch:
		return ErrBodyLengthMismatch
	case KindBodyTooLarge:
		return ErrBodyTooLarge
	case KindClosedEarly:
		return ErrConnectionClosedEarly
	case KindTimeout:
		return ErrTimeout
	case KindTransport:
		return ErrTransport
	}
	return nil
}

func parseErr(kind ErrorKind, format string, args ...any) *ParseError {
	return &ParseError{
		Kind: kind,
		Err:  fmt.Errorf("%w: "+format, append([]any{kind.sentinel()}, args...)...),
	}
}
