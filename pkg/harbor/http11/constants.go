// Package http11 implements the HTTP/1.x message layer of harbor: lookup
// tables, the request/response model, the request parser and the response
// serializer.
package http11

// Protocol versions accepted on the request line.
const (
	ProtoHTTP10 = "HTTP/1.0"
	ProtoHTTP11 = "HTTP/1.1"
)

// responseProto is written on every status line.
const responseProto = ProtoHTTP11

// Header and body limits. Parser fields override these per server.
const (
	// DefaultMaxRequestLineBytes bounds METHOD SP TARGET SP VERSION.
	DefaultMaxRequestLineBytes = 8192

	// DefaultMaxHeaderBytes bounds the whole header block, CRLFs included.
	DefaultMaxHeaderBytes = 8192

	// DefaultMaxHeaderCount bounds the number of header fields.
	DefaultMaxHeaderCount = 100

	// DefaultMaxBodyBytes bounds a Content-Length framed body (10 MB).
	DefaultMaxBodyBytes = 10 << 20
)

// Header names the engine reads or writes itself.
const (
	HeaderContentLength = "Content-Length"
	HeaderContentType   = "Content-Type"
	HeaderConnection    = "Connection"
	HeaderHost          = "Host"
)

var (
	crlfBytes  = []byte("\r\n")
	colonSpace = []byte(": ")
)
