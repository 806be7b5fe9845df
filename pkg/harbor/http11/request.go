package http11

import (
	"net/url"
	"path"
	"strings"
)

// Request represents one parsed HTTP/1.x request.
//
// A Request is immutable: the parser (or NewRequest) fills it once and every
// accessor returns a value or a read-only view. It is owned by the dispatch
// call that receives it.
type Request struct {
	methodID uint8
	method   string
	target   string // raw request-target from the request line
	path     string // decoded, normalized path without query
	query    string // raw query without '?'
	proto    string

	// header names are stored lower-cased; one value per name, last wins
	header Header

	body          []byte
	contentLength int64 // -1 if no valid Content-Length was sent

	remoteAddr string
}

// NewRequest builds a Request outside the parser, applying the same target
// normalization. headers may be nil. body is retained, not copied.
func NewRequest(method, target, proto string, headers map[string]string, body []byte) (*Request, error) {
	p, q, err := splitTarget(target)
	if err != nil {
		return nil, err
	}
	r := &Request{
		methodID:      ParseMethodID(method),
		method:        method,
		target:        target,
		path:          p,
		query:         q,
		proto:         proto,
		body:          body,
		contentLength: -1,
	}
	for name, value := range headers {
		r.header.Set(strings.ToLower(name), value)
	}
	if body == nil {
		r.body = []byte{}
	}
	if len(body) > 0 {
		r.contentLength = int64(len(body))
	}
	return r, nil
}

// Method returns the method token exactly as sent.
func (r *Request) Method() string {
	return r.method
}

// MethodID returns the numeric method ID, MethodUnknown for tokens without
// a dedicated hook.
func (r *Request) MethodID() uint8 {
	return r.methodID
}

// Target returns the raw request-target.
func (r *Request) Target() string {
	return r.target
}

// Path returns the percent-decoded path with dot segments removed.
// For authority-form and asterisk-form targets it is the raw target.
func (r *Request) Path() string {
	return r.path
}

// Query returns the raw query string without the leading '?'.
func (r *Request) Query() string {
	return r.query
}

// QueryValues parses the query string. Malformed pairs are skipped.
func (r *Request) QueryValues() url.Values {
	v, _ := url.ParseQuery(r.query)
	return v
}

// Proto returns the protocol version, e.g. "HTTP/1.1".
func (r *Request) Proto() string {
	return r.proto
}

// Header returns the value of the named header (case-insensitive), or "".
func (r *Request) Header(name string) string {
	return r.header.Get(name)
}

// HasHeader reports whether the named header was sent.
func (r *Request) HasHeader(name string) bool {
	return r.header.Has(name)
}

// Headers returns a copy of all header fields keyed by lower-cased name.
func (r *Request) Headers() map[string]string {
	return r.header.Map()
}

// Body returns the request body. The slice is shared with the Request and
// must not be modified.
func (r *Request) Body() []byte {
	return r.body
}

// ContentLength returns the declared body length, or -1 when the request
// carried no usable Content-Length.
func (r *Request) ContentLength() int64 {
	return r.contentLength
}

// RemoteAddr returns the client address set by the connection manager.
func (r *Request) RemoteAddr() string {
	return r.remoteAddr
}

// WithRemoteAddr returns a shallow copy of r carrying addr.
func (r *Request) WithRemoteAddr(addr string) *Request {
	r2 := *r
	r2.remoteAddr = addr
	return &r2
}

// splitTarget separates the query and normalizes the path of a
// request-target. Origin-form ("/a/b?x") and absolute-form
// ("http://h/a/b?x") are decoded and cleaned; authority-form ("h:443")
// and asterisk-form ("*") are returned unchanged.
func splitTarget(target string) (string, string, error) {
	if target == "" {
		return "", "", parseErr(KindMalformed, "empty request target")
	}
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		u, err := url.ParseRequestURI(target)
		if err != nil {
			return "", "", parseErr(KindMalformed, "invalid absolute target %q", target)
		}
		return cleanPath(u.Path), u.RawQuery, nil
	}
	if target[0] != '/' {
		return target, "", nil
	}

	raw, query, _ := strings.Cut(target, "?")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", "", parseErr(KindMalformed, "invalid escape in path %q", raw)
	}
	if strings.IndexByte(decoded, 0) >= 0 {
		return "", "", parseErr(KindMalformed, "NUL byte in path")
	}
	return cleanPath(decoded), query, nil
}

// cleanPath removes dot segments; the result always starts with '/'.
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	return path.Clean(p)
}
