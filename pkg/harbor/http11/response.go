package http11

// Response is a mutable builder for one HTTP response.
//
// Builder methods return the same instance so calls can be chained:
//
//	resp := http11.NewStringResponse("<h1>hi</h1>").
//	    AddHeader("Content-Type", "text/html").
//	    SetStatusCode(201)
//
// A Response is created inside a handler, handed to the serializer once and
// then discarded; it is never shared between goroutines. Header names are
// not validated.
type Response struct {
	statusCode int
	header     Header
	body       []byte
}

// NewResponse returns a 404 response with an empty body.
func NewResponse() *Response {
	return NewStatusResponse(404)
}

// NewStatusResponse returns a response with the given status and an empty body.
func NewStatusResponse(statusCode int) *Response {
	return &Response{statusCode: statusCode, body: []byte{}}
}

// NewBodyResponse returns a 200 response carrying body. A nil body is
// stored as empty.
func NewBodyResponse(body []byte) *Response {
	return NewStatusResponse(200).SetBody(body)
}

// NewStringResponse returns a 200 response carrying body as UTF-8 bytes.
func NewStringResponse(body string) *Response {
	return NewBodyResponse([]byte(body))
}

// SetStatusCode sets the status code.
func (r *Response) SetStatusCode(statusCode int) *Response {
	r.statusCode = statusCode
	return r
}

// AddHeader adds or replaces a single header.
func (r *Response) AddHeader(key, value string) *Response {
	r.header.Set(key, value)
	return r
}

// SetHeaders adds or replaces every header in headers. A nil map is a no-op.
func (r *Response) SetHeaders(headers map[string]string) *Response {
	for k, v := range headers {
		r.header.Set(k, v)
	}
	return r
}

// SetBody replaces the body. A nil body is stored as empty.
func (r *Response) SetBody(body []byte) *Response {
	if body == nil {
		body = []byte{}
	}
	r.body = body
	return r
}

// SetBodyString replaces the body with s as UTF-8 bytes.
func (r *Response) SetBodyString(s string) *Response {
	return r.SetBody([]byte(s))
}

// StatusCode returns the status code.
func (r *Response) StatusCode() int {
	return r.statusCode
}

// StatusText returns the reason phrase for the status code.
func (r *Response) StatusText() string {
	return StatusText(r.statusCode)
}

// Header returns the response header for direct inspection or edits.
func (r *Response) Header() *Header {
	return &r.header
}

// Body returns the body bytes.
func (r *Response) Body() []byte {
	return r.body
}
