package http11

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/valyala/bytebufferpool"
)

// renderPool holds buffers for rendering whole responses before writing.
var renderPool bytebufferpool.Pool

// WriteResponse serializes resp onto w and returns the bytes written.
//
// Wire format:
//
//	HTTP/1.1 SP CODE SP REASON CRLF
//	Key: Value CRLF            (one per header, handler Content-Length dropped)
//	Content-Length: N CRLF     (always computed from the body)
//	CRLF
//	body
//
// The message is rendered into a pooled buffer and handed to w in a single
// Write, so a client never sees a partly rendered header block. Write
// failures wrap ErrTransport and are not retried.
func WriteResponse(w io.Writer, resp *Response) (int64, error) {
	buf := renderPool.Get()
	defer renderPool.Put(buf)

	buf.B = AppendResponse(buf.B[:0], resp)

	n, err := w.Write(buf.B)
	if err != nil {
		return int64(n), fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if n != len(buf.B) {
		return int64(n), fmt.Errorf("%w: %w", ErrTransport, io.ErrShortWrite)
	}
	return int64(n), nil
}

// AppendResponse appends the wire form of resp to dst.
func AppendResponse(dst []byte, resp *Response) []byte {
	dst = appendStatusLine(dst, resp.statusCode)

	resp.header.VisitAll(func(name, value string) bool {
		if strings.EqualFold(name, HeaderContentLength) {
			return true
		}
		dst = append(dst, name...)
		dst = append(dst, colonSpace...)
		dst = append(dst, value...)
		dst = append(dst, crlfBytes...)
		return true
	})

	dst = append(dst, HeaderContentLength...)
	dst = append(dst, colonSpace...)
	dst = strconv.AppendInt(dst, int64(len(resp.body)), 10)
	dst = append(dst, crlfBytes...)

	dst = append(dst, crlfBytes...)
	return append(dst, resp.body...)
}
