package server

import (
	"bufio"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/harbor/pkg/harbor/http11"
	"github.com/yourusername/harbor/pkg/harbor/logging"
	"github.com/yourusername/harbor/pkg/harbor/socket"
)

// ConnState is the lifecycle position of a served connection.
type ConnState int

const (
	// StateAccepted is entered right after Accept returns.
	StateAccepted ConnState = iota

	// StateParsing covers reading the request (and the TLS handshake).
	StateParsing

	// StateDispatching covers the processor hook.
	StateDispatching

	// StateSerializing covers writing the response.
	StateSerializing

	// StateClosed is terminal. It follows Parsing directly when the peer
	// went away before a request could be answered.
	StateClosed
)

var connStateNames = [...]string{
	StateAccepted:    "accepted",
	StateParsing:     "parsing",
	StateDispatching: "dispatching",
	StateSerializing: "serializing",
	StateClosed:      "closed",
}

func (s ConnState) String() string {
	if s >= 0 && int(s) < len(connStateNames) {
		return connStateNames[s]
	}
	return "unknown"
}

// ConnStateHook is called on every state change, from the goroutine serving
// the connection.
type ConnStateHook func(c net.Conn, state ConnState)

const (
	readBufferSize = 4096

	// lingerTimeout bounds draining unread input after a rejected request
	// so the client sees the response instead of a reset.
	lingerTimeout = 500 * time.Millisecond
	lingerBytes   = 256 << 10
)

var readerPool = sync.Pool{
	New: func() any {
		return bufio.NewReaderSize(nil, readBufferSize)
	},
}

// conn serves a single request on an accepted connection.
type conn struct {
	srv    *Server
	rwc    net.Conn
	id     string
	remote string
	start  time.Time
}

func newConn(srv *Server, rwc net.Conn) *conn {
	return &conn{
		srv:    srv,
		rwc:    rwc,
		id:     uuid.NewString(),
		remote: rwc.RemoteAddr().String(),
		start:  time.Now(),
	}
}

func (c *conn) setState(state ConnState) {
	if hook := c.srv.stateHook; hook != nil {
		hook(c.rwc, state)
	}
}

// serve runs Accepted -> Parsing -> Dispatching -> Serializing -> Closed.
// The socket is closed on every path.
func (c *conn) serve() {
	s := c.srv
	entry := logging.AccessEntry{ConnID: c.id, Remote: c.remote}

	defer func() {
		c.rwc.Close()
		c.setState(StateClosed)
		s.untrackConn(c.rwc)

		done := logging.NewAccessEntry(c.start)
		entry.Time, entry.DurationMS = done.Time, done.DurationMS
		s.logger.Access(entry)
		if entry.Status != 0 {
			s.metrics.observe(entry.Method, entry.Status, entry.Bytes, time.Since(c.start))
		}
	}()

	c.setState(StateAccepted)
	if err := socket.Apply(underlying(c.rwc), s.config.Socket); err != nil {
		s.logger.Debug("socket tuning failed", logging.String("conn_id", c.id), logging.Err(err))
	}

	c.setState(StateParsing)
	if d := s.config.ReadTimeout; d > 0 {
		c.rwc.SetReadDeadline(time.Now().Add(d))
	}

	br := readerPool.Get().(*bufio.Reader)
	br.Reset(c.rwc)
	req, err := s.parser.Parse(br)
	br.Reset(nil)
	readerPool.Put(br)

	var (
		resp     *http11.Response
		rejected bool
	)
	if err != nil {
		status := 0
		var perr *http11.ParseError
		if errors.As(err, &perr) {
			status = perr.StatusCode()
			s.metrics.parseError(perr.Kind.String())
		}
		entry.Error = err.Error()

		if status == 0 {
			s.stats.ConnectionErrors.Add(1)
			s.logger.Debug("connection closed without a request",
				logging.String("conn_id", c.id),
				logging.String("remote", c.remote),
				logging.Err(err))
			return
		}

		s.stats.ParseErrors.Add(1)
		s.logger.Debug("request rejected",
			logging.String("conn_id", c.id),
			logging.Int("status", status),
			logging.Err(err))
		resp = s.pages.Error(status)
		rejected = true
	} else {
		req = req.WithRemoteAddr(c.remote)
		entry.Method, entry.Path = req.Method(), req.Path()
		s.stats.TotalRequests.Add(1)

		c.setState(StateDispatching)
		var herr error
		resp, herr = s.dispatcher.Handle(req)
		if herr != nil {
			s.stats.HandlerErrors.Add(1)
			entry.Error = herr.Error()
		}
	}

	resp.AddHeader(http11.HeaderConnection, "close")

	c.setState(StateSerializing)
	if d := s.config.WriteTimeout; d > 0 {
		c.rwc.SetWriteDeadline(time.Now().Add(d))
	}
	n, err := http11.WriteResponse(c.rwc, resp)
	entry.Status = resp.StatusCode()
	entry.Bytes = n
	s.stats.BytesWritten.Add(uint64(n))
	if err != nil {
		s.stats.ConnectionErrors.Add(1)
		entry.Error = err.Error()
		s.logger.Debug("response write failed", logging.String("conn_id", c.id), logging.Err(err))
		return
	}

	if rejected {
		c.linger()
	}
}

// linger half-closes the connection and discards what the client is still
// sending, so closing does not reset the response away.
func (c *conn) linger() {
	cw, ok := c.rwc.(interface{ CloseWrite() error })
	if !ok || cw.CloseWrite() != nil {
		return
	}
	c.rwc.SetReadDeadline(time.Now().Add(lingerTimeout))
	io.Copy(io.Discard, io.LimitReader(c.rwc, lingerBytes))
}

// underlying returns the TCP connection below a TLS connection.
func underlying(rwc net.Conn) net.Conn {
	if tc, ok := rwc.(*tls.Conn); ok {
		return tc.NetConn()
	}
	return rwc
}
