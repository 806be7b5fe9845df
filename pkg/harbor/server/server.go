// Package server accepts TCP (optionally TLS) connections and answers
// exactly one request per connection: parse, dispatch, serialize, close.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"

	"github.com/yourusername/harbor/pkg/harbor/dispatch"
	"github.com/yourusername/harbor/pkg/harbor/http11"
	"github.com/yourusername/harbor/pkg/harbor/logging"
	"github.com/yourusername/harbor/pkg/harbor/socket"
	"github.com/yourusername/harbor/pkg/harbor/static"
)

// Server errors
var (
	// ErrServerClosed is returned by Serve and Listen after Shutdown or Close.
	ErrServerClosed = errors.New("server: closed")

	// ErrNotListening is returned by Serve variants that need a listener
	// bound by Listen.
	ErrNotListening = errors.New("server: not listening")
)

// Config holds server configuration
type Config struct {
	// Host is the bind address. Empty binds every interface.
	Host string

	// Port is the TCP port. 0 picks a free port.
	Port int

	// ReadTimeout bounds reading the whole request, TLS handshake included.
	// Default: 30 seconds
	ReadTimeout time.Duration

	// WriteTimeout bounds writing the response.
	// Default: 30 seconds
	WriteTimeout time.Duration

	// MaxConnections bounds concurrently served connections. 0 means no
	// limit; Accept waits while the limit is reached.
	MaxConnections int

	// Limits bounds what the parser accepts.
	Limits Limits

	// Socket tunes accepted sockets. nil applies socket.DefaultConfig.
	Socket *socket.Config
}

// Limits mirrors the http11.Parser ceilings. Zero values keep the parser
// defaults.
type Limits struct {
	RequestLine int
	Header      int
	HeaderCount int
	Body        int64
}

// DefaultConfig returns a Config for port 80 on every interface.
func DefaultConfig() Config {
	return Config{
		Port:         80,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Addr returns the host:port the server binds.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Stats tracks server statistics
type Stats struct {
	// Number of accepted connections
	TotalConnections atomic.Uint64

	// Number of connections being served
	ActiveConnections atomic.Int64

	// Number of requests handed to the dispatcher
	TotalRequests atomic.Uint64

	// Number of response bytes written
	BytesWritten atomic.Uint64

	// Requests rejected by the parser with a status
	ParseErrors atomic.Uint64

	// Handler errors, nil responses and panics
	HandlerErrors atomic.Uint64

	// Accept failures, timeouts, early closes and failed writes
	ConnectionErrors atomic.Uint64

	// Server start time
	StartTime time.Time
}

// Duration returns the time since the server started
func (s *Stats) Duration() time.Duration {
	return time.Since(s.StartTime)
}

// RequestsPerSecond returns the average requests per second
func (s *Stats) RequestsPerSecond() float64 {
	duration := s.Duration().Seconds()
	if duration == 0 {
		return 0
	}
	return float64(s.TotalRequests.Load()) / duration
}

// errorPager produces the response for a rejected request.
type errorPager interface {
	Error(status int) *http11.Response
}

// Server is a one-request-per-connection HTTP/1.x server.
type Server struct {
	config     Config
	parser     *http11.Parser
	dispatcher *dispatch.Dispatcher
	pages      errorPager
	logger     *logging.Logger
	metrics    *metrics
	stateHook  ConnStateHook
	sem        *semaphore.Weighted
	stats      Stats

	// ctx is cancelled when the server stops; it unblocks semaphore waits.
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	bound     net.Listener
	addr      net.Addr
	conns     map[net.Conn]struct{}
	shutdown  atomic.Bool
	wg        sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for diagnostics and the access log.
func WithLogger(l *logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithResolver sets the resolver whose error pages answer rejected
// requests. By default the processor is used when it has an Error method
// (dispatch.Base does), otherwise the bundled pages.
func WithResolver(r *static.Resolver) Option {
	return func(s *Server) {
		if r != nil {
			s.pages = r
		}
	}
}

// WithConnStateHook observes every connection state change.
func WithConnStateHook(hook ConnStateHook) Option {
	return func(s *Server) {
		s.stateHook = hook
	}
}

// WithMetrics registers the server collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Server) {
		if reg != nil {
			s.metrics = newMetrics(reg)
		}
	}
}

// New returns a Server dispatching to p. A nil p serves nothing but 405
// and 404 pages.
func New(config Config, p dispatch.Processor, opts ...Option) *Server {
	if config.Socket == nil {
		config.Socket = socket.DefaultConfig()
	}

	s := &Server{
		config: config,
		parser: &http11.Parser{
			MaxRequestLineBytes: config.Limits.RequestLine,
			MaxHeaderBytes:      config.Limits.Header,
			MaxHeaderCount:      config.Limits.HeaderCount,
			MaxBodyBytes:        config.Limits.Body,
		},
		logger:    logging.Nop(),
		listeners: make(map[net.Listener]struct{}),
		conns:     make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.dispatcher = dispatch.New(p, dispatch.WithLogger(s.logger))
	if s.pages == nil {
		if pager, ok := s.dispatcher.Processor().(errorPager); ok {
			s.pages = pager
		} else {
			s.pages = static.New("", static.WithLogger(s.logger))
		}
	}
	if config.MaxConnections > 0 {
		s.sem = semaphore.NewWeighted(int64(config.MaxConnections))
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.stats.StartTime = time.Now()
	return s
}

// Stats returns server statistics
func (s *Server) Stats() *Stats {
	return &s.stats
}

// Addr returns the address of the most recently bound listener, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Listen binds Config.Addr. A bind failure is returned once and leaves the
// server unbound.
func (s *Server) Listen() error {
	if s.shutdown.Load() {
		return ErrServerClosed
	}

	addr := s.config.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.logger.Error("bind failed", logging.String("addr", addr), logging.Err(err))
		return fmt.Errorf("server: listen on %s: %w", addr, err)
	}
	if err := socket.ApplyListener(ln, s.config.Socket); err != nil {
		s.logger.Debug("listener tuning failed", logging.Err(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown.Load() {
		ln.Close()
		return ErrServerClosed
	}
	if s.bound != nil {
		s.bound.Close()
	}
	s.bound = ln
	s.addr = ln.Addr()
	return nil
}

// ListenAndServe serves plain HTTP on the listener bound by Listen, binding
// Config.Addr first when there is none.
func (s *Server) ListenAndServe() error {
	ln, err := s.takeListener()
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// ListenAndServeTLS is ListenAndServe for HTTPS with config.
func (s *Server) ListenAndServeTLS(config *tls.Config) error {
	ln, err := s.takeListener()
	if err != nil {
		return err
	}
	return s.ServeTLS(ln, config)
}

// ServeTLS wraps l with config and serves it. The handshake runs under the
// read deadline of the request it carries.
func (s *Server) ServeTLS(l net.Listener, config *tls.Config) error {
	if l == nil {
		return ErrNotListening
	}
	if config == nil {
		return errors.New("server: nil TLS config")
	}
	return s.Serve(tls.NewListener(l, config))
}

// Serve accepts connections on l until Shutdown or Close, serving each on
// its own goroutine. It returns nil once a shutdown stops it,
// ErrServerClosed when the server was already stopped, and the accept error
// otherwise. l is closed on return.
func (s *Server) Serve(l net.Listener) error {
	if l == nil {
		return ErrNotListening
	}
	if !s.trackListener(l) {
		l.Close()
		return ErrServerClosed
	}
	defer s.untrackListener(l)

	s.logger.Info("listening", logging.String("addr", l.Addr().String()))

	var backoff time.Duration
	for {
		// Acquire connection slot if limit is set
		if s.sem != nil {
			if err := s.sem.Acquire(s.ctx, 1); err != nil {
				return nil
			}
		}

		rwc, err := l.Accept()
		if err != nil {
			if s.sem != nil {
				s.sem.Release(1)
			}
			if s.shutdown.Load() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("server: accept: %w", err)
			}

			s.stats.ConnectionErrors.Add(1)
			backoff = nextBackoff(backoff)
			s.logger.Warn("accept failed", logging.Err(err), logging.Duration("retry_in", backoff))
			select {
			case <-time.After(backoff):
			case <-s.ctx.Done():
				return nil
			}
			continue
		}
		backoff = 0

		if !s.trackConn(rwc) {
			rwc.Close()
			if s.sem != nil {
				s.sem.Release(1)
			}
			return nil
		}

		c := newConn(s, rwc)
		go c.serve()
	}
}

// nextBackoff doubles d from 5ms up to one second.
func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}

// Shutdown stops accepting, then waits for in-flight connections. When ctx
// expires first the remaining connections are closed and ctx.Err returned.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.stop() {
		return nil
	}

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		s.logger.Info("server stopped")
		return nil
	case <-ctx.Done():
		s.closeAllConnections()
		s.logger.Warn("shutdown deadline exceeded, connections closed", logging.Err(ctx.Err()))
		return ctx.Err()
	}
}

// Close stops accepting and closes every tracked connection immediately.
func (s *Server) Close() error {
	if !s.stop() {
		return nil
	}
	s.closeAllConnections()
	s.wg.Wait()
	return nil
}

// stop flips the shutdown flag and closes every listener. It reports false
// when the server was already stopping.
func (s *Server) stop() bool {
	s.mu.Lock()
	if !s.shutdown.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return false
	}
	listeners := make([]net.Listener, 0, len(s.listeners)+1)
	for l := range s.listeners {
		listeners = append(listeners, l)
	}
	if s.bound != nil {
		listeners = append(listeners, s.bound)
		s.bound = nil
	}
	s.mu.Unlock()

	s.cancel()
	for _, l := range listeners {
		l.Close()
	}
	return true
}

// takeListener hands the bound listener over to a Serve call.
func (s *Server) takeListener() (net.Listener, error) {
	if ln := s.boundListener(); ln != nil {
		return ln, nil
	}
	if err := s.Listen(); err != nil {
		return nil, err
	}
	if ln := s.boundListener(); ln != nil {
		return ln, nil
	}
	return nil, ErrServerClosed
}

func (s *Server) boundListener() net.Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	ln := s.bound
	s.bound = nil
	return ln
}

func (s *Server) trackListener(l net.Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown.Load() {
		return false
	}
	s.listeners[l] = struct{}{}
	s.addr = l.Addr()
	return true
}

func (s *Server) untrackListener(l net.Listener) {
	s.mu.Lock()
	delete(s.listeners, l)
	s.mu.Unlock()
	l.Close()
}

// trackConn registers rwc with the WaitGroup unless the server is stopping.
func (s *Server) trackConn(rwc net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown.Load() {
		return false
	}
	s.conns[rwc] = struct{}{}
	s.wg.Add(1)
	s.stats.TotalConnections.Add(1)
	s.stats.ActiveConnections.Add(1)
	s.metrics.connOpened()
	return true
}

func (s *Server) untrackConn(rwc net.Conn) {
	s.mu.Lock()
	delete(s.conns, rwc)
	s.mu.Unlock()

	s.stats.ActiveConnections.Add(-1)
	s.metrics.connClosed()
	if s.sem != nil {
		s.sem.Release(1)
	}
	s.wg.Done()
}

// closeAllConnections closes all tracked connections
func (s *Server) closeAllConnections() {
	s.mu.Lock()
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
