// Package socket applies TCP options to accepted connections and
// listening sockets.
//
// Options that every supported platform understands live in
// tuning_unix.go; tuning_linux.go and tuning_darwin.go add the
// platform-specific ones. On other platforms tuning is a no-op.
package socket

import (
	"net"
	"time"
)

// Config represents socket tuning configuration.
// Zero values mean "use system defaults".
type Config struct {
	// NoDelay disables Nagle's algorithm (TCP_NODELAY).
	// A one-response connection gains nothing from coalescing writes.
	NoDelay bool

	// RecvBuffer is SO_RCVBUF in bytes. 0 keeps the system default.
	RecvBuffer int

	// SendBuffer is SO_SNDBUF in bytes. 0 keeps the system default.
	SendBuffer int

	// KeepAlive enables SO_KEEPALIVE probes.
	KeepAlive bool

	// QuickAck sends immediate ACKs (TCP_QUICKACK, Linux only).
	QuickAck bool

	// DeferAccept delays Accept until request bytes arrive
	// (TCP_DEFER_ACCEPT, Linux only, listener option).
	DeferAccept bool

	// UserTimeout bounds how long unacknowledged data may stay in flight
	// before the kernel drops the connection (TCP_USER_TIMEOUT, Linux only).
	// 0 keeps the system default.
	UserTimeout time.Duration
}

// DefaultConfig returns the configuration the server applies when none is
// given.
func DefaultConfig() *Config {
	return &Config{
		NoDelay:     true,
		RecvBuffer:  0,
		SendBuffer:  0,
		KeepAlive:   true,
		QuickAck:    true,
		DeferAccept: true,
		UserTimeout: 10 * time.Second,
	}
}

// Apply applies cfg to an accepted connection. Only TCP_NODELAY failures
// are reported; the remaining options are best effort. Connections that are
// not *net.TCPConn are left alone.
//
// This should be called immediately after accepting a connection.
func Apply(conn net.Conn, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	rawConn, err := tcpConn.SyscallConn()
	if err != nil {
		return err
	}

	var optErr error
	err = rawConn.Control(func(fd uintptr) {
		optErr = applyConnOptions(int(fd), cfg)
	})
	if err != nil {
		return err
	}
	return optErr
}

// ApplyListener applies listener-level options such as TCP_DEFER_ACCEPT.
// Errors mean the kernel refused an option; the listener remains usable.
func ApplyListener(listener net.Listener, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tcpListener, ok := listener.(*net.TCPListener)
	if !ok {
		return nil
	}

	rawConn, err := tcpListener.SyscallConn()
	if err != nil {
		return err
	}

	var optErr error
	err = rawConn.Control(func(fd uintptr) {
		optErr = applyListenerOptions(int(fd), cfg)
	})
	if err != nil {
		return err
	}
	return optErr
}
