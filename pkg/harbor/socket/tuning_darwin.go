//go:build darwin

package socket

import "golang.org/x/sys/unix"

// applyPlatformOptions applies Darwin-specific connection options.
func applyPlatformOptions(fd int, cfg *Config) {
	// Linux uses MSG_NOSIGNAL on send; macOS needs the socket option
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1)

	if cfg.KeepAlive {
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPALIVE, 60)
	}
}

// applyListenerOptions is a no-op; Darwin has no TCP_DEFER_ACCEPT.
func applyListenerOptions(fd int, cfg *Config) error {
	return nil
}
