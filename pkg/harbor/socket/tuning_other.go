//go:build !unix

package socket

func applyConnOptions(fd int, cfg *Config) error {
	return nil
}

func applyListenerOptions(fd int, cfg *Config) error {
	return nil
}
