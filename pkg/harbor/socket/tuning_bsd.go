//go:build unix && !linux && !darwin

package socket

func applyPlatformOptions(fd int, cfg *Config) {}

func applyListenerOptions(fd int, cfg *Config) error {
	return nil
}
