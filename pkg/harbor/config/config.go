// Package config loads the harbor server configuration from JSON or YAML
// files and derives the settings of each component from it.
//
// Example (YAML):
//
//	http:
//	  port: 8080
//	https:
//	  enabled: true
//	  port: 8443
//	  cert_file: /etc/harbor/cert.pem
//	  key_file: /etc/harbor/key.pem
//	root_dir: /srv/www
//	read_timeout: 15s
//	log:
//	  level: debug
//	  format: text
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/goccy/go-yaml"

	"github.com/yourusername/harbor/pkg/harbor/logging"
	"github.com/yourusername/harbor/pkg/harbor/server"
	htls "github.com/yourusername/harbor/pkg/harbor/tls"
)

// ErrUnsupportedFormat is returned by Load for files that are neither JSON
// nor YAML.
var ErrUnsupportedFormat = errors.New("config: unsupported file format")

// Duration is a time.Duration written as a string such as "30s".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", b, err)
	}
	*d = Duration(v)
	return nil
}

// Config is the complete server configuration.
type Config struct {
	HTTP  HTTP  `json:"http" yaml:"http"`
	HTTPS HTTPS `json:"https" yaml:"https"`

	// RootDir is the directory files are served from. Empty serves only
	// the bundled error pages.
	RootDir   string `json:"root_dir" yaml:"root_dir"`
	IndexFile string `json:"index_file" yaml:"index_file"`

	ReadTimeout     Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    Duration `json:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxConnections  int      `json:"max_connections" yaml:"max_connections"`

	Limits  Limits  `json:"limits" yaml:"limits"`
	Log     Log     `json:"log" yaml:"log"`
	Metrics Metrics `json:"metrics" yaml:"metrics"`
	Cache   Cache   `json:"cache" yaml:"cache"`
}

// HTTP configures the plain listener.
type HTTP struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

// HTTPS configures the TLS listener. Certificates come from AutoCert when
// an email is set, otherwise from CertFile and KeyFile.
type HTTPS struct {
	Enabled  bool     `json:"enabled" yaml:"enabled"`
	Host     string   `json:"host" yaml:"host"`
	Port     int      `json:"port" yaml:"port"`
	CertFile string   `json:"cert_file" yaml:"cert_file"`
	KeyFile  string   `json:"key_file" yaml:"key_file"`
	AutoCert AutoCert `json:"autocert" yaml:"autocert"`
}

// AutoCert configures ACME certificates (TLS-ALPN-01 challenge).
type AutoCert struct {
	Email    string   `json:"email" yaml:"email"`
	Domains  []string `json:"domains" yaml:"domains"`
	CacheDir string   `json:"cache_dir" yaml:"cache_dir"`
	Staging  bool     `json:"staging" yaml:"staging"`
}

// Limits bounds request parsing. Zero keeps the parser default.
type Limits struct {
	RequestLine int   `json:"request_line" yaml:"request_line"`
	Header      int   `json:"header" yaml:"header"`
	HeaderCount int   `json:"header_count" yaml:"header_count"`
	Body        int64 `json:"body" yaml:"body"`
}

// Log configures the logger.
type Log struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Metrics configures the Prometheus endpoint. An empty Addr disables it.
type Metrics struct {
	Addr string `json:"addr" yaml:"addr"`
	Path string `json:"path" yaml:"path"`
}

// Cache configures the file cache of the resolver.
type Cache struct {
	Enabled    bool     `json:"enabled" yaml:"enabled"`
	MaxEntries int      `json:"max_entries" yaml:"max_entries"`
	TTL        Duration `json:"ttl" yaml:"ttl"`

	// Watch invalidates cached files when they change on disk.
	Watch bool `json:"watch" yaml:"watch"`
}

// Default returns the configuration used when no file is given: HTTP on
// port 80, HTTPS on port 443 but disabled, no root directory.
func Default() *Config {
	return &Config{
		HTTP: HTTP{Port: 80},
		HTTPS: HTTPS{
			Port:     443,
			AutoCert: AutoCert{CacheDir: "certs"},
		},
		IndexFile:       "index.html",
		ReadTimeout:     Duration(30 * time.Second),
		WriteTimeout:    Duration(30 * time.Second),
		ShutdownTimeout: Duration(10 * time.Second),
		Log: Log{
			Level:  "info",
			Format: "json",
		},
		Metrics: Metrics{Path: "/metrics"},
		Cache: Cache{
			MaxEntries: 1024,
			TTL:        Duration(time.Minute),
		},
	}
}

// Load reads path over Default. The format follows the extension: .json,
// .yaml or .yml. Unknown fields are rejected. The result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("config: "+format, args...))
	}

	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		invalid("http.port %d out of range", c.HTTP.Port)
	}
	if c.HTTPS.Enabled {
		if c.HTTPS.Port < 0 || c.HTTPS.Port > 65535 {
			invalid("https.port %d out of range", c.HTTPS.Port)
		}
		if c.HTTPS.Port != 0 && c.HTTPS.Port == c.HTTP.Port && c.HTTPS.Host == c.HTTP.Host {
			invalid("https.port %d collides with http.port", c.HTTPS.Port)
		}
		if c.HTTPS.AutoCert.Email != "" {
			if len(c.HTTPS.AutoCert.Domains) == 0 {
				invalid("https.autocert.domains is empty")
			}
		} else if c.HTTPS.CertFile == "" || c.HTTPS.KeyFile == "" {
			invalid("https needs cert_file and key_file or autocert.email")
		}
	}

	if c.IndexFile == "" || strings.ContainsAny(c.IndexFile, `/\`) {
		invalid("index_file %q must be a plain file name", c.IndexFile)
	}
	if c.ReadTimeout < 0 {
		invalid("read_timeout %s is negative", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		invalid("write_timeout %s is negative", c.WriteTimeout)
	}
	if c.ShutdownTimeout < 0 {
		invalid("shutdown_timeout %s is negative", c.ShutdownTimeout)
	}
	if c.MaxConnections < 0 {
		invalid("max_connections %d is negative", c.MaxConnections)
	}

	if c.Limits.RequestLine < 0 || c.Limits.Header < 0 || c.Limits.HeaderCount < 0 || c.Limits.Body < 0 {
		invalid("limits must not be negative")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		invalid("log.level: %w", err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		invalid("log.format: %w", err)
	}

	if c.Metrics.Addr != "" && !strings.HasPrefix(c.Metrics.Path, "/") {
		invalid("metrics.path %q must start with /", c.Metrics.Path)
	}
	if c.Cache.Enabled && c.Cache.MaxEntries <= 0 {
		invalid("cache.max_entries must be positive")
	}

	return errors.Join(errs...)
}

// ServerConfig returns the settings of the plain HTTP listener.
func (c *Config) ServerConfig() server.Config {
	return c.serverConfig(c.HTTP.Host, c.HTTP.Port)
}

// HTTPSServerConfig returns the settings of the TLS listener.
func (c *Config) HTTPSServerConfig() server.Config {
	return c.serverConfig(c.HTTPS.Host, c.HTTPS.Port)
}

func (c *Config) serverConfig(host string, port int) server.Config {
	return server.Config{
		Host:           host,
		Port:           port,
		ReadTimeout:    c.ReadTimeout.Std(),
		WriteTimeout:   c.WriteTimeout.Std(),
		MaxConnections: c.MaxConnections,
		Limits: server.Limits{
			RequestLine: c.Limits.RequestLine,
			Header:      c.Limits.Header,
			HeaderCount: c.Limits.HeaderCount,
			Body:        c.Limits.Body,
		},
	}
}

// TLSConfig returns the certificate settings of the HTTPS listener.
func (c *Config) TLSConfig() *htls.Config {
	tc := htls.NewConfig()
	ac := c.HTTPS.AutoCert
	if ac.Email != "" {
		tc.WithAutoCert(ac.Email, ac.Domains...)
		if ac.CacheDir != "" {
			tc.WithCacheDir(ac.CacheDir)
		}
		if ac.Staging {
			tc.WithStaging()
		}
		return tc
	}
	return tc.WithManualCert(c.HTTPS.CertFile, c.HTTPS.KeyFile)
}

// Logger returns a logger writing to stderr at the configured level and
// format. Invalid values fall back to info and json.
func (c *Config) Logger() *logging.Logger {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	format, err := logging.ParseFormat(c.Log.Format)
	if err != nil {
		format = logging.FormatJSON
	}
	return logging.New(os.Stderr, level, format)
}
