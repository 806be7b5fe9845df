// Package tls builds the *crypto/tls.Config for the HTTPS listener from
// manual certificate files, ACME (Let's Encrypt) via autocert, or an
// in-memory self-signed certificate for development.
package tls

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"
)

// Configuration errors
var (
	ErrNoCertificate = errors.New("tls: certificate and key files are required")
	ErrNoEmail       = errors.New("tls: email is required for automatic certificates")
	ErrNoDomains     = errors.New("tls: at least one domain is required for automatic certificates")
)

// StagingDirectoryURL is the Let's Encrypt staging ACME endpoint.
const StagingDirectoryURL = "https://acme-staging-v02.api.letsencrypt.org/directory"

// Config describes how the HTTPS listener obtains its certificate.
type Config struct {
	// Automatic certificate management
	AutoCert bool
	Email    string
	Domains  []string
	CacheDir string
	Staging  bool // Use Let's Encrypt staging (for testing)

	// Manual certificate configuration
	CertFile string
	KeyFile  string

	// Development certificate, generated in memory
	SelfSigned      bool
	SelfSignedHosts []string

	// Protocol options
	MinVersion   uint16
	MaxVersion   uint16
	CipherSuites []uint16

	// ALPN protocols; only HTTP/1.1 is spoken
	NextProtos []string

	manager *autocert.Manager
}

// Default cipher suites for TLS 1.2 (strong, forward secret only).
// TLS 1.3 suites are not configurable.
var defaultCipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
}

// NewConfig creates a new TLS configuration with sensible defaults.
func NewConfig() *Config {
	return &Config{
		MinVersion:   tls.VersionTLS12,
		MaxVersion:   tls.VersionTLS13,
		CipherSuites: defaultCipherSuites,
		NextProtos:   []string{"http/1.1"},
		CacheDir:     "certs",
	}
}

// WithAutoCert enables automatic certificate management via Let's Encrypt.
func (c *Config) WithAutoCert(email string, domains ...string) *Config {
	c.AutoCert = true
	c.SelfSigned = false
	c.Email = email
	c.Domains = domains
	return c
}

// WithStaging selects the Let's Encrypt staging environment.
func (c *Config) WithStaging() *Config {
	c.Staging = true
	return c
}

// WithCacheDir sets the directory autocert stores certificates in.
func (c *Config) WithCacheDir(dir string) *Config {
	c.CacheDir = dir
	return c
}

// WithManualCert sets PEM certificate and key files.
func (c *Config) WithManualCert(certFile, keyFile string) *Config {
	c.AutoCert = false
	c.SelfSigned = false
	c.CertFile = certFile
	c.KeyFile = keyFile
	return c
}

// WithSelfSigned generates a throwaway certificate for hosts at Build time.
func (c *Config) WithSelfSigned(hosts ...string) *Config {
	c.AutoCert = false
	c.SelfSigned = true
	c.SelfSignedHosts = hosts
	return c
}

// WithMinTLSVersion sets the minimum TLS version.
func (c *Config) WithMinTLSVersion(version uint16) *Config {
	c.MinVersion = version
	return c
}

// WithMaxTLSVersion sets the maximum TLS version.
func (c *Config) WithMaxTLSVersion(version uint16) *Config {
	c.MaxVersion = version
	return c
}

// Build creates a *tls.Config from the configuration.
func (c *Config) Build() (*tls.Config, error) {
	switch {
	case c.AutoCert:
		return c.buildAutoCert()
	case c.SelfSigned:
		return c.buildSelfSigned()
	default:
		return c.buildManualCert()
	}
}

// Manager returns the autocert manager after an AutoCert Build, else nil.
func (c *Config) Manager() *autocert.Manager {
	return c.manager
}

func (c *Config) base() *tls.Config {
	return &tls.Config{
		MinVersion:   c.MinVersion,
		MaxVersion:   c.MaxVersion,
		CipherSuites: c.CipherSuites,
		NextProtos:   c.NextProtos,
	}
}

// buildAutoCert answers TLS-ALPN-01 challenges on the HTTPS listener itself,
// so no plain HTTP challenge handler is needed.
func (c *Config) buildAutoCert() (*tls.Config, error) {
	if c.Email == "" {
		return nil, ErrNoEmail
	}
	if len(c.Domains) == 0 {
		return nil, ErrNoDomains
	}

	if c.CacheDir != "" {
		if err := os.MkdirAll(c.CacheDir, 0o700); err != nil {
			return nil, fmt.Errorf("tls: certificate cache dir: %w", err)
		}
	}

	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		Email:      c.Email,
		HostPolicy: autocert.HostWhitelist(c.Domains...),
	}
	if c.CacheDir != "" {
		m.Cache = autocert.DirCache(c.CacheDir)
	}
	if c.Staging {
		m.Client = &acme.Client{DirectoryURL: StagingDirectoryURL}
	}
	c.manager = m

	cfg := c.base()
	cfg.GetCertificate = m.GetCertificate
	cfg.NextProtos = append(append([]string{}, c.NextProtos...), acme.ALPNProto)
	return cfg, nil
}

func (c *Config) buildManualCert() (*tls.Config, error) {
	if c.CertFile == "" || c.KeyFile == "" {
		return nil, ErrNoCertificate
	}

	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("tls: load certificate: %w", err)
	}

	cfg := c.base()
	cfg.Certificates = []tls.Certificate{cert}
	return cfg, nil
}

func (c *Config) buildSelfSigned() (*tls.Config, error) {
	hosts := c.SelfSignedHosts
	if len(hosts) == 0 {
		hosts = []string{"localhost", "127.0.0.1", "::1"}
	}

	certPEM, keyPEM, err := GenerateSelfSigned(hosts...)
	if err != nil {
		return nil, err
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("tls: self-signed pair: %w", err)
	}

	cfg := c.base()
	cfg.Certificates = []tls.Certificate{cert}
	return cfg, nil
}
