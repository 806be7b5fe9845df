package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigFlags(t *testing.T) {
	cfg, err := loadConfig([]string{"-port", "8080", "-host", "127.0.0.1", "-root", "/srv/www", "-log-level", "debug"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.HTTP.Port != 8080 || cfg.HTTP.Host != "127.0.0.1" || cfg.HTTPS.Host != "127.0.0.1" {
		t.Errorf("HTTP = %+v HTTPS = %+v", cfg.HTTP, cfg.HTTPS)
	}
	if cfg.RootDir != "/srv/www" || cfg.Log.Level != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.HTTPS.Enabled {
		t.Error("HTTPS enabled without TLS flags")
	}
}

func TestLoadConfigFileThenFlags(t *testing.T) {
	p := filepath.Join(t.TempDir(), "harbor.yaml")
	os.WriteFile(p, []byte("http:\n  port: 9000\nroot_dir: /from/file\n"), 0o644)

	cfg, err := loadConfig([]string{"-config", p, "-root", "/from/flag"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.HTTP.Port != 9000 {
		t.Errorf("port = %d, want the file value 9000", cfg.HTTP.Port)
	}
	if cfg.RootDir != "/from/flag" {
		t.Errorf("root = %q, want the flag value", cfg.RootDir)
	}
}

func TestLoadConfigHTTPSFlags(t *testing.T) {
	cfg, err := loadConfig([]string{"-https-port", "8443", "-cert", "c.pem", "-key", "k.pem"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if !cfg.HTTPS.Enabled || cfg.HTTPS.Port != 8443 || cfg.HTTPS.CertFile != "c.pem" {
		t.Errorf("HTTPS = %+v", cfg.HTTPS)
	}

	// a TLS flag without a key is rejected by validation
	if _, err := loadConfig([]string{"-cert", "c.pem"}); err == nil || !strings.Contains(err.Error(), "key_file") {
		t.Errorf("err = %v, want missing key", err)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := loadConfig([]string{"-port", "nope"}); err == nil {
		t.Error("bad flag value accepted")
	}
	if _, err := loadConfig([]string{"-config", "/does/not/exist.yaml"}); err == nil {
		t.Error("missing config file accepted")
	}
	if _, err := loadConfig([]string{"-log-level", "loud"}); err == nil {
		t.Error("bad log level accepted")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg, err := loadConfig([]string{"-port", "0", "-host", "127.0.0.1", "-root", t.TempDir(), "-log-level", "error"})
	if err != nil {
		t.Fatal(err)
	}
	cfg.Cache.Enabled = true
	cfg.Cache.Watch = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestRunBindError(t *testing.T) {
	cfg, err := loadConfig([]string{"-port", "0", "-host", "203.0.113.255", "-log-level", "error"})
	if err != nil {
		t.Fatal(err)
	}
	if err := run(context.Background(), cfg); err == nil {
		t.Error("run bound an address that is not local")
	}
}
