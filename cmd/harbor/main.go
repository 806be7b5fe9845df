// harbor serves a directory over HTTP and HTTPS, one request per connection.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/harbor/pkg/harbor/config"
	"github.com/yourusername/harbor/pkg/harbor/dispatch"
	"github.com/yourusername/harbor/pkg/harbor/logging"
	"github.com/yourusername/harbor/pkg/harbor/server"
	"github.com/yourusername/harbor/pkg/harbor/static"
)

const version = "0.1.0"

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "harbor: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "harbor: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the -config file, if any, and layers the other flags
// over it. Only flags given on the command line override the file.
func loadConfig(args []string) (*config.Config, error) {
	fs := flag.NewFlagSet("harbor", flag.ContinueOnError)
	path := fs.String("config", "", "Configuration file (.json, .yaml or .yml)")
	port := fs.Int("port", 80, "HTTP port")
	host := fs.String("host", "", "Bind address for both listeners")
	root := fs.String("root", "", "Directory to serve")
	httpsPort := fs.Int("https-port", 443, "HTTPS port (enables HTTPS)")
	cert := fs.String("cert", "", "TLS certificate file (enables HTTPS)")
	key := fs.String("key", "", "TLS key file (enables HTTPS)")
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn or error")
	metricsAddr := fs.String("metrics", "", "Address of the Prometheus endpoint, e.g. :9100")
	showVersion := fs.Bool("version", false, "Print the version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *showVersion {
		fmt.Printf("harbor version %s\n", version)
		return nil, flag.ErrHelp
	}

	cfg := config.Default()
	if *path != "" {
		loaded, err := config.Load(*path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.HTTP.Port = *port
		case "host":
			cfg.HTTP.Host = *host
			cfg.HTTPS.Host = *host
		case "root":
			cfg.RootDir = *root
		case "https-port":
			cfg.HTTPS.Port = *httpsPort
			cfg.HTTPS.Enabled = true
		case "cert":
			cfg.HTTPS.CertFile = *cert
			cfg.HTTPS.Enabled = true
		case "key":
			cfg.HTTPS.KeyFile = *key
			cfg.HTTPS.Enabled = true
		case "log-level":
			cfg.Log.Level = *logLevel
		case "metrics":
			cfg.Metrics.Addr = *metricsAddr
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// run serves until ctx is cancelled or a listener fails, then shuts every
// listener down within cfg.ShutdownTimeout.
func run(ctx context.Context, cfg *config.Config) error {
	logger := cfg.Logger()

	resolverOpts := []static.Option{
		static.WithIndexFile(cfg.IndexFile),
		static.WithLogger(logger),
	}
	if cfg.Cache.Enabled {
		resolverOpts = append(resolverOpts, static.WithCache(cfg.Cache.MaxEntries, cfg.Cache.TTL.Std()))
	}
	resolver := static.New(cfg.RootDir, resolverOpts...)
	defer resolver.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	processor := dispatch.NewBase(resolver)
	servers := []*server.Server{
		newServer(cfg.ServerConfig(), processor, logger, reg, "http"),
	}
	if err := servers[0].Listen(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(servers[0].ListenAndServe)

	if cfg.HTTPS.Enabled {
		tlsCfg, err := cfg.TLSConfig().Build()
		if err != nil {
			servers[0].Close()
			return err
		}
		https := newServer(cfg.HTTPSServerConfig(), processor, logger, reg, "https")
		if err := https.Listen(); err != nil {
			servers[0].Close()
			return err
		}
		servers = append(servers, https)
		g.Go(func() error { return https.ListenAndServeTLS(tlsCfg) })
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("metrics listening", logging.String("addr", cfg.Metrics.Addr))
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics: %w", err)
			}
			return nil
		})
	}

	if cfg.Cache.Enabled && cfg.Cache.Watch {
		g.Go(func() error { return resolver.Watch(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Std())
		defer cancel()

		var errs []error
		for _, s := range servers {
			errs = append(errs, s.Shutdown(sctx))
		}
		if metricsSrv != nil {
			errs = append(errs, metricsSrv.Shutdown(sctx))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func newServer(sc server.Config, p dispatch.Processor, logger *logging.Logger, reg prometheus.Registerer, listener string) *server.Server {
	return server.New(sc, p,
		server.WithLogger(logger.With(logging.String("listener", listener))),
		server.WithMetrics(prometheus.WrapRegistererWith(prometheus.Labels{"listener": listener}, reg)),
	)
}
