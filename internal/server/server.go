// Package server assembles the catalog service and runs its listeners.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-service/internal/api"
	"github.com/JakeFAU/catalog-service/internal/catalog"
	"github.com/JakeFAU/catalog-service/internal/config"
	"github.com/JakeFAU/catalog-service/internal/dispatcher"
	"github.com/JakeFAU/catalog-service/internal/logging"
	"github.com/JakeFAU/catalog-service/internal/logrecord"
	"github.com/JakeFAU/catalog-service/internal/logrecord/sinks"
	"github.com/JakeFAU/catalog-service/internal/metrics"
	"github.com/JakeFAU/catalog-service/internal/search"
	"github.com/JakeFAU/catalog-service/internal/telemetry"
)

// App contains the application's dependencies.
type App struct {
	cfg         config.Config
	logger      *zap.Logger
	store       *catalog.FileStore
	records     *logrecord.Hub
	telemetry   *telemetry.Provider
	apiServer   *api.Server
	adminServer *api.AdminServer
}

type buildOptions struct {
	registerer prometheus.Registerer
	logger     *zap.Logger
}

// Option customizes Build.
type Option func(*buildOptions)

// WithRegisterer registers collectors on reg instead of the default registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *buildOptions) { o.registerer = reg }
}

// WithLogger skips logger construction and uses l as-is.
func WithLogger(l *zap.Logger) Option {
	return func(o *buildOptions) { o.logger = l }
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := buildOptions{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = logging.New(cfg.Logging.Development, cfg.Telemetry.ServiceName)
		if err != nil {
			return nil, fmt.Errorf("logger init failed: %w", err)
		}
		zap.ReplaceGlobals(logger)
	}

	app := &App{cfg: cfg, logger: logger}
	app.logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.Int("admin_port", cfg.Server.AdminPort),
		zap.String("catalog_path", cfg.Catalog.Path),
		zap.String("search_endpoint", cfg.Search.Endpoint),
		zap.String("trace_exporter", cfg.Telemetry.Exporter),
	)

	store, err := catalog.NewFileStore(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("catalog store init failed: %w", err)
	}
	app.store = store

	if err := app.setupRecords(o.registerer); err != nil {
		return nil, err
	}

	app.telemetry, err = telemetry.New(ctx, cfg.Telemetry,
		telemetry.WithRegisterer(o.registerer),
		telemetry.WithRecords(app.records),
		telemetry.WithLogger(logger.Named("telemetry")),
	)
	if err != nil {
		app.closeRecords(ctx)
		return nil, fmt.Errorf("telemetry init failed: %w", err)
	}

	proxy := search.New(search.Config{
		Endpoint:  cfg.Search.Endpoint,
		Timeout:   cfg.SearchTimeout(),
		UserAgent: cfg.Search.UserAgent,
		RPS:       cfg.Search.RateLimitRPS,
		Burst:     cfg.Search.RateLimitBurst,
	}, logger.Named("search"))
	app.logger.Info("search proxy configured",
		zap.Duration("timeout", cfg.SearchTimeout()),
		zap.Float64("rate_limit_rps", cfg.Search.RateLimitRPS),
	)

	d := dispatcher.New(store, proxy, app.telemetry, cfg.Catalog.MaxBodyBytes)
	app.apiServer = api.NewServer(d, logger.Named("api"))
	app.adminServer = api.NewAdminServer(store.Ready, logger.Named("admin"))

	return app, nil
}

func (a *App) setupRecords(reg prometheus.Registerer) error {
	promSink, err := sinks.NewPrometheusSink(reg)
	if err != nil {
		return fmt.Errorf("log record sink init failed: %w", err)
	}
	hubCfg := logrecord.Config{
		BufferSize: a.cfg.Telemetry.Records.BufferSize,
		MaxBatch:   a.cfg.Telemetry.Records.MaxBatch,
		MaxWait:    a.cfg.RecordsMaxWait(),
		OnDrop:     metrics.ObserveLogRecordsDropped,
		Logger:     a.logger.Named("records_hub"),
	}
	a.records = logrecord.NewHub(hubCfg,
		sinks.NewLogSink(a.logger.Named("records")),
		promSink,
	)
	a.logger.Info("log record hub initialized",
		zap.Int("buffer_size", hubCfg.BufferSize),
		zap.Int("max_batch", hubCfg.MaxBatch),
		zap.Duration("max_wait", hubCfg.MaxWait),
	)
	return nil
}

// Handler returns the catalog HTTP handler.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// AdminHandler returns the probes and metrics handler.
func (a *App) AdminHandler() http.Handler {
	return a.adminServer.Handler()
}

// Run listens on the configured ports and blocks until ctx is canceled or a
// termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiLn, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", a.cfg.Server.Port, err)
	}
	var adminLn net.Listener
	if a.cfg.Server.AdminPort > 0 {
		adminLn, err = net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Server.AdminPort))
		if err != nil {
			_ = apiLn.Close()
			return fmt.Errorf("listen on admin port %d: %w", a.cfg.Server.AdminPort, err)
		}
	}
	return a.Serve(ctx, apiLn, adminLn)
}

// Serve runs both servers on the given listeners until ctx is done, then
// drains them and closes the application. adminLn may be nil.
func (a *App) Serve(ctx context.Context, apiLn, adminLn net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	readHeader := time.Duration(a.cfg.Server.ReadHeaderTimeoutSeconds) * time.Second
	servers := []*http.Server{{
		Handler:           a.Handler(),
		ReadHeaderTimeout: readHeader,
	}}
	listeners := []net.Listener{apiLn}
	names := []string{"http"}
	if adminLn != nil {
		servers = append(servers, &http.Server{
			Handler:           a.AdminHandler(),
			ReadHeaderTimeout: readHeader,
		})
		listeners = append(listeners, adminLn)
		names = append(names, "admin")
	}

	errCh := make(chan error, len(servers))
	for i, srv := range servers {
		go func(srv *http.Server, ln net.Listener, name string) {
			a.logger.Info(name+" server started", zap.String("addr", ln.Addr().String()))
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error(name+" server error", zap.Error(err))
				errCh <- fmt.Errorf("%s server: %w", name, err)
				cancel()
			}
		}(srv, listeners[i], names[i])
	}

	a.logger.Info("application started")
	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	defer shutdownCancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown error", zap.Error(err))
		}
	}

	var serveErr error
	select {
	case serveErr = <-errCh:
	default:
	}
	return errors.Join(serveErr, a.Close(shutdownCtx))
}

// Close flushes telemetry and log records.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.telemetry != nil {
		if err := a.telemetry.Shutdown(ctx); err != nil {
			a.logger.Warn("telemetry shutdown failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	a.closeRecords(ctx)
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeRecords(ctx context.Context) {
	if a.records == nil {
		return
	}
	if err := a.records.Close(ctx); err != nil {
		a.logger.Warn("log record hub close failed", zap.Error(err))
	}
	if dropped := a.records.Dropped(); dropped > 0 {
		a.logger.Warn("log records dropped during run", zap.Int64("dropped", dropped))
	}
}
