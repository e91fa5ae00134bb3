package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	api "github.com/oshokin/catpoint/internal/api/grpc/security"
	"github.com/oshokin/catpoint/internal/api/rest"
	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/service/security"
)

// Options controls the catpoint-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// HTTPAddress overrides the health and metrics address from settings.
	HTTPAddress string
	// StoragePath overrides the state file or database path from settings.
	StoragePath string
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the servers and blocks until ctx is canceled or a server stops.
// Loads configuration first, then determines listen address from config or override.
//
//nolint:funlen // Composition root.
func Run(ctx context.Context, opts *Options) error {
	// Load configuration first to get server settings.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	applyOverrides(settings, opts)

	// Set context with a configured, named logger for tracking.
	ctx = logger.WithName(logger.ToContext(ctx, newLogger(settings)), "catpoint-server")

	defer func() { _ = logger.FromContext(ctx).Sync() }()

	// Determine listen address: CLI argument overrides config port extraction.
	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	repo, closeRepo, err := openRepository(ctx, settings.Storage)
	if err != nil {
		return err
	}

	defer func() { _ = closeRepo.Close() }()

	analyzer, err := newAnalyzer(settings.Image)
	if err != nil {
		return fmt.Errorf("create image analyzer: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	listeners, closeListeners, err := newListeners(ctx, settings, registry)
	if err != nil {
		return fmt.Errorf("create listeners: %w", err)
	}

	defer func() { _ = closeListeners.Close() }()

	engine, err := security.NewEngine(repo, analyzer,
		security.WithConfidenceThreshold(settings.Image.ConfidenceThreshold),
		security.WithListeners(listeners...),
	)
	if err != nil {
		return fmt.Errorf("initialise engine: %w", err)
	}

	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	serverOpts := append(api.ServerOptions(),
		grpc.ChainUnaryInterceptor(loggingInterceptor(requestLogContext(ctx, settings, "grpc"))))
	grpcServer := grpc.NewServer(serverOpts...)
	history, hasHistory := repo.(historyRepository)

	var (
		apiOpts  []api.Option
		restOpts []rest.Option
	)

	if hasHistory {
		apiOpts = append(apiOpts, api.WithHistory(history))
		restOpts = append(restOpts, rest.WithAlarmHistory(history))
	}

	api.RegisterSecurityServiceServer(grpcServer, api.NewServer(engine, apiOpts...))

	logger.InfoKV(ctx, "Catpoint server listening",
		"listen_address", listenAddress,
		"storage", settings.Storage.Driver,
		"image_provider", settings.Image.Provider)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()

		return nil
	})

	if settings.HTTPAddress != "" {
		serveHTTP(ctx, groupCtx, group, settings, rest.NewRouter(requestLogContext(ctx, settings, "http"), engine, registry, restOpts...))
	}

	if err := group.Wait(); err != nil {
		return err
	}

	logger.Info(ctx, "Catpoint server stopped")

	return nil
}

// serveHTTP runs the health and metrics server inside group.
func serveHTTP(ctx, groupCtx context.Context, group *errgroup.Group, settings *config.Config, handler http.Handler) {
	httpServer := &http.Server{
		Addr:              settings.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: settings.Timeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	group.Go(func() error {
		logger.InfoKV(ctx, "HTTP endpoint listening", "http_address", settings.HTTPAddress)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve HTTP: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settings.Timeout)
		defer cancel()

		return httpServer.Shutdown(shutdownCtx)
	})
}

// applyOverrides replaces settings with non-empty command line values.
func applyOverrides(settings *config.Config, opts *Options) {
	if opts.HTTPAddress != "" {
		settings.HTTPAddress = opts.HTTPAddress
	}

	if opts.StoragePath != "" {
		settings.Storage.Path = opts.StoragePath
	}
}

// newLogger builds a logger with the level and encoding from settings.
func newLogger(settings *config.Config) *zap.SugaredLogger {
	level, ok := logger.ParseLogLevel(settings.LogLevel)
	if !ok {
		level = logger.Level()
	}

	return logger.New(level, logger.Encoding(settings.LogEncoding))
}

// requestLogContext names the request logger and applies the request log level, if set.
func requestLogContext(ctx context.Context, settings *config.Config, name string) context.Context {
	ctx = logger.WithName(ctx, name)

	if settings.RequestLogLevel == "" {
		return ctx
	}

	if level, ok := logger.ParseLogLevel(settings.RequestLogLevel); ok {
		ctx = logger.WithLevelOverride(ctx, level)
	}

	return ctx
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	// Use override address if provided (e.g., ":9090", "0.0.0.0:8080").
	if override != "" {
		return override, nil
	}

	// Extract port from config address (e.g., "server.example.com:8080" -> ":8080").
	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	// Parse the address to extract port.
	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Return port-only listen address to bind on all interfaces.
	return ":" + port, nil
}
