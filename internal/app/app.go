package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"licensegate/internal/config"
	apperrors "licensegate/internal/errors"
	"licensegate/internal/infrastructure"
	"licensegate/internal/license"
	customMiddleware "licensegate/internal/middleware"
	"licensegate/internal/services"
	handlers "licensegate/internal/transport/http"
	"licensegate/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Services      *ServiceContainer

	logCloser io.Closer
	options   options
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Metrics *license.Metrics

	// Exactly one of Static and Remote is set, depending on the variant.
	Static *license.Manager
	Remote *license.RemoteManager

	License services.LicenseService
	Health  *services.HealthService
	Errors  *apperrors.ErrorHandler
}

// Option customizes application construction.
type Option func(*options)

type options struct {
	stdout    io.Writer
	keySource license.KeySource
	clock     license.Clock
}

// WithStdout sends console logs and stdout traces to w.
func WithStdout(w io.Writer) Option {
	return func(o *options) { o.stdout = w }
}

// WithKeySource replaces the key source built from configuration.
func WithKeySource(src license.KeySource) Option {
	return func(o *options) { o.keySource = src }
}

// WithClock sets the time source of the license managers.
func WithClock(clock license.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// NewApplication creates a new application instance with dependency injection
func NewApplication(cfg *config.Config, opts ...Option) (*Application, error) {
	o := options{stdout: os.Stdout, clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	logger, closer, err := infrastructure.NewLogger(cfg.Logging, o.stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	slog.SetDefault(logger)

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.GetVersionString()),
		slog.String("variant", cfg.Variant))

	otelCfg := infrastructure.OTelConfigFrom(cfg.Telemetry)
	otelCfg.TraceWriter = o.stdout
	otelProviders, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		logCloser:     closer,
		options:       o,
	}

	if err := app.initializeServices(); err != nil {
		app.release(context.Background())
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the license subsystem for the configured variant
func (a *Application) initializeServices() error {
	metrics, err := license.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create license metrics: %w", err)
	}

	sc := &ServiceContainer{
		Metrics: metrics,
		Errors:  apperrors.NewErrorHandler(a.Logger, false),
	}

	common := []license.Option{
		license.WithClock(a.options.clock),
		license.WithLogger(a.Logger),
		license.WithMetrics(metrics),
	}

	switch a.Config.Variant {
	case config.VariantStatic:
		seed := license.SeedRecords(a.Config.License.SeedKeys, a.options.clock(),
			license.Days(a.Config.License.SeedValidityDays))
		sc.Static = license.NewManager(license.NewStore(seed...), common...)
		sc.License = services.NewStaticLicenseService(sc.Static, a.Logger)

		a.Logger.Info("Static license store seeded", slog.Int("licenses", len(seed)))

	case config.VariantRemote:
		source := a.options.keySource
		if source == nil {
			if source, err = a.newKeySource(); err != nil {
				return err
			}
		}

		cache := license.NewKeyCache(source, license.KeyCacheConfig{
			Interval:         a.Config.KeySource.CacheInterval,
			MinRetryInterval: a.Config.KeySource.MinRetryInterval,
			FetchTimeout:     a.Config.KeySource.FetchTimeout,
		}, common...)

		sc.Remote = license.NewRemoteManager(cache, nil,
			license.WithClock(a.options.clock),
			license.WithLogger(a.Logger),
			license.WithMetrics(metrics),
			license.WithValidity(license.Days(a.Config.License.ActivationValidityDays)),
		)
		sc.License = services.NewRemoteLicenseService(sc.Remote, a.Logger)

		a.Logger.Info("Remote key source configured", slog.String("source", source.Describe()))

	default:
		return fmt.Errorf("unknown variant %q", a.Config.Variant)
	}

	sc.Health = services.NewHealthService(sc.License.Variant(), sc.License, a.Logger)
	a.Services = sc
	return nil
}

// newKeySource builds the key source named by the key_source section.
func (a *Application) newKeySource() (license.KeySource, error) {
	ks := a.Config.KeySource

	switch ks.Type {
	case config.KeySourceSheets:
		ctx, cancel := context.WithTimeout(context.Background(), ks.FetchTimeout)
		defer cancel()
		src, err := license.NewSheetsKeySource(ctx, license.SheetsConfig{
			SpreadsheetID:   ks.Sheets.SpreadsheetID,
			Range:           ks.Sheets.Range,
			APIKey:          ks.Sheets.APIKey,
			CredentialsFile: ks.Sheets.CredentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create sheets key source: %w", err)
		}
		return src, nil

	default:
		if ks.InsecureURL() {
			a.Logger.Warn("Key source uses plain HTTP; the key list is not protected in transit",
				slog.String("type", ks.Type))
		}
		return license.NewHTTPKeySource(ks.URL, license.WithMaxBodyBytes(ks.MaxBodyBytes)), nil
	}
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	errHandler := a.Services.Errors

	// RequestID → RealIP → OTel → Logger → Recoverer → CORS → Timeout
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
	} else {
		r.Use(otelMiddleware.Handler)
	}

	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(errHandler))
	r.Use(customMiddleware.CORS())
	r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.NotFound(errHandler.NotFound)
	r.MethodNotAllowed(errHandler.MethodNotAllowed)

	decoder := handlers.NewRequestDecoder(a.Config.Server.MaxRequestBytes)
	handlers.NewLicenseHandler(a.Services.License, decoder, errHandler, a.Logger).Mount(r)
	handlers.NewHealthHandler(a.Services.Health, a.Logger).Mount(r)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Address(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// WarmUp fetches the remote key list once so the first validation does not
// pay for it. It is a no-op for the static variant.
func (a *Application) WarmUp(ctx context.Context) error {
	if a.Services.Remote == nil {
		return nil
	}
	start := time.Now()
	if err := a.Services.Remote.Refresh(ctx); err != nil {
		return fmt.Errorf("initial key fetch failed: %w", err)
	}
	a.Logger.InfoContext(ctx, "Key list loaded",
		slog.Int("keys", a.Services.Remote.Cache().Len()),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Start starts the application
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", contracts.GetVersionString()),
		slog.String("variant", a.Config.Variant),
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	// A failed warm-up is not fatal: validation retries the fetch on demand.
	if a.Config.Variant == config.VariantRemote && a.Config.KeySource.WarmOnStart {
		if err := a.WarmUp(ctx); err != nil {
			a.Logger.WarnContext(ctx, "Key list warm-up failed", slog.String("error", err.Error()))
		}
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", a.Server.Addr))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	a.release(shutdownCtx)
	return errors.Join(errs...)
}

// release flushes telemetry and closes the log file.
func (a *Application) release(ctx context.Context) {
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}
	if a.logCloser != nil {
		a.logCloser.Close()
	}
}

// Run runs the application until interrupted or until the server fails.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.ErrorContext(ctx, "Server stopped unexpectedly")
	}

	// ctx may already be cancelled; shutdown gets its own deadline.
	return a.Stop(context.Background())
}
