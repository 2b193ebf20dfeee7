// Package app wires configuration, logging, metrics, the attribute
// description table, the services, and the HTTP router into a runnable
// application.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"corrsvc/internal/attributes"
	"corrsvc/internal/config"
	apierrors "corrsvc/internal/errors"
	"corrsvc/internal/infrastructure"
	customMiddleware "corrsvc/internal/middleware"
	"corrsvc/internal/services"
	handlers "corrsvc/internal/transport/http"
)

const (
	// Version is the reported service version
	Version = "v1.0.0"
	// AppName is the human-readable service name
	AppName = "Sector Correlation Service"
)

// Application represents the main application container
type Application struct {
	Config             *config.Config
	Router             *chi.Mux
	Server             *http.Server
	Logger             *slog.Logger
	OTelProviders      *infrastructure.OTelProviders
	Attributes         *attributes.Description
	CorrelationService *services.CorrelationService
	HealthService      *services.HealthService
	Metrics            *infrastructure.BusinessMetrics
}

// NewApplication creates a new application instance with dependency injection
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", Version))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	var metrics *infrastructure.BusinessMetrics
	if otelProviders.Meter != nil {
		metrics, err = infrastructure.CreateBusinessMetrics(otelProviders.Meter)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics: %w", err)
		}
	}

	// The attribute description table is loaded exactly once, before any
	// request is served, and injected read-only into the services.
	if !config.FileExists(cfg.Attributes.File) {
		return nil, fmt.Errorf("attribute description file not found: %s", cfg.Attributes.File)
	}
	desc, err := attributes.Load(cfg.Attributes.File, cfg.Attributes.GroupColumn, cfg.Attributes.FieldColumn)
	if err != nil {
		return nil, fmt.Errorf("failed to load attribute description table: %w", err)
	}
	logger.Info("Attribute description table loaded",
		slog.String("file", cfg.Attributes.File),
		slog.Int("groups", desc.NumGroups()))

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Attributes:    desc,
		Metrics:       metrics,
		CorrelationService: services.NewCorrelationService(desc, logger, metrics),
		HealthService: services.NewHealthService(desc, services.VersionInfo{
			Version: Version,
			Service: AppName,
		}, logger),
	}

	app.setupRouter()

	app.Server = &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      app.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	r.Group(func(r chi.Router) {
		// Ordering: RequestID → RealIP → Metrics → Logger → Recoverer →
		// SecurityHeaders → CORS → RateLimiter → Timeout
		r.Use(customMiddleware.BusinessMetricsMiddleware(a.Metrics))
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				Logger:         a.Logger,
			}))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		a.setupAPIRoutes(r)
	})

	// Prometheus scrape endpoint outside the middleware group
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

		correlationHandler := handlers.NewCorrelationHandler(
			a.CorrelationService,
			a.Logger,
			errorHandler,
			a.Config.Upload.MaxSizeBytes,
		)
		r.Mount("/correlation", correlationHandler.Routes())
	})
}

// Run starts the HTTP server and blocks until shutdown
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("HTTP server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()

		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn("OpenTelemetry shutdown failed", slog.String("error", err.Error()))
		}
		infrastructure.CloseLogger()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.Logger.Info("Application stopped")
	return nil
}
