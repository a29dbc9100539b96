package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"auth-sync/config"
	"auth-sync/internal/adapter/gateway"
	adapterhandler "auth-sync/internal/adapter/handler"
	"auth-sync/internal/domain"
	"auth-sync/internal/infrastructure/session"
	infratoken "auth-sync/internal/infrastructure/token"
	"auth-sync/internal/infrastructure/validation"
	"auth-sync/internal/usecase"
	appmiddleware "auth-sync/middleware"
	"auth-sync/utils/logger"
	"auth-sync/utils/otel"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Initialize OpenTelemetry
	otelCfg := otel.ConfigFromEnv()
	otelShutdown, err := otel.InitProvider(ctx, otelCfg)
	if err != nil {
		slog.Warn("failed to initialize OpenTelemetry, continuing without tracing", "error", err)
		otelCfg.Enabled = false
		otelShutdown = func(context.Context) error { return nil }
	}

	// Initialize structured logger
	log := logger.Init(logger.Options{EnableOTel: otelCfg.Enabled})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log.InfoContext(ctx, "configuration loaded",
		"version", version,
		"kratos_url", cfg.KratosURL,
		"port", cfg.Port,
		"bootstrap_timeout", cfg.BootstrapTimeout,
		"snapshots_enabled", cfg.SnapshotsEnabled(),
		"session_token_seeded", cfg.KratosSessionToken != "")

	// Infrastructure
	kratosGateway := gateway.NewKratosGateway(cfg.KratosURL, cfg.KratosTimeout, log)
	if cfg.KratosSessionToken != "" {
		kratosGateway.SetSessionToken(cfg.KratosSessionToken)
	}

	store := session.NewStore(log)
	store.Subscribe(session.NewTransitionLogger(log))

	bootstrapper := session.NewBootstrapper(kratosGateway, store, cfg.BootstrapTimeout, log)
	validator := validation.NewCredentialValidator()

	var signer domain.SnapshotSigner
	if cfg.SnapshotsEnabled() {
		jwtSigner, err := infratoken.NewJWTSigner(infratoken.JWTConfig{
			Secret:   cfg.SnapshotTokenSecret,
			Issuer:   cfg.SnapshotTokenIssuer,
			Audience: cfg.SnapshotTokenAudience,
			TTL:      cfg.SnapshotTokenTTL,
		})
		if err != nil {
			return fmt.Errorf("failed to create snapshot signer: %w", err)
		}
		signer = jwtSigner
	}

	// Usecases
	getSessionUC := usecase.NewGetSession(store, bootstrapper, signer, log)
	refreshUC := usecase.NewRefreshSession(kratosGateway, store, log)
	signUpUC := usecase.NewSignUp(kratosGateway, store, validator, log)
	logInUC := usecase.NewLogIn(kratosGateway, store, validator, log)
	logOutUC := usecase.NewLogOut(kratosGateway, store, log)

	// Handlers
	handlers := adapterhandler.Handlers{
		Session: adapterhandler.NewSessionHandler(getSessionUC, refreshUC),
		Events:  adapterhandler.NewEventsHandler(store, store, bootstrapper, cfg.EventsHeartbeat, log),
		Auth:    adapterhandler.NewAuthHandler(signUpUC, logInUC, logOutUC, log),
		Health:  adapterhandler.NewHealthHandler(bootstrapper),
	}

	// Setup Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(appmiddleware.RequestID())
	e.Use(appmiddleware.SecurityHeaders(cfg.HSTSEnabled))

	// OpenTelemetry tracing
	if otelCfg.Enabled {
		e.Use(otelecho.Middleware(otelCfg.ServiceName))
		e.Use(appmiddleware.OTelStatusMiddleware())
	}

	// Request logging
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/health" || path == "/ready"
		},
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			rctx := c.Request().Context()
			if v.Error == nil {
				log.InfoContext(rctx, "request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				log.ErrorContext(rctx, "request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))

	e.Use(middleware.Recover())

	g, gCtx := errgroup.WithContext(ctx)

	// Credential endpoints: 10 req/min per client, then the shared secret
	authRL := appmiddleware.NewRateLimiter(gCtx, appmiddleware.RateLimitConfig{
		Rate:  rate.Limit(10.0 / 60.0),
		Burst: 3,
	})
	adapterhandler.Register(e, handlers,
		authRL.Middleware(),
		appmiddleware.InternalAuth(cfg.AuthSharedSecret, log),
	)

	g.Go(func() error {
		bootstrapper.Run(gCtx)
		log.InfoContext(gCtx, "session bootstrap finished",
			"authenticated", store.State().Authenticated)
		return nil
	})

	// Start server with errgroup for graceful shutdown
	address := fmt.Sprintf(":%s", cfg.Port)
	log.InfoContext(ctx, "starting auth-sync server", "address", address)

	g.Go(func() error {
		if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return otelShutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown error: %w", err)
	}

	log.Info("server exited properly")
	return nil
}
