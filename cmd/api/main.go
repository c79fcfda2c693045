package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-api/internal/app"
	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/handler/appointment"
	"github.com/jwalitptl/clinic-api/internal/handler/auth"
	"github.com/jwalitptl/clinic-api/internal/handler/clinic"
	"github.com/jwalitptl/clinic-api/internal/handler/dashboard"
	"github.com/jwalitptl/clinic-api/internal/handler/doctor"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	"github.com/jwalitptl/clinic-api/internal/handler/pages"
	"github.com/jwalitptl/clinic-api/internal/handler/patient"
	"github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-api/internal/handler/user"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/router"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (default: search ./config.yml, ./config, /app/config)")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})
	appLogger.SetGlobal()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal(err, "failed to initialize application")
	}
	defer a.Close()

	if cfg.Database.AutoMigrate {
		if err := a.Migrate(ctx); err != nil {
			appLogger.Fatal(err, "failed to apply migrations")
		}
	}

	r, err := newRouter(a)
	if err != nil {
		appLogger.Fatal(err, "failed to build router")
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		appLogger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal(err, "failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	appLogger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "server forced to shutdown")
		return
	}

	appLogger.Info("server exited properly")
}

func newRouter(a *app.App) (*router.Router, error) {
	cfg := a.Config
	svc := a.Services
	cookie := handler.SessionCookie{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.Auth.CookieSecure,
		TTL:    cfg.Auth.SessionTTL,
	}

	pagesHandler, err := pages.NewHandler(svc.Auth, svc.Clinics, svc.Dashboard, cookie)
	if err != nil {
		return nil, err
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowOrigins

	return router.NewRouter(
		middleware.NewAuthMiddleware(svc.Auth, svc.Clinics, cookie),
		router.Handlers{
			Health:      health.NewHandler(map[string]health.Pinger{"database": a.DB}),
			Metrics:     prometheus.New(a.Registry),
			Pages:       pagesHandler,
			Auth:        auth.NewHandler(svc.Auth, cookie),
			User:        user.NewHandler(svc.Users, cookie),
			Dashboard:   dashboard.NewHandler(svc.Dashboard),
			Clinic:      clinic.NewHandler(svc.Clinics),
			Doctor:      doctor.NewHandler(svc.Doctors),
			Patient:     patient.NewHandler(svc.Patients),
			Appointment: appointment.NewHandler(svc.Appointments),
		},
		a.Metrics,
		router.RouterConfig{
			Mode:           cfg.Server.Mode,
			RequestTimeout: cfg.Server.WriteTimeout,
			RateLimit: middleware.RateLimiterConfig{
				Rate:  rate.Limit(cfg.RateLimit.RPS),
				Burst: cfg.RateLimit.Burst,
			},
			CORS:      corsConfig,
			Security:  middleware.DefaultSecurityConfig(cfg.Auth.CookieSecure),
			SizeLimit: middleware.DefaultSizeLimitConfig(),
		},
	)
}
