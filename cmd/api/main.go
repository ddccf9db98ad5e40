package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/booking-engine/internal/app"
	"github.com/jwalitptl/booking-engine/internal/config"
	bookinghandler "github.com/jwalitptl/booking-engine/internal/handler/booking"
	"github.com/jwalitptl/booking-engine/internal/handler/health"
	"github.com/jwalitptl/booking-engine/internal/handler/schedule"
	"github.com/jwalitptl/booking-engine/internal/middleware"
	"github.com/jwalitptl/booking-engine/internal/repository/sqlstore"
	"github.com/jwalitptl/booking-engine/internal/router"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/messaging/redis"
	"github.com/jwalitptl/booking-engine/pkg/metrics"
	"github.com/jwalitptl/booking-engine/pkg/telemetry"
)

const serviceName = "booking-api"

var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(os.Getenv("BOOKING_CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(cfg.Log.ToLoggerConfig())
	log.Logger = appLogger.ZL

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.InitTracer(ctx, cfg.Tracing.ToTracerConfig(serviceName, version), appLogger)
	if err != nil {
		appLogger.Fatal(err, "failed to initialize tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	// Initialize database
	db, err := sqlstore.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := sqlstore.Migrate(ctx, db); err != nil {
			appLogger.Fatal(err, "failed to migrate database")
		}
	}

	m := metrics.New("booking", prometheus.DefaultRegisterer)
	repos := sqlstore.NewRepositories(db)
	engine := app.NewEngine(repos, cfg.Matching, m, appLogger)

	// Redis is only needed for readiness here; the worker publishes events.
	deps := map[string]health.Pinger{}
	broker, err := redis.NewRedisBroker(ctx, cfg.Redis.ToBrokerConfig(), &log.Logger)
	if err != nil {
		appLogger.Warn("redis unavailable, readiness will not check it", "error", err.Error())
	} else {
		defer broker.Close()
		deps["redis"] = broker
	}

	gin.SetMode(gin.ReleaseMode)
	r := router.NewRouter(
		health.NewHandler(db, deps, prometheus.DefaultGatherer),
		[]router.Handler{
			bookinghandler.NewHandler(engine.Bookings, engine.Candidates, engine.Scoring, engine.Conflicts),
			schedule.NewHandler(engine.Availability, engine.Bookings),
		},
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        cfg.RateLimit.RequestsPerSecond,
			RateBurst:        cfg.RateLimit.Burst,
			RequestTimeout:   cfg.Server.RequestTimeout,
			CORSConfig:       middleware.DefaultCORSConfig(),
			MetricsPrefix:    "booking_http",
			ServiceName:      serviceName,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Info("server listening", "addr", srv.Addr, "assignment_mode", string(cfg.Matching.AssignmentMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal(err, "failed to start server")
		}
	}()

	<-ctx.Done()
	appLogger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "server forced to shutdown")
	}

	appLogger.Info("server exited properly")
}
