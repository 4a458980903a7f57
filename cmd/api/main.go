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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lightbounty/booking-site/cmd/mainconfig"
	"github.com/lightbounty/booking-site/internal/api/router"
	"github.com/lightbounty/booking-site/internal/app/bootstrap"
	appconfig "github.com/lightbounty/booking-site/internal/config"
	httpmiddleware "github.com/lightbounty/booking-site/internal/http/middleware"
	"github.com/lightbounty/booking-site/internal/observability/metrics"
	"github.com/lightbounty/booking-site/internal/session"
	"github.com/lightbounty/booking-site/internal/submission"
	"github.com/lightbounty/booking-site/internal/web"
	"github.com/lightbounty/booking-site/pkg/logging"
)

const (
	janitorInterval = 5 * time.Minute
	shutdownTimeout = 30 * time.Second
	staleGrace      = 30 * time.Second
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting light bounty booking site",
		"env", cfg.Env,
		"port", cfg.Port,
		"sink_driver", cfg.SinkDriver,
	)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsHandler, bookingMetrics := setupBookingMetrics()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}
	store := bootstrap.BuildSessionStore(redisClient, cfg.SessionTTL, logger)
	if mem, ok := store.(*submission.MemoryStore); ok {
		go mem.Run(ctx, janitorInterval)
	}

	bookingSink, closeSink, err := bootstrap.BuildSink(ctx, cfg, mainconfig.Loader(cfg), bookingMetrics, logger)
	if err != nil {
		logger.Error("failed to configure booking sink", "error", err)
		os.Exit(1)
	}
	defer closeSink()

	opts := []submission.Option{
		submission.WithMetrics(bookingMetrics),
		submission.WithStaleAfter(staleAfter(cfg.SinkTimeout)),
	}
	if notifier := bootstrap.BuildNotifier(ctx, cfg, mainconfig.Loader(cfg), logger); notifier != nil {
		opts = append(opts, submission.WithNotifier(notifier))
	}
	controller := submission.NewController(store, bookingSink, logger, opts...)

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Run(ctx, janitorInterval)

	r := router.New(&router.Config{
		Logger:             logger,
		Web:                web.NewHandler(controller, cfg.ContactURL, logger),
		Sessions:           session.NewManager(cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction(), logger,
			session.WithCrossSite(httpmiddleware.CrossSiteSessions(cfg.CORSAllowedOrigins))),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(r, "lightbounty-booking"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(cfg.SinkTimeout),
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	controller.Wait()

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupBookingMetrics registers the booking collectors on a fresh registry
// and returns the /metrics handler serving it.
func setupBookingMetrics() (http.Handler, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewBookingMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), m
}

// writeTimeout leaves room for a full sink write on top of the usual budget.
// A sink without a timeout gets a server without one.
func writeTimeout(sinkTimeout time.Duration) time.Duration {
	if sinkTimeout <= 0 {
		return 0
	}
	return sinkTimeout + 15*time.Second
}

// staleAfter is how long a session may stay in Submitting before the
// controller gives up on its write. Without a sink timeout a write may
// legitimately never return, so recovery is off.
func staleAfter(sinkTimeout time.Duration) time.Duration {
	if sinkTimeout <= 0 {
		return 0
	}
	return sinkTimeout + staleGrace
}
