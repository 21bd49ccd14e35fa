package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/milehighpros/lead-intake/cmd/mainconfig"
	"github.com/milehighpros/lead-intake/internal/api/router"
	"github.com/milehighpros/lead-intake/internal/app/bootstrap"
	appconfig "github.com/milehighpros/lead-intake/internal/config"
	"github.com/milehighpros/lead-intake/internal/leads"
	"github.com/milehighpros/lead-intake/internal/notify"
	"github.com/milehighpros/lead-intake/internal/observability/metrics"
	"github.com/milehighpros/lead-intake/internal/ratelimit"
	"github.com/milehighpros/lead-intake/pkg/logging"
)

func main() {
	// .env is optional; real deployments inject the environment.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting lead intake API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsHandler, leadMetrics := setupMetrics()

	repo, closeStore, err := bootstrap.BuildLeadRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize lead store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}
	limiter := bootstrap.BuildLimiter(cfg, redisClient, logger)
	if mem, ok := limiter.(*ratelimit.MemoryLimiter); ok {
		go mem.Run(ctx)
	}

	dispatcher := notify.NewLeadDispatcher(notify.DispatcherConfig{
		Sender:          setupEmailSender(ctx, cfg, logger),
		OperationsEmail: cfg.LeadsNotifyEmail,
		SiteName:        cfg.SendGridFromName,
		SendTimeout:     cfg.EmailTimeout,
		Metrics:         leadMetrics,
		Logger:          logger,
	})

	leadsHandler := leads.NewHandler(leads.HandlerConfig{
		Repo:         repo,
		Limiter:      limiter,
		Notifier:     dispatcher,
		Metrics:      leadMetrics,
		Logger:       logger,
		StoreTimeout: cfg.StoreTimeout,
		RetryAfter:   cfg.RateLimitWindow,
	})

	srv := newServer(cfg, router.New(&router.Config{
		Logger:             logger,
		LeadsHandler:       leadsHandler,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AdminAuthSecret:    cfg.AdminJWTSecret,
	}))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func newServer(cfg *appconfig.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// setupMetrics registers lead metrics on a private registry alongside the
// process and Go runtime collectors.
func setupMetrics() (http.Handler, *metrics.LeadMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	leadMetrics := metrics.NewLeadMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), leadMetrics
}

func setupEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	var sesClient notify.SESAPI
	if cfg.EmailProvider == "ses" {
		client, err := mainconfig.NewSESClient(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config; SES disabled", "error", err)
		} else {
			sesClient = client
		}
	}
	return bootstrap.BuildEmailSender(cfg, sesClient, logger)
}
