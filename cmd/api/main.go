package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/landlead-crm/cmd/mainconfig"
	"github.com/wolfman30/landlead-crm/internal/api/router"
	"github.com/wolfman30/landlead-crm/internal/app/bootstrap"
	appconfig "github.com/wolfman30/landlead-crm/internal/config"
	httpmiddleware "github.com/wolfman30/landlead-crm/internal/http/middleware"
	"github.com/wolfman30/landlead-crm/internal/leads"
	"github.com/wolfman30/landlead-crm/internal/observability/metrics"
	"github.com/wolfman30/landlead-crm/internal/resolution"
	"github.com/wolfman30/landlead-crm/internal/scan"
	"github.com/wolfman30/landlead-crm/pkg/logging"
)

func main() {
	cfg, logger := mainconfig.Load()
	logger.Info("starting landlead API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := bootstrap.BuildPostgres(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pg.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	metricsHandler, dedupeMetrics := setupDedupeMetrics()
	leadsRepo := bootstrap.BuildLeadRepository(pg, logger)
	service, err := bootstrap.BuildResolutionService(cfg, leadsRepo, redisClient, pg, dedupeMetrics, logger)
	if err != nil {
		logger.Error("failed to build resolution service", "error", err)
		os.Exit(1)
	}

	scanRuntime, err := setupScan(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to set up import screening", "error", err)
		os.Exit(1)
	}
	inlineWorker := setupInlineWorker(ctx, cfg, scanRuntime, service, dedupeMetrics, logger)

	routerCfg := &router.Config{
		Logger:             logger,
		LeadsHandler:       leads.NewHandler(leadsRepo, logger),
		ResolutionHandler:  resolution.NewHandler(service, logger),
		ScanHandler:        scan.NewHandler(scanRuntime.Publisher, scanRuntime.Jobs, logger),
		ScanRateLimiter:    httpmiddleware.NewRateLimiter(cfg.ScanRateLimit, cfg.ScanRateBurst),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ReadinessChecks:    readinessChecks(pg, redisClient),
	}
	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set; merge endpoint is unauthenticated")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.New(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	cancel()
	waitForInlineWorker(inlineWorker, logger)
	logger.Info("server stopped")
}

func setupDedupeMetrics() (http.Handler, *metrics.DedupeMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewDedupeMetrics(reg)
}

func setupScan(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*bootstrap.ScanRuntime, error) {
	if cfg.UseMemoryQueue {
		return bootstrap.BuildScan(cfg, nil, logger)
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return bootstrap.BuildScan(cfg, &awsCfg, logger)
}

// setupInlineWorker runs screening in-process when the queue is in memory.
func setupInlineWorker(ctx context.Context, cfg *appconfig.Config, rt *bootstrap.ScanRuntime, screener scan.Screener, m *metrics.DedupeMetrics, logger *logging.Logger) *scan.Worker {
	if rt == nil || !rt.InProcess {
		return nil
	}
	worker := rt.NewWorker(screener, logger,
		scan.WithWorkerCount(cfg.WorkerCount),
		scan.WithMetrics(m),
	)
	worker.Start(ctx)
	logger.Info("inline scan worker started", "workers", cfg.WorkerCount)
	return worker
}

func waitForInlineWorker(worker *scan.Worker, logger *logging.Logger) {
	if worker == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		worker.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("inline scan worker stopped")
	case <-time.After(30 * time.Second):
		logger.Error("inline scan worker shutdown timed out")
	}
}

func readinessChecks(pg *bootstrap.Postgres, redisClient *redis.Client) map[string]router.ReadinessCheck {
	checks := map[string]router.ReadinessCheck{}
	if pg != nil {
		checks["postgres"] = func(ctx context.Context) error { return pg.Pool.Ping(ctx) }
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	return checks
}
