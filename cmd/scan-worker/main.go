package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/landlead-crm/cmd/mainconfig"
	"github.com/wolfman30/landlead-crm/internal/app/bootstrap"
	"github.com/wolfman30/landlead-crm/internal/observability/metrics"
	"github.com/wolfman30/landlead-crm/internal/scan"
)

func main() {
	cfg, logger := mainconfig.Load()
	if cfg.UseMemoryQueue {
		logger.Error("scan worker needs an SQS queue; USE_MEMORY_QUEUE runs screening inside the API")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	rt, err := bootstrap.BuildScan(cfg, &awsCfg, logger)
	if err != nil {
		logger.Error("failed to set up scan queue", "error", err)
		os.Exit(1)
	}

	pg, err := bootstrap.BuildPostgres(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pg.Close()
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)

	reg := prometheus.NewRegistry()
	dedupeMetrics := metrics.NewDedupeMetrics(reg)
	service, err := bootstrap.BuildResolutionService(cfg, bootstrap.BuildLeadRepository(pg, logger), redisClient, pg, dedupeMetrics, logger)
	if err != nil {
		logger.Error("failed to build resolution service", "error", err)
		os.Exit(1)
	}

	worker := rt.NewWorker(service, logger,
		scan.WithWorkerCount(cfg.WorkerCount),
		scan.WithReceiveWaitSeconds(20),
		scan.WithMetrics(dedupeMetrics),
	)
	worker.Start(ctx)
	logger.Info("scan worker started", "workers", cfg.WorkerCount, "queue", cfg.ScanQueueURL)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down scan worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("scan worker stopped")
	case <-doneCtx.Done():
		logger.Error("scan worker shutdown timed out", "error", doneCtx.Err())
	}
}
