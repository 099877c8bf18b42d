package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/landlead-crm/internal/app/bootstrap"
	appconfig "github.com/wolfman30/landlead-crm/internal/config"
	"github.com/wolfman30/landlead-crm/internal/leads"
	"github.com/wolfman30/landlead-crm/internal/resolution"
	"github.com/wolfman30/landlead-crm/pkg/logging"
)

func TestSetupDedupeMetricsExposesMetrics(t *testing.T) {
	handler, m := setupDedupeMetrics()
	if handler == nil || m == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	m.ObserveMerge("success")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "landlead_dedupe_merges_total") {
		t.Fatalf("expected merge counter to be exported")
	}
}

func TestSetupScanMemoryPath(t *testing.T) {
	cfg := &appconfig.Config{UseMemoryQueue: true, ScanBatchSize: 10}
	rt, err := setupScan(context.Background(), cfg, logging.New("error"))
	if err != nil {
		t.Fatalf("setupScan: %v", err)
	}
	if !rt.InProcess || rt.Publisher == nil {
		t.Fatalf("expected in-process runtime, got %#v", rt)
	}
}

func TestSetupInlineWorkerDisabled(t *testing.T) {
	cfg := &appconfig.Config{}
	if worker := setupInlineWorker(context.Background(), cfg, &bootstrap.ScanRuntime{}, nil, nil, logging.New("error")); worker != nil {
		t.Fatalf("expected no worker when the queue is external")
	}
}

func TestSetupInlineWorkerStartsAndStops(t *testing.T) {
	logger := logging.New("error")
	cfg := &appconfig.Config{UseMemoryQueue: true, WorkerCount: 1}
	rt, err := bootstrap.BuildScan(cfg, nil, logger)
	if err != nil {
		t.Fatal(err)
	}
	service := resolution.NewService(resolution.Config{Repo: leads.NewInMemoryRepository(), Logger: logger})

	ctx, cancel := context.WithCancel(context.Background())
	worker := setupInlineWorker(ctx, cfg, rt, service, nil, logger)
	if worker == nil {
		t.Fatalf("expected worker when memory queue is enabled")
	}

	cancel()
	waitForInlineWorker(worker, logger)
}

func TestReadinessChecks(t *testing.T) {
	if checks := readinessChecks(nil, nil); len(checks) != 0 {
		t.Fatalf("expected no checks without backends, got %d", len(checks))
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	checks := readinessChecks(nil, client)
	if err := checks["redis"](context.Background()); err != nil {
		t.Fatalf("expected redis ping to succeed: %v", err)
	}
}
