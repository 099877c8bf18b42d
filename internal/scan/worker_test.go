package scan

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/wolfman30/landlead-crm/internal/dedupe"
	"github.com/wolfman30/landlead-crm/internal/leads"
	"github.com/wolfman30/landlead-crm/internal/observability/metrics"
	"github.com/wolfman30/landlead-crm/internal/resolution"
	"github.com/wolfman30/landlead-crm/pkg/logging"
)

func screeningService() *resolution.Service {
	repo := leads.NewInMemoryRepository()
	repo.Seed(leads.Lead{ID: "a", OrgID: "org-1", FirstName: "Ann", PrimaryPhone: "5125550100"})
	return resolution.NewService(resolution.Config{Repo: repo, Logger: logging.Default()})
}

func encodedJob(t *testing.T, job Job) string {
	t.Helper()
	_, body, err := encodeJob(job)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return body
}

func TestWorker_ProcessScreensAndCompletes(t *testing.T) {
	jobs := NewMemoryJobStore()
	if err := jobs.PutPending(context.Background(), &JobRecord{JobID: "job-1", OrgID: "org-1"}); err != nil {
		t.Fatal(err)
	}
	reg := prometheus.NewRegistry()
	worker := NewWorker(screeningService(), nil, jobs, logging.Default(), WithMetrics(metrics.NewDedupeMetrics(reg)))

	body := encodedJob(t, Job{
		ID:        "job-1",
		OrgID:     "org-1",
		RowOffset: 200,
		Options:   dedupe.DefaultOptions(),
		Rows: []leads.Lead{
			{FirstName: "Dup", PrimaryPhone: "(512) 555-0100"},
			{FirstName: "Fresh", PrimaryPhone: "2105550000"},
			{FirstName: "Twin", PrimaryPhone: "210-555-0000"},
		},
	})
	if err := worker.Process(context.Background(), body); err != nil {
		t.Fatalf("process: %v", err)
	}

	job, err := jobs.GetJob(context.Background(), "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != JobStatusCompleted {
		t.Fatalf("expected completed, got %s", job.Status)
	}
	if len(job.Flags) != 2 {
		t.Fatalf("expected 2 flags, got %#v", job.Flags)
	}
	if job.Flags[0].RowIndex != 200 || job.Flags[0].LeadID != "row-200" || job.Flags[0].DuplicateIDs[0] != "a" {
		t.Fatalf("unexpected first flag: %#v", job.Flags[0])
	}
	if job.Flags[1].RowIndex != 202 || job.Flags[1].DuplicateIDs[0] != "row-201" {
		t.Fatalf("unexpected second flag: %#v", job.Flags[1])
	}

	expected := `
# HELP landlead_dedupe_scan_jobs_total Import screening jobs by final status
# TYPE landlead_dedupe_scan_jobs_total counter
landlead_dedupe_scan_jobs_total{status="completed"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "landlead_dedupe_scan_jobs_total"); err != nil {
		t.Fatal(err)
	}
}

func TestWorker_ProcessMarksFailed(t *testing.T) {
	jobs := NewMemoryJobStore()
	_ = jobs.PutPending(context.Background(), &JobRecord{JobID: "job-1", OrgID: "org-1"})
	screener := &stubScreener{err: errors.New("db unavailable")}
	worker := NewWorker(screener, nil, jobs, logging.Default())

	err := worker.Process(context.Background(), encodedJob(t, Job{ID: "job-1", OrgID: "org-1", Rows: importRows(1)}))
	if err == nil {
		t.Fatal("expected error")
	}

	job, _ := jobs.GetJob(context.Background(), "job-1")
	if job.Status != JobStatusFailed || job.ErrorMessage != "db unavailable" {
		t.Fatalf("unexpected job: %#v", job)
	}
	if screener.recorded != 0 {
		t.Fatal("failed jobs must not be recorded as screened")
	}
}

func TestWorker_ProcessRejectsBadPayload(t *testing.T) {
	worker := NewWorker(&stubScreener{}, nil, NewMemoryJobStore(), logging.Default())
	if err := worker.Process(context.Background(), "not json"); err == nil {
		t.Fatal("expected decode error")
	}
	if err := worker.Process(context.Background(), `{"id":"job-1"}`); err == nil {
		t.Fatal("expected missing org error")
	}
}

func TestWorker_StartConsumesQueue(t *testing.T) {
	queue := NewMemoryQueue(8)
	jobs := NewMemoryJobStore()
	screener := &stubScreener{flags: []Flag{{RowIndex: 0, LeadID: "row-0", DuplicateIDs: []string{"a"}}}}
	publisher := NewPublisher(queue, jobs, 1, logging.Default())
	worker := NewWorker(screener, queue, jobs, logging.Default(), WithWorkerCount(2), WithReceiveWaitSeconds(1))

	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)

	result, err := publisher.Enqueue(ctx, "org-1", importRows(3), dedupe.DefaultOptions())
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for _, id := range result.JobIDs {
		for {
			job, err := jobs.GetJob(context.Background(), id)
			if err == nil && job.Status == JobStatusCompleted {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("job %s not completed in time", id)
			}
			time.Sleep(10 * time.Millisecond)
		}
	}

	cancel()
	worker.Wait()

	if got := screener.calls(); got != 3 {
		t.Fatalf("expected 3 screenings, got %d", got)
	}
	job, _ := jobs.GetJob(context.Background(), result.JobIDs[2])
	if job.Flags[0].RowIndex != 2 {
		t.Fatalf("expected flag offset applied, got %d", job.Flags[0].RowIndex)
	}
}

type stubScreener struct {
	mu       sync.Mutex
	flags    []Flag
	err      error
	screened int
	recorded int
}

func (s *stubScreener) ScreenImport(ctx context.Context, orgID string, rows []leads.Lead, opts dedupe.Options) ([]Flag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screened++
	if s.err != nil {
		return nil, s.err
	}
	return append([]Flag(nil), s.flags...), nil
}

func (s *stubScreener) RecordScreening(ctx context.Context, orgID, jobID string, flags int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorded++
}

func (s *stubScreener) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screened
}
