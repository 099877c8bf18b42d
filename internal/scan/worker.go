package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wolfman30/landlead-crm/internal/dedupe"
	"github.com/wolfman30/landlead-crm/internal/leads"
	"github.com/wolfman30/landlead-crm/internal/observability/metrics"
	"github.com/wolfman30/landlead-crm/pkg/logging"
)

// Screener checks import rows against stored leads.
// *resolution.Service satisfies it.
type Screener interface {
	ScreenImport(ctx context.Context, orgID string, rows []leads.Lead, opts dedupe.Options) ([]Flag, error)
	RecordScreening(ctx context.Context, orgID, jobID string, flags int)
}

const (
	defaultWorkerCount   = 2
	defaultWaitSeconds   = 2
	defaultReceiveBatch  = 5
	maxWaitSeconds       = 20
	maxReceiveBatchSize  = 10
	deleteTimeoutSeconds = 5
)

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
	metrics          *metrics.DedupeMetrics
}

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of concurrent consumer goroutines.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the SQS long-poll wait duration.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxWaitSeconds {
			seconds = maxWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize sets how many messages to fetch per poll.
func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchSize {
			size = maxReceiveBatchSize
		}
		cfg.receiveBatchSize = size
	}
}

// WithMetrics records job outcomes.
func WithMetrics(m *metrics.DedupeMetrics) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.metrics = m
	}
}

// Worker consumes screening jobs from the queue.
type Worker struct {
	screener Screener
	queue    Queue
	jobs     JobUpdater
	logger   *logging.Logger

	cfg workerConfig
	wg  sync.WaitGroup
}

// NewWorker builds a worker. queue may be nil when jobs arrive through Process
// only, as they do under Lambda.
func NewWorker(screener Screener, queue Queue, jobs JobUpdater, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if screener == nil {
		panic("scan: screener cannot be nil")
	}
	if jobs == nil {
		panic("scan: job store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultReceiveBatch,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Worker{
		screener: screener,
		queue:    queue,
		jobs:     jobs,
		logger:   logger,
		cfg:      cfg,
	}
}

// Start launches the consumer goroutines. They exit when ctx is canceled.
func (w *Worker) Start(ctx context.Context) {
	if w.queue == nil {
		panic("scan: worker started without a queue")
	}
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("scan worker started", "worker_id", workerID)

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("scan worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			w.logger.Error("failed to receive scan jobs", "error", err, "worker_id", workerID)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			if err := w.Process(ctx, msg.Body); err != nil {
				w.logger.Warn("scan job failed", "error", err, "msg_id", msg.ID, "worker_id", workerID)
			}
			w.deleteMessage(msg.ReceiptHandle)
		}
	}
}

// Process screens one encoded job and records its outcome. Undecodable bodies
// are dropped with an error.
func (w *Worker) Process(ctx context.Context, body string) error {
	job, err := decodeJob(body)
	if err != nil {
		w.cfg.metrics.ObserveScanJob("invalid")
		return err
	}

	w.logger.Info("worker processing scan job", "job_id", job.ID, "org_id", job.OrgID, "rows", len(job.Rows))

	rows := make([]leads.Lead, len(job.Rows))
	copy(rows, job.Rows)
	for i := range rows {
		rows[i].OrgID = job.OrgID
		if rows[i].ID == "" {
			rows[i].ID = fmt.Sprintf("row-%d", job.RowOffset+i)
		}
	}

	flags, err := w.screener.ScreenImport(ctx, job.OrgID, rows, job.Options)
	if err != nil {
		w.cfg.metrics.ObserveScanJob("failed")
		if storeErr := w.jobs.MarkFailed(ctx, job.ID, err.Error()); storeErr != nil {
			w.logger.Error("failed to update job status", "error", storeErr, "job_id", job.ID)
		}
		return fmt.Errorf("scan: screen job %s: %w", job.ID, err)
	}
	for i := range flags {
		flags[i].RowIndex += job.RowOffset
	}

	if err := w.jobs.MarkCompleted(ctx, job.ID, flags); err != nil {
		w.cfg.metrics.ObserveScanJob("failed")
		return fmt.Errorf("scan: complete job %s: %w", job.ID, err)
	}
	w.cfg.metrics.ObserveScanJob("completed")
	w.screener.RecordScreening(ctx, job.OrgID, job.ID, len(flags))
	w.logger.Info("scan job completed", "job_id", job.ID, "org_id", job.OrgID, "flags", len(flags))
	return nil
}

func (w *Worker) deleteMessage(receiptHandle string) {
	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeoutSeconds*time.Second)
	defer cancel()
	if err := w.queue.Delete(ctx, receiptHandle); err != nil {
		w.logger.Error("failed to delete scan job message", "error", err)
	}
}
