package scan

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wolfman30/landlead-crm/internal/dedupe"
	"github.com/wolfman30/landlead-crm/internal/leads"
	"github.com/wolfman30/landlead-crm/pkg/logging"
)

const defaultBatchSize = 200

// Publisher splits imports into batches and enqueues one screening job per batch.
type Publisher struct {
	queue     Queue
	jobs      JobRecorder
	batchSize int
	logger    *logging.Logger
}

// NewPublisher creates a queue-backed publisher. A non-positive batchSize uses 200.
func NewPublisher(queue Queue, jobs JobRecorder, batchSize int, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("scan: queue cannot be nil")
	}
	if jobs == nil {
		panic("scan: job store cannot be nil")
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		queue:     queue,
		jobs:      jobs,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Enqueued describes the jobs created for one import.
type Enqueued struct {
	ImportID string   `json:"import_id"`
	JobIDs   []string `json:"job_ids"`
}

// Enqueue records a pending job per batch of rows and publishes it.
func (p *Publisher) Enqueue(ctx context.Context, orgID string, rows []leads.Lead, opts dedupe.Options) (*Enqueued, error) {
	if orgID == "" {
		return nil, leads.ErrMissingOrgID
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	result := &Enqueued{ImportID: uuid.NewString()}
	for offset := 0; offset < len(rows); offset += p.batchSize {
		end := min(offset+p.batchSize, len(rows))
		job := Job{
			OrgID:     orgID,
			RowOffset: offset,
			Rows:      rows[offset:end],
			Options:   opts,
		}
		job, body, err := encodeJob(job)
		if err != nil {
			return nil, err
		}

		record := &JobRecord{
			JobID:     job.ID,
			OrgID:     orgID,
			ImportID:  result.ImportID,
			RowOffset: offset,
			RowCount:  end - offset,
		}
		if err := p.jobs.PutPending(ctx, record); err != nil {
			return nil, fmt.Errorf("scan: failed to record job: %w", err)
		}
		if err := p.queue.Send(ctx, body); err != nil {
			return nil, fmt.Errorf("scan: failed to enqueue job: %w", err)
		}
		result.JobIDs = append(result.JobIDs, job.ID)
		p.logger.Debug("scan job enqueued", "job_id", job.ID, "org_id", orgID, "rows", end-offset)
	}

	p.logger.Info("import queued for screening", "import_id", result.ImportID, "org_id", orgID, "rows", len(rows), "jobs", len(result.JobIDs))
	return result, nil
}
