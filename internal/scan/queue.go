// Package scan screens bulk lead imports for duplicates asynchronously.
package scan

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/wolfman30/landlead-crm/internal/dedupe"
	"github.com/wolfman30/landlead-crm/internal/leads"
	"github.com/wolfman30/landlead-crm/internal/resolution"
)

// Queue is the transport for screening jobs: SQSQueue or MemoryQueue.
type Queue interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// Flag is one duplicate finding for an import row.
type Flag = resolution.ImportFlag

// Job is the queued unit of work: one batch of an import.
type Job struct {
	ID        string         `json:"id"`
	OrgID     string         `json:"org_id"`
	RowOffset int            `json:"row_offset"`
	Rows      []leads.Lead   `json:"rows"`
	Options   dedupe.Options `json:"options"`
}

func encodeJob(job Job) (Job, string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	body, err := json.Marshal(job)
	if err != nil {
		return Job{}, "", fmt.Errorf("scan: failed to encode job: %w", err)
	}

	return job, string(body), nil
}

func decodeJob(body string) (Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	if job.ID == "" || job.OrgID == "" {
		return Job{}, fmt.Errorf("%w: missing id or org", ErrInvalidJob)
	}
	return job, nil
}
