// Package compliance keeps the audit trail for changes to lead records.
package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditEventType represents the type of audited event.
type AuditEventType string

const (
	// EventLeadMerged is logged when duplicate leads are merged into a survivor.
	EventLeadMerged AuditEventType = "lead.merged"
	// EventDuplicatesFlagged is logged when an import screen flags duplicate rows.
	EventDuplicatesFlagged AuditEventType = "lead.duplicates_flagged"
	// EventDoNotContactPropagated is logged when a merge carries a do-not-contact
	// status onto a survivor that did not have it.
	EventDoNotContactPropagated AuditEventType = "compliance.do_not_contact_propagated"
)

// AuditEvent represents an immutable audit record.
type AuditEvent struct {
	ID        string          `json:"id"`
	EventType AuditEventType  `json:"event_type"`
	OrgID     string          `json:"org_id"`
	LeadID    string          `json:"lead_id,omitempty"`
	Actor     string          `json:"actor,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuditDetails contains event-specific details.
type AuditDetails struct {
	// For merges
	MergedIDs  []string `json:"merged_ids,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	Reasons    []string `json:"reasons,omitempty"`

	// For status propagation
	PreviousStatus string `json:"previous_status,omitempty"`
	ResultStatus   string `json:"result_status,omitempty"`

	// For import screening
	JobID     string `json:"job_id,omitempty"`
	FlagCount int    `json:"flag_count,omitempty"`
}

// AuditService handles audit logging.
type AuditService struct {
	db *sql.DB
}

// NewAuditService creates a new audit service.
func NewAuditService(db *sql.DB) *AuditService {
	if db == nil {
		panic("compliance: db cannot be nil")
	}
	return &AuditService{db: db}
}

// LogEvent records an audit event.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO lead_audit_events (
			id, event_type, org_id, lead_id, actor, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.OrgID,
		nullString(event.LeadID),
		nullString(event.Actor),
		[]byte(event.Details),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: failed to log audit event: %w", err)
	}

	return nil
}

// LogLeadMerged logs a completed merge of mergedIDs into primaryID.
func (s *AuditService) LogLeadMerged(ctx context.Context, orgID, primaryID, actor string, mergedIDs []string) error {
	detailsJSON, _ := json.Marshal(AuditDetails{MergedIDs: mergedIDs})

	return s.LogEvent(ctx, AuditEvent{
		EventType: EventLeadMerged,
		OrgID:     orgID,
		LeadID:    primaryID,
		Actor:     actor,
		Details:   detailsJSON,
	})
}

// LogDoNotContactPropagated logs that a merge moved the survivor to do_not_contact.
func (s *AuditService) LogDoNotContactPropagated(ctx context.Context, orgID, primaryID, actor, previousStatus string) error {
	detailsJSON, _ := json.Marshal(AuditDetails{
		PreviousStatus: previousStatus,
		ResultStatus:   "do_not_contact",
	})

	return s.LogEvent(ctx, AuditEvent{
		EventType: EventDoNotContactPropagated,
		OrgID:     orgID,
		LeadID:    primaryID,
		Actor:     actor,
		Details:   detailsJSON,
	})
}

// LogDuplicatesFlagged logs the outcome of an import screen.
func (s *AuditService) LogDuplicatesFlagged(ctx context.Context, orgID, jobID string, flagCount int) error {
	detailsJSON, _ := json.Marshal(AuditDetails{JobID: jobID, FlagCount: flagCount})

	return s.LogEvent(ctx, AuditEvent{
		EventType: EventDuplicatesFlagged,
		OrgID:     orgID,
		Actor:     "scan-worker",
		Details:   detailsJSON,
	})
}

// QueryEvents retrieves audit events with filters.
func (s *AuditService) QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `
		SELECT id, event_type, org_id, lead_id, actor, details, created_at
		FROM lead_audit_events
		WHERE org_id = $1
	`
	args := []interface{}{filter.OrgID}
	argIdx := 2

	if filter.LeadID != "" {
		query += fmt.Sprintf(" AND lead_id = $%d", argIdx)
		args = append(args, filter.LeadID)
		argIdx++
	}
	if filter.EventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, filter.EventType)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("compliance: failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var e AuditEvent
		var leadID, actor sql.NullString
		var details []byte
		if err := rows.Scan(&e.ID, &e.EventType, &e.OrgID, &leadID, &actor, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("compliance: failed to scan audit event: %w", err)
		}
		e.LeadID = leadID.String
		e.Actor = actor.String
		e.Details = details
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("compliance: failed to read audit events: %w", err)
	}

	return events, nil
}

// AuditFilter specifies criteria for querying audit events.
type AuditFilter struct {
	OrgID     string
	LeadID    string
	EventType AuditEventType
	StartTime time.Time
	EndTime   time.Time
	Limit     int
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
