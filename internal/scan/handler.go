package scan

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/landlead-crm/internal/dedupe"
	"github.com/wolfman30/landlead-crm/internal/leads"
	"github.com/wolfman30/landlead-crm/internal/tenancy"
	"github.com/wolfman30/landlead-crm/pkg/logging"
)

const maxImportRows = 10000

type enqueuer interface {
	Enqueue(ctx context.Context, orgID string, rows []leads.Lead, opts dedupe.Options) (*Enqueued, error)
}

// Handler exposes import screening over HTTP.
type Handler struct {
	publisher enqueuer
	jobs      JobRecorder
	logger    *logging.Logger
}

func NewHandler(publisher enqueuer, jobs JobRecorder, logger *logging.Logger) *Handler {
	if publisher == nil {
		panic("scan: publisher cannot be nil")
	}
	if jobs == nil {
		panic("scan: job store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{publisher: publisher, jobs: jobs, logger: logger}
}

// ScanRequest is the body of POST /scans.
type ScanRequest struct {
	Rows    []leads.Lead    `json:"rows"`
	Options *dedupe.Options `json:"options,omitempty"`
}

// CreateScan handles POST /scans.
func (h *Handler) CreateScan(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Rows) > maxImportRows {
		http.Error(w, "too many rows", http.StatusRequestEntityTooLarge)
		return
	}
	opts := dedupe.DefaultOptions()
	if req.Options != nil {
		opts = *req.Options
	}

	result, err := h.publisher.Enqueue(r.Context(), orgID, req.Rows, opts)
	if err != nil {
		if errors.Is(err, ErrNoRows) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to enqueue scan", "error", err, "org_id", orgID)
		http.Error(w, "failed to enqueue scan", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

// GetScan handles GET /scans/{jobID}. Jobs of other orgs read as missing.
func (h *Handler) GetScan(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		http.Error(w, "missing job id", http.StatusBadRequest)
		return
	}

	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil && !errors.Is(err, ErrJobNotFound) {
		h.logger.Error("failed to load scan job", "error", err, "job_id", jobID)
		http.Error(w, "failed to load job", http.StatusInternalServerError)
		return
	}
	if job == nil || job.OrgID != orgID {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	if job.Flags == nil {
		job.Flags = []Flag{}
	}
	writeJSON(w, http.StatusOK, job)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
