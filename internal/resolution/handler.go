package resolution

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/wolfman30/landlead-crm/internal/dedupe"
	"github.com/wolfman30/landlead-crm/internal/leads"
	"github.com/wolfman30/landlead-crm/internal/tenancy"
	"github.com/wolfman30/landlead-crm/pkg/logging"
)

// Handler serves the duplicate detection and merge endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("resolution: service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// CheckRequest is the body of POST /leads/duplicates/check.
type CheckRequest struct {
	Lead    leads.Lead      `json:"lead"`
	Options *dedupe.Options `json:"options,omitempty"`
}

// CheckResponse reports whether the candidate duplicates stored leads.
type CheckResponse struct {
	Duplicate bool                   `json:"duplicate"`
	Match     *dedupe.DuplicateMatch `json:"match,omitempty"`
}

// GroupsResponse lists the org's duplicate groups.
type GroupsResponse struct {
	Groups []dedupe.DuplicateMatch `json:"groups"`
	Count  int                     `json:"count"`
}

// IDsRequest names a set of leads to rank or merge.
type IDsRequest struct {
	IDs []string `json:"ids"`
}

// PrimaryResponse is the suggested primary plus the full ranking.
type PrimaryResponse struct {
	Primary leads.Lead          `json:"primary"`
	Ranking []dedupe.RankedLead `json:"ranking"`
}

// CheckLead handles POST /leads/duplicates/check.
func (h *Handler) CheckLead(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	opts := dedupe.DefaultOptions()
	if req.Options != nil {
		opts = *req.Options
	}

	match, err := h.service.CheckLead(r.Context(), orgID, req.Lead, opts)
	if err != nil {
		h.writeError(w, err, orgID)
		return
	}
	writeJSON(w, http.StatusOK, CheckResponse{Duplicate: match != nil, Match: match})
}

// ListDuplicates handles GET /leads/duplicates.
func (h *Handler) ListDuplicates(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return
	}
	opts, err := optionsFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	groups, err := h.service.FindDuplicates(r.Context(), orgID, opts)
	if err != nil {
		h.writeError(w, err, orgID)
		return
	}
	if groups == nil {
		groups = []dedupe.DuplicateMatch{}
	}
	writeJSON(w, http.StatusOK, GroupsResponse{Groups: groups, Count: len(groups)})
}

// SuggestPrimary handles POST /leads/primary.
func (h *Handler) SuggestPrimary(w http.ResponseWriter, r *http.Request) {
	orgID, ids, ok := h.decodeIDs(w, r)
	if !ok {
		return
	}
	ranked, err := h.service.RankLeads(r.Context(), orgID, ids)
	if err != nil {
		h.writeError(w, err, orgID)
		return
	}
	writeJSON(w, http.StatusOK, PrimaryResponse{Primary: ranked[0].Lead, Ranking: ranked})
}

// MergePreview handles POST /leads/merge/preview.
func (h *Handler) MergePreview(w http.ResponseWriter, r *http.Request) {
	orgID, ids, ok := h.decodeIDs(w, r)
	if !ok {
		return
	}
	merged, err := h.service.MergePreview(r.Context(), orgID, ids)
	if err != nil {
		h.writeError(w, err, orgID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"merged": merged})
}

// Merge handles POST /leads/merge.
func (h *Handler) Merge(w http.ResponseWriter, r *http.Request) {
	orgID, ids, ok := h.decodeIDs(w, r)
	if !ok {
		return
	}
	result, err := h.service.Merge(r.Context(), orgID, ids)
	if err != nil {
		h.writeError(w, err, orgID)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) decodeIDs(w http.ResponseWriter, r *http.Request) (string, []string, bool) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return "", nil, false
	}
	var req IDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return "", nil, false
	}
	return orgID, req.IDs, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, orgID string) {
	switch {
	case errors.Is(err, dedupe.ErrEmptyInput), errors.Is(err, ErrTooFewLeads):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, leads.ErrLeadNotFound):
		http.Error(w, "lead not found", http.StatusNotFound)
	default:
		h.logger.Error("resolution request failed", "error", err, "org_id", orgID)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func optionsFromQuery(r *http.Request) (dedupe.Options, error) {
	opts := dedupe.DefaultOptions()
	q := r.URL.Query()
	flags := []struct {
		name string
		dst  *bool
	}{
		{"phone", &opts.EnablePhoneMatch},
		{"email", &opts.EnableEmailMatch},
		{"name_address", &opts.EnableNameAddressMatch},
		{"strict", &opts.StrictMode},
	}
	for _, f := range flags {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, errors.New("invalid boolean for " + f.name)
		}
		*f.dst = v
	}
	return opts, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
