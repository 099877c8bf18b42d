package leads

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/landlead-crm/internal/tenancy"
	"github.com/wolfman30/landlead-crm/pkg/logging"
)

func withOrg(req *http.Request, orgID string) *http.Request {
	return req.WithContext(tenancy.WithOrgID(req.Context(), orgID))
}

func TestCreateLead_Success(t *testing.T) {
	repo := NewInMemoryRepository()
	handler := NewHandler(repo, logging.Default())

	body, _ := json.Marshal(map[string]any{
		"first_name":    "Ann",
		"last_name":     "Lee",
		"primary_phone": "512-555-0100",
		"email":         "ann@ranch.com",
		"tags":          []string{"texas"},
	})
	req := withOrg(httptest.NewRequest(http.MethodPost, "/v1/leads", bytes.NewReader(body)), "org-1")
	w := httptest.NewRecorder()

	handler.CreateLead(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	var lead Lead
	if err := json.NewDecoder(w.Body).Decode(&lead); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if lead.OrgID != "org-1" || lead.Status != StatusNew {
		t.Errorf("unexpected lead %+v", lead)
	}
}

func TestCreateLead_InvalidRequest(t *testing.T) {
	handler := NewHandler(NewInMemoryRepository(), logging.Default())

	body, _ := json.Marshal(map[string]any{"first_name": "Ann", "primary_phone": "555"})
	req := withOrg(httptest.NewRequest(http.MethodPost, "/v1/leads", bytes.NewReader(body)), "org-1")
	w := httptest.NewRecorder()

	handler.CreateLead(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestCreateLead_MissingOrg(t *testing.T) {
	handler := NewHandler(NewInMemoryRepository(), logging.Default())
	req := httptest.NewRequest(http.MethodPost, "/v1/leads", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()

	handler.CreateLead(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestGetLead(t *testing.T) {
	repo := NewInMemoryRepository()
	repo.Seed(Lead{ID: "lead-1", OrgID: "org-1", FirstName: "Ann"})
	handler := NewHandler(repo, logging.Default())

	r := chi.NewRouter()
	r.Get("/v1/leads/{leadID}", handler.GetLead)

	req := withOrg(httptest.NewRequest(http.MethodGet, "/v1/leads/lead-1", nil), "org-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	req = withOrg(httptest.NewRequest(http.MethodGet, "/v1/leads/lead-1", nil), "org-2")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for other org, got %d", w.Code)
	}
}

func TestListLeads(t *testing.T) {
	repo := NewInMemoryRepository()
	repo.Seed(
		Lead{ID: "a", OrgID: "org-1", Status: StatusNew},
		Lead{ID: "b", OrgID: "org-1", Status: StatusContacted},
	)
	handler := NewHandler(repo, logging.Default())

	req := withOrg(httptest.NewRequest(http.MethodGet, "/v1/leads?limit=1", nil), "org-1")
	w := httptest.NewRecorder()
	handler.ListLeads(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp ListLeadsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Limit != 1 || resp.Leads[0].ID != "a" {
		t.Fatalf("unexpected response %+v", resp)
	}

	req = withOrg(httptest.NewRequest(http.MethodGet, "/v1/leads?status=archived", nil), "org-1")
	w = httptest.NewRecorder()
	handler.ListLeads(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad status, got %d", w.Code)
	}
}

func TestNewHandlerPanicsWithoutRepo(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	NewHandler(nil, nil)
}
