package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wolfman30/landlead-crm/internal/tenancy"
)

func TestRequireOrgIDPassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID, ok := tenancy.OrgIDFromContext(r.Context())
		if !ok || orgID != "org-abc" {
			t.Fatalf("expected org id propagated, got %s / %v", orgID, ok)
		}
		if actor := tenancy.ActorFromContext(r.Context()); actor != "importer" {
			t.Fatalf("expected actor from header, got %q", actor)
		}
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(orgHeader, " org-abc ")
	req.Header.Set(actorHeader, "importer")
	rr := httptest.NewRecorder()
	requireOrgID(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected downstream status, got %d", rr.Code)
	}
}

func TestRequireOrgIDRejects(t *testing.T) {
	handler := requireOrgID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler must not run")
	}))
	for _, org := range []string{"", "   ", "org/../other", "-leading-dash"} {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		if org != "" {
			req.Header.Set(orgHeader, org)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for org %q, got %d", org, rr.Code)
		}
	}
}
