package router

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/wolfman30/landlead-crm/internal/tenancy"
)

const (
	orgHeader   = "X-Org-Id"
	actorHeader = "X-Actor"
)

var orgIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// requireOrgID scopes every API request to the org named in X-Org-Id.
// X-Actor, when present, names the caller in audit records; an admin token
// subject overrides it.
func requireOrgID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID := strings.TrimSpace(r.Header.Get(orgHeader))
		if orgID == "" {
			http.Error(w, "missing X-Org-Id", http.StatusBadRequest)
			return
		}
		if !orgIDPattern.MatchString(orgID) {
			http.Error(w, "invalid X-Org-Id", http.StatusBadRequest)
			return
		}
		ctx := tenancy.WithOrgID(r.Context(), orgID)
		if actor := strings.TrimSpace(r.Header.Get(actorHeader)); actor != "" {
			ctx = tenancy.WithActor(ctx, actor)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
