package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/landlead-crm/internal/http/middleware"
	"github.com/wolfman30/landlead-crm/internal/leads"
	"github.com/wolfman30/landlead-crm/internal/resolution"
	"github.com/wolfman30/landlead-crm/internal/scan"
	"github.com/wolfman30/landlead-crm/pkg/logging"
)

// ReadinessCheck reports whether a backing dependency is reachable.
type ReadinessCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	LeadsHandler       *leads.Handler
	ResolutionHandler  *resolution.Handler
	ScanHandler        *scan.Handler
	ScanRateLimiter    *httpmiddleware.RateLimiter
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Optional dependency probes for /ready, keyed by name.
	ReadinessChecks map[string]ReadinessCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	if cfg.LeadsHandler == nil || cfg.ResolutionHandler == nil {
		panic("router: leads and resolution handlers are required")
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		public.Get("/ready", readinessCheck(cfg.ReadinessChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(requireOrgID)

		v1.Route("/leads", func(r chi.Router) {
			r.Post("/", cfg.LeadsHandler.CreateLead)
			r.Get("/", cfg.LeadsHandler.ListLeads)

			r.Get("/duplicates", cfg.ResolutionHandler.ListDuplicates)
			r.Post("/duplicates/check", cfg.ResolutionHandler.CheckLead)
			r.Post("/primary", cfg.ResolutionHandler.SuggestPrimary)
			r.Post("/merge/preview", cfg.ResolutionHandler.MergePreview)
			r.Group(func(merge chi.Router) {
				if cfg.AdminAuthSecret != "" {
					merge.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
				}
				merge.Post("/merge", cfg.ResolutionHandler.Merge)
			})

			r.Get("/{leadID}", cfg.LeadsHandler.GetLead)
		})

		if cfg.ScanHandler != nil {
			v1.Route("/scans", func(r chi.Router) {
				if cfg.ScanRateLimiter != nil {
					r.With(httpmiddleware.OrgRateLimit(cfg.ScanRateLimiter)).Post("/", cfg.ScanHandler.CreateScan)
				} else {
					r.Post("/", cfg.ScanHandler.CreateScan)
				}
				r.Get("/{jobID}", cfg.ScanHandler.GetScan)
			})
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func readinessCheck(checks map[string]ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		writeJSON(w, status, map[string]any{"ready": status == http.StatusOK, "checks": results})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
