package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups every HTTP handler the CRM API mounts.
type Handlers struct {
	Customers   *CustomerHandler
	Segments    *SegmentHandler
	Campaigns   *CampaignHandler
	Receipts    *ReceiptHandler
	Suggestions *SuggestionHandler
	Auth        *AuthHandler
}

// Middleware is a chi-compatible middleware constructor.
type Middleware func(next http.Handler) http.Handler

// NewRouter builds the public API. authMW guards the /api/v1 resources and may be nil when
// authentication is disabled; vendorKeyMW guards the receipt webhook.
func NewRouter(h Handlers, authMW, vendorKeyMW Middleware) chi.Router {
	r := chi.NewRouter()
	r.Use(chi_middleware.RequestID)
	r.Use(chi_middleware.RealIP)
	r.Use(chi_middleware.Recoverer)
	r.Use(PrometheusMetricsMiddleware)
	r.Use(chi_middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "CRM service is healthy"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// Vendor callbacks are authenticated by API key, not by user token.
	r.Group(func(vendor chi.Router) {
		if vendorKeyMW != nil {
			vendor.Use(vendorKeyMW)
		}
		h.Receipts.RegisterRoutes(vendor)
	})

	r.Group(func(protected chi.Router) {
		if authMW != nil {
			protected.Use(authMW)
		}
		protected.Route("/auth", h.Auth.RegisterRoutes)
		protected.Route("/api/v1", func(v1 chi.Router) {
			h.Customers.RegisterRoutes(v1)
			h.Segments.RegisterRoutes(v1)
			h.Campaigns.RegisterRoutes(v1)
			h.Suggestions.RegisterRoutes(v1)
		})
	})

	return r
}
