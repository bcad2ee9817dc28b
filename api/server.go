/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/properties/*     Property setup, expenses, calculations, exports
  /api/tenants/*        Meter readings
  /api/tariff/*         Bill preview

SECURITY NOTE:
  No authentication middleware. This runs on a landlord's own machine or
  a private network, and the data is a single household's.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Property routes
		r.Route("/properties", func(r chi.Router) {
			r.Get("/", h.ListProperties)
			r.Post("/", h.SaveProperty)
			r.Get("/{id}", h.GetProperty)
			r.Get("/{id}/units", h.ListUnits)
			r.Post("/{id}/units", h.SaveUnit)
			r.Get("/{id}/tenants", h.ListTenants)
			r.Post("/{id}/tenants", h.SaveTenant)
			r.Get("/{id}/expenses", h.ListExpenses)
			r.Post("/{id}/expenses", h.SaveExpense)
			r.Post("/{id}/calculate", h.Calculate)
			r.Get("/{id}/results", h.ListResults)
			r.Get("/{id}/results/{year}/{month}/export", h.ExportResult)
		})

		// Tenant routes
		r.Route("/tenants", func(r chi.Router) {
			r.Post("/{id}/readings", h.SaveReading)
		})

		// Tariff routes
		r.Route("/tariff", func(r chi.Router) {
			r.Get("/preview", h.PreviewBill)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Tenancy Billing</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Tenancy Billing API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/properties">/api/properties</a> - List properties</li>
<li><a href="/api/tariff/preview?kwh=680">/api/tariff/preview?kwh=680</a> - Preview a bill</li>
</ul>
</body>
</html>`))
	})

	return r
}
