package main

import (
	"net/http"

	"github.com/crucial707/hci-inventory/internal/config"
	"github.com/crucial707/hci-inventory/internal/handlers"
	"github.com/crucial707/hci-inventory/internal/inventory"
	"github.com/crucial707/hci-inventory/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newRouter wires the inventory API over store. Everything under /api needs a
// bearer token signed with cfg.JWTSecret.
func newRouter(store inventory.Store, cfg config.Config) http.Handler {
	h := &handlers.InventoryHandler{
		Service:           inventory.NewService(store),
		DefaultImportMode: inventory.ImportMode(cfg.ImportMode),
		MaxUploadBytes:    cfg.UploadMaxBytes,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLog)
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.TLSCertFile != ""))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/inventory", func(r chi.Router) {
		r.Use(middleware.PerMinuteRateLimiter(cfg.RateLimitPerMinute).Middleware)
		r.Use(middleware.JWTMiddleware([]byte(cfg.JWTSecret)))

		r.Get("/", h.List)
		r.Get("/export", h.Export)
		r.Get("/sample", h.Sample)
		r.Get("/{id}", h.Get)

		// JSON bodies; the import route sizes its own limit from MaxUploadBytes.
		r.Group(func(r chi.Router) {
			r.Use(middleware.MaxBytes(middleware.DefaultMaxBodyBytes))
			r.Post("/", h.Create)
			r.Post("/bulk-delete", h.BulkDelete)
			r.Put("/{id}", h.Update)
			r.Patch("/{id}", h.Patch)
		})
		r.Post("/import", h.Import)
		r.Delete("/{id}", h.Delete)
	})

	return r
}
