package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *Service) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Rule CRUD and lifecycle.
	r.Get("/rules", h.ListRules)
	r.Post("/rules", h.CreateRule)
	r.Get("/rules/{id}", h.GetRule)
	r.Put("/rules/{id}", h.UpdateRule)
	r.Delete("/rules/{id}", h.DeleteRule)
	r.Post("/rules/{id}/use", h.UseRule)
	r.Post("/rules/{id}/duplicate", h.DuplicateRule)
	r.Get("/rules/{id}/validate", h.ValidateRule)

	// Collection-level reads.
	r.Get("/stats", h.Stats)
	r.Get("/validate", h.ValidateAll)
	r.Get("/export", h.Export)
	r.Post("/import", h.Import)

	// Pathway operations (stateless; the snapshot travels in the body).
	r.Post("/pathways/convert", h.ConvertPathway)
	r.Post("/pathways/validate", h.ValidatePathway)
	r.Post("/pathways/layout", h.LayoutPathway)
	r.Post("/pathways/render", h.RenderPathway)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
