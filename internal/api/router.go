package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Job search and details.
	r.Get("/jobs/search", h.SearchJobs)
	r.Get("/jobs/local-search", h.LocalSearch)
	r.Get("/jobs/{id}", h.GetJob)

	// Favorites.
	r.Get("/favorites", h.ListFavorites)
	r.Post("/favorites", h.ToggleFavorite)
	r.Post("/favorites/{jobID}/export", h.ExportFavorite)
	r.Get("/exports", h.ListExports)

	// Saved searches and alerts.
	r.Get("/searches", h.ListSavedSearches)
	r.Post("/searches", h.CreateSavedSearch)
	r.Put("/searches/{id}", h.UpdateSavedSearch)
	r.Delete("/searches/{id}", h.DeleteSavedSearch)
	r.Post("/searches/{id}/alerts", h.SetAlerts)
	r.Post("/searches/{id}/check", h.CheckSavedSearch)

	// Application tracking.
	r.Get("/applications", h.ListApplications)
	r.Post("/applications", h.TrackApplication)
	r.Patch("/applications/{id}", h.UpdateApplication)
	r.Delete("/applications/{id}", h.DeleteApplication)

	// Operations dashboard.
	r.Get("/operations", h.Operations)
	r.Post("/operations/clear-errors", h.ClearOperationErrors)
	r.Post("/operations/{slot}/cancel", h.CancelOperation)

	// Cache maintenance.
	r.Post("/cache/clear", h.ClearCache)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
