package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/radrebel/fedscout/internal/apperr"
	"github.com/radrebel/fedscout/internal/classify"
	"github.com/radrebel/fedscout/internal/export"
	"github.com/radrebel/fedscout/internal/models"
	"github.com/radrebel/fedscout/internal/opstate"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// statusForKind maps a classified error kind to an HTTP status.
func statusForKind(k classify.Kind) int {
	switch k {
	case classify.KindNoConnection:
		return http.StatusServiceUnavailable
	case classify.KindNetworkTimeout:
		return http.StatusGatewayTimeout
	case classify.KindRateLimited:
		return http.StatusTooManyRequests
	case classify.KindValidation:
		return http.StatusBadRequest
	case classify.KindUnauthorized, classify.KindServerError, classify.KindDecoding:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeClassified(w http.ResponseWriter, ce *classify.Error) {
	writeJSON(w, statusForKind(ce.Kind), errorBody(ce.Message()))
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("already exists"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("conflict"))
	default:
		slog.Error("store operation failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func criteriaFromQuery(r *http.Request) models.Criteria {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	return models.Criteria{
		Keyword:      q.Get("keyword"),
		Location:     q.Get("location"),
		RemoteOnly:   q.Get("remote") == "1" || q.Get("remote") == "true",
		FullTimeOnly: q.Get("fulltime") == "1" || q.Get("fulltime") == "true",
		Page:         page,
		PerPage:      perPage,
	}
}

// SearchJobs handles GET /api/jobs/search.
//
//	@Summary		Search job postings
//	@Tags			jobs
//	@Produce		json
//	@Param			keyword		query		string	false	"Keyword"
//	@Param			location	query		string	false	"Location name"
//	@Param			remote		query		bool	false	"Remote only"
//	@Param			fulltime	query		bool	false	"Full-time only"
//	@Param			page		query		int		false	"Page number"
//	@Param			per_page	query		int		false	"Page size"
//	@Success		200			{object}	SearchResponse
//	@Failure		400			{object}	errResponse
//	@Failure		503			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/jobs/search [get]
func (h *Handler) SearchJobs(w http.ResponseWriter, r *http.Request) {
	criteria := criteriaFromQuery(r)
	jobs, source, ce := h.svc.SearchJobs(r.Context(), criteria)
	if ce != nil {
		writeClassified(w, ce)
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	w.Header().Set("X-Fedscout-Source", source.String())
	writeJSON(w, http.StatusOK, SearchResponse{Jobs: jobs, Total: len(jobs), Source: source.String()})
}

// GetJob handles GET /api/jobs/{id}.
//
//	@Summary		Get a single job posting
//	@Tags			jobs
//	@Produce		json
//	@Param			id	path		string	true	"Job ID"
//	@Success		200	{object}	JobResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/jobs/{id} [get]
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	job, source, ce := h.svc.JobDetails(r.Context(), id)
	if ce != nil {
		if errors.Is(ce, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		writeClassified(w, ce)
		return
	}
	w.Header().Set("X-Fedscout-Source", source.String())
	writeJSON(w, http.StatusOK, JobResponse{Job: *job, Source: source.String()})
}

// LocalSearch handles GET /api/jobs/local-search.
//
//	@Summary		Search previously seen postings offline
//	@Tags			jobs
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	map[string][]models.Job
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/jobs/local-search [get]
func (h *Handler) LocalSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := h.svc.LocalSearch(q, limit)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			writeJSON(w, http.StatusNotImplemented, errorBody("local search not configured"))
			return
		}
		slog.Error("local search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// ToggleFavorite handles POST /api/favorites.
//
//	@Summary		Toggle a job bookmark
//	@Tags			favorites
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ToggleFavoriteRequest	true	"Job to toggle"
//	@Success		200		{object}	ToggleFavoriteResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/favorites [post]
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ToggleFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.JobID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("job_id is required"))
		return
	}
	fav := models.Favorite{
		JobID:        req.JobID,
		Title:        req.Title,
		Organization: req.Organization,
		Location:     req.Location,
		URL:          req.URL,
	}
	nowFavorite, ce := h.svc.ToggleFavorite(r.Context(), fav)
	if ce != nil {
		writeClassified(w, ce)
		return
	}
	writeJSON(w, http.StatusOK, ToggleFavoriteResponse{JobID: req.JobID, Favorite: nowFavorite})
}

// ListFavorites handles GET /api/favorites.
//
//	@Summary		List bookmarked jobs
//	@Tags			favorites
//	@Produce		json
//	@Success		200	{object}	map[string][]models.Favorite
//	@Security		BearerAuth
//	@Router			/favorites [get]
func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	favs, ce := h.svc.Favorites(r.Context())
	if ce != nil {
		writeClassified(w, ce)
		return
	}
	if favs == nil {
		favs = []models.Favorite{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"favorites": favs})
}

// ExportFavorite handles POST /api/favorites/{jobID}/export.
func (h *Handler) ExportFavorite(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	meta, err := h.svc.ExportFavorite(r.Context(), jobID)
	if err != nil {
		var ce *classify.Error
		switch {
		case errors.Is(err, ErrUnavailable):
			writeJSON(w, http.StatusNotImplemented, errorBody("export not configured"))
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.As(err, &ce):
			writeClassified(w, ce)
		default:
			slog.Error("export failed", slog.String("job_id", jobID), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, meta)
}

// ListExports handles GET /api/exports.
func (h *Handler) ListExports(w http.ResponseWriter, r *http.Request) {
	metas, err := h.svc.Exports()
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			writeJSON(w, http.StatusNotImplemented, errorBody("export not configured"))
			return
		}
		slog.Error("list exports failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if metas == nil {
		metas = []export.FileMeta{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"exports": metas})
}

// CreateSavedSearch handles POST /api/searches.
//
//	@Summary		Save a named search
//	@Tags			searches
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SavedSearchRequest	true	"Search to save"
//	@Success		201		{object}	models.SavedSearch
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/searches [post]
func (h *Handler) CreateSavedSearch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req SavedSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	search, ce := h.svc.CreateSavedSearch(r.Context(), req.Name, req.Criteria)
	if ce != nil {
		writeClassified(w, ce)
		return
	}
	writeJSON(w, http.StatusCreated, search)
}

// ListSavedSearches handles GET /api/searches.
func (h *Handler) ListSavedSearches(w http.ResponseWriter, r *http.Request) {
	searches, ce := h.svc.SavedSearches(r.Context())
	if ce != nil {
		writeClassified(w, ce)
		return
	}
	if searches == nil {
		searches = []models.SavedSearch{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"searches": searches})
}

// UpdateSavedSearch handles PUT /api/searches/{id}.
func (h *Handler) UpdateSavedSearch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id := chi.URLParam(r, "id")
	var req SavedSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	search, ce := h.svc.UpdateSavedSearch(r.Context(), id, req.Name, req.Criteria)
	if ce != nil {
		if errors.Is(ce, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		writeClassified(w, ce)
		return
	}
	writeJSON(w, http.StatusOK, search)
}

// DeleteSavedSearch handles DELETE /api/searches/{id}.
func (h *Handler) DeleteSavedSearch(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSavedSearch(chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetAlerts handles POST /api/searches/{id}/alerts.
//
//	@Summary		Enable or disable alerts for a saved search
//	@Tags			searches
//	@Accept			json
//	@Param			id		path	string				true	"Search ID"
//	@Param			body	body	SetAlertsRequest	true	"Alert toggle"
//	@Success		204		"Updated"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/searches/{id}/alerts [post]
func (h *Handler) SetAlerts(w http.ResponseWriter, r *http.Request) {
	var req SetAlertsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.SetAlerts(chi.URLParam(r, "id"), req.Enabled); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CheckSavedSearch handles POST /api/searches/{id}/check.
func (h *Handler) CheckSavedSearch(w http.ResponseWriter, r *http.Request) {
	intent, err := h.svc.CheckSavedSearchNow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		var ce *classify.Error
		if errors.As(err, &ce) {
			writeClassified(w, ce)
			return
		}
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"intent": intent})
}

// TrackApplication handles POST /api/applications.
func (h *Handler) TrackApplication(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req TrackApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	app, ce := h.svc.TrackApplication(r.Context(), models.Application{
		JobID:        req.JobID,
		Title:        req.Title,
		Organization: req.Organization,
		Status:       req.Status,
		Notes:        req.Notes,
	})
	if ce != nil {
		writeClassified(w, ce)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

// ListApplications handles GET /api/applications.
func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	apps, ce := h.svc.Applications(r.Context())
	if ce != nil {
		writeClassified(w, ce)
		return
	}
	if apps == nil {
		apps = []models.Application{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"applications": apps})
}

// UpdateApplication handles PATCH /api/applications/{id}.
func (h *Handler) UpdateApplication(w http.ResponseWriter, r *http.Request) {
	var req UpdateApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	var appliedAt time.Time
	if req.AppliedAt != nil {
		appliedAt = *req.AppliedAt
	}
	app, ce := h.svc.UpdateApplication(r.Context(), chi.URLParam(r, "id"), req.Status, req.Notes, appliedAt)
	if ce != nil {
		if errors.Is(ce, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		writeClassified(w, ce)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// DeleteApplication handles DELETE /api/applications/{id}.
func (h *Handler) DeleteApplication(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteApplication(chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Operations handles GET /api/operations.
//
//	@Summary		Snapshot of every operation slot
//	@Tags			operations
//	@Produce		json
//	@Success		200	{object}	OperationsResponse
//	@Security		BearerAuth
//	@Router			/operations [get]
func (h *Handler) Operations(w http.ResponseWriter, r *http.Request) {
	states := h.svc.States()
	out := OperationsResponse{
		AnyLoading:          states.AnyLoading(),
		HighPriorityLoading: states.HighPriorityLoading(),
		Summary:             states.Summary(),
	}
	if msg, ok := states.PrimaryLoadingMessage(); ok {
		out.PrimaryMessage = msg
	}
	for _, slot := range opstate.Slots() {
		out.Operations = append(out.Operations, operationState(slot, states.Get(slot)))
	}
	writeJSON(w, http.StatusOK, out)
}

// ClearOperationErrors handles POST /api/operations/clear-errors.
func (h *Handler) ClearOperationErrors(w http.ResponseWriter, r *http.Request) {
	h.svc.States().ClearAllErrors()
	w.WriteHeader(http.StatusNoContent)
}

// CancelOperation handles POST /api/operations/{slot}/cancel.
func (h *Handler) CancelOperation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "slot")
	for _, slot := range opstate.Slots() {
		if slot.String() == name {
			h.svc.CancelOperation(slot)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, errorBody("unknown operation slot"))
}

// ClearCache handles POST /api/cache/clear.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearCache(); err != nil {
		slog.Error("cache clear failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
