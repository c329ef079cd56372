package api

import (
	"time"

	"github.com/radrebel/fedscout/internal/models"
	"github.com/radrebel/fedscout/internal/opstate"
)

// SearchRequest mirrors the supported query parameters of GET /jobs/search.
type SearchRequest struct {
	Keyword  string `json:"keyword" example:"software engineer"`
	Location string `json:"location" example:"Denver, CO"`
	Remote   bool   `json:"remote"`
	FullTime bool   `json:"full_time"`
	Page     int    `json:"page" example:"1"`
	PerPage  int    `json:"per_page" example:"25"`
}

// SearchResponse wraps a job search result with its provenance.
type SearchResponse struct {
	Jobs   []models.Job `json:"jobs" validate:"required"`
	Total  int          `json:"total" example:"25" validate:"required"`
	Source string       `json:"source" example:"network" validate:"required"`
}

// JobResponse wraps one posting with its provenance.
type JobResponse struct {
	Job    models.Job `json:"job" validate:"required"`
	Source string     `json:"source" example:"cache" validate:"required"`
}

// ToggleFavoriteRequest is the body for POST /favorites.
type ToggleFavoriteRequest struct {
	JobID        string `json:"job_id" example:"ABC-123" validate:"required"`
	Title        string `json:"title" example:"IT Specialist"`
	Organization string `json:"organization" example:"Department of the Interior"`
	Location     string `json:"location" example:"Washington, DC"`
	URL          string `json:"url"`
}

// ToggleFavoriteResponse reports the bookmark state after the toggle.
type ToggleFavoriteResponse struct {
	JobID    string `json:"job_id" validate:"required"`
	Favorite bool   `json:"favorite" validate:"required"`
}

// SavedSearchRequest is the body for creating or updating a saved search.
type SavedSearchRequest struct {
	Name     string          `json:"name" example:"Remote GS-13" validate:"required"`
	Criteria models.Criteria `json:"criteria" validate:"required"`
}

// SetAlertsRequest is the body for POST /searches/{id}/alerts.
type SetAlertsRequest struct {
	Enabled bool `json:"enabled" validate:"required"`
}

// TrackApplicationRequest is the body for POST /applications.
type TrackApplicationRequest struct {
	JobID        string `json:"job_id" example:"ABC-123" validate:"required"`
	Title        string `json:"title" example:"IT Specialist"`
	Organization string `json:"organization" example:"Department of State"`
	Status       string `json:"status" example:"saved"`
	Notes        string `json:"notes"`
}

// UpdateApplicationRequest is the body for PATCH /applications/{id}.
type UpdateApplicationRequest struct {
	Status    string     `json:"status" example:"applied" validate:"required"`
	Notes     string     `json:"notes"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

// OperationState is one slot's entry in the operations dashboard.
type OperationState struct {
	Slot     string          `json:"slot" example:"search_jobs" validate:"required"`
	Display  string          `json:"display" example:"Searching jobs" validate:"required"`
	Priority string          `json:"priority" example:"critical" validate:"required"`
	Phase    string          `json:"phase" example:"loading" validate:"required"`
	Progress *float64        `json:"progress,omitempty"`
	Error    *OperationError `json:"error,omitempty"`
}

// OperationError describes a failed slot.
type OperationError struct {
	Kind    string `json:"kind" example:"network_timeout" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// OperationsResponse is the full dashboard snapshot.
type OperationsResponse struct {
	Operations          []OperationState `json:"operations" validate:"required"`
	AnyLoading          bool             `json:"any_loading" validate:"required"`
	HighPriorityLoading bool             `json:"high_priority_loading" validate:"required"`
	PrimaryMessage      string           `json:"primary_message,omitempty"`
	Summary             string           `json:"summary" validate:"required"`
}

func operationState(slot opstate.Slot, st opstate.State) OperationState {
	out := OperationState{
		Slot:     slot.String(),
		Display:  slot.DisplayName(),
		Priority: slot.Priority().String(),
		Phase:    st.Phase.String(),
	}
	if st.HasProgress {
		p := st.Progress
		out.Progress = &p
	}
	if st.Err != nil {
		out.Error = &OperationError{Kind: st.Err.Kind.String(), Message: st.Err.Message()}
	}
	return out
}
