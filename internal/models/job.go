// Package models defines the domain types for fedscout.
package models

import (
	"net/url"
	"strconv"
	"time"
)

// Job represents a single job posting fetched from the remote API.
type Job struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Organization string    `json:"organization"`
	Department   string    `json:"department,omitempty"`
	Location     string    `json:"location"`
	SalaryMin    float64   `json:"salary_min,omitempty"`
	SalaryMax    float64   `json:"salary_max,omitempty"`
	URL          string    `json:"url"`
	PostedAt     time.Time `json:"posted_at"`
	ClosesAt     time.Time `json:"closes_at,omitempty"`
}

// Criteria describes a re-submittable job search.
type Criteria struct {
	Keyword      string `json:"keyword,omitempty"`
	Location     string `json:"location,omitempty"`
	RemoteOnly   bool   `json:"remote_only,omitempty"`
	FullTimeOnly bool   `json:"full_time_only,omitempty"`
	Page         int    `json:"page,omitempty"`
	PerPage      int    `json:"per_page,omitempty"`
}

// CacheKey returns a stable key identifying this search for the offline cache.
func (c Criteria) CacheKey() string {
	v := url.Values{}
	if c.Keyword != "" {
		v.Set("keyword", c.Keyword)
	}
	if c.Location != "" {
		v.Set("location", c.Location)
	}
	if c.RemoteOnly {
		v.Set("remote", "1")
	}
	if c.FullTimeOnly {
		v.Set("fulltime", "1")
	}
	if c.Page > 0 {
		v.Set("page", strconv.Itoa(c.Page))
	}
	if c.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(c.PerPage))
	}
	return "search?" + v.Encode()
}

// Favorite is a job the user has bookmarked.
type Favorite struct {
	JobID        string    `json:"job_id"`
	Title        string    `json:"title"`
	Organization string    `json:"organization"`
	Location     string    `json:"location"`
	URL          string    `json:"url"`
	PostedAt     time.Time `json:"posted_at"`
	SavedAt      time.Time `json:"saved_at"`
}

// SavedSearch is a persisted search with an alert watermark.
type SavedSearch struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Criteria      Criteria  `json:"criteria"`
	AlertsEnabled bool      `json:"alerts_enabled"`
	LastCheckedAt time.Time `json:"last_checked_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// Application status values.
const (
	StatusSaved     = "saved"
	StatusApplied   = "applied"
	StatusInterview = "interview"
	StatusOffer     = "offer"
	StatusRejected  = "rejected"
	StatusWithdrawn = "withdrawn"
)

// ValidStatus reports whether s is a known application status.
func ValidStatus(s string) bool {
	switch s {
	case StatusSaved, StatusApplied, StatusInterview, StatusOffer, StatusRejected, StatusWithdrawn:
		return true
	}
	return false
}

// Application tracks the user's progress on one job posting.
type Application struct {
	ID           string    `json:"id"`
	JobID        string    `json:"job_id"`
	Title        string    `json:"title"`
	Organization string    `json:"organization"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes,omitempty"`
	AppliedAt    time.Time `json:"applied_at,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
