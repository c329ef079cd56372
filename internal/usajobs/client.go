// Package usajobs implements a thin client for the USAJOBS search API.
// Failures carry enough structure (status codes, decode sentinels) for the
// classifier to map them into the retry taxonomy.
package usajobs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/radrebel/fedscout/internal/apperr"
	"github.com/radrebel/fedscout/internal/classify"
	"github.com/radrebel/fedscout/internal/models"
)

// DefaultBaseURL is the production USAJOBS endpoint.
const DefaultBaseURL = "https://data.usajobs.gov"

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string   { return fmt.Sprintf("usajobs: HTTP %d", e.Code) }
func (e *StatusError) HTTPStatus() int { return e.Code }

// Client is the remote search surface consumed by the rest of the app.
type Client interface {
	// Search returns postings matching the criteria.
	Search(ctx context.Context, c models.Criteria) ([]models.Job, error)
	// Position returns a single posting by its position ID.
	Position(ctx context.Context, id string) (*models.Job, error)
}

// HTTPClient implements Client against the real API.
type HTTPClient struct {
	baseURL   string
	apiKey    string
	userAgent string
	http      *http.Client
}

// NewHTTPClient creates an HTTPClient. userAgent must be the email address
// registered with the API key, per the USAJOBS terms.
func NewHTTPClient(baseURL, apiKey, userAgent string, timeout time.Duration) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &HTTPClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout},
	}
}

// Wire types for the /api/search response.
type searchResponse struct {
	SearchResult struct {
		SearchResultCount int `json:"SearchResultCount"`
		SearchResultItems []struct {
			MatchedObjectID         string     `json:"MatchedObjectId"`
			MatchedObjectDescriptor descriptor `json:"MatchedObjectDescriptor"`
		} `json:"SearchResultItems"`
	} `json:"SearchResult"`
}

type descriptor struct {
	PositionID              string `json:"PositionID"`
	PositionTitle           string `json:"PositionTitle"`
	OrganizationName        string `json:"OrganizationName"`
	DepartmentName          string `json:"DepartmentName"`
	PositionURI             string `json:"PositionURI"`
	PositionLocationDisplay string `json:"PositionLocationDisplay"`
	PublicationStartDate    string `json:"PublicationStartDate"`
	ApplicationCloseDate    string `json:"ApplicationCloseDate"`
	PositionRemuneration    []struct {
		MinimumRange string `json:"MinimumRange"`
		MaximumRange string `json:"MaximumRange"`
	} `json:"PositionRemuneration"`
}

// Search queries /api/search. At least a keyword or a location is required.
func (c *HTTPClient) Search(ctx context.Context, criteria models.Criteria) ([]models.Job, error) {
	if strings.TrimSpace(criteria.Keyword) == "" && strings.TrimSpace(criteria.Location) == "" {
		return nil, fmt.Errorf("usajobs: keyword or location required: %w", classify.ErrValidation)
	}

	q := url.Values{}
	if criteria.Keyword != "" {
		q.Set("Keyword", criteria.Keyword)
	}
	if criteria.Location != "" {
		q.Set("LocationName", criteria.Location)
	}
	if criteria.RemoteOnly {
		q.Set("RemoteIndicator", "True")
	}
	if criteria.FullTimeOnly {
		q.Set("PositionScheduleTypeCode", "1")
	}
	perPage := criteria.PerPage
	if perPage <= 0 {
		perPage = 25
	}
	q.Set("ResultsPerPage", strconv.Itoa(perPage))
	if criteria.Page > 1 {
		q.Set("Page", strconv.Itoa(criteria.Page))
	}

	var resp searchResponse
	if err := c.get(ctx, "/api/search?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	jobs := make([]models.Job, 0, len(resp.SearchResult.SearchResultItems))
	for _, item := range resp.SearchResult.SearchResultItems {
		jobs = append(jobs, item.MatchedObjectDescriptor.toJob())
	}
	return jobs, nil
}

// Position fetches a single posting by position ID.
func (c *HTTPClient) Position(ctx context.Context, id string) (*models.Job, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("usajobs: position id required: %w", classify.ErrValidation)
	}

	q := url.Values{}
	q.Set("PositionID", id)

	var resp searchResponse
	if err := c.get(ctx, "/api/search?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	for _, item := range resp.SearchResult.SearchResultItems {
		if item.MatchedObjectDescriptor.PositionID == id {
			job := item.MatchedObjectDescriptor.toJob()
			return &job, nil
		}
	}
	return nil, fmt.Errorf("usajobs: position %s: %w", id, apperr.ErrNotFound)
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("usajobs: build request: %w", err)
	}
	req.Header.Set("Authorization-Key", c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("usajobs: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("usajobs: decode response: %w: %w", classify.ErrDecode, err)
	}
	return nil
}

func (d descriptor) toJob() models.Job {
	job := models.Job{
		ID:           d.PositionID,
		Title:        d.PositionTitle,
		Organization: d.OrganizationName,
		Department:   d.DepartmentName,
		Location:     d.PositionLocationDisplay,
		URL:          d.PositionURI,
		PostedAt:     parseAPIDate(d.PublicationStartDate),
		ClosesAt:     parseAPIDate(d.ApplicationCloseDate),
	}
	if len(d.PositionRemuneration) > 0 {
		job.SalaryMin, _ = strconv.ParseFloat(d.PositionRemuneration[0].MinimumRange, 64)
		job.SalaryMax, _ = strconv.ParseFloat(d.PositionRemuneration[0].MaximumRange, 64)
	}
	return job
}

// parseAPIDate handles the date layouts the API has been observed to emit.
// An unparseable or missing date yields the zero time rather than an error;
// sorting and delta checks treat those postings as old.
func parseAPIDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05.0000000",
		"2006-01-02T15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
