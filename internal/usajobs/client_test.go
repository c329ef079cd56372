package usajobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/radrebel/fedscout/internal/apperr"
	"github.com/radrebel/fedscout/internal/classify"
	"github.com/radrebel/fedscout/internal/models"
)

const sampleSearchBody = `{
	"SearchResult": {
		"SearchResultCount": 2,
		"SearchResultItems": [
			{
				"MatchedObjectId": "800001",
				"MatchedObjectDescriptor": {
					"PositionID": "NPS-25-001",
					"PositionTitle": "Park Ranger",
					"OrganizationName": "National Park Service",
					"DepartmentName": "Department of the Interior",
					"PositionURI": "https://www.usajobs.gov/job/800001",
					"PositionLocationDisplay": "Yosemite, CA",
					"PublicationStartDate": "2026-08-01",
					"ApplicationCloseDate": "2026-09-01",
					"PositionRemuneration": [
						{"MinimumRange": "45000", "MaximumRange": "60000"}
					]
				}
			},
			{
				"MatchedObjectId": "800002",
				"MatchedObjectDescriptor": {
					"PositionID": "FS-25-042",
					"PositionTitle": "Forestry Technician",
					"OrganizationName": "Forest Service",
					"PositionURI": "https://www.usajobs.gov/job/800002",
					"PositionLocationDisplay": "Missoula, MT",
					"PublicationStartDate": "2026-08-15T08:30:00.0000000"
				}
			}
		]
	}
}`

func testServer(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL, "test-key", "tester@example.com", 5*time.Second)
}

func TestSearch(t *testing.T) {
	var gotReq *http.Request
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleSearchBody))
	})

	jobs, err := client.Search(context.Background(), models.Criteria{
		Keyword:      "ranger",
		Location:     "California",
		FullTimeOnly: true,
		PerPage:      10,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotReq.URL.Path != "/api/search" {
		t.Errorf("path = %q", gotReq.URL.Path)
	}
	q := gotReq.URL.Query()
	if q.Get("Keyword") != "ranger" || q.Get("LocationName") != "California" {
		t.Errorf("query = %v", q)
	}
	if q.Get("PositionScheduleTypeCode") != "1" {
		t.Error("full-time filter not applied")
	}
	if q.Get("ResultsPerPage") != "10" {
		t.Errorf("ResultsPerPage = %q", q.Get("ResultsPerPage"))
	}
	if gotReq.Header.Get("Authorization-Key") != "test-key" {
		t.Error("missing Authorization-Key header")
	}
	if gotReq.Header.Get("User-Agent") != "tester@example.com" {
		t.Error("missing User-Agent header")
	}

	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(jobs))
	}
	first := jobs[0]
	if first.ID != "NPS-25-001" || first.Title != "Park Ranger" {
		t.Errorf("first job = %+v", first)
	}
	if first.SalaryMin != 45000 || first.SalaryMax != 60000 {
		t.Errorf("salary = %v-%v", first.SalaryMin, first.SalaryMax)
	}
	if first.PostedAt.IsZero() {
		t.Error("PublicationStartDate not parsed")
	}
	if jobs[1].PostedAt.IsZero() {
		t.Error("fractional-seconds date layout not parsed")
	}
}

func TestSearchEmptyCriteriaIsValidationError(t *testing.T) {
	client := NewHTTPClient("http://unused", "k", "ua", time.Second)
	_, err := client.Search(context.Background(), models.Criteria{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if ce := classify.Classify(err); ce.Kind != classify.KindValidation {
		t.Errorf("classified as %v, want validation", ce.Kind)
	}
}

func TestSearchStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   classify.Kind
	}{
		{http.StatusUnauthorized, classify.KindUnauthorized},
		{http.StatusTooManyRequests, classify.KindRateLimited},
		{http.StatusInternalServerError, classify.KindServerError},
		{http.StatusBadGateway, classify.KindServerError},
	}

	for _, tt := range tests {
		client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})
		_, err := client.Search(context.Background(), models.Criteria{Keyword: "x"})
		if err == nil {
			t.Fatalf("status %d: expected error", tt.status)
		}
		var se *StatusError
		if !errors.As(err, &se) || se.Code != tt.status {
			t.Errorf("status %d: error = %v", tt.status, err)
		}
		if ce := classify.Classify(err); ce.Kind != tt.want {
			t.Errorf("status %d classified as %v, want %v", tt.status, ce.Kind, tt.want)
		}
	}
}

func TestSearchDecodeFailure(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"SearchResult": "not an object"`))
	})
	_, err := client.Search(context.Background(), models.Criteria{Keyword: "x"})
	if err == nil {
		t.Fatal("expected decode error")
	}
	if ce := classify.Classify(err); ce.Kind != classify.KindDecoding {
		t.Errorf("classified as %v, want decoding", ce.Kind)
	}
}

func TestPosition(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("PositionID") != "NPS-25-001" {
			t.Errorf("PositionID = %q", r.URL.Query().Get("PositionID"))
		}
		w.Write([]byte(sampleSearchBody))
	})

	job, err := client.Position(context.Background(), "NPS-25-001")
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if job.Title != "Park Ranger" {
		t.Errorf("job = %+v", job)
	}
}

func TestPositionNotFound(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"SearchResult":{"SearchResultCount":0,"SearchResultItems":[]}}`))
	})

	_, err := client.Position(context.Background(), "MISSING-1")
	if !errors.As(err, new(*StatusError)) && !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
