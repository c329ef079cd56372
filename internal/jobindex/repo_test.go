package jobindex

import (
	"os"
	"testing"
	"time"

	"github.com/radrebel/fedscout/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "fedscout-jobindex-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpsertAndGet(t *testing.T) {
	db := testDB(t)
	posted := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	jobs := []models.Job{
		{ID: "J1", Title: "IT Specialist", Organization: "Dept of the Interior", Location: "Denver, CO", URL: "https://example.gov/j1", PostedAt: posted},
		{ID: "J2", Title: "Data Scientist", Organization: "Census Bureau", Location: "Suitland, MD"},
	}
	if err := db.UpsertJobs(jobs, time.Now()); err != nil {
		t.Fatalf("UpsertJobs: %v", err)
	}

	got, err := db.Get("J1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "IT Specialist" || !got.PostedAt.Equal(posted) {
		t.Errorf("got = %+v", got)
	}

	if n, _ := db.Count(); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestUpsertReplaces(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertJobs([]models.Job{{ID: "J1", Title: "Old Title"}}, time.Now())
	_ = db.UpsertJobs([]models.Job{{ID: "J1", Title: "New Title"}}, time.Now())

	got, err := db.Get("J1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "New Title" {
		t.Errorf("title = %q, want New Title", got.Title)
	}
	if n, _ := db.Count(); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestSearchMatchesTitleAndOrganization(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertJobs([]models.Job{
		{ID: "J1", Title: "Software Engineer", Organization: "Forest Service"},
		{ID: "J2", Title: "Park Ranger", Organization: "National Park Service"},
	}, time.Now())

	hits, err := db.Search("engineer", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "J1" {
		t.Errorf("hits = %+v", hits)
	}

	hits, err = db.Search("park", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "J2" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	db := testDB(t)
	hits, err := db.Search("anything", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("hits = %+v, want none", hits)
	}
}

func TestPruneRemovesStale(t *testing.T) {
	db := testDB(t)
	old := time.Now().Add(-48 * time.Hour)
	_ = db.UpsertJobs([]models.Job{{ID: "OLD", Title: "Stale Posting"}}, old)
	_ = db.UpsertJobs([]models.Job{{ID: "NEW", Title: "Fresh Posting"}}, time.Now())

	n, err := db.Prune(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned = %d, want 1", n)
	}
	if _, err := db.Get("OLD"); err == nil {
		t.Error("stale posting survived prune")
	}
	if _, err := db.Get("NEW"); err != nil {
		t.Errorf("fresh posting pruned: %v", err)
	}

	hits, _ := db.Search("stale", 10)
	if len(hits) != 0 {
		t.Error("pruned posting still searchable")
	}
}
