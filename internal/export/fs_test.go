package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/radrebel/fedscout/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := testStore(t)
	cs, err := s.Write("j1.md", []byte("# Job\n"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if cs == "" {
		t.Error("empty checksum")
	}

	data, err := s.Read("j1.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "# Job\n" {
		t.Errorf("data = %q", data)
	}
}

func TestWriteRejectsTraversal(t *testing.T) {
	s := testStore(t)
	if _, err := s.Write("../escape.md", []byte("x")); err == nil {
		t.Error("traversal path accepted")
	}
	if _, err := s.Write("/abs.md", []byte("x")); err == nil {
		t.Error("absolute path accepted")
	}
}

func TestListReportsChecksums(t *testing.T) {
	s := testStore(t)
	_, _ = s.Write("a.md", []byte("aaa"))
	_, _ = s.Write("b.md", []byte("bbb"))
	_, _ = s.Write("ignored.txt", []byte("x"))

	metas, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("len = %d, want 2", len(metas))
	}
	for _, m := range metas {
		if m.Checksum == "" {
			t.Errorf("%s has empty checksum", m.Path)
		}
	}
}

func TestDelete(t *testing.T) {
	s := testStore(t)
	_, _ = s.Write("gone.md", []byte("x"))
	if err := s.Delete("gone.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("gone.md"); err == nil {
		t.Error("deleted file still readable")
	}
}

func TestNewStoreCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "exports")
	if _, err := NewStore(root); err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root not created: %v", err)
	}
}

func TestFilenameSanitizes(t *testing.T) {
	if got := Filename("ABC/123 456"); got != "ABC-123-456.md" {
		t.Errorf("Filename = %q", got)
	}
	if got := Filename(""); got != "job.md" {
		t.Errorf("Filename empty = %q", got)
	}
}

func TestRenderIncludesFields(t *testing.T) {
	job := models.Job{
		ID:           "J1",
		Title:        "IT Specialist",
		Organization: "Dept of the Interior",
		Location:     "Denver, CO",
		SalaryMin:    90000,
		SalaryMax:    120000,
		URL:          "https://example.gov/j1",
		PostedAt:     time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	out := string(Render(job, time.Now()))
	for _, want := range []string{"# IT Specialist", "J1", "Denver, CO", "$90000 - $120000", "2026-08-01", "https://example.gov/j1"} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}
}
