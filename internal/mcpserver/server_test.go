package mcpserver

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/radrebel/fedscout/internal/api"
	"github.com/radrebel/fedscout/internal/classify"
	"github.com/radrebel/fedscout/internal/executor"
	"github.com/radrebel/fedscout/internal/models"
	"github.com/radrebel/fedscout/internal/notifier"
	"github.com/radrebel/fedscout/internal/opstate"
	"github.com/radrebel/fedscout/internal/syncer"
	"github.com/radrebel/fedscout/internal/testutil"
)

type fakeClient struct {
	jobs []models.Job
}

func (f *fakeClient) Search(ctx context.Context, c models.Criteria) ([]models.Job, error) {
	return f.jobs, nil
}

func (f *fakeClient) Position(ctx context.Context, id string) (*models.Job, error) {
	for i := range f.jobs {
		if f.jobs[i].ID == id {
			return &f.jobs[i], nil
		}
	}
	return nil, os.ErrNotExist
}

type alwaysOnline struct{}

func (alwaysOnline) IsConnected() bool { return true }

func testServer(t *testing.T, client *fakeClient) *Server {
	t.Helper()

	c := testutil.TestCache(t)
	db := testutil.TestStore(t)

	states := opstate.NewStore(20 * time.Millisecond)
	exec := executor.New(states, classify.Policy{BaseDelay: time.Millisecond, RateLimitedBaseDelay: time.Millisecond}, slog.Default())
	sync := syncer.New(c, exec, alwaysOnline{}, slog.Default())
	n := notifier.New(db, client, exec, &notifier.LogSink{Logger: slog.Default()}, slog.Default())

	svc := api.NewService(api.Deps{
		Sync:     sync,
		Cache:    c,
		Store:    db,
		Client:   client,
		Exec:     exec,
		Notifier: n,
		Index:    testutil.TestIndex(t),
	}, time.Hour, 24*time.Hour)
	return New(svc)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we call the
	// handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_jobs":
		result, err = srv.searchJobs(ctx, req)
	case "search_cached_jobs":
		result, err = srv.searchCachedJobs(ctx, req)
	case "get_job":
		result, err = srv.getJob(ctx, req)
	case "toggle_favorite":
		result, err = srv.toggleFavorite(ctx, req)
	case "list_favorites":
		result, err = srv.listFavorites(ctx, req)
	case "save_search":
		result, err = srv.saveSearch(ctx, req)
	case "list_saved_searches":
		result, err = srv.listSavedSearches(ctx, req)
	case "get_search_syntax":
		result, err = srv.getSearchSyntax(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestSearchJobsTool(t *testing.T) {
	srv := testServer(t, &fakeClient{jobs: []models.Job{{ID: "J1", Title: "IT Specialist"}}})

	r := callTool(t, srv, "search_jobs", map[string]interface{}{"keyword": "it"})
	if r.IsError {
		t.Fatalf("search error: %s", resultText(r))
	}
	text := resultText(r)
	if !strings.Contains(text, `"J1"`) || !strings.Contains(text, `"network"`) {
		t.Errorf("search result = %q", text)
	}
}

func TestSearchCachedJobsTool(t *testing.T) {
	srv := testServer(t, &fakeClient{jobs: []models.Job{{ID: "J1", Title: "Software Engineer"}}})

	// An online search seeds the local index.
	r := callTool(t, srv, "search_jobs", map[string]interface{}{"keyword": "engineer"})
	if r.IsError {
		t.Fatalf("seed search error: %s", resultText(r))
	}

	r = callTool(t, srv, "search_cached_jobs", map[string]interface{}{"query": "engineer"})
	if r.IsError {
		t.Fatalf("cached search error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "Software Engineer") {
		t.Errorf("cached search result = %q", resultText(r))
	}

	r = callTool(t, srv, "search_cached_jobs", map[string]interface{}{"query": "zzzz"})
	if resultText(r) != "no cached postings match" {
		t.Errorf("miss result = %q", resultText(r))
	}
}

func TestGetJobTool(t *testing.T) {
	srv := testServer(t, &fakeClient{jobs: []models.Job{{ID: "J1", Title: "IT Specialist"}}})

	r := callTool(t, srv, "get_job", map[string]interface{}{"id": "J1"})
	if r.IsError {
		t.Fatalf("get_job error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "IT Specialist") {
		t.Errorf("get_job result = %q", resultText(r))
	}
}

func TestToggleFavoriteTool(t *testing.T) {
	srv := testServer(t, &fakeClient{})

	r := callTool(t, srv, "toggle_favorite", map[string]interface{}{"id": "J1", "title": "IT Specialist"})
	if resultText(r) != "bookmarked: J1" {
		t.Errorf("first toggle = %q", resultText(r))
	}

	r = callTool(t, srv, "list_favorites", map[string]interface{}{})
	if !strings.Contains(resultText(r), "J1") {
		t.Errorf("list after bookmark = %q", resultText(r))
	}

	r = callTool(t, srv, "toggle_favorite", map[string]interface{}{"id": "J1"})
	if resultText(r) != "bookmark removed: J1" {
		t.Errorf("second toggle = %q", resultText(r))
	}
}

func TestSaveSearchTool(t *testing.T) {
	srv := testServer(t, &fakeClient{})

	r := callTool(t, srv, "save_search", map[string]interface{}{
		"name":    "Remote GS-13",
		"keyword": "engineer",
		"remote":  true,
	})
	if r.IsError {
		t.Fatalf("save_search error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "Remote GS-13") {
		t.Errorf("save result = %q", resultText(r))
	}

	r = callTool(t, srv, "list_saved_searches", map[string]interface{}{})
	if !strings.Contains(resultText(r), "Remote GS-13") {
		t.Errorf("list result = %q", resultText(r))
	}
}

func TestSaveSearchRequiresName(t *testing.T) {
	srv := testServer(t, &fakeClient{})
	r := callTool(t, srv, "save_search", map[string]interface{}{"keyword": "x"})
	if !r.IsError {
		t.Error("expected error without name")
	}
}

func TestSearchSyntaxTool(t *testing.T) {
	srv := testServer(t, &fakeClient{})
	r := callTool(t, srv, "get_search_syntax", map[string]interface{}{})
	if !strings.Contains(resultText(r), "keyword") {
		t.Error("syntax guide missing keyword section")
	}
}
