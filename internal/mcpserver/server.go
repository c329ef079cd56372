// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes fedscout tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/radrebel/fedscout/internal/api"
	"github.com/radrebel/fedscout/internal/models"
)

// Server wraps the MCP server with fedscout tools.
type Server struct {
	mcp *server.MCPServer
	svc *api.Service
}

// New creates a new MCP server with all fedscout tools registered.
func New(svc *api.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Fedscout",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_jobs",
		mcp.WithDescription("Search federal job postings. Results come from the network "+
			"when online and from the local cache when offline. Read the "+
			"fedscout://search-syntax resource or the get_search_syntax tool for the "+
			"supported parameters."),
		mcp.WithString("keyword", mcp.Description("Keyword to search for (e.g. 'software engineer')")),
		mcp.WithString("location", mcp.Description("Location name (e.g. 'Denver, CO')")),
		mcp.WithBoolean("remote", mcp.Description("Restrict to remote-eligible postings")),
		mcp.WithBoolean("fulltime", mcp.Description("Restrict to full-time postings")),
	), s.searchJobs)

	s.mcp.AddTool(mcp.NewTool("search_cached_jobs",
		mcp.WithDescription("Full-text search over postings already seen by this machine. "+
			"Works fully offline; does not contact the network."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search terms")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results")),
	), s.searchCachedJobs)

	s.mcp.AddTool(mcp.NewTool("get_job",
		mcp.WithDescription("Fetch the full details of one job posting by its ID."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Job posting ID")),
	), s.getJob)

	s.mcp.AddTool(mcp.NewTool("toggle_favorite",
		mcp.WithDescription("Bookmark a job, or remove the bookmark if it is already saved."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Job posting ID")),
		mcp.WithString("title", mcp.Description("Job title, stored with the bookmark")),
	), s.toggleFavorite)

	s.mcp.AddTool(mcp.NewTool("list_favorites",
		mcp.WithDescription("List the user's bookmarked jobs."),
	), s.listFavorites)

	s.mcp.AddTool(mcp.NewTool("save_search",
		mcp.WithDescription("Save a named search so it can be re-run and checked for new postings."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Display name for the saved search")),
		mcp.WithString("keyword", mcp.Description("Keyword criteria")),
		mcp.WithString("location", mcp.Description("Location criteria")),
		mcp.WithBoolean("remote", mcp.Description("Remote-only criteria")),
	), s.saveSearch)

	s.mcp.AddTool(mcp.NewTool("list_saved_searches",
		mcp.WithDescription("List saved searches with their alert settings."),
	), s.listSavedSearches)

	s.mcp.AddTool(mcp.NewTool("check_alerts",
		mcp.WithDescription("Run an immediate new-postings check for one saved search. "+
			"Returns the notification intent if new postings were found."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Saved search ID")),
	), s.checkAlerts)

	s.mcp.AddTool(mcp.NewTool("list_applications",
		mcp.WithDescription("List tracked job applications with their statuses."),
	), s.listApplications)

	// Resource: search syntax guide.
	s.mcp.AddResource(
		mcp.NewResource("fedscout://search-syntax", "Search Syntax Guide",
			mcp.WithResourceDescription("Supported job search parameters and how offline caching affects results."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSearchSyntaxResource,
	)

	s.mcp.AddTool(mcp.NewTool("get_search_syntax",
		mcp.WithDescription("Returns the job search syntax guide. Call this before composing searches."),
	), s.getSearchSyntax)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func criteriaFromRequest(req mcp.CallToolRequest) models.Criteria {
	return models.Criteria{
		Keyword:      req.GetString("keyword", ""),
		Location:     req.GetString("location", ""),
		RemoteOnly:   req.GetBool("remote", false),
		FullTimeOnly: req.GetBool("fulltime", false),
	}
}

func (s *Server) searchJobs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	criteria := criteriaFromRequest(req)
	jobs, source, ce := s.svc.SearchJobs(ctx, criteria)
	if ce != nil {
		return mcp.NewToolResultError(ce.Message()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{
		"source": source.String(),
		"jobs":   jobs,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchCachedJobs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	jobs, searchErr := s.svc.LocalSearch(query, req.GetInt("limit", 0))
	if searchErr != nil {
		return mcp.NewToolResultError(searchErr.Error()), nil
	}
	if len(jobs) == 0 {
		return mcp.NewToolResultText("no cached postings match"), nil
	}
	out, _ := json.MarshalIndent(jobs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	job, _, ce := s.svc.JobDetails(ctx, id)
	if ce != nil {
		return mcp.NewToolResultError(ce.Message()), nil
	}
	out, _ := json.MarshalIndent(job, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) toggleFavorite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fav := models.Favorite{JobID: id, Title: req.GetString("title", "")}
	nowFavorite, ce := s.svc.ToggleFavorite(ctx, fav)
	if ce != nil {
		return mcp.NewToolResultError(ce.Message()), nil
	}
	if nowFavorite {
		return mcp.NewToolResultText(fmt.Sprintf("bookmarked: %s", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("bookmark removed: %s", id)), nil
}

func (s *Server) listFavorites(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	favs, ce := s.svc.Favorites(ctx)
	if ce != nil {
		return mcp.NewToolResultError(ce.Message()), nil
	}
	if len(favs) == 0 {
		return mcp.NewToolResultText("no favorites saved"), nil
	}
	var lines []string
	for _, f := range favs {
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s", f.JobID, f.Title, f.Organization))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) saveSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	search, ce := s.svc.CreateSavedSearch(ctx, name, criteriaFromRequest(req))
	if ce != nil {
		return mcp.NewToolResultError(ce.Message()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved search created: %s (%s)", search.Name, search.ID)), nil
}

func (s *Server) listSavedSearches(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	searches, ce := s.svc.SavedSearches(ctx)
	if ce != nil {
		return mcp.NewToolResultError(ce.Message()), nil
	}
	out, _ := json.MarshalIndent(searches, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) checkAlerts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	intent, checkErr := s.svc.CheckSavedSearchNow(ctx, id)
	if checkErr != nil {
		return mcp.NewToolResultError(checkErr.Error()), nil
	}
	if intent == nil {
		return mcp.NewToolResultText("no new postings"), nil
	}
	out, _ := json.MarshalIndent(intent, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listApplications(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	apps, ce := s.svc.Applications(ctx)
	if ce != nil {
		return mcp.NewToolResultError(ce.Message()), nil
	}
	out, _ := json.MarshalIndent(apps, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getSearchSyntax(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SearchSyntaxGuide), nil
}

func (s *Server) readSearchSyntaxResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "fedscout://search-syntax",
			MIMEType: "text/markdown",
			Text:     SearchSyntaxGuide,
		},
	}, nil
}
