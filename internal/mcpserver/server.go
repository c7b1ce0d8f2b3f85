// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the wiki feed to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/wikifeed/internal/apperr"
	"github.com/starford/wikifeed/internal/wikiservice"
)

const guideURI = "wikifeed://card-guide"

// Server wraps the MCP server with wikifeed tools.
type Server struct {
	mcp *server.MCPServer
	svc *wikiservice.Service
}

// New creates a new MCP server with all wikifeed tools registered.
func New(svc *wikiservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"wikifeed",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_timeline",
		mcp.WithDescription("Ranked feed of wiki page cards, most relevant first. "+
			"See the "+guideURI+" resource for how cards are scored."),
		mcp.WithNumber("limit", mcp.Description("Maximum cards to return (0 for all)")),
	), s.getTimeline)

	s.mcp.AddTool(mcp.NewTool("get_card",
		mcp.WithDescription("Card for a single wiki page, including summary, features and metrics."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Page filename, e.g. Home.md")),
	), s.getCard)

	s.mcp.AddTool(mcp.NewTool("search_pages",
		mcp.WithDescription("Full-text search through wiki page titles, bodies and features."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchPages)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all pages that link to the specified page."),
		mcp.WithString("filename", mcp.Required(), mcp.Description("Page filename to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("sync_wiki",
		mcp.WithDescription("Pull the wiki git repository and refresh cards for changed pages."),
	), s.syncWiki)

	s.mcp.AddTool(mcp.NewTool("get_roadmap",
		mcp.WithDescription("Project roadmap phases with status and progress."),
	), s.getRoadmap)

	s.mcp.AddTool(mcp.NewTool("get_stats",
		mcp.WithDescription("Summary counts for the wiki feed."),
	), s.getStats)

	s.mcp.AddResource(
		mcp.NewResource(guideURI, "Card Guide",
			mcp.WithResourceDescription("How wiki pages are turned into scored, ranked cards."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuideResource,
	)

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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) getTimeline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cards, err := s.svc.Timeline(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if limit := req.GetInt("limit", 0); limit > 0 && limit < len(cards) {
		cards = cards[:limit]
	}
	return jsonResult(cards), nil
}

func (s *Server) getCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	card, err := s.svc.Card(ctx, filename)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", filename)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(card), nil
}

func (s *Server) searchPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, filename)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

// syncWiki reports a failed pull as a tool error carrying the full result.
func (s *Server) syncWiki(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := s.svc.ForceSync(ctx)
	out := jsonResult(res)
	out.IsError = !res.OK()
	return out, nil
}

func (s *Server) getRoadmap(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Roadmap(ctx)), nil
}

func (s *Server) getStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Stats(ctx)), nil
}

func (s *Server) readGuideResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      guideURI,
			MIMEType: "text/markdown",
			Text:     FeedGuide,
		},
	}, nil
}
