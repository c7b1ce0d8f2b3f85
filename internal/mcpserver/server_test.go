package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/wikifeed/internal/feed"
	"github.com/starford/wikifeed/internal/gitsync"
	"github.com/starford/wikifeed/internal/models"
	"github.com/starford/wikifeed/internal/parser"
	"github.com/starford/wikifeed/internal/testutil"
	"github.com/starford/wikifeed/internal/wikiservice"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	dir, store := testutil.TestWiki(t, map[string]string{
		"Home.md":        "# Home\nWelcome. Start with [[Permissions]].",
		"Permissions.md": "# Permissions\n| Role | Edit |\n|---|---|\n| Admin | yes |\n- Invite members\n",
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := parser.New(store)
	svc := wikiservice.New(p, feed.New(p), gitsync.NewClient(dir, gitsync.WithLogger(logger)), testutil.TestDB(t),
		wikiservice.WithLogger(logger))
	if _, err := svc.Reindex(context.Background()); err != nil {
		t.Fatal(err)
	}
	return New(svc, "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "get_timeline":
		result, err = srv.getTimeline(ctx, req)
	case "get_card":
		result, err = srv.getCard(ctx, req)
	case "search_pages":
		result, err = srv.searchPages(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "sync_wiki":
		result, err = srv.syncWiki(ctx, req)
	case "get_roadmap":
		result, err = srv.getRoadmap(ctx, req)
	case "get_stats":
		result, err = srv.getStats(ctx, req)
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

func TestGetTimeline(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "get_timeline", map[string]interface{}{})
	var cards []models.Card
	if err := json.Unmarshal([]byte(resultText(r)), &cards); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("cards = %d, want 2", len(cards))
	}
	if cards[0].Filename != "Permissions.md" {
		t.Errorf("first = %q, want Permissions.md", cards[0].Filename)
	}

	r = callTool(t, srv, "get_timeline", map[string]interface{}{"limit": float64(1)})
	_ = json.Unmarshal([]byte(resultText(r)), &cards)
	if len(cards) != 1 {
		t.Errorf("limited cards = %d, want 1", len(cards))
	}
}

func TestGetCard(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "get_card", map[string]interface{}{"filename": "Permissions.md"})
	var card models.Card
	if err := json.Unmarshal([]byte(resultText(r)), &card); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if card.ContentType != models.TypePermissionsMatrix {
		t.Errorf("type = %q", card.ContentType)
	}
}

func TestGetCardMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_card", map[string]interface{}{"filename": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing page")
	}
	if !strings.Contains(resultText(r), "not found") {
		t.Errorf("text = %q", resultText(r))
	}

	r = callTool(t, srv, "get_card", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error without filename")
	}
}

func TestSearchPages(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "search_pages", map[string]interface{}{"query": "invite"})
	if !strings.Contains(resultText(r), "Permissions.md") {
		t.Errorf("search = %q", resultText(r))
	}
}

func TestGetBacklinks(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "get_backlinks", map[string]interface{}{"filename": "Permissions.md"})
	if text := resultText(r); text != "Home.md" {
		t.Errorf("backlinks = %q, want Home.md", text)
	}

	r = callTool(t, srv, "get_backlinks", map[string]interface{}{"filename": "Home.md"})
	if text := resultText(r); text != "no backlinks found" {
		t.Errorf("backlinks = %q", text)
	}
}

func TestSyncWikiNotARepository(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "sync_wiki", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error result outside a git repository")
	}
	var res models.SyncResult
	_ = json.Unmarshal([]byte(resultText(r)), &res)
	if res.Error != "Not a git repository" {
		t.Errorf("error = %q", res.Error)
	}
}

func TestRoadmapAndStats(t *testing.T) {
	srv := testServer(t)

	var phases []models.Phase
	_ = json.Unmarshal([]byte(resultText(callTool(t, srv, "get_roadmap", nil))), &phases)
	if len(phases) != 3 {
		t.Errorf("phases = %d, want 3", len(phases))
	}

	var stats models.StatsSummary
	_ = json.Unmarshal([]byte(resultText(callTool(t, srv, "get_stats", nil))), &stats)
	if stats.TotalPages != 2 {
		t.Errorf("total_pages = %d, want 2", stats.TotalPages)
	}
}

func TestGuideResource(t *testing.T) {
	srv := testServer(t)
	contents, err := srv.readGuideResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != guideURI || !strings.Contains(tc.Text, "rank = 0.4 * engagement") {
		t.Errorf("resource = %+v", contents[0])
	}
}
