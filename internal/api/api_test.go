package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/wikifeed/internal/feed"
	"github.com/starford/wikifeed/internal/gitsync"
	"github.com/starford/wikifeed/internal/models"
	"github.com/starford/wikifeed/internal/parser"
	"github.com/starford/wikifeed/internal/storage"
	"github.com/starford/wikifeed/internal/testutil"
	"github.com/starford/wikifeed/internal/wikiservice"
)

var samplePages = map[string]string{
	"Home.md":        "# Home\nWelcome to the team wiki. See [[Permissions]].",
	"Permissions.md": "# Permissions\n| Role | Edit |\n|---|---|\n| Admin | yes |\n- Invite members\n- Remove members\n",
	"Draft.md":       "",
}

// testEnv sets up a temp wiki, SQLite DB, service and router for testing.
// An empty authToken means auth is disabled.
func testEnv(t *testing.T, authToken string) (*wikiservice.Service, http.Handler) {
	t.Helper()
	dir, _ := testutil.TestWiki(t, samplePages)
	return testEnvAt(t, dir, dir, authToken != "", authToken, nil)
}

func testEnvAt(t *testing.T, wikiDir, repoDir string, authEnabled bool, token string, sseHandler http.Handler) (*wikiservice.Service, http.Handler) {
	t.Helper()
	store, err := storage.NewFS(wikiDir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := parser.New(store)
	svc := wikiservice.New(
		p,
		feed.New(p),
		gitsync.NewClient(repoDir, gitsync.WithLogger(logger)),
		testutil.TestDB(t),
		wikiservice.WithLogger(logger),
	)
	if _, err := svc.Reindex(context.Background()); err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	return svc, NewRouter(svc, authEnabled, token, sseHandler)
}

func do(t *testing.T, router http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTimeline(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/timeline")
	if w.Code != http.StatusOK {
		t.Fatalf("timeline = %d, body = %s", w.Code, w.Body.String())
	}
	var resp TimelineResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 3 || len(resp.Cards) != 3 {
		t.Fatalf("total = %d, cards = %d, want 3", resp.Total, len(resp.Cards))
	}
	if resp.Cards[0].Filename != "Permissions.md" {
		t.Errorf("first card = %q, want Permissions.md", resp.Cards[0].Filename)
	}
}

func TestGetCard(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/cards/Home.md")
	if w.Code != http.StatusOK {
		t.Fatalf("card = %d", w.Code)
	}
	var card models.Card
	_ = json.Unmarshal(w.Body.Bytes(), &card)
	if card.Title != "Home" {
		t.Errorf("title = %q, want Home", card.Title)
	}
	if card.ID != "wiki_card_home" {
		t.Errorf("id = %q", card.ID)
	}
}

func TestGetCard_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	for _, target := range []string{"/cards/nope.md", "/cards/Home.txt", "/cards/..%2Fsecret.md"} {
		w := do(t, router, http.MethodGet, target)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s = %d, want 404", target, w.Code)
		}
	}
}

func TestRoadmapAndStats(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/roadmap")
	if w.Code != http.StatusOK {
		t.Fatalf("roadmap = %d", w.Code)
	}
	var phases []models.Phase
	_ = json.Unmarshal(w.Body.Bytes(), &phases)
	if len(phases) != 3 {
		t.Errorf("phases = %d, want 3", len(phases))
	}

	w = do(t, router, http.MethodGet, "/stats")
	var stats models.StatsSummary
	_ = json.Unmarshal(w.Body.Bytes(), &stats)
	if stats.TotalPages != 3 {
		t.Errorf("total_pages = %d, want 3", stats.TotalPages)
	}
	if stats.TotalFeatures != 0 {
		t.Errorf("total_features = %d, want 0", stats.TotalFeatures)
	}
}

func TestActions(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/actions/permissions_matrix")
	var resp ActionsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Actions) != 2 {
		t.Errorf("permissions_matrix actions = %d, want 2", len(resp.Actions))
	}

	w = do(t, router, http.MethodGet, "/actions/permissions")
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Actions) != 3 || resp.Actions[2].ActionID != "assign_roles" {
		t.Errorf("permissions actions = %+v", resp.Actions)
	}
}

func TestClearCache(t *testing.T) {
	_, router := testEnv(t, "")

	do(t, router, http.MethodGet, "/timeline")
	w := do(t, router, http.MethodDelete, "/cache")
	if w.Code != http.StatusNoContent {
		t.Errorf("clear cache = %d, want 204", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/search?q=Invite")
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].Filename != "Permissions.md" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/search")
	if w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestBacklinks(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/pages/Permissions.md/backlinks")
	if w.Code != http.StatusOK {
		t.Fatalf("backlinks = %d", w.Code)
	}
	var resp BacklinksResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Backlinks) != 1 || resp.Backlinks[0] != "Home.md" {
		t.Errorf("backlinks = %v, want [Home.md]", resp.Backlinks)
	}
}

func TestSync_NotARepository(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/sync")
	if w.Code != http.StatusConflict {
		t.Fatalf("sync = %d, want 409", w.Code)
	}
	var res models.SyncResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Error != "Not a git repository" {
		t.Errorf("error = %q", res.Error)
	}

	w = do(t, router, http.MethodGet, "/sync/history")
	var hist HistoryResponse
	_ = json.Unmarshal(w.Body.Bytes(), &hist)
	if len(hist.History) != 1 || hist.History[0].SyncCount != 1 {
		t.Errorf("history = %+v", hist.History)
	}

	w = do(t, router, http.MethodGet, "/sync/changes")
	if w.Code != http.StatusConflict {
		t.Errorf("changes = %d, want 409", w.Code)
	}
}

func TestSync_MissingRepository(t *testing.T) {
	dir, _ := testutil.TestWiki(t, samplePages)
	_, router := testEnvAt(t, dir, filepath.Join(t.TempDir(), "gone"), false, "", nil)

	w := do(t, router, http.MethodPost, "/sync")
	if w.Code != http.StatusConflict {
		t.Fatalf("sync = %d, want 409", w.Code)
	}

	w = do(t, router, http.MethodGet, "/sync/status")
	var st models.RepoStatus
	_ = json.Unmarshal(w.Body.Bytes(), &st)
	if st.RepoExists || st.HealthStatus != gitsync.HealthMissing {
		t.Errorf("status = %+v", st)
	}
}

func TestSync_PullsChanges(t *testing.T) {
	upstream, clone := testutil.ClonedWiki(t, map[string]string{"Home.md": "# Home\nWelcome."})
	_, router := testEnvAt(t, clone, clone, false, "", nil)

	testutil.PushCommit(t, upstream, "add roles", map[string]string{"Roles.md": "# Roles\nAdmins."})

	w := do(t, router, http.MethodPost, "/sync")
	if w.Code != http.StatusOK {
		t.Fatalf("sync = %d, body = %s", w.Code, w.Body.String())
	}
	var res models.SyncResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if !res.ChangesDetected || len(res.FilesUpdated) != 1 || res.FilesUpdated[0] != "Roles.md" {
		t.Errorf("result = %+v", res)
	}

	w = do(t, router, http.MethodGet, "/cards/Roles.md")
	if w.Code != http.StatusOK {
		t.Errorf("new card = %d, want 200", w.Code)
	}

	w = do(t, router, http.MethodGet, "/sync/changes")
	var changes ChangesResponse
	_ = json.Unmarshal(w.Body.Bytes(), &changes)
	if len(changes.Changes) != 1 || changes.Changes[0].Status != models.ChangeAdded {
		t.Errorf("changes = %+v", changes.Changes)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/timeline", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed timeline = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/timeline")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// SSE endpoint auth tests.

func sseStub() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	dir, _ := testutil.TestWiki(t, samplePages)
	_, router := testEnvAt(t, dir, dir, true, "secret", sseStub())

	w := do(t, router, http.MethodGet, "/events")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	dir, _ := testutil.TestWiki(t, samplePages)
	_, router := testEnvAt(t, dir, dir, true, "tok", sseStub())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}
