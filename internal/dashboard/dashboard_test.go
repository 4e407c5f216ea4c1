package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/docpilot/internal/audit"
	"github.com/ziadkadry99/docpilot/internal/db"
	"github.com/ziadkadry99/docpilot/internal/documents"
	"github.com/ziadkadry99/docpilot/internal/docx"
	"github.com/ziadkadry99/docpilot/internal/notifications"
	"github.com/ziadkadry99/docpilot/internal/richtext"
	"github.com/ziadkadry99/docpilot/internal/workspace"
)

type testEnv struct {
	router chi.Router
	svc    *workspace.Service
	audit  *audit.Store
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	docs, err := documents.NewStore(database, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	auditStore := audit.NewStore(database)
	notifStore := notifications.NewStore(database)

	svc := workspace.New(workspace.Config{
		Documents: docs,
		Audit:     auditStore,
		Notifier:  notifications.NewDispatcher(notifStore, nil),
	})

	r := chi.NewRouter()
	New(svc, auditStore, notifStore).RegisterRoutes(r)
	return &testEnv{router: r, svc: svc, audit: auditStore}
}

func (e *testEnv) importDoc(t *testing.T, text string) string {
	t.Helper()
	pkg := docx.New()
	pkg.Document.AppendParagraph(richtext.NewParagraph(text, richtext.Format{}))
	pkg.Document.AppendParagraph(richtext.NewParagraph("Second paragraph.", richtext.Format{}))
	data, err := pkg.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	doc, err := e.svc.Import(t.Context(), user, "contract.docx", data)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	return doc.ID
}

var user = workspace.Actor{Type: audit.ActorUser, ID: "alice"}

func TestStatsEndpoint(t *testing.T) {
	env := setupTest(t)
	ctx := t.Context()

	id := env.importDoc(t, "Hello World")
	if _, err := env.svc.Replace(ctx, user, id, workspace.ReplaceRequest{Find: "World", Replace: "Earth"}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	env.audit.Log(ctx, audit.Entry{
		ActorType: audit.ActorUser, ActorID: "alice",
		Action: audit.ActionDegradedFallback, DocumentID: id, Degraded: true,
	})

	req := httptest.NewRequest("GET", "/api/dashboard/stats", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", w.Code, w.Body.String())
	}

	var stats statsResponse
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if stats.Documents != 1 {
		t.Errorf("documents = %d, want 1", stats.Documents)
	}
	if stats.Paragraphs != 2 {
		t.Errorf("paragraphs = %d, want 2", stats.Paragraphs)
	}
	if stats.Edits != 1 {
		t.Errorf("edits = %d, want 1", stats.Edits)
	}
	if stats.DegradedEdits != 1 {
		t.Errorf("degraded_edits = %d, want 1", stats.DegradedEdits)
	}
	// No webhooks are registered, so the created and edited notifications stay pending.
	if stats.PendingNotifications != 2 {
		t.Errorf("pending_notifications = %d, want 2", stats.PendingNotifications)
	}
	if stats.SearchEnabled {
		t.Error("search_enabled should be false without an index")
	}
}

func TestStatsEndpointEmpty(t *testing.T) {
	env := setupTest(t)

	req := httptest.NewRequest("GET", "/api/dashboard/stats", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var stats statsResponse
	json.NewDecoder(w.Body).Decode(&stats)
	if stats != (statsResponse{}) {
		t.Errorf("stats = %+v, want zero", stats)
	}
}

func TestRecentEndpoint(t *testing.T) {
	env := setupTest(t)
	for i := 0; i < recentLimit+2; i++ {
		env.importDoc(t, "Hello")
	}

	req := httptest.NewRequest("GET", "/api/dashboard/recent", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp recentResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Activity) != recentLimit {
		t.Errorf("activity = %d entries, want %d", len(resp.Activity), recentLimit)
	}
	if len(resp.Notifications) != recentLimit {
		t.Errorf("notifications = %d entries, want %d", len(resp.Notifications), recentLimit)
	}
	if resp.Activity[0].Action != audit.ActionDocumentImported {
		t.Errorf("action = %q, want %q", resp.Activity[0].Action, audit.ActionDocumentImported)
	}
}

func TestRecentEndpointWithoutStores(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	docs, err := documents.NewStore(database, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	r := chi.NewRouter()
	New(workspace.New(workspace.Config{Documents: docs}), nil, nil).RegisterRoutes(r)

	req := httptest.NewRequest("GET", "/api/dashboard/recent", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"activity":[]`) {
		t.Errorf("body = %s, want empty activity array", w.Body.String())
	}
}

func TestServeIndex(t *testing.T) {
	env := setupTest(t)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content-type = %q, want text/html", ct)
	}
	if !strings.Contains(w.Body.String(), "/api/dashboard/stats") {
		t.Error("index page does not load stats")
	}
}
