package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ziadkadry99/docpilot/internal/audit"
	"github.com/ziadkadry99/docpilot/internal/db"
	"github.com/ziadkadry99/docpilot/internal/documents"
	"github.com/ziadkadry99/docpilot/internal/notifications"
	"github.com/ziadkadry99/docpilot/internal/workspace"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
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
	return New(cfg, svc, auditStore, notifStore, nil)
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t, Config{Port: 0})

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(t, Config{Port: 0, AllowAll: true})

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

func TestRoutesMounted(t *testing.T) {
	srv := newTestServer(t, Config{})

	req := httptest.NewRequest("POST", "/api/documents", strings.NewReader(`{"name":"a"}`))
	req.Header.Set("X-Actor-ID", "bob")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/audit?actor=bob", nil))
	var entries []audit.Entry
	json.NewDecoder(w.Body).Decode(&entries)
	if len(entries) != 1 || entries[0].Action != audit.ActionDocumentCreated {
		t.Errorf("audit entries = %+v", entries)
	}

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/notifications", nil))
	var notes []notifications.Notification
	json.NewDecoder(w.Body).Decode(&notes)
	if len(notes) != 1 || notes[0].Type != notifications.TypeDocumentCreated || notes[0].DocumentName != "a.docx" {
		t.Errorf("notifications = %+v", notes)
	}

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/search?q=x", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("search without index: expected 503, got %d", w.Code)
	}
}
