// Package dashboard serves a small browser UI and the summary endpoints
// behind it.
package dashboard

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/docpilot/internal/audit"
	"github.com/ziadkadry99/docpilot/internal/notifications"
	"github.com/ziadkadry99/docpilot/internal/workspace"
)

//go:embed index.html
var indexHTML []byte

const recentLimit = 10

// Dashboard provides the overview page and its data endpoints.
type Dashboard struct {
	service *workspace.Service
	audit   *audit.Store
	notifs  *notifications.Store
}

// New creates a new Dashboard. The audit and notification stores are optional.
func New(service *workspace.Service, auditStore *audit.Store, notifStore *notifications.Store) *Dashboard {
	return &Dashboard{
		service: service,
		audit:   auditStore,
		notifs:  notifStore,
	}
}

// RegisterRoutes mounts all dashboard routes onto the given router.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Get("/", d.ServeIndex)
	r.Get("/api/dashboard/stats", d.handleStats)
	r.Get("/api/dashboard/recent", d.handleRecent)
}

// ServeIndex serves the embedded HTML dashboard.
func (d *Dashboard) ServeIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}
