package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/ziadkadry99/docpilot/internal/audit"
	"github.com/ziadkadry99/docpilot/internal/notifications"
)

// statsResponse is the JSON response for the stats endpoint.
type statsResponse struct {
	Documents            int  `json:"documents"`
	Paragraphs           int  `json:"paragraphs"`
	Edits                int  `json:"edits"`
	DegradedEdits        int  `json:"degraded_edits"`
	PendingNotifications int  `json:"pending_notifications"`
	SearchEnabled        bool `json:"search_enabled"`
	IndexedParagraphs    int  `json:"indexed_paragraphs"`
}

// recentResponse is the JSON response for the recent activity endpoint.
type recentResponse struct {
	Activity      []audit.Entry                `json:"activity"`
	Notifications []notifications.Notification `json:"notifications"`
}

var editActions = []audit.Action{
	audit.ActionReplace,
	audit.ActionReplaceAll,
	audit.ActionPlanApplied,
	audit.ActionInstructionApplied,
}

func (d *Dashboard) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docs, err := d.service.List(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	var stats statsResponse
	stats.Documents = len(docs)
	for _, doc := range docs {
		stats.Paragraphs += doc.Paragraphs
	}

	if d.audit != nil {
		counts, err := d.audit.CountByAction(ctx)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		for _, a := range editActions {
			stats.Edits += counts[a]
		}
		stats.DegradedEdits = counts[audit.ActionDegradedFallback]
	}

	if d.notifs != nil {
		pending, err := d.notifs.GetPending(ctx)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		stats.PendingNotifications = len(pending)
	}

	stats.IndexedParagraphs, stats.SearchEnabled = d.service.IndexCount()

	writeJSON(w, http.StatusOK, stats)
}

func (d *Dashboard) handleRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := recentResponse{
		Activity:      []audit.Entry{},
		Notifications: []notifications.Notification{},
	}

	if d.audit != nil {
		entries, err := d.audit.Query(ctx, audit.QueryFilter{Limit: recentLimit})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if entries != nil {
			resp.Activity = entries
		}
	}

	if d.notifs != nil {
		notes, err := d.notifs.List(ctx, notifications.ListFilter{Limit: recentLimit})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		resp.Notifications = notes
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
