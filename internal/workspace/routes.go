package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/docpilot/internal/audit"
	"github.com/ziadkadry99/docpilot/internal/documents"
	"github.com/ziadkadry99/docpilot/internal/editplan"
	"github.com/ziadkadry99/docpilot/internal/spanedit"
)

const (
	maxUploadBytes = 32 << 20
	docxMediaType  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// RegisterRoutes mounts document endpoints on the given router.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/api/documents", func(r chi.Router) {
		r.Post("/", handleCreate(svc))
		r.Get("/", handleList(svc))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handleGet(svc))
			r.Delete("/", handleDelete(svc))
			r.Get("/content", handleContent(svc))
			r.Get("/download", handleDownload(svc))
			r.Get("/preview", handlePreview(svc))
			r.Get("/history", handleHistory(svc))
			r.Get("/chat", handleChat(svc))
			r.Post("/replace", handleReplace(svc))
			r.Post("/plan", handlePlan(svc))
			r.Post("/apply", handleApply(svc))
			r.Post("/instruct", handleInstruct(svc))
			r.Post("/ask", handleAsk(svc))
			r.Post("/audit", handleAudit(svc))
		})
	})
	r.Get("/api/search", handleSearch(svc))
}

// actorFromRequest identifies the caller from the X-Actor-ID header.
func actorFromRequest(r *http.Request) Actor {
	id := strings.TrimSpace(r.Header.Get("X-Actor-ID"))
	if id == "" {
		id = "api"
	}
	return Actor{Type: audit.ActorUser, ID: id}
}

func handleCreate(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		actor := actorFromRequest(r)

		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType == "multipart/form-data" {
			file, header, err := r.FormFile("file")
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is required"})
				return
			}
			defer file.Close()

			data, err := io.ReadAll(file)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reading upload: " + err.Error()})
				return
			}
			doc, err := svc.Import(r.Context(), actor, header.Filename, data)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, doc)
			return
		}

		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		doc, err := svc.Create(r.Context(), actor, req.Name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, doc)
	}
}

func handleList(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := svc.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

func handleGet(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

func handleDelete(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), actorFromRequest(r), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleContent(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := svc.Content(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

func handleDownload(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		meta, err := svc.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		data, err := svc.Export(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", docxMediaType)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": meta.Name}))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Write(data)
	}
}

func handlePreview(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := svc.Preview(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(page)
	}
}

func handleHistory(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := svc.History(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		if msgs == nil {
			msgs = []documents.ChatMessage{}
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

func handleReplace(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReplaceRequest
		if !decode(w, r, &req) {
			return
		}
		if req.Find == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "find is required"})
			return
		}
		res, err := svc.Replace(r.Context(), actorFromRequest(r), chi.URLParam(r, "id"), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

type instructionRequest struct {
	Instruction   string `json:"instruction"`
	AllowDegraded *bool  `json:"allow_degraded,omitempty"`
}

func handlePlan(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req instructionRequest
		if !decode(w, r, &req) {
			return
		}
		plan, err := svc.Plan(r.Context(), chi.URLParam(r, "id"), req.Instruction)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, plan)
	}
}

func handleApply(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reading request body"})
			return
		}
		plan, err := editplan.Parse(data)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		res, err := svc.ApplyPlan(r.Context(), actorFromRequest(r), chi.URLParam(r, "id"), plan)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleInstruct(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req instructionRequest
		if !decode(w, r, &req) {
			return
		}
		actor := actorFromRequest(r)
		actor.Type = audit.ActorAgent
		res, err := svc.Instruct(r.Context(), actor, chi.URLParam(r, "id"), req.Instruction, req.AllowDegraded)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleAsk(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Question string `json:"question"`
		}
		if !decode(w, r, &req) {
			return
		}
		answer, err := svc.Ask(r.Context(), chi.URLParam(r, "id"), req.Question)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
	}
}

func handleAudit(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Rules []string `json:"rules"`
		}
		if !decode(w, r, &req) {
			return
		}
		report, err := svc.AuditRules(r.Context(), chi.URLParam(r, "id"), req.Rules)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"passed":   report.Passed(),
			"findings": report.Findings,
			"summary":  report.Summary,
		})
	}
}

func handleSearch(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit := 10
		if v := q.Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}
		results, err := svc.Search(r.Context(), q.Get("q"), q.Get("document"), limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, documents.ErrNotFound):
		return http.StatusNotFound
	case IsInvalid(err):
		return http.StatusBadRequest
	case errors.Is(err, spanedit.ErrInconsistentSpan):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNoPlanner), errors.Is(err, ErrIndexDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
