// Package workspace coordinates document edits: it applies them through the
// span editor, records them in the audit trail and keeps the paragraph index
// current.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ziadkadry99/docpilot/internal/audit"
	"github.com/ziadkadry99/docpilot/internal/documents"
	"github.com/ziadkadry99/docpilot/internal/editplan"
	"github.com/ziadkadry99/docpilot/internal/llm"
	"github.com/ziadkadry99/docpilot/internal/notifications"
	"github.com/ziadkadry99/docpilot/internal/planner"
	"github.com/ziadkadry99/docpilot/internal/preview"
	"github.com/ziadkadry99/docpilot/internal/richtext"
	"github.com/ziadkadry99/docpilot/internal/spanedit"
	"github.com/ziadkadry99/docpilot/internal/vectordb"
)

const chatHistoryLimit = 10

var (
	// ErrNoPlanner is returned by LLM-backed operations when no provider is configured.
	ErrNoPlanner = errors.New("LLM provider not configured")
	// ErrIndexDisabled is returned by Search when no vector index is configured.
	ErrIndexDisabled = errors.New("search index not configured")
	// ErrEmptyQuery is returned for a blank search query.
	ErrEmptyQuery = errors.New("empty query")
)

// IsInvalid reports whether err was caused by bad client input.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrEmptyQuery) ||
		errors.Is(err, documents.ErrInvalidDocument) ||
		errors.Is(err, planner.ErrEmptyRequest) ||
		errors.Is(err, planner.ErrNoRules) ||
		editplan.IsInvalid(err)
}

// Actor identifies who requested a change.
type Actor struct {
	Type audit.ActorType
	ID   string
}

// Notifier receives change notifications.
type Notifier interface {
	Dispatch(ctx context.Context, n notifications.Notification) error
}

// Config holds the collaborators of a Service. Planner, Index and Notifier
// are optional.
type Config struct {
	Documents *documents.Store
	Audit     *audit.Store
	Planner   *planner.Planner
	Index     vectordb.VectorStore
	Notifier  Notifier
	// IndexDir is where the index is persisted after each update. Empty
	// keeps the index in memory only.
	IndexDir string
	Editor   spanedit.Options
	Logger   *zap.Logger
}

// Service is the entry point for every document operation.
type Service struct {
	docs       *documents.Store
	audit      *audit.Store
	planner    *planner.Planner
	index      vectordb.VectorStore
	notifier   Notifier
	indexDir   string
	editorOpts spanedit.Options
	renderer   *preview.Renderer
	logger     *zap.Logger
}

// New creates a Service.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		docs:       cfg.Documents,
		audit:      cfg.Audit,
		planner:    cfg.Planner,
		index:      cfg.Index,
		notifier:   cfg.Notifier,
		indexDir:   cfg.IndexDir,
		editorOpts: cfg.Editor,
		renderer:   preview.New(),
		logger:     logger,
	}
}

// ReplaceRequest is a find/replace against a whole document.
type ReplaceRequest struct {
	Find    string `json:"find"`
	Replace string `json:"replace"`
	All     bool   `json:"all"`
	// AllowDegraded overrides the configured fallback setting when set.
	AllowDegraded *bool `json:"allow_degraded,omitempty"`
}

// ReplaceResult reports the outcome of a ReplaceRequest.
type ReplaceResult struct {
	Document *documents.Document `json:"document"`
	spanedit.DocumentResult
}

// PlanResult reports the outcome of applying an edit plan.
type PlanResult struct {
	Document *documents.Document `json:"document"`
	Plan     *editplan.Plan      `json:"plan"`
	Report   *editplan.Report    `json:"report"`
}

// Create stores a new blank document.
func (s *Service) Create(ctx context.Context, actor Actor, name string) (*documents.Document, error) {
	doc, err := s.docs.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, audit.Entry{Action: audit.ActionDocumentCreated, DocumentID: doc.ID, Summary: doc.Name, Version: doc.Version})
	s.notify(ctx, doc, notifications.TypeDocumentCreated, notifications.SeverityInfo, "created blank document")
	return doc, nil
}

// Import stores a copy of an uploaded .docx and indexes it.
func (s *Service) Import(ctx context.Context, actor Actor, name string, data []byte) (*documents.Document, error) {
	doc, err := s.docs.Import(ctx, name, data)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, audit.Entry{Action: audit.ActionDocumentImported, DocumentID: doc.ID, Summary: doc.Name, Version: doc.Version})
	s.notify(ctx, doc, notifications.TypeDocumentCreated, notifications.SeverityInfo,
		fmt.Sprintf("imported %d paragraph(s)", doc.Paragraphs))
	s.reindexBestEffort(ctx, doc.ID)
	return doc, nil
}

// Get returns document metadata.
func (s *Service) Get(ctx context.Context, id string) (*documents.Document, error) {
	return s.docs.Get(ctx, id)
}

// List returns all documents.
func (s *Service) List(ctx context.Context) ([]documents.Document, error) {
	return s.docs.List(ctx)
}

// Export returns the .docx bytes of a document.
func (s *Service) Export(ctx context.Context, id string) ([]byte, error) {
	return s.docs.Export(ctx, id)
}

// Delete removes a document and its index entries.
func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	meta, err := s.docs.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, audit.Entry{Action: audit.ActionDocumentDeleted, DocumentID: id, Summary: meta.Name})
	s.notify(ctx, meta, notifications.TypeDocumentDeleted, notifications.SeverityWarning,
		fmt.Sprintf("deleted by %s", actor.ID))
	if s.index != nil {
		if err := s.index.DeleteByDocument(ctx, id); err != nil {
			s.logger.Warn("removing document from index", zap.String("id", id), zap.Error(err))
		} else {
			s.persistIndex(ctx)
		}
	}
	return nil
}

// Content returns a copy of the document model.
func (s *Service) Content(ctx context.Context, id string) (*richtext.Document, error) {
	var out *richtext.Document
	err := s.docs.View(ctx, id, func(d *richtext.Document) error {
		out = d.Clone()
		return nil
	})
	return out, err
}

// Preview renders the document as an HTML page.
func (s *Service) Preview(ctx context.Context, id string) ([]byte, error) {
	meta, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	doc, err := s.Content(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.renderer.Page(meta.Name, doc)
}

func (s *Service) newEditor(allowDegraded *bool) *spanedit.Editor {
	opts := s.editorOpts
	if allowDegraded != nil {
		opts.AllowDegraded = *allowDegraded
	}
	return spanedit.New(opts)
}

// Replace substitutes the first occurrence of req.Find in document order,
// or every occurrence in every paragraph when req.All is set. Matches never
// span paragraphs. A search with no match leaves the document untouched.
func (s *Service) Replace(ctx context.Context, actor Actor, id string, req ReplaceRequest) (*ReplaceResult, error) {
	editor := s.newEditor(req.AllowDegraded)
	var res spanedit.DocumentResult

	meta, err := s.docs.Edit(ctx, id, func(d *richtext.Document) error {
		var err error
		if res, err = editor.ReplaceInDocument(d, req.Find, req.Replace, req.All); err != nil {
			return err
		}
		if res.Count == 0 {
			return documents.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Count == 0 {
		return &ReplaceResult{Document: meta, DocumentResult: res}, nil
	}

	action := audit.ActionReplace
	if req.All {
		action = audit.ActionReplaceAll
	}
	s.record(ctx, actor, audit.Entry{
		Action:     action,
		DocumentID: id,
		Find:       req.Find,
		Replace:    req.Replace,
		Count:      res.Count,
		Degraded:   res.Degraded,
		Version:    meta.Version,
	})
	s.notify(ctx, meta, notifications.TypeDocumentEdited, notifications.SeverityInfo,
		fmt.Sprintf("replaced %q with %q (%d occurrence(s))", req.Find, req.Replace, res.Count))
	if res.Degraded {
		s.recordDegraded(ctx, actor, meta, res.Paragraphs)
	}
	s.reindexBestEffort(ctx, id)
	return &ReplaceResult{Document: meta, DocumentResult: res}, nil
}

// Plan asks the LLM for an edit plan without applying it.
func (s *Service) Plan(ctx context.Context, id, instruction string) (*editplan.Plan, error) {
	if s.planner == nil {
		return nil, ErrNoPlanner
	}
	doc, err := s.Content(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.planner.Plan(ctx, doc, instruction)
}

// ApplyPlan validates and applies plan to the document.
func (s *Service) ApplyPlan(ctx context.Context, actor Actor, id string, plan *editplan.Plan) (*PlanResult, error) {
	return s.applyPlan(ctx, actor, id, plan, audit.ActionPlanApplied, nil)
}

// Instruct plans and applies a natural-language instruction.
func (s *Service) Instruct(ctx context.Context, actor Actor, id, instruction string, allowDegraded *bool) (*PlanResult, error) {
	plan, err := s.Plan(ctx, id, instruction)
	if err != nil {
		return nil, err
	}
	return s.applyPlan(ctx, actor, id, plan, audit.ActionInstructionApplied, allowDegraded)
}

func (s *Service) applyPlan(ctx context.Context, actor Actor, id string, plan *editplan.Plan, action audit.Action, allowDegraded *bool) (*PlanResult, error) {
	if plan == nil {
		return nil, fmt.Errorf("%w: nil plan", editplan.ErrInvalidPlan)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	editor := s.newEditor(allowDegraded)
	var report *editplan.Report
	meta, err := s.docs.Edit(ctx, id, func(d *richtext.Document) error {
		var err error
		report, err = editplan.Apply(d, plan, editor)
		if err != nil {
			return err
		}
		if !report.Changed() {
			return documents.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &PlanResult{Document: meta, Plan: plan, Report: report}
	if !report.Changed() {
		return result, nil
	}

	detail, _ := json.Marshal(report)
	s.record(ctx, actor, audit.Entry{
		Action:     action,
		DocumentID: id,
		Count:      report.Replacements,
		Degraded:   report.Degraded,
		Summary:    plan.Summary,
		Detail:     string(detail),
		Version:    meta.Version,
	})
	summary := plan.Summary
	if summary == "" {
		summary = fmt.Sprintf("applied %d operation(s)", len(plan.Ops))
	}
	s.notify(ctx, meta, notifications.TypeDocumentEdited, notifications.SeverityInfo, summary)
	if report.Degraded {
		s.recordDegraded(ctx, actor, meta, nil)
	}
	s.reindexBestEffort(ctx, id)
	return result, nil
}

// Ask answers a question about the document and stores both turns in the
// document's chat history.
func (s *Service) Ask(ctx context.Context, id, question string) (string, error) {
	if s.planner == nil {
		return "", ErrNoPlanner
	}
	doc, err := s.Content(ctx, id)
	if err != nil {
		return "", err
	}
	past, err := s.docs.History(ctx, id, chatHistoryLimit)
	if err != nil {
		return "", err
	}
	history := make([]llm.Message, len(past))
	for i, m := range past {
		history[i] = llm.Message{Role: llm.Role(m.Role), Content: m.Content}
	}

	answer, err := s.planner.Ask(ctx, doc, history, question)
	if err != nil {
		return "", err
	}
	if err := s.docs.AppendMessage(ctx, id, string(llm.RoleUser), strings.TrimSpace(question)); err != nil {
		s.logger.Warn("storing chat message", zap.String("id", id), zap.Error(err))
	}
	if err := s.docs.AppendMessage(ctx, id, string(llm.RoleAssistant), answer); err != nil {
		s.logger.Warn("storing chat message", zap.String("id", id), zap.Error(err))
	}
	return answer, nil
}

// History returns the stored chat turns for a document.
func (s *Service) History(ctx context.Context, id string) ([]documents.ChatMessage, error) {
	if _, err := s.docs.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.docs.History(ctx, id, 0)
}

// AuditRules checks the document against natural-language rules.
func (s *Service) AuditRules(ctx context.Context, id string, rules []string) (*planner.AuditReport, error) {
	if s.planner == nil {
		return nil, ErrNoPlanner
	}
	doc, err := s.Content(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.planner.Audit(ctx, doc, rules)
}

// Search finds paragraphs similar to query, optionally within one document.
func (s *Service) Search(ctx context.Context, query, documentID string, limit int) ([]vectordb.SearchResult, error) {
	if s.index == nil {
		return nil, ErrIndexDisabled
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	var filter *vectordb.SearchFilter
	if documentID != "" {
		filter = &vectordb.SearchFilter{DocumentID: &documentID}
	}
	results, err := s.index.Search(ctx, query, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	if results == nil {
		results = []vectordb.SearchResult{}
	}
	return results, nil
}

// IndexCount returns the number of indexed paragraphs and whether search
// is enabled.
func (s *Service) IndexCount() (int, bool) {
	if s.index == nil {
		return 0, false
	}
	return s.index.Count(), true
}

// Reindex replaces the index entries of one document and returns how many
// paragraphs were indexed.
func (s *Service) Reindex(ctx context.Context, id string) (int, error) {
	if s.index == nil {
		return 0, ErrIndexDisabled
	}
	n, err := s.reindex(ctx, id)
	if err != nil {
		return 0, err
	}
	s.persistIndex(ctx)
	return n, nil
}

// ReindexAll rebuilds the index entries of every document.
func (s *Service) ReindexAll(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, ErrIndexDisabled
	}
	docs, err := s.docs.List(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, d := range docs {
		n, err := s.reindex(ctx, d.ID)
		if err != nil {
			return total, fmt.Errorf("indexing %s: %w", d.Name, err)
		}
		total += n
	}
	s.persistIndex(ctx)
	return total, nil
}

func (s *Service) reindex(ctx context.Context, id string) (int, error) {
	meta, err := s.docs.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	doc, err := s.Content(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := s.index.DeleteByDocument(ctx, id); err != nil {
		return 0, fmt.Errorf("clearing index entries: %w", err)
	}
	entries := vectordb.ParagraphDocuments(id, meta.Name, doc)
	if err := s.index.AddDocuments(ctx, entries); err != nil {
		return 0, fmt.Errorf("adding index entries: %w", err)
	}
	return len(entries), nil
}

func (s *Service) reindexBestEffort(ctx context.Context, id string) {
	if s.index == nil {
		return
	}
	n, err := s.reindex(ctx, id)
	if err != nil {
		s.logger.Warn("reindexing document", zap.String("id", id), zap.Error(err))
		return
	}
	s.persistIndex(ctx)
	s.logger.Debug("document reindexed", zap.String("id", id), zap.Int("paragraphs", n))
}

func (s *Service) persistIndex(ctx context.Context) {
	if s.indexDir == "" {
		return
	}
	if err := s.index.Persist(ctx, s.indexDir); err != nil {
		s.logger.Warn("persisting index", zap.String("dir", s.indexDir), zap.Error(err))
	}
}

func (s *Service) record(ctx context.Context, actor Actor, e audit.Entry) {
	if s.audit == nil {
		return
	}
	e.ActorType = actor.Type
	e.ActorID = actor.ID
	if err := s.audit.Log(ctx, e); err != nil {
		s.logger.Warn("writing audit entry", zap.String("action", string(e.Action)), zap.Error(err))
	}
}

func (s *Service) recordDegraded(ctx context.Context, actor Actor, meta *documents.Document, paragraphs []spanedit.ParagraphResult) {
	var idx []int
	for _, p := range paragraphs {
		if p.Degraded {
			idx = append(idx, p.Index)
		}
	}
	detail, _ := json.Marshal(map[string]any{"paragraphs": idx})
	s.logger.Warn("formatting discarded by raw fallback", zap.String("id", meta.ID), zap.Ints("paragraphs", idx))
	s.record(ctx, actor, audit.Entry{
		Action:     audit.ActionDegradedFallback,
		DocumentID: meta.ID,
		Degraded:   true,
		Detail:     string(detail),
		Version:    meta.Version,
	})

	msg := "formatting of the edited paragraphs was discarded"
	if len(idx) > 0 {
		msg = fmt.Sprintf("formatting of paragraph(s) %v was discarded", idx)
	}
	s.notify(ctx, meta, notifications.TypeDegradedEdit, notifications.SeverityWarning, msg)
}

func (s *Service) notify(ctx context.Context, meta *documents.Document, typ notifications.NotificationType, sev notifications.Severity, msg string) {
	if s.notifier == nil {
		return
	}
	n := notifications.Notification{
		Type:         typ,
		Severity:     sev,
		DocumentID:   meta.ID,
		DocumentName: meta.Name,
		Title:        fmt.Sprintf("%s: %s", meta.Name, strings.ReplaceAll(string(typ), "_", " ")),
		Message:      msg,
		Version:      meta.Version,
	}
	if err := s.notifier.Dispatch(ctx, n); err != nil {
		s.logger.Warn("dispatching notification", zap.String("type", string(typ)), zap.Error(err))
	}
}
