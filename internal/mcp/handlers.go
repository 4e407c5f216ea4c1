package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/docpilot/internal/documents"
	"github.com/ziadkadry99/docpilot/internal/editplan"
	"github.com/ziadkadry99/docpilot/internal/vectordb"
	"github.com/ziadkadry99/docpilot/internal/workspace"
)

// handleListDocuments lists every stored document.
func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.svc.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing documents failed: %v", err)), nil
	}
	if len(docs) == 0 {
		return mcp.NewToolResultText("No documents stored yet."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d document(s):\n", len(docs))
	for _, d := range docs {
		fmt.Fprintf(&sb, "- %s  %s  (%d paragraphs, version %d, updated %s)\n",
			d.ID, d.Name, d.Paragraphs, d.Version, d.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleGetDocument returns the content of one document.
func (s *Server) handleGetDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: document_id"), nil
	}

	doc, err := s.svc.Content(ctx, id)
	if err != nil {
		return errorResult(err), nil
	}

	if request.GetString("format", "text") == "json" {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encoding document: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}

	if len(doc.Paragraphs) == 0 {
		return mcp.NewToolResultText("(The document is empty)"), nil
	}
	var sb strings.Builder
	for i, p := range doc.Paragraphs {
		if p.Style != "" {
			fmt.Fprintf(&sb, "[%d] (%s) %s\n", i, p.Style, p.Text())
		} else {
			fmt.Fprintf(&sb, "[%d] %s\n", i, p.Text())
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleReplaceText runs a find/replace against a document.
func (s *Server) handleReplaceText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: document_id"), nil
	}
	find, err := request.RequireString("find")
	if err != nil || find == "" {
		return mcp.NewToolResultError("missing required parameter: find"), nil
	}
	replace, err := request.RequireString("replace")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: replace"), nil
	}

	req := workspace.ReplaceRequest{
		Find:    find,
		Replace: replace,
		All:     request.GetBool("all", false),
	}
	if allow := request.GetBool("allow_degraded", false); allow {
		req.AllowDegraded = &allow
	}

	res, err := s.svc.Replace(ctx, actor, id, req)
	if err != nil {
		return errorResult(err), nil
	}
	if res.Count == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No occurrence of %q found; the document was not changed.", find)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Replaced %d occurrence(s) in %s (now version %d).\n", res.Count, res.Document.Name, res.Document.Version)
	if res.Degraded {
		sb.WriteString("Warning: formatting was discarded in at least one paragraph.\n")
	}
	if res.Capped {
		sb.WriteString("Warning: the per-paragraph replacement limit was reached; occurrences remain.\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleApplyEditPlan validates and applies an edit plan.
func (s *Server) handleApplyEditPlan(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: document_id"), nil
	}
	raw, err := request.RequireString("plan")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: plan"), nil
	}

	plan, err := editplan.Parse([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid plan: %v", err)), nil
	}
	res, err := s.svc.ApplyPlan(ctx, actor, id, plan)
	if err != nil {
		return errorResult(err), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Applied %d of %d op(s); %d replacement(s).\n", res.Report.Applied, len(plan.Ops), res.Report.Replacements)
	for _, o := range res.Report.Outcomes {
		status := "ok"
		switch {
		case o.Err != "":
			status = "failed: " + o.Err
		case !o.Applied:
			status = "no change"
		case o.Degraded:
			status = "ok (formatting discarded)"
		}
		fmt.Fprintf(&sb, "- %s: %s\n", o.Op, status)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleSearchDocuments performs semantic search over document paragraphs.
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}

	results, err := s.svc.Search(ctx, query, request.GetString("document_id", ""), limit)
	if err != nil {
		return errorResult(err), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No results found. The documents may not be indexed yet. Run `docpilot index` to index them."), nil
	}
	return mcp.NewToolResultText(vectordb.FormatResults(results)), nil
}

func errorResult(err error) *mcp.CallToolResult {
	if errors.Is(err, documents.ErrNotFound) {
		return mcp.NewToolResultError("document not found; use list_documents to see available IDs")
	}
	return mcp.NewToolResultError(err.Error())
}
