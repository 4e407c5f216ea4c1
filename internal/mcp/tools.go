package mcp

import "github.com/mark3labs/mcp-go/mcp"

// listDocumentsTool defines the list_documents MCP tool.
var listDocumentsTool = mcp.NewTool("list_documents",
	mcp.WithDescription("List the stored documents with their IDs, names, paragraph counts and versions."),
)

// getDocumentTool defines the get_document MCP tool.
var getDocumentTool = mcp.NewTool("get_document",
	mcp.WithDescription("Get the content of a document as numbered paragraphs, or as the full run-level JSON model."),
	mcp.WithString("document_id",
		mcp.Required(),
		mcp.Description("ID of the document"),
	),
	mcp.WithString("format",
		mcp.Description("Output format (default text)"),
		mcp.Enum("text", "json"),
	),
)

// replaceTextTool defines the replace_text MCP tool.
var replaceTextTool = mcp.NewTool("replace_text",
	mcp.WithDescription("Find and replace text in a document while preserving the formatting of the surrounding runs. Matches never cross paragraph boundaries."),
	mcp.WithString("document_id",
		mcp.Required(),
		mcp.Description("ID of the document"),
	),
	mcp.WithString("find",
		mcp.Required(),
		mcp.Description("Exact text to find"),
	),
	mcp.WithString("replace",
		mcp.Required(),
		mcp.Description("Replacement text"),
	),
	mcp.WithBoolean("all",
		mcp.Description("Replace every occurrence instead of only the first"),
	),
	mcp.WithBoolean("allow_degraded",
		mcp.Description("Allow a whole-paragraph rewrite that discards formatting when a match cannot be applied to the runs"),
	),
)

// applyEditPlanTool defines the apply_edit_plan MCP tool.
var applyEditPlanTool = mcp.NewTool("apply_edit_plan",
	mcp.WithDescription(`Apply a structured edit plan to a document. The plan is a JSON object {"summary": "...", "ops": [...]} where each op is one of replace_span, replace_all, insert_paragraph, append_paragraph, delete_paragraph, set_style.`),
	mcp.WithString("document_id",
		mcp.Required(),
		mcp.Description("ID of the document"),
	),
	mcp.WithString("plan",
		mcp.Required(),
		mcp.Description("The edit plan as JSON"),
	),
)

// searchDocumentsTool defines the search_documents MCP tool.
var searchDocumentsTool = mcp.NewTool("search_documents",
	mcp.WithDescription("Search document paragraphs semantically."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithString("document_id",
		mcp.Description("Restrict the search to one document"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 10)"),
	),
)
