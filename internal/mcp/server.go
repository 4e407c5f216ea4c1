package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/docpilot/internal/audit"
	"github.com/ziadkadry99/docpilot/internal/workspace"
)

// Version is set via ldflags at build time.
var Version = "dev"

// actor is recorded in the audit trail for every change made over MCP.
var actor = workspace.Actor{Type: audit.ActorAgent, ID: "mcp"}

// Server wraps an MCP server that exposes document tools.
type Server struct {
	svc *workspace.Service
	mcp *server.MCPServer
}

// NewServer creates a new MCP server backed by svc.
func NewServer(svc *workspace.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"docpilot",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(listDocumentsTool, s.handleListDocuments)
	s.mcp.AddTool(getDocumentTool, s.handleGetDocument)
	s.mcp.AddTool(replaceTextTool, s.handleReplaceText)
	s.mcp.AddTool(applyEditPlanTool, s.handleApplyEditPlan)
	s.mcp.AddTool(searchDocumentsTool, s.handleSearchDocuments)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
