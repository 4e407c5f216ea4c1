// Package audit records every change made to a document.
package audit

import "time"

// ActorType identifies who performed an action.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorSystem ActorType = "system"
	// ActorAgent is an LLM acting on an instruction or an MCP client.
	ActorAgent ActorType = "agent"
)

// Action describes what was done.
type Action string

const (
	ActionDocumentCreated    Action = "document_created"
	ActionDocumentImported   Action = "document_imported"
	ActionDocumentDeleted    Action = "document_deleted"
	ActionReplace            Action = "replace"
	ActionReplaceAll         Action = "replace_all"
	ActionPlanApplied        Action = "plan_applied"
	ActionInstructionApplied Action = "instruction_applied"
	ActionDegradedFallback   Action = "degraded_fallback"
)

// Entry is a single audit trail record.
type Entry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	ActorType  ActorType `json:"actor_type"`
	ActorID    string    `json:"actor_id"`
	Action     Action    `json:"action"`
	DocumentID string    `json:"document_id,omitempty"`
	Find       string    `json:"find,omitempty"`
	Replace    string    `json:"replace,omitempty"`
	Count      int       `json:"count"`
	Degraded   bool      `json:"degraded"`
	Summary    string    `json:"summary,omitempty"`
	// Detail holds the JSON-encoded plan or report for plan actions.
	Detail string `json:"detail,omitempty"`
	// Version is the document version the change produced.
	Version int `json:"version,omitempty"`
}
