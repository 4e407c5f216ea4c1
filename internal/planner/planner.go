// Package planner turns natural-language requests about a document into
// edit plans, answers, and rule audits using an LLM provider.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ziadkadry99/docpilot/internal/editplan"
	"github.com/ziadkadry99/docpilot/internal/llm"
	"github.com/ziadkadry99/docpilot/internal/richtext"
)

// DefaultContextBudget is the token budget for the document excerpt in a prompt.
const DefaultContextBudget = 24000

// maxHistory bounds the chat messages sent with a question.
const maxHistory = 10

var (
	// ErrEmptyRequest is returned for a blank instruction or question.
	ErrEmptyRequest = errors.New("empty request")
	// ErrNoRules is returned when Audit is called without rules.
	ErrNoRules = errors.New("no audit rules")
)

// Severity grades an audit finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Finding is one rule violation.
type Finding struct {
	Rule string `json:"rule"`
	// Paragraph is -1 for document-wide findings.
	Paragraph int      `json:"paragraph"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
}

// AuditReport is the result of checking a document against rules.
type AuditReport struct {
	Findings []Finding `json:"findings"`
	Summary  string    `json:"summary"`
}

// Passed reports whether no finding has error severity.
func (r *AuditReport) Passed() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Planner talks to an LLM on behalf of a document.
type Planner struct {
	provider llm.Provider
	model    string
	budget   int
	logger   *zap.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(p *Planner) { p.logger = l }
}

// WithContextBudget overrides DefaultContextBudget.
func WithContextBudget(tokens int) Option {
	return func(p *Planner) { p.budget = tokens }
}

// New creates a planner using provider. An empty model uses the provider's default.
func New(provider llm.Provider, model string, opts ...Option) *Planner {
	p := &Planner{
		provider: provider,
		model:    model,
		budget:   DefaultContextBudget,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Plan asks the model for an edit plan that carries out instruction on doc.
func (p *Planner) Plan(ctx context.Context, doc *richtext.Document, instruction string) (*editplan.Plan, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return nil, ErrEmptyRequest
	}

	resp, err := p.complete(ctx, "plan", llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: planSystemPrompt},
			{Role: llm.RoleUser, Content: buildPlanPrompt(doc, instruction, p.budget)},
		},
		MaxTokens:   4096,
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}

	plan, err := editplan.Parse([]byte(resp.Content))
	if err != nil {
		return nil, fmt.Errorf("parsing plan: %w", err)
	}
	return plan, nil
}

// Ask answers question about doc, continuing history.
func (p *Planner) Ask(ctx context.Context, doc *richtext.Document, history []llm.Message, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyRequest
	}

	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: askSystemPrompt})
	for _, m := range history {
		if m.Role == llm.RoleUser || m.Role == llm.RoleAssistant {
			messages = append(messages, m)
		}
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: buildAskPrompt(doc, question, p.budget)})

	resp, err := p.complete(ctx, "ask", llm.CompletionRequest{
		Messages:    messages,
		MaxTokens:   2048,
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

// Audit checks doc against rules.
func (p *Planner) Audit(ctx context.Context, doc *richtext.Document, rules []string) (*AuditReport, error) {
	var cleaned []string
	for _, r := range rules {
		if r = strings.TrimSpace(r); r != "" {
			cleaned = append(cleaned, r)
		}
	}
	if len(cleaned) == 0 {
		return nil, ErrNoRules
	}

	resp, err := p.complete(ctx, "audit", llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: auditSystemPrompt},
			{Role: llm.RoleUser, Content: buildAuditPrompt(doc, cleaned, p.budget)},
		},
		MaxTokens:   4096,
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}
	return parseAuditResponse(resp.Content, len(doc.Paragraphs))
}

func (p *Planner) complete(ctx context.Context, task string, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	req.Model = p.model
	resp, err := p.provider.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LLM completion (%s): %w", task, err)
	}
	p.logger.Debug("llm completion",
		zap.String("task", task),
		zap.String("provider", p.provider.Name()),
		zap.String("model", resp.Model),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens),
		zap.Float64("cost_usd", resp.Cost()),
	)
	return resp, nil
}

func parseAuditResponse(content string, paragraphs int) (*AuditReport, error) {
	jsonStr := content
	if idx := strings.Index(content, "{"); idx >= 0 {
		jsonStr = content[idx:]
	}
	if idx := strings.LastIndex(jsonStr, "}"); idx >= 0 {
		jsonStr = jsonStr[:idx+1]
	}

	var report AuditReport
	if err := json.Unmarshal([]byte(jsonStr), &report); err != nil {
		return nil, fmt.Errorf("parsing audit response: %w", err)
	}
	for i := range report.Findings {
		f := &report.Findings[i]
		switch f.Severity {
		case SeverityError, SeverityWarning, SeverityInfo:
		default:
			f.Severity = SeverityWarning
		}
		if f.Paragraph < -1 || f.Paragraph >= paragraphs {
			f.Paragraph = -1
		}
	}
	return &report, nil
}
