package planner

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/docpilot/internal/editplan"
	"github.com/ziadkadry99/docpilot/internal/llm"
	"github.com/ziadkadry99/docpilot/internal/richtext"
)

const planSystemPrompt = `You are a document editing planner. You receive a word-processing document as numbered paragraphs and an editing instruction. You never write code; you express the edit as a JSON plan using only the operations listed below.

You MUST respond with valid JSON matching this schema:
{
  "summary": "one sentence describing the edit",
  "ops": [
    {"op": "replace_span", "find": "exact text", "replace": "new text", "all": false},
    {"op": "replace_all", "find": "exact text", "replace": "new text"},
    {"op": "insert_paragraph", "after": 3, "text": "new paragraph", "style": "optional style"},
    {"op": "append_paragraph", "text": "new paragraph", "style": "optional style"},
    {"op": "delete_paragraph", "index": 5},
    {"op": "set_style", "index": 0, "style": "Heading1"}
  ]
}

Rules:
- "find" must be copied exactly from one paragraph; it never spans two paragraphs
- Prefer the smallest "find" that is unique, so surrounding formatting is kept
- Paragraph indexes refer to the document as it is after the previous ops ran
- "after": -1 inserts before the first paragraph
- If the instruction needs no change, return an empty "ops" list and explain in "summary"`

const askSystemPrompt = `You are a document assistant. Answer questions about the document provided, quoting it where useful and citing paragraph numbers like [3]. If the document does not contain the answer, say so.`

const auditSystemPrompt = `You are a document reviewer. Check the document against each rule and report every violation.

You MUST respond with valid JSON matching this schema:
{
  "findings": [
    {
      "rule": "the rule text, copied exactly",
      "paragraph": 4,
      "severity": "error|warning|info",
      "message": "what is wrong and how to fix it"
    }
  ],
  "summary": "overall assessment"
}

Use "paragraph": -1 when a finding concerns the whole document. Return an empty "findings" list when every rule is satisfied.`

// renderDocument numbers the paragraphs of d, stopping once the estimated
// token count passes budget.
func renderDocument(d *richtext.Document, budget int) string {
	var b strings.Builder
	used := 0
	for i, p := range d.Paragraphs {
		line := formatParagraph(i, p)
		used += llm.EstimateTokens(line)
		if budget > 0 && used > budget && i > 0 {
			fmt.Fprintf(&b, "(%d more paragraphs omitted)\n", len(d.Paragraphs)-i)
			break
		}
		b.WriteString(line)
	}
	if len(d.Paragraphs) == 0 {
		b.WriteString("(The document is empty)\n")
	}
	return b.String()
}

func formatParagraph(i int, p *richtext.Paragraph) string {
	if p.Style != "" {
		return fmt.Sprintf("[%d] (%s) %s\n", i, p.Style, p.Text())
	}
	return fmt.Sprintf("[%d] %s\n", i, p.Text())
}

func buildPlanPrompt(d *richtext.Document, instruction string, budget int) string {
	var b strings.Builder
	b.WriteString("## Document\n")
	b.WriteString(renderDocument(d, budget))
	b.WriteString("\n## Allowed Operations\n")
	for _, k := range editplan.Kinds {
		fmt.Fprintf(&b, "- %s\n", k)
	}
	fmt.Fprintf(&b, "\n## Instruction\n%s\n", instruction)
	return b.String()
}

func buildAskPrompt(d *richtext.Document, question string, budget int) string {
	var b strings.Builder
	b.WriteString("## Document\n")
	b.WriteString(renderDocument(d, budget))
	fmt.Fprintf(&b, "\n## Question\n%s\n", question)
	return b.String()
}

func buildAuditPrompt(d *richtext.Document, rules []string, budget int) string {
	var b strings.Builder
	b.WriteString("## Rules\n")
	for _, r := range rules {
		fmt.Fprintf(&b, "- %s\n", r)
	}
	b.WriteString("\n## Document\n")
	b.WriteString(renderDocument(d, budget))
	return b.String()
}
