package editplan

import (
	"errors"
	"fmt"

	"github.com/ziadkadry99/docpilot/internal/richtext"
	"github.com/ziadkadry99/docpilot/internal/spanedit"
)

// Outcome records what one op did.
type Outcome struct {
	Op       Op     `json:"op"`
	Applied  bool   `json:"applied"`
	Count    int    `json:"count"`
	Degraded bool   `json:"degraded,omitempty"`
	Capped   bool   `json:"capped,omitempty"`
	Err      string `json:"error,omitempty"`
}

// Report is the result of applying a plan.
type Report struct {
	Summary  string    `json:"summary,omitempty"`
	Outcomes []Outcome `json:"outcomes"`
	// Applied counts ops that changed the document.
	Applied int `json:"applied"`
	// Replacements totals text replacements across all ops.
	Replacements int  `json:"replacements"`
	Degraded     bool `json:"degraded"`
	Failed       int  `json:"failed"`
}

// Changed reports whether any op mutated the document.
func (r *Report) Changed() bool {
	return r.Applied > 0
}

// Apply validates plan and then applies its ops to doc in order. An invalid
// plan is rejected before anything is mutated. Once validated, each op is
// attempted independently; a failing op is recorded in its Outcome and the
// remaining ops still run. A nil editor uses a formatting-preserving editor
// with default options.
func Apply(doc *richtext.Document, plan *Plan, editor *spanedit.Editor) (*Report, error) {
	if doc == nil {
		return nil, spanedit.ErrNilDocument
	}
	if plan == nil {
		return nil, fmt.Errorf("%w: nil plan", ErrInvalidPlan)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if editor == nil {
		editor = spanedit.New(spanedit.Options{})
	}

	report := &Report{Summary: plan.Summary, Outcomes: make([]Outcome, 0, len(plan.Ops))}
	for _, op := range plan.Ops {
		out := applyOp(doc, op, editor)
		if out.Applied {
			report.Applied++
		}
		if out.Err != "" {
			report.Failed++
		}
		report.Replacements += out.Count
		report.Degraded = report.Degraded || out.Degraded
		report.Outcomes = append(report.Outcomes, out)
	}
	return report, nil
}

func applyOp(doc *richtext.Document, op Op, editor *spanedit.Editor) Outcome {
	out := Outcome{Op: op}
	var err error
	switch op.Op {
	case KindReplaceSpan:
		if op.All {
			err = replaceAll(doc, op, editor, &out)
		} else {
			err = replaceFirst(doc, op, editor, &out)
		}
	case KindReplaceAll:
		err = replaceAll(doc, op, editor, &out)
	case KindInsertParagraph:
		err = doc.InsertParagraph(op.After+1, newParagraph(op))
		out.Applied = err == nil
	case KindAppendParagraph:
		doc.AppendParagraph(newParagraph(op))
		out.Applied = true
	case KindDeleteParagraph:
		_, err = doc.RemoveParagraph(op.Index)
		out.Applied = err == nil
	case KindSetStyle:
		var p *richtext.Paragraph
		if p, err = doc.Paragraph(op.Index); err == nil {
			out.Applied = p.Style != op.Style
			p.Style = op.Style
		}
	default:
		err = fmt.Errorf("unknown op %q", op.Op)
	}
	if err != nil {
		out.Err = err.Error()
	}
	return out
}

func replaceFirst(doc *richtext.Document, op Op, editor *spanedit.Editor, out *Outcome) error {
	res, err := editor.ReplaceFirstInDocument(doc, op.Find, op.Replace)
	recordResult(out, res)
	return err
}

func replaceAll(doc *richtext.Document, op Op, editor *spanedit.Editor, out *Outcome) error {
	res, err := editor.ReplaceDocument(doc, op.Find, op.Replace)
	recordResult(out, res)
	return err
}

func recordResult(out *Outcome, res spanedit.DocumentResult) {
	out.Applied = res.Count > 0
	out.Count = res.Count
	out.Degraded = res.Degraded
	out.Capped = res.Capped
}

func newParagraph(op Op) *richtext.Paragraph {
	p := richtext.NewParagraph(op.Text, richtext.Format{})
	p.Style = op.Style
	return p
}

// IsInvalid reports whether err is a plan validation failure.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidPlan)
}
