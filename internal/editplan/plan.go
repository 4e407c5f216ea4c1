// Package editplan defines the closed set of structured edits that can be
// applied to a document, and turns model output into such plans.
package editplan

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind names an edit operation.
type Kind string

const (
	KindReplaceSpan     Kind = "replace_span"
	KindReplaceAll      Kind = "replace_all"
	KindInsertParagraph Kind = "insert_paragraph"
	KindAppendParagraph Kind = "append_paragraph"
	KindDeleteParagraph Kind = "delete_paragraph"
	KindSetStyle        Kind = "set_style"
)

// Kinds lists every supported operation in the order prompts present them.
var Kinds = []Kind{
	KindReplaceSpan,
	KindReplaceAll,
	KindInsertParagraph,
	KindAppendParagraph,
	KindDeleteParagraph,
	KindSetStyle,
}

var (
	// ErrInvalidPlan wraps every validation failure.
	ErrInvalidPlan = errors.New("invalid edit plan")
	// ErrNoPlan is returned when model output contains no JSON plan.
	ErrNoPlan = errors.New("no edit plan in response")
)

// Op is a single edit. Which fields matter depends on Op:
//
//	replace_span      Find, Replace, All
//	replace_all       Find, Replace
//	insert_paragraph  After, Text, Style (After -1 inserts at the top)
//	append_paragraph  Text, Style
//	delete_paragraph  Index
//	set_style         Index, Style
type Op struct {
	Op      Kind   `json:"op"`
	Find    string `json:"find,omitempty"`
	Replace string `json:"replace,omitempty"`
	Text    string `json:"text,omitempty"`
	Style   string `json:"style,omitempty"`
	Index   int    `json:"index,omitempty"`
	After   int    `json:"after,omitempty"`
	All     bool   `json:"all,omitempty"`
}

func (o Op) String() string {
	switch o.Op {
	case KindReplaceSpan, KindReplaceAll:
		return fmt.Sprintf("%s %q -> %q", o.Op, o.Find, o.Replace)
	case KindInsertParagraph:
		return fmt.Sprintf("%s after %d", o.Op, o.After)
	case KindDeleteParagraph, KindSetStyle:
		return fmt.Sprintf("%s %d", o.Op, o.Index)
	}
	return string(o.Op)
}

// Plan is an ordered list of edits with a human-readable summary.
type Plan struct {
	Summary string `json:"summary,omitempty"`
	Ops     []Op   `json:"ops"`
}

// Validate checks every op for a known kind and its required fields. It
// does not check paragraph indexes against a document; those depend on
// the ops applied before them.
func (p Plan) Validate() error {
	var errs []error
	for i, op := range p.Ops {
		if err := op.validate(); err != nil {
			errs = append(errs, fmt.Errorf("op %d: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, errors.Join(errs...))
	}
	return nil
}

func (o Op) validate() error {
	switch o.Op {
	case KindReplaceSpan, KindReplaceAll:
		if o.Find == "" {
			return fmt.Errorf("%s requires find", o.Op)
		}
	case KindInsertParagraph:
		if o.After < -1 {
			return fmt.Errorf("insert_paragraph after %d", o.After)
		}
	case KindAppendParagraph:
	case KindDeleteParagraph:
		if o.Index < 0 {
			return fmt.Errorf("delete_paragraph index %d", o.Index)
		}
	case KindSetStyle:
		if o.Index < 0 {
			return fmt.Errorf("set_style index %d", o.Index)
		}
		if o.Style == "" {
			return errors.New("set_style requires style")
		}
	case "":
		return errors.New("missing op")
	default:
		return fmt.Errorf("unknown op %q", o.Op)
	}
	return nil
}

// wireOp mirrors Op with pointers so Parse can tell a missing index from 0.
type wireOp struct {
	Op      Kind   `json:"op"`
	Find    string `json:"find"`
	Replace string `json:"replace"`
	Text    string `json:"text"`
	Style   string `json:"style"`
	Index   *int   `json:"index"`
	After   *int   `json:"after"`
	All     bool   `json:"all"`
}

type wirePlan struct {
	Summary string   `json:"summary"`
	Ops     []wireOp `json:"ops"`
}

// Parse extracts a plan from model output. The JSON object may be wrapped
// in prose or a code fence; a bare array of ops is also accepted. The
// returned plan has been validated.
func Parse(data []byte) (*Plan, error) {
	raw := extractJSON(string(data))
	if raw == "" {
		return nil, ErrNoPlan
	}

	var wp wirePlan
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &wp.Ops); err != nil {
			return nil, fmt.Errorf("decoding ops: %w", err)
		}
	} else if err := json.Unmarshal([]byte(raw), &wp); err != nil {
		return nil, fmt.Errorf("decoding plan: %w", err)
	}

	plan := &Plan{Summary: wp.Summary, Ops: make([]Op, 0, len(wp.Ops))}
	var errs []error
	for i, w := range wp.Ops {
		op := Op{
			Op:      Kind(strings.ToLower(strings.TrimSpace(string(w.Op)))),
			Find:    w.Find,
			Replace: w.Replace,
			Text:    w.Text,
			Style:   w.Style,
			All:     w.All,
		}
		switch op.Op {
		case KindInsertParagraph:
			if w.After == nil {
				errs = append(errs, fmt.Errorf("op %d: insert_paragraph requires after", i))
				continue
			}
			op.After = *w.After
		case KindDeleteParagraph, KindSetStyle:
			if w.Index == nil {
				errs = append(errs, fmt.Errorf("op %d: %s requires index", i, op.Op))
				continue
			}
			op.Index = *w.Index
		}
		plan.Ops = append(plan.Ops, op)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, errors.Join(errs...))
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

// extractJSON returns the outermost JSON object or array in s, or "".
func extractJSON(s string) string {
	obj := strings.Index(s, "{")
	arr := strings.Index(s, "[")
	open, closer := obj, "}"
	if obj < 0 || (arr >= 0 && arr < obj) {
		open, closer = arr, "]"
	}
	if open < 0 {
		return ""
	}
	end := strings.LastIndex(s, closer)
	if end < open {
		return ""
	}
	return s[open : end+1]
}
