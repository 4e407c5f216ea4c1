package spanedit

import (
	"errors"
	"fmt"

	"github.com/ziadkadry99/docpilot/internal/richtext"
)

// DefaultMaxReplacements caps ReplaceAll per paragraph. It stops runaway
// expansion when the replacement contains the search string.
const DefaultMaxReplacements = 20

var (
	// ErrNilParagraph is returned when a paragraph, or a run inside one, is nil.
	ErrNilParagraph = errors.New("nil paragraph")
	// ErrNilDocument is returned when the document is nil.
	ErrNilDocument = errors.New("nil document")
	// ErrInconsistentSpan is returned when a match exists in the effective
	// text but could not be applied to the runs and degraded mode is off.
	ErrInconsistentSpan = errors.New("match could not be mapped onto runs")
)

// Options configures an Editor.
type Options struct {
	// MaxReplacements caps replacements per paragraph in ReplaceAll.
	// Zero or negative means DefaultMaxReplacements.
	MaxReplacements int
	// AllowDegraded enables the raw whole-paragraph fallback.
	AllowDegraded bool
}

// Result reports what a paragraph-level replacement did.
type Result struct {
	Replaced bool `json:"replaced"`
	Count    int  `json:"count"`
	// Degraded is set when at least one replacement used the raw fallback
	// and the paragraph's formatting was discarded.
	Degraded bool `json:"degraded"`
	// Capped is set when MaxReplacements stopped the loop while the
	// search string was still present.
	Capped bool `json:"capped"`
}

// ParagraphResult is the Result for one paragraph of a document.
type ParagraphResult struct {
	Index int `json:"index"`
	Result
}

// DocumentResult aggregates a document-wide replacement.
type DocumentResult struct {
	Count      int               `json:"count"`
	Degraded   bool              `json:"degraded"`
	Capped     bool              `json:"capped"`
	Paragraphs []ParagraphResult `json:"paragraphs,omitempty"`
}

// Editor applies find/replace operations to paragraphs and documents.
// The zero value preserves formatting and never degrades.
type Editor struct {
	opts Options
}

// New returns an Editor with the given options.
func New(opts Options) *Editor {
	return &Editor{opts: opts}
}

// Options returns the editor configuration with defaults applied.
func (e *Editor) Options() Options {
	o := e.opts
	if o.MaxReplacements <= 0 {
		o.MaxReplacements = DefaultMaxReplacements
	}
	return o
}

// applySpan is swapped in tests to simulate bookkeeping failures.
var applySpan = applySpanEdit

// applySpanEdit writes replace over span, mutating run texts only.
func applySpanEdit(p *richtext.Paragraph, span Span, replace string) bool {
	rs, ok := MapSpan(p, span)
	if !ok {
		return false
	}

	if rs.SingleRun() {
		r := p.Runs[rs.StartRun]
		r.Text = r.Text[:rs.StartOffset] + replace + r.Text[rs.EndOffset:]
		return true
	}

	first := p.Runs[rs.StartRun]
	first.Text = first.Text[:rs.StartOffset] + replace
	for k := rs.StartRun + 1; k < rs.EndRun; k++ {
		p.Runs[k].Text = ""
	}
	last := p.Runs[rs.EndRun]
	last.Text = last.Text[rs.EndOffset:]
	return true
}

func checkParagraph(p *richtext.Paragraph) error {
	if p == nil {
		return ErrNilParagraph
	}
	for i, r := range p.Runs {
		if r == nil {
			return fmt.Errorf("run %d: %w", i, ErrNilParagraph)
		}
	}
	return nil
}

// replaceOnce replaces the first occurrence of find in p.
func (e *Editor) replaceOnce(p *richtext.Paragraph, find, replace string) (applied, degraded bool, err error) {
	before := p.Text()
	span, ok := Locate(p, find)
	if !ok {
		return false, false, nil
	}

	texts := make([]string, len(p.Runs))
	for i, r := range p.Runs {
		texts[i] = r.Text
	}

	want := before[:span.Start] + replace + before[span.End:]
	if applySpan(p, span, replace) && p.Text() == want {
		return true, false, nil
	}

	// Undo any partial write before deciding what to do next.
	for i, r := range p.Runs {
		r.Text = texts[i]
	}

	if !e.opts.AllowDegraded {
		return false, false, fmt.Errorf("replacing %q at %d: %w", find, span.Start, ErrInconsistentSpan)
	}
	ReplaceRaw(p, find, replace, 1)
	return true, true, nil
}

// ReplaceFirst replaces the first occurrence of find in p. An empty find is
// a no-op. Not finding the string is not an error.
func (e *Editor) ReplaceFirst(p *richtext.Paragraph, find, replace string) (Result, error) {
	if err := checkParagraph(p); err != nil {
		return Result{}, err
	}
	if find == "" {
		return Result{}, nil
	}

	applied, degraded, err := e.replaceOnce(p, find, replace)
	if err != nil || !applied {
		return Result{}, err
	}
	return Result{Replaced: true, Count: 1, Degraded: degraded}, nil
}

// ReplaceAll replaces occurrences of find in p one at a time against the
// current paragraph state until none remain or MaxReplacements is reached.
func (e *Editor) ReplaceAll(p *richtext.Paragraph, find, replace string) (Result, error) {
	if err := checkParagraph(p); err != nil {
		return Result{}, err
	}
	if find == "" {
		return Result{}, nil
	}

	limit := e.Options().MaxReplacements
	var res Result
	for res.Count < limit {
		applied, degraded, err := e.replaceOnce(p, find, replace)
		if err != nil {
			return res, err
		}
		if !applied {
			return res, nil
		}
		res.Replaced = true
		res.Count++
		res.Degraded = res.Degraded || degraded
	}

	if _, more := Locate(p, find); more {
		res.Capped = true
	}
	return res, nil
}

// Replace dispatches to ReplaceAll or ReplaceFirst.
func (e *Editor) Replace(p *richtext.Paragraph, find, replace string, all bool) (Result, error) {
	if all {
		return e.ReplaceAll(p, find, replace)
	}
	return e.ReplaceFirst(p, find, replace)
}

// ReplaceDocument runs ReplaceAll on every paragraph of d in order.
// Structure is validated before anything is mutated.
func (e *Editor) ReplaceDocument(d *richtext.Document, find, replace string) (DocumentResult, error) {
	if d == nil {
		return DocumentResult{}, ErrNilDocument
	}
	for i, p := range d.Paragraphs {
		if err := checkParagraph(p); err != nil {
			return DocumentResult{}, fmt.Errorf("paragraph %d: %w", i, err)
		}
	}

	var out DocumentResult
	if find == "" {
		return out, nil
	}
	for i, p := range d.Paragraphs {
		res, err := e.ReplaceAll(p, find, replace)
		if res.Replaced {
			out.Count += res.Count
			out.Degraded = out.Degraded || res.Degraded
			out.Capped = out.Capped || res.Capped
			out.Paragraphs = append(out.Paragraphs, ParagraphResult{Index: i, Result: res})
		}
		if err != nil {
			return out, fmt.Errorf("paragraph %d: %w", i, err)
		}
	}
	return out, nil
}

// ReplaceFirstInDocument replaces the first occurrence of find in document
// order. Matches never span paragraphs.
func (e *Editor) ReplaceFirstInDocument(d *richtext.Document, find, replace string) (DocumentResult, error) {
	var out DocumentResult
	if d == nil {
		return out, ErrNilDocument
	}
	for i, p := range d.Paragraphs {
		r, err := e.ReplaceFirst(p, find, replace)
		if err != nil {
			return out, fmt.Errorf("paragraph %d: %w", i, err)
		}
		if r.Replaced {
			out.Count = r.Count
			out.Degraded = r.Degraded
			out.Paragraphs = []ParagraphResult{{Index: i, Result: r}}
			break
		}
	}
	return out, nil
}

// ReplaceInDocument dispatches to ReplaceDocument or ReplaceFirstInDocument.
func (e *Editor) ReplaceInDocument(d *richtext.Document, find, replace string, all bool) (DocumentResult, error) {
	if all {
		return e.ReplaceDocument(d, find, replace)
	}
	return e.ReplaceFirstInDocument(d, find, replace)
}

var defaultEditor = &Editor{}

// ReplaceFirst replaces the first occurrence of find in p, preserving
// formatting. It reports whether a replacement happened.
func ReplaceFirst(p *richtext.Paragraph, find, replace string) (bool, error) {
	res, err := defaultEditor.ReplaceFirst(p, find, replace)
	return res.Replaced, err
}

// ReplaceAll replaces occurrences of find in p up to DefaultMaxReplacements
// times and reports whether anything changed and how many replacements ran.
func ReplaceAll(p *richtext.Paragraph, find, replace string) (bool, int, error) {
	res, err := defaultEditor.ReplaceAll(p, find, replace)
	return res.Replaced, res.Count, err
}

// ReplaceAcrossDocument applies ReplaceAll to every paragraph of d and
// returns the total number of replacements.
func ReplaceAcrossDocument(d *richtext.Document, find, replace string) (int, error) {
	res, err := defaultEditor.ReplaceDocument(d, find, replace)
	return res.Count, err
}
