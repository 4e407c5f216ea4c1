package richtext

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIndexOutOfRange is returned when a paragraph index is outside the document.
var ErrIndexOutOfRange = errors.New("paragraph index out of range")

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{}
}

// NewParagraph returns a paragraph holding a single run with the given text.
// An empty text yields a paragraph with no runs.
func NewParagraph(text string, f Format) *Paragraph {
	p := &Paragraph{}
	if text != "" {
		p.AppendRun(text, f)
	}
	return p
}

// AppendRun adds a run to the end of the paragraph and returns it.
func (p *Paragraph) AppendRun(text string, f Format) *Run {
	r := &Run{Text: text, Format: f}
	p.Runs = append(p.Runs, r)
	return r
}

// Text returns the effective text of the paragraph.
func (p *Paragraph) Text() string {
	switch len(p.Runs) {
	case 0:
		return ""
	case 1:
		return p.Runs[0].Text
	}

	total := 0
	for _, r := range p.Runs {
		total += len(r.Text)
	}
	var sb strings.Builder
	sb.Grow(total)
	for _, r := range p.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Len returns the byte length of the effective text.
func (p *Paragraph) Len() int {
	n := 0
	for _, r := range p.Runs {
		n += len(r.Text)
	}
	return n
}

// Clone returns a deep copy of the paragraph.
func (p *Paragraph) Clone() *Paragraph {
	c := &Paragraph{Style: p.Style, Align: p.Align}
	if p.Runs != nil {
		c.Runs = make([]*Run, len(p.Runs))
		for i, r := range p.Runs {
			rc := *r
			c.Runs[i] = &rc
		}
	}
	return c
}

// Equal reports whether two paragraphs have the same attributes and the
// same run sequence, including empty runs.
func (p *Paragraph) Equal(o *Paragraph) bool {
	if p == nil || o == nil {
		return p == o
	}
	if p.Style != o.Style || p.Align != o.Align || len(p.Runs) != len(o.Runs) {
		return false
	}
	for i := range p.Runs {
		if *p.Runs[i] != *o.Runs[i] {
			return false
		}
	}
	return true
}

// Text returns the effective text of every paragraph joined by newlines.
func (d *Document) Text() string {
	parts := make([]string, len(d.Paragraphs))
	for i, p := range d.Paragraphs {
		parts[i] = p.Text()
	}
	return strings.Join(parts, "\n")
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	c := &Document{}
	if d.Paragraphs != nil {
		c.Paragraphs = make([]*Paragraph, len(d.Paragraphs))
		for i, p := range d.Paragraphs {
			c.Paragraphs[i] = p.Clone()
		}
	}
	return c
}

// AppendParagraph adds p to the end of the document.
func (d *Document) AppendParagraph(p *Paragraph) {
	d.Paragraphs = append(d.Paragraphs, p)
}

// InsertParagraph inserts p so that it ends up at index at. at may equal
// the paragraph count, which appends.
func (d *Document) InsertParagraph(at int, p *Paragraph) error {
	if at < 0 || at > len(d.Paragraphs) {
		return fmt.Errorf("insert at %d of %d: %w", at, len(d.Paragraphs), ErrIndexOutOfRange)
	}
	d.Paragraphs = append(d.Paragraphs, nil)
	copy(d.Paragraphs[at+1:], d.Paragraphs[at:])
	d.Paragraphs[at] = p
	return nil
}

// RemoveParagraph deletes the paragraph at index at and returns it.
func (d *Document) RemoveParagraph(at int) (*Paragraph, error) {
	if at < 0 || at >= len(d.Paragraphs) {
		return nil, fmt.Errorf("remove %d of %d: %w", at, len(d.Paragraphs), ErrIndexOutOfRange)
	}
	p := d.Paragraphs[at]
	copy(d.Paragraphs[at:], d.Paragraphs[at+1:])
	d.Paragraphs[len(d.Paragraphs)-1] = nil
	d.Paragraphs = d.Paragraphs[:len(d.Paragraphs)-1]
	return p, nil
}

// Paragraph returns the paragraph at index i.
func (d *Document) Paragraph(i int) (*Paragraph, error) {
	if i < 0 || i >= len(d.Paragraphs) {
		return nil, fmt.Errorf("paragraph %d of %d: %w", i, len(d.Paragraphs), ErrIndexOutOfRange)
	}
	return d.Paragraphs[i], nil
}
