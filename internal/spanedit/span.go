package spanedit

import (
	"strings"

	"github.com/ziadkadry99/docpilot/internal/richtext"
)

// Span is a half-open byte range [Start, End) of a paragraph's effective text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the length of the span in bytes.
func (s Span) Len() int { return s.End - s.Start }

// RunSpan is a Span expressed in run coordinates. StartOffset is relative to
// the text of Runs[StartRun] and EndOffset to the text of Runs[EndRun].
type RunSpan struct {
	StartRun    int
	StartOffset int
	EndRun      int
	EndOffset   int
}

// SingleRun reports whether the span lies inside one run.
func (rs RunSpan) SingleRun() bool { return rs.StartRun == rs.EndRun }

// Match is an occurrence of a search string inside a document.
type Match struct {
	Paragraph int  `json:"paragraph"`
	Span      Span `json:"span"`
}

// Locate returns the first occurrence of find in the effective text of p.
func Locate(p *richtext.Paragraph, find string) (Span, bool) {
	if p == nil || find == "" {
		return Span{}, false
	}
	start := strings.Index(p.Text(), find)
	if start < 0 {
		return Span{}, false
	}
	return Span{Start: start, End: start + len(find)}, true
}

// LocateAll returns the non-overlapping occurrences of find in p, left to right.
func LocateAll(p *richtext.Paragraph, find string) []Span {
	if p == nil || find == "" {
		return nil
	}
	text := p.Text()
	var spans []Span
	for from := 0; from <= len(text)-len(find); {
		i := strings.Index(text[from:], find)
		if i < 0 {
			break
		}
		start := from + i
		spans = append(spans, Span{Start: start, End: start + len(find)})
		from = start + len(find)
	}
	return spans
}

// FindInDocument lists every occurrence of find in d in document order.
func FindInDocument(d *richtext.Document, find string) []Match {
	if d == nil {
		return nil
	}
	var matches []Match
	for i, p := range d.Paragraphs {
		for _, s := range LocateAll(p, find) {
			matches = append(matches, Match{Paragraph: i, Span: s})
		}
	}
	return matches
}

// MapSpan converts span into run coordinates. The start run is the run whose
// range [pos, pos+len) contains span.Start; the end run is the run whose range
// contains span.End-1, so a match ending exactly at a run boundary ends in the
// earlier run. Empty runs never contain an offset.
//
// It returns false when span is empty or does not fit the paragraph.
func MapSpan(p *richtext.Paragraph, span Span) (RunSpan, bool) {
	if p == nil || span.Start < 0 || span.End <= span.Start {
		return RunSpan{}, false
	}

	rs := RunSpan{StartRun: -1, EndRun: -1}
	pos := 0
	for i, r := range p.Runs {
		n := len(r.Text)
		if rs.StartRun < 0 && pos <= span.Start && span.Start < pos+n {
			rs.StartRun = i
			rs.StartOffset = span.Start - pos
		}
		if rs.StartRun >= 0 && pos < span.End && span.End <= pos+n {
			rs.EndRun = i
			rs.EndOffset = span.End - pos
			return rs, true
		}
		pos += n
	}
	return RunSpan{}, false
}
