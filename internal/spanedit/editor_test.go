package spanedit

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ziadkadry99/docpilot/internal/richtext"
)

func plain(s string) *richtext.Run  { return &richtext.Run{Text: s} }
func bold(s string) *richtext.Run   { return &richtext.Run{Text: s, Format: richtext.Format{Bold: true}} }
func italic(s string) *richtext.Run { return &richtext.Run{Text: s, Format: richtext.Format{Italic: true}} }

func para(runs ...*richtext.Run) *richtext.Paragraph {
	return &richtext.Paragraph{Runs: runs}
}

func runsOf(p *richtext.Paragraph) []richtext.Run {
	out := make([]richtext.Run, len(p.Runs))
	for i, r := range p.Runs {
		out[i] = *r
	}
	return out
}

func TestReplaceFirstAcrossRunBoundary(t *testing.T) {
	p := para(plain("Hello "), bold("World"))

	ok, err := ReplaceFirst(p, "lo Wo", "XX")
	if err != nil {
		t.Fatalf("ReplaceFirst: %v", err)
	}
	if !ok {
		t.Fatal("expected a replacement")
	}
	if got := p.Text(); got != "HelXXrld" {
		t.Errorf("Text() = %q, want %q", got, "HelXXrld")
	}

	want := []richtext.Run{
		{Text: "HelXX"},
		{Text: "rld", Format: richtext.Format{Bold: true}},
	}
	if diff := cmp.Diff(want, runsOf(p)); diff != "" {
		t.Errorf("runs mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceFirstClearsMiddleRuns(t *testing.T) {
	p := para(plain("foo"), bold("bar"), italic("baz"))

	ok, err := ReplaceFirst(p, "oobarb", "X")
	if err != nil || !ok {
		t.Fatalf("ReplaceFirst = %v, %v", ok, err)
	}

	want := []richtext.Run{
		{Text: "fX"},
		{Text: "", Format: richtext.Format{Bold: true}},
		{Text: "az", Format: richtext.Format{Italic: true}},
	}
	if diff := cmp.Diff(want, runsOf(p)); diff != "" {
		t.Errorf("runs mismatch (-want +got):\n%s", diff)
	}
	if got := p.Text(); got != "fXaz" {
		t.Errorf("Text() = %q, want %q", got, "fXaz")
	}
}

func TestReplaceFirstWithinSingleRun(t *testing.T) {
	p := para(plain("alpha "), bold("beta gamma"), italic(" delta"))

	ok, err := ReplaceFirst(p, "gam", "GAM")
	if err != nil || !ok {
		t.Fatalf("ReplaceFirst = %v, %v", ok, err)
	}
	want := []richtext.Run{
		{Text: "alpha "},
		{Text: "beta GAMma", Format: richtext.Format{Bold: true}},
		{Text: " delta", Format: richtext.Format{Italic: true}},
	}
	if diff := cmp.Diff(want, runsOf(p)); diff != "" {
		t.Errorf("runs mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceFirstBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		find    string
		replace string
		want    []string
	}{
		{"match equals first run", "ab", "X", []string{"X", "", "cd"}},
		{"match ends at boundary", "b", "X", []string{"aX", "", "cd"}},
		{"match starts at boundary", "cd", "X", []string{"ab", "", "X"}},
		{"match crosses empty run", "bc", "X", []string{"aX", "", "d"}},
		{"whole paragraph", "abcd", "X", []string{"X", "", ""}},
		{"deletion", "bc", "", []string{"a", "", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := para(plain("ab"), bold(""), italic("cd"))
			ok, err := ReplaceFirst(p, tt.find, tt.replace)
			if err != nil || !ok {
				t.Fatalf("ReplaceFirst = %v, %v", ok, err)
			}
			var got []string
			for _, r := range p.Runs {
				got = append(got, r.Text)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("run texts mismatch (-want +got):\n%s", diff)
			}
			if !p.Runs[2].Format.Italic || !p.Runs[1].Format.Bold {
				t.Error("run formatting changed")
			}
		})
	}
}

func TestReplaceFirstPicksEarliestOccurrence(t *testing.T) {
	// The first "ab" crosses runs 0 and 1; a later one sits inside run 2.
	p := para(plain("xa"), bold("b"), italic("ab"))

	ok, err := ReplaceFirst(p, "ab", "Z")
	if err != nil || !ok {
		t.Fatalf("ReplaceFirst = %v, %v", ok, err)
	}
	if got := p.Text(); got != "xZab" {
		t.Errorf("Text() = %q, want %q", got, "xZab")
	}
	if p.Runs[2].Text != "ab" {
		t.Errorf("later occurrence touched: %q", p.Runs[2].Text)
	}
}

func TestReplaceFirstNotFound(t *testing.T) {
	p := para(plain("Hello "), bold("World"))
	before := p.Clone()

	ok, err := ReplaceFirst(p, "nope", "X")
	if err != nil {
		t.Fatalf("ReplaceFirst: %v", err)
	}
	if ok {
		t.Error("expected no replacement")
	}
	if !p.Equal(before) {
		t.Error("paragraph changed on a miss")
	}
}

func TestReplaceFirstEmptyFind(t *testing.T) {
	p := para(plain("abc"))
	ok, err := ReplaceFirst(p, "", "X")
	if err != nil || ok {
		t.Errorf("ReplaceFirst(empty) = %v, %v; want false, nil", ok, err)
	}
	changed, n, err := ReplaceAll(p, "", "X")
	if err != nil || changed || n != 0 {
		t.Errorf("ReplaceAll(empty) = %v, %d, %v", changed, n, err)
	}
	if p.Text() != "abc" {
		t.Errorf("paragraph changed: %q", p.Text())
	}
}

func TestReplaceStructuralErrors(t *testing.T) {
	if _, err := ReplaceFirst(nil, "a", "b"); !errors.Is(err, ErrNilParagraph) {
		t.Errorf("nil paragraph: got %v", err)
	}
	if _, _, err := ReplaceAll(nil, "a", "b"); !errors.Is(err, ErrNilParagraph) {
		t.Errorf("nil paragraph: got %v", err)
	}
	if _, err := ReplaceFirst(para(plain("a"), nil), "a", "b"); !errors.Is(err, ErrNilParagraph) {
		t.Errorf("nil run: got %v", err)
	}
	if _, err := ReplaceAcrossDocument(nil, "a", "b"); !errors.Is(err, ErrNilDocument) {
		t.Errorf("nil document: got %v", err)
	}

	d := &richtext.Document{Paragraphs: []*richtext.Paragraph{para(plain("a")), nil}}
	if _, err := ReplaceAcrossDocument(d, "a", "b"); !errors.Is(err, ErrNilParagraph) {
		t.Errorf("nil paragraph in document: got %v", err)
	}
	if d.Paragraphs[0].Text() != "a" {
		t.Error("document mutated before structural validation failed")
	}
}

func TestReplaceAll(t *testing.T) {
	p := para(plain("one fi"), bold("sh two f"), italic("ish"))

	changed, n, err := ReplaceAll(p, "fish", "cat")
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if !changed || n != 2 {
		t.Errorf("ReplaceAll = %v, %d; want true, 2", changed, n)
	}
	if got := p.Text(); got != "one cat two cat" {
		t.Errorf("Text() = %q", got)
	}
	if len(p.Runs) != 3 {
		t.Errorf("run count changed to %d", len(p.Runs))
	}
}

func TestReplaceAllNoop(t *testing.T) {
	p := para(plain("Hello "), bold("World"))
	before := p.Clone()

	changed, n, err := ReplaceAll(p, "nonexistent", "X")
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if changed || n != 0 {
		t.Errorf("ReplaceAll = %v, %d; want false, 0", changed, n)
	}
	if !p.Equal(before) {
		t.Error("paragraph changed on a miss")
	}
}

func TestReplaceAllTerminates(t *testing.T) {
	p := para(plain("a"))

	res, err := (&Editor{}).ReplaceAll(p, "a", "aa")
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if res.Count != DefaultMaxReplacements {
		t.Errorf("Count = %d, want %d", res.Count, DefaultMaxReplacements)
	}
	if !res.Capped {
		t.Error("expected Capped")
	}
	if want := strings.Repeat("a", DefaultMaxReplacements+1); p.Text() != want {
		t.Errorf("Text() = %q, want %q", p.Text(), want)
	}
}

func TestReplaceAllCustomLimit(t *testing.T) {
	p := para(plain("x x x x"))
	ed := New(Options{MaxReplacements: 2})

	res, err := ed.ReplaceAll(p, "x", "y")
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if res.Count != 2 || !res.Capped {
		t.Errorf("Result = %+v, want Count 2 Capped", res)
	}
	if p.Text() != "y y x x" {
		t.Errorf("Text() = %q", p.Text())
	}
}

func TestReplaceAcrossDocument(t *testing.T) {
	d := &richtext.Document{Paragraphs: []*richtext.Paragraph{
		para(plain("nothing here")),
		para(plain("red cat, "), bold("red c"), italic("at")),
		para(plain("red")),
		para(plain("one red"), bold(" cat")),
		para(),
	}}
	before := d.Clone()
	refs := append([]*richtext.Paragraph(nil), d.Paragraphs...)

	n, err := ReplaceAcrossDocument(d, "red cat", "blue dog")
	if err != nil {
		t.Fatalf("ReplaceAcrossDocument: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}

	for i, p := range d.Paragraphs {
		if p != refs[i] {
			t.Errorf("paragraph %d replaced by a new object", i)
		}
	}
	for _, i := range []int{0, 2, 4} {
		if !d.Paragraphs[i].Equal(before.Paragraphs[i]) {
			t.Errorf("paragraph %d should be untouched", i)
		}
	}
	if got := d.Paragraphs[1].Text(); got != "blue dog, blue dog" {
		t.Errorf("paragraph 1 = %q", got)
	}
	if got := d.Paragraphs[3].Text(); got != "one blue dog" {
		t.Errorf("paragraph 3 = %q", got)
	}
}

func TestReplaceDocumentNeverCrossesParagraphs(t *testing.T) {
	d := &richtext.Document{Paragraphs: []*richtext.Paragraph{
		para(plain("end of one")),
		para(plain("start of two")),
	}}
	res, err := New(Options{}).ReplaceDocument(d, "one\nstart", "X")
	if err != nil {
		t.Fatalf("ReplaceDocument: %v", err)
	}
	if res.Count != 0 || len(res.Paragraphs) != 0 {
		t.Errorf("Result = %+v, want no matches", res)
	}
}

func TestReplaceInDocumentFirstOnly(t *testing.T) {
	d := &richtext.Document{Paragraphs: []*richtext.Paragraph{
		para(plain("no match")),
		para(plain("net 3"), bold("0 days, net 30")),
		para(plain("net 30")),
	}}
	res, err := New(Options{}).ReplaceInDocument(d, "net 30", "net 45", false)
	if err != nil {
		t.Fatalf("ReplaceInDocument: %v", err)
	}
	want := DocumentResult{
		Count:      1,
		Paragraphs: []ParagraphResult{{Index: 1, Result: Result{Replaced: true, Count: 1}}},
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if got := d.Paragraphs[1].Text(); got != "net 45 days, net 30" {
		t.Errorf("paragraph 1 = %q", got)
	}
	if got := d.Paragraphs[2].Text(); got != "net 30" {
		t.Errorf("paragraph 2 should be untouched, got %q", got)
	}

	res, err = New(Options{}).ReplaceInDocument(d, "net 30", "net 45", true)
	if err != nil {
		t.Fatalf("ReplaceInDocument all: %v", err)
	}
	if res.Count != 2 {
		t.Errorf("count = %d, want 2", res.Count)
	}
	if _, err := New(Options{}).ReplaceFirstInDocument(nil, "a", "b"); !errors.Is(err, ErrNilDocument) {
		t.Errorf("nil document: err = %v", err)
	}
}

func TestReplaceDocumentReportsParagraphs(t *testing.T) {
	d := &richtext.Document{Paragraphs: []*richtext.Paragraph{
		para(plain("x")),
		para(plain("y")),
		para(plain("x x")),
	}}
	res, err := New(Options{}).ReplaceDocument(d, "x", "z")
	if err != nil {
		t.Fatalf("ReplaceDocument: %v", err)
	}
	want := DocumentResult{
		Count: 3,
		Paragraphs: []ParagraphResult{
			{Index: 0, Result: Result{Replaced: true, Count: 1}},
			{Index: 2, Result: Result{Replaced: true, Count: 2}},
		},
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("DocumentResult mismatch (-want +got):\n%s", diff)
	}
}

// formatsByByte returns the format of every byte of p's effective text.
func formatsByByte(p *richtext.Paragraph) []richtext.Format {
	var out []richtext.Format
	for _, r := range p.Runs {
		for range len(r.Text) {
			out = append(out, r.Format)
		}
	}
	return out
}

func splitRuns(text string, cuts []int) *richtext.Paragraph {
	p := &richtext.Paragraph{}
	prev := 0
	for i, c := range append(cuts, len(text)) {
		p.AppendRun(text[prev:c], richtext.Format{Size: 20 + i, Bold: i%2 == 1})
		prev = c
	}
	return p
}

func TestReplaceFirstPreservesOutsideText(t *testing.T) {
	const text = "the quick brown fox"
	splits := [][]int{
		nil,
		{3},
		{4, 4, 10},
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18},
		{9, 16},
	}
	for _, cuts := range splits {
		for start := 0; start < len(text); start++ {
			for end := start + 1; end <= len(text) && end <= start+7; end++ {
				find := text[start:end]
				for _, replace := range []string{"", "Z", "longer text"} {
					p := splitRuns(text, cuts)
					beforeFmt := formatsByByte(p)
					at := strings.Index(text, find)

					ok, err := ReplaceFirst(p, find, replace)
					if err != nil || !ok {
						t.Fatalf("cuts=%v find=%q: ReplaceFirst = %v, %v", cuts, find, ok, err)
					}
					want := strings.Replace(text, find, replace, 1)
					if got := p.Text(); got != want {
						t.Fatalf("cuts=%v find=%q replace=%q: Text() = %q, want %q", cuts, find, replace, got, want)
					}
					if len(p.Runs) != len(cuts)+1 {
						t.Fatalf("cuts=%v find=%q: run count changed", cuts, find)
					}

					afterFmt := formatsByByte(p)
					if diff := cmp.Diff(beforeFmt[:at], afterFmt[:at], cmpopts.EquateEmpty()); diff != "" {
						t.Fatalf("cuts=%v find=%q: prefix formatting changed:\n%s", cuts, find, diff)
					}
					tail := len(text) - (at + len(find))
					if diff := cmp.Diff(beforeFmt[len(beforeFmt)-tail:], afterFmt[len(afterFmt)-tail:], cmpopts.EquateEmpty()); diff != "" {
						t.Fatalf("cuts=%v find=%q: suffix formatting changed:\n%s", cuts, find, diff)
					}
				}
			}
		}
	}
}

func brokenApply(t *testing.T, fn func(*richtext.Paragraph, Span, string) bool) {
	t.Helper()
	orig := applySpan
	applySpan = fn
	t.Cleanup(func() { applySpan = orig })
}

func TestDegradedFallback(t *testing.T) {
	brokenApply(t, func(*richtext.Paragraph, Span, string) bool { return false })

	p := para(plain("Hello "), bold("World"))
	p.Style = "Heading1"

	res, err := New(Options{AllowDegraded: true}).ReplaceFirst(p, "lo Wo", "XX")
	if err != nil {
		t.Fatalf("ReplaceFirst: %v", err)
	}
	if !res.Replaced || !res.Degraded || res.Count != 1 {
		t.Errorf("Result = %+v, want replaced and degraded", res)
	}
	want := []richtext.Run{{Text: "HelXXrld"}}
	if diff := cmp.Diff(want, runsOf(p)); diff != "" {
		t.Errorf("runs mismatch (-want +got):\n%s", diff)
	}
	if p.Style != "Heading1" {
		t.Errorf("paragraph style lost: %q", p.Style)
	}
}

func TestDegradedFallbackDisabled(t *testing.T) {
	brokenApply(t, func(p *richtext.Paragraph, _ Span, _ string) bool {
		// Corrupt the runs to check the editor rolls back.
		p.Runs[0].Text = "garbage"
		return true
	})

	p := para(plain("Hello "), bold("World"))
	before := p.Clone()

	res, err := New(Options{}).ReplaceFirst(p, "World", "There")
	if !errors.Is(err, ErrInconsistentSpan) {
		t.Fatalf("expected ErrInconsistentSpan, got %v", err)
	}
	if res.Replaced {
		t.Error("no replacement should be reported")
	}
	if !p.Equal(before) {
		t.Errorf("paragraph not rolled back: %q", p.Text())
	}
}

func TestDegradedReplaceAll(t *testing.T) {
	brokenApply(t, func(*richtext.Paragraph, Span, string) bool { return false })

	d := &richtext.Document{Paragraphs: []*richtext.Paragraph{
		para(plain("a-b "), bold("a-b")),
		para(italic("untouched")),
	}}
	res, err := New(Options{AllowDegraded: true}).ReplaceDocument(d, "a-b", "c")
	if err != nil {
		t.Fatalf("ReplaceDocument: %v", err)
	}
	if res.Count != 2 || !res.Degraded {
		t.Errorf("Result = %+v, want 2 degraded replacements", res)
	}
	if d.Paragraphs[0].Text() != "c c" {
		t.Errorf("paragraph 0 = %q", d.Paragraphs[0].Text())
	}
	if !d.Paragraphs[1].Runs[0].Format.Italic {
		t.Error("unmatched paragraph lost its formatting")
	}
}

func TestReplaceRaw(t *testing.T) {
	p := para(plain("a b "), bold("a b"))

	if n := ReplaceRaw(p, "zz", "y", -1); n != 0 {
		t.Errorf("ReplaceRaw miss = %d", n)
	}
	if len(p.Runs) != 2 {
		t.Error("miss should leave runs alone")
	}

	if n := ReplaceRaw(p, "a", "y", 1); n != 1 {
		t.Errorf("ReplaceRaw(n=1) = %d, want 1", n)
	}
	if n := ReplaceRaw(p, "b", "z", -1); n != 2 {
		t.Errorf("ReplaceRaw(n=-1) = %d, want 2", n)
	}
	want := []richtext.Run{{Text: "y z a z"}}
	if diff := cmp.Diff(want, runsOf(p)); diff != "" {
		t.Errorf("runs mismatch (-want +got):\n%s", diff)
	}
}
