package docx

import (
	"bytes"
	"encoding/xml"
	"slices"
	"strconv"
	"strings"

	"github.com/ziadkadry99/docpilot/internal/richtext"
)

// renderBody produces word/document.xml for the current model.
func (p *Package) renderBody() []byte {
	var buf bytes.Buffer
	buf.Write(p.header)
	for _, blk := range p.leading {
		buf.Write(blk)
	}

	present := make(map[*richtext.Paragraph]bool, len(p.Document.Paragraphs))
	for _, para := range p.Document.Paragraphs {
		present[para] = true
		if raw, ok := p.raw[para]; ok && para.Equal(raw.snapshot) {
			buf.Write(raw.xml)
		} else {
			p.writeParagraph(&buf, para)
		}
		for _, blk := range p.after[para] {
			buf.Write(blk)
		}
	}

	// Blocks whose anchor paragraph was deleted go after the last paragraph,
	// in their original order.
	for _, para := range p.anchors {
		if present[para] {
			continue
		}
		for _, blk := range p.after[para] {
			buf.Write(blk)
		}
	}

	buf.Write(p.sectPr)
	buf.WriteString("</w:body></w:document>")
	return buf.Bytes()
}

func (p *Package) writeParagraph(buf *bytes.Buffer, para *richtext.Paragraph) {
	buf.WriteString("<w:p>")
	if raw, ok := p.raw[para]; ok && raw.pPr != nil &&
		para.Style == raw.snapshot.Style && para.Align == raw.snapshot.Align {
		buf.Write(raw.pPr)
	} else if para.Style != "" || para.Align != richtext.AlignDefault {
		buf.WriteString("<w:pPr>")
		if para.Style != "" {
			writeValElement(buf, "pStyle", para.Style)
		}
		if para.Align != richtext.AlignDefault {
			writeValElement(buf, "jc", string(para.Align))
		}
		buf.WriteString("</w:pPr>")
	}

	var open []*container
	for _, r := range para.Runs {
		src, known := p.runs[r]
		unchanged := known && r.Text == src.text && r.Format == src.format
		if r.Text == "" && !unchanged {
			continue
		}
		open = reopen(buf, open, src.in)
		switch {
		case unchanged:
			buf.Write(src.xml)
		case known && r.Format == src.format:
			writeRun(buf, r, src.rPr)
		default:
			writeRun(buf, r, nil)
		}
	}
	reopen(buf, open, nil)
	buf.WriteString("</w:p>")
}

// reopen closes the containers of open that c is not inside and opens the
// ones it is, returning the new stack.
func reopen(buf *bytes.Buffer, open []*container, c *container) []*container {
	var want []*container
	for ; c != nil; c = c.parent {
		want = append(want, c)
	}
	slices.Reverse(want)

	n := 0
	for n < len(open) && n < len(want) && open[n] == want[n] {
		n++
	}
	for i := len(open) - 1; i >= n; i-- {
		buf.Write(open[i].close)
	}
	for _, c := range want[n:] {
		buf.Write(c.open)
	}
	return want
}

// writeRun emits r. A non-nil rPr is written as is instead of r.Format.
func writeRun(buf *bytes.Buffer, r *richtext.Run, rPr []byte) {
	buf.WriteString("<w:r>")
	if rPr != nil {
		buf.Write(rPr)
	} else {
		writeRunProps(buf, r.Format)
	}

	// Tabs and line breaks are elements, not text.
	text := r.Text
	for text != "" {
		i := strings.IndexAny(text, "\t\n")
		if i < 0 {
			writeText(buf, text)
			break
		}
		if i > 0 {
			writeText(buf, text[:i])
		}
		if text[i] == '\t' {
			buf.WriteString("<w:tab/>")
		} else {
			buf.WriteString("<w:br/>")
		}
		text = text[i+1:]
	}
	buf.WriteString("</w:r>")
}

// writeRunProps emits rPr children in schema order.
func writeRunProps(buf *bytes.Buffer, f richtext.Format) {
	if f.IsZero() {
		return
	}
	buf.WriteString("<w:rPr>")
	if f.Font != "" {
		buf.WriteString(`<w:rFonts w:ascii="`)
		escape(buf, f.Font)
		buf.WriteString(`" w:hAnsi="`)
		escape(buf, f.Font)
		buf.WriteString(`"/>`)
	}
	if f.Bold {
		buf.WriteString("<w:b/>")
	}
	if f.Italic {
		buf.WriteString("<w:i/>")
	}
	if f.Color != "" {
		writeValElement(buf, "color", f.Color)
	}
	if f.Size > 0 {
		writeValElement(buf, "sz", strconv.Itoa(f.Size))
	}
	if f.Underline {
		writeValElement(buf, "u", "single")
	}
	buf.WriteString("</w:rPr>")
}

func writeText(buf *bytes.Buffer, s string) {
	if strings.TrimSpace(s) != s {
		buf.WriteString(`<w:t xml:space="preserve">`)
	} else {
		buf.WriteString("<w:t>")
	}
	escape(buf, s)
	buf.WriteString("</w:t>")
}

func writeValElement(buf *bytes.Buffer, name, val string) {
	buf.WriteString("<w:")
	buf.WriteString(name)
	buf.WriteString(` w:val="`)
	escape(buf, val)
	buf.WriteString(`"/>`)
}

func escape(buf *bytes.Buffer, s string) {
	_ = xml.EscapeText(buf, []byte(s))
}
