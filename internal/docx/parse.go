package docx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ziadkadry99/docpilot/internal/richtext"
)

// parseBody fills p.Document from the main document part.
func (p *Package) parseBody(data []byte) error {
	d := xml.NewDecoder(bytes.NewReader(data))

	for p.header == nil {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("no body element: %w", ErrNotDocx)
		}
		if err != nil {
			return fmt.Errorf("decoding document: %w", err)
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "body" {
			p.header = bodyHeader(data[:d.InputOffset()])
		}
	}
	if !bytes.Contains(p.header, []byte("<w:body")) {
		return ErrUnsupportedPrefix
	}

	doc := richtext.NewDocument()
	var last *richtext.Paragraph
	for {
		start := d.InputOffset()
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("decoding body: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			if _, end := tok.(xml.EndElement); end {
				break
			}
			continue
		}

		switch se.Name.Local {
		case "p":
			para, pPr, err := p.decodeParagraph(d, data)
			if err != nil {
				return err
			}
			doc.AppendParagraph(para)
			p.raw[para] = rawParagraph{
				xml:      copyBytes(data[start:d.InputOffset()]),
				pPr:      pPr,
				snapshot: para.Clone(),
			}
			last = para
		case "sectPr":
			if err := d.Skip(); err != nil {
				return fmt.Errorf("skipping sectPr: %w", err)
			}
			p.sectPr = copyBytes(data[start:d.InputOffset()])
		default:
			if err := d.Skip(); err != nil {
				return fmt.Errorf("skipping %s: %w", se.Name.Local, err)
			}
			blk := copyBytes(data[start:d.InputOffset()])
			if last == nil {
				p.leading = append(p.leading, blk)
			} else {
				if _, ok := p.after[last]; !ok {
					p.anchors = append(p.anchors, last)
				}
				p.after[last] = append(p.after[last], blk)
			}
		}
	}

	p.Document = doc
	return nil
}

// bodyHeader returns everything up to and including the body start tag,
// reopening a self-closed body.
func bodyHeader(b []byte) []byte {
	h := copyBytes(b)
	if bytes.HasSuffix(h, []byte("/>")) {
		h = append(h[:len(h)-2], '>')
	}
	return h
}

func copyBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}

func attr(se xml.StartElement, local string) (string, bool) {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// toggle reads an OOXML on/off property such as <w:b/> or <w:b w:val="0"/>.
func toggle(se xml.StartElement) bool {
	v, ok := attr(se, "val")
	if !ok {
		return true
	}
	switch strings.ToLower(v) {
	case "0", "false", "off", "none":
		return false
	}
	return true
}

// runContainers are inline elements that wrap runs and are recreated
// around them when a paragraph is rewritten.
var runContainers = map[string]bool{
	"hyperlink": true,
	"ins":       true,
	"moveTo":    true,
	"smartTag":  true,
	"fldSimple": true,
	"customXml": true,
}

// decodeParagraph consumes a w:p element whose start tag was just read. It
// records the source of every run in p.runs and returns the raw pPr.
func (p *Package) decodeParagraph(d *xml.Decoder, data []byte) (*richtext.Paragraph, []byte, error) {
	para := &richtext.Paragraph{}
	var (
		pPr    []byte
		open   []*container
		depths []int
	)
	for depth := 1; depth > 0; {
		start := d.InputOffset()
		tok, err := d.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("decoding paragraph: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch name := t.Name.Local; {
			case name == "pPr":
				if err := decodeParagraphProps(d, para); err != nil {
					return nil, nil, err
				}
				pPr = copyBytes(data[start:d.InputOffset()])
			case name == "r":
				r, rPr, err := decodeRun(d, data)
				if err != nil {
					return nil, nil, err
				}
				src := rawRun{
					xml:    copyBytes(data[start:d.InputOffset()]),
					rPr:    rPr,
					text:   r.Text,
					format: r.Format,
				}
				if len(open) > 0 {
					src.in = open[len(open)-1]
				}
				p.runs[r] = src
				para.Runs = append(para.Runs, r)
			case name == "del" || name == "moveFrom":
				// Tracked deletions are not part of the visible text.
				if err := d.Skip(); err != nil {
					return nil, nil, err
				}
			case runContainers[name]:
				depth++
				c := &container{open: copyBytes(data[start:d.InputOffset()])}
				if len(open) > 0 {
					c.parent = open[len(open)-1]
				}
				open = append(open, c)
				depths = append(depths, depth)
			default:
				depth++
			}
		case xml.EndElement:
			if n := len(open); n > 0 && depths[n-1] == depth {
				open[n-1].close = copyBytes(data[start:d.InputOffset()])
				open, depths = open[:n-1], depths[:n-1]
			}
			depth--
		}
	}
	return para, pPr, nil
}

func decodeParagraphProps(d *xml.Decoder, p *richtext.Paragraph) error {
	for depth := 1; depth > 0; {
		tok, err := d.Token()
		if err != nil {
			return fmt.Errorf("decoding pPr: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth != 2 {
				continue
			}
			switch t.Name.Local {
			case "pStyle":
				p.Style, _ = attr(t, "val")
			case "jc":
				v, _ := attr(t, "val")
				p.Align = alignmentFromXML(v)
			}
		case xml.EndElement:
			depth--
		}
	}
	return nil
}

func alignmentFromXML(v string) richtext.Alignment {
	switch v {
	case "left", "start":
		return richtext.AlignLeft
	case "center":
		return richtext.AlignCenter
	case "right", "end":
		return richtext.AlignRight
	case "both", "distribute":
		return richtext.AlignJustify
	}
	return richtext.AlignDefault
}

// decodeRun consumes a w:r element whose start tag was just read and
// returns the run with its raw rPr.
func decodeRun(d *xml.Decoder, data []byte) (*richtext.Run, []byte, error) {
	r := &richtext.Run{}
	var (
		sb  strings.Builder
		rPr []byte
	)
	for depth := 1; depth > 0; {
		start := d.InputOffset()
		tok, err := d.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("decoding run: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "rPr":
				f, err := decodeRunProps(d)
				if err != nil {
					return nil, nil, err
				}
				r.Format = f
				rPr = copyBytes(data[start:d.InputOffset()])
			case "t":
				var s string
				if err := d.DecodeElement(&s, &t); err != nil {
					return nil, nil, fmt.Errorf("decoding text: %w", err)
				}
				sb.WriteString(s)
			case "drawing", "pict", "object", "AlternateContent":
				if err := d.Skip(); err != nil {
					return nil, nil, err
				}
			case "tab":
				sb.WriteByte('\t')
				depth++
			case "br", "cr":
				sb.WriteByte('\n')
				depth++
			default:
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}
	r.Text = sb.String()
	return r, rPr, nil
}

func decodeRunProps(d *xml.Decoder) (richtext.Format, error) {
	var f richtext.Format
	for depth := 1; depth > 0; {
		tok, err := d.Token()
		if err != nil {
			return f, fmt.Errorf("decoding rPr: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth != 2 {
				continue
			}
			switch t.Name.Local {
			case "b":
				f.Bold = toggle(t)
			case "i":
				f.Italic = toggle(t)
			case "u":
				f.Underline = toggle(t)
			case "color":
				if v, _ := attr(t, "val"); v != "auto" {
					f.Color = v
				}
			case "sz":
				if v, ok := attr(t, "val"); ok {
					f.Size, _ = strconv.Atoi(v)
				}
			case "rFonts":
				if v, ok := attr(t, "ascii"); ok {
					f.Font = v
				} else if v, ok := attr(t, "hAnsi"); ok {
					f.Font = v
				}
			}
		case xml.EndElement:
			depth--
		}
	}
	return f, nil
}
