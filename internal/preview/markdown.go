package preview

import (
	"strconv"
	"strings"

	"github.com/ziadkadry99/docpilot/internal/richtext"
)

type blockKind int

const (
	blockText blockKind = iota
	blockHeading
	blockCode
	blockBullet
	blockQuote
)

// classify maps a paragraph style ID ("Heading1", "Heading 2", "Title",
// "Code", "ListBullet", "Quote") to a Markdown block and heading level.
func classify(style string) (blockKind, int) {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	switch {
	case s == "title":
		return blockHeading, 1
	case s == "subtitle":
		return blockHeading, 2
	case strings.HasPrefix(s, "heading"):
		n, err := strconv.Atoi(strings.TrimPrefix(s, "heading"))
		if err != nil || n < 1 {
			n = 1
		}
		return blockHeading, min(n, 6)
	case strings.Contains(s, "code") || s == "htmlpreformatted":
		return blockCode, 0
	case strings.HasPrefix(s, "listbullet") || s == "listparagraph":
		return blockBullet, 0
	case s == "quote" || s == "intensequote":
		return blockQuote, 0
	}
	return blockText, 0
}

// Markdown converts doc to Markdown. Consecutive code-styled paragraphs
// share one fenced block; blank paragraphs separate blocks.
func Markdown(doc *richtext.Document) string {
	var sb strings.Builder
	inCode := false

	for _, p := range doc.Paragraphs {
		kind, level := classify(p.Style)

		if inCode && kind != blockCode {
			sb.WriteString("```\n\n")
			inCode = false
		}
		if kind == blockCode {
			if !inCode {
				sb.WriteString("```\n")
				inCode = true
			}
			sb.WriteString(strings.ReplaceAll(p.Text(), "```", "` ` `"))
			sb.WriteString("\n")
			continue
		}

		text := inline(p)
		if strings.TrimSpace(text) == "" {
			continue
		}
		switch kind {
		case blockHeading:
			sb.WriteString(strings.Repeat("#", level) + " " + text + "\n\n")
		case blockBullet:
			sb.WriteString("- " + text + "\n\n")
		case blockQuote:
			sb.WriteString("> " + text + "\n\n")
		default:
			sb.WriteString(text + "\n\n")
		}
	}
	if inCode {
		sb.WriteString("```\n")
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// inline renders the runs of p, merging neighbours with the same emphasis
// so that markers are not repeated at every run boundary.
func inline(p *richtext.Paragraph) string {
	var sb strings.Builder
	var (
		cur          strings.Builder
		bold, italic bool
	)
	flush := func() {
		sb.WriteString(emphasize(cur.String(), bold, italic))
		cur.Reset()
	}
	for i, r := range p.Runs {
		if i > 0 && (r.Format.Bold != bold || r.Format.Italic != italic) {
			flush()
		}
		bold, italic = r.Format.Bold, r.Format.Italic
		cur.WriteString(r.Text)
	}
	flush()
	return strings.NewReplacer("\n", "  \n", "\t", "    ").Replace(sb.String())
}

// emphasize wraps text in emphasis markers, keeping surrounding whitespace
// outside them.
func emphasize(text string, bold, italic bool) string {
	core := strings.TrimSpace(text)
	if core == "" || (!bold && !italic) {
		return escape(text)
	}
	marker := ""
	if bold {
		marker += "**"
	}
	if italic {
		marker += "*"
	}
	start := strings.Index(text, core)
	return text[:start] + marker + escape(core) + marker + text[start+len(core):]
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"<", "&lt;",
	"#", `\#`,
)

func escape(s string) string {
	return escaper.Replace(s)
}
