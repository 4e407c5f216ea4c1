// Package preview renders documents as HTML for the browser.
package preview

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/ziadkadry99/docpilot/internal/richtext"
)

// Renderer converts documents to HTML.
type Renderer struct {
	md   goldmark.Markdown
	page *template.Template
}

// New creates a Renderer.
func New() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &Renderer{
		md:   md,
		page: template.Must(template.New("page").Parse(pageTemplate)),
	}
}

// HTML renders the body of doc as an HTML fragment.
func (r *Renderer) HTML(doc *richtext.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(Markdown(doc)), &buf); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// Page renders doc as a standalone HTML page.
func (r *Renderer) Page(title string, doc *richtext.Document) ([]byte, error) {
	body, err := r.HTML(doc)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = r.page.Execute(&buf, map[string]any{
		"Title":   title,
		"Content": template.HTML(body),
	})
	if err != nil {
		return nil, fmt.Errorf("executing page template: %w", err)
	}
	return buf.Bytes(), nil
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}}</title>
  <style>
    body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; line-height: 1.6; color: #1f2328; margin: 0; }
    article { max-width: 50rem; margin: 2rem auto; padding: 0 1.5rem; }
    pre { padding: 1rem; overflow: auto; border-radius: 6px; background: #f6f8fa; }
    blockquote { margin: 0; padding: 0 1rem; color: #59636e; border-left: .25em solid #d1d9e0; }
  </style>
</head>
<body>
  <article>
{{.Content}}
  </article>
</body>
</html>`
