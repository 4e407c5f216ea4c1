package vectordb

import (
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/docpilot/internal/richtext"
)

// Document is one indexed paragraph.
type Document struct {
	ID       string           `json:"id"`
	Content  string           `json:"content"`
	Metadata DocumentMetadata `json:"metadata"`
}

// DocumentMetadata locates an entry in its source document.
type DocumentMetadata struct {
	DocumentID   string    `json:"document_id"`
	DocumentName string    `json:"document_name"`
	Paragraph    int       `json:"paragraph"`
	Style        string    `json:"style,omitempty"`
	LastUpdated  time.Time `json:"last_updated"`
}

// SearchResult pairs an entry with its similarity score.
type SearchResult struct {
	Document   Document `json:"document"`
	Similarity float32  `json:"similarity"`
}

// SearchFilter narrows search results by metadata fields.
type SearchFilter struct {
	DocumentID *string
	Style      *string
}

// ParagraphDocuments converts the non-blank paragraphs of doc into index entries.
func ParagraphDocuments(documentID, name string, doc *richtext.Document) []Document {
	now := time.Now().UTC()
	var out []Document
	for i, p := range doc.Paragraphs {
		text := strings.TrimSpace(p.Text())
		if text == "" {
			continue
		}
		out = append(out, Document{
			ID:      fmt.Sprintf("%s#%d", documentID, i),
			Content: text,
			Metadata: DocumentMetadata{
				DocumentID:   documentID,
				DocumentName: name,
				Paragraph:    i,
				Style:        p.Style,
				LastUpdated:  now,
			},
		})
	}
	return out
}

// FormatResults renders search results as human-readable text.
func FormatResults(results []SearchResult) string {
	if len(results) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d result(s):\n\n", len(results))

	for i, r := range results {
		m := r.Document.Metadata
		fmt.Fprintf(&sb, "--- Result %d (similarity: %.4f) ---\n", i+1, r.Similarity)
		fmt.Fprintf(&sb, "Document: %s (%s)\n", m.DocumentName, m.DocumentID)
		fmt.Fprintf(&sb, "Paragraph: %d\n", m.Paragraph)
		if m.Style != "" {
			fmt.Fprintf(&sb, "Style: %s\n", m.Style)
		}
		sb.WriteString("\n")
		sb.WriteString(r.Document.Content)
		sb.WriteString("\n\n")
	}

	return sb.String()
}
