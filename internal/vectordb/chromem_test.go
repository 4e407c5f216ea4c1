package vectordb

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/ziadkadry99/docpilot/internal/richtext"
)

// mockEmbedder returns deterministic embeddings based on text content.
type mockEmbedder struct {
	dims int
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dims: dims}
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = m.deterministicVector(text)
	}
	return results, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock" }

// deterministicVector produces a normalized vector from text. Shared
// characters contribute to the same positions, so similar texts score higher.
func (m *mockEmbedder) deterministicVector(text string) []float32 {
	vec := make([]float32, m.dims)
	for i, ch := range text {
		idx := (int(ch) + i) % m.dims
		vec[idx] += 1.0
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func newTestStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(newMockEmbedder(64))
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	return store
}

func sampleDocument() *richtext.Document {
	d := richtext.NewDocument()
	title := richtext.NewParagraph("Master Services Agreement", richtext.Format{Bold: true})
	title.Style = "Title"
	d.AppendParagraph(title)
	d.AppendParagraph(richtext.NewParagraph("   ", richtext.Format{}))
	d.AppendParagraph(richtext.NewParagraph("Payment is due within 30 days of invoice.", richtext.Format{}))
	d.AppendParagraph(richtext.NewParagraph("Either party may terminate with notice.", richtext.Format{}))
	return d
}

func TestParagraphDocuments(t *testing.T) {
	docs := ParagraphDocuments("doc-1", "msa.docx", sampleDocument())
	if len(docs) != 3 {
		t.Fatalf("expected 3 entries (blank paragraph skipped), got %d", len(docs))
	}
	first := docs[0]
	if first.ID != "doc-1#0" || first.Metadata.Style != "Title" || first.Metadata.DocumentName != "msa.docx" {
		t.Errorf("unexpected first entry: %+v", first)
	}
	if docs[1].Metadata.Paragraph != 2 || docs[1].ID != "doc-1#2" {
		t.Errorf("paragraph index not preserved: %+v", docs[1])
	}
}

func TestChromemStore_AddAndSearch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.AddDocuments(ctx, ParagraphDocuments("doc-1", "msa.docx", sampleDocument())); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}
	if count := store.Count(); count != 3 {
		t.Errorf("Count: got %d, want 3", count)
	}

	results, err := store.Search(ctx, "payment invoice", 2, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 || len(results) > 2 {
		t.Fatalf("Search returned %d results, want 1..2", len(results))
	}
	for _, r := range results {
		if r.Similarity == 0 {
			t.Error("result has zero similarity")
		}
		if r.Document.Metadata.DocumentID != "doc-1" {
			t.Errorf("metadata lost: %+v", r.Document.Metadata)
		}
	}
}

func TestChromemStore_SearchEmpty(t *testing.T) {
	results, err := newTestStore(t).Search(context.Background(), "anything", 5, nil)
	if err != nil || results != nil {
		t.Errorf("Search on empty store = %v, %v", results, err)
	}
}

func TestChromemStore_SearchWithFilter(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	store.AddDocuments(ctx, ParagraphDocuments("a", "a.docx", sampleDocument()))
	store.AddDocuments(ctx, ParagraphDocuments("b", "b.docx", sampleDocument()))

	id := "b"
	results, err := store.Search(ctx, "terminate", 10, &SearchFilter{DocumentID: &id})
	if err != nil {
		t.Fatalf("Search with filter: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results for document b")
	}
	for _, r := range results {
		if r.Document.Metadata.DocumentID != "b" {
			t.Errorf("expected document b, got %s", r.Document.Metadata.DocumentID)
		}
	}
}

func TestChromemStore_DeleteByDocument(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	store.AddDocuments(ctx, ParagraphDocuments("a", "a.docx", sampleDocument()))
	store.AddDocuments(ctx, ParagraphDocuments("b", "b.docx", sampleDocument()))
	if count := store.Count(); count != 6 {
		t.Fatalf("Count before delete: got %d, want 6", count)
	}

	if err := store.DeleteByDocument(ctx, "a"); err != nil {
		t.Fatalf("DeleteByDocument: %v", err)
	}
	if count := store.Count(); count != 3 {
		t.Errorf("Count after delete: got %d, want 3", count)
	}
	if err := store.DeleteByDocument(ctx, "missing"); err != nil {
		t.Errorf("deleting unknown document: %v", err)
	}
}

func TestChromemStore_PersistAndLoad(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.AddDocuments(ctx, ParagraphDocuments("doc-1", "msa.docx", sampleDocument())); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}

	dir := t.TempDir() + "/index"
	if err := store.Persist(ctx, dir); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	store2 := newTestStore(t)
	if err := store2.Load(ctx, dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if count := store2.Count(); count != 3 {
		t.Errorf("Count after load: got %d, want 3", count)
	}

	results, err := store2.Search(ctx, "Master Services Agreement", 3, nil)
	if err != nil {
		t.Fatalf("Search after load: %v", err)
	}
	var title *Document
	for i := range results {
		if results[i].Document.Metadata.Paragraph == 0 {
			title = &results[i].Document
		}
	}
	if title == nil {
		t.Fatal("title paragraph not found after load")
	}
	if title.Metadata.Style != "Title" || title.Metadata.DocumentName != "msa.docx" {
		t.Errorf("metadata not preserved: %+v", title.Metadata)
	}
	if time.Since(title.Metadata.LastUpdated) > time.Hour {
		t.Errorf("last_updated not preserved: %v", title.Metadata.LastUpdated)
	}
}

func TestFormatResults(t *testing.T) {
	results := []SearchResult{
		{
			Document: Document{
				ID:      "doc-1#2",
				Content: "Payment is due within 30 days.",
				Metadata: DocumentMetadata{
					DocumentID:   "doc-1",
					DocumentName: "msa.docx",
					Paragraph:    2,
					Style:        "Normal",
				},
			},
			Similarity: 0.9512,
		},
	}

	output := FormatResults(results)
	for _, want := range []string{"msa.docx (doc-1)", "Paragraph: 2", "Style: Normal", "0.9512", "30 days"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestFormatResults_Empty(t *testing.T) {
	if output := FormatResults(nil); output != "No results found." {
		t.Errorf("expected 'No results found.', got: %s", output)
	}
}
