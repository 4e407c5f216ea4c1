package documents

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/ziadkadry99/docpilot/internal/db"
	"github.com/ziadkadry99/docpilot/internal/docx"
	"github.com/ziadkadry99/docpilot/internal/richtext"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store, err := NewStore(database, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func sampleDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	pkg := docx.New()
	for _, p := range paragraphs {
		pkg.Document.AppendParagraph(richtext.NewParagraph(p, richtext.Format{}))
	}
	data, err := pkg.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	return data
}

func TestCreateAndGet(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	doc, err := store.Create(ctx, "notes")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if doc.Name != "notes.docx" || doc.Source != SourceBlank || doc.Version != 1 {
		t.Errorf("unexpected metadata: %+v", doc)
	}
	if _, err := os.Stat(store.path(doc.ID)); err != nil {
		t.Errorf("file not written: %v", err)
	}

	got, err := store.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != doc.Name || !got.CreatedAt.Equal(doc.CreatedAt) {
		t.Errorf("Get = %+v, want %+v", got, doc)
	}
}

func TestImport(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	doc, err := store.Import(ctx, `C:\Users\me\Report.DOCX`, sampleDocx(t, "one", "two"))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if doc.Name != "Report.DOCX" || doc.Paragraphs != 2 || doc.Source != SourceImport {
		t.Errorf("unexpected metadata: %+v", doc)
	}

	if _, err := store.Import(ctx, "bad.docx", []byte("not a zip")); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("err = %v, want ErrInvalidDocument", err)
	}
}

func TestEditPersistsAndBumpsVersion(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	doc, _ := store.Import(ctx, "a.docx", sampleDocx(t, "Hello World"))

	meta, err := store.Edit(ctx, doc.ID, func(d *richtext.Document) error {
		d.AppendParagraph(richtext.NewParagraph("Second", richtext.Format{Bold: true}))
		return nil
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if meta.Version != 2 || meta.Paragraphs != 2 {
		t.Errorf("metadata = %+v", meta)
	}

	// Reopen from disk to confirm the file changed.
	pkg, err := docx.Open(store.path(doc.ID))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := pkg.Document.Text(); got != "Hello World\nSecond" {
		t.Errorf("saved text = %q", got)
	}
}

func TestEditNoChange(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	doc, _ := store.Create(ctx, "a")

	meta, err := store.Edit(ctx, doc.ID, func(*richtext.Document) error { return ErrNoChange })
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if meta.Version != 1 {
		t.Errorf("version bumped without change: %d", meta.Version)
	}
}

func TestEditErrorDiscardsChanges(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	doc, _ := store.Import(ctx, "a.docx", sampleDocx(t, "keep"))

	boom := errors.New("boom")
	_, err := store.Edit(ctx, doc.ID, func(d *richtext.Document) error {
		d.Paragraphs[0].Runs[0].Text = "lost"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	var text string
	store.View(ctx, doc.ID, func(d *richtext.Document) error {
		text = d.Text()
		return nil
	})
	if text != "keep" {
		t.Errorf("failed edit leaked: %q", text)
	}
}

func TestConcurrentEditsAreSerialized(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	doc, _ := store.Create(ctx, "a")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Edit(ctx, doc.ID, func(d *richtext.Document) error {
				d.AppendParagraph(richtext.NewParagraph("x", richtext.Format{}))
				return nil
			})
			if err != nil {
				t.Errorf("Edit: %v", err)
			}
		}()
	}
	wg.Wait()

	meta, err := store.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if meta.Version != 11 || meta.Paragraphs != 10 {
		t.Errorf("metadata = %+v, want version 11 with 10 paragraphs", meta)
	}
}

func TestDeleteAndNotFound(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	doc, _ := store.Create(ctx, "a")
	store.AppendMessage(ctx, doc.ID, "user", "hi")

	if err := store.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(store.path(doc.ID)); !os.IsNotExist(err) {
		t.Errorf("file still present: %v", err)
	}

	if _, err := store.Get(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: %v", err)
	}
	if _, err := store.Export(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Export after delete: %v", err)
	}
	if err := store.Delete(ctx, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: %v", err)
	}
	if msgs, _ := store.History(ctx, doc.ID, 0); len(msgs) != 0 {
		t.Errorf("chat history survived delete: %v", msgs)
	}
}

func TestListAndExport(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	a, _ := store.Import(ctx, "a.docx", sampleDocx(t, "alpha"))
	store.Create(ctx, "b")

	docs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}

	data, err := store.Export(ctx, a.ID)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	pkg, err := docx.Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if pkg.Document.Text() != "alpha" {
		t.Errorf("exported text = %q", pkg.Document.Text())
	}
}

func TestHistory(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	doc, _ := store.Create(ctx, "a")

	for _, c := range []string{"q1", "a1", "q2", "a2"} {
		role := "user"
		if c[0] == 'a' {
			role = "assistant"
		}
		if err := store.AppendMessage(ctx, doc.ID, role, c); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	msgs, err := store.History(ctx, doc.ID, 3)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	var got []string
	for _, m := range msgs {
		got = append(got, m.Content)
	}
	if len(got) != 3 || got[0] != "a1" || got[2] != "a2" {
		t.Errorf("history = %v, want [a1 q2 a2]", got)
	}
}

func TestCleanName(t *testing.T) {
	tests := map[string]string{
		"":                 "Untitled.docx",
		"  memo  ":         "memo.docx",
		"../../etc/x.docx": "x.docx",
		"plan.DOCX":        "plan.DOCX",
	}
	for in, want := range tests {
		if got := cleanName(in); got != want {
			t.Errorf("cleanName(%q) = %q, want %q", in, got, want)
		}
	}
}
