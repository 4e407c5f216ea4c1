// Package documents owns the working copy of every document. Each document
// has a metadata row in sqlite and a .docx file on disk; opened packages are
// cached in memory and guarded by a per-document lock so that a document is
// only ever mutated by one caller at a time.
package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziadkadry99/docpilot/internal/db"
	"github.com/ziadkadry99/docpilot/internal/docx"
	"github.com/ziadkadry99/docpilot/internal/richtext"
)

var (
	// ErrNotFound is returned for an unknown document ID.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidDocument is returned when imported bytes are not a usable .docx.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrNoChange can be returned by an Edit callback to skip saving.
	ErrNoChange = errors.New("no change")
)

// Source records how a document came into the store.
type Source string

const (
	SourceBlank  Source = "blank"
	SourceImport Source = "import"
)

// Document is the metadata of a stored document.
type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Source     Source    `json:"source"`
	Paragraphs int       `json:"paragraphs"`
	SizeBytes  int       `json:"size_bytes"`
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type entry struct {
	mu  sync.Mutex
	pkg *docx.Package
}

// Store keeps documents on disk under dir.
type Store struct {
	db     *db.DB
	dir    string
	logger *zap.Logger

	mu   sync.Mutex
	open map[string]*entry
}

// NewStore creates a Store that writes .docx files into dir.
func NewStore(database *db.DB, dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating documents directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		db:     database,
		dir:    dir,
		logger: logger,
		open:   make(map[string]*entry),
	}, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".docx")
}

func (s *Store) lock(id string) *entry {
	s.mu.Lock()
	e, ok := s.open[id]
	if !ok {
		e = &entry{}
		s.open[id] = e
	}
	s.mu.Unlock()
	e.mu.Lock()
	return e
}

// Create stores a new blank document.
func (s *Store) Create(ctx context.Context, name string) (*Document, error) {
	return s.insert(ctx, cleanName(name), SourceBlank, docx.New())
}

// Import stores a copy of an existing .docx file.
func (s *Store) Import(ctx context.Context, name string, data []byte) (*Document, error) {
	pkg, err := docx.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return s.insert(ctx, cleanName(name), SourceImport, pkg)
}

func (s *Store) insert(ctx context.Context, name string, source Source, pkg *docx.Package) (*Document, error) {
	id := uuid.New().String()
	e := s.lock(id)
	defer e.mu.Unlock()

	size, err := s.write(id, pkg)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Second)
	doc := &Document{
		ID:         id,
		Name:       name,
		Source:     source,
		Paragraphs: len(pkg.Document.Paragraphs),
		SizeBytes:  size,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, name, source, paragraphs, size_bytes, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Name, string(doc.Source), doc.Paragraphs, doc.SizeBytes, doc.Version,
		now.Format(time.DateTime), now.Format(time.DateTime),
	)
	if err != nil {
		os.Remove(s.path(id))
		return nil, fmt.Errorf("inserting document: %w", err)
	}

	e.pkg = pkg
	s.logger.Info("document stored",
		zap.String("id", id),
		zap.String("name", name),
		zap.String("source", string(source)),
		zap.Int("paragraphs", doc.Paragraphs),
	)
	return doc, nil
}

// write saves pkg and returns the file size.
func (s *Store) write(id string, pkg *docx.Package) (int, error) {
	if err := pkg.Save(s.path(id)); err != nil {
		return 0, fmt.Errorf("saving document %s: %w", id, err)
	}
	info, err := os.Stat(s.path(id))
	if err != nil {
		return 0, fmt.Errorf("saving document %s: %w", id, err)
	}
	return int(info.Size()), nil
}

const selectColumns = `SELECT id, name, source, paragraphs, size_bytes, version, created_at, updated_at FROM documents`

// Get returns the metadata for id.
func (s *Store) Get(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document %s: %w", id, err)
	}
	return doc, nil
}

// List returns all documents, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+" ORDER BY updated_at DESC, name")
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// Delete removes the document, its file and its chat history.
func (s *Store) Delete(ctx context.Context, id string) error {
	e := s.lock(id)
	defer e.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("removing document file", zap.String("id", id), zap.Error(err))
	}

	e.pkg = nil
	s.mu.Lock()
	delete(s.open, id)
	s.mu.Unlock()
	return nil
}

// load returns the cached package for id, opening it if needed. The
// caller holds e.mu.
func (s *Store) load(ctx context.Context, id string, e *entry) (*Document, error) {
	meta, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		s.mu.Lock()
		delete(s.open, id)
		s.mu.Unlock()
	}
	if err != nil {
		return nil, err
	}
	if e.pkg == nil {
		pkg, err := docx.Open(s.path(id))
		if err != nil {
			return nil, fmt.Errorf("loading document %s: %w", id, err)
		}
		e.pkg = pkg
	}
	return meta, nil
}

// Export returns the current .docx bytes of id.
func (s *Store) Export(ctx context.Context, id string) ([]byte, error) {
	e := s.lock(id)
	defer e.mu.Unlock()

	if _, err := s.load(ctx, id, e); err != nil {
		return nil, err
	}
	return e.pkg.Bytes()
}

// View calls fn with the current document under the document's lock. fn
// must not retain or modify the document.
func (s *Store) View(ctx context.Context, id string, fn func(*richtext.Document) error) error {
	e := s.lock(id)
	defer e.mu.Unlock()

	if _, err := s.load(ctx, id, e); err != nil {
		return err
	}
	return fn(e.pkg.Document)
}

// Edit calls fn with the current document under the document's lock. If fn
// succeeds the document is saved and its version bumped; if fn returns
// ErrNoChange nothing is saved and Edit succeeds. Any other error discards
// the in-memory changes.
func (s *Store) Edit(ctx context.Context, id string, fn func(*richtext.Document) error) (*Document, error) {
	e := s.lock(id)
	defer e.mu.Unlock()

	meta, err := s.load(ctx, id, e)
	if err != nil {
		return nil, err
	}

	if err := fn(e.pkg.Document); err != nil {
		if errors.Is(err, ErrNoChange) {
			return meta, nil
		}
		// Reload from disk on next access.
		e.pkg = nil
		return nil, err
	}

	size, err := s.write(id, e.pkg)
	if err != nil {
		e.pkg = nil
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Second)
	meta.Version++
	meta.Paragraphs = len(e.pkg.Document.Paragraphs)
	meta.SizeBytes = size
	meta.UpdatedAt = now
	_, err = s.db.ExecContext(ctx, `
		UPDATE documents SET paragraphs = ?, size_bytes = ?, version = ?, updated_at = ?
		WHERE id = ?`,
		meta.Paragraphs, meta.SizeBytes, meta.Version, now.Format(time.DateTime), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating document %s: %w", id, err)
	}

	s.logger.Debug("document saved",
		zap.String("id", id),
		zap.Int("version", meta.Version),
		zap.Int("size_bytes", size),
	)
	return meta, nil
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(sc scanner) (*Document, error) {
	var (
		d                Document
		source           string
		created, updated string
	)
	err := sc.Scan(&d.ID, &d.Name, &source, &d.Paragraphs, &d.SizeBytes, &d.Version, &created, &updated)
	if err != nil {
		return nil, err
	}
	d.Source = Source(source)
	d.CreatedAt = parseTime(created)
	d.UpdatedAt = parseTime(updated)
	return &d, nil
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.DateTime, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// cleanName reduces a client-supplied file name to a display name.
func cleanName(name string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, `\`, "/")))
	if name == "" || name == "." || name == "/" {
		name = "Untitled"
	}
	if !strings.EqualFold(filepath.Ext(name), ".docx") {
		name += ".docx"
	}
	return name
}
