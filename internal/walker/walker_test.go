package walker

import (
	"archive/zip"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// writeDocx writes a minimal zip package at root/rel.
func writeDocx(t *testing.T, root, rel string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("word/document.xml")
	w.Write([]byte("<w:document/>"))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()
	return path
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// sampleTree builds a directory with documents, decoys and ignored paths.
func sampleTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeDocx(t, root, "contract.docx")
	writeDocx(t, root, "legal/nda.docx")
	writeDocx(t, root, "legal/drafts/nda-v2.docx")
	writeDocx(t, root, "legal/~$nda.docx")
	writeDocx(t, root, ".git/objects/x.docx")
	writeDocx(t, root, "archive/old.docx")
	writeFile(t, root, "notes.txt", "not a document")
	writeFile(t, root, "fake.docx", "plain text pretending")
	writeFile(t, root, ".gitignore", "# generated\narchive/\n")
	return root
}

func relPaths(files []FileInfo) []string {
	var out []string
	for _, f := range files {
		out = append(out, f.RelPath)
	}
	sort.Strings(out)
	return out
}

func TestWalk(t *testing.T) {
	root := sampleTree(t)

	files, err := Walk(WalkerConfig{RootDir: root})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	want := []string{"contract.docx", "legal/drafts/nda-v2.docx", "legal/nda.docx"}
	if diff := cmp.Diff(want, relPaths(files)); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	for _, f := range files {
		if !filepath.IsAbs(f.Path) {
			t.Errorf("Path %q is not absolute", f.Path)
		}
		if len(f.ContentHash) != 64 {
			t.Errorf("ContentHash %q is not a SHA-256 hex digest", f.ContentHash)
		}
		if f.Size == 0 {
			t.Errorf("Size of %s is zero", f.RelPath)
		}
	}
}

func TestWalk_IncludeExclude(t *testing.T) {
	root := sampleTree(t)

	files, err := Walk(WalkerConfig{
		RootDir: root,
		Include: []string{"legal/**/*.docx"},
		Exclude: []string{"**/drafts/**"},
	})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	if diff := cmp.Diff([]string{"legal/nda.docx"}, relPaths(files)); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestWalk_MaxFileSize(t *testing.T) {
	root := sampleTree(t)

	files, err := Walk(WalkerConfig{RootDir: root, MaxFileSize: 10})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected every document to exceed 10 bytes, got %v", relPaths(files))
	}
}

func TestExpand(t *testing.T) {
	root := sampleTree(t)

	files, err := Expand([]string{
		filepath.Join(root, "contract.docx"),
		filepath.Join(root, "legal", "**", "*.docx"),
		filepath.Join(root, "legal"),
	}, WalkerConfig{})
	if err != nil {
		t.Fatalf("Expand() error: %v", err)
	}

	var names []string
	for _, f := range files {
		rel, _ := filepath.Rel(root, f.Path)
		names = append(names, filepath.ToSlash(rel))
	}
	want := []string{"contract.docx", "legal/drafts/nda-v2.docx", "legal/nda.docx"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestExpand_Errors(t *testing.T) {
	root := sampleTree(t)

	if _, err := Expand([]string{filepath.Join(root, "fake.docx")}, WalkerConfig{}); err == nil {
		t.Error("expected error for a file that is not a zip package")
	}
	if _, err := Expand([]string{filepath.Join(root, "*.pdf")}, WalkerConfig{}); err == nil {
		t.Error("expected error for a pattern with no matches")
	}
}

func TestMatchesGitignore(t *testing.T) {
	patterns := []string{"archive/", "*.tmp.docx", "/build/out"}

	tests := []struct {
		path string
		want bool
	}{
		{"archive/old.docx", true},
		{"deep/archive/old.docx", true},
		{"archive", false},
		{"x.tmp.docx", true},
		{"build/out/a.docx", true},
		{"build/other.docx", false},
		{"legal/nda.docx", false},
	}
	for _, tt := range tests {
		if got := matchesGitignore(tt.path, patterns); got != tt.want {
			t.Errorf("matchesGitignore(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestMatchesIncludeDefault(t *testing.T) {
	if !MatchesInclude("a/b/c.docx", nil) {
		t.Error("nested .docx should match the default include")
	}
	if MatchesInclude("a/b/c.doc", nil) {
		t.Error(".doc should not match the default include")
	}
}
