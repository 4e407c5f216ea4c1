// Package docx loads and saves WordprocessingML (.docx) packages as
// richtext documents.
//
// Only body paragraphs are modelled. Other body elements (tables, section
// properties, bookmarks at body level) are kept as raw XML anchored to the
// paragraph they followed and written back verbatim. A paragraph whose
// model is unchanged since loading is also written back verbatim, so run
// properties the model does not know about survive untouched paragraphs.
// Inside an edited paragraph, runs keep their original XML when unchanged,
// their original rPr when only the text changed, and their enclosing
// hyperlink or revision element.
package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ziadkadry99/docpilot/internal/richtext"
)

const (
	documentPart = "word/document.xml"
	mainNS       = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
)

var (
	// ErrNotDocx is returned when the archive has no main document part.
	ErrNotDocx = errors.New("not a docx package")
	// ErrUnsupportedPrefix is returned when the main namespace is not bound to "w".
	ErrUnsupportedPrefix = errors.New("main namespace must use the w prefix")
)

type part struct {
	name     string
	method   uint16
	modified time.Time
	data     []byte
}

type rawParagraph struct {
	xml      []byte
	pPr      []byte
	snapshot *richtext.Paragraph
}

// container is an inline element wrapping runs, such as w:hyperlink or w:ins.
type container struct {
	open   []byte
	close  []byte
	parent *container
}

// rawRun is the source of a parsed run. A run whose text and format still
// match is written back verbatim; one whose format still matches keeps its
// original rPr.
type rawRun struct {
	xml    []byte
	rPr    []byte
	text   string
	format richtext.Format
	in     *container
}

// Package is an opened .docx file.
type Package struct {
	Document *richtext.Document

	parts   []part
	header  []byte
	sectPr  []byte
	leading [][]byte
	after   map[*richtext.Paragraph][][]byte
	anchors []*richtext.Paragraph
	raw     map[*richtext.Paragraph]rawParagraph
	runs    map[*richtext.Run]rawRun
}

// New returns a package holding an empty document.
func New() *Package {
	now := time.Now()
	return &Package{
		Document: richtext.NewDocument(),
		parts: []part{
			{name: "[Content_Types].xml", method: zip.Deflate, modified: now, data: []byte(contentTypesXML)},
			{name: "_rels/.rels", method: zip.Deflate, modified: now, data: []byte(relsXML)},
			{name: documentPart, method: zip.Deflate, modified: now},
		},
		header: []byte(blankHeader),
		after:  map[*richtext.Paragraph][][]byte{},
		raw:    map[*richtext.Paragraph]rawParagraph{},
		runs:   map[*richtext.Run]rawRun{},
	}
}

// Open reads the package at path.
func Open(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	pkg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return pkg, nil
}

// Parse reads a package from its bytes.
func Parse(data []byte) (*Package, error) {
	return Read(bytes.NewReader(data), int64(len(data)))
}

// Read reads a package from r.
func Read(r io.ReaderAt, size int64) (*Package, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("opening zip: %w", err)
	}

	pkg := &Package{
		after: map[*richtext.Paragraph][][]byte{},
		raw:   map[*richtext.Paragraph]rawParagraph{},
		runs:  map[*richtext.Run]rawRun{},
	}
	var docXML []byte
	for _, f := range zr.File {
		data, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.Name, err)
		}
		pkg.parts = append(pkg.parts, part{
			name:     f.Name,
			method:   f.Method,
			modified: f.Modified,
			data:     data,
		})
		if f.Name == documentPart {
			docXML = data
		}
	}
	if docXML == nil {
		return nil, ErrNotDocx
	}

	if err := pkg.parseBody(docXML); err != nil {
		return nil, err
	}
	return pkg, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Bytes serializes the package.
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the package to path through a temporary file renamed over
// the target, so a failed write never leaves a truncated document. An
// existing file keeps its permissions.
func (p *Package) Save(path string) error {
	data, err := p.Bytes()
	if err != nil {
		return err
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, mode); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	// WriteFile applies the umask.
	if err := os.Chmod(tmp, mode); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("setting mode of %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// Write serializes the package to w. Parts other than the main document
// are copied unchanged.
func (p *Package) Write(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, pt := range p.parts {
		data := pt.data
		if pt.name == documentPart {
			data = p.renderBody()
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     pt.name,
			Method:   pt.method,
			Modified: pt.modified,
		})
		if err != nil {
			return fmt.Errorf("creating %s: %w", pt.name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("writing %s: %w", pt.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing zip: %w", err)
	}
	return nil
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

const blankHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="` + mainNS + `"><w:body>`
