package richtext

// Alignment is the horizontal alignment of a paragraph.
type Alignment string

const (
	AlignDefault Alignment = ""
	AlignLeft    Alignment = "left"
	AlignCenter  Alignment = "center"
	AlignRight   Alignment = "right"
	AlignJustify Alignment = "both"
)

// Format holds the formatting attributes of a run. The zero value is
// "inherit everything".
type Format struct {
	Bold      bool   `json:"bold,omitempty"`
	Italic    bool   `json:"italic,omitempty"`
	Underline bool   `json:"underline,omitempty"`
	Color     string `json:"color,omitempty"`
	Font      string `json:"font,omitempty"`
	// Size is in half-points; 0 inherits.
	Size int `json:"size,omitempty"`
}

// IsZero reports whether f carries no formatting.
func (f Format) IsZero() bool {
	return f == Format{}
}

// Run is the smallest unit of uniformly formatted text.
type Run struct {
	Text   string `json:"text"`
	Format Format `json:"format"`
}

// Paragraph is an ordered sequence of runs plus paragraph attributes.
type Paragraph struct {
	Style string    `json:"style,omitempty"`
	Align Alignment `json:"align,omitempty"`
	Runs  []*Run    `json:"runs"`
}

// Document is an ordered sequence of paragraphs.
type Document struct {
	Paragraphs []*Paragraph `json:"paragraphs"`
}
