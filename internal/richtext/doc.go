// Package richtext is the in-memory model of a word-processing document.
//
// A Document is an ordered list of Paragraphs and a Paragraph is an ordered
// list of Runs. A Run carries text with uniform formatting. The effective
// text of a paragraph is the concatenation of its run texts; run boundaries
// are formatting boundaries only.
//
// Offsets into effective text are byte offsets into UTF-8.
package richtext
