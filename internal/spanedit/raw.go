package spanedit

import (
	"strings"

	"github.com/ziadkadry99/docpilot/internal/richtext"
)

// ReplaceRaw substitutes up to n occurrences of find in the effective text
// of p (all of them when n < 0) and replaces every run with a single run in
// default formatting. Paragraph attributes are kept. It returns the number
// of substitutions; p is untouched when that number is zero.
//
// This is the degraded path: content is correct, run formatting is lost.
func ReplaceRaw(p *richtext.Paragraph, find, replace string, n int) int {
	if find == "" || n == 0 || checkParagraph(p) != nil {
		return 0
	}
	text := p.Text()
	count := strings.Count(text, find)
	if count == 0 {
		return 0
	}
	if n > 0 && count > n {
		count = n
	}
	p.Runs = []*richtext.Run{{Text: strings.Replace(text, find, replace, n)}}
	return count
}
