package prompt

import (
	"strings"

	"golang.org/x/net/html"
)

// maxStripPasses bounds entity unwrapping for nested escapes like &amp;lt;.
const maxStripPasses = 8

var angleBrackets = strings.NewReplacer("<", " ", ">", " ")

// StripHTML returns the text content of s with all markup removed. Script and
// style element bodies are dropped. Entities decode to text, so the pass is
// repeated until nothing changes and any '<' or '>' left over is removed.
func StripHTML(s string) string {
	for i := 0; i < maxStripPasses; i++ {
		out := stripOnce(s)
		if out == s {
			break
		}
		s = out
	}
	return angleBrackets.Replace(s)
}

func stripOnce(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawTextElement(name) {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawTextElement(name) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isRawTextElement(name []byte) bool {
	n := string(name)
	return n == "script" || n == "style"
}
