package sentiment

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PlainText strips tags from an HTML fragment, decodes entities and collapses whitespace.
// Script and style bodies are dropped.
func PlainText(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}

	z := html.NewTokenizer(strings.NewReader(markup))
	var b strings.Builder
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input; keep what was collected
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			if isHidden(z) {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			if isHidden(z) && skip > 0 {
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

func isHidden(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch atom.Lookup(name) {
	case atom.Script, atom.Style:
		return true
	}
	return false
}
