package textutil

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// StripHTMLToText extracts readable text from an HTML fragment. Script and
// style content is dropped. When the document has <p> elements only their
// text is kept.
func StripHTMLToText(doc string) string {
	if strings.TrimSpace(doc) == "" {
		return ""
	}

	var (
		all, paras []string
		current    *strings.Builder
		skipDepth  int
	)

	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if current != nil {
				paras = append(paras, current.String())
			}
			text := all
			if len(paras) > 0 {
				text = paras
			}
			return CollapseSpace(strings.Join(text, " "))

		case html.StartTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Script, atom.Style:
				skipDepth++
			case atom.P:
				if current != nil {
					paras = append(paras, current.String())
				}
				current = &strings.Builder{}
			}

		case html.EndTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Script, atom.Style:
				if skipDepth > 0 {
					skipDepth--
				}
			case atom.P:
				if current != nil {
					paras = append(paras, current.String())
					current = nil
				}
			}

		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := string(z.Text())
			all = append(all, text)
			if current != nil {
				current.WriteString(" ")
				current.WriteString(text)
			}
		}
	}
}
