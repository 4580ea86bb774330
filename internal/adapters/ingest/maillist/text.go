package maillist

import (
	"strings"

	"sentinel/internal/core/normalize"

	"golang.org/x/net/html"
)

// bodyText strips markup from a message body fragment, decoding entities
func bodyText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return normalize.Text(b.String())
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				b.WriteByte('\n')
			}
		}
	}
}
