package gmail

import (
	"strings"

	"golang.org/x/net/html"
)

// blockTags force a line break in the text rendering.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "table": true, "ul": true, "ol": true,
}

// skipTags contribute no text at all.
var skipTags = map[string]bool{
	"script": true, "style": true, "head": true, "title": true,
}

// htmlToText renders HTML markup as plain text. Scripts, styles and images
// are dropped; anchor text is kept without inlining the href; block elements
// become line breaks. Runs of blank lines collapse to one.
func htmlToText(markup string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(markup))

	var b strings.Builder
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return collapseWhitespace(b.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if skipTags[tag] {
				skipDepth++
			}
			if blockTags[tag] {
				b.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if skipTags[tag] && skipDepth > 0 {
				skipDepth--
			}
			if blockTags[tag] {
				b.WriteByte('\n')
			}
		case html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if blockTags[string(name)] {
				b.WriteByte('\n')
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(tokenizer.Text())
			}
		}
	}
}

// collapseWhitespace normalizes intra-line whitespace and drops blank lines.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
