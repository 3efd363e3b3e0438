package gmail

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	gmail "google.golang.org/api/gmail/v1"
)

func part(mimeType, content string, children ...*gmail.MessagePart) *gmail.MessagePart {
	p := &gmail.MessagePart{
		MimeType: mimeType,
		Parts:    children,
	}
	if content != "" {
		p.Body = &gmail.MessagePartBody{
			Data: base64.URLEncoding.EncodeToString([]byte(content)),
		}
	}
	return p
}

func TestExtractBody_PrefersPlainTextOverHTML(t *testing.T) {
	payload := part("multipart/alternative", "",
		part("text/html", "<p>Hello <b>world</b></p>"),
		part("text/plain", "Hello world, plain edition"),
	)

	// The plain part wins and is returned verbatim, no HTML conversion.
	assert.Equal(t, "Hello world, plain edition", ExtractBody(payload, "snippet"))
}

func TestExtractBody_HTMLOnly(t *testing.T) {
	payload := part("multipart/alternative", "",
		part("text/html", `<html><head><style>.x{color:red}</style></head>
<body><script>alert("nope")</script><p>Buy <a href="https://shop.example.com">these shoes</a> today</p>
<img src="https://cdn.example.com/pixel.gif"/></body></html>`),
	)

	body := ExtractBody(payload, "snippet")
	assert.Contains(t, body, "Buy these shoes today")
	assert.NotContains(t, body, "alert")
	assert.NotContains(t, body, "color:red")
	assert.NotContains(t, body, "<")
	assert.NotContains(t, body, "https://cdn.example.com")
}

func TestExtractBody_NestedParts(t *testing.T) {
	payload := part("multipart/mixed", "",
		part("multipart/alternative", "",
			part("multipart/related", "",
				part("text/plain", "buried deep"),
			),
		),
	)

	assert.Equal(t, "buried deep", ExtractBody(payload, ""))
}

func TestExtractBody_TopLevelPlainBody(t *testing.T) {
	payload := part("text/plain", "just a simple body")
	assert.Equal(t, "just a simple body", ExtractBody(payload, ""))
}

func TestExtractBody_TopLevelHTMLBody(t *testing.T) {
	payload := part("text/html", "<div>rendered <i>inline</i></div>")
	assert.Equal(t, "rendered inline", ExtractBody(payload, ""))
}

func TestExtractBody_FallsBackToSnippet(t *testing.T) {
	// No parts, empty top-level body.
	payload := part("multipart/alternative", "")
	assert.Equal(t, "the snippet", ExtractBody(payload, " the snippet "))
}

func TestExtractBody_WhitespaceOnlyPartFallsThrough(t *testing.T) {
	payload := part("multipart/alternative", "",
		part("text/plain", "   \n\t  "),
	)
	assert.Equal(t, "the snippet", ExtractBody(payload, "the snippet"))
}

func TestExtractBody_BlankPlainPartDoesNotShadowSibling(t *testing.T) {
	payload := part("multipart/mixed", "",
		part("text/plain", "   \n\t  "),
		part("text/html", "<p>html edition</p>"),
		part("text/plain", "plain edition"),
	)

	// The whitespace-only first part is passed over; the later plain part
	// still wins over the HTML sibling.
	assert.Equal(t, "plain edition", ExtractBody(payload, "snippet"))
}

func TestExtractBody_Placeholder(t *testing.T) {
	assert.Equal(t, NoContentPlaceholder, ExtractBody(part("multipart/alternative", ""), ""))
	assert.Equal(t, NoContentPlaceholder, ExtractBody(nil, ""))
}

func TestExtractBody_StdBase64Fallback(t *testing.T) {
	// Standard base64 with padding is accepted when base64url fails.
	// "plain+body/text" encodes differently in the two alphabets.
	raw := "body with ÿ non-ascii ~ content"
	payload := &gmail.MessagePart{
		MimeType: "text/plain",
		Body: &gmail.MessagePartBody{
			Data: base64.StdEncoding.EncodeToString([]byte(raw)),
		},
	}
	assert.Equal(t, raw, ExtractBody(payload, ""))
}

func TestLooksLikeHTML(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"<p>hi</p>", true},
		{"text with <a href=\"x\">link</a>", true},
		{"plain text, no markup", false},
		{"math: 1 < 2 and nothing closes", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, looksLikeHTML(tt.in), "input: %q", tt.in)
	}
}

func TestHTMLToText_BlockStructure(t *testing.T) {
	text := htmlToText("<h1>Title</h1><p>First para</p><p>Second   para</p><ul><li>one</li><li>two</li></ul>")
	assert.Equal(t, "Title\nFirst para\nSecond para\none\ntwo", text)
}

func TestHTMLToText_KeepsAnchorTextOnly(t *testing.T) {
	text := htmlToText(`Click <a href="https://example.com/very/long/tracking?u=1">here</a> now`)
	assert.Equal(t, "Click here now", text)
}
