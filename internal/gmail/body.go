package gmail

import (
	"encoding/base64"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// ExtractBody flattens a message payload into plain text. Precedence:
//
//  1. A text/plain part anywhere in the part tree, depth first.
//  2. A text/html part anywhere in the part tree, converted to text.
//  3. The top-level body when the message has no parts, converted when it
//     looks like HTML.
//  4. The provider snippet.
//  5. NoContentPlaceholder.
//
// The result is never empty. Pure function over the payload tree; no
// network.
func ExtractBody(payload *gmail.MessagePart, snippet string) string {
	if payload != nil {
		if len(payload.Parts) > 0 {
			if text := decodePart(findPart(payload.Parts, "text/plain")); !blank(text) {
				return text
			}
			if html := decodePart(findPart(payload.Parts, "text/html")); !blank(html) {
				if text := htmlToText(html); !blank(text) {
					return text
				}
			}
		} else if raw := decodePart(payload); !blank(raw) {
			if looksLikeHTML(raw) {
				if text := htmlToText(raw); !blank(text) {
					return text
				}
			} else {
				return raw
			}
		}
	}

	if !blank(snippet) {
		return strings.TrimSpace(snippet)
	}
	return NoContentPlaceholder
}

// findPart searches the part tree depth first for the given MIME type.
// Parts whose body decodes to nothing are passed over so an empty first
// candidate cannot shadow a usable sibling.
func findPart(parts []*gmail.MessagePart, mimeType string) *gmail.MessagePart {
	for _, part := range parts {
		if part == nil {
			continue
		}
		if part.MimeType == mimeType && !blank(decodePart(part)) {
			return part
		}
		if found := findPart(part.Parts, mimeType); found != nil {
			return found
		}
	}
	return nil
}

// decodePart decodes a part's base64url body. The provider occasionally
// emits standard base64, so that is tried second.
func decodePart(part *gmail.MessagePart) string {
	if part == nil || part.Body == nil || part.Body.Data == "" {
		return ""
	}
	data, err := base64.URLEncoding.DecodeString(part.Body.Data)
	if err != nil {
		data, err = base64.StdEncoding.DecodeString(part.Body.Data)
		if err != nil {
			return ""
		}
	}
	return strings.TrimSpace(string(data))
}

// looksLikeHTML is a deliberately simple bracket heuristic: decoded bodies
// carrying markup have an opening tag before a closing bracket.
func looksLikeHTML(s string) bool {
	open := strings.Index(s, "<")
	if open < 0 {
		return false
	}
	return strings.Index(s[open:], ">") > 0
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
