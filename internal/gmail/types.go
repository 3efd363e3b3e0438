package gmail

// Placeholders for absent headers and empty bodies. Callers can rely on
// these fields always being populated.
const (
	NoSubjectPlaceholder = "(No Subject)"
	NoSenderPlaceholder  = "Unknown Sender"
	NoContentPlaceholder = "No content available"
)

// Message is a normalized mailbox message. Body holds plain text regardless
// of the original MIME structure.
type Message struct {
	ID       string   `json:"id"`
	ThreadID string   `json:"threadId"`
	Subject  string   `json:"subject"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Date     string   `json:"date"`
	Snippet  string   `json:"snippet"`
	Body     string   `json:"body"`
	Labels   []string `json:"labels,omitempty"`
}

// ListPage is one page of a message listing.
type ListPage struct {
	IDs           []string `json:"ids"`
	NextPageToken string   `json:"nextPageToken,omitempty"`
}
