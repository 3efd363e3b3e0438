package logging

import (
	"strings"
	"testing"
)

func TestAnonymizeEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  string // prefix check only, hash value is opaque
	}{
		{
			name:  "empty email",
			email: "",
			want:  "",
		},
		{
			name:  "normal email",
			email: "user@example.com",
			want:  "user:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnonymizeEmail(tt.email)
			if tt.want == "" {
				if got != "" {
					t.Errorf("AnonymizeEmail(%q) = %q, want empty", tt.email, got)
				}
				return
			}
			if !strings.HasPrefix(got, tt.want) {
				t.Errorf("AnonymizeEmail(%q) = %q, want prefix %q", tt.email, got, tt.want)
			}
		})
	}
}

func TestAnonymizeEmail_Deterministic(t *testing.T) {
	a := AnonymizeEmail("user@example.com")
	b := AnonymizeEmail("user@example.com")
	if a != b {
		t.Errorf("AnonymizeEmail not deterministic: %q != %q", a, b)
	}

	c := AnonymizeEmail("other@example.com")
	if a == c {
		t.Error("AnonymizeEmail produced identical hashes for different emails")
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken(""); got != "<empty>" {
		t.Errorf("SanitizeToken(\"\") = %q, want <empty>", got)
	}

	got := SanitizeToken("ya29.secret-token-value")
	if strings.Contains(got, "secret") {
		t.Errorf("SanitizeToken leaked token content: %q", got)
	}
	if got != "[token:23 chars]" {
		t.Errorf("SanitizeToken = %q, want [token:23 chars]", got)
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"user@example.com", "example.com"},
		{"", ""},
		{"not-an-email", ""},
		{"a@b@c", ""},
	}

	for _, tt := range tests {
		if got := ExtractDomain(tt.email); got != tt.want {
			t.Errorf("ExtractDomain(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}
