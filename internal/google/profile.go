package google

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// ProfileFetcher resolves the mailbox address behind a freshly issued access
// token. Implemented against the Gmail profile endpoint; substituted in
// tests.
type ProfileFetcher interface {
	EmailAddress(ctx context.Context, accessToken string) (string, error)
}

// GmailProfileFetcher fetches the mailbox address via the Gmail
// users.getProfile endpoint.
type GmailProfileFetcher struct{}

// NewProfileFetcher creates a GmailProfileFetcher.
func NewProfileFetcher() *GmailProfileFetcher {
	return &GmailProfileFetcher{}
}

// EmailAddress returns the mailbox address for the token's account.
func (f *GmailProfileFetcher) EmailAddress(ctx context.Context, accessToken string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Minute),
	})

	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return "", fmt.Errorf("failed to create Gmail service: %w", err)
	}

	profile, err := svc.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to fetch Gmail profile: %w", err)
	}
	if profile.EmailAddress == "" {
		return "", fmt.Errorf("Gmail profile returned no email address")
	}

	return profile.EmailAddress, nil
}
