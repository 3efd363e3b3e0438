// Package google wraps the Google OAuth 2.0 and Gmail profile endpoints.
//
// It contains the OAuth client factory, the token exchange service
// (authorization-code exchange, refresh, revocation) and the mailbox profile
// fetcher. Every outbound call carries a bounded timeout; provider errors are
// wrapped, logged by callers, and never surfaced verbatim to end users.
package google
