// Package flow orchestrates the Google account linking lifecycle.
//
// The Orchestrator drives the authorization-code flow end to end: it issues
// single-use state tokens, validates them on callback before any exchange,
// trades the code for credentials, resolves the mailbox address and persists
// the linked account. The Guard keeps stored access tokens fresh, refreshing
// them shortly before expiry so callers never hold a token that dies mid
// request.
package flow
