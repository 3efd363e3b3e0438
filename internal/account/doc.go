// Package account persists application users and their linked mail accounts.
//
// A linked account binds one external mailbox to one application user and
// carries the OAuth credentials for that mailbox. The store enforces the
// uniqueness of (user id, mailbox address) and the refresh-token update rule:
// a refresh token already on record is never overwritten by an absent one,
// because the provider does not reissue refresh tokens on every exchange.
package account
