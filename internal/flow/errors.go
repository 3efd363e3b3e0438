package flow

import "errors"

// Closed set of errors the linking flow can surface. Handlers map these onto
// HTTP responses; anything wrapped inside stays in the logs.
var (
	// ErrMissingState indicates the provider callback arrived without a
	// state parameter.
	ErrMissingState = errors.New("missing state parameter")

	// ErrInvalidState indicates the state token is unknown, already
	// consumed, or expired. Replayed callbacks land here.
	ErrInvalidState = errors.New("invalid or expired state parameter")

	// ErrExchangeFailed indicates the authorization code could not be
	// exchanged for tokens.
	ErrExchangeFailed = errors.New("authorization code exchange failed")

	// ErrProfileFetch indicates the mailbox address behind the new
	// credentials could not be resolved.
	ErrProfileFetch = errors.New("failed to fetch mailbox profile")

	// ErrUserNotFound indicates the user requesting a link does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrRefreshFailed indicates the provider rejected a refresh attempt
	// for a reason other than an invalid grant.
	ErrRefreshFailed = errors.New("access token refresh failed")

	// ErrReauthorizationRequired indicates the stored credentials can no
	// longer be refreshed; the user must link the account again.
	ErrReauthorizationRequired = errors.New("account requires re-authorization")
)
