// Package statestore implements the ephemeral store for OAuth state tokens.
//
// State tokens are short-lived, single-use values binding an OAuth redirect
// round-trip to the initiating user. The store contract requires atomic
// consume semantics: a token can be read at most once, and concurrent
// consumers of the same token must not both succeed. The memory backend
// serializes consume under a mutex; the redis backend relies on GETDEL.
package statestore
