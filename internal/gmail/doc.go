// Package gmail retrieves and normalizes mailbox messages.
//
// The client lists message ids, fetches full messages and flattens their
// multi-part MIME bodies into plain text through a deterministic fallback
// chain. Body extraction always produces a non-empty string: when the
// provider returned no usable content the result is the snippet, and failing
// that a fixed placeholder. Batch fetches run in parallel with per-message
// failure isolation.
package gmail
