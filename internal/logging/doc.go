// Package logging provides structured logging helpers built on log/slog.
//
// It defines canonical attribute keys used across the codebase, helpers for
// constructing loggers with common attributes, and sanitization functions for
// logging sensitive values (emails, tokens) without exposing PII or secrets.
package logging
