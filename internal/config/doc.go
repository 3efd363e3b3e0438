// Package config loads and validates the application configuration.
//
// Configuration is resolved from (in increasing precedence) a config file,
// a .env file, environment variables, and command-line flags bound by the
// caller. Google OAuth client settings are validated eagerly because a
// misconfigured client must fail startup, not the first authorization flow.
package config
