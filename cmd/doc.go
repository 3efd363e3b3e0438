// Package cmd implements the command-line interface for inboxlink.
//
// Commands:
//   - serve: start the API and metrics servers (default)
//   - version: display version information
package cmd
