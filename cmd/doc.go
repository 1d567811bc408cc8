// Package cmd implements the command-line interface for outlook-mcp.
//
// This package provides the following commands:
//   - serve: Start the MCP server exposing Outlook mailbox tools to AI assistants
//   - auth: Manage stored OAuth2 credentials (login, status, clear)
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for all MCP tools
//
// The serve command is the default command when no subcommand is specified.
package cmd
