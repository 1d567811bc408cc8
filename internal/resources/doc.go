// Package resources provides MCP resources describing the authenticated
// mailbox: the account's directory profile and its mailbox settings.
// Resources are read-only; anything that mutates the mailbox is a tool.
package resources
