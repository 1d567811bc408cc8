// Package folder_tools provides MCP tools for browsing the mailbox folder
// hierarchy.
package folder_tools
