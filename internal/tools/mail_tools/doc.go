// Package mail_tools provides MCP tools for Outlook mail: listing and
// searching messages, reading a single message, sending mail, and moving
// messages between folders.
//
// Folder arguments accept well-known names ("inbox", "Sent Items") and
// nested paths ("Projects/2026"); resolution and caching happen in the
// graph client. Mutating tools are suppressed in read-only mode.
package mail_tools
