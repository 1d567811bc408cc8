// Package rules_tools provides MCP tools for inbox rules: listing the
// mailbox's rules and creating new ones from simple conditions (sender,
// subject, from address) and actions (move, mark as read, delete, forward).
//
// Rule actions that move messages take a folder path and resolve it to a
// folder ID before the rule is created. Mutating tools are suppressed in
// read-only mode.
package rules_tools
