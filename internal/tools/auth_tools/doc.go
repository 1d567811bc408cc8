// Package auth_tools provides MCP tools for the server's Microsoft
// credential lifecycle: starting interactive authentication, checking token
// status, and clearing stored tokens.
//
// These tools never carry credentials themselves; they direct the user to
// the auth HTTP server's browser flow and report on the persisted record.
package auth_tools
