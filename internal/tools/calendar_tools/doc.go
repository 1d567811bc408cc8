// Package calendar_tools provides MCP tools for the Outlook calendar:
// listing upcoming events or a calendar view over a time window, creating
// events, and deleting events.
//
// The calendar view expands recurring events inside the window, so a weekly
// meeting appears once per occurrence. Mutating tools are suppressed in
// read-only mode.
package calendar_tools
