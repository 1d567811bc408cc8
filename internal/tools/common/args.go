package common

import "strings"

// GetFolderFromArgs extracts the target folder path from request arguments.
// Returns the empty string when no folder was provided, which callers treat
// as the operation's default scope (inbox for listing, the whole mailbox for
// search).
func GetFolderFromArgs(args map[string]interface{}) string {
	if folderVal, ok := args["folder"].(string); ok {
		return strings.TrimSpace(folderVal)
	}
	return ""
}

// GetCountFromArgs extracts the "count" argument, falling back to def when
// the argument is absent or not a number. JSON numbers arrive as float64.
func GetCountFromArgs(args map[string]interface{}, def int) int {
	if countVal, ok := args["count"].(float64); ok {
		return int(countVal)
	}
	return def
}
