package rules_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/outlook-mcp/internal/graph"
	"github.com/teemow/outlook-mcp/internal/server"
	"github.com/teemow/outlook-mcp/internal/tools/common"
)

// RegisterRulesTools registers all inbox-rule tools with the MCP server
func RegisterRulesTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	// List rules tool (read-only, always available)
	listRulesTool := mcp.NewTool("list-rules",
		mcp.WithDescription("List the mailbox's inbox rules in the order the server applies them"),
	)

	s.AddTool(listRulesTool, common.InstrumentedToolHandlerWithService(
		"list-rules", "rules", "list", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListRules(ctx, request, sc)
		}))

	if !readOnly {
		createRuleTool := mcp.NewTool("create-rule",
			mcp.WithDescription("Create an inbox rule. Conditions select incoming messages; at least one action is required."),
			mcp.WithString("displayName",
				mcp.Required(),
				mcp.Description("Name of the rule"),
			),
			mcp.WithString("senderContains",
				mcp.Description("Match messages whose sender name or address contains any of these strings (comma-separated)"),
			),
			mcp.WithString("subjectContains",
				mcp.Description("Match messages whose subject contains any of these strings (comma-separated)"),
			),
			mcp.WithString("fromAddresses",
				mcp.Description("Match messages from any of these exact email addresses (comma-separated)"),
			),
			mcp.WithString("moveToFolder",
				mcp.Description("Action: move matching messages to this folder (name or nested path like 'Projects/2026')"),
			),
			mcp.WithBoolean("markAsRead",
				mcp.Description("Action: mark matching messages as read"),
			),
			mcp.WithBoolean("delete",
				mcp.Description("Action: delete matching messages"),
			),
			mcp.WithString("forwardTo",
				mcp.Description("Action: forward matching messages to these email addresses (comma-separated)"),
			),
			mcp.WithNumber("sequence",
				mcp.Description("Position among the mailbox's rules (default: after existing rules)"),
			),
		)

		s.AddTool(createRuleTool, common.InstrumentedToolHandlerWithService(
			"create-rule", "rules", "create", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleCreateRule(ctx, request, sc)
			}))
	}

	return nil
}

func handleListRules(ctx context.Context, _ mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	rules, err := sc.GraphClient().ListRules(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list rules: %v", err)), nil
	}
	return mcp.NewToolResultText(formatRuleList(rules)), nil
}

func handleCreateRule(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	displayName, ok := args["displayName"].(string)
	if !ok || strings.TrimSpace(displayName) == "" {
		return mcp.NewToolResultError("displayName is required"), nil
	}

	rule := &graph.MessageRule{
		DisplayName: strings.TrimSpace(displayName),
		IsEnabled:   true,
		Actions:     &graph.MessageRuleActions{},
	}
	if seq, ok := args["sequence"].(float64); ok && seq > 0 {
		rule.Sequence = int(seq)
	}

	conditions := &graph.MessageRuleConditions{}
	if v, ok := args["senderContains"].(string); ok && v != "" {
		conditions.SenderContains = splitList(v)
	}
	if v, ok := args["subjectContains"].(string); ok && v != "" {
		conditions.SubjectContains = splitList(v)
	}
	if v, ok := args["fromAddresses"].(string); ok && v != "" {
		conditions.FromAddresses = graph.NewRecipients(splitList(v))
	}
	if len(conditions.SenderContains) > 0 || len(conditions.SubjectContains) > 0 || len(conditions.FromAddresses) > 0 {
		rule.Conditions = conditions
	}

	hasAction := false
	if folderPath, ok := args["moveToFolder"].(string); ok && folderPath != "" {
		// Graph rule actions take a folder ID, not a path.
		folderID, err := sc.GraphClient().ResolveFolderPath(ctx, folderPath)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to resolve folder '%s': %v", folderPath, err)), nil
		}
		rule.Actions.MoveToFolder = folderID
		hasAction = true
	}
	if v, ok := args["markAsRead"].(bool); ok && v {
		rule.Actions.MarkAsRead = true
		hasAction = true
	}
	if v, ok := args["delete"].(bool); ok && v {
		rule.Actions.Delete = true
		hasAction = true
	}
	if v, ok := args["forwardTo"].(string); ok && v != "" {
		recipients := graph.NewRecipients(splitList(v))
		if len(recipients) == 0 {
			return mcp.NewToolResultError("forwardTo contains no valid addresses"), nil
		}
		rule.Actions.ForwardTo = recipients
		hasAction = true
	}
	if !hasAction {
		return mcp.NewToolResultError("At least one action is required: moveToFolder, markAsRead, delete, or forwardTo"), nil
	}

	created, err := sc.GraphClient().CreateRule(ctx, rule)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create rule: %v", err)), nil
	}

	result := fmt.Sprintf("Rule created: %s\n", created.DisplayName)
	result += fmt.Sprintf("ID: %s\n", created.ID)
	if created.Sequence > 0 {
		result += fmt.Sprintf("Sequence: %d\n", created.Sequence)
	}
	return mcp.NewToolResultText(result), nil
}

func formatRuleList(rules []graph.MessageRule) string {
	if len(rules) == 0 {
		return "No inbox rules found."
	}

	result := fmt.Sprintf("Found %d rule(s):\n\n", len(rules))
	for i, rule := range rules {
		name := rule.DisplayName
		if name == "" {
			name = "(unnamed)"
		}
		result += fmt.Sprintf("%d. %s\n", i+1, name)
		result += fmt.Sprintf("   ID: %s\n", rule.ID)
		result += fmt.Sprintf("   Sequence: %d\n", rule.Sequence)
		if !rule.IsEnabled {
			result += "   [DISABLED]\n"
		}
		if rule.Conditions != nil {
			if len(rule.Conditions.SenderContains) > 0 {
				result += fmt.Sprintf("   If sender contains: %s\n", strings.Join(rule.Conditions.SenderContains, ", "))
			}
			if len(rule.Conditions.SubjectContains) > 0 {
				result += fmt.Sprintf("   If subject contains: %s\n", strings.Join(rule.Conditions.SubjectContains, ", "))
			}
			if len(rule.Conditions.FromAddresses) > 0 {
				result += fmt.Sprintf("   If from: %s\n", joinAddresses(rule.Conditions.FromAddresses))
			}
		}
		if rule.Actions != nil {
			if rule.Actions.MoveToFolder != "" {
				result += fmt.Sprintf("   Move to folder ID: %s\n", rule.Actions.MoveToFolder)
			}
			if rule.Actions.MarkAsRead {
				result += "   Mark as read\n"
			}
			if rule.Actions.Delete {
				result += "   Delete\n"
			}
			if len(rule.Actions.ForwardTo) > 0 {
				result += fmt.Sprintf("   Forward to: %s\n", joinAddresses(rule.Actions.ForwardTo))
			}
		}
		result += "\n"
	}
	return result
}

// splitList splits a comma-separated argument into trimmed entries.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func joinAddresses(recipients []graph.Recipient) string {
	addresses := make([]string, 0, len(recipients))
	for _, r := range recipients {
		addresses = append(addresses, r.EmailAddress.Address)
	}
	return strings.Join(addresses, ", ")
}
