package mail_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/outlook-mcp/internal/graph"
	"github.com/teemow/outlook-mcp/internal/server"
	"github.com/teemow/outlook-mcp/internal/tools/common"
)

// registerReadTools registers the read-only mail tools.
func registerReadTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// List emails tool
	listEmailsTool := mcp.NewTool("list-emails",
		mcp.WithDescription("List recent emails from a mail folder, newest first"),
		mcp.WithString("folder",
			mcp.Description("Folder path, e.g. 'inbox', 'Sent Items' or 'Projects/2026' (default: inbox)"),
		),
		mcp.WithNumber("count",
			mcp.Description("Maximum number of messages to return (default: 25, max: 100)"),
		),
	)

	s.AddTool(listEmailsTool, common.InstrumentedToolHandlerWithService(
		"list-emails", "mail", "list", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListEmails(ctx, request, sc)
		}))

	// Search emails tool
	searchEmailsTool := mcp.NewTool("search-emails",
		mcp.WithDescription("Search emails by keyword across the mailbox or within one folder"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search text matched against subject, body and sender"),
		),
		mcp.WithString("folder",
			mcp.Description("Folder path to scope the search to (default: whole mailbox)"),
		),
		mcp.WithNumber("count",
			mcp.Description("Maximum number of messages to return (default: 25, max: 100)"),
		),
	)

	s.AddTool(searchEmailsTool, common.InstrumentedToolHandlerWithService(
		"search-emails", "mail", "search", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSearchEmails(ctx, request, sc)
		}))

	// Read email tool
	readEmailTool := mcp.NewTool("read-email",
		mcp.WithDescription("Read a single email including its body"),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the message to read"),
		),
	)

	s.AddTool(readEmailTool, common.InstrumentedToolHandlerWithService(
		"read-email", "mail", "get", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleReadEmail(ctx, request, sc)
		}))

	return nil
}

func handleListEmails(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	folder := common.GetFolderFromArgs(args)
	count := common.GetCountFromArgs(args, graph.DefaultMessageCount)

	messages, err := sc.GraphClient().ListMessages(ctx, folder, count)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list messages: %v", err)), nil
	}

	scope := folder
	if scope == "" {
		scope = "inbox"
	}
	return mcp.NewToolResultText(formatMessageList(messages, scope)), nil
}

func handleSearchEmails(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	folder := common.GetFolderFromArgs(args)
	count := common.GetCountFromArgs(args, graph.DefaultMessageCount)

	messages, err := sc.GraphClient().SearchMessages(ctx, query, folder, count)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to search messages: %v", err)), nil
	}

	scope := folder
	if scope == "" {
		scope = "the mailbox"
	}
	return mcp.NewToolResultText(formatMessageList(messages, scope)), nil
}

func handleReadEmail(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, ok := args["messageId"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}

	msg, err := sc.GraphClient().GetMessage(ctx, messageID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read message: %v", err)), nil
	}

	return mcp.NewToolResultText(formatMessageDetail(msg)), nil
}
