package mail_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/outlook-mcp/internal/graph"
	"github.com/teemow/outlook-mcp/internal/server"
	"github.com/teemow/outlook-mcp/internal/tools/batch"
	"github.com/teemow/outlook-mcp/internal/tools/common"
)

// registerWriteTools registers the mutating mail tools. In read-only mode
// nothing is registered.
func registerWriteTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if readOnly {
		return nil
	}

	// Send email tool
	sendEmailTool := mcp.NewTool("send-email",
		mcp.WithDescription("Send an email from the authenticated mailbox. A copy is saved to Sent Items."),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Recipient email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Email subject"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Email body content"),
		),
		mcp.WithString("cc",
			mcp.Description("CC email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithBoolean("isHTML",
			mcp.Description("Whether the body is HTML (default: false for plain text)"),
		),
	)

	s.AddTool(sendEmailTool, common.InstrumentedToolHandlerWithService(
		"send-email", "mail", "send", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSendEmail(ctx, request, sc)
		}))

	// Move emails tool (supports single or multiple messages)
	moveEmailsTool := mcp.NewTool("move-emails",
		mcp.WithDescription("Move one or more emails into a target folder"),
		mcp.WithString("messageIds",
			mcp.Required(),
			mcp.Description("Message ID (string) or array of message IDs to move"),
		),
		mcp.WithString("targetFolder",
			mcp.Required(),
			mcp.Description("Destination folder path, e.g. 'Archive' or 'Projects/2026'"),
		),
	)

	s.AddTool(moveEmailsTool, common.InstrumentedToolHandlerWithService(
		"move-emails", "mail", "move", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleMoveEmails(ctx, request, sc)
		}))

	return nil
}

func handleSendEmail(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	toStr, ok := args["to"].(string)
	if !ok || toStr == "" {
		return mcp.NewToolResultError("'to' field is required"), nil
	}

	subject, ok := args["subject"].(string)
	if !ok || subject == "" {
		return mcp.NewToolResultError("'subject' field is required"), nil
	}

	body, ok := args["body"].(string)
	if !ok || body == "" {
		return mcp.NewToolResultError("'body' field is required"), nil
	}

	ccStr := ""
	if ccVal, ok := args["cc"].(string); ok {
		ccStr = ccVal
	}

	contentType := "text"
	if isHTMLVal, ok := args["isHTML"].(bool); ok && isHTMLVal {
		contentType = "html"
	}

	to := splitEmailAddresses(toStr)
	if len(to) == 0 {
		return mcp.NewToolResultError("'to' field contains no valid addresses"), nil
	}

	msg := &graph.OutgoingMessage{
		Subject:      subject,
		Body:         graph.ItemBody{ContentType: contentType, Content: body},
		ToRecipients: graph.NewRecipients(to),
		CcRecipients: graph.NewRecipients(splitEmailAddresses(ccStr)),
	}

	if err := sc.GraphClient().SendMail(ctx, msg); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to send email: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Email sent to %s", strings.Join(to, ", "))), nil
}

func handleMoveEmails(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	// Parse messageIds - can be string or array
	messageIDs, err := batch.ParseStringOrArray(args["messageIds"], "messageIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	targetFolder, ok := args["targetFolder"].(string)
	if !ok || strings.TrimSpace(targetFolder) == "" {
		return mcp.NewToolResultError("targetFolder is required"), nil
	}

	client := sc.GraphClient()
	results := batch.ProcessBatch(ctx, messageIDs, func(messageID string) (string, error) {
		moved, err := client.MoveMessageToPath(ctx, messageID, targetFolder)
		if err != nil {
			return "", err
		}
		// Graph assigns a new message ID on move
		return fmt.Sprintf("Moved to %s (new ID: %s)", targetFolder, moved.ID), nil
	})

	return mcp.NewToolResultText(batch.FormatResults(results)), nil
}
