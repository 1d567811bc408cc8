package mail_tools

import (
	"fmt"
	"strings"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/outlook-mcp/internal/graph"
	"github.com/teemow/outlook-mcp/internal/server"
)

// RegisterMailTools registers all mail-related tools with the MCP server
func RegisterMailTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	// Read tools are always available
	if err := registerReadTools(s, sc); err != nil {
		return fmt.Errorf("failed to register mail read tools: %w", err)
	}

	// Write tools (send, move) are suppressed in read-only mode
	if err := registerWriteTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register mail write tools: %w", err)
	}

	return nil
}

// splitEmailAddresses splits a comma-separated address list into trimmed
// addresses, dropping empty entries.
func splitEmailAddresses(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func truncatePreview(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// formatMessageList renders messages as a compact numbered text block.
func formatMessageList(messages []graph.Message, scope string) string {
	if len(messages) == 0 {
		return fmt.Sprintf("No messages found in %s.", scope)
	}

	result := fmt.Sprintf("Found %d message(s) in %s:\n\n", len(messages), scope)
	for i, msg := range messages {
		subject := msg.Subject
		if subject == "" {
			subject = "(no subject)"
		}
		result += fmt.Sprintf("%d. %s\n", i+1, subject)
		result += fmt.Sprintf("   ID: %s\n", msg.ID)
		if from := msg.Sender(); from != "" {
			result += fmt.Sprintf("   From: %s\n", from)
		}
		if msg.ReceivedDateTime != "" {
			result += fmt.Sprintf("   Received: %s\n", msg.ReceivedDateTime)
		}
		if !msg.IsRead {
			result += "   [UNREAD]\n"
		}
		if msg.HasAttachments {
			result += "   [ATTACHMENTS]\n"
		}
		if msg.BodyPreview != "" {
			result += fmt.Sprintf("   Preview: %s\n", truncatePreview(msg.BodyPreview, 120))
		}
		result += "\n"
	}
	return result
}

// formatMessageDetail renders a single message including its body.
func formatMessageDetail(msg *graph.Message) string {
	subject := msg.Subject
	if subject == "" {
		subject = "(no subject)"
	}

	result := fmt.Sprintf("Subject: %s\n", subject)
	result += fmt.Sprintf("ID: %s\n", msg.ID)
	if from := msg.Sender(); from != "" {
		result += fmt.Sprintf("From: %s\n", from)
	}
	if len(msg.ToRecipients) > 0 {
		result += fmt.Sprintf("To: %s\n", joinRecipients(msg.ToRecipients))
	}
	if len(msg.CcRecipients) > 0 {
		result += fmt.Sprintf("Cc: %s\n", joinRecipients(msg.CcRecipients))
	}
	if msg.ReceivedDateTime != "" {
		result += fmt.Sprintf("Received: %s\n", msg.ReceivedDateTime)
	}
	if msg.HasAttachments {
		result += "Attachments: yes\n"
	}
	if msg.WebLink != "" {
		result += fmt.Sprintf("Link: %s\n", msg.WebLink)
	}

	result += "\n"
	if msg.Body != nil && msg.Body.Content != "" {
		result += msg.Body.Content
	} else if msg.BodyPreview != "" {
		result += msg.BodyPreview
	} else {
		result += "(empty body)"
	}
	return result
}

func joinRecipients(recipients []graph.Recipient) string {
	addresses := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if r.EmailAddress.Address != "" {
			addresses = append(addresses, r.EmailAddress.Address)
		}
	}
	return strings.Join(addresses, ", ")
}
