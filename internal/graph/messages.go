package graph

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// messageSelect keeps list responses small; bodies are fetched per message.
const messageSelect = "id,subject,bodyPreview,from,toRecipients,receivedDateTime,isRead,hasAttachments,parentFolderId,webLink"

// DefaultMessageCount is used when a caller does not say how many messages
// it wants.
const DefaultMessageCount = 25

// MaxMessageCount caps a single list or search request.
const MaxMessageCount = 100

func clampCount(count int) int {
	if count <= 0 {
		return DefaultMessageCount
	}
	if count > MaxMessageCount {
		return MaxMessageCount
	}
	return count
}

// ListMessages returns the newest messages in the given folder path
// ("Inbox" if empty), newest first.
func (c *Client) ListMessages(ctx context.Context, folderPath string, count int) ([]Message, error) {
	ctx, done := c.startOperation(ctx, "mail", "list")
	messages, err := c.listMessages(ctx, folderPath, count)
	done(err)
	return messages, err
}

func (c *Client) listMessages(ctx context.Context, folderPath string, count int) ([]Message, error) {
	if folderPath == "" {
		folderPath = "Inbox"
	}
	folderID, err := c.ResolveFolderPath(ctx, folderPath)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("$top", strconv.Itoa(clampCount(count)))
	query.Set("$select", messageSelect)
	query.Set("$orderby", "receivedDateTime desc")

	var page messageListResponse
	path := "/me/mailFolders/" + url.PathEscape(folderID) + "/messages"
	if err := c.do(ctx, "GET", path, query, nil, &page); err != nil {
		return nil, err
	}
	return page.Value, nil
}

// SearchMessages runs a full-text search. When folderPath is non-empty the
// search is scoped to that folder, otherwise the whole mailbox is searched.
// Graph does not allow $orderby together with $search; results come back in
// relevance order.
func (c *Client) SearchMessages(ctx context.Context, searchQuery, folderPath string, count int) ([]Message, error) {
	ctx, done := c.startOperation(ctx, "mail", "search")
	messages, err := c.searchMessages(ctx, searchQuery, folderPath, count)
	done(err)
	return messages, err
}

func (c *Client) searchMessages(ctx context.Context, searchQuery, folderPath string, count int) ([]Message, error) {
	if searchQuery == "" {
		return nil, fmt.Errorf("search query is empty")
	}

	path := "/me/messages"
	if folderPath != "" {
		folderID, err := c.ResolveFolderPath(ctx, folderPath)
		if err != nil {
			return nil, err
		}
		path = "/me/mailFolders/" + url.PathEscape(folderID) + "/messages"
	}

	query := url.Values{}
	query.Set("$top", strconv.Itoa(clampCount(count)))
	query.Set("$select", messageSelect)
	query.Set("$search", `"`+searchQuery+`"`)

	var page messageListResponse
	if err := c.do(ctx, "GET", path, query, nil, &page); err != nil {
		return nil, err
	}
	return page.Value, nil
}

// GetMessage fetches a single message including its body.
func (c *Client) GetMessage(ctx context.Context, messageID string) (*Message, error) {
	ctx, done := c.startOperation(ctx, "mail", "get")
	msg, err := c.getMessage(ctx, messageID)
	done(err)
	return msg, err
}

func (c *Client) getMessage(ctx context.Context, messageID string) (*Message, error) {
	if messageID == "" {
		return nil, fmt.Errorf("message id is empty")
	}
	var msg Message
	if err := c.do(ctx, "GET", "/me/messages/"+url.PathEscape(messageID), nil, nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// sendMailRequest is the envelope for the sendMail action.
type sendMailRequest struct {
	Message         OutgoingMessage `json:"message"`
	SaveToSentItems bool            `json:"saveToSentItems"`
}

// SendMail sends a message from the signed-in mailbox. A copy lands in
// Sent Items. Graph answers 202 with an empty body on success.
func (c *Client) SendMail(ctx context.Context, msg *OutgoingMessage) error {
	ctx, done := c.startOperation(ctx, "mail", "send")
	err := c.sendMail(ctx, msg)
	done(err)
	return err
}

func (c *Client) sendMail(ctx context.Context, msg *OutgoingMessage) error {
	if msg == nil {
		return fmt.Errorf("message is nil")
	}
	if len(msg.ToRecipients) == 0 {
		return fmt.Errorf("message has no recipients")
	}
	if msg.Body.ContentType == "" {
		msg.Body.ContentType = "text"
	}
	req := sendMailRequest{Message: *msg, SaveToSentItems: true}
	return c.do(ctx, "POST", "/me/sendMail", nil, req, nil)
}

// moveMessageRequest is the body of the message move action.
type moveMessageRequest struct {
	DestinationID string `json:"destinationId"`
}

// MoveMessage moves one message to the destination folder ID and returns the
// moved message (Graph assigns it a new ID).
func (c *Client) MoveMessage(ctx context.Context, messageID, destinationID string) (*Message, error) {
	ctx, done := c.startOperation(ctx, "mail", "move")
	msg, err := c.moveMessage(ctx, messageID, destinationID)
	done(err)
	return msg, err
}

func (c *Client) moveMessage(ctx context.Context, messageID, destinationID string) (*Message, error) {
	if messageID == "" {
		return nil, fmt.Errorf("message id is empty")
	}
	if destinationID == "" {
		return nil, fmt.Errorf("destination folder id is empty")
	}
	var moved Message
	path := "/me/messages/" + url.PathEscape(messageID) + "/move"
	if err := c.do(ctx, "POST", path, nil, moveMessageRequest{DestinationID: destinationID}, &moved); err != nil {
		return nil, err
	}
	return &moved, nil
}

// MoveMessageToPath resolves the destination folder path and moves the
// message there. When the cached folder ID has gone stale (folder deleted or
// recreated elsewhere), the cache is dropped and the move retried once with a
// fresh resolution.
func (c *Client) MoveMessageToPath(ctx context.Context, messageID, folderPath string) (*Message, error) {
	destinationID, err := c.ResolveFolderPath(ctx, folderPath)
	if err != nil {
		return nil, err
	}

	moved, err := c.MoveMessage(ctx, messageID, destinationID)
	if err == nil || !IsNotFound(err) {
		return moved, err
	}

	c.InvalidateFolderCache()
	freshID, rerr := c.ResolveFolderPath(ctx, folderPath)
	if rerr != nil {
		return nil, rerr
	}
	if freshID == destinationID {
		// The folder ID was fine; the message itself is gone.
		return nil, err
	}
	return c.MoveMessage(ctx, messageID, freshID)
}
