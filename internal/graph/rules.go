package graph

import (
	"context"
	"fmt"
)

// Inbox rules live under the inbox folder in Graph; there is no
// mailbox-level rule collection.
const rulesPath = "/me/mailFolders/inbox/messageRules"

// ListRules returns the mailbox's inbox rules.
func (c *Client) ListRules(ctx context.Context) ([]MessageRule, error) {
	ctx, done := c.startOperation(ctx, "rules", "list")
	rules, err := c.listRules(ctx)
	done(err)
	return rules, err
}

func (c *Client) listRules(ctx context.Context) ([]MessageRule, error) {
	var page ruleListResponse
	if err := c.do(ctx, "GET", rulesPath, nil, nil, &page); err != nil {
		return nil, err
	}
	return page.Value, nil
}

// CreateRule creates an inbox rule and returns it with the Graph-assigned ID.
// A rule action that moves messages must carry a folder ID, not a path;
// resolve paths with ResolveFolderPath first.
func (c *Client) CreateRule(ctx context.Context, rule *MessageRule) (*MessageRule, error) {
	ctx, done := c.startOperation(ctx, "rules", "create")
	created, err := c.createRule(ctx, rule)
	done(err)
	return created, err
}

func (c *Client) createRule(ctx context.Context, rule *MessageRule) (*MessageRule, error) {
	if rule == nil {
		return nil, fmt.Errorf("rule is nil")
	}
	if rule.DisplayName == "" {
		return nil, fmt.Errorf("rule display name is empty")
	}
	if rule.Actions == nil {
		return nil, fmt.Errorf("rule has no actions")
	}
	var created MessageRule
	if err := c.do(ctx, "POST", rulesPath, nil, rule, &created); err != nil {
		return nil, err
	}
	return &created, nil
}
