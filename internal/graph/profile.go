package graph

import (
	"context"

	"github.com/teemow/outlook-mcp/internal/logging"
)

// GetProfile returns the signed-in user's directory profile.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	ctx, done := c.startOperation(ctx, "profile", "get")
	profile, err := c.getProfile(ctx)
	done(err)
	return profile, err
}

func (c *Client) getProfile(ctx context.Context) (*Profile, error) {
	var profile Profile
	if err := c.do(ctx, "GET", "/me", nil, nil, &profile); err != nil {
		return nil, err
	}
	c.logger.Debug("profile fetched", logging.UserHash(profile.Address()))
	return &profile, nil
}

// GetMailboxSettings returns the mailbox's time zone, date and time formats,
// and automatic-reply configuration.
func (c *Client) GetMailboxSettings(ctx context.Context) (*MailboxSettings, error) {
	ctx, done := c.startOperation(ctx, "settings", "get")
	settings, err := c.getMailboxSettings(ctx)
	done(err)
	return settings, err
}

func (c *Client) getMailboxSettings(ctx context.Context) (*MailboxSettings, error) {
	var settings MailboxSettings
	if err := c.do(ctx, "GET", "/me/mailboxSettings", nil, nil, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}
