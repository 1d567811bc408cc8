package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/outlook-mcp/internal/server"
)

// RegisterUserResources registers resources describing the authenticated
// mailbox. They give MCP clients ambient context (who am I, which time zone,
// is an auto-reply active) without spending a tool call.
func RegisterUserResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	profileResource := mcp.NewResource(
		"outlook://profile",
		"Mailbox Profile",
		mcp.WithResourceDescription("Directory profile of the authenticated Microsoft account"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(profileResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleProfile(ctx, request, sc)
	})

	settingsResource := mcp.NewResource(
		"outlook://mailbox-settings",
		"Mailbox Settings",
		mcp.WithResourceDescription("Time zone, date/time formats, and automatic-reply state of the mailbox"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(settingsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleMailboxSettings(ctx, request, sc)
	})

	return nil
}

func handleProfile(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	profile, err := sc.GraphClient().GetProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	profileData := map[string]interface{}{
		"id":          profile.ID,
		"displayName": profile.DisplayName,
		"address":     profile.Address(),
	}
	if profile.JobTitle != "" {
		profileData["jobTitle"] = profile.JobTitle
	}
	if profile.OfficeLocation != "" {
		profileData["officeLocation"] = profile.OfficeLocation
	}
	if profile.PreferredLanguage != "" {
		profileData["preferredLanguage"] = profile.PreferredLanguage
	}

	return jsonResourceContents(request.Params.URI, profileData)
}

func handleMailboxSettings(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	settings, err := sc.GraphClient().GetMailboxSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get mailbox settings: %w", err)
	}

	settingsData := map[string]interface{}{
		"timeZone":   settings.TimeZone,
		"dateFormat": settings.DateFormat,
		"timeFormat": settings.TimeFormat,
	}
	if ar := settings.AutomaticReplies; ar != nil {
		settingsData["automaticReplies"] = map[string]interface{}{
			"status":               ar.Status,
			"externalAudience":     ar.ExternalAudience,
			"internalReplyMessage": ar.InternalReplyMessage,
			"externalReplyMessage": ar.ExternalReplyMessage,
		}
	}

	return jsonResourceContents(request.Params.URI, settingsData)
}

func jsonResourceContents(uri string, data map[string]interface{}) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource data: %w", err)
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
