package calendar_tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/outlook-mcp/internal/graph"
	"github.com/teemow/outlook-mcp/internal/server"
	"github.com/teemow/outlook-mcp/internal/tools/common"
)

// RegisterCalendarTools registers all calendar-related tools with the MCP server
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	// List events tool (read-only, always available)
	listEventsTool := mcp.NewTool("list-events",
		mcp.WithDescription("List calendar events. Without a time range lists upcoming events; with timeMin and timeMax lists the calendar view for that window, expanding recurring events."),
		mcp.WithString("timeMin",
			mcp.Description("Start of the range (RFC3339 format, e.g. '2026-09-01T00:00:00Z'). Requires timeMax."),
		),
		mcp.WithString("timeMax",
			mcp.Description("End of the range (RFC3339 format, e.g. '2026-09-07T23:59:59Z'). Requires timeMin."),
		),
		mcp.WithNumber("count",
			mcp.Description("Maximum number of events to return (default: 25, max: 100)"),
		),
	)

	s.AddTool(listEventsTool, common.InstrumentedToolHandlerWithService(
		"list-events", "calendar", "list", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListEvents(ctx, request, sc)
		}))

	// Write tools (create, delete) are suppressed in read-only mode
	if !readOnly {
		createEventTool := mcp.NewTool("create-event",
			mcp.WithDescription("Create a calendar event on the default calendar"),
			mcp.WithString("subject",
				mcp.Required(),
				mcp.Description("Event subject"),
			),
			mcp.WithString("start",
				mcp.Required(),
				mcp.Description("Start time (RFC3339 format, e.g. '2026-09-01T14:00:00Z')"),
			),
			mcp.WithString("end",
				mcp.Required(),
				mcp.Description("End time (RFC3339 format, e.g. '2026-09-01T15:00:00Z')"),
			),
			mcp.WithString("timeZone",
				mcp.Description("Time zone for start and end (default: UTC)"),
			),
			mcp.WithString("location",
				mcp.Description("Event location"),
			),
			mcp.WithString("body",
				mcp.Description("Event description"),
			),
			mcp.WithString("attendees",
				mcp.Description("Attendee email address(es), comma-separated for multiple attendees"),
			),
		)

		s.AddTool(createEventTool, common.InstrumentedToolHandlerWithService(
			"create-event", "calendar", "create", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleCreateEvent(ctx, request, sc)
			}))

		deleteEventTool := mcp.NewTool("delete-event",
			mcp.WithDescription("Delete a calendar event"),
			mcp.WithString("eventId",
				mcp.Required(),
				mcp.Description("The ID of the event to delete"),
			),
		)

		s.AddTool(deleteEventTool, common.InstrumentedToolHandlerWithService(
			"delete-event", "calendar", "delete", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleDeleteEvent(ctx, request, sc)
			}))
	}

	return nil
}

func handleListEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	count := common.GetCountFromArgs(args, graph.DefaultMessageCount)

	timeMinStr, _ := args["timeMin"].(string)
	timeMaxStr, _ := args["timeMax"].(string)
	if (timeMinStr == "") != (timeMaxStr == "") {
		return mcp.NewToolResultError("timeMin and timeMax must be provided together"), nil
	}

	var timeMin, timeMax time.Time
	if timeMinStr != "" {
		var err error
		timeMin, err = time.Parse(time.RFC3339, timeMinStr)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid timeMin format: %v", err)), nil
		}
		timeMax, err = time.Parse(time.RFC3339, timeMaxStr)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid timeMax format: %v", err)), nil
		}
	}

	events, err := sc.GraphClient().ListEvents(ctx, timeMin, timeMax, count)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list events: %v", err)), nil
	}

	return mcp.NewToolResultText(formatEventList(events)), nil
}

func handleCreateEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	subject, ok := args["subject"].(string)
	if !ok || subject == "" {
		return mcp.NewToolResultError("subject is required"), nil
	}

	startStr, ok := args["start"].(string)
	if !ok || startStr == "" {
		return mcp.NewToolResultError("start is required"), nil
	}
	if _, err := time.Parse(time.RFC3339, startStr); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid start format: %v", err)), nil
	}

	endStr, ok := args["end"].(string)
	if !ok || endStr == "" {
		return mcp.NewToolResultError("end is required"), nil
	}
	if _, err := time.Parse(time.RFC3339, endStr); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid end format: %v", err)), nil
	}

	timeZone := "UTC"
	if tzVal, ok := args["timeZone"].(string); ok && tzVal != "" {
		timeZone = tzVal
	}

	event := &graph.Event{
		Subject: subject,
		Start:   &graph.DateTimeTimeZone{DateTime: startStr, TimeZone: timeZone},
		End:     &graph.DateTimeTimeZone{DateTime: endStr, TimeZone: timeZone},
	}

	if locVal, ok := args["location"].(string); ok && locVal != "" {
		event.Location = &graph.Location{DisplayName: locVal}
	}
	if bodyVal, ok := args["body"].(string); ok && bodyVal != "" {
		event.Body = &graph.ItemBody{ContentType: "text", Content: bodyVal}
	}
	if attendeesVal, ok := args["attendees"].(string); ok && attendeesVal != "" {
		for _, recipient := range graph.NewRecipients(splitAddresses(attendeesVal)) {
			event.Attendees = append(event.Attendees, graph.Attendee{
				EmailAddress: recipient.EmailAddress,
				Type:         "required",
			})
		}
	}

	created, err := sc.GraphClient().CreateEvent(ctx, event)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create event: %v", err)), nil
	}

	result := fmt.Sprintf("Event created: %s\n", created.Subject)
	result += fmt.Sprintf("ID: %s\n", created.ID)
	if created.WebLink != "" {
		result += fmt.Sprintf("Link: %s\n", created.WebLink)
	}
	return mcp.NewToolResultText(result), nil
}

func handleDeleteEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	eventID, ok := args["eventId"].(string)
	if !ok || eventID == "" {
		return mcp.NewToolResultError("eventId is required"), nil
	}

	if err := sc.GraphClient().DeleteEvent(ctx, eventID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to delete event: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Event %s deleted", eventID)), nil
}

func formatEventList(events []graph.Event) string {
	if len(events) == 0 {
		return "No events found."
	}

	result := fmt.Sprintf("Found %d event(s):\n\n", len(events))
	for i, event := range events {
		subject := event.Subject
		if subject == "" {
			subject = "(no subject)"
		}
		result += fmt.Sprintf("%d. %s\n", i+1, subject)
		result += fmt.Sprintf("   ID: %s\n", event.ID)
		if event.Start != nil {
			result += fmt.Sprintf("   Start: %s (%s)\n", event.Start.DateTime, event.Start.TimeZone)
		}
		if event.End != nil {
			result += fmt.Sprintf("   End: %s (%s)\n", event.End.DateTime, event.End.TimeZone)
		}
		if event.Location != nil && event.Location.DisplayName != "" {
			result += fmt.Sprintf("   Location: %s\n", event.Location.DisplayName)
		}
		if len(event.Attendees) > 0 {
			result += fmt.Sprintf("   Attendees: %d\n", len(event.Attendees))
		}
		if event.IsAllDay {
			result += "   [ALL DAY]\n"
		}
		if event.IsCancelled {
			result += "   [CANCELLED]\n"
		}
		result += "\n"
	}
	return result
}

// splitAddresses splits a comma-separated address list into trimmed entries.
func splitAddresses(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
