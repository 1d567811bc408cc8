package graph

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const eventSelect = "id,subject,bodyPreview,start,end,location,organizer,attendees,isAllDay,isCancelled,webLink"

// ListEvents returns calendar events. With a non-zero window it queries the
// calendar view (expanding recurring events inside [start, end)); otherwise it
// lists upcoming events from the default calendar.
func (c *Client) ListEvents(ctx context.Context, start, end time.Time, count int) ([]Event, error) {
	ctx, done := c.startOperation(ctx, "calendar", "list")
	events, err := c.listEvents(ctx, start, end, count)
	done(err)
	return events, err
}

func (c *Client) listEvents(ctx context.Context, start, end time.Time, count int) ([]Event, error) {
	query := url.Values{}
	query.Set("$top", strconv.Itoa(clampCount(count)))
	query.Set("$select", eventSelect)
	query.Set("$orderby", "start/dateTime")

	path := "/me/events"
	if !start.IsZero() && !end.IsZero() {
		if !end.After(start) {
			return nil, fmt.Errorf("event window end %s is not after start %s",
				end.Format(time.RFC3339), start.Format(time.RFC3339))
		}
		path = "/me/calendarView"
		query.Set("startDateTime", start.UTC().Format(time.RFC3339))
		query.Set("endDateTime", end.UTC().Format(time.RFC3339))
	}

	var page eventListResponse
	if err := c.do(ctx, "GET", path, query, nil, &page); err != nil {
		return nil, err
	}
	return page.Value, nil
}

// CreateEvent creates an event on the default calendar and returns it with
// the Graph-assigned ID.
func (c *Client) CreateEvent(ctx context.Context, event *Event) (*Event, error) {
	ctx, done := c.startOperation(ctx, "calendar", "create")
	created, err := c.createEvent(ctx, event)
	done(err)
	return created, err
}

func (c *Client) createEvent(ctx context.Context, event *Event) (*Event, error) {
	if event == nil {
		return nil, fmt.Errorf("event is nil")
	}
	if event.Subject == "" {
		return nil, fmt.Errorf("event subject is empty")
	}
	if event.Start == nil || event.End == nil {
		return nil, fmt.Errorf("event start and end are required")
	}
	var created Event
	if err := c.do(ctx, "POST", "/me/events", nil, event, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteEvent removes an event from the default calendar. Graph answers 204
// with an empty body.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	ctx, done := c.startOperation(ctx, "calendar", "delete")
	err := c.deleteEvent(ctx, eventID)
	done(err)
	return err
}

func (c *Client) deleteEvent(ctx context.Context, eventID string) error {
	if eventID == "" {
		return fmt.Errorf("event id is empty")
	}
	return c.do(ctx, "DELETE", "/me/events/"+url.PathEscape(eventID), nil, nil, nil)
}
