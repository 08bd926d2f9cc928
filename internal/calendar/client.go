package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/drewfead/smartcal/internal/model"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DefaultCalendarID is the Google calendar used when none is configured.
const DefaultCalendarID = "primary"

// Client wraps the Google Calendar API service
type Client struct {
	service    *calendar.Service
	calendarID string
	loc        *time.Location
}

// NewClient creates a new Google Calendar API client for calendarID, submitting
// and rendering times in loc.
// Optionally accepts an endpoint URL for testing with mock servers.
func NewClient(ctx context.Context, httpClient *http.Client, calendarID string, loc *time.Location, endpoint ...string) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}

	// Add endpoint override if provided
	if len(endpoint) > 0 && endpoint[0] != "" {
		opts = append(opts, option.WithEndpoint(endpoint[0]))
	}

	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %w", err)
	}

	if calendarID == "" {
		calendarID = DefaultCalendarID
	}

	return &Client{
		service:    srv,
		calendarID: calendarID,
		loc:        loc,
	}, nil
}

// CreateEvent creates a new event in the configured calendar
func (c *Client) CreateEvent(ctx context.Context, req model.EventRequest) (Created, error) {
	event := MapRequestToEvent(req, c.loc)

	createdEvent, err := c.service.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return Created{}, fmt.Errorf("unable to create event: %w", err)
	}

	return Created{ID: createdEvent.Id, Link: createdEvent.HtmlLink}, nil
}

// DeleteEvent deletes an event from the configured calendar
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	err := c.service.Events.Delete(c.calendarID, id).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
			return fmt.Errorf("unable to delete event %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("unable to delete event: %w", err)
	}

	return nil
}

// ListEvents returns the single events starting in [timeMin, timeMax), with
// recurring events expanded by the API.
func (c *Client) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]model.Event, error) {
	call := c.service.Events.List(c.calendarID).
		Context(ctx).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339))

	var result []model.Event
	pageToken := ""
	for {
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		events, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve events: %w", err)
		}

		for _, item := range events.Items {
			ev, err := MapEventToModel(item, c.loc)
			if err != nil {
				return nil, err
			}
			// timeMax bounds the event end on the API side; the listing is by start.
			if ev.Start.Before(timeMin) || !ev.Start.Before(timeMax) {
				continue
			}
			result = append(result, ev)
		}

		pageToken = events.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return result, nil
}
