package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"github.com/drewfead/smartcal/internal/model"
	"github.com/drewfead/smartcal/internal/recurrence"
)

const productID = "-//smartcal//smartcal//EN"

// CalDAVClient stores events as calendar objects in a CalDAV collection.
type CalDAVClient struct {
	client       *caldav.Client
	calendarPath string
	loc          *time.Location
}

// NewCalDAVClient creates a client for the collection at calendarPath on serverURL.
// Basic auth is used when username and password are both set.
func NewCalDAVClient(serverURL, username, password, calendarPath string, loc *time.Location) (*CalDAVClient, error) {
	baseURL, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid CalDAV server URL: %w", err)
	}

	var httpClient webdav.HTTPClient = http.DefaultClient
	if username != "" && password != "" {
		httpClient = webdav.HTTPClientWithBasicAuth(httpClient, username, password)
	}

	c, err := caldav.NewClient(httpClient, baseURL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create CalDAV client: %w", err)
	}

	if calendarPath == "" {
		calendarPath = baseURL.Path
	}

	return &CalDAVClient{
		client:       c,
		calendarPath: strings.TrimRight(calendarPath, "/"),
		loc:          loc,
	}, nil
}

func (c *CalDAVClient) objectPath(id string) string {
	return c.calendarPath + "/" + id + ".ics"
}

// CreateEvent puts a new VEVENT object named after a fresh UID.
func (c *CalDAVClient) CreateEvent(ctx context.Context, req model.EventRequest) (Created, error) {
	uid := uuid.NewString()
	cal := buildCalendarObject(uid, req, c.loc, time.Now())

	if _, err := c.client.PutCalendarObject(ctx, c.objectPath(uid), cal); err != nil {
		return Created{}, fmt.Errorf("failed to create event: %w", err)
	}

	return Created{ID: uid}, nil
}

// DeleteEvent removes the calendar object for id.
func (c *CalDAVClient) DeleteEvent(ctx context.Context, id string) error {
	if err := c.client.Client.RemoveAll(ctx, c.objectPath(id)); err != nil {
		if strings.Contains(err.Error(), "404") {
			return fmt.Errorf("failed to delete event %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// ListEvents queries VEVENTs overlapping the range and expands recurring ones locally.
func (c *CalDAVClient) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]model.Event, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     "VCALENDAR",
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  "VEVENT",
				Start: timeMin,
				End:   timeMax,
			}},
		},
	}

	objects, err := c.client.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	var result []model.Event
	for _, obj := range objects {
		events, err := eventsFromCalendar(obj.Data, c.loc, timeMin, timeMax)
		if err != nil {
			slog.Warn("skipping unreadable calendar object", "path", obj.Path, "error", err)
			continue
		}
		result = append(result, events...)
	}

	sortByStart(result)
	return result, nil
}

func buildCalendarObject(uid string, req model.EventRequest, loc *time.Location, now time.Time) *ical.Calendar {
	start, end := req.InLocation(loc)

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	event.Props.SetText(ical.PropSummary, req.Summary)
	event.Props.SetDateTime(ical.PropDateTimeStart, start)
	event.Props.SetDateTime(ical.PropDateTimeEnd, end)
	event.Props.SetText(ical.PropStatus, "CONFIRMED")
	for _, line := range recurrence.Lines(req.Recurring) {
		rule := ical.NewProp(ical.PropRecurrenceRule)
		rule.Value = recurrence.Value(line)
		event.Props.Set(rule)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Children = append(cal.Children, event.Component)
	return cal
}

func eventsFromCalendar(cal *ical.Calendar, loc *time.Location, timeMin, timeMax time.Time) ([]model.Event, error) {
	var result []model.Event
	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}

		start, err := comp.Props.DateTime(ical.PropDateTimeStart, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid DTSTART: %w", err)
		}
		end, err := comp.Props.DateTime(ical.PropDateTimeEnd, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid DTEND: %w", err)
		}

		rule := ""
		if p := comp.Props.Get(ical.PropRecurrenceRule); p != nil {
			rule = p.Value
		}

		occurrences, err := recurrence.Between(start.In(loc), end.In(loc), rule, timeMin, timeMax)
		if err != nil {
			return nil, err
		}

		uid := textProp(comp.Props, ical.PropUID)
		summary := textProp(comp.Props, ical.PropSummary)
		for _, occ := range occurrences {
			result = append(result, model.Event{
				ID:      uid,
				Summary: summary,
				Start:   occ.Start,
				End:     occ.End,
			})
		}
	}
	return result, nil
}

func textProp(props ical.Props, name string) string {
	prop := props.Get(name)
	if prop == nil {
		return ""
	}
	text, err := prop.Text()
	if err != nil {
		return prop.Value
	}
	return text
}
