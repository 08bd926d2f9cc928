package calendar

import (
	"fmt"
	"time"

	"github.com/drewfead/smartcal/internal/model"
	"github.com/drewfead/smartcal/internal/recurrence"
	"google.golang.org/api/calendar/v3"
)

// wallClockLayout is an RFC3339 date-time without offset; the zone is carried
// separately in EventDateTime.TimeZone.
const wallClockLayout = "2006-01-02T15:04:05"

// MapRequestToEvent converts a parsed request to a Google Calendar Event in the zone loc.
func MapRequestToEvent(req model.EventRequest, loc *time.Location) *calendar.Event {
	start, end := req.InLocation(loc)

	return &calendar.Event{
		Summary: req.Summary,
		Start: &calendar.EventDateTime{
			DateTime: start.Format(wallClockLayout),
			TimeZone: loc.String(),
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(wallClockLayout),
			TimeZone: loc.String(),
		},
		Recurrence: recurrence.Lines(req.Recurring),
	}
}

// MapEventToModel converts a listed Google Calendar event, rendering its
// times in loc. All-day events start at midnight in loc.
func MapEventToModel(item *calendar.Event, loc *time.Location) (model.Event, error) {
	start, allDay, err := parseEventDateTime(item.Start, loc)
	if err != nil {
		return model.Event{}, fmt.Errorf("event %s start: %w", item.Id, err)
	}
	end, _, err := parseEventDateTime(item.End, loc)
	if err != nil {
		return model.Event{}, fmt.Errorf("event %s end: %w", item.Id, err)
	}

	return model.Event{
		ID:      item.Id,
		Summary: item.Summary,
		Start:   start,
		End:     end,
		AllDay:  allDay,
	}, nil
}

func parseEventDateTime(edt *calendar.EventDateTime, loc *time.Location) (time.Time, bool, error) {
	if edt == nil {
		return time.Time{}, false, fmt.Errorf("missing date")
	}
	if edt.DateTime == "" {
		t, err := time.ParseInLocation(time.DateOnly, edt.Date, loc)
		return t, true, err
	}
	if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
		return t.In(loc), false, nil
	}

	// Without an offset the value is wall clock in the event's own zone.
	zone := loc
	if edt.TimeZone != "" {
		if z, err := time.LoadLocation(edt.TimeZone); err == nil {
			zone = z
		}
	}
	t, err := time.ParseInLocation(wallClockLayout, edt.DateTime, zone)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.In(loc), false, nil
}
