package calendar

import (
	"testing"
	"time"

	gcalendar "google.golang.org/api/calendar/v3"

	"github.com/drewfead/smartcal/internal/model"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("failed to load location %s: %v", name, err)
	}
	return loc
}

func TestMapRequestToEvent(t *testing.T) {
	dublin := mustLoad(t, "Europe/Dublin")

	tests := []struct {
		name           string
		req            model.EventRequest
		wantStart      string
		wantEnd        string
		wantRecurrence int
	}{
		{
			name: "single event",
			req: model.EventRequest{
				Start:   time.Date(2025, time.July, 1, 9, 0, 0, 0, dublin),
				End:     time.Date(2025, time.July, 1, 10, 30, 0, 0, dublin),
				Summary: "Standup",
			},
			wantStart: "2025-07-01T09:00:00",
			wantEnd:   "2025-07-01T10:30:00",
		},
		{
			name: "recurring event from a different zone keeps wall clock",
			req: model.EventRequest{
				Start:     time.Date(2025, time.January, 6, 18, 0, 0, 0, time.UTC),
				End:       time.Date(2025, time.January, 6, 19, 0, 0, 0, time.UTC),
				Summary:   "Choir",
				Recurring: true,
			},
			wantStart:      "2025-01-06T18:00:00",
			wantEnd:        "2025-01-06T19:00:00",
			wantRecurrence: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := MapRequestToEvent(tt.req, dublin)

			if event.Summary != tt.req.Summary {
				t.Errorf("expected summary %q, got %q", tt.req.Summary, event.Summary)
			}
			if event.Start.DateTime != tt.wantStart {
				t.Errorf("expected start %q, got %q", tt.wantStart, event.Start.DateTime)
			}
			if event.End.DateTime != tt.wantEnd {
				t.Errorf("expected end %q, got %q", tt.wantEnd, event.End.DateTime)
			}
			if event.Start.TimeZone != "Europe/Dublin" || event.End.TimeZone != "Europe/Dublin" {
				t.Errorf("expected Europe/Dublin time zone, got %q/%q", event.Start.TimeZone, event.End.TimeZone)
			}
			if len(event.Recurrence) != tt.wantRecurrence {
				t.Errorf("expected %d recurrence lines, got %v", tt.wantRecurrence, event.Recurrence)
			}
		})
	}
}

func TestMapEventToModel(t *testing.T) {
	dublin := mustLoad(t, "Europe/Dublin")

	t.Run("offset date-time", func(t *testing.T) {
		ev, err := MapEventToModel(&gcalendar.Event{
			Id:      "a",
			Summary: "Call",
			Start:   &gcalendar.EventDateTime{DateTime: "2025-07-01T08:00:00Z"},
			End:     &gcalendar.EventDateTime{DateTime: "2025-07-01T09:00:00Z"},
		}, dublin)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// IST is UTC+1 in July.
		if got := ev.Start.Format("15:04"); got != "09:00" {
			t.Errorf("start = %s, want 09:00", got)
		}
		if ev.AllDay {
			t.Error("expected a timed event")
		}
	})

	t.Run("all-day date", func(t *testing.T) {
		ev, err := MapEventToModel(&gcalendar.Event{
			Id:      "b",
			Summary: "Holiday",
			Start:   &gcalendar.EventDateTime{Date: "2025-07-01"},
			End:     &gcalendar.EventDateTime{Date: "2025-07-02"},
		}, dublin)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ev.AllDay {
			t.Error("expected an all-day event")
		}
		if got := ev.Start.Format("2006-01-02 15:04"); got != "2025-07-01 00:00" {
			t.Errorf("start = %s, want midnight", got)
		}
	})

	t.Run("missing start", func(t *testing.T) {
		if _, err := MapEventToModel(&gcalendar.Event{Id: "c"}, dublin); err == nil {
			t.Error("expected error for missing start")
		}
	})
}
