package model

import "time"

// EventRequest is a parsed request to create a single calendar event.
//
// Start and End carry wall-clock values only. Their Location is whatever the
// parser was given as "now"; backends re-anchor the wall clock in the
// configured time zone before submitting.
type EventRequest struct {
	Start     time.Time
	End       time.Time
	Summary   string
	Recurring bool
}

// InLocation returns Start and End with their wall-clock fields re-anchored in loc.
func (r EventRequest) InLocation(loc *time.Location) (time.Time, time.Time) {
	return wallClock(r.Start, loc), wallClock(r.End, loc)
}

func wallClock(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}

// Event is a single event as returned by a calendar listing.
type Event struct {
	ID      string
	Summary string
	Start   time.Time
	End     time.Time
	AllDay  bool
}
