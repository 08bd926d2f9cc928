// Package calendar defines the calendar backend used by the session and its
// Google, CalDAV and local ICS file implementations.
package calendar

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/drewfead/smartcal/internal/model"
)

// ErrNotFound is returned (wrapped) when deleting an event that does not exist.
var ErrNotFound = errors.New("event not found")

// Service is a remote calendar the session creates, deletes and lists events on.
type Service interface {
	// CreateEvent submits req in the backend's configured time zone.
	CreateEvent(ctx context.Context, req model.EventRequest) (Created, error)
	// DeleteEvent removes the event with the given id.
	DeleteEvent(ctx context.Context, id string) error
	// ListEvents returns events starting in [timeMin, timeMax), ordered by start.
	ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]model.Event, error)
}

// Created describes a newly created event.
type Created struct {
	ID   string
	Link string
}

// Backend names accepted in configuration.
const (
	BackendGoogle = "google"
	BackendCalDAV = "caldav"
	BackendICS    = "ics"
)

func sortByStart(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
}
