// Package googlecaltest provides a mock Google Calendar API server for testing.
// It implements a subset of the Google Calendar API v3 Events endpoints.
package googlecaltest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/calendar/v3"
)

const wallClockLayout = "2006-01-02T15:04:05"

// Server is a mock Google Calendar API server for testing.
type Server struct {
	*httptest.Server
	mu       sync.RWMutex
	events   map[string]map[string]*calendar.Event // calendarID -> eventID -> event
	nextID   int
	failures map[string]int // HTTP method -> status code to answer with
	requests []string       // "METHOD path" in arrival order
}

// NewServer creates a new mock Google Calendar API server.
func NewServer() *Server {
	s := &Server{
		events:   make(map[string]map[string]*calendar.Event),
		nextID:   1,
		failures: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)

	s.Server = httptest.NewServer(mux)
	return s
}

// handleRequest routes all requests.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path)
	status, fail := s.failures[r.Method]
	s.mu.Unlock()

	if fail {
		writeError(w, status, "injected failure")
		return
	}

	// Check if this is a calendar events request
	if !strings.Contains(r.URL.Path, "/calendars/") || !strings.Contains(r.URL.Path, "/events") {
		writeError(w, http.StatusNotFound, "unsupported endpoint")
		return
	}
	s.handleCalendars(w, r)
}

// handleCalendars routes calendar-related requests.
func (s *Server) handleCalendars(w http.ResponseWriter, r *http.Request) {
	// Parse URL: /calendar/v3/calendars/{calendarId}/events[/{eventId}]
	path := r.URL.Path

	idx := strings.Index(path, "/calendars/")
	if idx == -1 {
		writeError(w, http.StatusBadRequest, "invalid path: missing /calendars/")
		return
	}

	path = path[idx+len("/calendars/"):]
	parts := strings.Split(strings.Trim(path, "/"), "/")

	if len(parts) < 2 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid path: expected at least calendarId/resource, got %v", parts))
		return
	}

	calendarID := parts[0]
	if parts[1] != "events" {
		writeError(w, http.StatusNotImplemented, "unsupported resource")
		return
	}

	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		s.listEvents(w, r, calendarID)
	case len(parts) == 2 && r.Method == http.MethodPost:
		s.insertEvent(w, r, calendarID)
	case len(parts) == 3 && r.Method == http.MethodGet:
		s.getEvent(w, calendarID, parts[2])
	case len(parts) == 3 && r.Method == http.MethodDelete:
		s.deleteEvent(w, calendarID, parts[2])
	case len(parts) <= 3:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	default:
		writeError(w, http.StatusBadRequest, "invalid path")
	}
}

// insertEvent handles POST /calendars/{calendarId}/events
func (s *Server) insertEvent(w http.ResponseWriter, r *http.Request, calendarID string) {
	var event calendar.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	for _, edt := range []*calendar.EventDateTime{event.Start, event.End} {
		if _, err := eventTime(edt); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid event time: %v", err))
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	event.Id = fmt.Sprintf("event%d", s.nextID)
	s.nextID++

	event.Status = "confirmed"
	event.Created = time.Now().Format(time.RFC3339)
	event.Updated = event.Created
	event.HtmlLink = fmt.Sprintf("https://calendar.google.com/event?eid=%s", event.Id)

	if s.events[calendarID] == nil {
		s.events[calendarID] = make(map[string]*calendar.Event)
	}
	s.events[calendarID][event.Id] = &event

	writeJSON(w, event)
}

// listEvents handles GET /calendars/{calendarId}/events.
// Like the real API, timeMin bounds the event end and timeMax bounds the start.
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request, calendarID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := r.URL.Query()
	timeMin, err := parseBound(query.Get("timeMin"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid timeMin: %v", err))
		return
	}
	timeMax, err := parseBound(query.Get("timeMax"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid timeMax: %v", err))
		return
	}

	type entry struct {
		event *calendar.Event
		start time.Time
	}
	var entries []entry
	for _, evt := range s.events[calendarID] {
		start, err := eventTime(evt.Start)
		if err != nil {
			continue
		}
		end, err := eventTime(evt.End)
		if err != nil {
			end = start
		}
		if !timeMin.IsZero() && !end.After(timeMin) {
			continue
		}
		if !timeMax.IsZero() && !start.Before(timeMax) {
			continue
		}
		entries = append(entries, entry{event: evt, start: start})
	}

	if query.Get("orderBy") == "startTime" && query.Get("singleEvents") == "true" {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].start.Before(entries[j].start)
		})
	}

	// Simple pagination: token is the start index
	startIdx := 0
	if token := query.Get("pageToken"); token != "" {
		startIdx, _ = strconv.Atoi(token)
	}
	maxRes := len(entries)
	if v := query.Get("maxResults"); v != "" {
		maxRes, _ = strconv.Atoi(v)
	}
	startIdx = min(startIdx, len(entries))
	endIdx := min(startIdx+maxRes, len(entries))

	resp := &calendar.Events{
		Kind:    "calendar#events",
		Summary: calendarID,
		Items:   []*calendar.Event{},
	}
	for _, e := range entries[startIdx:endIdx] {
		resp.Items = append(resp.Items, e.event)
	}
	if endIdx < len(entries) {
		resp.NextPageToken = strconv.Itoa(endIdx)
	}

	writeJSON(w, resp)
}

// getEvent handles GET /calendars/{calendarId}/events/{eventId}
func (s *Server) getEvent(w http.ResponseWriter, calendarID, eventID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event := s.events[calendarID][eventID]
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	writeJSON(w, event)
}

// deleteEvent handles DELETE /calendars/{calendarId}/events/{eventId}
func (s *Server) deleteEvent(w http.ResponseWriter, calendarID, eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.events[calendarID][eventID] == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	delete(s.events[calendarID], eventID)
	w.WriteHeader(http.StatusNoContent)
}

// Reset clears all events, injected failures and recorded requests.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string]map[string]*calendar.Event)
	s.failures = make(map[string]int)
	s.requests = nil
	s.nextID = 1
}

// FailMethod makes every request with the given HTTP method answer with status.
// A status of 0 clears the failure.
func (s *Server) FailMethod(method string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, method)
		return
	}
	s.failures[method] = status
}

// Requests returns the "METHOD path" of every request received so far.
func (s *Server) Requests() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.requests...)
}

// GetEvents returns all events for a calendar (for test assertions).
func (s *Server) GetEvents(calendarID string) []*calendar.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []*calendar.Event
	for _, evt := range s.events[calendarID] {
		events = append(events, evt)
	}
	return events
}

// AddEvent adds a pre-configured event to the server (for test setup).
func (s *Server) AddEvent(calendarID string, event *calendar.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.Id == "" {
		event.Id = fmt.Sprintf("event%d", s.nextID)
		s.nextID++
	}

	if s.events[calendarID] == nil {
		s.events[calendarID] = make(map[string]*calendar.Event)
	}
	s.events[calendarID][event.Id] = event
}

// eventTime resolves an EventDateTime the way the API does: an RFC3339
// dateTime, a wall-clock dateTime in timeZone, or an all-day date in UTC.
func eventTime(edt *calendar.EventDateTime) (time.Time, error) {
	if edt == nil {
		return time.Time{}, fmt.Errorf("missing date")
	}
	if edt.DateTime == "" {
		return time.Parse(time.DateOnly, edt.Date)
	}
	if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
		return t, nil
	}
	loc := time.UTC
	if edt.TimeZone != "" {
		l, err := time.LoadLocation(edt.TimeZone)
		if err != nil {
			return time.Time{}, err
		}
		loc = l
	}
	return time.ParseInLocation(wallClockLayout, edt.DateTime, loc)
}

func parseBound(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeError answers with the JSON error envelope used by Google APIs.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": message,
		},
	})
}
