package calendar

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/drewfead/smartcal/internal/model"
	"github.com/drewfead/smartcal/internal/recurrence"
)

const icsFilePermMode = 0o600

var textUnescaper = strings.NewReplacer(`\\`, `\`, `\,`, ",", `\;`, ";", `\n`, "\n", `\N`, "\n")

// FileCalendar keeps events in a single local iCalendar file. Every change
// rewrites the whole file.
type FileCalendar struct {
	mu   sync.Mutex
	path string
	loc  *time.Location
	now  func() time.Time
}

// NewFileCalendar returns a calendar backed by the ICS file at path. The file
// is created on first write.
func NewFileCalendar(path string, loc *time.Location) *FileCalendar {
	return &FileCalendar{path: path, loc: loc, now: time.Now}
}

// CreateEvent appends a VEVENT and returns its UID.
func (f *FileCalendar) CreateEvent(_ context.Context, req model.EventRequest) (Created, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cal, err := f.load()
	if err != nil {
		return Created{}, err
	}

	start, end := req.InLocation(f.loc)
	uid := uuid.NewString()

	event := cal.AddEvent(uid)
	event.SetDtStampTime(f.now())
	event.SetSummary(req.Summary)
	event.SetStartAt(start)
	event.SetEndAt(end)
	for _, line := range recurrence.Lines(req.Recurring) {
		event.AddRrule(recurrence.Value(line))
	}

	if err := f.save(cal); err != nil {
		return Created{}, err
	}
	return Created{ID: uid}, nil
}

// DeleteEvent removes the VEVENT with the given UID.
func (f *FileCalendar) DeleteEvent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cal, err := f.load()
	if err != nil {
		return err
	}

	kept := cal.Components[:0]
	found := false
	for _, comp := range cal.Components {
		if ev, ok := comp.(*ics.VEvent); ok && ev.Id() == id {
			found = true
			continue
		}
		kept = append(kept, comp)
	}
	if !found {
		return fmt.Errorf("unable to delete event %s: %w", id, ErrNotFound)
	}
	cal.Components = kept

	return f.save(cal)
}

// ListEvents returns the events, recurring ones expanded, starting in [timeMin, timeMax).
func (f *FileCalendar) ListEvents(_ context.Context, timeMin, timeMax time.Time) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cal, err := f.load()
	if err != nil {
		return nil, err
	}

	var result []model.Event
	for _, ev := range cal.Events() {
		start, err := ev.GetStartAt()
		if err != nil {
			slog.Warn("skipping event without start", "uid", ev.Id(), "error", err)
			continue
		}
		end, err := ev.GetEndAt()
		if err != nil {
			end = start
		}

		rule := ""
		if p := ev.GetProperty(ics.ComponentPropertyRrule); p != nil {
			rule = p.Value
		}

		occurrences, err := recurrence.Between(start.In(f.loc), end.In(f.loc), rule, timeMin, timeMax)
		if err != nil {
			slog.Warn("skipping event with bad recurrence", "uid", ev.Id(), "error", err)
			continue
		}

		summary := ""
		if p := ev.GetProperty(ics.ComponentPropertySummary); p != nil {
			summary = textUnescaper.Replace(p.Value)
		}
		for _, occ := range occurrences {
			result = append(result, model.Event{
				ID:      ev.Id(),
				Summary: summary,
				Start:   occ.Start,
				End:     occ.End,
			})
		}
	}

	sortByStart(result)
	return result, nil
}

func (f *FileCalendar) load() (*ics.Calendar, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cal := ics.NewCalendar()
			cal.SetProductId(productID)
			return cal, nil
		}
		return nil, fmt.Errorf("unable to open calendar file: %w", err)
	}
	defer file.Close()

	cal, err := ics.ParseCalendar(file)
	if err != nil {
		return nil, fmt.Errorf("unable to parse calendar file: %w", err)
	}
	return cal, nil
}

// save writes the calendar atomically via a temp file and rename.
func (f *FileCalendar) save(cal *ics.Calendar) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("unable to create calendar directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".smartcal-*.ics.tmp")
	if err != nil {
		return fmt.Errorf("unable to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(cal.Serialize()); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to write calendar file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to write calendar file: %w", err)
	}
	if err := os.Chmod(tmpName, icsFilePermMode); err != nil {
		return fmt.Errorf("unable to set calendar file permissions: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("unable to replace calendar file: %w", err)
	}
	return nil
}
