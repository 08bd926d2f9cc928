// Package parser turns a single line of user input into an event request.
//
// The accepted grammar is
//
//	HH:MM - HH:MM, DATE, DESCRIPTION [R]
//
// where DATE is DD/MM, DD/MM/YY or DD/MM/YYYY and a trailing capital R marks
// the event as weekly recurring.
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/drewfead/smartcal/internal/model"
)

// Usage describes the accepted input grammar in user-facing terms.
const Usage = "HH:MM - HH:MM, DD/MM/YY or DD/MM, Event Description R (optional)"

// ErrInvalidFormat is returned (wrapped) for any line that does not match the grammar.
var ErrInvalidFormat = errors.New("invalid input format")

// The recurrence marker is its own capture group so that the summary and the
// recurring flag are always derived from the same match.
var linePattern = regexp.MustCompile(`^(\d{1,2}:\d{2}) - (\d{1,2}:\d{2}), (\d{1,2}/\d{1,2}(?:/\d{2,4})?), (.+?)(\s*R)?$`)

// Two-digit years below this value land in the 2000s, the rest in the 1900s.
const twoDigitYearPivot = 69

// Parser converts input lines into model.EventRequest values.
type Parser struct {
	// Location is the zone used to interpret "now" when a year is omitted.
	Location *time.Location
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// New returns a Parser that evaluates year rollover in loc.
func New(loc *time.Location) *Parser {
	return &Parser{Location: loc, Now: time.Now}
}

// Parse parses one line of input. Any structural mismatch yields an error
// wrapping ErrInvalidFormat.
func (p *Parser) Parse(line string) (model.EventRequest, error) {
	m := linePattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return model.EventRequest{}, fmt.Errorf("%w: expected %q", ErrInvalidFormat, Usage)
	}
	startStr, endStr, dateStr, marker := m[1], m[2], m[3], m[5]

	summary := strings.TrimSpace(m[4])
	if summary == "" {
		return model.EventRequest{}, fmt.Errorf("%w: empty description", ErrInvalidFormat)
	}

	startH, startM, err := parseClock(startStr)
	if err != nil {
		return model.EventRequest{}, err
	}
	endH, endM, err := parseClock(endStr)
	if err != nil {
		return model.EventRequest{}, err
	}

	now := p.now()
	day, month, year, hasYear, err := parseDate(dateStr)
	if err != nil {
		return model.EventRequest{}, err
	}

	if !hasYear {
		year = now.Year()
		if err := checkDate(day, month, year); err != nil {
			return model.EventRequest{}, err
		}
		if time.Date(year, month, day, startH, startM, 0, 0, now.Location()).Before(now) {
			year++
		}
	}
	if err := checkDate(day, month, year); err != nil {
		return model.EventRequest{}, err
	}

	loc := now.Location()
	return model.EventRequest{
		Start:     time.Date(year, month, day, startH, startM, 0, 0, loc),
		End:       time.Date(year, month, day, endH, endM, 0, 0, loc),
		Summary:   summary,
		Recurring: marker != "",
	}, nil
}

func (p *Parser) now() time.Time {
	nowFn := p.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	now := nowFn()
	if p.Location != nil {
		now = now.In(p.Location)
	}
	return now
}

func parseClock(s string) (hour, minute int, err error) {
	hh, mm, _ := strings.Cut(s, ":")
	hour, err = strconv.Atoi(hh)
	if err != nil || hour > 23 {
		return 0, 0, fmt.Errorf("%w: bad hour in %q", ErrInvalidFormat, s)
	}
	minute, err = strconv.Atoi(mm)
	if err != nil || minute > 59 {
		return 0, 0, fmt.Errorf("%w: bad minute in %q", ErrInvalidFormat, s)
	}
	return hour, minute, nil
}

func parseDate(s string) (day int, month time.Month, year int, hasYear bool, err error) {
	parts := strings.Split(s, "/")
	day, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, false, fmt.Errorf("%w: bad day in %q", ErrInvalidFormat, s)
	}
	mon, err := strconv.Atoi(parts[1])
	if err != nil || mon < 1 || mon > 12 {
		return 0, 0, 0, false, fmt.Errorf("%w: bad month in %q", ErrInvalidFormat, s)
	}
	month = time.Month(mon)

	if len(parts) == 2 {
		return day, month, 0, false, nil
	}

	yearStr := parts[2]
	year, err = strconv.Atoi(yearStr)
	if err != nil {
		return 0, 0, 0, false, fmt.Errorf("%w: bad year in %q", ErrInvalidFormat, s)
	}
	switch len(yearStr) {
	case 2:
		if year < twoDigitYearPivot {
			year += 2000
		} else {
			year += 1900
		}
	case 4:
	default:
		return 0, 0, 0, false, fmt.Errorf("%w: year must have 2 or 4 digits in %q", ErrInvalidFormat, s)
	}
	return day, month, year, true, nil
}

// checkDate rejects days that do not exist in the given month and year.
func checkDate(day int, month time.Month, year int) error {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day < 1 || day > last {
		return fmt.Errorf("%w: %02d/%02d/%d is not a valid date", ErrInvalidFormat, day, month, year)
	}
	return nil
}
