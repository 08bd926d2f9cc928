// Package recurrence builds the weekly recurrence rule attached to recurring
// events and expands stored rules into concrete occurrences.
package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

const rulePrefix = "RRULE:"

// Weekly returns the RRULE content line used for recurring events.
func Weekly() string {
	opt := rrule.ROption{Freq: rrule.WEEKLY}
	return rulePrefix + opt.RRuleString()
}

// Lines returns the recurrence lines for an event, or nil when not recurring.
func Lines(recurring bool) []string {
	if !recurring {
		return nil
	}
	return []string{Weekly()}
}

// Value strips the "RRULE:" prefix from a content line, as iCalendar
// property values carry the rule without it.
func Value(line string) string {
	return strings.TrimPrefix(line, rulePrefix)
}

// IsRecurring reports whether any of lines is an RRULE line.
func IsRecurring(lines []string) bool {
	for _, l := range lines {
		if strings.HasPrefix(l, rulePrefix) {
			return true
		}
	}
	return false
}

// Occurrence is one concrete instance of an event.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// Between returns the occurrences of an event starting at start and lasting
// until end, repeated by rule, whose start falls within [min, max).
// An empty rule yields the single instance when it falls within the window.
func Between(start, end time.Time, rule string, min, max time.Time) ([]Occurrence, error) {
	dur := end.Sub(start)
	rule = Value(strings.TrimSpace(rule))
	if rule == "" {
		if !start.Before(min) && start.Before(max) {
			return []Occurrence{{Start: start, End: end}}, nil
		}
		return nil, nil
	}

	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recurrence rule %q: %w", rule, err)
	}
	r.DTStart(start)

	var out []Occurrence
	for _, occ := range r.Between(min.In(start.Location()), max.In(start.Location()), true) {
		if !occ.Before(max) {
			continue
		}
		out = append(out, Occurrence{Start: occ, End: occ.Add(dur)})
	}
	return out, nil
}
