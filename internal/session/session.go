// Package session implements the interactive read-eval loop: it creates
// events from parsed input lines, undoes the last one, and lists today's events.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/drewfead/smartcal/internal/calendar"
	"github.com/drewfead/smartcal/internal/parser"
)

// Prompt is printed before every line is read.
const Prompt = "Enter event (" + parser.Usage + ") or 'undo' to remove the last event or 'today' to list today's events or 'exit' to quit: "

// User-facing messages.
const (
	msgInvalidFormat = "Invalid input format. Please use '" + parser.Usage + "'"
	msgUndone        = "Last event removed successfully."
	msgNothingToUndo = "No event to undo."
	msgNoEvents      = "No upcoming events found for today."
	msgTodayHeader   = "Today's events:"
)

// ErrNothingToUndo is returned by Undo when no event has been created since
// the last undo.
var ErrNothingToUndo = errors.New("no event to undo")

// Command is the class of an input line.
type Command int

const (
	CommandCreate Command = iota
	CommandUndo
	CommandToday
	CommandExit
)

// Classify matches the whole line against the reserved keywords,
// case-insensitively. Anything else, including a keyword with surrounding
// whitespace, is an event to create.
func Classify(line string) Command {
	switch strings.ToLower(strings.TrimSuffix(line, "\r")) {
	case "exit":
		return CommandExit
	case "undo":
		return CommandUndo
	case "today":
		return CommandToday
	default:
		return CommandCreate
	}
}

// Controller dispatches input lines against a calendar and owns the undo state.
type Controller struct {
	calendar calendar.Service
	parser   *parser.Parser
	state    *State
	out      io.Writer

	// dayZone defines the day boundaries for "today"; display renders times.
	dayZone *time.Location
	display *time.Location
	now     func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithDayZone sets the zone whose midnight starts "today". Defaults to UTC.
func WithDayZone(loc *time.Location) Option {
	return func(c *Controller) { c.dayZone = loc }
}

// WithDisplayZone sets the zone listed times are rendered in. Defaults to the
// zone of each returned event.
func WithDisplayZone(loc *time.Location) Option {
	return func(c *Controller) { c.display = loc }
}

// WithClock overrides the clock used for the "today" window.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController returns a controller writing user messages to out. The
// state is owned by the caller and mutated only by the controller.
func NewController(cal calendar.Service, p *parser.Parser, state *State, out io.Writer, opts ...Option) *Controller {
	c := &Controller{
		calendar: cal,
		parser:   p,
		state:    state,
		out:      out,
		dayZone:  time.UTC,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run reads lines from in until "exit" or end of input. Every command's
// failure is reported to the user and the loop continues. Lines have no
// length limit.
func (c *Controller) Run(ctx context.Context, in io.Reader) error {
	reader := bufio.NewReader(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprint(c.out, Prompt)
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read input: %w", err)
		}
		if line == "" && errors.Is(err, io.EOF) {
			fmt.Fprintln(c.out)
			slog.Debug("input closed, ending session")
			return nil
		}

		if done := c.Handle(ctx, strings.TrimSuffix(line, "\n")); done {
			return nil
		}
		if errors.Is(err, io.EOF) {
			slog.Debug("input closed, ending session")
			return nil
		}
	}
}

// Handle executes one input line and reports the outcome. It returns true
// when the line ends the session.
func (c *Controller) Handle(ctx context.Context, line string) bool {
	cmd := Classify(line)
	slog.Debug("handling command", "command", cmd.String())

	switch cmd {
	case CommandExit:
		return true

	case CommandUndo:
		err := c.Undo(ctx)
		switch {
		case err == nil:
			fmt.Fprintln(c.out, msgUndone)
		case errors.Is(err, ErrNothingToUndo):
			fmt.Fprintln(c.out, msgNothingToUndo)
		default:
			fmt.Fprintf(c.out, "An error occurred: %v\n", err)
		}

	case CommandToday:
		if err := c.Today(ctx); err != nil {
			fmt.Fprintf(c.out, "An error occurred: %v\n", err)
		}

	default:
		if err := c.Create(ctx, line); err != nil {
			if errors.Is(err, parser.ErrInvalidFormat) {
				fmt.Fprintln(c.out, msgInvalidFormat)
				slog.Debug("rejected input", "error", err)
			} else {
				fmt.Fprintf(c.out, "An error occurred: %v\n", err)
			}
		}
	}
	return false
}

// Create parses line, creates the event and remembers its id for undo.
// On any error the undo state is left unchanged.
func (c *Controller) Create(ctx context.Context, line string) error {
	req, err := c.parser.Parse(line)
	if err != nil {
		return err
	}
	if req.End.Before(req.Start) {
		slog.Warn("event ends before it starts", "start", req.Start, "end", req.End)
	}

	created, err := c.calendar.CreateEvent(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	c.state.Remember(created.ID)
	slog.Info("event created", "id", created.ID, "recurring", req.Recurring)

	link := created.Link
	if link == "" {
		link = created.ID
	}
	fmt.Fprintf(c.out, "Event created: %s\n", link)
	return nil
}

// Undo deletes the last created event. The slot is cleared even when the
// deletion fails.
func (c *Controller) Undo(ctx context.Context) error {
	id, ok := c.state.Take()
	if !ok {
		return ErrNothingToUndo
	}

	if err := c.calendar.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("failed to remove event %s: %w", id, err)
	}
	slog.Info("event removed", "id", id)
	return nil
}

// Today lists the events starting within the current day of the day zone.
func (c *Controller) Today(ctx context.Context) error {
	now := c.now().In(c.dayZone)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.dayZone)
	dayEnd := dayStart.AddDate(0, 0, 1)

	events, err := c.calendar.ListEvents(ctx, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	if len(events) == 0 {
		fmt.Fprintln(c.out, msgNoEvents)
		return nil
	}

	fmt.Fprintln(c.out, msgTodayHeader)
	for _, ev := range events {
		start, end := ev.Start, ev.End
		if c.display != nil {
			start, end = start.In(c.display), end.In(c.display)
		}
		fmt.Fprintf(c.out, "%s from %s to %s\n", ev.Summary, start.Format("15:04"), end.Format("15:04"))
	}
	return nil
}

func (c Command) String() string {
	switch c {
	case CommandUndo:
		return "undo"
	case CommandToday:
		return "today"
	case CommandExit:
		return "exit"
	default:
		return "create"
	}
}
