package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/drewfead/smartcal/internal/auth"
	"github.com/drewfead/smartcal/internal/calendar"
	"github.com/drewfead/smartcal/internal/config"
	"github.com/drewfead/smartcal/internal/model"
	"github.com/drewfead/smartcal/internal/parser"
	"github.com/drewfead/smartcal/internal/session"
)

// app carries the state shared by the root command and its subcommands.
type app struct {
	in  io.Reader
	out io.Writer

	cfg     *config.Config
	loc     *time.Location
	dayLoc  *time.Location
	service *lazyService
}

// lazyService defers backend construction, and with it authentication, until
// the first calendar operation. A failed initialization is retried on the
// next call.
type lazyService struct {
	init func(ctx context.Context) (calendar.Service, io.Closer, error)

	mu     sync.Mutex
	svc    calendar.Service
	closer io.Closer
}

func (l *lazyService) ensureInitialized(ctx context.Context) (calendar.Service, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.svc != nil {
		return l.svc, nil
	}

	svc, closer, err := l.init(ctx)
	if err != nil {
		return nil, fmt.Errorf("calendar backend unavailable: %w", err)
	}
	l.svc, l.closer = svc, closer
	return svc, nil
}

func (l *lazyService) CreateEvent(ctx context.Context, req model.EventRequest) (calendar.Created, error) {
	svc, err := l.ensureInitialized(ctx)
	if err != nil {
		return calendar.Created{}, err
	}
	return svc.CreateEvent(ctx, req)
}

func (l *lazyService) DeleteEvent(ctx context.Context, id string) error {
	svc, err := l.ensureInitialized(ctx)
	if err != nil {
		return err
	}
	return svc.DeleteEvent(ctx, id)
}

func (l *lazyService) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]model.Event, error) {
	svc, err := l.ensureInitialized(ctx)
	if err != nil {
		return nil, err
	}
	return svc.ListEvents(ctx, timeMin, timeMax)
}

func (l *lazyService) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// newCalendarService builds the configured backend.
func newCalendarService(ctx context.Context, cfg *config.Config, loc *time.Location) (calendar.Service, io.Closer, error) {
	switch cfg.Backend {
	case calendar.BackendICS:
		slog.Info("using local calendar file", "path", cfg.ICS.Path)
		return calendar.NewFileCalendar(cfg.ICS.Path, loc), nil, nil

	case calendar.BackendCalDAV:
		slog.Info("using CalDAV calendar", "url", cfg.CalDAV.URL, "path", cfg.CalDAV.CalendarPath)
		client, err := calendar.NewCalDAVClient(cfg.CalDAV.URL, cfg.CalDAV.Username, cfg.CalDAV.Password, cfg.CalDAV.CalendarPath, loc)
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil

	case calendar.BackendGoogle:
		if err := config.EnsureConfigDir(); err != nil {
			return nil, nil, err
		}

		store, closer, err := newTokenStore(cfg)
		if err != nil {
			return nil, nil, err
		}

		httpClient, err := auth.NewHTTPClient(ctx, auth.Options{
			ServiceAccountPath: cfg.Auth.ServiceAccountPath,
			Subject:            cfg.Auth.Subject,
			CredentialsPath:    cfg.Auth.CredentialsPath,
			Store:              store,
		})
		if err != nil {
			closeQuietly(closer)
			return nil, nil, fmt.Errorf("failed to get authenticated client: %w", err)
		}

		var endpoints []string
		if cfg.APIEndpoint != "" {
			endpoints = append(endpoints, cfg.APIEndpoint)
		}
		client, err := calendar.NewClient(ctx, httpClient, cfg.CalendarID, loc, endpoints...)
		if err != nil {
			closeQuietly(closer)
			return nil, nil, fmt.Errorf("failed to create calendar client: %w", err)
		}
		slog.Info("using Google Calendar", "calendar_id", cfg.CalendarID)
		return client, closer, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// newTokenStore opens the configured OAuth token store. The closer is nil
// for stores that hold no resources.
func newTokenStore(cfg *config.Config) (auth.TokenStore, io.Closer, error) {
	if cfg.Auth.TokenStore == config.TokenStoreSQLite {
		store, err := auth.OpenSQLiteTokenStore(cfg.Auth.TokenDBPath, cfg.Auth.Account)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	}
	return auth.FileTokenStore{Path: cfg.Auth.TokenPath}, nil, nil
}

func closeQuietly(c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		slog.Warn("failed to close resource", "error", err)
	}
}

// setup loads configuration, applies flag overrides and installs the logger.
func (a *app) setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	if path == "" {
		var err error
		if path, err = config.GetConfigPath(); err != nil {
			return ctx, err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return ctx, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := map[string]*string{
		"timezone":     &cfg.Timezone,
		"day-zone":     &cfg.DayZone,
		"backend":      &cfg.Backend,
		"calendar-id":  &cfg.CalendarID,
		"api-endpoint": &cfg.APIEndpoint,
		"log-level":    &cfg.LogLevel,
	}
	for name, field := range overrides {
		if cmd.IsSet(name) {
			*field = cmd.String(name)
		}
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return ctx, fmt.Errorf("invalid config %s: %w", path, err)
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	a.cfg = cfg
	a.loc, _ = cfg.Location()
	a.dayLoc, _ = cfg.DayLocation()
	a.service = &lazyService{
		init: func(ctx context.Context) (calendar.Service, io.Closer, error) {
			return newCalendarService(ctx, a.cfg, a.loc)
		},
	}
	slog.Debug("configuration loaded", "path", path, "backend", cfg.Backend, "timezone", cfg.Timezone)
	return ctx, nil
}

func (a *app) controller() *session.Controller {
	return session.NewController(
		a.service,
		parser.New(a.loc),
		&session.State{},
		a.out,
		session.WithDayZone(a.dayLoc),
		session.WithDisplayZone(a.loc),
	)
}

func (a *app) runSession(ctx context.Context, _ *cli.Command) error {
	return a.controller().Run(ctx, a.in)
}

func (a *app) addEvent(ctx context.Context, cmd *cli.Command) error {
	line := strings.Join(cmd.Args().Slice(), " ")
	if line == "" {
		return fmt.Errorf("usage: smartcal add '%s'", parser.Usage)
	}

	err := a.controller().Create(ctx, line)
	if errors.Is(err, parser.ErrInvalidFormat) {
		return fmt.Errorf("invalid input format, use '%s': %w", parser.Usage, err)
	}
	return err
}

func (a *app) listToday(ctx context.Context, _ *cli.Command) error {
	return a.controller().Today(ctx)
}

func (a *app) authorize(ctx context.Context, _ *cli.Command) error {
	if a.cfg.Backend != calendar.BackendGoogle {
		return fmt.Errorf("backend %q does not use OAuth", a.cfg.Backend)
	}
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}

	oauthConfig, err := auth.LoadConfig(a.cfg.Auth.CredentialsPath)
	if err != nil {
		return err
	}
	store, closer, err := newTokenStore(a.cfg)
	if err != nil {
		return err
	}
	defer closeQuietly(closer)

	if _, err := auth.Authorize(ctx, oauthConfig, store); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Authorization complete.")
	return nil
}

func (a *app) teardown(context.Context, *cli.Command) error {
	if a.service != nil {
		closeQuietly(a.service)
	}
	return nil
}

func newRootCommand(in io.Reader, out io.Writer) *cli.Command {
	a := &app{in: in, out: out}

	return &cli.Command{
		Name:  "smartcal",
		Usage: "create calendar events from one-line descriptions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to config.yaml or config.toml",
				Sources: cli.EnvVars("SMARTCAL_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "timezone",
				Usage:   "IANA time zone events are created in",
				Sources: cli.EnvVars("SMARTCAL_TIMEZONE"),
			},
			&cli.StringFlag{
				Name:    "day-zone",
				Usage:   "IANA time zone whose midnight starts 'today'",
				Sources: cli.EnvVars("SMARTCAL_DAY_ZONE"),
			},
			&cli.StringFlag{
				Name:    "backend",
				Usage:   "calendar backend: google, caldav or ics",
				Sources: cli.EnvVars("SMARTCAL_BACKEND"),
			},
			&cli.StringFlag{
				Name:    "calendar-id",
				Usage:   "Google calendar id",
				Sources: cli.EnvVars("SMARTCAL_CALENDAR_ID"),
			},
			&cli.StringFlag{
				Name:    "api-endpoint",
				Usage:   "override the Google Calendar API endpoint",
				Sources: cli.EnvVars("SMARTCAL_API_ENDPOINT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Sources: cli.EnvVars("SMARTCAL_LOG_LEVEL"),
			},
		},
		Before: a.setup,
		After:  a.teardown,
		Action: a.runSession,
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "create one event",
				ArgsUsage: "'" + parser.Usage + "'",
				Action:    a.addEvent,
			},
			{
				Name:   "today",
				Usage:  "list today's events",
				Action: a.listToday,
			},
			{
				Name:   "auth",
				Usage:  "run the Google OAuth flow and store the token",
				Action: a.authorize,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCommand(os.Stdin, os.Stdout).Run(ctx, os.Args)
	stop()

	if err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
