package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/dabooks/internal/client/catalog"
	"github.com/dmitrijs2005/dabooks/internal/client/client"
	"github.com/dmitrijs2005/dabooks/internal/client/config"
	"github.com/dmitrijs2005/dabooks/internal/client/preference"
	"github.com/dmitrijs2005/dabooks/internal/client/repositories"
	"github.com/dmitrijs2005/dabooks/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/dabooks/internal/client/reviews"
	"github.com/dmitrijs2005/dabooks/internal/client/services"
	"github.com/dmitrijs2005/dabooks/internal/client/session"
	"github.com/dmitrijs2005/dabooks/internal/logging"
	"github.com/dmitrijs2005/dabooks/internal/metrics"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	reader   *bufio.Reader
	out      io.Writer
	api      client.Client
	auth     services.AuthService
	sessions *session.Store
	prefs    *preference.Store
	catalog  *catalog.Controller
	form     *reviews.Form
	registry *prometheus.Registry
	db       *sql.DB

	theme       atomic.Pointer[Theme]
	unsubscribe []func()
}

// NewApp opens the local state database, restores the persisted session and
// preference, and wires the API client, catalog controller and review form.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogLevel, os.Stderr)

	db, err := repositories.OpenDatabase(ctx, c.StateFile)
	if err != nil {
		logger.Error(ctx, "error initializing database", "file", c.StateFile, "error", err)
		return nil, err
	}

	registry := prometheus.NewRegistry()
	recorder := metrics.NewCollector(registry)

	sessions := session.NewStore(db, session.WithLogger(logger.With("component", "session")))

	api := client.NewHTTPClient(c.ResolvedAPIURL(),
		client.WithTimeout(c.RequestTimeout),
		client.WithLogger(logger.With("component", "api")),
		client.WithMetrics(recorder),
		client.WithOnUnauthorized(logoutRejected(sessions, logger)),
	)

	prefs, err := preference.Load(ctx, metadata.NewSQLiteRepository(db), preference.AmbientDark)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	cat := catalog.New(ctx, api, sessions.Token,
		catalog.WithDebounce(c.SearchDebounce),
		catalog.WithPageSize(c.PageSize),
		catalog.WithLogger(logger.With("component", "catalog")),
		catalog.WithMetrics(recorder),
	)

	a := newApp(c, logger, bufio.NewReader(os.Stdin), os.Stdout, api,
		services.NewAuthService(api, sessions), sessions, prefs, cat, reviews.NewForm(api, logger))
	a.registry = registry
	a.db = db

	if err := sessions.Restore(ctx); err != nil {
		logger.Warn(ctx, "could not restore session", "error", err)
	}

	return a, nil
}

// newApp assembles an App from ready components and subscribes it to
// session, preference and catalog changes.
func newApp(
	c *config.Config,
	logger logging.Logger,
	reader *bufio.Reader,
	out io.Writer,
	api client.Client,
	auth services.AuthService,
	sessions *session.Store,
	prefs *preference.Store,
	cat *catalog.Controller,
	form *reviews.Form,
) *App {
	a := &App{
		config:   c,
		logger:   logger,
		reader:   reader,
		out:      out,
		api:      api,
		auth:     auth,
		sessions: sessions,
		prefs:    prefs,
		catalog:  cat,
		form:     form,
	}
	a.theme.Store(NewTheme(prefs.IsDark()))

	a.unsubscribe = append(a.unsubscribe,
		sessions.Subscribe(a.onSessionEvent),
		prefs.Subscribe(func(dark bool) { a.theme.Store(NewTheme(dark)) }),
		cat.Subscribe(a.onCatalogState),
	)
	return a
}

// logoutRejected ends the session when the server rejects its token. A 401
// for a token already replaced by a newer login is ignored.
func logoutRejected(sessions *session.Store, logger logging.Logger) func(ctx context.Context, token string) {
	return func(ctx context.Context, token string) {
		if _, err := sessions.LogoutToken(ctx, session.ReasonUnauthorized, token); err != nil {
			logger.Error(ctx, "logout after 401 failed", "error", err)
		}
	}
}

func (a *App) onSessionEvent(ev session.Event) {
	if ev.Kind != session.EventLogout {
		return
	}
	switch ev.Reason {
	case session.ReasonExpired:
		a.warn("Your session has expired. Please log in again.")
	case session.ReasonUnauthorized:
		a.warn("The server rejected your session. Please log in again.")
	default:
		a.println(a.style().Muted.Render("Logged out."))
	}
}

func (a *App) onCatalogState(st catalog.State) {
	if st.Status == catalog.StatusLoading {
		a.println(a.style().Muted.Render("Loading books..."))
	}
}

// Run starts the session expiry watcher (and the metrics endpoint when
// configured) next to the REPL, and returns once the user exits.
func (a *App) Run(ctx context.Context) error {
	defer a.Close(ctx)

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.sessions.Watch(gctx, a.config.ExpiryCheckInterval)
		return nil
	})

	if a.config.MetricsAddr != "" && a.registry != nil {
		g.Go(func() error {
			if err := metrics.Serve(gctx, a.config.MetricsAddr, a.registry); err != nil {
				a.logger.Warn(gctx, "metrics endpoint stopped", "addr", a.config.MetricsAddr, "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer cancel()
		a.Root(gctx)
		return nil
	})

	return g.Wait()
}

// Close releases the catalog controller, the API client and the database.
func (a *App) Close(ctx context.Context) {
	for _, u := range a.unsubscribe {
		u()
	}
	a.catalog.Close()
	if err := a.auth.Close(ctx); err != nil {
		a.logger.Warn(ctx, "closing api client", "error", err)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn(ctx, "closing database", "error", err)
		}
	}
}

func (a *App) isLoggedIn() bool {
	return a.sessions.IsAuthenticated()
}

func (a *App) getStatus() string {
	if u := a.sessions.Username(); u != "" {
		return fmt.Sprintf("(%s)", u)
	}
	return "(guest)"
}

func (a *App) style() *Theme {
	return a.theme.Load()
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) warn(msg string) {
	a.println(a.style().Warning.Render(msg))
}

func (a *App) success(msg string) {
	a.println(a.style().Success.Render(msg))
}

// printError reports err inline in the user's terms.
func (a *App) printError(err error) {
	a.println(a.style().Error.Render("Error: " + client.UserMessage(err)))
}
