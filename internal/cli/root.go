// Package cli is the eventora command line: scriptable subcommands for
// every backend operation plus the interactive browser.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/eventora/internal/action"
	"github.com/Shivanand-hulikatti/eventora/internal/api"
	"github.com/Shivanand-hulikatti/eventora/internal/config"
	"github.com/Shivanand-hulikatti/eventora/internal/i18n"
	"github.com/Shivanand-hulikatti/eventora/internal/reconcile"
	"github.com/Shivanand-hulikatti/eventora/internal/session"
	"github.com/Shivanand-hulikatti/eventora/internal/transport"
	"github.com/Shivanand-hulikatti/eventora/internal/tui"
)

// App carries the flags and the lazily built collaborators shared by all
// subcommands.
type App struct {
	ConfigPath string
	APIURL     string
	LogLevel   string
	Locale     string
	JSON       bool
	Yes        bool

	// Store overrides the SQLite token store; tests use a memory store.
	Store session.Store
	// LookupEnv overrides the process environment for config loading.
	LookupEnv func(string) (string, bool)

	cfg     *config.Config
	logger  *slog.Logger
	sess    *session.Session
	client  *api.Client
	http    *transport.Client
	cat     *i18n.Catalog
	stdin   *bufio.Reader
	closers []io.Closer
}

// Execute runs the command line against a fresh App.
func Execute(ctx context.Context) error {
	app := &App{}
	return app.execute(ctx, newRootCmd(app))
}

// execute runs cmd and releases the token store on every exit path; cobra
// skips post-run hooks once RunE has failed.
func (a *App) execute(ctx context.Context, cmd *cobra.Command) (err error) {
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "eventora",
		Short:        "Browse, join and organize events from the terminal",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive browser
  eventora

  # Scriptable commands
  eventora events list --city Lyon
  eventora register <event-id>
  eventora unregister <event-id> --yes
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runBrowse(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Path to config.toml (default: user config dir)")
	cmd.PersistentFlags().StringVar(&app.APIURL, "api-url", "", "Backend URL (overrides config)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&app.Locale, "locale", "", "Message language, e.g. en or fr")
	cmd.PersistentFlags().BoolVar(&app.JSON, "json", false, "Print JSON instead of tables")
	cmd.PersistentFlags().BoolVarP(&app.Yes, "yes", "y", false, "Confirm destructive actions without prompting")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newSignupCmd(app))
	cmd.AddCommand(newEventsCmd(app))
	cmd.AddCommand(newRegisterCmd(app))
	cmd.AddCommand(newUnregisterCmd(app))
	cmd.AddCommand(newMyEventsCmd(app))
	cmd.AddCommand(newOrganizerCmd(app))
	cmd.AddCommand(newMLCmd(app))
	cmd.AddCommand(newBrowseCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

// init builds config, logger, session and client once per invocation.
func (a *App) init(cmd *cobra.Command) error {
	if a.client != nil {
		return nil
	}
	cfg, err := config.Load(config.Options{Path: a.ConfigPath, LookupEnv: a.LookupEnv})
	if err != nil {
		return err
	}
	if a.APIURL != "" {
		cfg.APIURL = a.APIURL
	}
	if a.LogLevel != "" {
		cfg.LogLevel = a.LogLevel
	}
	if a.Locale != "" {
		cfg.Locale = a.Locale
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.Logger(cmd.ErrOrStderr())
	a.cat = i18n.New(cfg.Locale, a.logger)

	ctx := cmd.Context()
	store := a.Store
	if store == nil {
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		sqlite, err := session.OpenSQLite(ctx, cfg.SessionPath())
		if err != nil {
			return err
		}
		a.closers = append(a.closers, sqlite)
		store = sqlite
	}
	sess, err := session.Open(ctx, store, a.logger)
	if err != nil {
		return err
	}
	a.sess = sess

	errOut := cmd.ErrOrStderr()
	sessionEnded := func() { fmt.Fprintln(errOut, a.cat.S(i18n.SessionEnded)) }
	hc, err := transport.New(transport.Config{
		BaseURL:           cfg.APIURL,
		Timeout:           cfg.Timeout.Duration,
		Tokens:            sess,
		Logger:            a.logger,
		OnUnauthenticated: sessionEnded,
	})
	if err != nil {
		return err
	}
	a.http = hc
	a.client = api.New(hc, sess, a.logger)
	return nil
}

// Close releases the token store.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

func (a *App) reconciler() *reconcile.Reconciler {
	rec := reconcile.New(a.client, a.logger)
	rec.LoadFailure = api.MsgLoadEvent
	return rec
}

// gate confirms destructive actions on the terminal unless --yes is set.
func (a *App) gate(cmd *cobra.Command) action.Gate {
	if a.Yes {
		return action.Gate{Confirmer: action.Always(true)}
	}
	if a.stdin == nil {
		a.stdin = bufio.NewReader(cmd.InOrStdin())
	}
	return action.Gate{Confirmer: &action.PromptConfirmer{In: a.stdin, Out: cmd.ErrOrStderr()}}
}

func runBrowse(cmd *cobra.Command, app *App) error {
	if err := app.init(cmd); err != nil {
		return writeErr(cmd, err)
	}
	// The browser reacts to the session change itself; stderr belongs to
	// the alternate screen while it runs.
	app.http.OnUnauthenticated(nil)
	return tui.Run(cmd.Context(), tui.Deps{
		Client:  app.client,
		Session: app.sess,
		Catalog: app.cat,
		Logger:  app.logger,
	})
}

func newBrowseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Open the interactive event browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd, app)
		},
	}
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
