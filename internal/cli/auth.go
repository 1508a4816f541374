package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/eventora/internal/api"
	"github.com/Shivanand-hulikatti/eventora/internal/apperr"
	"github.com/Shivanand-hulikatti/eventora/internal/i18n"
	"github.com/Shivanand-hulikatti/eventora/internal/model"
	"github.com/Shivanand-hulikatti/eventora/internal/oauth"
)

// oauthWait bounds how long login waits for the provider redirect.
const oauthWait = 5 * time.Minute

func newLoginCmd(app *App) *cobra.Command {
	var (
		email    string
		password string
		provider string
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password, or with an OAuth provider",
		Example: strings.TrimSpace(`
  eventora login --email ada@example.com
  eventora login --provider github
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(cmd); err != nil {
				return writeErr(cmd, err)
			}
			if provider != "" {
				return loginOAuth(cmd, app, provider)
			}
			if email == "" {
				email = app.prompt(cmd, "Email: ")
			}
			if password == "" {
				password = app.prompt(cmd, "Password: ")
			}
			err := app.client.Login(ctxOf(cmd), model.Credentials{Email: email, Password: password})
			if err != nil {
				return writeErr(cmd, err)
			}
			return whoami(cmd, app)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when empty)")
	cmd.Flags().StringVar(&provider, "provider", "", "OAuth provider (google|github|linkedin)")
	return cmd
}

// loginOAuth runs the loopback flow: it serves the callback locally,
// prints the consent URL and waits for the redirect to be exchanged.
func loginOAuth(cmd *cobra.Command, app *App, name string) error {
	p, err := oauth.ParseProvider(name)
	if err != nil {
		return writeErr(cmd, apperr.Validationf("%s", err.Error()))
	}

	h := &oauth.Handler{
		Guard:     oauth.NewGuard(),
		Exchanger: app.client,
		Tokens:    app.sess,
		Notify:    func(msg string) { writeNotice(cmd, msg) },
		Logger:    app.logger,
	}
	state := uuid.NewString()
	l, err := oauth.Listen(app.cfg.CallbackAddr, h, state)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer l.Close()

	var target string
	if app.cfg.DevAuthorize {
		target = oauth.DevAuthorizeURL(app.cfg.APIURL, p, l.RedirectBase(), state)
	} else {
		target, err = oauth.AuthorizeURL(p, app.cfg.OAuth.ClientID(string(p)), l.RedirectBase(), state)
		if err != nil {
			return writeErr(cmd, apperr.Validationf("%s", err.Error()))
		}
	}
	writeNotice(cmd, app.cat.T(i18n.OAuthOpenBrowser, map[string]any{"Provider": string(p)}))
	fmt.Fprintln(cmd.OutOrStdout(), target)
	writeNotice(cmd, app.cat.S(i18n.OAuthWaiting))

	ctx, cancel := context.WithTimeout(ctxOf(cmd), oauthWait)
	defer cancel()
	outcome, err := l.Wait(ctx)
	if err != nil {
		return writeErr(cmd, &apperr.Error{Kind: apperr.TransientNetwork, Message: api.MsgOAuthFailed, Err: err})
	}
	if outcome != oauth.SignedIn {
		return writeErr(cmd, &apperr.Error{Kind: apperr.Auth, Message: api.MsgOAuthFailed})
	}
	return whoami(cmd, app)
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(cmd); err != nil {
				return writeErr(cmd, err)
			}
			if err := app.client.Logout(); err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), app.cat.S(i18n.NotSignedIn))
			return nil
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(cmd); err != nil {
				return writeErr(cmd, err)
			}
			return whoami(cmd, app)
		},
	}
}

func whoami(cmd *cobra.Command, app *App) error {
	if !app.sess.SignedIn() {
		fmt.Fprintln(cmd.OutOrStdout(), app.cat.S(i18n.NotSignedIn))
		return nil
	}
	if app.sess.Expired(time.Now()) {
		if err := app.sess.Clear(); err != nil {
			app.logger.Warn("session_clear_failed", "error", err.Error())
		}
		return writeErr(cmd, apperr.Authf("Your session has expired."))
	}
	p, err := app.client.Profile(ctxOf(cmd))
	if err != nil {
		// The token claims still identify the user when the profile
		// endpoint is unavailable.
		claims, cerr := app.sess.Claims()
		if cerr != nil || apperr.KindOf(err) == apperr.Auth {
			return writeErr(cmd, err)
		}
		p = &model.UserProfile{ID: claims.Subject, Email: claims.Email, DisplayName: claims.Name}
	}
	if app.JSON {
		return writeJSON(cmd.OutOrStdout(), p)
	}
	fmt.Fprintln(cmd.OutOrStdout(), app.cat.T(i18n.SignedInAs, map[string]any{"Name": p.DisplayName, "Email": p.Email}))
	return nil
}

func newSignupCmd(app *App) *cobra.Command {
	var req model.SignupRequest
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(cmd); err != nil {
				return writeErr(cmd, err)
			}
			if req.DisplayName == "" {
				req.DisplayName = app.prompt(cmd, "Display name: ")
			}
			if req.Email == "" {
				req.Email = app.prompt(cmd, "Email: ")
			}
			if req.Password == "" {
				req.Password = app.prompt(cmd, "Password: ")
			}
			if err := app.client.Signup(ctxOf(cmd), req); err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Account created. Run `eventora login` to sign in.")
			return nil
		},
	}
	cmd.Flags().StringVar(&req.DisplayName, "name", "", "Display name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password (prompted when empty)")
	return cmd
}

// prompt reads one line from stdin after writing label to stderr.
func (a *App) prompt(cmd *cobra.Command, label string) string {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	if a.stdin == nil {
		a.stdin = bufio.NewReader(cmd.InOrStdin())
	}
	line, err := a.stdin.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return ""
	}
	return strings.TrimSpace(line)
}
