package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/eventora/internal/action"
	"github.com/Shivanand-hulikatti/eventora/internal/api"
	"github.com/Shivanand-hulikatti/eventora/internal/apperr"
	"github.com/Shivanand-hulikatti/eventora/internal/i18n"
	"github.com/Shivanand-hulikatti/eventora/internal/model"
	"github.com/Shivanand-hulikatti/eventora/internal/tui"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeErr prints the user-facing message of err and returns err so cobra
// exits non-zero.
func writeErr(cmd *cobra.Command, err error) error {
	msg := apperr.Message(err, err.Error())
	fmt.Fprintln(cmd.ErrOrStderr(), msg)
	// A 401 either ended a held session, which printed its own notice, or
	// rejected a login in progress.
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Kind == apperr.Auth && ae.Status != http.StatusUnauthorized {
		fmt.Fprintln(cmd.ErrOrStderr(), "Run `eventora login` to sign in.")
	}
	return err
}

// writeNotice prints a status line to stderr so stdout stays parseable.
func writeNotice(cmd *cobra.Command, msg string) {
	if strings.TrimSpace(msg) != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), msg)
	}
}

func writeEvents(cmd *cobra.Command, app *App, events []model.Event) error {
	if app.JSON {
		return writeJSON(cmd.OutOrStdout(), events)
	}
	if len(events) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), app.cat.S(i18n.NoEvents))
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tSTARTS\tWHERE\tPLACES\tPRICE")
	for i := range events {
		e := &events[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Title, e.EventStatus.Label(), startDate(e), e.Location(), places(app.cat, e), price(app.cat, e))
	}
	return tw.Flush()
}

func writeEvent(cmd *cobra.Command, app *App, e *model.Event, ownerView bool) error {
	if e == nil {
		return writeErr(cmd, &apperr.Error{Kind: apperr.NotFound, Message: api.MsgLoadEvent})
	}
	if app.JSON {
		return writeJSON(cmd.OutOrStdout(), e)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", e.Title)
	fmt.Fprintf(out, "  ID:        %s\n", e.ID)
	fmt.Fprintf(out, "  %s:    %s\n", app.cat.S(i18n.StatusLabel), e.EventStatus.Label())
	if e.Category != "" {
		fmt.Fprintf(out, "  Category:  %s\n", e.Category)
	}
	if e.OrganizerDisplayName != "" {
		fmt.Fprintf(out, "  Organizer: %s\n", e.OrganizerDisplayName)
	}
	fmt.Fprintf(out, "  Starts:    %s\n", startDate(e))
	if loc := e.Location(); loc != "" {
		fmt.Fprintf(out, "  Where:     %s\n", loc)
	}
	fmt.Fprintf(out, "  Places:    %s\n", places(app.cat, e))
	fmt.Fprintf(out, "  Price:     %s\n", price(app.cat, e))
	if app.sess.SignedIn() && !ownerView {
		reg := e.UserRegistrationStatus
		if reg == "" {
			reg = model.RegistrationNone
		}
		fmt.Fprintf(out, "  %s: %s\n", app.cat.S(i18n.RegistrationLabel), reg)
	}
	fmt.Fprintf(out, "  Action:    %s\n", describe(app.cat, action.ForEvent(e, ownerView)))
	if md := tui.RenderMarkdown(e.Description, 80); md != "" {
		fmt.Fprintf(out, "\n%s\n", md)
	}
	return nil
}

// describe renders a Descriptor with localized labels.
func describe(cat *i18n.Catalog, d action.Descriptor) string {
	switch d.Kind {
	case action.Register:
		return cat.S(i18n.ActionRegister)
	case action.CancelRegistration:
		return cat.S(i18n.ActionCancelRegistration)
	case action.OrganizerAction:
		var parts []string
		if d.Organizer.Schedule {
			parts = append(parts, cat.S(i18n.ActionSchedule))
		}
		if d.Organizer.Edit {
			parts = append(parts, cat.S(i18n.ActionEdit))
		}
		if d.Organizer.CancelEvent {
			parts = append(parts, cat.S(i18n.ActionCancelEvent))
		}
		if len(parts) == 0 {
			return "-"
		}
		return strings.Join(parts, ", ")
	default:
		return d.Label
	}
}

func startDate(e *model.Event) string {
	if e.StartDate.IsZero() {
		return "-"
	}
	return e.StartDate.Local().Format("2006-01-02 15:04")
}

func places(cat *i18n.Catalog, e *model.Event) string {
	if e.Unlimited() {
		return cat.T(i18n.ParticipantsUnlimited, map[string]any{"Count": e.CurrentParticipants})
	}
	return cat.Count(i18n.Participants, e.CurrentParticipants, map[string]any{"Max": *e.MaxParticipants})
}

func price(cat *i18n.Catalog, e *model.Event) string {
	if e.Free() {
		return cat.S(i18n.PriceFree)
	}
	return strconv.FormatFloat(*e.Price, 'f', 2, 64)
}
