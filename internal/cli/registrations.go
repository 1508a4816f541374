package cli

import (
	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/eventora/internal/action"
	"github.com/Shivanand-hulikatti/eventora/internal/apperr"
	"github.com/Shivanand-hulikatti/eventora/internal/i18n"
	"github.com/Shivanand-hulikatti/eventora/internal/reconcile"
)

func newRegisterCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "register <event-id>",
		Short: "Register for a scheduled event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(cmd); err != nil {
				return writeErr(cmd, err)
			}
			ctx := ctxOf(cmd)
			rec := app.reconciler()
			snap := reconcile.NewSnapshot(nil)
			e, err := rec.Refresh(ctx, snap, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := app.client.CheckRegister(e); err != nil {
				return writeErr(cmd, err)
			}
			switch d := action.ForEvent(e, false); d.Kind {
			case action.Register:
			case action.CancelRegistration:
				return writeErr(cmd, apperr.Validationf("You are already registered for this event."))
			default:
				return writeErr(cmd, apperr.Validationf("Registration is closed: %s.", d.Label))
			}
			res, err := rec.Mutate(ctx, snap, e.ID, app.client.RegisterOp(e))
			return writeResult(cmd, app, res, err, false)
		},
	}
}

func newUnregisterCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "unregister <event-id>",
		Short: "Cancel your registration; you cannot register again afterwards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(cmd); err != nil {
				return writeErr(cmd, err)
			}
			ctx := ctxOf(cmd)
			rec := app.reconciler()
			snap := reconcile.NewSnapshot(nil)
			e, err := rec.Refresh(ctx, snap, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if d := action.ForEvent(e, false); d.Kind != action.CancelRegistration {
				return writeErr(cmd, apperr.Validationf("You are not registered for this event."))
			}
			prompt := app.cat.T(i18n.ConfirmCancelReg, map[string]any{"Title": e.Title})
			return runGated(cmd, app, rec, snap, e.ID, prompt, app.client.UnregisterOp(e.ID), false)
		},
	}
}

func newMyEventsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "my-events",
		Short: "List the events you registered for",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(cmd); err != nil {
				return writeErr(cmd, err)
			}
			events, err := app.client.MyEvents(ctxOf(cmd))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeEvents(cmd, app, events)
		},
	}
}
