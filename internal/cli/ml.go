package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/eventora/internal/api"
)

func newMLCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ml",
		Short: "Attendance predictions",
	}
	perEvent := func(use, short string, fn func(*api.Client, context.Context, string) (*api.Prediction, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <event-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := app.init(cmd); err != nil {
					return writeErr(cmd, err)
				}
				p, err := fn(app.client, ctxOf(cmd), args[0])
				return writePrediction(cmd, app, p, err)
			},
		}
	}
	global := func(use, short string, fn func(*api.Client, context.Context) (*api.Prediction, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := app.init(cmd); err != nil {
					return writeErr(cmd, err)
				}
				p, err := fn(app.client, ctxOf(cmd))
				return writePrediction(cmd, app, p, err)
			},
		}
	}
	cmd.AddCommand(
		perEvent("predict", "Request a new prediction", (*api.Client).Predict),
		perEvent("latest", "Show the latest prediction", (*api.Client).LatestPrediction),
		perEvent("history", "Show every prediction", (*api.Client).PredictionHistory),
		global("health", "Check the prediction service", (*api.Client).MLHealth),
		global("stats", "Show prediction service statistics", (*api.Client).MLStats),
	)
	return cmd
}

// writePrediction prints the document. A 4xx answer is data, shown as a
// failure line, and exits non-zero.
func writePrediction(cmd *cobra.Command, app *App, p *api.Prediction, err error) error {
	if err != nil {
		return writeErr(cmd, err)
	}
	if app.JSON {
		body := p.Body
		if p.Empty() {
			body = json.RawMessage("null")
		}
		if err := writeJSON(cmd.OutOrStdout(), struct {
			Status int             `json:"status"`
			Body   json.RawMessage `json:"body"`
		}{p.Status, body}); err != nil {
			return err
		}
	} else if p.Empty() && p.OK() {
		fmt.Fprintln(cmd.OutOrStdout(), "No predictions yet.")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), p.String())
	}
	if !p.OK() {
		return fmt.Errorf("%s: status %d", api.MsgPredictionFailed, p.Status)
	}
	return nil
}
