package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/eventora/internal/i18n"
	"github.com/Shivanand-hulikatti/eventora/internal/model"
)

func newOrganizerCmd(app *App) *cobra.Command {
	var p model.SearchParams
	cmd := &cobra.Command{
		Use:     "organizer",
		Aliases: []string{"organiser"},
		Short:   "Show the events you organize",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(cmd); err != nil {
				return writeErr(cmd, err)
			}
			var (
				profile *model.UserProfile
				events  []model.Event
			)
			g, ctx := errgroup.WithContext(ctxOf(cmd))
			g.Go(func() error {
				var err error
				profile, err = app.client.Profile(ctx)
				return err
			})
			g.Go(func() error {
				var err error
				events, err = app.client.OrganizerEvents(ctx, p)
				return err
			})
			if err := g.Wait(); err != nil {
				return writeErr(cmd, err)
			}
			if app.JSON {
				return writeJSON(cmd.OutOrStdout(), struct {
					Organizer *model.UserProfile `json:"organizer"`
					Events    []model.Event      `json:"events"`
				}{profile, events})
			}
			fmt.Fprintln(cmd.OutOrStdout(), app.cat.T(i18n.SignedInAs, map[string]any{"Name": profile.DisplayName, "Email": profile.Email}))
			fmt.Fprintln(cmd.OutOrStdout())
			return writeEvents(cmd, app, events)
		},
	}
	cmd.Flags().StringVar(&p.EventName, "name", "", "Event name contains")
	cmd.Flags().IntVar(&p.Page, "page", model.DefaultPage, "Page number, from 0")
	cmd.Flags().IntVar(&p.Size, "size", model.DefaultSize, "Page size")
	return cmd
}
