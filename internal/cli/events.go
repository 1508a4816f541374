package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/eventora/internal/action"
	"github.com/Shivanand-hulikatti/eventora/internal/api"
	"github.com/Shivanand-hulikatti/eventora/internal/apperr"
	"github.com/Shivanand-hulikatti/eventora/internal/i18n"
	"github.com/Shivanand-hulikatti/eventora/internal/model"
	"github.com/Shivanand-hulikatti/eventora/internal/reconcile"
)

func newEventsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List, inspect and manage events",
	}
	cmd.AddCommand(newEventsListCmd(app))
	cmd.AddCommand(newEventsShowCmd(app))
	cmd.AddCommand(newEventsSearchCmd(app))
	cmd.AddCommand(newEventsCreateCmd(app))
	cmd.AddCommand(newEventsUpdateCmd(app))
	cmd.AddCommand(newEventsScheduleCmd(app))
	cmd.AddCommand(newEventsCancelCmd(app))
	return cmd
}

func newEventsListCmd(app *App) *cobra.Command {
	var (
		f        model.EventFilter
		category string
		minPrice float64
		maxPrice float64
		lat, lon float64
		radius   float64
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events matching a filter",
		Example: strings.TrimSpace(`
  eventora events list --city Lyon --category music
  eventora events list --lat 45.76 --lon 4.83 --radius 5
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(cmd); err != nil {
				return writeErr(cmd, err)
			}
			flags := cmd.Flags()
			if category != "" {
				f.Category = model.Category(strings.ToUpper(category))
			}
			if flags.Changed("min-price") {
				f.MinPrice = &minPrice
			}
			if flags.Changed("max-price") {
				f.MaxPrice = &maxPrice
			}
			if flags.Changed("lat") {
				f.Latitude = &lat
			}
			if flags.Changed("lon") {
				f.Longitude = &lon
			}
			if f.Latitude != nil && f.Longitude != nil {
				f = f.Nearby(lat, lon, radius)
			}
			if err := api.ValidateFilter(f); err != nil {
				return writeErr(cmd, err)
			}
			events, err := app.client.GetByFilter(ctxOf(cmd), f)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeEvents(cmd, app, events)
		},
	}
	cmd.Flags().StringVar(&f.City, "city", "", "City")
	cmd.Flags().StringVar(&f.State, "state", "", "State or region")
	cmd.Flags().StringVar(&f.Country, "country", "", "Country")
	cmd.Flags().StringVar(&category, "category", "", "Category, e.g. MUSIC")
	cmd.Flags().Float64Var(&minPrice, "min-price", 0, "Minimum price")
	cmd.Flags().Float64Var(&maxPrice, "max-price", 0, "Maximum price")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude for a nearby search")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude for a nearby search")
	cmd.Flags().Float64Var(&radius, "radius", model.DefaultRadiusKm, "Nearby radius in km")
	return cmd
}

func newEventsShowCmd(app *App) *cobra.Command {
	var owner bool
	cmd := &cobra.Command{
		Use:   "show <event-id>",
		Short: "Show one event and the action available on it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(cmd); err != nil {
				return writeErr(cmd, err)
			}
			e, err := app.reconciler().Refresh(ctxOf(cmd), reconcile.NewSnapshot(nil), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeEvent(cmd, app, e, owner)
		},
	}
	cmd.Flags().BoolVar(&owner, "as-organizer", false, "Show the organizer controls instead of registration")
	return cmd
}

func newEventsSearchCmd(app *App) *cobra.Command {
	var p model.SearchParams
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search events by name and organizer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(cmd); err != nil {
				return writeErr(cmd, err)
			}
			events, err := app.client.Search(ctxOf(cmd), p)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeEvents(cmd, app, events)
		},
	}
	cmd.Flags().StringVar(&p.EventName, "name", "", "Event name contains")
	cmd.Flags().StringVar(&p.OrganizerName, "organizer", "", "Organizer name contains")
	cmd.Flags().BoolVar(&p.MyEventsOnly, "mine", false, "Only events I registered for")
	cmd.Flags().IntVar(&p.Page, "page", model.DefaultPage, "Page number, from 0")
	cmd.Flags().IntVar(&p.Size, "size", model.DefaultSize, "Page size")
	return cmd
}

// eventFlags binds the editable event fields. Only flags the user set are
// applied, so update keeps the other fields of the current event.
type eventFlags struct {
	title        string
	description  string
	category     string
	locationName string
	city         string
	state        string
	country      string
	imageURL     string
	start        string
	end          string
	lat          float64
	lon          float64
	price        float64
	max          int
	tags         []string
}

func (ef *eventFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&ef.title, "title", "", "Title")
	fs.StringVar(&ef.description, "description", "", "Description (markdown)")
	fs.StringVar(&ef.category, "category", "", "Category, e.g. COMMUNITY")
	fs.StringVar(&ef.locationName, "location", "", "Venue name")
	fs.StringVar(&ef.city, "city", "", "City")
	fs.StringVar(&ef.state, "state", "", "State or region")
	fs.StringVar(&ef.country, "country", "", "Country")
	fs.StringVar(&ef.imageURL, "image-url", "", "Image URL")
	fs.StringVar(&ef.start, "start", "", "Start, e.g. 2030-05-01T18:00")
	fs.StringVar(&ef.end, "end", "", "End, e.g. 2030-05-01T22:00")
	fs.Float64Var(&ef.lat, "lat", 0, "Latitude")
	fs.Float64Var(&ef.lon, "lon", 0, "Longitude")
	fs.Float64Var(&ef.price, "price", 0, "Price, 0 for free")
	fs.IntVar(&ef.max, "max", 0, "Participant cap")
	fs.StringSliceVar(&ef.tags, "tag", nil, "Tag (repeatable)")
}

func (ef *eventFlags) apply(cmd *cobra.Command, req *model.EventRequest) error {
	fs := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if fs.Changed(name) {
			*dst = strings.TrimSpace(v)
		}
	}
	set("title", &req.Title, ef.title)
	set("description", &req.Description, ef.description)
	set("location", &req.LocationName, ef.locationName)
	set("city", &req.City, ef.city)
	set("state", &req.State, ef.state)
	set("country", &req.Country, ef.country)
	set("image-url", &req.ImageURL, ef.imageURL)
	if fs.Changed("category") {
		req.Category = model.Category(strings.ToUpper(strings.TrimSpace(ef.category)))
	}
	for _, t := range []struct {
		name string
		raw  string
		dst  *model.Timestamp
	}{{"start", ef.start, &req.StartDate}, {"end", ef.end, &req.EndDate}} {
		if !fs.Changed(t.name) {
			continue
		}
		ts, err := model.ParseTimestamp(t.raw)
		if err != nil {
			return apperr.Validationf("--%s: %s", t.name, err.Error())
		}
		*t.dst = ts
	}
	if fs.Changed("lat") {
		req.Latitude = &ef.lat
	}
	if fs.Changed("lon") {
		req.Longitude = &ef.lon
	}
	if fs.Changed("price") {
		req.Price = &ef.price
	}
	if fs.Changed("max") {
		req.MaxParticipants = &ef.max
	}
	if fs.Changed("tag") {
		req.Tags = ef.tags
	}
	return nil
}

// requestFrom copies the editable fields of e.
func requestFrom(e *model.Event) model.EventRequest {
	return model.EventRequest{
		Title:           e.Title,
		Description:     e.Description,
		Category:        e.Category,
		LocationName:    e.LocationName,
		City:            e.City,
		State:           e.State,
		Country:         e.Country,
		Latitude:        e.Latitude,
		Longitude:       e.Longitude,
		StartDate:       e.StartDate,
		EndDate:         e.EndDate,
		MaxParticipants: e.MaxParticipants,
		Price:           e.Price,
		ImageURL:        e.ImageURL,
		Tags:            e.Tags,
	}
}

func newEventsCreateCmd(app *App) *cobra.Command {
	var ef eventFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft event",
		Example: strings.TrimSpace(`
  eventora events create --title "Board games night" --category community \
    --city Lyon --country France --start 2030-05-01T18:00 --max 20
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(cmd); err != nil {
				return writeErr(cmd, err)
			}
			req := model.EventRequest{Category: model.CategoryOther}
			if err := ef.apply(cmd, &req); err != nil {
				return writeErr(cmd, err)
			}
			if err := api.ValidateEvent(req); err != nil {
				return writeErr(cmd, err)
			}
			e, msg, err := app.client.Create(ctxOf(cmd), req)
			if err != nil {
				return writeErr(cmd, err)
			}
			var id string
			if e != nil {
				id = e.ID
			}
			return writeSaved(cmd, app, id, msg)
		},
	}
	ef.bind(cmd)
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newEventsUpdateCmd(app *App) *cobra.Command {
	var ef eventFlags
	cmd := &cobra.Command{
		Use:   "update <event-id>",
		Short: "Edit a draft event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(cmd); err != nil {
				return writeErr(cmd, err)
			}
			ctx := ctxOf(cmd)
			current, err := app.client.GetByID(ctx, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if !action.Organizer(current.EventStatus).Edit {
				return writeErr(cmd, apperr.Validationf("%s events cannot be edited", current.EventStatus.Label()))
			}
			req := requestFrom(current)
			if err := ef.apply(cmd, &req); err != nil {
				return writeErr(cmd, err)
			}
			if err := api.ValidateEvent(req); err != nil {
				return writeErr(cmd, err)
			}
			_, msg, err := app.client.Update(ctx, current.ID, req)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeSaved(cmd, app, current.ID, msg)
		},
	}
	ef.bind(cmd)
	return cmd
}

func newEventsScheduleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule <event-id>",
		Short: "Publish a draft so participants can register",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(cmd); err != nil {
				return writeErr(cmd, err)
			}
			return runOrganizerOp(cmd, app, args[0], i18n.ConfirmSchedule,
				func(o action.OrganizerActions) bool { return o.Schedule },
				app.client.ScheduleOp(args[0]))
		},
	}
}

func newEventsCancelCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <event-id>",
		Short: "Cancel an event you organize",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(cmd); err != nil {
				return writeErr(cmd, err)
			}
			return runOrganizerOp(cmd, app, args[0], i18n.ConfirmCancelEvent,
				func(o action.OrganizerActions) bool { return o.CancelEvent },
				app.client.CancelEventOp(args[0]))
		},
	}
}

// runOrganizerOp refreshes the event, checks the lifecycle allows the
// control, confirms and then mutates with refetch.
func runOrganizerOp(cmd *cobra.Command, app *App, id, confirmID string, allowed func(action.OrganizerActions) bool, op reconcile.Op) error {
	ctx := ctxOf(cmd)
	rec := app.reconciler()
	snap := reconcile.NewSnapshot(nil)
	e, err := rec.Refresh(ctx, snap, id)
	if err != nil {
		return writeErr(cmd, err)
	}
	if !allowed(action.Organizer(e.EventStatus)) {
		return writeErr(cmd, apperr.Validationf("not available for %s events", strings.ToLower(e.EventStatus.Label())))
	}
	prompt := app.cat.T(confirmID, map[string]any{"Title": e.Title})
	return runGated(cmd, app, rec, snap, e.ID, prompt, op, true)
}

// runGated confirms prompt through the gate, then runs op with refetch and
// prints the acknowledgement and the canonical event.
func runGated(cmd *cobra.Command, app *App, rec *reconcile.Reconciler, snap *reconcile.Snapshot, id, prompt string, op reconcile.Op, ownerView bool) error {
	var (
		res    *reconcile.Result
		mutErr error
	)
	ran, err := app.gate(cmd).Run(ctxOf(cmd), prompt, func(ctx context.Context) error {
		res, mutErr = rec.Mutate(ctx, snap, id, op)
		return mutErr
	})
	if !ran {
		if err != nil {
			return writeErr(cmd, err)
		}
		writeNotice(cmd, app.cat.S(i18n.Cancelled))
		return nil
	}
	return writeResult(cmd, app, res, mutErr, ownerView)
}

// writeResult prints the outcome of a reconciled mutation. A mutation
// that succeeded but whose refetch failed still reports its message.
// writeSaved re-reads a saved event and prints the canonical copy. Without
// an id only the acknowledgement is printed.
func writeSaved(cmd *cobra.Command, app *App, id, msg string) error {
	if id == "" {
		if app.JSON {
			return writeJSON(cmd.OutOrStdout(), struct {
				Message string `json:"message"`
			}{msg})
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	}
	writeNotice(cmd, msg)
	e, err := app.reconciler().Refresh(ctxOf(cmd), reconcile.NewSnapshot(nil), id)
	if err != nil {
		return writeErr(cmd, err)
	}
	return writeEvent(cmd, app, e, true)
}

func writeResult(cmd *cobra.Command, app *App, res *reconcile.Result, err error, ownerView bool) error {
	if res == nil {
		return writeErr(cmd, err)
	}
	if app.JSON {
		out := struct {
			Message string       `json:"message"`
			Event   *model.Event `json:"event,omitempty"`
		}{res.Message, res.Event}
		if werr := writeJSON(cmd.OutOrStdout(), out); werr != nil {
			return werr
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
	}
	if err != nil {
		return writeErr(cmd, err)
	}
	if !app.JSON && res.Event != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", app.cat.S(i18n.StatusLabel), res.Event.EventStatus.Label())
		fmt.Fprintf(cmd.OutOrStdout(), "Next: %s\n", describe(app.cat, action.ForEvent(res.Event, ownerView)))
	}
	return nil
}
