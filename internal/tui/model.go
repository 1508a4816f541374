package tui

import (
	"context"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/eventora/internal/action"
	"github.com/Shivanand-hulikatti/eventora/internal/api"
	"github.com/Shivanand-hulikatti/eventora/internal/apperr"
	"github.com/Shivanand-hulikatti/eventora/internal/i18n"
	"github.com/Shivanand-hulikatti/eventora/internal/model"
	"github.com/Shivanand-hulikatti/eventora/internal/reconcile"
	"github.com/Shivanand-hulikatti/eventora/internal/search"
)

type listLoadedMsg struct {
	screen  screen
	events  []model.Event
	profile *model.UserProfile
	err     error
}

type searchMsg struct {
	src   *search.Session
	state search.State
}

type detailMsg struct {
	event *model.Event
	err   error
}

type mutatedMsg struct {
	ran bool
	res *reconcile.Result
	err error
}

type sessionMsg struct {
	signedIn bool
}

type appModel struct {
	ctx    context.Context
	deps   Deps
	cat    *i18n.Catalog
	logger *slog.Logger
	br     *bridge
	gate   action.Gate
	busy   *action.Busy
	rec    *reconcile.Reconciler

	screen   screen
	origin   Origin
	events   []model.Event
	cursor   int
	search   *search.Session
	input    textinput.Model
	typing   bool
	spin     spinner.Model
	loading  bool
	pending  bool // a search is outstanding
	profile  *model.UserProfile
	signedIn bool

	snap      *reconcile.Snapshot
	detail    *model.Event
	ownerView bool
	acting    bool
	confirm   *confirmAskMsg

	flash    string
	flashErr bool
	width    int
	height   int
}

func newAppModel(ctx context.Context, d Deps, br *bridge) appModel {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cat := d.Catalog
	if cat == nil {
		cat = i18n.New("en", logger)
	}
	confirmer := d.Confirmer
	if confirmer == nil {
		confirmer = modalConfirmer{br: br}
	}

	in := textinput.New()
	in.Placeholder = cat.S(i18n.SearchPrompt)
	in.Prompt = "/ "
	in.CharLimit = 120

	rec := reconcile.New(d.Client, logger)
	rec.LoadFailure = api.MsgLoadEvent

	if d.Session != nil {
		d.Session.OnChange(func(signedIn bool) { br.Send(sessionMsg{signedIn: signedIn}) })
	}

	return appModel{
		ctx:      ctx,
		deps:     d,
		cat:      cat,
		logger:   logger,
		br:       br,
		gate:     action.Gate{Confirmer: confirmer},
		busy:     &action.Busy{},
		rec:      rec,
		screen:   screenHome,
		input:    in,
		spin:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		loading:  true,
		signedIn: d.Client.SignedIn(),
		width:    100,
		height:   30,
	}
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.loadList(screenHome))
}

// loadList reads the list for s and, when signed in, the profile shown in
// the header. A list failure arrives as an empty list plus its message.
func (m appModel) loadList(s screen) tea.Cmd {
	ctx, client, signedIn := m.ctx, m.deps.Client, m.signedIn
	return func() tea.Msg {
		msg := listLoadedMsg{screen: s}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			switch s {
			case screenMyEvents:
				msg.events, msg.err = client.MyEvents(gctx)
			case screenOrganizer:
				msg.events, msg.err = client.OrganizerEvents(gctx, model.SearchParams{Size: model.DefaultSize})
			default:
				msg.events, msg.err = client.GetByFilter(gctx, model.EventFilter{})
			}
			return nil
		})
		if signedIn {
			g.Go(func() error {
				if p, err := client.Profile(gctx); err == nil {
					msg.profile = p
				}
				return nil
			})
		}
		_ = g.Wait()
		return msg
	}
}

func (m appModel) refreshDetail(id string) tea.Cmd {
	ctx, rec, snap := m.ctx, m.rec, m.snap
	return func() tea.Msg {
		e, err := rec.Refresh(ctx, snap, id)
		return detailMsg{event: e, err: err}
	}
}

// act runs op on the open event with refetch-after semantics. A non-empty
// prompt goes through the confirm gate first; declining issues no call.
func (m appModel) act(op reconcile.Op, prompt string) tea.Cmd {
	ctx, rec, snap, gate, busy := m.ctx, m.rec, m.snap, m.gate, m.busy
	id := m.detail.ID
	return func() tea.Msg {
		var out mutatedMsg
		err := busy.Do(func() error {
			run := func(ctx context.Context) error {
				out.res, out.err = rec.Mutate(ctx, snap, id, op)
				return out.err
			}
			if prompt == "" {
				out.ran = true
				return run(ctx)
			}
			ran, err := gate.Run(ctx, prompt, run)
			out.ran = ran
			return err
		})
		if err != nil && out.err == nil {
			out.err = err
		}
		return out
	}
}

// searcherFor returns the backend search behind the list screen s.
func (m appModel) searcherFor(s screen) search.Searcher {
	client := m.deps.Client
	if s == screenOrganizer {
		return func(ctx context.Context, q search.Query) ([]model.Event, error) {
			return client.OrganizerEvents(ctx, model.SearchParams{EventName: q.EventName, Size: model.DefaultSize})
		}
	}
	return func(ctx context.Context, q search.Query) ([]model.Event, error) {
		return client.Search(ctx, model.SearchParams{EventName: q.EventName, OrganizerName: q.OrganizerName, Size: model.DefaultSize})
	}
}

// parseQuery reads "@name" as an organizer search and anything else as an
// event name.
func parseQuery(text string) search.Query {
	text = strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(text, "@"); ok {
		return search.Query{OrganizerName: rest}
	}
	return search.Query{EventName: text}
}

func (m *appModel) startSearch(s screen, baseline []model.Event) {
	m.closeSearch()
	if s == screenMyEvents {
		return
	}
	br := m.br
	var sess *search.Session
	sess = search.NewSession(m.searcherFor(s), baseline, search.Options{
		Logger: m.logger,
		OnChange: func(st search.State) {
			br.Send(searchMsg{src: sess, state: st})
		},
	})
	m.search = sess
}

func (m *appModel) closeSearch() {
	if m.search != nil {
		m.search.Close()
		m.search = nil
	}
}

func (m appModel) close() {
	if m.search != nil {
		m.search.Close()
	}
}

func (m *appModel) setFlash(msg string, isErr bool) {
	m.flash, m.flashErr = msg, isErr
}

func (m *appModel) setErr(err error, fallback string) {
	msg := apperr.Message(err, fallback)
	if apperr.KindOf(err) == apperr.Auth {
		msg += " Run `eventora login` to sign in."
	}
	m.setFlash(msg, true)
}

// goTo switches to a list screen and reloads it.
func (m appModel) goTo(s screen) (appModel, tea.Cmd) {
	m.closeSearch()
	m.screen = s
	m.events = nil
	m.cursor = 0
	m.typing = false
	m.pending = false
	m.input.SetValue("")
	m.input.Blur()
	m.detail, m.snap = nil, nil
	m.loading = true
	return m, tea.Batch(m.spin.Tick, m.loadList(s))
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case spinner.TickMsg:
		if !m.loading && !m.pending && !m.acting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case listLoadedMsg:
		if msg.screen != m.screen {
			return m, nil
		}
		m.loading = false
		if msg.profile != nil {
			m.profile = msg.profile
		}
		m.events = msg.events
		m.cursor = clamp(m.cursor, len(m.events))
		if msg.err != nil {
			m.setErr(msg.err, api.MsgLoadEvents)
		}
		m.startSearch(m.screen, msg.events)
		return m, nil

	case searchMsg:
		if msg.src == nil || msg.src != m.search {
			return m, nil
		}
		wasPending := m.pending
		m.pending = msg.state.Searching
		m.events = msg.state.Events
		m.cursor = clamp(m.cursor, len(m.events))
		if m.pending && !wasPending {
			return m, m.spin.Tick
		}
		return m, nil

	case detailMsg:
		if m.screen != screenDetail {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.setErr(msg.err, api.MsgLoadEvent)
			return m, nil
		}
		m.detail = msg.event
		return m, nil

	case mutatedMsg:
		m.acting = false
		if m.screen != screenDetail {
			return m, nil
		}
		switch {
		case !msg.ran && msg.err == nil:
			m.setFlash(m.cat.S(i18n.Cancelled), false)
		case msg.res != nil:
			m.setFlash(msg.res.Message, false)
			if msg.res.Event != nil {
				m.detail = msg.res.Event
			}
			if msg.err != nil {
				m.setErr(msg.err, api.MsgLoadEvent)
			}
		default:
			m.setErr(msg.err, api.MsgLoadEvent)
		}
		return m, nil

	case confirmAskMsg:
		ask := msg
		m.confirm = &ask
		return m, nil

	case sessionMsg:
		m.signedIn = msg.signedIn
		if msg.signedIn {
			return m, nil
		}
		m.profile = nil
		if m.screen == screenHome {
			return m, nil
		}
		// Signed out elsewhere, e.g. a 401: back to the entry list.
		m.answer(false)
		m.acting = false
		next, cmd := m.goTo(screenHome)
		next.setFlash(m.cat.S(i18n.SessionEnded), true)
		return next, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		m.answer(false)
		return m, tea.Quit
	}

	if m.confirm != nil {
		switch strings.ToLower(key) {
		case "y":
			m.answer(true)
		case "n", "esc", "q":
			m.answer(false)
		}
		return m, nil
	}

	if m.typing {
		switch key {
		case "esc":
			m.typing = false
			m.input.Blur()
			return m, nil
		case "enter":
			m.typing = false
			m.input.Blur()
			if m.search != nil {
				src, q, ctx := m.search, parseQuery(m.input.Value()), m.ctx
				return m, func() tea.Msg { src.Run(ctx, q); return nil }
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.search != nil {
			m.search.Input(parseQuery(m.input.Value()))
		}
		return m, cmd
	}

	if m.screen == screenDetail {
		return m.handleDetailKey(key)
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.events)-1 {
			m.cursor++
		}
	case "/":
		if m.search == nil {
			return m, nil
		}
		m.typing = true
		return m, m.input.Focus()
	case "r":
		return m.goTo(m.screen)
	case "h":
		return m.goTo(screenHome)
	case "m":
		if m.screen == screenMyEvents {
			return m.goTo(screenHome)
		}
		return m.goTo(screenMyEvents)
	case "o":
		return m.goTo(screenOrganizer)
	case "enter":
		if len(m.events) == 0 {
			return m, nil
		}
		e := m.events[m.cursor]
		from := m.screen
		m.closeSearch()
		m.origin = originOf(from)
		m.ownerView = from == screenOrganizer
		m.screen = screenDetail
		m.detail = &e
		m.snap = reconcile.NewSnapshot(&e)
		m.loading = true
		m.flash = ""
		return m, tea.Batch(m.spin.Tick, m.refreshDetail(e.ID))
	}
	return m, nil
}

func (m appModel) handleDetailKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		return m, tea.Quit
	case "esc", "backspace", "left":
		return m.goTo(backTarget(m.origin))
	case "r":
		if m.detail == nil {
			return m, nil
		}
		m.loading = true
		return m, tea.Batch(m.spin.Tick, m.refreshDetail(m.detail.ID))
	}

	if m.detail == nil {
		return m, nil
	}
	if m.acting || m.busy.Running() {
		m.setFlash(action.ErrBusy.Error(), true)
		return m, nil
	}

	e := m.detail
	var (
		op     reconcile.Op
		prompt string
	)
	switch key {
	case "a":
		d := action.ForEvent(e, m.ownerView)
		switch d.Kind {
		case action.Register:
			op = m.deps.Client.RegisterOp(e)
		case action.CancelRegistration:
			op = m.deps.Client.UnregisterOp(e.ID)
			prompt = m.cat.T(i18n.ConfirmCancelReg, map[string]any{"Title": e.Title})
		case action.Blocked:
			if e.UserRegistrationStatus == model.RegistrationCancelled {
				m.setFlash(api.MsgRegisterOnce, true)
			} else {
				m.setFlash(d.Label, false)
			}
			return m, nil
		default:
			return m, nil
		}
	case "s":
		if !m.ownerView || !action.Organizer(e.EventStatus).Schedule {
			return m, nil
		}
		op = m.deps.Client.ScheduleOp(e.ID)
		prompt = m.cat.T(i18n.ConfirmSchedule, map[string]any{"Title": e.Title})
	case "x":
		if !m.ownerView || !action.Organizer(e.EventStatus).CancelEvent {
			return m, nil
		}
		op = m.deps.Client.CancelEventOp(e.ID)
		prompt = m.cat.T(i18n.ConfirmCancelEvent, map[string]any{"Title": e.Title})
	default:
		return m, nil
	}
	m.acting = true
	m.flash = ""
	return m, tea.Batch(m.spin.Tick, m.act(op, prompt))
}

// answer resolves an open confirm modal.
func (m *appModel) answer(ok bool) {
	if m.confirm == nil {
		return
	}
	m.confirm.reply <- ok
	m.confirm = nil
}

func clamp(cursor, n int) int {
	if cursor >= n {
		cursor = n - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	return cursor
}
