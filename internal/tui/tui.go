// Package tui is the interactive event browser: public and registered
// event lists with debounced search, an event detail page with the single
// available action, and the organizer dashboard.
package tui

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Shivanand-hulikatti/eventora/internal/action"
	"github.com/Shivanand-hulikatti/eventora/internal/api"
	"github.com/Shivanand-hulikatti/eventora/internal/i18n"
	"github.com/Shivanand-hulikatti/eventora/internal/session"
)

// Deps are the collaborators the browser drives.
type Deps struct {
	Client  *api.Client
	Session *session.Session
	Catalog *i18n.Catalog
	Logger  *slog.Logger
	// Confirmer answers confirm prompts; nil shows the in-app modal.
	Confirmer action.Confirmer
}

// Run blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, d Deps) error {
	br := &bridge{}
	m := newAppModel(ctx, d, br)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	br.set(p.Send)
	final, err := p.Run()
	br.set(nil)
	if fm, ok := final.(appModel); ok {
		fm.close()
	} else {
		m.close()
	}
	return err
}
