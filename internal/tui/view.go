package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Shivanand-hulikatti/eventora/internal/action"
	"github.com/Shivanand-hulikatti/eventora/internal/i18n"
	"github.com/Shivanand-hulikatti/eventora/internal/model"
)

func (m appModel) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")
	if m.screen == screenDetail {
		b.WriteString(m.detailView())
	} else {
		b.WriteString(m.listView())
	}
	if m.flash != "" {
		style := okStyle
		if m.flashErr {
			style = errStyle
		}
		b.WriteString("\n")
		b.WriteString(style.Render(m.flash))
	}
	b.WriteString("\n\n")
	help := i18n.HelpBrowse
	if m.screen == screenDetail {
		help = i18n.HelpDetail
	}
	b.WriteString(footerStyle.Render(m.cat.S(help)))

	out := b.String()
	if m.confirm != nil {
		modal := modalStyle.Render(m.confirm.prompt + "\n\n" + mutedStyle.Render(m.cat.S(i18n.ConfirmHint)))
		out = lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
	}
	return out
}

func (m appModel) header() string {
	title := map[screen]string{
		screenHome:      "Eventora",
		screenMyEvents:  "Eventora · My events",
		screenOrganizer: "Eventora · Organizer",
		screenDetail:    "Eventora",
	}[m.screen]
	who := m.cat.S(i18n.NotSignedIn)
	if m.signedIn {
		who = "●"
		if m.profile != nil {
			who = m.profile.Initial() + " " + m.cat.T(i18n.SignedInAs, map[string]any{"Name": m.profile.DisplayName, "Email": m.profile.Email})
		}
	}
	left := headerStyle.Render(title)
	right := mutedStyle.Render(who)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m appModel) listView() string {
	var b strings.Builder
	if m.search != nil {
		if m.typing || m.input.Value() != "" {
			b.WriteString(m.input.View())
		} else {
			b.WriteString(mutedStyle.Render("/ " + m.cat.S(i18n.SearchPrompt)))
		}
		if m.pending {
			b.WriteString("  " + m.spin.View() + " " + mutedStyle.Render(m.cat.S(i18n.Searching)))
		}
		b.WriteString("\n\n")
	}
	if m.loading {
		b.WriteString(m.spin.View() + " " + m.cat.S(i18n.Loading))
		return b.String()
	}
	if len(m.events) == 0 {
		b.WriteString(mutedStyle.Render(m.cat.S(i18n.NoEvents)))
		return b.String()
	}

	rows := m.height - 8
	if rows < 3 {
		rows = 3
	}
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := min(len(m.events), start+rows)
	for i := start; i < end; i++ {
		e := &m.events[i]
		line := fmt.Sprintf("%-36s %s %-16s %s",
			truncate(e.Title, 36),
			statusStyle(e.EventStatus).Render(fmt.Sprintf("%-10s", e.EventStatus.Label())),
			when(e),
			truncate(e.Location(), 30))
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("› " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m appModel) detailView() string {
	e := m.detail
	if e == nil {
		return m.spin.View() + " " + m.cat.S(i18n.Loading)
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(e.Title))
	if m.loading || m.acting {
		b.WriteString("  " + m.spin.View())
	}
	b.WriteString("\n")
	field := func(label, value string) {
		if value != "" {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("%-18s", label)) + value + "\n")
		}
	}
	field(m.cat.S(i18n.StatusLabel), statusStyle(e.EventStatus).Render(e.EventStatus.Label()))
	field("Category", string(e.Category))
	field("Organizer", e.OrganizerDisplayName)
	field("Starts", when(e))
	field("Where", strings.Trim(e.LocationName+", "+e.Location(), ", "))
	field("Places", m.places(e))
	field("Price", m.price(e))
	if m.signedIn && !m.ownerView {
		reg := e.UserRegistrationStatus
		if reg == "" {
			reg = model.RegistrationNone
		}
		field(m.cat.S(i18n.RegistrationLabel), string(reg))
	}
	b.WriteString("\n")
	b.WriteString(m.actionLine(action.ForEvent(e, m.ownerView)))
	if md := RenderMarkdown(e.Description, m.width-4); md != "" {
		b.WriteString("\n\n" + md)
	}
	return b.String()
}

// actionLine shows the single available action, or the organizer
// controls with their keys.
func (m appModel) actionLine(d action.Descriptor) string {
	switch d.Kind {
	case action.Register:
		return selectedStyle.Render("[a] " + m.cat.S(i18n.ActionRegister))
	case action.CancelRegistration:
		return errStyle.Render("[a] " + m.cat.S(i18n.ActionCancelRegistration))
	case action.OrganizerAction:
		var parts []string
		if d.Organizer.Schedule {
			parts = append(parts, "[s] "+m.cat.S(i18n.ActionSchedule))
		}
		if d.Organizer.CancelEvent {
			parts = append(parts, "[x] "+m.cat.S(i18n.ActionCancelEvent))
		}
		if d.Organizer.Edit {
			parts = append(parts, mutedStyle.Render(m.cat.S(i18n.ActionEdit)+": eventora events update"))
		}
		return strings.Join(parts, "   ")
	default:
		return mutedStyle.Render(d.Label)
	}
}

func (m appModel) places(e *model.Event) string {
	if e.Unlimited() {
		return m.cat.T(i18n.ParticipantsUnlimited, map[string]any{"Count": e.CurrentParticipants})
	}
	return m.cat.Count(i18n.Participants, e.CurrentParticipants, map[string]any{"Max": *e.MaxParticipants})
}

func (m appModel) price(e *model.Event) string {
	if e.Free() {
		return m.cat.S(i18n.PriceFree)
	}
	return strconv.FormatFloat(*e.Price, 'f', 2, 64)
}

func when(e *model.Event) string {
	if e.StartDate.IsZero() {
		return "-"
	}
	return e.StartDate.Local().Format("2006-01-02 15:04")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
