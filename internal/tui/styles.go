package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Shivanand-hulikatti/eventora/internal/model"
)

var (
	colorAccent = lipgloss.AdaptiveColor{Light: "#5A4FCF", Dark: "#A99BFF"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#6B6B6B", Dark: "#8A8A8A"}
	colorOK     = lipgloss.AdaptiveColor{Light: "#1E7B34", Dark: "#5FD068"}
	colorErr    = lipgloss.AdaptiveColor{Light: "#B3261E", Dark: "#FF6B6B"}
	colorWarn   = lipgloss.AdaptiveColor{Light: "#8A6100", Dark: "#E5C07B"}

	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	titleStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	footerStyle   = lipgloss.NewStyle().Faint(true)
	okStyle       = lipgloss.NewStyle().Foreground(colorOK)
	errStyle      = lipgloss.NewStyle().Foreground(colorErr)
	modalStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorWarn).
			Padding(1, 2)
)

func statusStyle(s model.EventStatus) lipgloss.Style {
	switch s {
	case model.EventScheduled:
		return okStyle
	case model.EventOngoing:
		return lipgloss.NewStyle().Foreground(colorAccent)
	case model.EventCancelled:
		return errStyle
	case model.EventDraft:
		return lipgloss.NewStyle().Foreground(colorWarn)
	default:
		return mutedStyle
	}
}
