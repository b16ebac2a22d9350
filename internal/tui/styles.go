package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/smileynet/crmedit/internal/editor"
)

// Colors shared by the form.
var (
	accentColor = lipgloss.AdaptiveColor{Light: "4", Dark: "12"}
	dimColor    = lipgloss.AdaptiveColor{Light: "240", Dark: "245"}
	errorColor  = lipgloss.AdaptiveColor{Light: "1", Dark: "9"}
	okColor     = lipgloss.AdaptiveColor{Light: "2", Dark: "10"}
)

var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	labelStyle       = lipgloss.NewStyle().Bold(true)
	focusedLabel     = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	dimStyle         = lipgloss.NewStyle().Foreground(dimColor)
	fieldErrorStyle  = lipgloss.NewStyle().Foreground(errorColor)
	placeholderStyle = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
)

// ButtonStyle returns the style of the submit control.
func ButtonStyle(focused, disabled bool) lipgloss.Style {
	s := lipgloss.NewStyle().Padding(0, 2).Border(lipgloss.RoundedBorder())
	switch {
	case disabled:
		return s.BorderForeground(dimColor).Foreground(dimColor)
	case focused:
		return s.BorderForeground(accentColor).Bold(true)
	default:
		return s.BorderForeground(dimColor)
	}
}

// ToastStyle returns the style of a notification line.
func ToastStyle(kind editor.ToastKind) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	if kind == editor.ToastError {
		return s.Foreground(errorColor)
	}
	return s.Foreground(okColor)
}

// RenderToast renders a toast as "Title: message".
func RenderToast(t editor.Toast) string {
	return ToastStyle(t.Kind).Render(t.Title+":") + " " + t.Message
}
