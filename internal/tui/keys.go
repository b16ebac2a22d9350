package tui

import "github.com/charmbracelet/bubbles/key"

// formKeys holds key bindings for the editing state.
type formKeys struct {
	Next   key.Binding
	Prev   key.Binding
	Left   key.Binding
	Right  key.Binding
	Toggle key.Binding
	Submit key.Binding
	Quit   key.Binding
}

// ShortHelp returns the form bindings for the help bar.
func (k formKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Left, k.Toggle, k.Submit, k.Quit}
}

// FullHelp returns the form bindings grouped for expanded help.
func (k formKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev},
		{k.Left, k.Right, k.Toggle},
		{k.Submit, k.Quit},
	}
}

// waitKeys holds key bindings for the loading, busy and failed states.
type waitKeys struct {
	Quit key.Binding
}

// ShortHelp returns the wait bindings for the help bar.
func (k waitKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit}
}

// FullHelp returns the wait bindings grouped for expanded help.
func (k waitKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Quit}}
}

// FormKeyMap returns the key bindings for the editing state.
func FormKeyMap() formKeys {
	return formKeys{
		Next: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab/↓", "next"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab/↑", "prev"),
		),
		Left: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←/→", "choose"),
		),
		Right: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "next option"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "space"),
			key.WithHelp("space", "toggle"),
		),
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "submit"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// WaitKeyMap returns the key bindings while the form is not interactive.
func WaitKeyMap() waitKeys {
	return waitKeys{
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
