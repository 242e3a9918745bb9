package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the bindings of the normal (room navigation) state.
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Compose  key.Binding
	Filter   key.Binding
	Create   key.Binding
	Leave    key.Binding
	Reload   key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "prev room"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next room"),
		),
		Compose: key.NewBinding(
			key.WithKeys("enter", "i"),
			key.WithHelp("enter", "write"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Create: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new room"),
		),
		Leave: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "leave"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "older"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdn", "newer"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Compose, k.Filter, k.Create, k.Leave, k.PageUp, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Compose, k.Filter},
		{k.Create, k.Leave, k.Reload},
		{k.PageUp, k.PageDown, k.Quit},
	}
}
