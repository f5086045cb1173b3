package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the prompt's keyboard shortcuts.
type KeyMap struct {
	SwitchField key.Binding
	Record      key.Binding
	Clear       key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		SwitchField: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "title/amount"),
		),
		Record: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "keep result"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+u"),
			key.WithHelp("ctrl+u", "clear"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// ShortHelp lists the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.SwitchField, k.Record, k.Clear, k.Quit}
}
