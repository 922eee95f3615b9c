package statusui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the status panel.
type KeyMap struct {
	// Toggle flips the polling intent. Disabled while the dispatcher
	// is unreachable.
	Toggle key.Binding

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Toggle: key.NewBinding(
		key.WithKeys("t", " "),
		key.WithHelp("t/space", "toggle polling"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
