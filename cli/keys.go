package cli

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Tab      key.Binding
	Submit   key.Binding
	Next     key.Binding
	Back     key.Binding
	Reset    key.Binding
	Provider key.Binding
	Quit     key.Binding

	EditTitles  key.Binding
	Generate    key.Binding
	AddPoint    key.Binding
	RemovePoint key.Binding
	Refine      key.Binding
	AttachImage key.Binding
	ClearImage  key.Binding
	Save        key.Binding
	Copy        key.Binding
}

func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Up:          key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("↓/j", "down")),
		Tab:         key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch field")),
		Submit:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "generate outlines")),
		Next:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next step")),
		Back:        key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "back")),
		Reset:       key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "start over")),
		Provider:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "provider")),
		Quit:        key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
		EditTitles:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit chapters")),
		Generate:    key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "generate")),
		AddPoint:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add point")),
		RemovePoint: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove last point")),
		Refine:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refine")),
		AttachImage: key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "attach chart")),
		ClearImage:  key.NewBinding(key.WithKeys("I"), key.WithHelp("I", "clear chart")),
		Save:        key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
		Copy:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy")),
	}
}
