package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"arbor/internal/adapters/tui/styles"
)

// HelpKeyMap defines key bindings for the help view
type HelpKeyMap struct {
	Close key.Binding
}

var HelpKeys = HelpKeyMap{
	Close: key.NewBinding(
		key.WithKeys("esc", "q", "?"),
		key.WithHelp("esc/q/?", "close"),
	),
}

// HelpModel is the model for the help view
type HelpModel struct {
	ViewState
}

// NewHelpModel creates a new help view model
func NewHelpModel() *HelpModel {
	return &HelpModel{}
}

// Init initializes the help view
func (m *HelpModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view
func (m *HelpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, HelpKeys.Close) {
			return m, switchTo(SwitchToBrowserMsg{})
		}
	}

	return m, nil
}

// View renders the help view
func (m *HelpModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Arbor Help"))
	b.WriteString("\n\n")

	section(&b, "Navigation",
		BrowserKeys.Up, BrowserKeys.Down, BrowserKeys.Enter, BrowserKeys.Back,
		BrowserKeys.Home, BrowserKeys.Refresh)
	section(&b, "Selection",
		BrowserKeys.Select, BrowserKeys.SelectAll)
	section(&b, "Editing",
		BrowserKeys.Edit, BrowserKeys.NewChild, BrowserKeys.InsertBelow, BrowserKeys.InsertAbove,
		BrowserKeys.Split, BrowserKeys.EditMode)
	section(&b, "Moving",
		BrowserKeys.Cut, BrowserKeys.PasteBelow, BrowserKeys.PasteInside, BrowserKeys.UndoCut,
		BrowserKeys.MoveUp, BrowserKeys.MoveDown)
	section(&b, "Deleting",
		BrowserKeys.Delete, BrowserKeys.HardDelete)
	section(&b, "Edit view",
		EditKeys.Save, EditKeys.Cancel, EditKeys.Tab, EditKeys.Encrypt, EditKeys.InsertTime, EditKeys.Editor)
	section(&b, "General",
		BrowserKeys.Help, BrowserKeys.Quit)

	b.WriteString(styles.HelpDesc.Render("Press "))
	b.WriteString(styles.HelpKey.Render("esc"))
	b.WriteString(styles.HelpDesc.Render(" or "))
	b.WriteString(styles.HelpKey.Render("?"))
	b.WriteString(styles.HelpDesc.Render(" to close"))

	return styles.App.Render(b.String())
}

func section(b *strings.Builder, title string, bindings ...key.Binding) {
	b.WriteString(styles.InputLabel.Render(title))
	b.WriteString("\n")
	for _, k := range bindings {
		h := k.Help()
		b.WriteString(helpRow(h.Key, h.Desc))
	}
	b.WriteString("\n")
}

func helpRow(key, desc string) string {
	return "  " + styles.HelpKey.Render(padRight(key, 20)) + styles.HelpDesc.Render(desc) + "\n"
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}
