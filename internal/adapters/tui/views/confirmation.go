package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"arbor/internal/adapters/tui/styles"
)

// ConfirmKeyMap defines key bindings for confirmation views
type ConfirmKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// DefaultConfirmKeys returns the default confirmation key bindings
var DefaultConfirmKeys = ConfirmKeyMap{
	Confirm: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "confirm"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("n", "esc"),
		key.WithHelp("n/esc", "cancel"),
	),
}

// ConfirmationModel asks a yes/no question before running an action.
// Danger confirmations are drawn in the error style.
type ConfirmationModel struct {
	ViewState
	Title     string
	Prompt    string
	Danger    bool
	Keys      ConfirmKeyMap
	onConfirm func() tea.Msg
}

// ConfirmedMsg carries the confirmed action back to the application, which
// runs it on the update loop.
type ConfirmedMsg struct {
	Run func() tea.Msg
}

// NewConfirmationModel creates a new confirmation model with default keys
func NewConfirmationModel() *ConfirmationModel {
	return &ConfirmationModel{
		Keys: DefaultConfirmKeys,
	}
}

// Ask replaces the question and the action run on confirmation.
func (m *ConfirmationModel) Ask(msg SwitchToConfirmMsg) {
	m.Title = msg.Title
	m.Prompt = msg.Prompt
	m.Danger = msg.Danger
	m.onConfirm = msg.OnConfirm
}

// Init initializes the confirmation view
func (m *ConfirmationModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the confirmation view
func (m *ConfirmationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.Keys.Cancel):
			return m, switchTo(SwitchToBrowserMsg{Message: "Cancelled"})
		case key.Matches(msg, m.Keys.Confirm):
			if m.onConfirm == nil {
				return m, switchTo(SwitchToBrowserMsg{})
			}
			return m, switchTo(ConfirmedMsg{Run: m.onConfirm})
		}
	}
	return m, nil
}

// View renders the confirmation view
func (m *ConfirmationModel) View() string {
	title := m.Title
	if title == "" {
		title = "Confirm"
	}

	var body strings.Builder
	if m.Danger {
		body.WriteString(styles.ErrorMsg.Render(m.Prompt))
	} else {
		body.WriteString(m.Prompt)
	}

	box := styles.ConfirmBox
	if m.Danger {
		box = styles.DangerBox
	}

	return screen(title, m.ViewState, RenderConfirmPrompt("Are you sure?"), box.Render(body.String()))
}

// RenderConfirmPrompt renders the standard confirmation prompt
func RenderConfirmPrompt(question string) string {
	var b strings.Builder
	b.WriteString(question)
	b.WriteString(" ")
	b.WriteString(styles.HelpKey.Render("y"))
	b.WriteString(styles.HelpDesc.Render(" to confirm, "))
	b.WriteString(styles.HelpKey.Render("n"))
	b.WriteString(styles.HelpDesc.Render(" to cancel"))
	return b.String()
}
