package views

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"arbor/internal/adapters/tui/styles"
	"arbor/internal/application"
	"arbor/internal/application/session"
)

// MessageLevel picks the style of the status message.
type MessageLevel int

const (
	MessageInfo MessageLevel = iota
	MessageWarning
	MessageError
)

// ViewState contains common state shared by all view models.
// Embed this struct in view models to get width/height and message handling.
type ViewState struct {
	Width   int
	Height  int
	Message string
	Level   MessageLevel
}

// SetSize updates the view dimensions
func (s *ViewState) SetSize(width, height int) {
	s.Width = width
	s.Height = height
}

// SetMessage sets a message to display in the view
func (s *ViewState) SetMessage(msg string, level MessageLevel) {
	s.Message = msg
	s.Level = level
}

// SetError shows err as a warning when it is a user input error and as a
// failure otherwise.
func (s *ViewState) SetError(err error) {
	if err == nil {
		s.ClearMessage()
		return
	}
	s.SetMessage(err.Error(), levelOf(err))
}

// ClearMessage clears the current message
func (s *ViewState) ClearMessage() {
	s.Message = ""
	s.Level = MessageInfo
}

func levelOf(err error) MessageLevel {
	var partial *application.PartialDistributionError
	if application.IsUserInput(err) || errors.As(err, &partial) {
		return MessageWarning
	}
	return MessageError
}

// Messages for view switching
type SwitchToEditMsg struct {
	Session *session.Session
	Title   string
}

// SwitchToConfirmMsg asks the user before running OnConfirm.
type SwitchToConfirmMsg struct {
	Title     string
	Prompt    string
	Danger    bool
	OnConfirm func() tea.Msg
}

type SwitchToHelpMsg struct{}

// SwitchToBrowserMsg returns to the browser, showing Message or Err.
type SwitchToBrowserMsg struct {
	Message string
	Err     error
}

func switchTo(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// statusLine renders the view message. Warnings and failures carry a mark
// so they stay apart on terminals without colour.
func (s ViewState) statusLine() string {
	switch {
	case s.Message == "":
		return ""
	case s.Level == MessageError:
		return styles.ErrorMsg.Render("✗ " + s.Message)
	case s.Level == MessageWarning:
		return styles.WarningMsg.Render("! " + s.Message)
	default:
		return styles.Success.Render(s.Message)
	}
}

// helpLine lists key bindings with their descriptions.
func helpLine(bindings ...key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		parts = append(parts, styles.HelpKey.Render(h.Key)+" "+styles.HelpDesc.Render(h.Desc))
	}
	return strings.Join(parts, styles.HelpSeparator.String())
}

func muted(text string) string {
	return styles.MutedText.Render(text)
}

// screen lays out a full-screen view: the title, the blocks separated by
// blank lines, the status line when a message is set, then the footer.
func screen(title string, s ViewState, footer string, blocks ...string) string {
	var b strings.Builder
	b.WriteString(styles.Title.Render(title))
	b.WriteString("\n")
	for _, block := range blocks {
		b.WriteString(block)
		b.WriteString("\n\n")
	}
	if line := s.statusLine(); line != "" {
		b.WriteString(line)
		b.WriteString("\n\n")
	}
	b.WriteString(footer)
	return styles.App.Render(b.String())
}
