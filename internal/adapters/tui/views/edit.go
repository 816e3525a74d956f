package views

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"arbor/internal/adapters/tui/styles"
	"arbor/internal/application"
	"arbor/internal/application/session"
	"arbor/internal/ports"
)

// EditKeyMap defines key bindings for the edit view
type EditKeyMap struct {
	Save       key.Binding
	Cancel     key.Binding
	Tab        key.Binding
	Encrypt    key.Binding
	InsertTime key.Binding
	Editor     key.Binding
}

var EditKeys = EditKeyMap{
	Save: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "save"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next field"),
	),
	Encrypt: key.NewBinding(
		key.WithKeys("ctrl+t"),
		key.WithHelp("ctrl+t", "toggle encryption"),
	),
	InsertTime: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "insert time"),
	),
	Editor: key.NewBinding(
		key.WithKeys("ctrl+o"),
		key.WithHelp("ctrl+o", "external editor"),
	),
}

const (
	fieldName = iota
	fieldContent
)

// EditModel edits the name and content of the node under an open edit
// session.
type EditModel struct {
	ViewState
	ctx     context.Context
	editor  ports.EditorOpener
	session *session.Session
	title   string
	encrypt bool

	name    textinput.Model
	content textarea.Model
	focused int
}

// NewEditModel creates a new edit view model. editor may be nil.
func NewEditModel(ctx context.Context, editor ports.EditorOpener) *EditModel {
	name := textinput.New()
	name.Placeholder = "Name (optional)"
	name.CharLimit = 200

	content := textarea.New()
	content.Placeholder = "Content"
	content.ShowLineNumbers = false
	content.CharLimit = 0

	return &EditModel{
		ctx:     ctx,
		editor:  editor,
		name:    name,
		content: content,
	}
}

// Open loads the session buffers into the form.
func (m *EditModel) Open(s *session.Session, title string) {
	m.session = s
	m.title = title
	m.encrypt = s.Encrypted()
	m.ClearMessage()

	m.name.SetValue(s.Name())
	m.content.SetValue(s.Content())
	if s.Unreadable() {
		m.content.SetValue("")
		m.content.Placeholder = "[encrypted content you cannot read]"
		m.SetMessage("This node's content cannot be decrypted; only its name can be changed.", MessageWarning)
	} else {
		m.content.Placeholder = "Content"
	}
	m.focus(fieldContent)
}

// Init initializes the edit view
func (m *EditModel) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages for the edit view
func (m *EditModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		m.content.SetWidth(max(msg.Width-8, 20))
		m.content.SetHeight(max(msg.Height-16, 5))
		return m, nil

	case editorFinishedMsg:
		m.finishExternalEdit(msg)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, EditKeys.Cancel):
			return m, m.cancel()
		case key.Matches(msg, EditKeys.Save):
			return m, m.save()
		case key.Matches(msg, EditKeys.Tab):
			m.focus((m.focused + 1) % 2)
			return m, nil
		case key.Matches(msg, EditKeys.Encrypt):
			m.toggleEncryption()
			return m, nil
		case key.Matches(msg, EditKeys.InsertTime):
			m.insertTime(time.Now())
			return m, nil
		case key.Matches(msg, EditKeys.Editor):
			return m, m.openExternal()
		}
	}

	var cmd tea.Cmd
	if m.focused == fieldName {
		m.name, cmd = m.name.Update(msg)
	} else if !m.session.Unreadable() {
		m.content, cmd = m.content.Update(msg)
	}
	return m, cmd
}

func (m *EditModel) focus(field int) {
	m.focused = field
	if field == fieldName {
		m.name.Focus()
		m.content.Blur()
		return
	}
	m.name.Blur()
	m.content.Focus()
}

// flush copies the form into the session buffers.
func (m *EditModel) flush() error {
	if err := m.session.SetName(strings.TrimSpace(m.name.Value())); err != nil {
		return err
	}
	if m.session.Unreadable() {
		return nil
	}
	return m.session.SetContent(m.content.Value())
}

func (m *EditModel) save() tea.Cmd {
	if err := m.flush(); err != nil {
		m.SetError(err)
		return nil
	}
	res, err := m.session.Save(m.ctx)
	var partial *application.PartialDistributionError
	switch {
	case err == nil:
		return switchTo(SwitchToBrowserMsg{Message: res.Message})
	case errors.As(err, &partial):
		return switchTo(SwitchToBrowserMsg{Err: err})
	case res != nil:
		// saved, but the view refresh failed
		return switchTo(SwitchToBrowserMsg{Err: err})
	default:
		m.SetError(err)
		return nil
	}
}

func (m *EditModel) cancel() tea.Cmd {
	if err := m.session.Cancel(); err != nil {
		return switchTo(SwitchToBrowserMsg{Err: err})
	}
	return switchTo(SwitchToBrowserMsg{Message: "Edit cancelled"})
}

func (m *EditModel) toggleEncryption() {
	if err := m.flush(); err != nil {
		m.SetError(err)
		return
	}
	if err := m.session.SetEncryption(!m.encrypt); err != nil {
		m.SetError(err)
		return
	}
	m.encrypt = !m.encrypt
	if m.encrypt {
		m.SetMessage("Content will be encrypted on save", MessageInfo)
	} else {
		m.SetMessage("Content will be saved unencrypted", MessageInfo)
	}
}

func (m *EditModel) insertTime(now time.Time) {
	if err := m.flush(); err != nil {
		m.SetError(err)
		return
	}
	if err := m.session.InsertTime(now); err != nil {
		m.SetError(err)
		return
	}
	m.content.SetValue(m.session.Content())
}

type editorFinishedMsg struct {
	path string
	err  error
}

// openExternal hands the content buffer to the external editor through a
// temporary file.
func (m *EditModel) openExternal() tea.Cmd {
	if m.editor == nil || m.session.Unreadable() {
		return nil
	}
	f, err := os.CreateTemp("", "arbor-*.md")
	if err != nil {
		m.SetError(err)
		return nil
	}
	path := f.Name()
	_, err = f.WriteString(m.content.Value())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		m.SetError(err)
		return nil
	}

	cmd, err := m.editor.Command(path)
	if err != nil {
		os.Remove(path)
		m.SetError(err)
		return nil
	}
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorFinishedMsg{path: path, err: err}
	})
}

func (m *EditModel) finishExternalEdit(msg editorFinishedMsg) {
	defer os.Remove(msg.path)
	if msg.err != nil {
		m.SetMessage(fmt.Sprintf("Editor failed: %v", msg.err), MessageError)
		return
	}
	data, err := os.ReadFile(msg.path)
	if err != nil {
		m.SetError(err)
		return
	}
	m.content.SetValue(strings.TrimRight(string(data), "\n"))
}

// View renders the edit view
func (m *EditModel) View() string {
	if m.session == nil {
		return ""
	}
	node := m.session.Node()
	info := fmt.Sprintf("%s  type %s  owner %s", node.ID, node.Type, node.EffectiveOwner())
	if m.encrypt {
		info += "  " + styles.NodeEncrypted.Render("encrypted")
	}

	field := styles.InputField
	if m.focused == fieldName {
		field = styles.InputFocused
	}
	form := strings.Join([]string{
		styles.InputLabel.Render("Name"),
		field.Render(m.name.View()),
		styles.InputLabel.Render("Content"),
		m.content.View(),
	}, "\n")

	help := helpLine(EditKeys.Save, EditKeys.Cancel, EditKeys.Tab, EditKeys.Encrypt, EditKeys.InsertTime, EditKeys.Editor)
	return screen(m.title, m.ViewState, help, muted(info), form)
}
