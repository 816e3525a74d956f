package views

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"arbor/internal/adapters/tui/styles"
	"arbor/internal/app"
	"arbor/internal/application/commands"
	"arbor/internal/domain"
	"arbor/internal/ports"
)

// BrowserKeyMap defines key bindings for the browser view
type BrowserKeyMap struct {
	Up          key.Binding
	Down        key.Binding
	Enter       key.Binding
	Back        key.Binding
	Home        key.Binding
	Select      key.Binding
	SelectAll   key.Binding
	Edit        key.Binding
	NewChild    key.Binding
	InsertBelow key.Binding
	InsertAbove key.Binding
	Delete      key.Binding
	HardDelete  key.Binding
	Cut         key.Binding
	PasteBelow  key.Binding
	PasteInside key.Binding
	UndoCut     key.Binding
	MoveUp      key.Binding
	MoveDown    key.Binding
	Split       key.Binding
	EditMode    key.Binding
	Refresh     key.Binding
	Help        key.Binding
	Quit        key.Binding
}

var BrowserKeys = BrowserKeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("l", "right", "enter"),
		key.WithHelp("l/enter", "open"),
	),
	Back: key.NewBinding(
		key.WithKeys("h", "left", "backspace"),
		key.WithHelp("h/←", "parent"),
	),
	Home: key.NewBinding(
		key.WithKeys("~"),
		key.WithHelp("~", "home"),
	),
	Select: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "select"),
	),
	SelectAll: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "select all"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit"),
	),
	NewChild: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new child"),
	),
	InsertBelow: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "insert below"),
	),
	InsertAbove: key.NewBinding(
		key.WithKeys("O"),
		key.WithHelp("O", "insert above"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "delete"),
	),
	HardDelete: key.NewBinding(
		key.WithKeys("D"),
		key.WithHelp("D", "delete permanently"),
	),
	Cut: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "cut"),
	),
	PasteBelow: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "paste below"),
	),
	PasteInside: key.NewBinding(
		key.WithKeys("P"),
		key.WithHelp("P", "paste inside"),
	),
	UndoCut: key.NewBinding(
		key.WithKeys("u"),
		key.WithHelp("u", "undo cut"),
	),
	MoveUp: key.NewBinding(
		key.WithKeys("K", "shift+up"),
		key.WithHelp("K", "move up"),
	),
	MoveDown: key.NewBinding(
		key.WithKeys("J", "shift+down"),
		key.WithHelp("J", "move down"),
	),
	Split: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "split"),
	),
	EditMode: key.NewBinding(
		key.WithKeys("ctrl+e"),
		key.WithHelp("ctrl+e", "edit mode"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// BrowserModel is the model for the tree browser view. It shows the view
// root and its children; the cursor follows the highlighted node.
//
// Workspace operations run inside Update because the workspace is not
// safe for concurrent use.
type BrowserModel struct {
	ViewState
	app *app.App
	ctx context.Context
}

// NewBrowserModel creates a new browser model
func NewBrowserModel(ctx context.Context, a *app.App) *BrowserModel {
	return &BrowserModel{app: a, ctx: ctx}
}

// Init initializes the browser
func (m *BrowserModel) Init() tea.Cmd {
	if m.app.Workspace.View.Highlighted() == nil {
		m.moveCursor(0)
	}
	return nil
}

// Update handles messages for the browser
func (m *BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		m.ClearMessage()
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *BrowserModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	ws := m.app.Workspace
	ctx := m.ctx

	switch {
	case key.Matches(msg, BrowserKeys.Quit):
		return tea.Quit

	case key.Matches(msg, BrowserKeys.Up):
		m.moveCursor(-1)

	case key.Matches(msg, BrowserKeys.Down):
		m.moveCursor(1)

	case key.Matches(msg, BrowserKeys.Enter):
		if n := ws.View.Highlighted(); n != nil {
			m.report(m.app.Enter(ctx, n.ID), "")
			m.moveCursor(0)
		}

	case key.Matches(msg, BrowserKeys.Back):
		ok, err := ws.View.NavigateUp(ctx)
		if err == nil && !ok {
			m.SetMessage("Already at the top", MessageInfo)
			return nil
		}
		m.report(err, "")

	case key.Matches(msg, BrowserKeys.Home):
		m.report(m.app.Enter(ctx, ws.HomeNodeID), "")
		m.moveCursor(0)

	case key.Matches(msg, BrowserKeys.Select):
		if n := ws.View.Highlighted(); n != nil {
			ws.Selection.Toggle(n.ID, !ws.Selection.Contains(n.ID))
			m.moveCursor(1)
		}

	case key.Matches(msg, BrowserKeys.SelectAll):
		res, err := commands.NewSelectAllCommand(ws).Execute(ctx)
		if err != nil {
			m.SetError(err)
			return nil
		}
		m.SetMessage(res.Message, MessageInfo)

	case key.Matches(msg, BrowserKeys.Edit):
		n := ws.View.Highlighted()
		if n == nil {
			n = ws.View.Root()
		}
		if n == nil {
			return nil
		}
		s, err := commands.NewOpenEditCommand(ws, m.app.Sessions, n.ID).Execute(ctx)
		if err != nil {
			m.SetError(err)
			return nil
		}
		return switchTo(SwitchToEditMsg{Session: s, Title: "Edit " + n.DisplayName()})

	case key.Matches(msg, BrowserKeys.NewChild):
		res, err := commands.NewCreateSubNodeCommand(ws, m.app.Sessions, ws.View.RootID(), "", false).Execute(ctx)
		return m.openNew(res, err)

	case key.Matches(msg, BrowserKeys.InsertBelow), key.Matches(msg, BrowserKeys.InsertAbove):
		n := ws.View.Highlighted()
		if n == nil {
			m.SetMessage("Highlight a node to insert next to", MessageWarning)
			return nil
		}
		offset := 0
		if key.Matches(msg, BrowserKeys.InsertBelow) {
			offset = 1
		}
		res, err := commands.NewInsertNodeCommand(ws, m.app.Sessions, n.ID, "", offset).Execute(ctx)
		return m.openNew(res, err)

	case key.Matches(msg, BrowserKeys.Delete), key.Matches(msg, BrowserKeys.HardDelete):
		return m.confirmDelete(key.Matches(msg, BrowserKeys.HardDelete))

	case key.Matches(msg, BrowserKeys.Cut):
		return m.confirmCut()

	case key.Matches(msg, BrowserKeys.PasteBelow), key.Matches(msg, BrowserKeys.PasteInside):
		target := ws.View.RootID()
		location := ports.LocationInside
		if n := ws.View.Highlighted(); n != nil {
			target = n.ID
			if key.Matches(msg, BrowserKeys.PasteBelow) {
				location = ports.LocationInline
			}
		}
		res, err := commands.NewPasteCommand(ws, target, location, nil).Execute(ctx)
		if err != nil {
			m.SetError(err)
			return nil
		}
		m.SetMessage(res.Message, MessageInfo)

	case key.Matches(msg, BrowserKeys.UndoCut):
		m.SetMessage(commands.NewUndoCutCommand(ws).Execute().Message, MessageInfo)

	case key.Matches(msg, BrowserKeys.MoveUp), key.Matches(msg, BrowserKeys.MoveDown):
		n := ws.View.Highlighted()
		if n == nil {
			return nil
		}
		dir := ports.PositionDown
		if key.Matches(msg, BrowserKeys.MoveUp) {
			dir = ports.PositionUp
		}
		res, err := commands.NewReorderCommand(ws, n.ID, dir).Execute(ctx)
		if err != nil {
			m.SetError(err)
			return nil
		}
		ws.View.Highlight(n.ID)
		m.SetMessage(res.Message, MessageInfo)

	case key.Matches(msg, BrowserKeys.Split):
		res, err := commands.NewSplitCommand(ws, ports.SplitInline, "").Execute(ctx)
		if err != nil {
			m.SetError(err)
			return nil
		}
		m.SetMessage(res.Message, MessageInfo)

	case key.Matches(msg, BrowserKeys.EditMode):
		if ws.ToggleEditMode() {
			m.SetMessage("Edit mode on", MessageInfo)
		} else {
			m.SetMessage("Edit mode off", MessageInfo)
		}

	case key.Matches(msg, BrowserKeys.Refresh):
		focus := ""
		if n := ws.View.Highlighted(); n != nil {
			focus = n.ID
		}
		m.report(ws.Refresh(ctx, focus), "Refreshed")

	case key.Matches(msg, BrowserKeys.Help):
		return switchTo(SwitchToHelpMsg{})
	}
	return nil
}

func (m *BrowserModel) openNew(res *commands.NewNodeResult, err error) tea.Cmd {
	if err != nil {
		m.SetError(err)
		return nil
	}
	if res.Session == nil {
		m.SetMessage(res.Message, MessageInfo)
		return nil
	}
	return switchTo(SwitchToEditMsg{Session: res.Session, Title: "New node"})
}

func (m *BrowserModel) confirmDelete(hard bool) tea.Cmd {
	ws := m.app.Workspace
	trigger := ""
	if ws.Selection.Len() == 0 {
		if n := ws.View.Highlighted(); n != nil {
			trigger = n.ID
		}
	}
	cmd := commands.NewDeleteCommand(ws, trigger, hard)
	plan, err := cmd.Prepare()
	if err != nil {
		m.SetError(err)
		return nil
	}
	return switchTo(SwitchToConfirmMsg{
		Title:  plan.Title,
		Prompt: plan.Prompt,
		Danger: plan.Danger,
		OnConfirm: func() tea.Msg {
			res, err := cmd.Execute(m.ctx, plan)
			if err != nil {
				return SwitchToBrowserMsg{Err: err}
			}
			return SwitchToBrowserMsg{Message: res.Message}
		},
	})
}

func (m *BrowserModel) confirmCut() tea.Cmd {
	ws := m.app.Workspace
	trigger := ""
	if ws.Selection.Len() == 0 {
		if n := ws.View.Highlighted(); n != nil {
			trigger = n.ID
		}
	}
	cmd := commands.NewCutCommand(ws, trigger)
	plan, err := cmd.Prepare()
	if err != nil {
		m.SetError(err)
		return nil
	}
	return switchTo(SwitchToConfirmMsg{
		Title:  "Cut",
		Prompt: plan.Prompt,
		OnConfirm: func() tea.Msg {
			return SwitchToBrowserMsg{Message: cmd.Execute(plan).Message}
		},
	})
}

// report shows err, or success when err is nil and success is set.
func (m *BrowserModel) report(err error, success string) {
	if err != nil {
		m.SetError(err)
		return
	}
	if success != "" {
		m.SetMessage(success, MessageInfo)
	}
}

// moveCursor highlights the child delta positions away from the current
// highlight, clamped to the list. Zero highlights the first child when
// nothing is highlighted.
func (m *BrowserModel) moveCursor(delta int) {
	view := m.app.Workspace.View
	children := view.Children()
	if len(children) == 0 {
		return
	}
	pos := m.cursor()
	if pos < 0 {
		view.Highlight(children[0].ID)
		return
	}
	pos = min(max(pos+delta, 0), len(children)-1)
	view.Highlight(children[pos].ID)
}

// cursor is the index of the highlighted child, or -1.
func (m *BrowserModel) cursor() int {
	view := m.app.Workspace.View
	h := view.Highlighted()
	if h == nil {
		return -1
	}
	for i, c := range view.Children() {
		if c.ID == h.ID {
			return i
		}
	}
	return -1
}

// View renders the browser
func (m *BrowserModel) View() string {
	ws := m.app.Workspace
	root := ws.View.Root()
	if root == nil {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(styles.Title.Render("Arbor"))
	b.WriteString("\n")
	b.WriteString(styles.Subtitle.Render(m.subtitle()))
	b.WriteString("\n\n")

	b.WriteString(styles.NodeRoot.Render(nodeLabel(root)))
	b.WriteString("\n")
	highlighted := ws.View.Highlighted()
	children := ws.View.Children()
	if len(children) == 0 {
		b.WriteString(muted("  (no children)"))
		b.WriteString("\n")
	}
	for _, child := range children {
		b.WriteString(m.renderNode(child, highlighted != nil && child.ID == highlighted.ID))
		b.WriteString("\n")
	}

	if line := m.statusLine(); line != "" {
		b.WriteString("\n")
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(helpLine(
		BrowserKeys.Enter, BrowserKeys.Back, BrowserKeys.Select, BrowserKeys.Edit,
		BrowserKeys.InsertBelow, BrowserKeys.Delete, BrowserKeys.Cut, BrowserKeys.PasteBelow,
		BrowserKeys.Help, BrowserKeys.Quit,
	))

	return styles.App.Render(b.String())
}

func (m *BrowserModel) subtitle() string {
	id := m.app.Workspace.Identity
	if id.IsAnonymous {
		return "anonymous"
	}
	return id.UserName
}

func (m *BrowserModel) renderNode(node *domain.Node, highlighted bool) string {
	ws := m.app.Workspace

	mark := styles.TreeUnmarked
	if ws.Selection.Contains(node.ID) {
		mark = styles.TreeSelected
	}
	prefix := styles.TreeLeaf
	if node.HasChildren {
		prefix = styles.TreeChildren
	}

	text := nodeLabel(node)
	style := styles.NodeStyle(node.HasChildren, node.Deleted, node.IsEncrypted())
	if slices.Contains(ws.Clipboard.IDs(), node.ID) {
		style = styles.NodeCut
	}
	if highlighted {
		style = styles.NodeHighlighted
	}
	return "  " + styles.TreeBranch.Render(mark+prefix) + style.Render(text)
}

func (m *BrowserModel) renderStatusBar() string {
	ws := m.app.Workspace
	mode := "view"
	if ws.Prefs.EditMode {
		mode = "edit"
	}
	parts := []string{
		styles.StatusKey.Render(mode),
		styles.StatusText.Render(fmt.Sprintf("%d selected", ws.Selection.Len())),
	}
	if ws.Clipboard.Active() {
		parts = append(parts, styles.StatusText.Render(fmt.Sprintf("%d cut", len(ws.Clipboard.IDs()))))
	}
	return strings.Join(parts, styles.HelpSeparator.String())
}

// nodeLabel is the one-line listing of a node.
func nodeLabel(n *domain.Node) string {
	label := n.DisplayName()
	if n.Name == "" && n.Content != "" && !n.IsEncrypted() {
		label = firstLine(n.Content)
	}
	var marks []string
	if n.IsEncrypted() {
		marks = append(marks, "encrypted")
	}
	if n.Public {
		marks = append(marks, "public")
	}
	if n.Deleted {
		marks = append(marks, "deleted")
	}
	if len(marks) > 0 {
		label += "  [" + strings.Join(marks, ", ") + "]"
	}
	return label
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	const maxLen = 60
	if r := []rune(line); len(r) > maxLen {
		return string(r[:maxLen-1]) + "…"
	}
	return line
}
