package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"arbor/internal/adapters/tui/views"
	"arbor/internal/app"
)

// ViewState represents the current view
type ViewState int

const (
	ViewBrowser ViewState = iota
	ViewEdit
	ViewConfirm
	ViewHelp
)

// App is the main TUI application model
type App struct {
	app *app.App

	state   ViewState
	browser *views.BrowserModel
	edit    *views.EditModel
	confirm *views.ConfirmationModel
	help    *views.HelpModel

	width  int
	height int
}

// NewApp creates a new TUI application over an opened workspace
func NewApp(ctx context.Context, a *app.App) *App {
	return &App{
		app:     a,
		state:   ViewBrowser,
		browser: views.NewBrowserModel(ctx, a),
		edit:    views.NewEditModel(ctx, a.Editor),
		confirm: views.NewConfirmationModel(),
		help:    views.NewHelpModel(),
	}
}

// Init initializes the application
func (a *App) Init() tea.Cmd {
	return a.browser.Init()
}

// Update handles messages for the application
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.browser.SetSize(msg.Width, msg.Height)
		a.edit.Update(msg)
		a.confirm.SetSize(msg.Width, msg.Height)
		a.help.SetSize(msg.Width, msg.Height)
		return a, nil

	// View switching messages
	case views.SwitchToEditMsg:
		a.state = ViewEdit
		a.edit.Open(msg.Session, msg.Title)
		return a, a.edit.Init()

	case views.SwitchToConfirmMsg:
		a.state = ViewConfirm
		a.confirm.Ask(msg)
		return a, nil

	case views.ConfirmedMsg:
		// run on the update loop, like every other workspace operation
		return a.Update(msg.Run())

	case views.SwitchToHelpMsg:
		a.state = ViewHelp
		return a, nil

	case views.SwitchToBrowserMsg:
		a.state = ViewBrowser
		switch {
		case msg.Err != nil:
			a.browser.SetError(msg.Err)
		case msg.Message != "":
			a.browser.SetMessage(msg.Message, views.MessageInfo)
		default:
			a.browser.ClearMessage()
		}
		return a, a.browser.Init()
	}

	// Delegate to current view
	var cmd tea.Cmd
	switch a.state {
	case ViewBrowser:
		_, cmd = a.browser.Update(msg)
	case ViewEdit:
		_, cmd = a.edit.Update(msg)
	case ViewConfirm:
		_, cmd = a.confirm.Update(msg)
	case ViewHelp:
		_, cmd = a.help.Update(msg)
	}

	return a, cmd
}

// View renders the current view
func (a *App) View() string {
	switch a.state {
	case ViewEdit:
		return a.edit.View()
	case ViewConfirm:
		return a.confirm.View()
	case ViewHelp:
		return a.help.View()
	default:
		return a.browser.View()
	}
}
