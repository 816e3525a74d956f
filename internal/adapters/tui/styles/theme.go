package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary   = lipgloss.Color("#2E7D5B") // Moss
	Secondary = lipgloss.Color("#10B981") // Green
	Accent    = lipgloss.Color("#60A5FA") // Blue
	Muted     = lipgloss.Color("#6B7280") // Gray
	Warning   = lipgloss.Color("#F59E0B") // Amber
	Error     = lipgloss.Color("#EF4444") // Red
	White     = lipgloss.Color("#FFFFFF")
	Black     = lipgloss.Color("#000000")

	// Base styles
	App = lipgloss.NewStyle().
		Padding(1, 2)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	// Tree node styles
	NodeRoot = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	NodeBranch = lipgloss.NewStyle().
			Foreground(Accent)

	NodeLeaf = lipgloss.NewStyle()

	NodeHighlighted = lipgloss.NewStyle().
			Background(Primary).
			Foreground(White).
			Bold(true)

	NodeDeleted = lipgloss.NewStyle().
			Foreground(Muted).
			Strikethrough(true)

	NodeEncrypted = lipgloss.NewStyle().
			Foreground(Warning)

	NodeCut = lipgloss.NewStyle().
		Foreground(Muted).
		Italic(true)

	// Tree indicators
	TreeBranch   = lipgloss.NewStyle().Foreground(Muted)
	TreeChildren = "▶ "
	TreeLeaf     = "  "
	TreeSelected = "● "
	TreeUnmarked = "○ "

	// Status bar
	StatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("#1F2937")).
			Foreground(White).
			Padding(0, 1)

	StatusKey = lipgloss.NewStyle().
			Background(Primary).
			Foreground(White).
			Padding(0, 1).
			MarginRight(1)

	StatusText = lipgloss.NewStyle().
			Foreground(Muted)

	// Input styles
	InputLabel = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	InputField = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1)

	InputFocused = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Secondary).
			Padding(0, 1)

	// Help styles
	HelpKey = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)

	HelpDesc = lipgloss.NewStyle().
			Foreground(Muted)

	HelpSeparator = lipgloss.NewStyle().
			Foreground(Muted).
			SetString(" • ")

	// Message styles
	Success = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true)

	WarningMsg = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	ErrorMsg = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	// Danger confirmations
	DangerBox = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(Error).
			Padding(0, 1)

	ConfirmBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1)

	// Muted text style (for using Muted color as a style)
	MutedText = lipgloss.NewStyle().
			Foreground(Muted)
)

// NodeStyle returns the style a node is listed with.
func NodeStyle(hasChildren, deleted, encrypted bool) lipgloss.Style {
	switch {
	case deleted:
		return NodeDeleted
	case encrypted:
		return NodeEncrypted
	case hasChildren:
		return NodeBranch
	default:
		return NodeLeaf
	}
}
