package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpModel is the help screen model
type HelpModel struct{}

// NewHelpModel creates a new help model
func NewHelpModel() HelpModel {
	return HelpModel{}
}

// Init initializes the help screen
func (m HelpModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m HelpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

// View renders the help screen
func (m HelpModel) View() string {
	var sections []string

	title := cardTitleStyle.Render("Keyboard Shortcuts")
	sections = append(sections, title)

	// Navigation section
	sections = append(sections, m.renderSection("Navigation", []keyHelp{
		{"1", "Dashboard"},
		{"2", "Current run"},
		{"3", "Run history"},
		{"?", "Help (this screen)"},
		{"q", "Quit (when no run is in progress)"},
		{"ctrl+c", "Quit, keeping an unfinished run for later"},
		{"esc", "Back / close help"},
	}))

	sections = append(sections, m.renderSection("Dashboard", []keyHelp{
		{"n", "Start a new run"},
		{"enter", "Resume an unfinished run"},
		{"d", "Discard an unfinished run"},
		{"r", "Refresh data"},
	}))

	sections = append(sections, m.renderSection("Current Run", []keyHelp{
		{"enter", "Start a run"},
		{"space / p", "Pause or resume"},
		{"s", "Stop and save (asks to confirm)"},
		{"x", "Cancel without saving (asks to confirm)"},
	}))

	sections = append(sections, m.renderSection("History", []keyHelp{
		{"j / down", "Move cursor down"},
		{"k / up", "Move cursor up"},
		{"pgdn", "Next page"},
		{"pgup", "Previous page"},
		{"enter", "Run details"},
		{"r", "Refresh list"},
	}))

	sections = append(sections, m.renderSection("Run Details", []keyHelp{
		{"e", "Export as GPX"},
		{"j / k", "Scroll"},
	}))

	sections = append(sections, m.renderNotes())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

type keyHelp struct {
	key  string
	desc string
}

func (m HelpModel) renderSection(title string, keys []keyHelp) string {
	var lines []string

	lines = append(lines, "")
	lines = append(lines, sectionStyle.Render(title))

	for _, k := range keys {
		lines = append(lines, "  "+RenderKeyHelp(k.key, k.desc))
	}

	return strings.Join(lines, "\n")
}

func (m HelpModel) renderNotes() string {
	var lines []string

	lines = append(lines, "")
	lines = append(lines, sectionStyle.Render("How Distance Is Measured"))
	lines = append(lines, "")

	notes := []struct {
		name string
		desc string
	}{
		{"GPS accuracy", "Fixes less accurate than 50 m are ignored."},
		{"Jumps", "A single step of 0.2 mi or more is treated as a glitch and not counted."},
		{"Pause", "While paused neither time nor distance accumulates."},
		{"Recovery", "An unfinished run is saved every second and offered again on launch."},
		{"Predictions", "Race times are projected from your longest race-distance best of the past year using Daniels' VDOT tables."},
	}

	for _, n := range notes {
		lines = append(lines, "  "+helpKeyStyle.Render(n.name))
		lines = append(lines, "  "+helpDescStyle.Render(n.desc))
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
