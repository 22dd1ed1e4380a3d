package tui

import (
	"context"
	"fmt"
	"strings"

	"stride/internal/analysis"
	"stride/internal/export"
	"stride/internal/geo"
	"stride/internal/store"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	detailMapWidth  = 600
	detailMapHeight = 400
)

// RunDetailModel is the run detail screen model
type RunDetailModel struct {
	runs      Runs
	units     Units
	exportDir string
	runID     string
	run       *store.Run
	exported  string
	exportErr error
	viewport  viewport.Model
	loading   bool
	err       error
	width     int
	height    int
	ready     bool
}

// NewRunDetailModel creates a new run detail model
func NewRunDetailModel(runs Runs, units Units, exportDir, runID string, width, height int) RunDetailModel {
	m := RunDetailModel{
		runs:      runs,
		units:     units,
		exportDir: exportDir,
		runID:     runID,
		loading:   true,
		width:     width,
		height:    height,
	}

	if width > 0 && height > 0 {
		m.viewport = viewport.New(width, height-6) // Reserve space for header/footer
		m.ready = true
	}

	return m
}

// Init initializes the run detail screen
func (m RunDetailModel) Init() tea.Cmd {
	return m.loadDetail
}

type runDetailLoadedMsg struct {
	run *store.Run
	err error
}

type exportDoneMsg struct {
	path string
	err  error
}

func (m RunDetailModel) loadDetail() tea.Msg {
	run, err := m.runs.Get(context.Background(), m.runID)
	if err != nil {
		return runDetailLoadedMsg{err: err}
	}
	return runDetailLoadedMsg{run: &run}
}

func (m RunDetailModel) exportGPX() tea.Msg {
	path, err := export.WriteFile(m.exportDir, *m.run)
	return exportDoneMsg{path: path, err: err}
}

// Update handles messages
func (m RunDetailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runDetailLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.run = msg.run
		if m.ready {
			m.viewport.SetContent(m.renderContent())
		}

	case exportDoneMsg:
		m.exported = msg.path
		m.exportErr = msg.err
		if m.ready && m.run != nil {
			m.viewport.SetContent(m.renderContent())
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 6
		}
		if m.run != nil {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			m.loading = true
			return m, m.loadDetail
		case "e":
			if m.run != nil {
				return m, m.exportGPX
			}
		}
	}

	// Handle viewport scrolling
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the run detail screen
func (m RunDetailModel) View() string {
	if m.loading {
		return "\n  Loading run..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	// Footer with help
	footer := statusStyle.Render("  esc: back to history  j/k or arrows: scroll  e: export GPX  r: refresh")

	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), footer)
}

func (m RunDetailModel) renderContent() string {
	if m.run == nil {
		return "No data"
	}

	sections := []string{
		m.renderHeader(),
		m.renderSummary(),
		m.renderMap(),
	}
	if note := m.renderExport(); note != "" {
		sections = append(sections, note)
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m RunDetailModel) renderHeader() string {
	r := m.run
	title := cardTitleStyle.Render("Run " + r.Date.Local().Format("Jan 2, 2006"))

	date := r.Date.Local().Format("Monday, January 2, 2006 at 3:04 PM")
	secs, _ := analysis.RunSeconds(*r)
	pace := m.units.FormatPaceWithUnit(secs, r.Distance)

	subtitle := lipgloss.NewStyle().Foreground(mutedColor).Render(date)

	stats := fmt.Sprintf("%s  •  %s  •  %s", m.units.FormatDistance(r.Distance), r.Duration, pace)
	statsLine := lipgloss.NewStyle().Foreground(textColor).Bold(true).Render(stats)

	return lipgloss.JoinVertical(lipgloss.Left, "", title, subtitle, statsLine, "")
}

func (m RunDetailModel) renderSummary() string {
	r := m.run
	var lines []string

	lines = append(lines, sectionStyle.Render("Summary"))
	lines = append(lines, fmt.Sprintf("  Distance:        %s", m.units.FormatDistance(r.Distance)))
	lines = append(lines, fmt.Sprintf("  Duration:        %s", r.Duration))
	lines = append(lines, fmt.Sprintf("  Pace:            %s/mi", r.Pace))
	lines = append(lines, fmt.Sprintf("  Track points:    %d", len(r.Path)))

	if cat, _, ok := analysis.MatchingRaceCategory(r.Distance); ok {
		lines = append(lines, fmt.Sprintf("  Race distance:   %s", cat))
	}

	if box, ok := geo.Bounds(r.Path); ok {
		lines = append(lines, fmt.Sprintf("  Area:            %.4f,%.4f to %.4f,%.4f",
			box.MinLat, box.MinLng, box.MaxLat, box.MaxLng))
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func (m RunDetailModel) renderMap() string {
	var lines []string

	lines = append(lines, sectionStyle.Render("Route Map"))
	if len(m.run.Path) == 0 {
		lines = append(lines, statusStyle.Render("  No GPS track recorded for this run."))
	} else {
		url := geo.StaticMapURL(m.run.Path, geo.DetailMapPoints, detailMapWidth, detailMapHeight)
		lines = append(lines, "  "+urlStyle.Render(url))
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func (m RunDetailModel) renderExport() string {
	switch {
	case m.exportErr != nil:
		return errorStyle.Render(fmt.Sprintf("  Export failed: %v", m.exportErr))
	case m.exported != "":
		return successStyle.Render("  Exported to " + m.exported)
	}
	return ""
}
