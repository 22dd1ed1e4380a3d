package tui

import (
	"context"
	"fmt"
	"time"

	"stride/internal/analysis"
	"stride/internal/session"
	"stride/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// DashboardModel is the dashboard screen model
type DashboardModel struct {
	runs      Runs
	session   Session
	units     Units
	recovered *store.ActiveRunState
	bannerErr error
	history   []store.Run
	summaries analysis.Summaries
	bests     analysis.PersonalBests
	source    *analysis.RaceSource
	predicted []analysis.RacePrediction
	loading   bool
	err       error
	now       func() time.Time
}

// NewDashboardModel creates a new dashboard model
func NewDashboardModel(runs Runs, sess Session, units Units, recovered *store.ActiveRunState) DashboardModel {
	return DashboardModel{
		runs:      runs,
		session:   sess,
		units:     units,
		recovered: recovered,
		loading:   true,
		now:       time.Now,
	}
}

func (m DashboardModel) reload() DashboardModel {
	m.loading = true
	m.err = nil
	return m
}

// Init initializes the dashboard
func (m DashboardModel) Init() tea.Cmd {
	return m.loadData
}

func (m DashboardModel) loadData() tea.Msg {
	runs, err := m.runs.All(context.Background())
	if err != nil {
		return dashboardDataMsg{err: err}
	}
	return dashboardDataMsg{runs: runs}
}

type dashboardDataMsg struct {
	runs []store.Run
	err  error
}

// recoveryDoneMsg reports the outcome of resuming or discarding a recovered run
type recoveryDoneMsg struct {
	resumed bool
	err     error
}

// Update handles messages
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		m.loading = false
		m.err = msg.err
		m.history = msg.runs
		m.summaries = analysis.Summarize(msg.runs, m.now())
		m.bests = analysis.FindPersonalBests(msg.runs)
		m.source, m.predicted = analysis.PredictRaces(m.bests, m.now())

	case recoveryDoneMsg:
		m.bannerErr = msg.err
		if msg.err == nil {
			m.recovered = nil
		}

	case tea.KeyMsg:
		if m.recovered != nil {
			switch msg.String() {
			case "enter":
				return m, m.resume(m.recovered)
			case "d":
				return m, m.discard
			}
		}
		switch msg.String() {
		case "r":
			m.loading = true
			return m, m.loadData
		case "n":
			if m.recovered == nil {
				return m, func() tea.Msg { return StartRunMsg{} }
			}
		}
	}
	return m, nil
}

func (m DashboardModel) resume(st *store.ActiveRunState) tea.Cmd {
	return func() tea.Msg {
		err := m.session.Resume(context.Background(), st)
		return recoveryDoneMsg{resumed: true, err: err}
	}
}

func (m DashboardModel) discard() tea.Msg {
	return recoveryDoneMsg{err: m.session.Discard(context.Background())}
}

// View renders the dashboard
func (m DashboardModel) View() string {
	var sections []string

	if m.recovered != nil {
		sections = append(sections, m.renderResumeBanner())
	}

	if m.loading {
		sections = append(sections, "\n  Loading dashboard...")
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	if m.err != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err)))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	if len(m.history) == 0 {
		sections = append(sections, "\n  No runs yet. Press 'n' to start your first run.")
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	// Top row: recent windows and all time
	weekCard := m.renderSummaryCard("Last 7 Days", m.summaries.Week)
	monthCard := m.renderSummaryCard("Last 30 Days", m.summaries.Month)
	totalCard := m.renderSummaryCard("All Time", m.summaries.Total)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, weekCard, "  ", monthCard, "  ", totalCard))

	bests := m.renderBests()
	if m.source != nil {
		bests = lipgloss.JoinHorizontal(lipgloss.Top, bests, "  ", m.renderPredictions())
	}
	sections = append(sections, bests)
	sections = append(sections, m.renderRecentRuns())

	help := statusStyle.Render("Press 'n' to start a run, 'r' to refresh, '3' for history")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m DashboardModel) renderResumeBanner() string {
	st := m.recovered
	state := "running"
	if !st.IsRunning {
		state = "paused"
	}

	lines := []string{
		warningStyle.Bold(true).Render("Unfinished run"),
		fmt.Sprintf("Started %s, %s, %s, %s",
			humanize.Time(st.StartedTime()),
			m.units.FormatDistance(st.TotalDistanceMi),
			session.FormatDuration(st.ElapsedSec),
			state),
		"",
		RenderKeyHelp("enter", "resume") + "   " + RenderKeyHelp("d", "discard"),
	}
	if m.bannerErr != nil {
		lines = append(lines, "", errorStyle.Render(describeSessionError(m.bannerErr)))
	}

	return bannerStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m DashboardModel) renderSummaryCard(title string, s analysis.Summary) string {
	pace := "-"
	if s.DistanceMi > 0 && s.ElapsedSec > 0 {
		pace = m.units.FormatPaceWithUnit(s.ElapsedSec, s.DistanceMi)
	}

	lines := []string{
		RenderMetric("Runs", fmt.Sprintf("%d", s.Runs)),
		RenderMetric("Distance", m.units.FormatDistance(s.DistanceMi)),
		RenderMetric("Time", formatDuration(s.ElapsedSec)),
		RenderMetric("Avg Pace", pace),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(34).Render(lipgloss.JoinVertical(lipgloss.Left, cardTitleStyle.Render(title), content))
}

func (m DashboardModel) renderBests() string {
	title := cardTitleStyle.Render("Personal Bests")

	var lines []string
	if r := m.bests.Longest; r != nil {
		lines = append(lines, RenderMetric("Longest Run",
			fmt.Sprintf("%s  (%s)", m.units.FormatDistance(r.Distance), r.Date.Local().Format("Jan 02, 2006"))))
	}
	if r := m.bests.FastestPace; r != nil {
		secs, _ := analysis.RunSeconds(*r)
		lines = append(lines, RenderMetric("Fastest Pace",
			fmt.Sprintf("%s  (%s)", m.units.FormatPaceWithUnit(secs, r.Distance), r.Date.Local().Format("Jan 02, 2006"))))
	}
	for _, cat := range analysis.RaceOrder {
		r, ok := m.bests.Races[cat]
		if !ok {
			continue
		}
		lines = append(lines, RenderMetric(cat, fmt.Sprintf("%s  (%s)", r.Duration, r.Date.Local().Format("Jan 02, 2006"))))
	}
	if len(lines) == 0 {
		lines = append(lines, statusStyle.Render("Run at least a mile to set a best."))
	}

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, lines...)))
}

func (m DashboardModel) renderPredictions() string {
	title := cardTitleStyle.Render("Race Predictions")
	src := m.source

	lines := []string{
		statusStyle.Render(fmt.Sprintf("From your %s on %s (VDOT %.1f, %s)",
			analysis.RaceLabel(src.Category),
			src.Run.Date.Local().Format("Jan 02"),
			src.VDOT,
			analysis.VDOTLabel(src.VDOT))),
	}
	for _, p := range m.predicted {
		style := successStyle
		switch p.Confidence {
		case "medium":
			style = warningStyle
		case "low":
			style = errorStyle
		}
		value := fmt.Sprintf("%-8s %s  %s",
			session.FormatDuration(p.PredictedSeconds),
			m.units.FormatPaceWithUnit(p.PredictedSeconds, p.DistanceMi),
			style.Render(p.Confidence))
		lines = append(lines, RenderMetric(analysis.RaceLabel(p.Category), value))
	}

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, lines...)))
}

func (m DashboardModel) renderRecentRuns() string {
	title := cardTitleStyle.Render("Recent Runs")

	header := tableHeaderStyle.Render(fmt.Sprintf("%-16s  %10s  %8s  %10s",
		"When", "Distance", "Time", "Pace"))

	rows := []string{header}
	for _, r := range analysis.RecentRuns(m.history, 5) {
		secs, _ := analysis.RunSeconds(r)
		row := tableRowStyle.Render(fmt.Sprintf("%-16s  %10s  %8s  %10s",
			truncateName(humanize.Time(r.Date), 16),
			m.units.FormatDistance(r.Distance),
			r.Duration,
			m.units.FormatPace(secs, r.Distance),
		))
		rows = append(rows, row)
	}

	table := lipgloss.JoinVertical(lipgloss.Left, rows...)
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, table))
}

func formatDuration(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

func truncateName(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
