package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stride/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type confirmAction int

const (
	confirmNone confirmAction = iota
	confirmStop
	confirmCancel
)

// ActiveRunModel is the live run screen model
type ActiveRunModel struct {
	session Session
	units   Units
	snap    session.Snapshot
	confirm confirmAction
	busy    bool
	err     error
}

// NewActiveRunModel creates a new active run model
func NewActiveRunModel(sess Session, units Units) ActiveRunModel {
	return ActiveRunModel{
		session: sess,
		units:   units,
		snap:    session.Snapshot{State: session.Idle, Duration: "0:00", Pace: "0:00"},
	}
}

// Init initializes the run screen
func (m ActiveRunModel) Init() tea.Cmd {
	return m.refresh
}

// snapshotRefreshMsg is a snapshot read on demand rather than pushed
type snapshotRefreshMsg session.Snapshot

func (m ActiveRunModel) refresh() tea.Msg {
	return snapshotRefreshMsg(m.session.Snapshot())
}

// sessionResultMsg reports the outcome of a controller call
type sessionResultMsg struct {
	err error
}

func (m ActiveRunModel) active() bool {
	return m.snap.State == session.Running || m.snap.State == session.Paused
}

func (m ActiveRunModel) confirming() bool {
	return m.confirm != confirmNone
}

// Update handles messages
func (m ActiveRunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = session.Snapshot(msg)

	case snapshotRefreshMsg:
		m.snap = session.Snapshot(msg)

	case sessionResultMsg:
		m.busy = false
		m.err = msg.err
		return m, m.refresh

	case RunSavedMsg:
		m.busy = false
		m.err = nil
		m.snap = session.Snapshot{State: session.Idle, Duration: "0:00", Pace: "0:00"}

	case StartRunMsg:
		if m.active() || m.busy {
			return m, nil
		}
		m.busy = true
		m.err = nil
		return m, m.start

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		if m.confirming() {
			action := m.confirm
			m.confirm = confirmNone
			switch msg.String() {
			case "y", "enter":
				m.busy = true
				if action == confirmStop {
					return m, m.stop
				}
				return m, m.cancel
			}
			return m, nil
		}

		switch msg.String() {
		case "enter":
			if m.snap.State == session.Idle {
				m.busy = true
				m.err = nil
				return m, m.start
			}
		case " ", "p":
			if m.active() {
				m.busy = true
				return m, m.toggle
			}
		case "s":
			if m.active() {
				m.confirm = confirmStop
			}
		case "x":
			if m.active() {
				m.confirm = confirmCancel
			}
		}
	}
	return m, nil
}

func (m ActiveRunModel) start() tea.Msg {
	return sessionResultMsg{err: m.session.Start(context.Background())}
}

func (m ActiveRunModel) toggle() tea.Msg {
	return sessionResultMsg{err: m.session.PauseOrResume(context.Background())}
}

func (m ActiveRunModel) stop() tea.Msg {
	run, err := m.session.Stop(context.Background())
	if err != nil {
		return sessionResultMsg{err: err}
	}
	return RunSavedMsg{Run: run}
}

func (m ActiveRunModel) cancel() tea.Msg {
	return sessionResultMsg{err: m.session.Cancel(context.Background())}
}

// describeSessionError turns a controller error into a user prompt
func describeSessionError(err error) string {
	switch {
	case errors.Is(err, session.ErrPermissionDenied):
		return "Location permission denied. Check access to the GPS device and try again."
	case errors.Is(err, session.ErrLocationUnavailable):
		return "No location source available. Connect a GPS receiver or set location.gpx_file."
	case errors.Is(err, session.ErrSessionActive):
		return "A run is already in progress."
	case errors.Is(err, session.ErrNoActiveRun):
		return "No run in progress."
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}

// badge is the run state shown in the header on every screen
func (m ActiveRunModel) badge() string {
	switch m.snap.State {
	case session.Running:
		return runningBadgeStyle.Render(fmt.Sprintf("RUNNING %s", m.snap.Duration))
	case session.Paused:
		return pausedBadgeStyle.Render(fmt.Sprintf("PAUSED %s", m.snap.Duration))
	}
	return ""
}

// View renders the run screen
func (m ActiveRunModel) View() string {
	var sections []string

	title := cardTitleStyle.Render("Current Run")
	sections = append(sections, title)

	switch m.snap.State {
	case session.Idle:
		sections = append(sections, "\n  No run in progress.")
		sections = append(sections, "\n"+statusStyle.Render("  Press Enter to start a run"))
	case session.Finalizing:
		sections = append(sections, "\n  Saving run...")
	default:
		sections = append(sections, m.renderStats())
		sections = append(sections, m.renderPrompt())
	}

	if m.err != nil {
		sections = append(sections, errorStyle.Render("\n  "+describeSessionError(m.err)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m ActiveRunModel) renderStats() string {
	distance := bigValueStyle.Render(m.units.FormatDistanceValue(m.snap.DistanceMi))
	label := metricLabelStyle.Render(m.units.DistanceLabelLong())

	lines := []string{
		lipgloss.JoinHorizontal(lipgloss.Bottom, distance, " ", label),
		"",
		RenderMetric("Time", m.snap.Duration),
		RenderMetric("Pace", m.units.FormatPaceWithUnit(m.snap.ElapsedSec, m.snap.DistanceMi)),
		RenderMetric("Points", fmt.Sprintf("%d", m.snap.PathLen)),
	}
	if m.snap.Last != nil {
		lines = append(lines, RenderMetric("Position", fmt.Sprintf("%.5f, %.5f", m.snap.Last.Lat, m.snap.Last.Lng)))
	}
	if !m.snap.StartedAt.IsZero() {
		lines = append(lines, RenderMetric("Started", m.snap.StartedAt.Local().Format("3:04 PM")))
	}

	return cardStyle.Width(44).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m ActiveRunModel) renderPrompt() string {
	switch m.confirm {
	case confirmStop:
		return warningStyle.Render("\n  Finish and save this run? (y/n)")
	case confirmCancel:
		return warningStyle.Render("\n  Discard this run without saving? (y/n)")
	}

	var keys []string
	if m.snap.State == session.Paused {
		keys = append(keys, RenderKeyHelp("space", "resume"))
	} else {
		keys = append(keys, RenderKeyHelp("space", "pause"))
	}
	keys = append(keys, RenderKeyHelp("s", "stop & save"), RenderKeyHelp("x", "cancel"))
	return "\n  " + strings.Join(keys, "   ")
}
