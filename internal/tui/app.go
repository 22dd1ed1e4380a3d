package tui

import (
	"context"

	"stride/internal/config"
	"stride/internal/session"
	"stride/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Session is the run controller as driven by the UI
type Session interface {
	Start(ctx context.Context) error
	PauseOrResume(ctx context.Context) error
	Stop(ctx context.Context) (store.Run, error)
	Cancel(ctx context.Context) error
	Resume(ctx context.Context, st *store.ActiveRunState) error
	Discard(ctx context.Context) error
	Snapshot() session.Snapshot
	Updates() <-chan session.Snapshot
}

// Runs is read access to the completed run history
type Runs interface {
	All(ctx context.Context) ([]store.Run, error)
	Get(ctx context.Context, id string) (store.Run, error)
}

// Screen identifiers
type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenRun
	ScreenHistory
	ScreenRunDetail
	ScreenHelp
)

// App is the root Bubble Tea model
type App struct {
	screen     Screen
	prevScreen Screen

	// Screen models
	dashboard DashboardModel
	activeRun ActiveRunModel
	history   HistoryModel
	runDetail RunDetailModel
	help      HelpModel

	// Services
	session   Session
	runs      Runs
	units     Units
	exportDir string

	// Window dimensions
	width  int
	height int

	// Status message
	status string
}

// NewApp creates a new App with all dependencies. recovered is a session
// found on launch that the user may resume or discard, or nil.
func NewApp(sess Session, runs Runs, display config.DisplayConfig, exportDir string, recovered *store.ActiveRunState) *App {
	units := NewUnits(display)
	return &App{
		screen:    ScreenDashboard,
		session:   sess,
		runs:      runs,
		units:     units,
		exportDir: exportDir,
		dashboard: NewDashboardModel(runs, sess, units, recovered),
		activeRun: NewActiveRunModel(sess, units),
		history:   NewHistoryModel(runs, units),
		help:      NewHelpModel(),
	}
}

// Init initializes the app
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.dashboard.Init(), listenForUpdates(a.session.Updates()))
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		// Global keybindings (unless a confirmation is pending)
		if !a.activeRun.confirming() {
			switch msg.String() {
			case "q":
				if a.activeRun.active() {
					a.status = "Stop (s) or cancel (x) the run first. ctrl+c quits and keeps it for later."
					return a, nil
				}
				return a, tea.Quit
			case "1":
				a.screen = ScreenDashboard
				a.dashboard = a.dashboard.reload()
				return a, a.dashboard.Init()
			case "2":
				a.screen = ScreenRun
				return a, a.activeRun.Init()
			case "3":
				a.screen = ScreenHistory
				return a, a.history.Init()
			case "?":
				if a.screen != ScreenHelp {
					a.prevScreen = a.screen
				}
				a.screen = ScreenHelp
				return a, nil
			case "esc":
				switch a.screen {
				case ScreenHelp:
					a.screen = a.prevScreen
					return a, nil
				case ScreenRunDetail:
					a.screen = ScreenHistory
					return a, a.history.Init()
				}
			}
		}
		a.status = ""

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.screen == ScreenRunDetail {
			var m tea.Model
			m, cmd := a.runDetail.Update(msg)
			a.runDetail = m.(RunDetailModel)
			return a, cmd
		}
		return a, nil

	case snapshotMsg:
		var m tea.Model
		m, _ = a.activeRun.Update(msg)
		a.activeRun = m.(ActiveRunModel)
		return a, listenForUpdates(a.session.Updates())

	case sessionResultMsg, snapshotRefreshMsg:
		var m tea.Model
		m, cmd := a.activeRun.Update(msg)
		a.activeRun = m.(ActiveRunModel)
		return a, cmd

	case StartRunMsg:
		a.screen = ScreenRun
		var m tea.Model
		m, cmd := a.activeRun.Update(msg)
		a.activeRun = m.(ActiveRunModel)
		return a, cmd

	case recoveryDoneMsg:
		var m tea.Model
		m, cmd := a.dashboard.Update(msg)
		a.dashboard = m.(DashboardModel)
		if msg.err == nil && msg.resumed {
			a.screen = ScreenRun
		}
		return a, cmd

	case RunSavedMsg:
		var m tea.Model
		m, _ = a.activeRun.Update(msg)
		a.activeRun = m.(ActiveRunModel)
		a.status = "Run saved"
		return a, a.openRunDetail(msg.Run.ID)

	case OpenRunDetailMsg:
		return a, a.openRunDetail(msg.RunID)
	}

	// Delegate to current screen
	var cmd tea.Cmd
	switch a.screen {
	case ScreenDashboard:
		var m tea.Model
		m, cmd = a.dashboard.Update(msg)
		a.dashboard = m.(DashboardModel)
	case ScreenRun:
		var m tea.Model
		m, cmd = a.activeRun.Update(msg)
		a.activeRun = m.(ActiveRunModel)
	case ScreenHistory:
		var m tea.Model
		m, cmd = a.history.Update(msg)
		a.history = m.(HistoryModel)
	case ScreenRunDetail:
		var m tea.Model
		m, cmd = a.runDetail.Update(msg)
		a.runDetail = m.(RunDetailModel)
	case ScreenHelp:
		var m tea.Model
		m, cmd = a.help.Update(msg)
		a.help = m.(HelpModel)
	}

	return a, cmd
}

func (a *App) openRunDetail(id string) tea.Cmd {
	a.screen = ScreenRunDetail
	a.runDetail = NewRunDetailModel(a.runs, a.units, a.exportDir, id, a.width, a.height)
	return a.runDetail.Init()
}

// View renders the app
func (a *App) View() string {
	header := a.renderHeader()
	nav := a.renderNav()

	var content string
	switch a.screen {
	case ScreenDashboard:
		content = a.dashboard.View()
	case ScreenRun:
		content = a.activeRun.View()
	case ScreenHistory:
		content = a.history.View()
	case ScreenRunDetail:
		content = a.runDetail.View()
	case ScreenHelp:
		content = a.help.View()
	}

	footer := a.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, nav, content, footer)
}

func (a *App) renderHeader() string {
	title := headerStyle.Render("Stride")
	if badge := a.activeRun.badge(); badge != "" {
		return lipgloss.JoinHorizontal(lipgloss.Top, title, " ", badge)
	}
	return title
}

func (a *App) renderNav() string {
	items := []struct {
		key    string
		label  string
		screen Screen
	}{
		{"1", "Dashboard", ScreenDashboard},
		{"2", "Run", ScreenRun},
		{"3", "History", ScreenHistory},
		{"?", "Help", ScreenHelp},
	}

	var nav string
	for i, item := range items {
		if i > 0 {
			nav += "  "
		}

		label := "[" + item.key + "] " + item.label
		active := a.screen == item.screen || (item.screen == ScreenHistory && a.screen == ScreenRunDetail)
		if active {
			nav += navActiveStyle.Render(label)
		} else {
			nav += navInactiveStyle.Render(label)
		}
	}

	nav += "  " + navInactiveStyle.Render("[q] Quit")

	return navStyle.Render(nav)
}

func (a *App) renderFooter() string {
	if a.status != "" {
		return statusStyle.Render(a.status)
	}
	return ""
}

// snapshotMsg carries a session update from the controller
type snapshotMsg session.Snapshot

func listenForUpdates(ch <-chan session.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg(snap)
	}
}

// StartRunMsg asks the run screen to begin a new session
type StartRunMsg struct{}

// RunSavedMsg is sent when a stopped run has been written to history
type RunSavedMsg struct {
	Run store.Run
}

// OpenRunDetailMsg opens the detail screen for a run
type OpenRunDetailMsg struct {
	RunID string
}
