package tui

import (
	"context"
	"fmt"
	"time"

	"stride/internal/analysis"
	"stride/internal/geo"
	"stride/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"
)

const (
	chartDays         = 30
	historyMapWidth   = 400
	historyMapHeight  = 200
	historyNameLength = 18
)

// HistoryModel is the run history screen model
type HistoryModel struct {
	runs     Runs
	units    Units
	list     []store.Run
	cursor   int
	offset   int
	pageSize int
	loading  bool
	err      error
	now      func() time.Time
}

// NewHistoryModel creates a new history model
func NewHistoryModel(runs Runs, units Units) HistoryModel {
	return HistoryModel{
		runs:     runs,
		units:    units,
		pageSize: 12,
		loading:  true,
		now:      time.Now,
	}
}

// Init initializes the history screen
func (m HistoryModel) Init() tea.Cmd {
	return m.load
}

type historyLoadedMsg struct {
	runs []store.Run
	err  error
}

func (m HistoryModel) load() tea.Msg {
	runs, err := m.runs.All(context.Background())
	if err != nil {
		return historyLoadedMsg{err: err}
	}
	return historyLoadedMsg{runs: analysis.RecentRuns(runs, -1)}
}

// page returns the runs on the current page
func (m HistoryModel) page() []store.Run {
	if m.offset >= len(m.list) {
		return nil
	}
	end := m.offset + m.pageSize
	if end > len(m.list) {
		end = len(m.list)
	}
	return m.list[m.offset:end]
}

func (m HistoryModel) selected() (store.Run, bool) {
	i := m.offset + m.cursor
	if i < 0 || i >= len(m.list) {
		return store.Run{}, false
	}
	return m.list[i], true
}

// Update handles messages
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.list = msg.runs
		if m.offset+m.cursor >= len(m.list) {
			m.offset, m.cursor = 0, 0
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			} else if m.offset > 0 {
				// Go to previous page
				m.offset -= m.pageSize
				m.cursor = m.pageSize - 1
			}
		case "down", "j":
			if m.cursor < len(m.page())-1 {
				m.cursor++
			} else if m.offset+m.pageSize < len(m.list) {
				// Go to next page
				m.offset += m.pageSize
				m.cursor = 0
			}
		case "pgup":
			if m.offset > 0 {
				m.offset -= m.pageSize
				if m.offset < 0 {
					m.offset = 0
				}
				m.cursor = 0
			}
		case "pgdown":
			if m.offset+m.pageSize < len(m.list) {
				m.offset += m.pageSize
				m.cursor = 0
			}
		case "r":
			m.loading = true
			return m, m.load
		case "enter":
			if r, ok := m.selected(); ok {
				return m, func() tea.Msg {
					return OpenRunDetailMsg{RunID: r.ID}
				}
			}
		}
	}
	return m, nil
}

// View renders the history list
func (m HistoryModel) View() string {
	if m.loading {
		return "\n  Loading runs..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if len(m.list) == 0 {
		return "\n  No runs yet. Press '2' then Enter to start one."
	}

	var sections []string

	sections = append(sections, m.renderChart())

	// Title with pagination info
	page := m.page()
	title := cardTitleStyle.Render(fmt.Sprintf("Runs (%d-%d of %d)", m.offset+1, m.offset+len(page), len(m.list)))
	sections = append(sections, title)

	header := tableHeaderStyle.Render(fmt.Sprintf("   %-18s  %-12s  %10s  %8s  %10s",
		"When", "Date", "Distance", "Time", "Pace"))
	sections = append(sections, header)

	for i, r := range page {
		secs, _ := analysis.RunSeconds(r)

		// Cursor indicator
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		row := fmt.Sprintf("%s%-18s  %-12s  %10s  %8s  %10s",
			cursor,
			truncateName(humanize.Time(r.Date), historyNameLength),
			r.Date.Local().Format("Jan 02 15:04"),
			m.units.FormatDistance(r.Distance),
			r.Duration,
			m.units.FormatPace(secs, r.Distance),
		)

		if i == m.cursor {
			sections = append(sections, tableSelectedStyle.Render(row))
		} else {
			sections = append(sections, tableRowStyle.Render(row))
		}
	}

	if r, ok := m.selected(); ok && len(r.Path) > 0 {
		url := geo.StaticMapURL(r.Path, geo.ListMapPoints, historyMapWidth, historyMapHeight)
		sections = append(sections, "", statusStyle.Render("  Map: ")+urlStyle.Render(url))
	}

	// Help
	help := statusStyle.Render("\n  enter: view details  j/k: navigate  pgup/pgdn: page  r: refresh")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m HistoryModel) renderChart() string {
	days := analysis.DailyDistance(m.list, chartDays, m.now())
	data := make([]float64, len(days))
	for i, d := range days {
		data[i] = d.DistanceMi
	}
	data = m.units.ConvertDistanceData(data)

	title := cardTitleStyle.Render(fmt.Sprintf("Daily Distance, Last %d Days (%s)", chartDays, m.units.DistanceLabel()))
	graph := asciigraph.Plot(data,
		asciigraph.Height(6),
		asciigraph.Width(60),
		asciigraph.Precision(1),
	)

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, graph))
}
