package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"stride/internal/config"
	"stride/internal/session"
	"stride/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeSession struct {
	mu       sync.Mutex
	calls    []string
	snap     session.Snapshot
	startErr error
	stopErr  error
	run      store.Run
	updates  chan session.Snapshot
}

func newFakeSession(state session.State) *fakeSession {
	return &fakeSession{
		snap:    session.Snapshot{State: state, Duration: "0:00", Pace: "0:00"},
		run:     store.Run{ID: "saved-run", Distance: 1, Duration: "10:00", Pace: "10:00", Date: time.Now()},
		updates: make(chan session.Snapshot, 1),
	}
}

func (f *fakeSession) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSession) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSession) Start(context.Context) error {
	f.record("start")
	return f.startErr
}

func (f *fakeSession) PauseOrResume(context.Context) error {
	f.record("toggle")
	return nil
}

func (f *fakeSession) Stop(context.Context) (store.Run, error) {
	f.record("stop")
	if f.stopErr != nil {
		return store.Run{}, f.stopErr
	}
	return f.run, nil
}

func (f *fakeSession) Cancel(context.Context) error {
	f.record("cancel")
	return nil
}

func (f *fakeSession) Resume(context.Context, *store.ActiveRunState) error {
	f.record("resume")
	return nil
}

func (f *fakeSession) Discard(context.Context) error {
	f.record("discard")
	return nil
}

func (f *fakeSession) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSession) Updates() <-chan session.Snapshot { return f.updates }

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func runModel(t *testing.T, state session.State) (ActiveRunModel, *fakeSession) {
	t.Helper()
	sess := newFakeSession(state)
	m := NewActiveRunModel(sess, NewUnits(config.DisplayConfig{DistanceUnit: "mi", PaceUnit: "min/mi"}))
	next, _ := m.Update(snapshotMsg(sess.snap))
	return next.(ActiveRunModel), sess
}

func press(t *testing.T, m ActiveRunModel, k string) (ActiveRunModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(key(k))
	return next.(ActiveRunModel), cmd
}

func TestActiveRunStartWhenIdle(t *testing.T) {
	m, sess := runModel(t, session.Idle)

	m, cmd := press(t, m, "enter")
	if cmd == nil {
		t.Fatal("Expected a start command")
	}
	if !m.busy {
		t.Error("Expected model to be busy while starting")
	}

	msg := cmd()
	if _, ok := msg.(sessionResultMsg); !ok {
		t.Fatalf("Expected sessionResultMsg, got %T", msg)
	}
	if got := sess.Calls(); len(got) != 1 || got[0] != "start" {
		t.Errorf("calls = %v, want [start]", got)
	}
}

func TestActiveRunStartPermissionDenied(t *testing.T) {
	m, sess := runModel(t, session.Idle)
	sess.startErr = fmt.Errorf("starting run: %w", session.ErrPermissionDenied)

	m, cmd := press(t, m, "enter")
	next, _ := m.Update(cmd())
	m = next.(ActiveRunModel)

	if m.busy {
		t.Error("Expected busy to clear after the result")
	}
	if !strings.Contains(m.View(), "permission denied") {
		t.Errorf("View should prompt about permission, got:\n%s", m.View())
	}
}

func TestActiveRunIgnoresRunKeysWhenIdle(t *testing.T) {
	m, sess := runModel(t, session.Idle)

	for _, k := range []string{" ", "s", "x"} {
		var cmd tea.Cmd
		m, cmd = press(t, m, k)
		if cmd != nil {
			t.Errorf("key %q should do nothing while idle", k)
		}
	}
	if m.confirming() {
		t.Error("No confirmation expected while idle")
	}
	if len(sess.Calls()) != 0 {
		t.Errorf("calls = %v, want none", sess.Calls())
	}
}

func TestActiveRunToggle(t *testing.T) {
	m, sess := runModel(t, session.Running)

	_, cmd := press(t, m, " ")
	if cmd == nil {
		t.Fatal("Expected a toggle command")
	}
	cmd()
	if got := sess.Calls(); len(got) != 1 || got[0] != "toggle" {
		t.Errorf("calls = %v, want [toggle]", got)
	}
}

func TestActiveRunStopNeedsConfirmation(t *testing.T) {
	m, sess := runModel(t, session.Paused)

	m, cmd := press(t, m, "s")
	if cmd != nil || m.confirm != confirmStop {
		t.Fatalf("Expected stop confirmation, confirm=%v", m.confirm)
	}
	if !strings.Contains(m.View(), "Finish and save") {
		t.Error("View should ask to confirm the stop")
	}

	// Anything but y/enter backs out
	m, cmd = press(t, m, "n")
	if cmd != nil || m.confirming() {
		t.Error("Expected confirmation to be dismissed")
	}
	if len(sess.Calls()) != 0 {
		t.Errorf("calls = %v, want none", sess.Calls())
	}

	m, _ = press(t, m, "s")
	_, cmd = press(t, m, "y")
	if cmd == nil {
		t.Fatal("Expected a stop command")
	}
	saved, ok := cmd().(RunSavedMsg)
	if !ok {
		t.Fatal("Expected RunSavedMsg")
	}
	if saved.Run.ID != "saved-run" {
		t.Errorf("saved run = %q, want saved-run", saved.Run.ID)
	}
}

func TestActiveRunStopFailureKeepsSession(t *testing.T) {
	m, sess := runModel(t, session.Running)
	sess.stopErr = errors.New("disk full")

	m, _ = press(t, m, "s")
	m, cmd := press(t, m, "enter")
	next, _ := m.Update(cmd())
	m = next.(ActiveRunModel)

	if !strings.Contains(m.View(), "disk full") {
		t.Errorf("View should show the stop error, got:\n%s", m.View())
	}
}

func TestActiveRunCancel(t *testing.T) {
	m, sess := runModel(t, session.Running)

	m, _ = press(t, m, "x")
	if m.confirm != confirmCancel {
		t.Fatalf("confirm = %v, want cancel", m.confirm)
	}
	_, cmd := press(t, m, "y")
	cmd()
	if got := sess.Calls(); len(got) != 1 || got[0] != "cancel" {
		t.Errorf("calls = %v, want [cancel]", got)
	}
}

func TestDescribeSessionError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("x: %w", session.ErrPermissionDenied), "permission denied"},
		{session.ErrLocationUnavailable, "No location source"},
		{session.ErrSessionActive, "already in progress"},
		{session.ErrNoActiveRun, "No run in progress"},
		{errors.New("boom"), "Error: boom"},
	}

	for _, tt := range tests {
		if got := describeSessionError(tt.err); !strings.Contains(got, tt.want) {
			t.Errorf("describeSessionError(%v) = %q, want it to contain %q", tt.err, got, tt.want)
		}
	}
}

func TestAppQuitBlockedDuringRun(t *testing.T) {
	sess := newFakeSession(session.Running)
	app := NewApp(sess, &fakeRuns{}, config.DefaultConfig().Display, t.TempDir(), nil)
	app.Update(snapshotMsg(sess.snap))

	_, cmd := app.Update(key("q"))
	if cmd != nil {
		t.Error("q should not quit while a run is active")
	}
	if !strings.Contains(app.View(), "Stop (s) or cancel (x)") {
		t.Error("Expected a hint about finishing the run")
	}

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should always quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg from ctrl+c")
	}
}

func TestAppQuitWhenIdle(t *testing.T) {
	sess := newFakeSession(session.Idle)
	app := NewApp(sess, &fakeRuns{}, config.DefaultConfig().Display, t.TempDir(), nil)

	_, cmd := app.Update(key("q"))
	if cmd == nil {
		t.Fatal("q should quit while idle")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
}

func TestAppRunSavedOpensDetail(t *testing.T) {
	sess := newFakeSession(session.Running)
	runs := &fakeRuns{runs: []store.Run{sess.run}}
	app := NewApp(sess, runs, config.DefaultConfig().Display, t.TempDir(), nil)

	_, cmd := app.Update(RunSavedMsg{Run: sess.run})
	if app.screen != ScreenRunDetail {
		t.Fatalf("screen = %v, want run detail", app.screen)
	}
	if app.activeRun.active() {
		t.Error("Run screen should be idle after saving")
	}
	msg, ok := cmd().(runDetailLoadedMsg)
	if !ok || msg.err != nil || msg.run.ID != "saved-run" {
		t.Errorf("detail load = %+v", msg)
	}
}
