package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/daviddao/tlview/internal/datasource"
	"github.com/daviddao/tlview/internal/snapshot"
	"github.com/daviddao/tlview/internal/termview"
	"github.com/daviddao/tlview/pkg/gesture"
	"github.com/daviddao/tlview/pkg/model"
	"github.com/daviddao/tlview/pkg/render"
	"github.com/daviddao/tlview/pkg/scene"
	"github.com/daviddao/tlview/pkg/timeline"
)

const (
	// sidebarCols is the width of the band label column.
	sidebarCols = 16
	// paneRows is the height of the detail pane under the timeline.
	paneRows = 6
	// chromeRows covers the title bar, the detail pane and the status bar.
	chromeRows    = 2 + paneRows
	minCanvasRows = 3
)

// --- Messages ---

type sourceChangedMsg struct{}

type snapshotReadyMsg struct {
	snap *snapshot.DataSnapshot
	err  error
}

type tickMsg struct{}

// deferredMsg carries a scheduled timeline callback back onto the UI
// goroutine.
type deferredMsg struct {
	call *deferredCall
}

type deferredCall struct {
	f        func()
	canceled bool
	timer    *time.Timer
}

// teaScheduler runs timeline callbacks through Program.Send so they
// execute inside Update.
type teaScheduler struct {
	send func(tea.Msg)
}

func (s *teaScheduler) AfterFunc(d time.Duration, f func()) func() {
	c := &deferredCall{f: f}
	c.timer = time.AfterFunc(d, func() {
		if s.send != nil {
			s.send(deferredMsg{call: c})
		}
	})
	return func() {
		c.canceled = true
		c.timer.Stop()
	}
}

// --- Key bindings ---

type keyMap struct {
	Quit    key.Binding
	Back    key.Binding
	Forward key.Binding
	ZoomIn  key.Binding
	ZoomOut key.Binding
	Reveal  key.Binding
	Now     key.Binding
	Esc     key.Binding
	Refresh key.Binding
	Help    key.Binding
}

var keys = keyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Back:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("h/left", "earlier")),
	Forward: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("l/right", "later")),
	ZoomIn:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
	ZoomOut: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "zoom out")),
	Reveal:  key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "go to date")),
	Now:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "now")),
	Esc:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Back, k.Forward, k.ZoomIn, k.ZoomOut, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Back, k.Forward, k.ZoomIn, k.ZoomOut},
		{k.Reveal, k.Now, k.Esc, k.Refresh},
		{k.Help, k.Quit},
	}
}

// --- Model ---

// tlState is written by timeline listeners. It sits behind a pointer so
// the copies bubbletea makes of uiModel share it.
type tlState struct {
	selected     *model.Entry
	selectedBand string
	hoverDate    time.Time
	status       string
}

type modelConfig struct {
	zoom      int
	center    time.Time
	scheduler gesture.Scheduler
	log       *slog.Logger
	observer  timeline.Observer
	clock     func() time.Time
}

type uiModel struct {
	sources []datasource.Source
	watcher *datasource.Watcher
	snap    *snapshot.DataSnapshot
	tl      *timeline.Timeline
	canvas  *termview.Canvas
	st      *tlState
	log     *slog.Logger
	clock   func() time.Time

	width  int
	height int

	help      help.Model
	showHelp  bool
	prompt    textinput.Model
	prompting bool

	lastRefresh time.Time
}

func newModel(sources []datasource.Source, w *datasource.Watcher, snap *snapshot.DataSnapshot, cfg modelConfig) (uiModel, error) {
	if cfg.clock == nil {
		cfg.clock = time.Now
	}
	if cfg.log == nil {
		cfg.log = slog.New(slog.DiscardHandler)
	}
	canvas := termview.New(80, minCanvasRows, 0, 0)
	pw, _ := canvas.PixelSize()
	tl, err := timeline.New(timeline.Options{
		Width:        pw,
		SidebarWidth: sidebarCols * canvas.CellW,
		Zoom:         cfg.zoom,
		Center:       cfg.center,
		Wallclock:    true,
		Tracker:      true,
		Measurer:     scene.CellMeasurer{CellWidth: canvas.CellW},
		Scheduler:    cfg.scheduler,
		Logger:       cfg.log,
		Observer:     cfg.observer,
		Clock:        cfg.clock,
	})
	if err != nil {
		return uiModel{}, err
	}

	st := &tlState{}
	listen := func(kind render.EventKind, fn timeline.Listener) {
		// Kinds come from render.EventKinds, so On cannot fail.
		_ = tl.On(kind, fn)
	}
	listen(render.EventClick, func(e render.Event) {
		st.selected = e.Entry
		st.selectedBand = e.Band
	})
	listen(render.EventViewportHover, func(e render.Event) {
		st.hoverDate = e.Date
	})
	listen(render.EventChanged, func(e render.Event) {
		if e.Entry != nil {
			st.status = fmt.Sprintf("moved %s to %s", entryName(*e.Entry), e.Entry.Start.Format(time.DateTime))
		}
	})
	listen(render.EventRangeSelectionChanged, func(e render.Event) {
		if e.Start.IsZero() {
			st.status = "selection cleared"
			return
		}
		st.status = fmt.Sprintf("selected %s (%s)", e.Start.Format(time.DateTime), e.Stop.Sub(e.Start).Truncate(time.Second))
	})
	listen(render.EventSidebarClick, func(e render.Event) {
		st.status = "band " + e.Band
	})

	if err := tl.SetData(snap.Bands); err != nil {
		return uiModel{}, fmt.Errorf("render: %w", err)
	}

	ti := textinput.New()
	ti.Prompt = "go to: "
	ti.Placeholder = "2024-05-01, RFC 3339 or now"
	ti.CharLimit = 40

	m := uiModel{
		sources:     sources,
		watcher:     w,
		snap:        snap,
		tl:          tl,
		canvas:      canvas,
		st:          st,
		log:         cfg.log,
		clock:       cfg.clock,
		help:        help.New(),
		prompt:      ti,
		lastRefresh: cfg.clock(),
	}
	m.repaint()
	return m, nil
}

func (m uiModel) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.prompting {
			return m.updatePrompt(msg)
		}
		return m.updateKeys(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.prompt.Width = max(msg.Width-len(m.prompt.Prompt)-2, 10)
		m.canvas = termview.New(msg.Width, max(msg.Height-chromeRows, minCanvasRows), 0, 0)
		pw, ph := m.canvas.PixelSize()
		m.check(m.tl.Resize(pw, ph))
		m.repaint()

	case deferredMsg:
		if !msg.call.canceled {
			msg.call.f()
			m.repaint()
		}

	case sourceChangedMsg:
		return m, m.refreshSnapshot()

	case snapshotReadyMsg:
		if msg.err != nil {
			m.log.Warn("reload failed", "error", msg.err)
			m.st.status = "reload failed: " + msg.err.Error()
			return m, nil
		}
		if err := m.tl.SetData(msg.snap.Bands); err != nil {
			m.log.Warn("new bands rejected", "error", err)
			m.st.status = "bands rejected: " + err.Error()
			return m, nil
		}
		m.snap = msg.snap
		m.lastRefresh = m.clock()
		m.repaint()

	case tickMsg:
		m.check(m.tl.SetWallclockTime(m.clock()))
		m.repaint()
		return m, tickEvery()
	}
	return m, nil
}

func (m uiModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		if m.watcher != nil {
			m.watcher.Close()
		}
		return m, tea.Quit
	case key.Matches(msg, keys.Back):
		m.check(m.tl.GoBackward(timeline.DefaultStep))
	case key.Matches(msg, keys.Forward):
		m.check(m.tl.GoForward(timeline.DefaultStep))
	case key.Matches(msg, keys.ZoomIn):
		m.check(m.tl.ZoomIn(nil))
	case key.Matches(msg, keys.ZoomOut):
		m.check(m.tl.ZoomOut(nil))
	case key.Matches(msg, keys.Now):
		m.check(m.tl.Reveal(m.clock()))
	case key.Matches(msg, keys.Reveal):
		m.prompting = true
		m.prompt.SetValue("")
		return m, m.prompt.Focus()
	case key.Matches(msg, keys.Esc):
		m.st.selected = nil
		m.st.status = ""
		m.check(m.tl.ClearSelection())
	case key.Matches(msg, keys.Refresh):
		return m, m.refreshSnapshot()
	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
	}
	m.repaint()
	return m, nil
}

func (m uiModel) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.prompting = false
		m.prompt.Blur()
		return m, nil
	case tea.KeyEnter:
		m.prompting = false
		m.prompt.Blur()
		at, err := parseDate(m.prompt.Value())
		if err != nil || at.IsZero() {
			m.st.status = fmt.Sprintf("cannot go to %q", m.prompt.Value())
			return m, nil
		}
		m.check(m.tl.Reveal(at))
		m.repaint()
		return m, nil
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

// handleMouse translates terminal mouse reports into gesture input. The
// terminal reports no click, so a release is followed by one; the gesture
// machine drops it after a drag.
func (m uiModel) handleMouse(msg tea.MouseMsg) {
	col, row := msg.X, msg.Y-1
	inside := row >= 0 && row < m.canvas.Rows() && col >= 0 && col < m.canvas.Cols()
	p := m.canvas.Point(col, row)

	var inputs []gesture.Input
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		inputs = append(inputs, gesture.Input{Kind: gesture.Wheel, Point: p, Delta: -1})
	case msg.Button == tea.MouseButtonWheelDown:
		inputs = append(inputs, gesture.Input{Kind: gesture.Wheel, Point: p, Delta: 1})
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if inside {
			inputs = append(inputs, gesture.Input{Kind: gesture.Down, Point: p})
		}
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonRight:
		if inside {
			inputs = append(inputs, gesture.Input{Kind: gesture.ContextMenu, Point: p})
		}
	case msg.Action == tea.MouseActionRelease:
		inputs = append(inputs, gesture.Input{Kind: gesture.Up, Point: p})
		if inside {
			inputs = append(inputs, gesture.Input{Kind: gesture.Click, Point: p})
		}
	case msg.Action == tea.MouseActionMotion:
		kind := gesture.Move
		if !inside {
			kind = gesture.Leave
		}
		inputs = append(inputs, gesture.Input{Kind: kind, Point: p})
	}
	for _, in := range inputs {
		m.check(m.tl.HandleInput(in))
	}
	m.repaint()
}

func (m uiModel) refreshSnapshot() tea.Cmd {
	sources := m.sources
	return func() tea.Msg {
		snap, err := snapshot.Build(context.Background(), sources)
		return snapshotReadyMsg{snap: snap, err: err}
	}
}

// check reports a failed render in the status bar. The timeline keeps the
// last good scene.
func (m uiModel) check(err error) {
	if err != nil {
		m.log.Warn("render failed", "error", err)
		m.st.status = "render failed: " + err.Error()
	}
}

func (m uiModel) repaint() {
	m.canvas.Paint(m.tl.Scene())
}

func entryName(e model.Entry) string {
	if e.Title != "" {
		return e.Title
	}
	if e.ID != "" {
		return e.ID
	}
	return "entry"
}
