// Package gesture turns raw pointer input into pans, grabs, clicks and
// hover transitions.
//
// A Machine is driven by the host's event loop and is not safe for
// concurrent use. Positions are scene coordinates; the Host resolves them
// through the same layer transforms the last render used.
package gesture

import (
	"time"

	"github.com/daviddao/tlview/pkg/render"
	"github.com/daviddao/tlview/pkg/scene"
)

const (
	// SnapThreshold is the pointer travel, in pixels, that turns a press
	// into a drag.
	SnapThreshold = 5.0
	// ReloadDelay defers the reload after a pan so the panned frame can be
	// painted first.
	ReloadDelay = 50 * time.Millisecond
)

// State is the gesture state.
type State int

const (
	Idle State = iota
	Armed
	Panning
	Grabbing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Panning:
		return "panning"
	case Grabbing:
		return "grabbing"
	}
	return "unknown"
}

// Kind is the kind of a pointer input.
type Kind int

const (
	Down Kind = iota
	Move
	Up
	Click
	ContextMenu
	Wheel
	Leave
)

// Input is one pointer event in scene coordinates.
type Input struct {
	Kind  Kind
	Point scene.Point
	// Delta is the wheel direction: negative zooms in.
	Delta float64
}

// Host is the engine side the machine drives.
type Host interface {
	// Target returns the innermost element under p registered for any of
	// types, with p in that element's layer coordinates.
	Target(p scene.Point, types ...render.ActionType) (id string, local scene.Point, ok bool)
	Dispatch(a render.Action) bool
	// Date returns the instant under p.
	Date(p scene.Point) time.Time
	Translation() scene.Point
	Pan(t scene.Point)
	// FinishPan runs the deferred reload after a pan.
	FinishPan()
	// Hover reports the pointer position; inside is false once it left.
	Hover(p scene.Point, inside bool)
	Zoom(in bool, anchor scene.Point)
	ClearSelection()
}

// Scheduler runs f after d. The returned func cancels a pending call.
// Implementations must call f on the goroutine driving the Machine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (cancel func())
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(d time.Duration, f func()) func()

func (s SchedulerFunc) AfterFunc(d time.Duration, f func()) func() { return s(d, f) }

// Options tune a Machine. Zero values select the package defaults.
type Options struct {
	Threshold   float64
	ReloadDelay time.Duration
	// OnTransition is called on every state change.
	OnTransition func(from, to State)
}

// Machine is the gesture state machine.
type Machine struct {
	host  Host
	sched Scheduler
	opts  Options

	state       State
	down        scene.Point
	translation scene.Point
	target      string
	origin      scene.Point

	skipNextClick bool
	busy          bool
	cancel        func()
	hovered       string
}

// New returns an idle machine.
func New(host Host, sched Scheduler, opts Options) *Machine {
	if opts.Threshold <= 0 {
		opts.Threshold = SnapThreshold
	}
	if opts.ReloadDelay <= 0 {
		opts.ReloadDelay = ReloadDelay
	}
	return &Machine{host: host, sched: sched, opts: opts}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Busy reports whether a deferred reload is pending.
func (m *Machine) Busy() bool { return m.busy }

// Hovered returns the id of the element the pointer is over.
func (m *Machine) Hovered() string { return m.hovered }

// Cursor returns the cursor the host should show, or "" for the default.
func (m *Machine) Cursor() string {
	switch {
	case m.busy:
		return "wait"
	case m.state == Panning || m.state == Grabbing:
		return "grabbing"
	}
	return ""
}

// Supersede cancels a pending reload. Zoom and reveal call it since they
// reload anyway.
func (m *Machine) Supersede() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.busy = false
}

func (m *Machine) setState(s State) {
	if s == m.state {
		return
	}
	from := m.state
	m.state = s
	if m.opts.OnTransition != nil {
		m.opts.OnTransition(from, s)
	}
}

// Handle feeds one input to the machine.
func (m *Machine) Handle(in Input) {
	p := in.Point
	if in.Kind == Move && m.state == Idle {
		m.hover(p)
		return
	}
	if in.Kind == Leave {
		m.leave(p)
		return
	}
	if m.busy {
		return
	}

	switch in.Kind {
	case Down:
		m.skipNextClick = false
		m.down = p
		m.translation = m.host.Translation()
		m.target, m.origin, _ = m.host.Target(p, render.ActionGrabStart)
		m.setState(Armed)

	case Move:
		switch m.state {
		case Armed:
			if p.Dist(m.down) < m.opts.Threshold {
				return
			}
			if m.target != "" {
				m.setState(Grabbing)
				m.host.Dispatch(m.action(render.ActionGrabStart, m.down))
				m.host.Dispatch(m.action(render.ActionGrabMove, p))
			} else {
				m.setState(Panning)
				m.pan(p)
			}
		case Panning:
			m.pan(p)
		case Grabbing:
			m.host.Dispatch(m.action(render.ActionGrabMove, p))
		}

	case Up:
		m.release(p)

	case Click:
		if m.skipNextClick {
			m.skipNextClick = false
			return
		}
		if id, local, ok := m.host.Target(p, render.ActionClick); ok {
			m.host.Dispatch(m.at(render.ActionClick, id, local, p))
		} else {
			m.host.ClearSelection()
		}

	case ContextMenu:
		if id, local, ok := m.host.Target(p, render.ActionContextMenu); ok {
			m.host.Dispatch(m.at(render.ActionContextMenu, id, local, p))
		}

	case Wheel:
		if in.Delta != 0 {
			m.host.Zoom(in.Delta < 0, p)
		}
	}
}

// release ends a drag. A press that never moved past the threshold ends
// quietly and the click that follows is a genuine one.
func (m *Machine) release(p scene.Point) {
	switch m.state {
	case Panning:
		m.pan(p)
		m.skipNextClick = true
		m.busy = true
		if m.cancel != nil {
			m.cancel()
		}
		m.cancel = m.sched.AfterFunc(m.opts.ReloadDelay, m.reload)
	case Grabbing:
		m.host.Dispatch(m.action(render.ActionGrabEnd, p))
		m.skipNextClick = true
	}
	m.target = ""
	m.setState(Idle)
}

func (m *Machine) reload() {
	m.cancel = nil
	m.busy = false
	m.host.FinishPan()
}

func (m *Machine) leave(p scene.Point) {
	if !m.busy && m.state != Idle {
		m.release(p)
	}
	if m.hovered != "" {
		m.host.Dispatch(m.at(render.ActionMouseLeave, m.hovered, scene.Point{}, p))
		m.hovered = ""
	}
	m.host.Hover(p, false)
}

func (m *Machine) pan(p scene.Point) {
	m.host.Pan(m.translation.Add(p.Sub(m.down)))
}

// hover emits enter and leave only when the element under the pointer
// changes; moves within an element go to mousemove targets.
func (m *Machine) hover(p scene.Point) {
	id, local, _ := m.host.Target(p, render.ActionMouseEnter, render.ActionMouseMove, render.ActionMouseLeave)
	if id != m.hovered {
		if m.hovered != "" {
			m.host.Dispatch(m.at(render.ActionMouseLeave, m.hovered, local, p))
		}
		m.hovered = id
		if id != "" {
			m.host.Dispatch(m.at(render.ActionMouseEnter, id, local, p))
		}
	} else if id != "" {
		m.host.Dispatch(m.at(render.ActionMouseMove, id, local, p))
	}
	m.host.Hover(p, true)
}

// action builds a grab action for the current target. The local point
// follows the pointer from the local point recorded on press.
func (m *Machine) action(typ render.ActionType, p scene.Point) render.Action {
	a := m.at(typ, m.target, m.origin.Add(p.Sub(m.down)), p)
	a.Origin = m.origin
	return a
}

func (m *Machine) at(typ render.ActionType, id string, local, screen scene.Point) render.Action {
	return render.Action{
		Type:   typ,
		Target: id,
		Point:  local,
		Screen: screen,
		Date:   m.host.Date(screen),
	}
}
