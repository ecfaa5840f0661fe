// Package timeline is the embeddable entry point. A Timeline owns a
// viewport, a band composer and a gesture machine, routes pointer input
// between them, and notifies listeners of viewport and entry events.
//
// A Timeline is not safe for concurrent use. Drive it from one goroutine,
// usually the host's UI loop. Hosts with their own timers supply a
// Scheduler that calls back on that goroutine; without one, deferred work
// runs from HandleInput and RunPending.
package timeline

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/daviddao/tlview/pkg/bands"
	"github.com/daviddao/tlview/pkg/gesture"
	"github.com/daviddao/tlview/pkg/model"
	"github.com/daviddao/tlview/pkg/render"
	"github.com/daviddao/tlview/pkg/scene"
	"github.com/daviddao/tlview/pkg/timeaxis"
	"github.com/daviddao/tlview/pkg/viewport"
)

// ErrUnknownEvent is returned by On for an event kind that is never fired.
var ErrUnknownEvent = errors.New("unknown event kind")

// DefaultStep is the fraction of the visible window GoForward and
// GoBackward move by.
const DefaultStep = 0.3

// Ids of the marker bands appended after the caller's bands.
const (
	SelectionBandID = "_selection"
	WallclockBandID = "_wallclock"
	TrackerBandID   = "_tracker"
)

// Listener receives notifications.
type Listener func(e render.Event)

// Observer is told about render passes and gestures. See
// internal/platform/metrics for a Prometheus implementation.
type Observer interface {
	ObservePass(d time.Duration, primitives int, err error)
	ObserveGesture(kind string)
}

// Options configure a Timeline. Only Width is required.
type Options struct {
	// Width is the total width, sidebar included.
	Width float64
	// Height fixes the scene height. Zero sizes it to the bands.
	Height float64
	// SidebarWidth defaults to viewport.DefaultSidebarWidth.
	SidebarWidth  float64
	HideSidebar   bool
	DivisionWidth float64
	// Zoom defaults to timeaxis.DefaultZoom. Out of range is an error.
	Zoom int
	// Center is the instant revealed first. Defaults to Clock().
	Center  time.Time
	PanMode viewport.PanMode
	// DOMReduction rasterizes non-interactive bands.
	DOMReduction bool
	// Wallclock adds a WallclockLocator; Tracker adds a LocationTracker.
	Wallclock bool
	Tracker   bool
	Theme     render.Theme

	Measurer scene.Measurer
	// Scheduler runs the post-pan reload. Nil queues it until the next
	// HandleInput or RunPending after the delay.
	Scheduler gesture.Scheduler
	// Registry defaults to bands.NewRegistry().
	Registry *render.Registry
	Logger   *slog.Logger
	Observer Observer
	Clock    func() time.Time
}

// Timeline is an interactive timeline.
type Timeline struct {
	opts     Options
	log      *slog.Logger
	vp       *viewport.Controller
	composer *render.Composer
	gestures *gesture.Machine
	host     *host
	queue    *queue

	listeners map[render.EventKind][]Listener
	specs     []model.BandSpec
	selection *timeaxis.Window
	wallclock time.Time
	hover     time.Time
	dirty     bool
}

// New returns a timeline without bands. Call SetData to add some.
func New(opts Options) (*Timeline, error) {
	if !finite(opts.Width) || opts.Width <= 0 {
		return nil, fmt.Errorf("timeline width %v must be positive", opts.Width)
	}
	if !finite(opts.Height) || opts.Height < 0 {
		return nil, fmt.Errorf("timeline height %v must not be negative", opts.Height)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Center.IsZero() {
		opts.Center = opts.Clock()
	}
	if opts.HideSidebar {
		opts.SidebarWidth = 0
	} else if opts.SidebarWidth <= 0 {
		opts.SidebarWidth = viewport.DefaultSidebarWidth
	}
	if opts.Theme == (render.Theme{}) {
		opts.Theme = render.DefaultTheme()
	}
	if opts.Registry == nil {
		opts.Registry = bands.NewRegistry()
	}
	var q *queue
	if opts.Scheduler == nil {
		q = &queue{now: opts.Clock}
		opts.Scheduler = q
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	vp, err := viewport.New(viewport.Config{
		Width:         opts.Width,
		SidebarWidth:  opts.SidebarWidth,
		DivisionWidth: opts.DivisionWidth,
		Zoom:          opts.Zoom,
		PanMode:       opts.PanMode,
	}, opts.Center)
	if err != nil {
		return nil, err
	}

	t := &Timeline{
		opts:      opts,
		queue:     q,
		log:       log,
		vp:        vp,
		listeners: make(map[render.EventKind][]Listener),
	}
	t.host = &host{t: t}
	t.composer = render.NewComposer(opts.Registry, vp, render.Options{
		Height:   opts.Height,
		Reduce:   opts.DOMReduction,
		Measurer: opts.Measurer,
		Logger:   log,
	})
	t.gestures = gesture.New(t.host, opts.Scheduler, gesture.Options{
		OnTransition: t.transition,
	})
	if err := t.composer.SetBands(t.markerBands(), t.host); err != nil {
		return nil, err
	}
	return t, nil
}

// On registers fn for kind.
func (t *Timeline) On(kind render.EventKind, fn Listener) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, kind)
	}
	t.listeners[kind] = append(t.listeners[kind], fn)
	return nil
}

func (t *Timeline) emit(e render.Event) {
	for _, fn := range t.listeners[e.Kind] {
		fn(e)
	}
}

func (t *Timeline) markerBands() []model.BandSpec {
	specs := []model.BandSpec{{Type: model.TypeHorizontalSelection, ID: SelectionBandID}}
	if t.opts.Wallclock {
		specs = append(specs, model.BandSpec{Type: model.TypeWallclockLocator, ID: WallclockBandID})
	}
	if t.opts.Tracker {
		specs = append(specs, model.BandSpec{Type: model.TypeLocationTracker, ID: TrackerBandID})
	}
	return specs
}

// SetData replaces the bands and renders. On error the previous bands and
// scene are kept.
func (t *Timeline) SetData(specs []model.BandSpec) error {
	all := append(append([]model.BandSpec(nil), specs...), t.markerBands()...)
	if err := t.composer.SetBands(all, t.host); err != nil {
		return err
	}
	t.specs = specs
	_, err := t.Render()
	return err
}

// Bands returns the specs last passed to SetData.
func (t *Timeline) Bands() []model.BandSpec { return t.specs }

// Render runs a render pass. On error the previous scene stays current.
func (t *Timeline) Render() (*scene.Scene, error) {
	t.dirty = false
	started := time.Now()
	sc, err := t.composer.Compose(render.Env{
		Now:       t.opts.Clock(),
		Wallclock: t.wallclock,
		Hover:     t.hover,
		Selection: t.selection,
		Theme:     t.opts.Theme,
	})
	n := 0
	if sc != nil {
		sc.Cursor = t.gestures.Cursor()
		n = sc.Count()
	}
	if t.opts.Observer != nil {
		t.opts.Observer.ObservePass(time.Since(started), n, err)
	}
	return sc, err
}

// Scene returns the last successfully rendered scene, or nil.
func (t *Timeline) Scene() *scene.Scene { return t.composer.Scene() }

func (t *Timeline) flush() error {
	if !t.dirty {
		return nil
	}
	_, err := t.Render()
	return err
}

// reloaded is called after the load window moved.
func (t *Timeline) reloaded() error {
	load := t.vp.Load()
	t.emit(render.Event{Kind: render.EventLoadRange, Start: load.Start, Stop: load.Stop})
	_, err := t.Render()
	vis := t.vp.Visible()
	t.emit(render.Event{Kind: render.EventViewportChanged, Start: vis.Start, Stop: vis.Stop})
	return err
}

// Reveal centres date and reloads.
func (t *Timeline) Reveal(date time.Time) error {
	t.gestures.Supersede()
	if _, err := t.vp.Reveal(date); err != nil {
		return err
	}
	return t.reloaded()
}

// Zoom returns the zoom level.
func (t *Timeline) Zoom() int { return t.vp.Zoom() }

// SetZoom changes the zoom level around the visible centre. Out of range
// levels are clamped.
func (t *Timeline) SetZoom(zoom int) error { return t.zoomTo(zoom, nil) }

// ZoomIn zooms one level in. A non-nil anchor is a viewport x whose instant
// stays put.
func (t *Timeline) ZoomIn(anchor *float64) error { return t.zoomTo(t.vp.Zoom()+1, anchor) }

// ZoomOut zooms one level out.
func (t *Timeline) ZoomOut(anchor *float64) error { return t.zoomTo(t.vp.Zoom()-1, anchor) }

func (t *Timeline) zoomTo(zoom int, anchor *float64) error {
	t.gestures.Supersede()
	t.vp.SetZoom(zoom, anchor)
	return t.reloaded()
}

// GoForward moves the visible window later by fraction of its width.
// A non-positive fraction selects DefaultStep.
func (t *Timeline) GoForward(fraction float64) error {
	if fraction <= 0 {
		fraction = DefaultStep
	}
	return t.step(fraction)
}

// GoBackward moves the visible window earlier.
func (t *Timeline) GoBackward(fraction float64) error {
	if fraction <= 0 {
		fraction = DefaultStep
	}
	return t.step(-fraction)
}

func (t *Timeline) step(fraction float64) error {
	d := timeaxis.Duration(t.vp.VisibleSeconds() * fraction)
	return t.Reveal(t.vp.VisibleCenter().Add(d))
}

// Visible returns the visible window.
func (t *Timeline) Visible() timeaxis.Window { return t.vp.Visible() }

// Load returns the load window.
func (t *Timeline) Load() timeaxis.Window { return t.vp.Load() }

// Viewport exposes the viewport for coordinate conversions.
func (t *Timeline) Viewport() *viewport.Controller { return t.vp }

// SetPanMode changes the axes a pan may move.
func (t *Timeline) SetPanMode(m viewport.PanMode) { t.vp.SetPanMode(m) }

// Resize changes the total width and, when height is positive, fixes the
// scene height.
func (t *Timeline) Resize(width, height float64) error {
	if !finite(width) || width <= 0 {
		return fmt.Errorf("timeline width %v must be positive", width)
	}
	if !finite(height) {
		return fmt.Errorf("timeline height %v is not a number", height)
	}
	t.gestures.Supersede()
	t.composer.SetHeight(height)
	t.vp.Resize(width)
	return t.reloaded()
}

// SelectRange selects [start, stop] and renders.
func (t *Timeline) SelectRange(start, stop time.Time) error {
	t.selectRange(start, stop)
	return t.flush()
}

func (t *Timeline) selectRange(start, stop time.Time) {
	t.selection = &timeaxis.Window{Start: start, Stop: stop}
	t.emit(render.Event{Kind: render.EventRangeSelectionChanged, Start: start, Stop: stop})
	t.dirty = true
}

// ClearSelection removes the range selection, if any, and renders.
func (t *Timeline) ClearSelection() error {
	t.clearSelection()
	return t.flush()
}

func (t *Timeline) clearSelection() {
	if t.selection == nil {
		return
	}
	t.selection = nil
	t.emit(render.Event{Kind: render.EventRangeSelectionChanged})
	t.dirty = true
}

// Selection returns the selected range or nil.
func (t *Timeline) Selection() *timeaxis.Window {
	if t.selection == nil {
		return nil
	}
	w := *t.selection
	return &w
}

// SetWallclockTime moves the wallclock marker and renders. A zero time
// falls back to the clock.
func (t *Timeline) SetWallclockTime(at time.Time) error {
	t.wallclock = at
	t.dirty = true
	return t.flush()
}

// HandleInput feeds one pointer event, in scene coordinates, to the
// gesture machine and renders if anything changed.
func (t *Timeline) HandleInput(in gesture.Input) error {
	t.runQueued()
	t.gestures.Handle(in)
	return t.flush()
}

// RunPending runs deferred work that is due. It only matters when no
// Scheduler was supplied; hosts call it from their own tick.
func (t *Timeline) RunPending() error {
	t.runQueued()
	return t.flush()
}

func (t *Timeline) runQueued() {
	if t.queue != nil {
		t.queue.run()
	}
}

// Cursor returns the cursor the host should show.
func (t *Timeline) Cursor() string { return t.gestures.Cursor() }

// Busy reports whether a post-pan reload is pending.
func (t *Timeline) Busy() bool { return t.gestures.Busy() }

func (t *Timeline) transition(from, to gesture.State) {
	if t.opts.Observer == nil {
		return
	}
	switch to {
	case gesture.Panning:
		t.opts.Observer.ObserveGesture("pan")
	case gesture.Grabbing:
		t.opts.Observer.ObserveGesture("grab")
	}
}

// host adapts the timeline to what bands and the gesture machine call.
type host struct {
	t *Timeline
}

// --- render.Host ---

func (h *host) Emit(e render.Event)               { h.t.emit(e) }
func (h *host) SelectRange(start, stop time.Time) { h.t.selectRange(start, stop) }
func (h *host) ClearSelection()                   { h.t.clearSelection() }
func (h *host) Invalidate()                       { h.t.dirty = true }

// --- gesture.Host ---

func (h *host) Target(p scene.Point, types ...render.ActionType) (string, scene.Point, bool) {
	sc := h.t.composer.Scene()
	if sc == nil {
		return "", scene.Point{}, false
	}
	hit, ok := sc.HitTest(p)
	if !ok {
		return "", scene.Point{}, false
	}
	targets := h.t.composer.Targets()
	for _, id := range hit.IDs {
		if targets.Accepts(id, types...) {
			return id, hit.Local, true
		}
	}
	return "", scene.Point{}, false
}

// Dispatch routes a to the band owning its target. Bands emit the
// resulting notifications themselves.
func (h *host) Dispatch(a render.Action) bool {
	return h.t.composer.Targets().Dispatch(a)
}

func (h *host) Date(p scene.Point) time.Time {
	return h.t.vp.ToDate(p.X - h.t.vp.SidebarWidth())
}

func (h *host) Translation() scene.Point { return h.t.vp.Translation() }

func (h *host) Pan(tr scene.Point) {
	h.t.vp.Pan(tr)
	h.t.composer.Reproject()
	vis := h.t.vp.Visible()
	h.t.emit(render.Event{Kind: render.EventViewportChange, Start: vis.Start, Stop: vis.Stop})
}

func (h *host) FinishPan() {
	h.t.vp.Refresh()
	if err := h.t.reloaded(); err != nil {
		h.t.log.Warn("reload after pan", slog.String("error", err.Error()))
	}
}

// Hover reports the instant under the pointer; it is zero left of the
// time area or once the pointer left.
func (h *host) Hover(p scene.Point, inside bool) {
	x := p.X - h.t.vp.SidebarWidth()
	var date time.Time
	if inside && x >= 0 && x <= h.t.vp.VisibleWidth() {
		date = h.t.vp.ToDate(x)
	} else {
		x = 0
	}
	changed := !date.Equal(h.t.hover)
	h.t.hover = date
	h.t.emit(render.Event{Kind: render.EventViewportHover, Date: date, X: x, Screen: p})
	if changed && h.t.opts.Tracker {
		h.t.dirty = true
	}
}

func (h *host) Zoom(in bool, anchor scene.Point) {
	x := anchor.X - h.t.vp.SidebarWidth()
	h.t.emit(render.Event{Kind: render.EventViewportWheel, Date: h.t.vp.ToDate(x), X: x, Screen: anchor})
	var ax *float64
	if x >= 0 && x <= h.t.vp.VisibleWidth() {
		ax = &x
	}
	zoom := h.t.vp.Zoom() - 1
	if in {
		zoom = h.t.vp.Zoom() + 1
	}
	if t := h.t.opts.Observer; t != nil {
		t.ObserveGesture("wheel")
	}
	if err := h.t.zoomTo(zoom, ax); err != nil {
		h.t.log.Warn("wheel zoom", slog.String("error", err.Error()))
	}
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
