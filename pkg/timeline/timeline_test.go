package timeline

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/daviddao/tlview/pkg/gesture"
	"github.com/daviddao/tlview/pkg/model"
	"github.com/daviddao/tlview/pkg/render"
	"github.com/daviddao/tlview/pkg/scene"
	"github.com/daviddao/tlview/pkg/timeaxis"
)

// At zoom 12 one pixel is 40 seconds. The time area is 1000px wide and
// starts at scene x 200, so center is under scene x 700.
var center = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(seconds int) time.Time { return center.Add(time.Duration(seconds) * time.Second) }

type manualScheduler struct {
	pending func()
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) func() {
	s.pending = f
	return func() { s.pending = nil }
}

func (s *manualScheduler) fire() {
	f := s.pending
	s.pending = nil
	if f != nil {
		f()
	}
}

type countingObserver struct {
	passes, failed int
	gestures       []string
}

func (o *countingObserver) ObservePass(d time.Duration, primitives int, err error) {
	o.passes++
	if err != nil {
		o.failed++
	}
}

func (o *countingObserver) ObserveGesture(kind string) { o.gestures = append(o.gestures, kind) }

type fixture struct {
	tl    *Timeline
	sched *manualScheduler
	obs   *countingObserver
	seen  []render.Event
}

func newFixture(t *testing.T, tweak func(*Options), specs ...model.BandSpec) *fixture {
	t.Helper()
	f := &fixture{sched: &manualScheduler{}, obs: &countingObserver{}}
	opts := Options{
		Width:     1200,
		Zoom:      12,
		Center:    center,
		Measurer:  scene.CellMeasurer{CellWidth: 6},
		Scheduler: f.sched,
		Observer:  f.obs,
		Clock:     func() time.Time { return center },
	}
	if tweak != nil {
		tweak(&opts)
	}
	tl, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, kind := range render.EventKinds {
		if err := tl.On(kind, func(e render.Event) { f.seen = append(f.seen, e) }); err != nil {
			t.Fatalf("On(%s): %v", kind, err)
		}
	}
	if err := tl.SetData(specs); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	f.tl = tl
	return f
}

func (f *fixture) input(t *testing.T, kind gesture.Kind, x, y float64) {
	t.Helper()
	if err := f.tl.HandleInput(gesture.Input{Kind: kind, Point: scene.Point{X: x, Y: y}}); err != nil {
		t.Fatalf("HandleInput: %v", err)
	}
}

func (f *fixture) kinds() []render.EventKind {
	var out []render.EventKind
	for _, e := range f.seen {
		out = append(out, e.Kind)
	}
	return out
}

func (f *fixture) last(kind render.EventKind) (render.Event, bool) {
	for i := len(f.seen) - 1; i >= 0; i-- {
		if f.seen[i].Kind == kind {
			return f.seen[i], true
		}
	}
	return render.Event{}, false
}

func eventBand(spec model.BandSpec) model.BandSpec {
	spec.Type = model.TypeEventBand
	spec.ID = "ev"
	spec.Entries = []model.Entry{{ID: "x1", Start: at(0), Stop: at(400), Title: "Burn"}}
	return spec
}

func TestNewValidates(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("New accepted zero width")
	}
	for _, o := range []Options{
		{Width: math.NaN()},
		{Width: math.Inf(1)},
		{Width: 100, Height: math.NaN()},
		{Width: 100, Height: -1},
	} {
		if _, err := New(o); err == nil {
			t.Errorf("New(width %v, height %v) succeeded", o.Width, o.Height)
		}
	}
	_, err := New(Options{Width: 100, Zoom: 20, Center: center})
	if !errors.Is(err, timeaxis.ErrZoomOutOfRange) {
		t.Errorf("New zoom 20 err = %v, want ErrZoomOutOfRange", err)
	}
}

func TestOnUnknownKind(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.tl.On("doubleClick", func(render.Event) {}); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("On err = %v, want ErrUnknownEvent", err)
	}
}

func TestSetDataKeepsSceneOnError(t *testing.T) {
	f := newFixture(t, nil, eventBand(model.BandSpec{}))
	before := f.tl.Scene()
	if before == nil || before.Find("ev/0") == nil {
		t.Fatal("first scene lacks the entry")
	}
	err := f.tl.SetData([]model.BandSpec{{Type: "Gantt"}})
	if !errors.Is(err, render.ErrUnknownBandType) {
		t.Fatalf("SetData err = %v, want ErrUnknownBandType", err)
	}
	if f.tl.Scene() != before {
		t.Error("scene replaced after failed SetData")
	}
	if len(f.tl.Bands()) != 1 {
		t.Errorf("Bands = %d, want 1", len(f.tl.Bands()))
	}
}

func TestPanThenReload(t *testing.T) {
	f := newFixture(t, nil, eventBand(model.BandSpec{}))
	start := f.tl.Visible().Start
	f.seen = nil

	f.input(t, gesture.Down, 900, 20)
	f.input(t, gesture.Move, 880, 20)
	f.input(t, gesture.Move, 860, 20)
	f.input(t, gesture.Up, 860, 20)
	f.input(t, gesture.Click, 860, 20)

	if got := f.tl.Visible().Start; !got.Equal(start.Add(1600 * time.Second)) {
		t.Errorf("visible start = %v, want +1600s", got)
	}
	if !f.tl.Busy() || f.tl.Cursor() != "wait" {
		t.Errorf("busy = %v, cursor = %q", f.tl.Busy(), f.tl.Cursor())
	}
	if _, ok := f.last(render.EventViewportChange); !ok {
		t.Error("no viewportChange while panning")
	}
	if _, ok := f.last(render.EventViewportChanged); ok {
		t.Error("viewportChanged before the reload")
	}
	if _, ok := f.last(render.EventClick); ok {
		t.Error("click after the pan was dispatched")
	}

	f.sched.fire()
	if f.tl.Busy() {
		t.Error("still busy after reload")
	}
	changed, ok := f.last(render.EventViewportChanged)
	if !ok || !changed.Start.Equal(start.Add(1600*time.Second)) {
		t.Errorf("viewportChanged = %+v %v", changed, ok)
	}
	load, ok := f.last(render.EventLoadRange)
	if !ok || !load.Start.Equal(changed.Start.Add(-40000*time.Second)) {
		t.Errorf("loadRange = %+v %v", load, ok)
	}
	if !reflect.DeepEqual(f.obs.gestures, []string{"pan"}) {
		t.Errorf("gestures = %v, want [pan]", f.obs.gestures)
	}
}

func TestZoomSupersedesReload(t *testing.T) {
	f := newFixture(t, nil)
	f.input(t, gesture.Down, 900, 0)
	f.input(t, gesture.Move, 800, 0)
	f.input(t, gesture.Up, 800, 0)
	if err := f.tl.SetZoom(10); err != nil {
		t.Fatal(err)
	}
	if f.tl.Busy() || f.sched.pending != nil {
		t.Error("zoom did not cancel the pending reload")
	}
}

func TestClickAndHoverEntry(t *testing.T) {
	f := newFixture(t, nil, eventBand(model.BandSpec{Interactive: true}))
	f.seen = nil

	f.input(t, gesture.Move, 702, 10)
	if g := f.tl.Scene().Find("ev/0").(*scene.Group); g.Style.Opacity != 0.7 {
		t.Errorf("hovered opacity = %v, want 0.7", g.Style.Opacity)
	}
	f.input(t, gesture.Down, 702, 10)
	f.input(t, gesture.Up, 702, 10)
	f.input(t, gesture.Click, 702, 10)

	click, ok := f.last(render.EventClick)
	if !ok || click.Entry == nil || click.Entry.ID != "x1" || !click.Date.Equal(at(80)) {
		t.Errorf("click = %+v %v", click, ok)
	}
	if _, ok := f.last(render.EventMouseEnter); !ok {
		t.Error("no eventMouseEnter")
	}
	hover, _ := f.last(render.EventViewportHover)
	if hover.X != 502 || !hover.Date.Equal(at(80)) {
		t.Errorf("viewportHover = %+v", hover)
	}
}

func TestDragEntry(t *testing.T) {
	f := newFixture(t, nil, eventBand(model.BandSpec{Draggable: true}))
	f.seen = nil
	f.input(t, gesture.Down, 702, 10)
	f.input(t, gesture.Move, 717, 10)
	f.input(t, gesture.Move, 727, 10)
	f.input(t, gesture.Up, 727, 10)

	want := []render.EventKind{
		render.EventGrabStart, render.EventGrabMove, render.EventGrabMove,
		render.EventChanged, render.EventGrabEnd,
	}
	var got []render.EventKind
	for _, k := range f.kinds() {
		if k != render.EventViewportHover {
			got = append(got, k)
		}
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	ev, _ := f.last(render.EventChanged)
	if !ev.Start.Equal(at(1000)) || !ev.Stop.Equal(at(1400)) {
		t.Errorf("eventChanged = %v..%v, want +1000s..+1400s", ev.Start, ev.Stop)
	}
	for _, e := range f.seen {
		switch e.Kind {
		case render.EventGrabStart, render.EventGrabMove, render.EventGrabEnd:
			if e.Band != "ev" || e.Entry == nil || e.Entry.ID != "x1" {
				t.Errorf("%s = %+v, want entry x1 of band ev", e.Kind, e)
			}
		}
	}
	if end, _ := f.last(render.EventGrabEnd); end.Screen != (scene.Point{X: 727, Y: 10}) || !end.Date.Equal(at(1080)) {
		t.Errorf("grabEnd at %v %v, want pointer (727, 10) at +1080s", end.Screen, end.Date)
	}
	if f.tl.Busy() {
		t.Error("grab scheduled a reload")
	}
}

func TestSelection(t *testing.T) {
	f := newFixture(t, nil, eventBand(model.BandSpec{}))
	if err := f.tl.SelectRange(at(0), at(3600)); err != nil {
		t.Fatal(err)
	}
	sel := f.tl.Selection()
	if sel == nil || !sel.Stop.Equal(at(3600)) {
		t.Fatalf("Selection = %v", sel)
	}
	if n := len(f.tl.Scene().Layer(string(render.LayerOverlayX)).Nodes); n != 1 {
		t.Errorf("overlay-x groups = %d, want 1", n)
	}

	// A click outside any target clears it.
	f.input(t, gesture.Click, 300, 500)
	if f.tl.Selection() != nil {
		t.Error("selection survived a click on empty space")
	}
	var changes int
	for _, k := range f.kinds() {
		if k == render.EventRangeSelectionChanged {
			changes++
		}
	}
	if changes != 2 {
		t.Errorf("rangeSelectionChanged = %d, want 2", changes)
	}
	if n := len(f.tl.Scene().Layer(string(render.LayerOverlayX)).Nodes); n != 0 {
		t.Errorf("overlay-x groups = %d after clear, want 0", n)
	}
}

func TestTimescaleGrabSelects(t *testing.T) {
	f := newFixture(t, nil, model.BandSpec{
		Type: model.TypeTimescale, ID: "ts", Header: true,
		Properties: map[string]string{"grabAction": "select"},
	})
	f.input(t, gesture.Down, 700, 10)
	f.input(t, gesture.Move, 790, 10)
	f.input(t, gesture.Up, 790, 10)
	sel := f.tl.Selection()
	if sel == nil || !sel.Start.Equal(center) || !sel.Stop.Equal(at(3600)) {
		t.Errorf("Selection = %v, want [center, +3600s]", sel)
	}
	start, ok := f.last(render.EventGrabStart)
	if !ok || start.Band != "ts" || start.Entry != nil {
		t.Errorf("grabStart = %+v %v, want band ts without entry", start, ok)
	}
	if _, ok := f.last(render.EventGrabEnd); !ok {
		t.Error("no grabEnd")
	}
}

func TestWheelZoomKeepsAnchor(t *testing.T) {
	f := newFixture(t, nil)
	f.input(t, gesture.Wheel, 0, 0) // zero delta is ignored
	if err := f.tl.HandleInput(gesture.Input{Kind: gesture.Wheel, Point: scene.Point{X: 950, Y: 0}, Delta: -1}); err != nil {
		t.Fatal(err)
	}
	if f.tl.Zoom() != 13 {
		t.Fatalf("Zoom = %d, want 13", f.tl.Zoom())
	}
	// Scene x 950 is viewport x 750, which was at +10000s.
	if got := f.tl.Viewport().ToDate(750); !got.Equal(at(10000)) {
		t.Errorf("date under anchor = %v, want +10000s", got)
	}
	if _, ok := f.last(render.EventViewportWheel); !ok {
		t.Error("no viewportWheel")
	}
	if !reflect.DeepEqual(f.obs.gestures, []string{"wheel"}) {
		t.Errorf("gestures = %v", f.obs.gestures)
	}
}

func TestZoomClamps(t *testing.T) {
	f := newFixture(t, nil)
	for _, tc := range []struct {
		zoom, want int
	}{{99, timeaxis.MaxZoom}, {-3, timeaxis.MinZoom}, {7, 7}} {
		if err := f.tl.SetZoom(tc.zoom); err != nil {
			t.Fatalf("SetZoom(%d): %v", tc.zoom, err)
		}
		if f.tl.Zoom() != tc.want {
			t.Errorf("SetZoom(%d): Zoom = %d, want %d", tc.zoom, f.tl.Zoom(), tc.want)
		}
	}
	if err := f.tl.ZoomIn(nil); err != nil || f.tl.Zoom() != 8 {
		t.Errorf("ZoomIn: zoom = %d, err = %v", f.tl.Zoom(), err)
	}
	if err := f.tl.ZoomOut(nil); err != nil || f.tl.Zoom() != 7 {
		t.Errorf("ZoomOut: zoom = %d, err = %v", f.tl.Zoom(), err)
	}
}

func TestGoForwardBackward(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.tl.GoForward(0); err != nil {
		t.Fatal(err)
	}
	if got := f.tl.Viewport().VisibleCenter(); !got.Equal(at(12000)) {
		t.Errorf("after GoForward centre = %v, want +12000s", got)
	}
	if err := f.tl.GoBackward(0.5); err != nil {
		t.Fatal(err)
	}
	if got := f.tl.Viewport().VisibleCenter(); !got.Equal(at(-8000)) {
		t.Errorf("after GoBackward centre = %v, want -8000s", got)
	}
	load, ok := f.last(render.EventLoadRange)
	if !ok || !load.Start.Equal(at(-8000-60000)) {
		t.Errorf("loadRange = %+v", load)
	}
}

func TestRevealZeroTime(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.tl.Reveal(time.Time{}); !errors.Is(err, timeaxis.ErrInvalidTimeInput) {
		t.Errorf("Reveal err = %v, want ErrInvalidTimeInput", err)
	}
}

func TestTrackerAndWallclock(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Tracker = true
		o.Wallclock = true
	}, eventBand(model.BandSpec{}))

	lines := func() int {
		n := 0
		scene.Walk(f.tl.Scene().Layer(string(render.LayerOverlayX)).Nodes, func(n2 scene.Node) bool {
			if _, ok := n2.(*scene.Line); ok {
				n++
			}
			return true
		})
		return n
	}
	if got := lines(); got != 1 {
		t.Errorf("lines before hover = %d, want 1 (wallclock)", got)
	}
	f.input(t, gesture.Move, 700, 10)
	if got := lines(); got != 2 {
		t.Errorf("lines while hovering = %d, want 2", got)
	}
	f.input(t, gesture.Leave, 1300, 10)
	if got := lines(); got != 1 {
		t.Errorf("lines after leave = %d, want 1", got)
	}
	hover, _ := f.last(render.EventViewportHover)
	if !hover.Date.IsZero() {
		t.Errorf("hover after leave = %v, want zero", hover.Date)
	}

	if err := f.tl.SetWallclockTime(at(10000000)); err != nil {
		t.Fatal(err)
	}
	if got := lines(); got != 0 {
		t.Errorf("lines with wallclock outside load = %d, want 0", got)
	}
}

func TestResize(t *testing.T) {
	f := newFixture(t, nil, eventBand(model.BandSpec{}))
	start := f.tl.Visible().Start
	if err := f.tl.Resize(700, 300); err != nil {
		t.Fatal(err)
	}
	if got := f.tl.Visible(); !got.Start.Equal(start) || !got.Stop.Equal(start.Add(20000*time.Second)) {
		t.Errorf("visible = %v", got)
	}
	if f.tl.Scene().Height != 300 || f.tl.Scene().Width != 700 {
		t.Errorf("scene = %vx%v, want 700x300", f.tl.Scene().Width, f.tl.Scene().Height)
	}
	if err := f.tl.Resize(math.NaN(), 0); err == nil {
		t.Error("Resize accepted a NaN width")
	}
	if err := f.tl.Resize(700, math.NaN()); err == nil {
		t.Error("Resize accepted a NaN height")
	}
	if err := f.tl.Resize(0, 0); err == nil {
		t.Error("Resize accepted zero width")
	}
}

func TestDefaultSchedulerRunsOnCaller(t *testing.T) {
	now := center
	f := newFixture(t, func(o *Options) {
		o.Scheduler = nil
		o.Clock = func() time.Time { return now }
	})
	f.input(t, gesture.Down, 700, 10)
	f.input(t, gesture.Move, 650, 10)
	f.input(t, gesture.Up, 650, 10)
	if !f.tl.Busy() {
		t.Fatal("not busy after pan release")
	}
	f.seen = nil

	now = now.Add(gesture.ReloadDelay - time.Millisecond)
	if err := f.tl.RunPending(); err != nil {
		t.Fatal(err)
	}
	if !f.tl.Busy() || len(f.seen) != 0 {
		t.Fatalf("reload ran early: busy = %v, events = %v", f.tl.Busy(), f.kinds())
	}

	now = now.Add(time.Millisecond)
	if err := f.tl.RunPending(); err != nil {
		t.Fatal(err)
	}
	if f.tl.Busy() {
		t.Error("still busy after the reload delay")
	}
	if _, ok := f.last(render.EventLoadRange); !ok {
		t.Errorf("events = %v, want loadRange", f.kinds())
	}
	if got := f.tl.Visible().Start; !got.Equal(f.tl.Viewport().Leftify(at(2000))) {
		t.Errorf("visible start = %v after a 50px pan", got)
	}
}

func TestDefaultSchedulerRunsFromInput(t *testing.T) {
	now := center
	f := newFixture(t, func(o *Options) {
		o.Scheduler = nil
		o.Clock = func() time.Time { return now }
	})
	f.input(t, gesture.Down, 700, 10)
	f.input(t, gesture.Move, 650, 10)
	f.input(t, gesture.Up, 650, 10)

	// A zoom supersedes the queued reload.
	if err := f.tl.ZoomIn(nil); err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Second)
	f.seen = nil
	f.input(t, gesture.Move, 300, 10)
	if _, ok := f.last(render.EventLoadRange); ok {
		t.Error("canceled reload ran")
	}

	f.input(t, gesture.Down, 700, 10)
	f.input(t, gesture.Move, 650, 10)
	f.input(t, gesture.Up, 650, 10)
	now = now.Add(time.Second)
	f.input(t, gesture.Move, 300, 10)
	if f.tl.Busy() {
		t.Error("queued reload did not run from HandleInput")
	}
}
