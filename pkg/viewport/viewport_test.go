package viewport

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/daviddao/tlview/pkg/scene"
	"github.com/daviddao/tlview/pkg/timeaxis"
)

var center = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Timestamps may drift by a few nanoseconds through float conversions.
const slack = time.Millisecond

func newController(t *testing.T, cfg Config) *Controller {
	t.Helper()
	if cfg.Width == 0 {
		cfg.Width = 1000
	}
	if cfg.SidebarWidth == 0 {
		cfg.SidebarWidth = 200
	}
	c, err := New(cfg, center)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func near(a, b time.Time) bool {
	d := a.Sub(b)
	return d < slack && d > -slack
}

func TestNewRejectsBadZoom(t *testing.T) {
	if _, err := New(Config{Width: 100, Zoom: 99}, center); !errors.Is(err, timeaxis.ErrZoomOutOfRange) {
		t.Errorf("New(zoom 99) err = %v, want ErrZoomOutOfRange", err)
	}
	if _, err := New(Config{Width: 100}, time.Time{}); !errors.Is(err, timeaxis.ErrInvalidTimeInput) {
		t.Errorf("New(zero center) err = %v, want ErrInvalidTimeInput", err)
	}
}

func TestRevealWindows(t *testing.T) {
	c := newController(t, Config{})
	// 800px at 800s per 20px division is 32000s.
	if got := c.VisibleSeconds(); got != 32000 {
		t.Fatalf("VisibleSeconds = %v, want 32000", got)
	}
	wantStart := center.Add(-16000 * time.Second)
	if !c.VisibleStart().Equal(wantStart) {
		t.Errorf("VisibleStart = %v, want %v", c.VisibleStart(), wantStart)
	}
	if !c.VisibleCenter().Equal(center) {
		t.Errorf("VisibleCenter = %v, want %v", c.VisibleCenter(), center)
	}
	load := c.Load()
	if !load.Start.Equal(wantStart.Add(-32000*time.Second)) || !load.Stop.Equal(wantStart.Add(64000*time.Second)) {
		t.Errorf("Load = %v", load)
	}
	if !load.Contains(c.Visible()) {
		t.Errorf("Load %v does not contain visible %v", load, c.Visible())
	}
}

func TestScenarioPan(t *testing.T) {
	c := newController(t, Config{})
	t0 := c.UnpannedVisibleStart()
	if got := c.PositionDate(t0.Add(800 * time.Second)); got != 20 {
		t.Errorf("PositionDate(T0+800s) = %v, want 20", got)
	}
	c.Pan(scene.Point{X: -40})
	if want := t0.Add(1600 * time.Second); !c.VisibleStart().Equal(want) {
		t.Errorf("VisibleStart after pan = %v, want %v", c.VisibleStart(), want)
	}
	// Pan does not move the load window.
	if !c.Load().Start.Equal(t0.Add(-32000 * time.Second)) {
		t.Errorf("Load moved during pan: %v", c.Load())
	}
}

func TestPanClampsY(t *testing.T) {
	c := newController(t, Config{})
	if got := c.Pan(scene.Point{X: 10, Y: 25}); got.Y != 0 {
		t.Errorf("Pan Y = %v, want 0", got.Y)
	}
	if got := c.Pan(scene.Point{X: 10, Y: -25}); got.Y != -25 {
		t.Errorf("Pan Y = %v, want -25", got.Y)
	}
}

func TestPanModes(t *testing.T) {
	tests := []struct {
		mode PanMode
		want scene.Point
	}{
		{PanXY, scene.Point{X: 30, Y: -10}},
		{PanX, scene.Point{X: 30}},
		{PanY, scene.Point{Y: -10}},
		{PanNone, scene.Point{}},
	}
	for _, tt := range tests {
		c := newController(t, Config{PanMode: tt.mode})
		if got := c.Pan(scene.Point{X: 30, Y: -10}); got != tt.want {
			t.Errorf("mode %d: Pan = %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func TestPanStaysInLoadWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for zoom := timeaxis.MinZoom; zoom <= timeaxis.MaxZoom; zoom++ {
		c := newController(t, Config{Zoom: zoom})
		for i := 0; i < 50; i++ {
			c.Pan(scene.Point{X: (rng.Float64() - 0.5) * 5000, Y: -rng.Float64() * 100})
			load, vis := c.Load(), c.Visible()
			if load.Start.Sub(vis.Start) > slack || vis.Stop.Sub(load.Stop) > slack {
				t.Fatalf("zoom %d: visible %v escapes load %v", zoom, vis, load)
			}
		}
	}
}

func TestSetZoomAnchor(t *testing.T) {
	c := newController(t, Config{})
	c.Pan(scene.Point{X: -55})
	anchor := 123.0
	before := c.ToDate(anchor)
	if !c.SetZoom(13, &anchor) {
		t.Fatal("SetZoom reported no change")
	}
	if c.Translation() != (scene.Point{}) {
		t.Errorf("Translation = %v, want zero", c.Translation())
	}
	if after := c.ToDate(anchor); !near(after, before) {
		t.Errorf("anchor date moved: %v -> %v", before, after)
	}
	if !c.Load().Contains(c.Visible()) {
		t.Error("load window does not contain visible after zoom")
	}
}

func TestSetZoomCenter(t *testing.T) {
	c := newController(t, Config{})
	before := c.VisibleCenter()
	c.SetZoom(3, nil)
	if !near(c.VisibleCenter(), before) {
		t.Errorf("centre moved: %v -> %v", before, c.VisibleCenter())
	}
	if c.SetZoom(99, nil); c.Zoom() != timeaxis.MaxZoom {
		t.Errorf("Zoom = %d, want clamp to %d", c.Zoom(), timeaxis.MaxZoom)
	}
	if c.SetZoom(timeaxis.MaxZoom, nil) {
		t.Error("SetZoom at same level reported a change")
	}
}

func TestRefresh(t *testing.T) {
	c := newController(t, Config{})
	c.Pan(scene.Point{X: -300, Y: -20})
	vis := c.VisibleStart()
	load := c.Refresh()
	if !c.VisibleStart().Equal(vis) {
		t.Errorf("VisibleStart changed: %v -> %v", vis, c.VisibleStart())
	}
	if c.Translation() != (scene.Point{Y: -20}) {
		t.Errorf("Translation = %v, want {0 -20}", c.Translation())
	}
	if !load.Start.Equal(vis.Add(-32000 * time.Second)) {
		t.Errorf("Load.Start = %v", load.Start)
	}
}

func TestProjection(t *testing.T) {
	c := newController(t, Config{})
	c.Pan(scene.Point{X: -40, Y: -7})
	// Content at load-space x of a date lands on its viewport pixel.
	d := c.VisibleStart().Add(time.Hour)
	vx := c.LoadX(d) + c.Projection(ProjectXY).X
	if math.Abs(vx-c.PositionDate(d)) > 1e-6 {
		t.Errorf("projected x = %v, want %v", vx, c.PositionDate(d))
	}
	if got := c.Projection(ProjectXY).Y; got != -7 {
		t.Errorf("XY y = %v, want -7", got)
	}
	if got := c.Projection(ProjectX).Y; got != 0 {
		t.Errorf("X y = %v, want 0", got)
	}
	if got := c.Projection(ProjectY); got != (scene.Point{Y: -7}) {
		t.Errorf("Y = %v, want {0 -7}", got)
	}
	if got := c.Projection(ProjectNone); got != (scene.Point{}) {
		t.Errorf("None = %v, want zero", got)
	}
}

func TestParsePanMode(t *testing.T) {
	for in, want := range map[string]PanMode{"XY": PanXY, "X_ONLY": PanX, "Y_ONLY": PanY, "NONE": PanNone, "": PanXY} {
		got, err := ParsePanMode(in)
		if err != nil || got != want {
			t.Errorf("ParsePanMode(%q) = %v, %v, want %v", in, got, err, want)
		}
	}
	if _, err := ParsePanMode("diagonal"); err == nil {
		t.Error("ParsePanMode(diagonal) succeeded")
	}
}
