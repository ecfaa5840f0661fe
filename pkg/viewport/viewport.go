// Package viewport owns the zoom, translation and unpanned visible start of
// a timeline and derives the visible and load windows from them.
//
// It is also the only place that turns the translation into per-layer
// offsets (see Projection). Nothing else should add or subtract the
// translation by hand.
package viewport

import (
	"fmt"
	"time"

	"github.com/daviddao/tlview/pkg/scene"
	"github.com/daviddao/tlview/pkg/timeaxis"
)

// DefaultSidebarWidth is the width of the label column.
const DefaultSidebarWidth = 200.0

// PanMode restricts which axes a pan gesture may move.
type PanMode int

const (
	PanXY PanMode = iota
	PanX
	PanY
	PanNone
)

// ParsePanMode maps "XY", "X_ONLY", "Y_ONLY" and "NONE" to a PanMode.
func ParsePanMode(s string) (PanMode, error) {
	switch s {
	case "", "XY":
		return PanXY, nil
	case "X_ONLY", "X":
		return PanX, nil
	case "Y_ONLY", "Y":
		return PanY, nil
	case "NONE":
		return PanNone, nil
	}
	return PanXY, fmt.Errorf("unknown pan mode %q", s)
}

// Projection selects which translation components a layer follows.
type Projection int

const (
	// ProjectXY follows both axes; x is in load-window space.
	ProjectXY Projection = iota
	// ProjectX follows horizontal panning only; x is in load-window space.
	ProjectX
	// ProjectY follows vertical panning only; x is in viewport pixels.
	ProjectY
	// ProjectNone is fixed.
	ProjectNone
)

// Config sizes a Controller.
type Config struct {
	Width         float64
	SidebarWidth  float64
	DivisionWidth float64
	Zoom          int
	PanMode       PanMode
}

// Controller is the viewport state machine. It is not safe for concurrent
// use.
type Controller struct {
	axis         timeaxis.Axis
	width        float64
	sidebarWidth float64
	panMode      PanMode

	translation scene.Point
	unpanned    time.Time
	load        timeaxis.Window
}

// New returns a controller centred on center. Zoom 0 selects the default
// zoom level; other values must be in range.
func New(cfg Config, center time.Time) (*Controller, error) {
	zoom := cfg.Zoom
	if zoom == 0 {
		zoom = timeaxis.DefaultZoom
	}
	axis, err := timeaxis.New(zoom, cfg.DivisionWidth)
	if err != nil {
		return nil, err
	}
	if cfg.SidebarWidth < 0 {
		return nil, fmt.Errorf("negative sidebar width %v", cfg.SidebarWidth)
	}
	c := &Controller{
		axis:         axis,
		width:        cfg.Width,
		sidebarWidth: cfg.SidebarWidth,
		panMode:      cfg.PanMode,
	}
	if _, err := c.Reveal(center); err != nil {
		return nil, err
	}
	return c, nil
}

// Axis returns the current time scale.
func (c *Controller) Axis() timeaxis.Axis { return c.axis }

// Zoom returns the current zoom level.
func (c *Controller) Zoom() int { return c.axis.Zoom }

// Translation returns the current pan offset.
func (c *Controller) Translation() scene.Point { return c.translation }

// PanMode returns the active pan mode.
func (c *Controller) PanMode() PanMode { return c.panMode }

// SetPanMode changes the pan mode. The current translation is kept.
func (c *Controller) SetPanMode(m PanMode) { c.panMode = m }

// Width returns the full width including the sidebar.
func (c *Controller) Width() float64 { return c.width }

// SidebarWidth returns the width of the label column.
func (c *Controller) SidebarWidth() float64 { return c.sidebarWidth }

// VisibleWidth returns the pixel width of the time area, at least one.
func (c *Controller) VisibleWidth() float64 {
	return max(c.width-c.sidebarWidth, 1)
}

// UnpannedVisibleStart returns the visible start as of the last reveal.
func (c *Controller) UnpannedVisibleStart() time.Time { return c.unpanned }

// VisibleStart applies the horizontal translation to the unpanned start.
func (c *Controller) VisibleStart() time.Time {
	return c.axis.ToDate(-c.translation.X, c.unpanned)
}

// VisibleStop returns the instant at the right edge of the time area.
func (c *Controller) VisibleStop() time.Time {
	return c.axis.ToDate(c.VisibleWidth(), c.VisibleStart())
}

// VisibleCenter returns the instant at the middle of the time area.
func (c *Controller) VisibleCenter() time.Time {
	return c.axis.ToDate(c.VisibleWidth()/2, c.VisibleStart())
}

// Visible returns the visible window.
func (c *Controller) Visible() timeaxis.Window {
	return timeaxis.Window{Start: c.VisibleStart(), Stop: c.VisibleStop()}
}

// Load returns the window data should be prepared for.
func (c *Controller) Load() timeaxis.Window { return c.load }

// VisibleSeconds returns the duration of the visible window in seconds.
func (c *Controller) VisibleSeconds() float64 {
	return c.axis.Seconds(c.VisibleWidth())
}

// Leftify returns the visible start that centres date.
func (c *Controller) Leftify(date time.Time) time.Time {
	return c.axis.ToDate(-c.VisibleWidth()/2, date)
}

// ToDate returns the instant under viewport pixel x (0 is the left edge of
// the time area), taking the translation into account.
func (c *Controller) ToDate(x float64) time.Time {
	return c.axis.ToDate(x-c.translation.X, c.unpanned)
}

// PositionDate returns the viewport pixel of date.
func (c *Controller) PositionDate(date time.Time) float64 {
	return c.axis.PositionDate(date, c.unpanned, c.translation.X)
}

// LoadX returns the x of date in load-window space, the coordinate space
// bands author in.
func (c *Controller) LoadX(date time.Time) float64 {
	return c.axis.PointsBetween(c.load.Start, date)
}

// LoadWidth returns the pixel width of the load window.
func (c *Controller) LoadWidth() float64 {
	return c.axis.PointsBetween(c.load.Start, c.load.Stop)
}

// Reveal centres date and resets the translation. The returned window is
// the new load window.
func (c *Controller) Reveal(date time.Time) (timeaxis.Window, error) {
	if date.IsZero() {
		return timeaxis.Window{}, fmt.Errorf("%w: reveal of zero time", timeaxis.ErrInvalidTimeInput)
	}
	c.unpanned = c.Leftify(date)
	c.translation = scene.Point{}
	c.load = c.loadAround(c.unpanned)
	return c.load, nil
}

// SetZoom clamps zoom and rescales around an anchor. With a non-nil
// anchor (viewport pixel) the instant under it stays put; otherwise the
// visible centre does. The translation is reset. It reports whether the
// zoom level changed.
func (c *Controller) SetZoom(zoom int, anchor *float64) bool {
	zoom = timeaxis.ClampZoom(zoom)
	vw := c.VisibleWidth()
	xDate, xPercent := c.VisibleCenter(), 0.5
	if anchor != nil {
		xDate = c.ToDate(*anchor)
		xPercent = *anchor / vw
	}
	changed := zoom != c.axis.Zoom
	axis, err := timeaxis.New(zoom, c.axis.DivisionWidth)
	if err != nil {
		// unreachable after ClampZoom
		panic(err)
	}
	c.axis = axis
	newBox := c.axis.Seconds(vw)
	center := xDate.Add(timeaxis.Duration(newBox * (0.5 - xPercent)))
	c.unpanned = c.Leftify(center)
	c.translation = scene.Point{}
	c.load = c.loadAround(c.unpanned)
	return changed
}

// Pan sets the translation. y never goes above zero; axes excluded by the
// pan mode stay at zero; x is limited so the visible window stays inside
// the load window. It returns the effective translation.
func (c *Controller) Pan(t scene.Point) scene.Point {
	t.Y = min(t.Y, 0)
	switch c.panMode {
	case PanX:
		t.Y = 0
	case PanY:
		t.X = 0
	case PanNone:
		t = scene.Point{}
	}
	maxX := c.axis.PointsBetween(c.load.Start, c.unpanned)
	minX := c.VisibleWidth() - c.axis.PointsBetween(c.unpanned, c.load.Stop)
	t.X = max(minX, min(maxX, t.X))
	c.translation = t
	return t
}

// Refresh folds the horizontal translation into the unpanned start and
// recomputes the load window around the current visible window. The
// vertical translation is kept.
func (c *Controller) Refresh() timeaxis.Window {
	c.unpanned = c.VisibleStart()
	c.translation.X = 0
	c.load = c.loadAround(c.unpanned)
	return c.load
}

// Resize changes the total width, keeping the visible start.
func (c *Controller) Resize(width float64) timeaxis.Window {
	c.width = width
	return c.Refresh()
}

// Projection returns the translate for a layer following p. For load-space
// projections it includes the shift from load-window x to viewport x.
func (c *Controller) Projection(p Projection) scene.Point {
	origin := c.translation.X - c.axis.PointsBetween(c.load.Start, c.unpanned)
	switch p {
	case ProjectXY:
		return scene.Point{X: origin, Y: c.translation.Y}
	case ProjectX:
		return scene.Point{X: origin}
	case ProjectY:
		return scene.Point{Y: c.translation.Y}
	}
	return scene.Point{}
}

func (c *Controller) loadAround(visibleStart time.Time) timeaxis.Window {
	d := timeaxis.Duration(c.VisibleSeconds())
	return timeaxis.Window{
		Start: visibleStart.Add(-d),
		Stop:  visibleStart.Add(2 * d),
	}
}
