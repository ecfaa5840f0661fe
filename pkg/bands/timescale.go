package bands

import (
	"fmt"
	"strings"
	"time"

	"github.com/daviddao/tlview/pkg/model"
	"github.com/daviddao/tlview/pkg/render"
	"github.com/daviddao/tlview/pkg/scene"
)

// Scale is the label granularity of a Timescale.
type Scale int

const (
	ScaleAuto Scale = iota
	ScaleHour
	ScaleQuarterDay
	ScaleDay
	ScaleWeek
	ScaleMonth
)

var scaleNames = map[string]Scale{
	"auto":       ScaleAuto,
	"hour":       ScaleHour,
	"quarterDay": ScaleQuarterDay,
	"day":        ScaleDay,
	"week":       ScaleWeek,
	"month":      ScaleMonth,
}

// Grab actions of a Timescale.
const (
	GrabPan    = "pan"
	GrabSelect = "select"
)

// TimescaleStyle is the style of a Timescale.
type TimescaleStyle struct {
	LineHeight              float64 `yaml:"lineHeight"`
	TextColor               string  `yaml:"textColor"`
	TextSize                float64 `yaml:"textSize"`
	MajorTickColor          string  `yaml:"majorTickColor"`
	MajorTickWidth          float64 `yaml:"majorTickWidth"`
	MidTickColor            string  `yaml:"midTickColor"`
	MidTickWidth            float64 `yaml:"midTickWidth"`
	MinorTickColor          string  `yaml:"minorTickColor"`
	MinorTickWidth          float64 `yaml:"minorTickWidth"`
	BandBackgroundColor     string  `yaml:"bandBackgroundColor"`
	HorizontalTickLineColor string  `yaml:"horizontalTickLineColor"`
	HorizontalTickLineWidth float64 `yaml:"horizontalTickLineWidth"`
}

// DefaultTimescaleStyle returns the Timescale defaults.
func DefaultTimescaleStyle() TimescaleStyle {
	return TimescaleStyle{
		LineHeight:     30,
		TextColor:      "grey",
		TextSize:       scene.DefaultFontSize,
		MajorTickColor: "#aaaaaa",
		MajorTickWidth: 1,
		MidTickColor:   "#aaaaaa",
		MidTickWidth:   1,
		MinorTickColor: "#aaaaaa",
		MinorTickWidth: 1,
	}
}

// Timescale labels the time axis. With grabAction "select" grabs on the
// band select a range instead of panning.
type Timescale struct {
	render.Base
	style      TimescaleStyle
	loc        *time.Location
	resolution Scale
	grabAction string

	scale  Scale
	grabX1 time.Time
}

// NewTimescale is the factory for model.TypeTimescale. Properties: tz
// (IANA name, default UTC), resolution and grabAction.
func NewTimescale(spec model.BandSpec, host render.Host) (render.Band, error) {
	b := &Timescale{Base: render.NewBase(spec, host), style: DefaultTimescaleStyle()}
	if err := render.DecodeStyle(spec.Style, &b.style); err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(spec.Property("tz", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("property tz: %w", err)
	}
	b.loc = loc

	if b.resolution, err = ParseScale(spec.Property("resolution", "auto")); err != nil {
		return nil, fmt.Errorf("property resolution: %w", err)
	}

	switch a := spec.Property("grabAction", GrabPan); a {
	case GrabPan, GrabSelect:
		b.grabAction = a
	default:
		return nil, fmt.Errorf("property grabAction %q: want pan or select", a)
	}
	b.SetHeight(b.style.LineHeight)
	return b, nil
}

// Scale returns the scale chosen by the last layout.
func (b *Timescale) Scale() Scale { return b.scale }

func (b *Timescale) Interactive() bool {
	return b.grabAction == GrabSelect || b.Base.Interactive()
}

func (b *Timescale) bgID() string { return b.Spec().ID + "/bg" }

func (b *Timescale) Layout(p *render.Pass) error {
	b.scale = b.resolution
	if b.scale == ScaleAuto {
		b.scale = pickScale(func(step time.Duration) bool {
			return p.Axis.Pixels(step.Seconds()) > p.Axis.DivisionWidth*2
		})
	}
	if b.grabAction == GrabSelect {
		return p.Register(b.bgID(), render.ActionClick, render.ActionGrabStart, render.ActionGrabMove, render.ActionGrabEnd)
	}
	return nil
}

// pickScale returns the finest scale whose step spreads wide enough.
func pickScale(spreads func(step time.Duration) bool) Scale {
	switch {
	case spreads(time.Hour):
		return ScaleHour
	case spreads(6 * time.Hour):
		return ScaleQuarterDay
	case spreads(24 * time.Hour):
		return ScaleDay
	case spreads(5 * 24 * time.Hour):
		return ScaleWeek
	}
	return ScaleMonth
}

func (b *Timescale) RenderViewport(p *render.Pass, g *scene.Group) error {
	lh := b.style.LineHeight
	bg := &scene.Rect{
		ID: b.bgID(), W: p.LoadWidth, H: lh,
		Style: scene.Style{
			Fill:        "none",
			Stroke:      b.style.HorizontalTickLineColor,
			StrokeWidth: b.style.HorizontalTickLineWidth,
		},
	}
	if b.style.BandBackgroundColor != "" {
		bg.Style.Fill = b.style.BandBackgroundColor
	}
	if b.grabAction == GrabSelect {
		bg.Style.Cursor = "col-resize"
	} else {
		bg.Style.PointerEvents = "none"
	}
	g.Add(bg)

	switch b.scale {
	case ScaleHour:
		b.hours(p, g)
	case ScaleQuarterDay:
		b.quarterDays(p, g)
	case ScaleDay:
		b.weekDays(p, g)
	case ScaleWeek:
		b.weeks(p, g)
	default:
		b.months(p, g)
	}
	return nil
}

func (b *Timescale) tick(x, y1, y2 float64, color string, width float64) *scene.Line {
	return &scene.Line{
		X1: x, Y1: y1, X2: x, Y2: y2,
		Style: scene.Style{Stroke: color, StrokeWidth: width, PointerEvents: "none"},
	}
}

func (b *Timescale) major(x, y1, y2 float64) *scene.Line {
	return b.tick(x, y1, y2, b.style.MajorTickColor, b.style.MajorTickWidth)
}

func (b *Timescale) label(p *render.Pass, x, y float64, anchor, s string) *scene.Text {
	w, _ := p.Measurer.Measure(s, b.style.TextSize)
	return &scene.Text{
		X: x, Y: y, Width: w, Content: s,
		Style: scene.Style{
			Fill:             b.style.TextColor,
			FontSize:         b.style.TextSize,
			TextAnchor:       anchor,
			DominantBaseline: "middle",
			PointerEvents:    "none",
		},
	}
}

func (b *Timescale) hours(p *render.Pass, g *scene.Group) {
	lh := b.style.LineHeight
	t := p.Load.Start.In(b.loc)
	t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, b.loc)
	for ; !t.After(p.Load.Stop); t = t.Add(time.Hour) {
		x := p.X(t)
		w := p.Axis.Pixels(time.Hour.Seconds())
		g.Add(
			b.major(x, 0, lh),
			b.tick(x+w*0.25, lh*0.8, lh, b.style.MinorTickColor, b.style.MinorTickWidth),
			b.tick(x+w*0.5, lh*0.6, lh, b.style.MidTickColor, b.style.MidTickWidth),
			b.tick(x+w*0.75, lh*0.8, lh, b.style.MinorTickColor, b.style.MinorTickWidth),
		)
		hh := t.Format("15")
		if hh == "00" {
			g.Add(b.label(p, x+2, lh/4, "start", t.Format("Jan 02")))
			g.Add(b.label(p, x+2, lh*0.75, "start", hh))
		} else {
			g.Add(b.label(p, x+2, lh/2, "start", hh))
		}
	}
}

func (b *Timescale) quarterDays(p *render.Pass, g *scene.Group) {
	lh := b.style.LineHeight
	t := startOfDay(p.Load.Start, b.loc)
	for !t.After(p.Load.Stop) {
		x := p.X(t)
		hh := t.Format("15")
		if hh == "00" {
			g.Add(b.major(x, 0, lh))
			g.Add(b.label(p, x+2, lh/4, "start", t.Format("Mon 02/01")))
		} else {
			g.Add(b.major(x, lh/2, lh))
		}
		// Wall-clock stepping keeps labels on 00, 06, 12, 18 across DST.
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+6, 0, 0, 0, b.loc)
		x2 := p.X(t)
		g.Add(b.label(p, (x+x2)/2+2, lh*0.75, "middle", hh))
	}
}

func (b *Timescale) weekDays(p *render.Pass, g *scene.Group) {
	lh := b.style.LineHeight
	t := startOfWeek(p.Load.Start, b.loc)
	for !t.After(p.Load.Stop) {
		x := p.X(t)
		if t.Weekday() == time.Monday {
			g.Add(b.major(x, 0, lh))
			g.Add(b.label(p, x+2, lh/4, "start", t.Format("02 Jan, '06")))
		} else {
			g.Add(b.major(x, lh/2, lh))
		}
		day := t.Weekday().String()[:1]
		t = t.AddDate(0, 0, 1)
		x2 := p.X(t)
		g.Add(b.label(p, x+(x2-x)/2, lh*0.75, "middle", day))
	}
}

func (b *Timescale) weeks(p *render.Pass, g *scene.Group) {
	lh := b.style.LineHeight
	for t := startOfMonth(p.Load.Start, b.loc); !t.After(p.Load.Stop); t = t.AddDate(0, 1, 0) {
		x := p.X(t)
		g.Add(b.major(x, 0, lh/2))
		g.Add(b.label(p, x+2, lh/4, "start", t.Format("January")))
	}
	t := startOfWeek(p.Load.Start, b.loc)
	for !t.After(p.Load.Stop) {
		x := p.X(t)
		label := t.Format("02/01")
		g.Add(b.major(x, lh/2, lh))
		t = t.AddDate(0, 0, 7)
		x2 := p.X(t)
		g.Add(b.label(p, (x+x2)/2+2, lh*0.75, "middle", label))
	}
}

func (b *Timescale) months(p *render.Pass, g *scene.Group) {
	lh := b.style.LineHeight
	start := p.Load.Start.In(b.loc)
	t := time.Date(start.Year(), time.January, 1, 0, 0, 0, 0, b.loc)
	for !t.After(p.Load.Stop) {
		x := p.X(t)
		label := t.Format("Jan")
		if t.Month() == time.January {
			g.Add(b.major(x, 0, lh))
			g.Add(b.label(p, x+2, lh/4, "start", t.Format("2006")))
		} else {
			g.Add(b.major(x, lh/2, lh))
		}
		t = t.AddDate(0, 1, 0)
		x2 := p.X(t)
		g.Add(b.label(p, (x+x2)/2+2, lh*0.75, "middle", label))
	}
}

func (b *Timescale) OnAction(a render.Action) {
	if a.Target != b.bgID() {
		b.Base.OnAction(a)
		return
	}
	host := b.Host()
	ev := render.Event{Band: b.Spec().ID, Date: a.Date, X: a.Point.X, Screen: a.Screen}
	switch a.Type {
	case render.ActionClick:
		host.ClearSelection()
		return
	case render.ActionGrabStart:
		ev.Kind = render.EventGrabStart
		b.grabX1 = a.Date
		host.ClearSelection()
	case render.ActionGrabMove, render.ActionGrabEnd:
		ev.Kind = render.EventGrabMove
		if !b.grabX1.IsZero() {
			host.SelectRange(b.grabX1, a.Date)
		}
		if a.Type == render.ActionGrabEnd {
			ev.Kind = render.EventGrabEnd
			b.grabX1 = time.Time{}
		}
	default:
		return
	}
	host.Emit(ev)
}

func (s Scale) String() string {
	for name, v := range scaleNames {
		if v == s {
			return name
		}
	}
	return fmt.Sprintf("Scale(%d)", int(s))
}

// ParseScale parses a resolution name.
func ParseScale(s string) (Scale, error) {
	if v, ok := scaleNames[strings.TrimSpace(s)]; ok {
		return v, nil
	}
	return ScaleAuto, fmt.Errorf("unknown scale %q", s)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// startOfWeek returns the Monday starting t's week.
func startOfWeek(t time.Time, loc *time.Location) time.Time {
	d := startOfDay(t, loc)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}
