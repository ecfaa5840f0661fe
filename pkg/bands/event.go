package bands

import (
	"fmt"
	"strconv"

	"github.com/daviddao/tlview/pkg/model"
	"github.com/daviddao/tlview/pkg/packer"
	"github.com/daviddao/tlview/pkg/render"
	"github.com/daviddao/tlview/pkg/scene"
	"github.com/daviddao/tlview/pkg/timeaxis"
)

// OffscreenPrefix marks the title of an entry that started before the
// visible window.
const OffscreenPrefix = "◀"

// Border modes for entries.
const (
	BordersNone     = "none"
	BordersVertical = "vertical"
	BordersAll      = "all"
)

// EventStyle is the style of an EventBand.
type EventStyle struct {
	BackgroundColor     string  `yaml:"backgroundColor"`
	BorderColor         string  `yaml:"borderColor"`
	TextColor           string  `yaml:"textColor"`
	TextSize            float64 `yaml:"textSize"`
	TextAlign           string  `yaml:"textAlign"`
	Borders             string  `yaml:"borders"`
	CornerRadius        float64 `yaml:"cornerRadius"`
	EventLeftMargin     float64 `yaml:"eventLeftMargin"`
	LineHeight          float64 `yaml:"lineHeight"`
	SpaceBetween        float64 `yaml:"spaceBetween"`
	LineSpacing         float64 `yaml:"lineSpacing"`
	MarginTop           float64 `yaml:"marginTop"`
	MarginBottom        float64 `yaml:"marginBottom"`
	HatchColor          string  `yaml:"hatchColor"`
	HighlightOpacity    float64 `yaml:"highlightOpacity"`
	HighlightCursor     string  `yaml:"highlightCursor"`
	BandBackgroundColor string  `yaml:"bandBackgroundColor"`
}

// DefaultEventStyle returns the EventBand defaults.
func DefaultEventStyle() EventStyle {
	return EventStyle{
		BackgroundColor:  "#529bff",
		BorderColor:      "#0a56bc",
		TextColor:        "#1c4b8b",
		TextSize:         scene.DefaultFontSize,
		TextAlign:        "left",
		Borders:          BordersNone,
		CornerRadius:     1,
		EventLeftMargin:  5,
		LineHeight:       20,
		LineSpacing:      2,
		HatchColor:       "#e1e1e1",
		HighlightOpacity: 0.7,
		HighlightCursor:  "pointer",
	}
}

// normalizeBorders accepts the boolean spellings used in band files.
func normalizeBorders(s string) (string, error) {
	switch s {
	case "", "false", BordersNone:
		return BordersNone, nil
	case "true", BordersAll:
		return BordersAll, nil
	case BordersVertical:
		return BordersVertical, nil
	}
	return "", fmt.Errorf("borders %q: want none, vertical or all", s)
}

// drawInfo is the per-pass layout record of one entry, kept outside the
// caller's entry.
type drawInfo struct {
	entry          int
	id             string
	startX, stopX  float64
	milestone      bool
	textOutside    bool
	offscreenStart bool
	title          string
	titleWidth     float64
	lane           int
}

type dragState struct {
	entry int
	delta scene.Point
}

// EventBand draws entries as boxes and milestones as diamonds, spread
// over as many lanes as needed to avoid overlap.
type EventBand struct {
	render.Base
	style EventStyle

	hatchUncovered bool
	leak           bool
	wrap           bool
	resizable      bool

	axis    timeaxis.Axis
	metrics packer.Metrics
	drawn   []drawInfo
	lanes   [][]int
	byID    map[string]int
	hovered int
	drag    *dragState
}

// NewEventBand is the factory for model.TypeEventBand.
func NewEventBand(spec model.BandSpec, host render.Host) (render.Band, error) {
	b := &EventBand{Base: render.NewBase(spec, host), style: DefaultEventStyle(), hovered: -1}
	if err := render.DecodeStyle(spec.Style, &b.style); err != nil {
		return nil, err
	}
	borders, err := normalizeBorders(b.style.Borders)
	if err != nil {
		return nil, err
	}
	b.style.Borders = borders

	for _, opt := range []struct {
		key      string
		fallback bool
		dst      *bool
	}{
		{"hatchUncovered", false, &b.hatchUncovered},
		{"leakEventBackground", false, &b.leak},
		{"wrap", true, &b.wrap},
		{"resizable", true, &b.resizable},
	} {
		if *opt.dst, err = boolProperty(spec, opt.key, opt.fallback); err != nil {
			return nil, err
		}
	}
	for i, e := range spec.Entries {
		if e.Start.IsZero() {
			return nil, fmt.Errorf("entry %d: %w: missing start", i, timeaxis.ErrInvalidTimeInput)
		}
		if !e.Stop.IsZero() && e.Stop.Before(e.Start) {
			return nil, fmt.Errorf("entry %d: %w: stop before start", i, timeaxis.ErrInvalidTimeInput)
		}
		if _, err := normalizeBorders(e.Borders); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	b.metrics = packer.Metrics{
		MarginTop:    b.style.MarginTop,
		MarginBottom: b.style.MarginBottom,
		LineHeight:   b.style.LineHeight,
		LineSpacing:  b.style.LineSpacing,
	}
	return b, nil
}

// Style returns the effective style.
func (b *EventBand) Style() EventStyle { return b.style }

// Lanes returns the entry indexes per lane of the last layout.
func (b *EventBand) Lanes() [][]int {
	out := make([][]int, len(b.lanes))
	for i, lane := range b.lanes {
		out[i] = make([]int, len(lane))
		for j, k := range lane {
			out[i][j] = b.drawn[k].entry
		}
	}
	return out
}

func (b *EventBand) entryID(i int) string {
	return b.Spec().ID + "/" + strconv.Itoa(i)
}

func (b *EventBand) Layout(p *render.Pass) error {
	spec := b.Spec()
	lh := b.style.LineHeight
	b.axis = p.Axis
	b.drawn = b.drawn[:0]
	b.byID = make(map[string]int)

	for i, e := range spec.Entries {
		milestone := e.IsMilestone()
		start, stop := e.Start, e.End()
		if !p.Load.Overlaps(start, stop) {
			continue
		}
		d := drawInfo{entry: i, id: b.entryID(i), milestone: milestone, title: e.Title}
		if milestone {
			d.startX = p.X(start) - lh/2
			d.stopX = d.startX + lh
			if e.Title != "" {
				d.titleWidth, _ = p.Measurer.Measure(e.Title, b.style.TextSize)
				d.stopX += d.titleWidth + b.style.EventLeftMargin
			}
			d.textOutside = true
		} else {
			d.startX = p.X(start)
			d.stopX = p.X(stop)
			d.offscreenStart = start.Before(p.Visible.Start) && stop.After(p.Visible.Start)
			if d.title != "" && d.offscreenStart {
				d.title = OffscreenPrefix + d.title
			}
			d.titleWidth, _ = p.Measurer.Measure(d.title, b.style.TextSize)
			available := d.stopX - d.startX
			if d.offscreenStart {
				available = d.stopX - p.X(p.Visible.Start)
			}
			if b.wrap && d.title != "" && available < d.titleWidth {
				d.stopX += d.titleWidth + b.style.EventLeftMargin
				d.textOutside = true
			}
		}

		if b.Interactive() {
			types := []render.ActionType{
				render.ActionClick, render.ActionContextMenu,
				render.ActionMouseEnter, render.ActionMouseMove, render.ActionMouseLeave,
			}
			if spec.Draggable {
				types = append(types, render.ActionGrabStart, render.ActionGrabMove, render.ActionGrabEnd)
			}
			if err := p.Register(d.id, types...); err != nil {
				return err
			}
		}
		b.byID[d.id] = i
		b.drawn = append(b.drawn, d)
	}

	items := make([]packer.Item, len(b.drawn))
	for i, d := range b.drawn {
		items[i] = packer.Item{StartX: d.startX, StopX: d.stopX, Milestone: d.milestone}
	}
	layout := packer.Pack(items, b.style.SpaceBetween)
	for i := range b.drawn {
		b.drawn[i].lane = layout.LaneOf[i]
	}
	b.lanes = layout.Lanes
	b.SetHeight(b.metrics.Height(len(layout.Lanes)))
	return nil
}

func (b *EventBand) hatchID() string { return "hatch-" + b.Spec().ID }

func (b *EventBand) RenderDefs(p *render.Pass, defs *scene.Group) error {
	if b.hatchUncovered {
		defs.Add(hatchPattern(b.hatchID(), b.style.HatchColor))
	}
	return nil
}

func (b *EventBand) RenderBackground(p *render.Pass, g *scene.Group) error {
	if b.style.BandBackgroundColor != "" {
		g.Add(&scene.Rect{
			W: p.LoadWidth, H: b.Height(),
			Style: scene.Style{Fill: b.style.BandBackgroundColor, PointerEvents: "none"},
		})
	}
	if b.hatchUncovered {
		g.Add(&scene.Rect{
			W: p.LoadWidth, H: b.Height(),
			Style: scene.Style{Fill: "url(#" + b.hatchID() + ")", PointerEvents: "none"},
		})
	}
	return nil
}

func (b *EventBand) RenderViewport(p *render.Pass, g *scene.Group) error {
	entries := b.Spec().Entries
	for _, lane := range b.lanes {
		for _, k := range lane {
			d := b.drawn[k]
			e := entries[d.entry]
			y := b.metrics.LaneY(d.lane)
			var eg *scene.Group
			if d.milestone {
				eg = b.milestone(p, d, e, y)
			} else {
				eg = b.event(p, d, e, y)
			}
			if b.Interactive() {
				eg.Style.Cursor = b.style.HighlightCursor
				if d.entry == b.hovered {
					eg.Style.Opacity = b.style.HighlightOpacity
				}
			}
			if b.drag != nil && b.drag.entry == d.entry {
				eg.Offset = b.drag.delta
			}
			g.Add(eg)
		}
	}
	return nil
}

func (b *EventBand) colors(e model.Entry) (bg, fg, border, borders string) {
	bg, fg, border = b.style.BackgroundColor, b.style.TextColor, b.style.BorderColor
	if e.BackgroundColor != "" {
		bg = e.BackgroundColor
	}
	if e.ForegroundColor != "" {
		fg = e.ForegroundColor
	}
	if e.BorderColor != "" {
		border = e.BorderColor
	}
	borders = b.style.Borders
	if e.Borders != "" {
		borders, _ = normalizeBorders(e.Borders)
	}
	return bg, fg, border, borders
}

func (b *EventBand) textStyle(fg string) scene.Style {
	return scene.Style{
		Fill:             fg,
		FontSize:         b.style.TextSize,
		TextAnchor:       "start",
		DominantBaseline: "middle",
		PointerEvents:    "none",
	}
}

func (b *EventBand) milestone(p *render.Pass, d drawInfo, e model.Entry, y float64) *scene.Group {
	lh := b.style.LineHeight
	r := lh / 2
	x := p.X(e.Start)
	bg, fg, border, borders := b.colors(e)

	g := &scene.Group{ID: d.id, Title: e.Tooltip}
	diamond := &scene.Path{
		D:     fmt.Sprintf("M%s,%s l%s,%s l%s,%s l%s,%s l%s,%s", num(x), num(y), num(r), num(r), num(-r), num(r), num(-r), num(-r), num(r), num(-r)),
		Box:   scene.Box{X: x - r, Y: y, W: lh, H: lh},
		Style: scene.Style{Fill: bg, StrokeWidth: 1},
	}
	if borders == BordersAll {
		diamond.Style.Stroke = border
	}
	g.Add(diamond)

	if e.Title != "" {
		textX := x + r + b.style.EventLeftMargin
		// Catches the pointer over the full line height next to the label.
		g.Add(&scene.Rect{X: textX, Y: y, W: d.titleWidth, H: lh, Style: scene.Style{Fill: "none"}})
		g.Add(&scene.Text{X: textX, Y: y + r, Width: d.titleWidth, Content: e.Title, Style: b.textStyle(fg)})
	}
	return g
}

func (b *EventBand) event(p *render.Pass, d drawInfo, e model.Entry, y float64) *scene.Group {
	lh := b.style.LineHeight
	x := p.X(e.Start)
	w := p.Axis.PointsBetween(e.Start, e.End())
	bg, fg, border, borders := b.colors(e)

	g := &scene.Group{ID: d.id, Title: e.Tooltip}
	rect := &scene.Rect{X: x, Y: y, W: w, H: lh, RX: b.style.CornerRadius, Style: scene.Style{Fill: bg}}
	g.Add(rect)
	switch borders {
	case BordersAll:
		rect.Style.Stroke = border
		rect.Style.StrokeWidth = 1
	case BordersVertical:
		g.Add(&scene.Path{
			D:     fmt.Sprintf("M%s,%s l0,%s M%s,%s l0,%s", num(x), num(y), num(lh), num(x+w), num(y), num(lh)),
			Box:   scene.Box{X: x, Y: y, W: w, H: lh},
			Style: scene.Style{Fill: "none", Stroke: border, StrokeWidth: 1, PointerEvents: "none"},
		})
	}

	if d.title != "" {
		switch {
		case d.textOutside:
			textX := x + w + b.style.EventLeftMargin
			g.Add(&scene.Rect{X: textX, Y: y, W: d.titleWidth, H: lh, Style: scene.Style{Fill: "none"}})
			g.Add(&scene.Text{X: textX, Y: y + lh/2, Width: d.titleWidth, Content: d.title, Style: b.textStyle(fg)})
		default:
			clipID := p.NextID()
			g.Add(&scene.ClipPath{ID: clipID, Children: []scene.Node{&scene.Rect{X: x, Y: y, W: w, H: lh}}})
			textX := x
			if d.offscreenStart {
				visStart, _ := p.VisibleX()
				textX = max(textX, visStart)
			}
			st := b.textStyle(fg)
			st.ClipPath = clipID
			align := b.style.TextAlign
			if e.TextAlign != "" {
				align = e.TextAlign
			}
			if align == "center" && !d.offscreenStart {
				st.TextAnchor = "middle"
				g.Add(&scene.Text{X: textX + w/2, Y: y + lh/2, Width: d.titleWidth, Content: d.title, Style: st})
			} else {
				g.Add(&scene.Text{X: textX + b.style.EventLeftMargin, Y: y + lh/2, Width: d.titleWidth, Content: d.title, Style: st})
			}
		}
	}

	if b.Spec().Draggable && b.resizable {
		handle := func(cx float64, cursor string) *scene.Ellipse {
			return &scene.Ellipse{
				CX: cx, CY: y + lh/2, RX: 3, RY: 3,
				Style: scene.Style{Fill: "white", Stroke: "black", StrokeWidth: 0.5, Cursor: cursor},
			}
		}
		g.Add(handle(x, "w-resize"), handle(x+w, "e-resize"))
	}
	return g
}

// RenderOverlay leaks entry colours across the full height when enabled.
func (b *EventBand) RenderOverlay(p *render.Pass, layer render.Layer, g *scene.Group) error {
	if !b.leak || layer != render.LayerOverlayX {
		return nil
	}
	top, bottom := -p.BandTop(), p.Height-p.BandTop()
	for _, d := range b.drawn {
		e := b.Spec().Entries[d.entry]
		bg, _, _, _ := b.colors(e)
		x := p.X(e.Start)
		if d.milestone {
			g.Add(&scene.Line{
				X1: x, Y1: top, X2: x, Y2: bottom,
				Style: scene.Style{Stroke: bg, StrokeWidth: 1, Opacity: 0.3, PointerEvents: "none"},
			})
			continue
		}
		g.Add(&scene.Rect{
			X: x, Y: top, W: p.Axis.PointsBetween(e.Start, e.End()), H: bottom - top,
			Style: scene.Style{Fill: bg, FillOpacity: 0.1, PointerEvents: "none"},
		})
	}
	return nil
}

func (b *EventBand) OnAction(a render.Action) {
	idx, ok := b.byID[a.Target]
	if !ok {
		b.Base.OnAction(a)
		return
	}
	entry := b.Spec().Entries[idx]
	host := b.Host()
	ev := render.Event{Band: b.Spec().ID, Entry: &entry, Date: a.Date, X: a.Point.X, Screen: a.Screen}

	switch a.Type {
	case render.ActionClick:
		ev.Kind = render.EventClick
	case render.ActionContextMenu:
		ev.Kind = render.EventContextMenu
	case render.ActionMouseEnter:
		ev.Kind = render.EventMouseEnter
		b.hovered = idx
		host.Invalidate()
	case render.ActionMouseMove:
		ev.Kind = render.EventMouseMove
	case render.ActionMouseLeave:
		ev.Kind = render.EventMouseLeave
		if b.hovered == idx {
			b.hovered = -1
		}
		host.Invalidate()
	case render.ActionGrabStart:
		ev.Kind = render.EventGrabStart
		b.drag = &dragState{entry: idx}
		host.Invalidate()
	case render.ActionGrabMove:
		if b.drag == nil {
			return
		}
		ev.Kind = render.EventGrabMove
		b.drag.delta = a.Point.Sub(a.Origin)
		host.Invalidate()
	case render.ActionGrabEnd:
		if b.drag == nil {
			return
		}
		b.drag = nil
		host.Invalidate()
		shift := timeaxis.Duration(b.axis.Seconds(a.Point.X - a.Origin.X))
		changed := entry
		changed.Start = entry.Start.Add(shift)
		if !entry.Stop.IsZero() {
			changed.Stop = entry.Stop.Add(shift)
		}
		moved := ev
		moved.Kind = render.EventChanged
		moved.Entry = &changed
		moved.Start, moved.Stop = changed.Start, changed.End()
		host.Emit(moved)
		// grabEnd carries the entry as it was before the drag.
		ev.Kind = render.EventGrabEnd
	default:
		return
	}
	host.Emit(ev)
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
