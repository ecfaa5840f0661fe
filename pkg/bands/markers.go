package bands

import (
	"fmt"
	"time"

	"github.com/daviddao/tlview/pkg/model"
	"github.com/daviddao/tlview/pkg/render"
	"github.com/daviddao/tlview/pkg/scene"
	"github.com/daviddao/tlview/pkg/timeaxis"
)

// SpacerStyle is the style of a Spacer.
type SpacerStyle struct {
	Height          float64 `yaml:"height"`
	BackgroundColor string  `yaml:"backgroundColor"`
}

// Spacer is an empty band of fixed height.
type Spacer struct {
	render.Base
	style SpacerStyle
}

// NewSpacer is the factory for model.TypeSpacer.
func NewSpacer(spec model.BandSpec, host render.Host) (render.Band, error) {
	b := &Spacer{Base: render.NewBase(spec, host), style: SpacerStyle{Height: 20}}
	if err := render.DecodeStyle(spec.Style, &b.style); err != nil {
		return nil, err
	}
	if b.style.Height < 0 {
		return nil, fmt.Errorf("spacer height %v is negative", b.style.Height)
	}
	b.SetHeight(b.style.Height)
	return b, nil
}

func (b *Spacer) RenderBackground(p *render.Pass, g *scene.Group) error {
	if b.style.BackgroundColor != "" {
		g.Add(&scene.Rect{
			W: p.LoadWidth, H: b.Height(),
			Style: scene.Style{Fill: b.style.BackgroundColor, PointerEvents: "none"},
		})
	}
	return nil
}

// LineStyle styles a vertical marker line.
type LineStyle struct {
	LineColor string  `yaml:"lineColor"`
	LineWidth float64 `yaml:"lineWidth"`
	LineDash  string  `yaml:"lineDash"`
}

// fullHeightLine draws a marker at load-window x across the whole scene,
// for a group placed at the band top.
func fullHeightLine(p *render.Pass, x float64, s LineStyle) *scene.Line {
	return &scene.Line{
		X1: x, Y1: -p.BandTop(), X2: x, Y2: p.Height - p.BandTop(),
		Style: scene.Style{
			Stroke:        s.LineColor,
			StrokeWidth:   s.LineWidth,
			StrokeDash:    s.LineDash,
			PointerEvents: "none",
		},
	}
}

// WallclockLocator marks the wallclock time, falling back to the pass
// clock when no wallclock time was set.
type WallclockLocator struct {
	render.Base
	style LineStyle
}

// NewWallclockLocator is the factory for model.TypeWallclockLocator.
func NewWallclockLocator(spec model.BandSpec, host render.Host) (render.Band, error) {
	b := &WallclockLocator{Base: render.NewBase(spec, host), style: LineStyle{LineColor: "red", LineWidth: 1}}
	if err := render.DecodeStyle(spec.Style, &b.style); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *WallclockLocator) RenderOverlay(p *render.Pass, layer render.Layer, g *scene.Group) error {
	t := p.Wallclock
	if t.IsZero() {
		t = p.Now
	}
	if layer != render.LayerOverlayX || t.IsZero() || !p.Load.Overlaps(t, t) {
		return nil
	}
	g.Add(fullHeightLine(p, p.X(t), b.style))
	return nil
}

// LocationTracker follows the pointer with a vertical line.
type LocationTracker struct {
	render.Base
	style LineStyle
}

// NewLocationTracker is the factory for model.TypeLocationTracker.
func NewLocationTracker(spec model.BandSpec, host render.Host) (render.Band, error) {
	b := &LocationTracker{
		Base:  render.NewBase(spec, host),
		style: LineStyle{LineColor: "#999999", LineWidth: 1, LineDash: "4 3"},
	}
	if err := render.DecodeStyle(spec.Style, &b.style); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *LocationTracker) RenderOverlay(p *render.Pass, layer render.Layer, g *scene.Group) error {
	if layer != render.LayerOverlayX || p.Hover.IsZero() {
		return nil
	}
	g.Add(fullHeightLine(p, p.X(p.Hover), b.style))
	return nil
}

// SelectionStyle is the style of a HorizontalSelection.
type SelectionStyle struct {
	FillColor   string  `yaml:"fillColor"`
	FillOpacity float64 `yaml:"fillOpacity"`
	LineColor   string  `yaml:"lineColor"`
	LineWidth   float64 `yaml:"lineWidth"`
}

// HorizontalSelection shades the selected range.
type HorizontalSelection struct {
	render.Base
	style SelectionStyle
}

// NewHorizontalSelection is the factory for model.TypeHorizontalSelection.
func NewHorizontalSelection(spec model.BandSpec, host render.Host) (render.Band, error) {
	b := &HorizontalSelection{
		Base: render.NewBase(spec, host),
		style: SelectionStyle{
			FillColor:   "#4b9aff",
			FillOpacity: 0.2,
			LineColor:   "#4b9aff",
			LineWidth:   1,
		},
	}
	if err := render.DecodeStyle(spec.Style, &b.style); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *HorizontalSelection) RenderOverlay(p *render.Pass, layer render.Layer, g *scene.Group) error {
	if layer != render.LayerOverlayX || p.Selection == nil {
		return nil
	}
	x1, x2 := p.X(p.Selection.Start), p.X(p.Selection.Stop)
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	top, h := -p.BandTop(), p.Height
	edge := scene.Style{Stroke: b.style.LineColor, StrokeWidth: b.style.LineWidth, PointerEvents: "none"}
	g.Add(
		&scene.Rect{
			X: x1, Y: top, W: x2 - x1, H: h,
			Style: scene.Style{Fill: b.style.FillColor, FillOpacity: b.style.FillOpacity, PointerEvents: "none"},
		},
		&scene.Line{X1: x1, Y1: top, X2: x1, Y2: top + h, Style: edge},
		&scene.Line{X1: x2, Y1: top, X2: x2, Y2: top + h, Style: edge},
	)
	return nil
}

// NoDataZone hatches the parts of the load window outside the data window
// given by the start and stop properties. Either bound may be omitted.
type NoDataZone struct {
	render.Base
	color       string
	start, stop time.Time
}

// NewNoDataZone is the factory for model.TypeNoDataZone.
func NewNoDataZone(spec model.BandSpec, host render.Host) (render.Band, error) {
	b := &NoDataZone{Base: render.NewBase(spec, host), color: "#d9d9d9"}
	var style struct {
		HatchColor string `yaml:"hatchColor"`
	}
	if err := render.DecodeStyle(spec.Style, &style); err != nil {
		return nil, err
	}
	if style.HatchColor != "" {
		b.color = style.HatchColor
	}
	for key, dst := range map[string]*time.Time{"start": &b.start, "stop": &b.stop} {
		v := spec.Property(key, "")
		if v == "" {
			continue
		}
		t, err := timeaxis.ParseInstant(v)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", key, err)
		}
		*dst = t
	}
	if !b.start.IsZero() && !b.stop.IsZero() && b.stop.Before(b.start) {
		return nil, fmt.Errorf("%w: no-data stop before start", timeaxis.ErrInvalidTimeInput)
	}
	return b, nil
}

func (b *NoDataZone) patternID() string { return "nodata-" + b.Spec().ID }

func (b *NoDataZone) RenderDefs(p *render.Pass, defs *scene.Group) error {
	defs.Add(hatchPattern(b.patternID(), b.color))
	return nil
}

func (b *NoDataZone) RenderOverlay(p *render.Pass, layer render.Layer, g *scene.Group) error {
	if layer != render.LayerUnderlayX {
		return nil
	}
	fill := scene.Style{Fill: "url(#" + b.patternID() + ")", PointerEvents: "none"}
	top := -p.BandTop()
	if !b.start.IsZero() && b.start.After(p.Load.Start) {
		g.Add(&scene.Rect{Y: top, W: min(p.X(b.start), p.LoadWidth), H: p.Height, Style: fill})
	}
	if !b.stop.IsZero() && b.stop.Before(p.Load.Stop) {
		x := max(p.X(b.stop), 0)
		g.Add(&scene.Rect{X: x, Y: top, W: p.LoadWidth - x, H: p.Height, Style: fill})
	}
	return nil
}
