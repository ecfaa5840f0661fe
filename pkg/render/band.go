// Package render composes band contributions into a scene.
//
// Bands are looked up by type tag in a Registry and implement Band. Base
// supplies no-op hooks so a band only implements what it draws. Each call
// to Composer.Compose is one pass: bands lay out, then every band's
// background is drawn before any band's foreground. Viewport hooks author
// in load-window space; the composer places layers using the viewport's
// projections, so bands never see the translation.
package render

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/daviddao/tlview/pkg/model"
	"github.com/daviddao/tlview/pkg/scene"
)

var (
	// ErrUnknownBandType is returned when no factory matches a band spec.
	ErrUnknownBandType = errors.New("unknown band type")
	// ErrRenderAborted wraps a failing or panicking band hook.
	ErrRenderAborted = errors.New("render pass aborted")
	// ErrTargetConflict is returned when an id is registered for a second band.
	ErrTargetConflict = errors.New("action target owned by another band")
)

// Host is what bands may call back into.
type Host interface {
	Emit(e Event)
	SelectRange(start, stop time.Time)
	ClearSelection()
	// Invalidate asks for a new pass once the current input is handled.
	Invalidate()
}

// Band is one horizontal contribution to the timeline.
type Band interface {
	Spec() model.BandSpec
	// Interactive bands are never rasterized.
	Interactive() bool
	Layout(p *Pass) error
	Height() float64

	RenderDefs(p *Pass, defs *scene.Group) error
	RenderSidebar(p *Pass, g *scene.Group) error
	RenderBackground(p *Pass, g *scene.Group) error
	RenderViewport(p *Pass, g *scene.Group) error
	// RenderOverlay is called once per over/underlay layer.
	RenderOverlay(p *Pass, layer Layer, g *scene.Group) error

	OnAction(a Action)
}

// Base implements every Band hook as a no-op, except the sidebar label.
type Base struct {
	spec      model.BandSpec
	host      Host
	height    float64
	sidebarID string
}

// NewBase returns a Base for spec.
func NewBase(spec model.BandSpec, host Host) Base {
	return Base{spec: spec, host: host}
}

func (b *Base) Spec() model.BandSpec { return b.spec }
func (b *Base) Host() Host           { return b.host }
func (b *Base) Interactive() bool    { return b.spec.Interactive || b.spec.Draggable }
func (b *Base) Height() float64      { return b.height }

// SetHeight records the height computed by Layout.
func (b *Base) SetHeight(h float64) { b.height = h }

func (b *Base) Layout(p *Pass) error                           { return nil }
func (b *Base) RenderDefs(p *Pass, defs *scene.Group) error    { return nil }
func (b *Base) RenderBackground(p *Pass, g *scene.Group) error { return nil }
func (b *Base) RenderViewport(p *Pass, g *scene.Group) error   { return nil }

func (b *Base) RenderOverlay(p *Pass, layer Layer, g *scene.Group) error { return nil }

// RenderSidebar draws the band label, registered for clicks.
func (b *Base) RenderSidebar(p *Pass, g *scene.Group) error {
	b.sidebarID = ""
	if b.spec.Label == "" || b.height <= 0 {
		return nil
	}
	b.sidebarID = p.NextID()
	if err := p.Register(b.sidebarID, ActionClick); err != nil {
		return err
	}
	label := &scene.Group{ID: b.sidebarID}
	label.Add(&scene.Rect{W: p.SidebarWidth, H: b.height, Style: scene.Style{Fill: "none"}})
	w, _ := p.Measurer.Measure(b.spec.Label, p.Theme.FontSize)
	label.Add(&scene.Text{
		X:       5,
		Y:       b.height / 2,
		Width:   w,
		Content: b.spec.Label,
		Style: scene.Style{
			Fill:             p.Theme.SidebarForeground,
			FontSize:         p.Theme.FontSize,
			DominantBaseline: "middle",
			PointerEvents:    "none",
		},
	})
	g.Add(label)
	return nil
}

// OnAction handles sidebar clicks. Bands overriding OnAction should pass
// actions they do not handle here.
func (b *Base) OnAction(a Action) {
	if a.Target == b.sidebarID && a.Type == ActionClick && b.host != nil {
		b.host.Emit(Event{Kind: EventSidebarClick, Band: b.spec.ID, Screen: a.Screen})
	}
}

// Factory builds a band from its spec.
type Factory func(spec model.BandSpec, host Host) (Band, error)

// Registry maps band type tags to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for typ.
func (r *Registry) Register(typ string, f Factory) {
	r.factories[typ] = f
}

// Types returns the registered type tags, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// New instantiates the band for spec.
func (r *Registry) New(spec model.BandSpec, host Host) (Band, error) {
	f, ok := r.factories[spec.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBandType, spec.Type)
	}
	b, err := f(spec, host)
	if err != nil {
		return nil, fmt.Errorf("band %q (%s): %w", spec.ID, spec.Type, err)
	}
	return b, nil
}
