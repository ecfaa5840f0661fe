package render

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/daviddao/tlview/pkg/scene"
	"github.com/daviddao/tlview/pkg/timeaxis"
)

// Layer names a scene layer.
type Layer string

// Layers in paint order.
const (
	LayerUnderlayXY        Layer = "underlay-xy"
	LayerUnderlayX         Layer = "underlay-x"
	LayerUnderlayY         Layer = "underlay-y"
	LayerBodyViewport      Layer = "body-viewport"
	LayerHeaderViewport    Layer = "header-viewport"
	LayerOverlayXY         Layer = "overlay-xy"
	LayerOverlayX          Layer = "overlay-x"
	LayerOverlayY          Layer = "overlay-y"
	LayerSidebarBackground Layer = "sidebar-bg"
	LayerBodySidebar       Layer = "body-sidebar"
	LayerHeaderSidebar     Layer = "header-sidebar"
)

// OverlayLayers are the layers passed to Band.RenderOverlay.
var OverlayLayers = []Layer{
	LayerUnderlayXY, LayerUnderlayX, LayerUnderlayY,
	LayerOverlayXY, LayerOverlayX, LayerOverlayY,
}

// Theme holds the composer's own colours and measures.
type Theme struct {
	SidebarBackground string  `yaml:"sidebarBackground"`
	SidebarForeground string  `yaml:"sidebarForeground"`
	DividerColor      string  `yaml:"dividerColor"`
	DividerHeight     float64 `yaml:"dividerHeight"`
	FontSize          float64 `yaml:"fontSize"`
}

// DefaultTheme returns the built-in theme.
func DefaultTheme() Theme {
	return Theme{
		SidebarBackground: "#f2f2f2",
		SidebarForeground: "#333333",
		DividerColor:      "#dddddd",
		DividerHeight:     1,
		FontSize:          10,
	}
}

// Env is host state a pass renders against.
type Env struct {
	Now       time.Time
	Wallclock time.Time
	// Hover is the instant under the pointer, zero when outside.
	Hover     time.Time
	Selection *timeaxis.Window
	Theme     Theme
}

// Pass is the state shared by all band hooks during one Compose call.
type Pass struct {
	Env

	ID   string
	Axis timeaxis.Axis
	Load timeaxis.Window
	// Visible is the visible window including the current translation.
	Visible timeaxis.Window
	// LoadWidth is the pixel width of the load window.
	LoadWidth     float64
	ViewportWidth float64
	SidebarWidth  float64
	// Height is the scene height.
	Height   float64
	Measurer scene.Measurer

	// viewportOrigin shifts load-window x to viewport pixels.
	viewportOrigin float64
	bandTop        float64
	band           Band
	counter        int
	targets        *Targets
}

// X returns the load-window x of t.
func (p *Pass) X(t time.Time) float64 {
	return p.Axis.PointsBetween(p.Load.Start, t)
}

// Time returns the instant at load-window x.
func (p *Pass) Time(x float64) time.Time {
	return p.Axis.ToDate(x, p.Load.Start)
}

// ViewportX returns the viewport pixel of t, for layers that do not
// follow horizontal panning.
func (p *Pass) ViewportX(t time.Time) float64 {
	return p.X(t) + p.viewportOrigin
}

// VisibleX returns the load-window x range currently on screen.
func (p *Pass) VisibleX() (float64, float64) {
	return p.X(p.Visible.Start), p.X(p.Visible.Stop)
}

// BandTop returns the scene y of the current band's top edge.
func (p *Pass) BandTop() float64 { return p.bandTop }

// NextID returns an element id unique within this pass.
func (p *Pass) NextID() string {
	p.counter++
	return "e" + strconv.Itoa(p.counter)
}

// Register makes id an action target of the current band.
func (p *Pass) Register(id string, types ...ActionType) error {
	if p.band == nil {
		return fmt.Errorf("register %q outside a band hook", id)
	}
	return p.targets.Register(id, p.band, types...)
}

// DecodeStyle merges overrides onto dst, which should hold defaults. The
// overrides are round-tripped through YAML so dst's yaml tags name the
// keys; unknown keys are an error.
func DecodeStyle(overrides map[string]any, dst any) error {
	if len(overrides) == 0 {
		return nil
	}
	raw, err := yaml.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("encode style: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode style: %w", err)
	}
	return nil
}
