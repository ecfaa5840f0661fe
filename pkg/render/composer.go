package render

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/daviddao/tlview/pkg/model"
	"github.com/daviddao/tlview/pkg/scene"
	"github.com/daviddao/tlview/pkg/viewport"
)

// Options configure a Composer.
type Options struct {
	// Height is the scene height. Zero sizes the scene to its content.
	Height float64
	// Reduce rasterizes the foreground of non-interactive bands into one
	// image per band.
	Reduce   bool
	Measurer scene.Measurer
	Logger   *slog.Logger
}

// Composer runs render passes over a set of bands.
type Composer struct {
	registry *Registry
	vp       *viewport.Controller
	opts     Options
	log      *slog.Logger

	bands   []Band
	targets *Targets
	last    *scene.Scene
}

// NewComposer returns a composer drawing through vp.
func NewComposer(reg *Registry, vp *viewport.Controller, opts Options) *Composer {
	if opts.Measurer == nil {
		opts.Measurer = scene.NewFontMeasurer()
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Composer{registry: reg, vp: vp, opts: opts, log: log, targets: NewTargets()}
}

// SetBands instantiates a band per spec. On error the previous bands are
// kept. Specs without an id get one from their position.
func (c *Composer) SetBands(specs []model.BandSpec, host Host) error {
	bands := make([]Band, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for i, spec := range specs {
		if spec.ID == "" {
			spec.ID = fmt.Sprintf("band-%d", i)
		}
		if seen[spec.ID] {
			return fmt.Errorf("duplicate band id %q", spec.ID)
		}
		seen[spec.ID] = true
		b, err := c.registry.New(spec, host)
		if err != nil {
			return err
		}
		bands = append(bands, b)
	}
	c.bands = bands
	return nil
}

// Bands returns the current bands.
func (c *Composer) Bands() []Band { return c.bands }

// Targets returns the action targets of the last successful pass.
func (c *Composer) Targets() *Targets { return c.targets }

// Scene returns the last successfully composed scene, or nil.
func (c *Composer) Scene() *scene.Scene { return c.last }

// SetHeight changes the scene height.
func (c *Composer) SetHeight(h float64) { c.opts.Height = h }

var layerProjections = map[Layer]viewport.Projection{
	LayerUnderlayXY:     viewport.ProjectXY,
	LayerUnderlayX:      viewport.ProjectX,
	LayerUnderlayY:      viewport.ProjectY,
	LayerBodyViewport:   viewport.ProjectXY,
	LayerHeaderViewport: viewport.ProjectX,
	LayerOverlayXY:      viewport.ProjectXY,
	LayerOverlayX:       viewport.ProjectX,
	LayerOverlayY:       viewport.ProjectY,
	LayerBodySidebar:    viewport.ProjectY,
}

// Reproject updates the layer translations of the current scene from the
// viewport without running a pass. Used while panning.
func (c *Composer) Reproject() {
	if c.last == nil {
		return
	}
	for _, l := range c.last.Layers {
		if proj, ok := layerProjections[Layer(l.Name)]; ok {
			l.Translate = c.vp.Projection(proj)
		}
	}
}

type section struct {
	bands    []Band
	top      float64
	tops     []float64
	viewport Layer
	sidebar  Layer
}

// Compose runs one pass. A failing or panicking band hook aborts the pass:
// the error wraps ErrRenderAborted and the previous scene and targets stay
// current.
func (c *Composer) Compose(env Env) (sc *scene.Scene, err error) {
	started := time.Now()
	targets := NewTargets()
	p := &Pass{
		Env:            env,
		ID:             uuid.NewString(),
		Axis:           c.vp.Axis(),
		Load:           c.vp.Load(),
		Visible:        c.vp.Visible(),
		LoadWidth:      c.vp.LoadWidth(),
		ViewportWidth:  c.vp.VisibleWidth(),
		SidebarWidth:   c.vp.SidebarWidth(),
		Measurer:       c.opts.Measurer,
		viewportOrigin: c.vp.Projection(viewport.ProjectX).X,
		targets:        targets,
	}
	if p.Theme == (Theme{}) {
		p.Theme = DefaultTheme()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: band %q panicked: %v", ErrRenderAborted, bandID(p.band), r)
		}
		if err != nil {
			sc = nil
			c.log.Error("render pass aborted",
				slog.String("pass_id", p.ID),
				slog.String("band", bandID(p.band)),
				slog.String("error", err.Error()))
		}
	}()

	for _, b := range c.bands {
		p.band = b
		if err := b.Layout(p); err != nil {
			return nil, abort(b, "layout", err)
		}
	}
	p.band = nil

	header := &section{viewport: LayerHeaderViewport, sidebar: LayerHeaderSidebar}
	body := &section{viewport: LayerBodyViewport, sidebar: LayerBodySidebar}
	for _, b := range c.bands {
		if b.Spec().Header {
			header.bands = append(header.bands, b)
		} else {
			body.bands = append(body.bands, b)
		}
	}
	headerHeight := c.stack(header, 0, p.Theme)
	bodyHeight := c.stack(body, headerHeight, p.Theme)

	height := c.opts.Height
	if height <= 0 {
		height = headerHeight + bodyHeight
	}
	p.Height = height
	sc = c.layers(p.ID, height, headerHeight)

	defs := &scene.Group{}
	for _, b := range c.bands {
		p.band = b
		if err := b.RenderDefs(p, defs); err != nil {
			return nil, abort(b, "defs", err)
		}
	}
	sc.Defs = defs.Children

	if p.SidebarWidth > 0 {
		sc.Layer(string(LayerSidebarBackground)).Add(&scene.Rect{
			W: p.SidebarWidth, H: height,
			Style: scene.Style{Fill: p.Theme.SidebarBackground},
		})
	}

	for _, s := range []*section{header, body} {
		if err := c.renderSection(p, sc, s); err != nil {
			return nil, err
		}
	}

	c.last = sc
	c.targets = targets
	c.log.Debug("render pass",
		slog.String("pass_id", p.ID),
		slog.Int("bands", len(c.bands)),
		slog.Int("primitives", sc.Count()),
		slog.Int("targets", targets.Len()),
		slog.Int64("duration_ms", time.Since(started).Milliseconds()))
	return sc, nil
}

// stack assigns band tops within s and returns its height. Every band with
// a height is followed by a divider.
func (c *Composer) stack(s *section, top float64, th Theme) float64 {
	s.top = top
	y := 0.0
	for _, b := range s.bands {
		s.tops = append(s.tops, y)
		if h := b.Height(); h > 0 {
			y += h + th.DividerHeight
		}
	}
	return y
}

func (c *Composer) layers(id string, height, headerHeight float64) *scene.Scene {
	sw, vw := c.vp.SidebarWidth(), c.vp.VisibleWidth()
	sc := &scene.Scene{ID: id, Width: c.vp.Width(), Height: height}
	area := scene.Box{X: sw, W: vw, H: height}
	headerArea := scene.Box{X: sw, W: vw, H: headerHeight}
	bodyArea := scene.Box{X: sw, Y: headerHeight, W: vw, H: height - headerHeight}

	add := func(name Layer, offset scene.Point, clip scene.Box) {
		l := &scene.Layer{Name: string(name), Offset: offset, Clip: clip}
		if proj, ok := layerProjections[name]; ok {
			l.Translate = c.vp.Projection(proj)
		}
		sc.AddLayer(l)
	}
	add(LayerUnderlayXY, scene.Point{X: sw}, area)
	add(LayerUnderlayX, scene.Point{X: sw}, area)
	add(LayerUnderlayY, scene.Point{X: sw}, area)
	add(LayerBodyViewport, scene.Point{X: sw, Y: headerHeight}, bodyArea)
	add(LayerHeaderViewport, scene.Point{X: sw}, headerArea)
	add(LayerOverlayXY, scene.Point{X: sw}, area)
	add(LayerOverlayX, scene.Point{X: sw}, area)
	add(LayerOverlayY, scene.Point{X: sw}, area)
	add(LayerSidebarBackground, scene.Point{}, scene.Box{W: sw, H: height})
	add(LayerBodySidebar, scene.Point{Y: headerHeight}, scene.Box{Y: headerHeight, W: sw, H: height - headerHeight})
	add(LayerHeaderSidebar, scene.Point{}, scene.Box{W: sw, H: headerHeight})
	return sc
}

func (c *Composer) renderSection(p *Pass, sc *scene.Scene, s *section) error {
	vpLayer := sc.Layer(string(s.viewport))
	sbLayer := sc.Layer(string(s.sidebar))

	// Backgrounds and dividers of every band before any foreground.
	for i, b := range s.bands {
		p.band, p.bandTop = b, s.top+s.tops[i]
		bg := &scene.Group{Offset: scene.Point{Y: s.tops[i]}}
		if err := b.RenderBackground(p, bg); err != nil {
			return abort(b, "background", err)
		}
		if p.Theme.DividerHeight > 0 && b.Height() > 0 {
			y := b.Height() + p.Theme.DividerHeight/2
			bg.Add(&scene.Line{
				X1: 0, Y1: y, X2: p.LoadWidth, Y2: y,
				Style: scene.Style{Stroke: p.Theme.DividerColor, StrokeWidth: p.Theme.DividerHeight, PointerEvents: "none"},
			})
		}
		vpLayer.Add(bg)

		if p.SidebarWidth > 0 {
			sb := &scene.Group{Offset: scene.Point{Y: s.tops[i]}}
			if err := b.RenderSidebar(p, sb); err != nil {
				return abort(b, "sidebar", err)
			}
			if p.Theme.DividerHeight > 0 && b.Height() > 0 {
				y := b.Height() + p.Theme.DividerHeight/2
				sb.Add(&scene.Line{
					X1: 0, Y1: y, X2: p.SidebarWidth, Y2: y,
					Style: scene.Style{Stroke: p.Theme.DividerColor, StrokeWidth: p.Theme.DividerHeight, PointerEvents: "none"},
				})
			}
			sbLayer.Add(sb)
		}
	}

	for i, b := range s.bands {
		p.band, p.bandTop = b, s.top+s.tops[i]
		fg := &scene.Group{Offset: scene.Point{Y: s.tops[i]}}
		if err := b.RenderViewport(p, fg); err != nil {
			return abort(b, "viewport", err)
		}
		if c.opts.Reduce && !b.Interactive() && len(fg.Children) > 0 {
			c.reduce(p, b, fg)
		}
		vpLayer.Add(fg)

		for _, layer := range OverlayLayers {
			g := &scene.Group{Offset: scene.Point{Y: p.bandTop}}
			if err := b.RenderOverlay(p, layer, g); err != nil {
				return abort(b, string(layer), err)
			}
			if len(g.Children) > 0 {
				sc.Layer(string(layer)).Add(g)
			}
		}
	}
	p.band = nil
	return nil
}

// reduce swaps fg's children for a single image spanning the load window.
// Placement is unchanged; on failure the vector children are kept.
func (c *Composer) reduce(p *Pass, b Band, fg *scene.Group) {
	h := b.Height()
	img, err := scene.Rasterize(fg.Children, scene.Box{W: p.LoadWidth, H: h})
	if err == nil {
		var uri string
		if uri, err = scene.DataURI(img); err == nil {
			fg.Children = []scene.Node{&scene.Image{
				W: p.LoadWidth, H: h, Href: uri,
				Style: scene.Style{PointerEvents: "none"},
			}}
			return
		}
	}
	c.log.Debug("band not reduced", slog.String("band", bandID(b)), slog.String("error", err.Error()))
}

func abort(b Band, hook string, err error) error {
	return fmt.Errorf("%w: band %q %s: %w", ErrRenderAborted, bandID(b), hook, err)
}

func bandID(b Band) string {
	if b == nil {
		return ""
	}
	return b.Spec().ID
}
