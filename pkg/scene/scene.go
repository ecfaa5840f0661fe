// Package scene is the painter-agnostic output of a render pass: an ordered
// stack of layers, each holding a tree of vector primitives.
//
// A layer has an Offset (where its origin sits in scene coordinates), a
// Translate applied inside it (the pan projection) and an optional Clip in
// scene coordinates. Hit testing walks the same transforms that painters
// apply, so pointer positions resolve to what is drawn under them.
package scene

import "math"

// Point is a 2D position or offset.
type Point struct {
	X, Y float64
}

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Box is an axis-aligned rectangle.
type Box struct {
	X, Y, W, H float64
}

// Empty reports whether b has no area.
func (b Box) Empty() bool { return b.W <= 0 || b.H <= 0 }

// Contains reports whether p lies inside b, edges included.
func (b Box) Contains(p Point) bool {
	return p.X >= b.X && p.X <= b.X+b.W && p.Y >= b.Y && p.Y <= b.Y+b.H
}

// Union returns the smallest box covering b and o. Empty boxes are ignored.
func (b Box) Union(o Box) Box {
	if b.W < 0 || b.H < 0 || (b == Box{}) {
		return o
	}
	if o.W < 0 || o.H < 0 || (o == Box{}) {
		return b
	}
	x0, y0 := math.Min(b.X, o.X), math.Min(b.Y, o.Y)
	x1, y1 := math.Max(b.X+b.W, o.X+o.W), math.Max(b.Y+b.H, o.Y+o.H)
	return Box{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Offset returns b moved by p.
func (b Box) Offset(p Point) Box { return Box{b.X + p.X, b.Y + p.Y, b.W, b.H} }

// Style carries presentation attributes. Zero values are omitted on output.
type Style struct {
	Fill        string
	FillOpacity float64
	Stroke      string
	StrokeWidth float64
	StrokeDash  string
	Opacity     float64

	FontSize   float64
	FontFamily string
	FontWeight string
	// TextAnchor is "start", "middle" or "end".
	TextAnchor       string
	DominantBaseline string

	// PointerEvents "none" removes the node from hit testing.
	PointerEvents string
	Cursor        string
	ClipPath      string
	Filter        string
}

// Hittable reports whether the node takes part in hit testing.
func (s Style) Hittable() bool { return s.PointerEvents != "none" }

// Node is a scene primitive.
type Node interface {
	NodeID() string
	NodeStyle() Style
	// Bounds is the node's extent in its parent's coordinates.
	Bounds() Box
}

// Group nests children under a translation.
type Group struct {
	ID       string
	Offset   Point
	Style    Style
	Title    string
	Children []Node
}

// Add appends children.
func (g *Group) Add(n ...Node) { g.Children = append(g.Children, n...) }

func (g *Group) NodeID() string   { return g.ID }
func (g *Group) NodeStyle() Style { return g.Style }
func (g *Group) Bounds() Box {
	var b Box
	for _, c := range g.Children {
		b = b.Union(c.Bounds())
	}
	if (b == Box{}) {
		return b
	}
	return b.Offset(g.Offset)
}

// Rect is a rectangle with optional rounded corners.
type Rect struct {
	ID         string
	X, Y, W, H float64
	RX         float64
	Style      Style
	Title      string
}

func (r *Rect) NodeID() string   { return r.ID }
func (r *Rect) NodeStyle() Style { return r.Style }
func (r *Rect) Bounds() Box      { return Box{r.X, r.Y, r.W, r.H} }

// Line is a straight segment.
type Line struct {
	ID             string
	X1, Y1, X2, Y2 float64
	Style          Style
}

func (l *Line) NodeID() string   { return l.ID }
func (l *Line) NodeStyle() Style { return l.Style }
func (l *Line) Bounds() Box {
	pad := math.Max(l.Style.StrokeWidth, 1) / 2
	x0, x1 := math.Min(l.X1, l.X2), math.Max(l.X1, l.X2)
	y0, y1 := math.Min(l.Y1, l.Y2), math.Max(l.Y1, l.Y2)
	return Box{x0 - pad, y0 - pad, x1 - x0 + 2*pad, y1 - y0 + 2*pad}
}

// Text is a single line of text anchored at (X, Y) on its baseline.
// Width is the measured advance; painters and hit testing rely on it.
type Text struct {
	ID      string
	X, Y    float64
	Width   float64
	Content string
	Style   Style
}

func (t *Text) NodeID() string   { return t.ID }
func (t *Text) NodeStyle() Style { return t.Style }
func (t *Text) Bounds() Box {
	size := t.Style.FontSize
	if size <= 0 {
		size = DefaultFontSize
	}
	x := t.X
	switch t.Style.TextAnchor {
	case "middle":
		x -= t.Width / 2
	case "end":
		x -= t.Width
	}
	y := t.Y - size
	if t.Style.DominantBaseline == "middle" {
		y = t.Y - size/2
	}
	return Box{x, y, t.Width, size}
}

// Path is an SVG path. Box must be set by the author; the path data is not
// parsed.
type Path struct {
	ID    string
	D     string
	Box   Box
	Style Style
}

func (p *Path) NodeID() string   { return p.ID }
func (p *Path) NodeStyle() Style { return p.Style }
func (p *Path) Bounds() Box      { return p.Box }

// Ellipse is centred on (CX, CY).
type Ellipse struct {
	ID             string
	CX, CY, RX, RY float64
	Style          Style
}

func (e *Ellipse) NodeID() string   { return e.ID }
func (e *Ellipse) NodeStyle() Style { return e.Style }
func (e *Ellipse) Bounds() Box {
	return Box{e.CX - e.RX, e.CY - e.RY, 2 * e.RX, 2 * e.RY}
}

// Image embeds a raster, usually as a data URI.
type Image struct {
	ID         string
	X, Y, W, H float64
	Href       string
	Style      Style
}

func (i *Image) NodeID() string   { return i.ID }
func (i *Image) NodeStyle() Style { return i.Style }
func (i *Image) Bounds() Box      { return Box{i.X, i.Y, i.W, i.H} }

// ClipPath is a definition referenced through Style.ClipPath.
type ClipPath struct {
	ID       string
	Children []Node
}

func (c *ClipPath) NodeID() string   { return c.ID }
func (c *ClipPath) NodeStyle() Style { return Style{PointerEvents: "none"} }
func (c *ClipPath) Bounds() Box      { return Box{} }

// Pattern is a tiled fill definition referenced as url(#ID).
type Pattern struct {
	ID       string
	W, H     float64
	Rotate   float64
	Children []Node
}

func (p *Pattern) NodeID() string   { return p.ID }
func (p *Pattern) NodeStyle() Style { return Style{PointerEvents: "none"} }
func (p *Pattern) Bounds() Box      { return Box{} }

// Layer is one z-ordered bucket of the scene.
type Layer struct {
	Name      string
	Offset    Point
	Translate Point
	// Clip is in scene coordinates. A zero Clip means unclipped.
	Clip  Box
	Nodes []Node
}

// Add appends nodes.
func (l *Layer) Add(n ...Node) { l.Nodes = append(l.Nodes, n...) }

// Clipped reports whether the layer has a clip. A clipped layer with an
// empty clip shows nothing.
func (l *Layer) Clipped() bool { return l.Clip != (Box{}) }

// Origin is where the layer's local (0, 0) lands in scene coordinates.
func (l *Layer) Origin() Point { return l.Offset.Add(l.Translate) }

// Scene is the output of a render pass. Layers are in paint order.
type Scene struct {
	ID     string
	Width  float64
	Height float64
	Cursor string
	Defs   []Node
	Layers []*Layer
}

// Layer returns the named layer or nil.
func (s *Scene) Layer(name string) *Layer {
	for _, l := range s.Layers {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// AddLayer appends a layer on top.
func (s *Scene) AddLayer(l *Layer) *Layer {
	s.Layers = append(s.Layers, l)
	return l
}

// Count returns the number of primitives in the scene, defs included.
func (s *Scene) Count() int {
	n := count(s.Defs)
	for _, l := range s.Layers {
		n += count(l.Nodes)
	}
	return n
}

func count(nodes []Node) int {
	n := 0
	for _, node := range nodes {
		n++
		switch v := node.(type) {
		case *Group:
			n += count(v.Children)
		case *ClipPath:
			n += count(v.Children)
		case *Pattern:
			n += count(v.Children)
		}
	}
	return n
}

// Walk visits every node depth first, stopping early when fn returns false.
func Walk(nodes []Node, fn func(Node) bool) bool {
	for _, n := range nodes {
		if !fn(n) {
			return false
		}
		if g, ok := n.(*Group); ok {
			if !Walk(g.Children, fn) {
				return false
			}
		}
	}
	return true
}

// Find returns the first node with the given id.
func (s *Scene) Find(id string) Node {
	var found Node
	for _, l := range s.Layers {
		Walk(l.Nodes, func(n Node) bool {
			if n.NodeID() == id {
				found = n
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}
