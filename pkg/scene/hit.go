package scene

// Hit is the result of a hit test.
type Hit struct {
	// IDs lists the identified nodes under the point, innermost first.
	IDs []string
	// Layer is the name of the layer that was hit.
	Layer string
	// Local is the point in the layer's local coordinates.
	Local Point
}

// HitTest returns the topmost painted node under p (scene coordinates)
// together with its identified ancestors. Layers and children are walked
// in reverse paint order; nodes with pointer-events none are skipped.
func (s *Scene) HitTest(p Point) (Hit, bool) {
	for i := len(s.Layers) - 1; i >= 0; i-- {
		l := s.Layers[i]
		if l.Clipped() && (l.Clip.Empty() || !l.Clip.Contains(p)) {
			continue
		}
		local := p.Sub(l.Origin())
		if ids, ok := hitNodes(l.Nodes, local); ok {
			return Hit{IDs: ids, Layer: l.Name, Local: local}, true
		}
	}
	return Hit{}, false
}

// ToLocal converts a scene point into the named layer's local coordinates.
func (s *Scene) ToLocal(layer string, p Point) (Point, bool) {
	l := s.Layer(layer)
	if l == nil {
		return Point{}, false
	}
	return p.Sub(l.Origin()), true
}

func hitNodes(nodes []Node, p Point) ([]string, bool) {
	for i := len(nodes) - 1; i >= 0; i-- {
		if ids, ok := hitNode(nodes[i], p); ok {
			return ids, true
		}
	}
	return nil, false
}

func hitNode(n Node, p Point) ([]string, bool) {
	if !n.NodeStyle().Hittable() {
		return nil, false
	}
	var ids []string
	switch v := n.(type) {
	case *Group:
		inner, ok := hitNodes(v.Children, p.Sub(v.Offset))
		if !ok {
			return nil, false
		}
		ids = inner
	case *ClipPath, *Pattern:
		return nil, false
	default:
		if !n.Bounds().Contains(p) {
			return nil, false
		}
	}
	if id := n.NodeID(); id != "" {
		ids = append(ids, id)
	}
	return ids, true
}
