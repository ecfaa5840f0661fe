// Package packer assigns horizontal pixel ranges to the fewest lanes it can
// without two items in a lane overlapping.
//
// Milestones are packed before ranged items so they take the top lanes.
// Within each group items keep input order, and each goes into the first
// lane that admits it. Lanes stay sorted by start, so admission is a
// binary search against the neighbours at the insertion point.
package packer

// Item is one entry reduced to its render extent. StopX already includes
// any label that extends past the entry.
type Item struct {
	StartX    float64
	StopX     float64
	Milestone bool
}

// Layout is the result of Pack.
type Layout struct {
	// Lanes holds item indexes, each lane sorted by StartX.
	Lanes [][]int
	// LaneOf maps item index to lane index.
	LaneOf []int
}

// Pack distributes items over lanes. Two items share a lane only when
// one's StopX plus gap does not exceed the other's StartX.
func Pack(items []Item, gap float64) Layout {
	l := Layout{LaneOf: make([]int, len(items))}
	for i, it := range items {
		if it.Milestone {
			l.place(items, i, gap)
		}
	}
	for i, it := range items {
		if !it.Milestone {
			l.place(items, i, gap)
		}
	}
	return l
}

func (l *Layout) place(items []Item, idx int, gap float64) {
	for lane := range l.Lanes {
		if pos, ok := insertionPoint(items, l.Lanes[lane], items[idx], gap); ok {
			l.Lanes[lane] = insertAt(l.Lanes[lane], pos, idx)
			l.LaneOf[idx] = lane
			return
		}
	}
	l.Lanes = append(l.Lanes, []int{idx})
	l.LaneOf[idx] = len(l.Lanes) - 1
}

// insertionPoint binary-searches lane for a slot where it fits.
func insertionPoint(items []Item, lane []int, it Item, gap float64) (int, bool) {
	lo, hi := 0, len(lane)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		other := items[lane[mid]]
		switch {
		case it.StopX+gap <= other.StartX:
			hi = mid - 1
		case it.StartX >= other.StopX+gap:
			lo = mid + 1
		default:
			return 0, false
		}
	}
	return lo, true
}

func insertAt(lane []int, pos, idx int) []int {
	lane = append(lane, 0)
	copy(lane[pos+1:], lane[pos:])
	lane[pos] = idx
	return lane
}

// Metrics are the vertical measures of a packed band.
type Metrics struct {
	MarginTop    float64
	MarginBottom float64
	LineHeight   float64
	LineSpacing  float64
}

// Height returns the band height for the given lane count. Zero lanes
// measure as one so empty bands keep a stable height.
func (m Metrics) Height(lanes int) float64 {
	lanes = max(lanes, 1)
	return m.MarginTop + float64(lanes)*m.LineHeight + float64(lanes-1)*m.LineSpacing + m.MarginBottom
}

// LaneY returns the top of the given lane.
func (m Metrics) LaneY(lane int) float64 {
	return m.MarginTop + float64(lane)*(m.LineHeight+m.LineSpacing)
}
