package render

import (
	"fmt"
	"time"

	"github.com/daviddao/tlview/pkg/model"
	"github.com/daviddao/tlview/pkg/scene"
)

// ActionType names a pointer interaction routed to a band.
type ActionType string

const (
	ActionClick       ActionType = "click"
	ActionContextMenu ActionType = "contextmenu"
	ActionMouseEnter  ActionType = "mouseenter"
	ActionMouseMove   ActionType = "mousemove"
	ActionMouseLeave  ActionType = "mouseleave"
	ActionGrabStart   ActionType = "grabstart"
	ActionGrabMove    ActionType = "grabmove"
	ActionGrabEnd     ActionType = "grabend"
)

// Action is delivered to the band owning Target.
type Action struct {
	Type   ActionType
	Target string
	// Point is the pointer in the target layer's local coordinates.
	Point scene.Point
	// Origin is the local point where a grab started.
	Origin scene.Point
	Screen scene.Point
	// Date is the instant under the pointer.
	Date time.Time
}

// Targets maps element ids to the band that registered them and the
// actions it accepts. It is rebuilt every pass.
type Targets struct {
	m map[string]*target
}

type target struct {
	band  Band
	types map[ActionType]bool
}

// NewTargets returns an empty registry.
func NewTargets() *Targets {
	return &Targets{m: make(map[string]*target)}
}

// Register records that b accepts types on id.
func (t *Targets) Register(id string, b Band, types ...ActionType) error {
	tg, ok := t.m[id]
	if !ok {
		tg = &target{band: b, types: make(map[ActionType]bool, len(types))}
		t.m[id] = tg
	} else if tg.band != b {
		return fmt.Errorf("%w: %q", ErrTargetConflict, id)
	}
	for _, typ := range types {
		tg.types[typ] = true
	}
	return nil
}

// Accepts reports whether id is registered for any of types.
func (t *Targets) Accepts(id string, types ...ActionType) bool {
	tg, ok := t.m[id]
	if !ok {
		return false
	}
	for _, typ := range types {
		if tg.types[typ] {
			return true
		}
	}
	return false
}

// Owner returns the band that registered id.
func (t *Targets) Owner(id string) (Band, bool) {
	tg, ok := t.m[id]
	if !ok {
		return nil, false
	}
	return tg.band, true
}

// Len returns the number of registered ids.
func (t *Targets) Len() int { return len(t.m) }

// Dispatch hands a to its owning band if the target accepts the action.
func (t *Targets) Dispatch(a Action) bool {
	if !t.Accepts(a.Target, a.Type) {
		return false
	}
	t.m[a.Target].band.OnAction(a)
	return true
}

// EventKind names a timeline notification.
type EventKind string

const (
	EventLoadRange             EventKind = "loadRange"
	EventViewportChange        EventKind = "viewportChange"
	EventViewportChanged       EventKind = "viewportChanged"
	EventViewportHover         EventKind = "viewportHover"
	EventViewportWheel         EventKind = "viewportWheel"
	EventClick                 EventKind = "eventClick"
	EventContextMenu           EventKind = "eventContextMenu"
	EventMouseEnter            EventKind = "eventMouseEnter"
	EventMouseMove             EventKind = "eventMouseMove"
	EventMouseLeave            EventKind = "eventMouseLeave"
	EventGrabStart             EventKind = "grabStart"
	EventGrabMove              EventKind = "grabMove"
	EventGrabEnd               EventKind = "grabEnd"
	EventChanged               EventKind = "eventChanged"
	EventRangeSelectionChanged EventKind = "rangeSelectionChanged"
	EventSidebarClick          EventKind = "sidebarClick"
)

// EventKinds lists every notification kind.
var EventKinds = []EventKind{
	EventLoadRange, EventViewportChange, EventViewportChanged, EventViewportHover,
	EventViewportWheel, EventClick, EventContextMenu, EventMouseEnter, EventMouseMove,
	EventMouseLeave, EventGrabStart, EventGrabMove, EventGrabEnd, EventChanged,
	EventRangeSelectionChanged, EventSidebarClick,
}

// Valid reports whether k is a known kind.
func (k EventKind) Valid() bool {
	for _, known := range EventKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Event is a notification to timeline listeners. Fields not relevant to
// Kind are zero.
type Event struct {
	Kind EventKind
	Band string
	// Entry is a copy of the caller's entry; for EventChanged it carries the
	// new start and stop.
	Entry *model.Entry
	// Start and Stop carry windows: load range, visible range or selection.
	Start, Stop time.Time
	// Date and X locate a hover; Date is zero outside the time area.
	Date   time.Time
	X      float64
	Screen scene.Point
}
