// Package model defines the data records a host hands to the timeline:
// band specifications and the entries they carry.
//
// Records are owned by the caller. The engine reads them but never writes
// back into them; layout results live in engine-side arrays indexed by
// entry position.
package model

import "time"

// Band type tags understood by the built-in registry.
const (
	TypeEventBand           = "EventBand"
	TypeSpacer              = "Spacer"
	TypeTimescale           = "Timescale"
	TypeWallclockLocator    = "WallclockLocator"
	TypeLocationTracker     = "LocationTracker"
	TypeHorizontalSelection = "HorizontalSelection"
	TypeNoDataZone          = "NoDataZone"
)

// Entry is one interval or instant shown in a band.
type Entry struct {
	ID    string    `yaml:"id,omitempty" json:"id,omitempty"`
	Start time.Time `yaml:"start" json:"start"`
	// Stop is zero for instants.
	Stop      time.Time `yaml:"stop,omitempty" json:"stop,omitempty"`
	Milestone *bool     `yaml:"milestone,omitempty" json:"milestone,omitempty"`
	Title     string    `yaml:"title,omitempty" json:"title,omitempty"`
	Tooltip   string    `yaml:"tooltip,omitempty" json:"tooltip,omitempty"`

	BackgroundColor string `yaml:"backgroundColor,omitempty" json:"backgroundColor,omitempty"`
	ForegroundColor string `yaml:"foregroundColor,omitempty" json:"foregroundColor,omitempty"`
	BorderColor     string `yaml:"borderColor,omitempty" json:"borderColor,omitempty"`
	// Borders is "", "none", "vertical" or "all".
	Borders   string `yaml:"borders,omitempty" json:"borders,omitempty"`
	TextAlign string `yaml:"textAlign,omitempty" json:"textAlign,omitempty"`

	Data map[string]string `yaml:"data,omitempty" json:"data,omitempty"`
}

// IsMilestone reports whether the entry renders as a point marker.
// An explicit Milestone flag wins; otherwise an entry without a stop, or
// with stop equal to start, is a milestone.
func (e Entry) IsMilestone() bool {
	if e.Milestone != nil {
		return *e.Milestone
	}
	return e.Stop.IsZero() || e.Stop.Equal(e.Start)
}

// End returns Stop, or Start for instants.
func (e Entry) End() time.Time {
	if e.Stop.IsZero() {
		return e.Start
	}
	return e.Stop
}

// BandSpec describes one band contribution.
type BandSpec struct {
	Type  string `yaml:"type" json:"type"`
	ID    string `yaml:"id,omitempty" json:"id,omitempty"`
	Label string `yaml:"label,omitempty" json:"label,omitempty"`
	// Header places the band in the header section, which does not pan vertically.
	Header      bool `yaml:"header,omitempty" json:"header,omitempty"`
	Interactive bool `yaml:"interactive,omitempty" json:"interactive,omitempty"`
	Draggable   bool `yaml:"draggable,omitempty" json:"draggable,omitempty"`

	// Style holds per-type style overrides merged onto the band's defaults.
	Style map[string]any `yaml:"style,omitempty" json:"style,omitempty"`
	// Properties holds per-type options such as a timescale's grab action.
	Properties map[string]string `yaml:"properties,omitempty" json:"properties,omitempty"`

	Entries []Entry `yaml:"entries,omitempty" json:"entries,omitempty"`
}

// Property returns a band property or fallback when unset.
func (s BandSpec) Property(key, fallback string) string {
	if v, ok := s.Properties[key]; ok && v != "" {
		return v
	}
	return fallback
}
