// Package timeaxis maps zoom levels to time scales and converts between
// instants and horizontal pixel offsets.
//
// Everything here is pure. Callers pass the reference instant and the
// current translation explicitly.
package timeaxis

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Zoom bounds. The table is indexed by zoom level.
const (
	MinZoom     = 1
	MaxZoom     = 14
	DefaultZoom = 12

	// DefaultDivisionWidth is the pixel width of one division.
	DefaultDivisionWidth = 20.0
)

var (
	// ErrZoomOutOfRange is returned for zoom levels outside [MinZoom, MaxZoom].
	ErrZoomOutOfRange = errors.New("zoom level out of range")
	// ErrInvalidTimeInput is returned for malformed or missing instants.
	ErrInvalidTimeInput = errors.New("invalid time input")
)

// secondsPerDivision[zoom-MinZoom]. Round numbers at every step, halving
// per level.
var secondsPerDivision = [...]float64{
	1638400,
	819200,
	409600,
	204800,
	102400,
	51200,
	25600,
	12800,
	6400,
	3200,
	1600,
	800,
	400,
	200,
}

// SecondsPerDivision returns the number of seconds spanned by one division
// at the given zoom level.
func SecondsPerDivision(zoom int) (float64, error) {
	if zoom < MinZoom || zoom > MaxZoom {
		return 0, fmt.Errorf("%w: %d not in [%d, %d]", ErrZoomOutOfRange, zoom, MinZoom, MaxZoom)
	}
	return secondsPerDivision[zoom-MinZoom], nil
}

// ClampZoom limits zoom to the table bounds.
func ClampZoom(zoom int) int {
	return max(MinZoom, min(MaxZoom, zoom))
}

// Axis is the time scale at one zoom level.
type Axis struct {
	Zoom               int
	SecondsPerDivision float64
	DivisionWidth      float64
}

// New returns the axis for zoom. A non-positive divisionWidth selects
// DefaultDivisionWidth.
func New(zoom int, divisionWidth float64) (Axis, error) {
	spd, err := SecondsPerDivision(zoom)
	if err != nil {
		return Axis{}, err
	}
	if divisionWidth <= 0 {
		divisionWidth = DefaultDivisionWidth
	}
	return Axis{Zoom: zoom, SecondsPerDivision: spd, DivisionWidth: divisionWidth}, nil
}

// Seconds converts a pixel distance into seconds.
func (a Axis) Seconds(pixels float64) float64 {
	return pixels / a.DivisionWidth * a.SecondsPerDivision
}

// Pixels converts seconds into a pixel distance.
func (a Axis) Pixels(seconds float64) float64 {
	return seconds / a.SecondsPerDivision * a.DivisionWidth
}

// ToDate returns the instant offsetX pixels after ref.
func (a Axis) ToDate(offsetX float64, ref time.Time) time.Time {
	return ref.Add(Duration(a.Seconds(offsetX)))
}

// PointsBetween returns the pixel width of [d1, d2]. It does not depend on
// translation and is meant for sizing.
func (a Axis) PointsBetween(d1, d2 time.Time) float64 {
	return a.Pixels(d2.Sub(d1).Seconds())
}

// PositionDate returns the pixel position of date relative to ref, shifted
// by the current horizontal translation. Use it for absolute placement.
func (a Axis) PositionDate(date, ref time.Time, translationX float64) float64 {
	return a.PointsBetween(ref, date) + translationX
}

// Duration converts fractional seconds to a Duration, rounding to the
// nearest nanosecond.
func Duration(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds * float64(time.Second)))
}

// Window is a closed time range.
type Window struct {
	Start time.Time
	Stop  time.Time
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	return w.Stop.Sub(w.Start)
}

// Contains reports whether o lies fully inside w.
func (w Window) Contains(o Window) bool {
	return !o.Start.Before(w.Start) && !o.Stop.After(w.Stop)
}

// Overlaps reports whether [start, stop] intersects w.
func (w Window) Overlaps(start, stop time.Time) bool {
	return !stop.Before(w.Start) && !start.After(w.Stop)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s]", w.Start.Format(time.RFC3339), w.Stop.Format(time.RFC3339))
}

var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseInstant parses an RFC 3339 timestamp or one of a few shorter
// layouts. Layouts without a zone are read as UTC.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidTimeInput)
	}
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimeInput, s)
}
