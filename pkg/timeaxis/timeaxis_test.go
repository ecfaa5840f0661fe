package timeaxis

import (
	"errors"
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestSecondsPerDivisionBounds(t *testing.T) {
	for _, zoom := range []int{MinZoom - 1, MaxZoom + 1, -5, 100} {
		if _, err := SecondsPerDivision(zoom); !errors.Is(err, ErrZoomOutOfRange) {
			t.Errorf("SecondsPerDivision(%d) err = %v, want ErrZoomOutOfRange", zoom, err)
		}
	}
	spd, err := SecondsPerDivision(DefaultZoom)
	if err != nil {
		t.Fatalf("SecondsPerDivision(%d): %v", DefaultZoom, err)
	}
	if spd != 800 {
		t.Errorf("SecondsPerDivision(%d) = %v, want 800", DefaultZoom, spd)
	}
}

func TestSecondsPerDivisionMonotonic(t *testing.T) {
	prev := math.Inf(1)
	for zoom := MinZoom; zoom <= MaxZoom; zoom++ {
		spd, err := SecondsPerDivision(zoom)
		if err != nil {
			t.Fatalf("SecondsPerDivision(%d): %v", zoom, err)
		}
		if spd > prev {
			t.Errorf("zoom %d: %v > previous %v", zoom, spd, prev)
		}
		prev = spd
	}
}

func TestClampZoom(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, MinZoom},
		{MinZoom, MinZoom},
		{7, 7},
		{MaxZoom, MaxZoom},
		{99, MaxZoom},
	}
	for _, tt := range tests {
		if got := ClampZoom(tt.in); got != tt.want {
			t.Errorf("ClampZoom(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	offsets := []float64{-12345.5, -40, -0.25, 0, 0.5, 1, 20, 333.3, 8000}
	for zoom := MinZoom; zoom <= MaxZoom; zoom++ {
		a, err := New(zoom, 0)
		if err != nil {
			t.Fatalf("New(%d): %v", zoom, err)
		}
		for _, x := range offsets {
			for _, tx := range []float64{0, -40, 17.5} {
				// toDate works in unpanned space; positionDate re-adds translation.
				d := a.ToDate(x, t0)
				got := a.PositionDate(d, t0, tx) - tx
				if math.Abs(got-x) > 1e-6 {
					t.Errorf("zoom %d x=%v tx=%v: round trip = %v", zoom, x, tx, got)
				}
			}
		}
	}
}

func TestScenarioZoom12(t *testing.T) {
	a, err := New(12, 20)
	if err != nil {
		t.Fatal(err)
	}
	if got := a.PositionDate(t0.Add(800*time.Second), t0, 0); got != 20 {
		t.Errorf("PositionDate(T0+800s) = %v, want 20", got)
	}
	// Panning by -40px moves the visible start forward two divisions.
	shift := a.Seconds(40)
	if shift != 1600 {
		t.Errorf("Seconds(40) = %v, want 1600", shift)
	}
	if got := a.ToDate(40, t0); !got.Equal(t0.Add(1600 * time.Second)) {
		t.Errorf("ToDate(40) = %v, want %v", got, t0.Add(1600*time.Second))
	}
}

func TestPointsBetweenIgnoresTranslation(t *testing.T) {
	a, _ := New(12, 20)
	w := a.PointsBetween(t0, t0.Add(time.Hour))
	if w != 90 {
		t.Errorf("PointsBetween(1h) = %v, want 90", w)
	}
	if p := a.PositionDate(t0.Add(time.Hour), t0, -30); p != 60 {
		t.Errorf("PositionDate(1h, tx=-30) = %v, want 60", p)
	}
}

func TestWindow(t *testing.T) {
	w := Window{Start: t0, Stop: t0.Add(time.Hour)}
	if w.Duration() != time.Hour {
		t.Errorf("Duration = %v, want 1h", w.Duration())
	}
	inner := Window{Start: t0.Add(time.Minute), Stop: t0.Add(30 * time.Minute)}
	if !w.Contains(inner) {
		t.Error("Contains(inner) = false, want true")
	}
	if w.Contains(Window{Start: t0.Add(-time.Second), Stop: t0}) {
		t.Error("Contains(before) = true, want false")
	}
	if !w.Overlaps(t0.Add(-time.Minute), t0) {
		t.Error("Overlaps(touching start) = false, want true")
	}
	if w.Overlaps(t0.Add(2*time.Hour), t0.Add(3*time.Hour)) {
		t.Error("Overlaps(after) = true, want false")
	}
}

func TestParseInstant(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2024-05-01T12:00:00Z", t0, false},
		{"2024-05-01T14:00:00+02:00", t0, false},
		{"2024-05-01 12:00:00", t0, false},
		{"2024-05-01T12:00", t0, false},
		{"  2024-05-01  ", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), false},
		{"", time.Time{}, true},
		{"yesterday", time.Time{}, true},
		{"2024-13-40", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseInstant(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTimeInput) {
					t.Errorf("ParseInstant(%q) err = %v, want ErrInvalidTimeInput", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseInstant(%q): %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseInstant(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
