package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/daviddao/tlview/internal/platform/metrics"
	"github.com/daviddao/tlview/internal/snapshot"
	"github.com/daviddao/tlview/pkg/model"
	"github.com/daviddao/tlview/pkg/timeaxis"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T) (*Handler, *metrics.Metrics) {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	met := metrics.New()
	h := NewHandler(log, met)
	h.Now = func() time.Time { return t0 }
	h.SetSnapshot(&snapshot.DataSnapshot{
		Bands: []model.BandSpec{{
			Type: model.TypeEventBand,
			ID:   "ops",
			Entries: []model.Entry{
				{ID: "burn", Start: t0, Stop: t0.Add(2 * time.Hour), Title: "Burn"},
			},
		}},
		Sources:      []snapshot.SourceSummary{{Name: "file:bands.yaml", Bands: 1, Entries: 1}},
		TotalEntries: 1,
		Span:         timeaxis.Window{Start: t0, Stop: t0.Add(2 * time.Hour)},
		BuiltAt:      t0,
	})
	return h, met
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t)
	if rec := get(t, NewRouter(h), "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestBands(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := get(t, NewRouter(h), "/bands")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out struct {
		TotalEntries int `json:"total_entries"`
		Span         *struct {
			Start time.Time `json:"start"`
		} `json:"span"`
		Sources []snapshot.SourceSummary `json:"sources"`
		Bands   []model.BandSpec         `json:"bands"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.TotalEntries != 1 || len(out.Bands) != 1 || out.Bands[0].ID != "ops" {
		t.Errorf("response = %+v", out)
	}
	if out.Span == nil || !out.Span.Start.Equal(t0) {
		t.Errorf("span = %+v", out.Span)
	}
	if len(out.Sources) != 1 || out.Sources[0].Name != "file:bands.yaml" {
		t.Errorf("sources = %+v", out.Sources)
	}
}

func TestBandsEmpty(t *testing.T) {
	h := NewHandler(slog.New(slog.DiscardHandler), nil)
	rec := get(t, NewRouter(h), "/bands")
	body := rec.Body.String()
	if !strings.Contains(body, `"bands": []`) || strings.Contains(body, `"span"`) {
		t.Errorf("body = %s", body)
	}
	if rec := get(t, NewRouter(h), "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("metrics without collectors = %d, want 404", rec.Code)
	}
}

func TestBand(t *testing.T) {
	h, _ := newTestHandler(t)
	r := NewRouter(h)
	rec := get(t, r, "/bands/ops")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var b model.BandSpec
	if err := json.NewDecoder(rec.Body).Decode(&b); err != nil {
		t.Fatal(err)
	}
	if len(b.Entries) != 1 || b.Entries[0].Title != "Burn" {
		t.Errorf("band = %+v", b)
	}
	if rec := get(t, r, "/bands/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestTimelineSVG(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := get(t, NewRouter(h), "/timeline.svg?width=800&zoom=10")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != svgContentType {
		t.Errorf("content type = %q", ct)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.HasPrefix(string(body), `<svg xmlns="http://www.w3.org/2000/svg" width="800"`) {
		t.Errorf("body starts %q", string(body[:min(len(body), 80)]))
	}
	if !strings.HasSuffix(string(body), "</svg>\n") {
		t.Error("svg not terminated")
	}
}

func TestTimelineBadQuery(t *testing.T) {
	h, _ := newTestHandler(t)
	r := NewRouter(h)
	tests := []string{
		"/timeline.svg?width=abc",
		"/timeline.svg?width=-5",
		"/timeline.svg?width=100000",
		"/timeline.svg?width=NaN",
		"/timeline.svg?width=Inf",
		"/timeline.svg?height=-1",
		"/timeline.svg?height=NaN",
		"/timeline.svg?height=+Inf",
		"/timeline.svg?zoom=x",
		"/timeline.svg?zoom=0",
		"/timeline.svg?zoom=99",
		"/timeline.svg?center=yesterday",
	}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			if rec := get(t, r, path); rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestOptionsCenter(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/timeline.svg?sidebar=0", nil)
	opts, err := h.options(req, h.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	if want := t0.Add(time.Hour); !opts.Center.Equal(want) {
		t.Errorf("center = %v, want span midpoint %v", opts.Center, want)
	}
	if !opts.HideSidebar {
		t.Error("sidebar=0 did not hide the sidebar")
	}

	req = httptest.NewRequest(http.MethodGet, "/timeline.svg?center=2024-01-02T03:04:05Z", nil)
	opts, err = h.options(req, h.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC); !opts.Center.Equal(want) {
		t.Errorf("center = %v, want %v", opts.Center, want)
	}

	req = httptest.NewRequest(http.MethodGet, "/timeline.svg?center=2024-01-02&zoom=14", nil)
	opts, err = h.options(req, h.Snapshot())
	if err != nil {
		t.Fatalf("date-only center: %v", err)
	}
	if want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC); !opts.Center.Equal(want) || opts.Zoom != 14 {
		t.Errorf("center, zoom = %v, %d, want %v, 14", opts.Center, opts.Zoom, want)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)
	r := NewRouter(h)
	get(t, r, "/timeline.svg")
	get(t, r, "/bands/nope")
	rec := get(t, r, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"tlv_render_passes_total",
		"tlv_http_requests_total 2",
		"tlv_http_errors_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}
