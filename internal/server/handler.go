// Package server is the HTTP preview of a timeline: the current data
// snapshot rendered as SVG, the bands as JSON, and Prometheus metrics.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/daviddao/tlview/internal/platform/logger"
	"github.com/daviddao/tlview/internal/platform/metrics"
	"github.com/daviddao/tlview/internal/snapshot"
	"github.com/daviddao/tlview/pkg/model"
	"github.com/daviddao/tlview/pkg/scene"
	"github.com/daviddao/tlview/pkg/timeaxis"
	"github.com/daviddao/tlview/pkg/timeline"
)

const (
	svgContentType = "image/svg+xml"
	defaultWidth   = 1200.0
	maxWidth       = 16384.0
	maxHeight      = 16384.0
)

// Handler serves the latest snapshot. SetSnapshot may be called from any
// goroutine.
type Handler struct {
	log     *slog.Logger
	metrics *metrics.Metrics
	// Now is the wallclock used for rendering.
	Now func() time.Time

	mu   sync.RWMutex
	snap *snapshot.DataSnapshot
}

// NewHandler returns a handler without data. Metrics may be nil.
func NewHandler(log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{log: log, metrics: m, Now: time.Now, snap: &snapshot.DataSnapshot{}}
}

// SetSnapshot swaps in a new snapshot.
func (h *Handler) SetSnapshot(s *snapshot.DataSnapshot) {
	h.mu.Lock()
	h.snap = s
	h.mu.Unlock()
}

// Snapshot returns the current snapshot.
func (h *Handler) Snapshot() *snapshot.DataSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap
}

// NewRouter mounts the handler with request logging and metrics.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(logger.RequestLogger(h.log))
	if h.metrics != nil {
		r.Use(metrics.RequestMiddleware(h.metrics))
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler(nil))
	}
	r.Get("/healthz", h.Health)
	r.Get("/bands", h.Bands)
	r.Get("/bands/{band}", h.Band)
	r.Get("/timeline.svg", h.Timeline)
	return r
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

type bandsResponse struct {
	BuiltAt      time.Time                `json:"built_at"`
	TotalEntries int                      `json:"total_entries"`
	Milestones   int                      `json:"milestones"`
	Span         *spanJSON                `json:"span,omitempty"`
	Sources      []snapshot.SourceSummary `json:"sources"`
	Bands        []model.BandSpec         `json:"bands"`
}

type spanJSON struct {
	Start time.Time `json:"start"`
	Stop  time.Time `json:"stop"`
}

// BandsResponse converts a snapshot into its JSON form.
func BandsResponse(s *snapshot.DataSnapshot) any {
	out := bandsResponse{
		BuiltAt:      s.BuiltAt,
		TotalEntries: s.TotalEntries,
		Milestones:   s.Milestones,
		Sources:      s.Sources,
		Bands:        s.Bands,
	}
	if out.Sources == nil {
		out.Sources = []snapshot.SourceSummary{}
	}
	if out.Bands == nil {
		out.Bands = []model.BandSpec{}
	}
	if !s.Span.Start.IsZero() {
		out.Span = &spanJSON{Start: s.Span.Start, Stop: s.Span.Stop}
	}
	return out
}

// Bands handles GET /bands.
func (h *Handler) Bands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, BandsResponse(h.Snapshot()))
}

// Band handles GET /bands/{band}.
func (h *Handler) Band(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "band")
	for _, b := range h.Snapshot().Bands {
		if b.ID == id {
			writeJSON(w, http.StatusOK, b)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Timeline handles GET /timeline.svg.
// Query: width, height, zoom, center (RFC 3339 or a date), sidebar=0.
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	snap := h.Snapshot()
	opts, err := h.options(r, snap)
	if err != nil {
		h.log.Debug("bad timeline query", slog.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tl, err := timeline.New(opts)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, timeaxis.ErrZoomOutOfRange) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	if err := tl.SetData(snap.Bands); err != nil {
		h.log.Error("render timeline failed", slog.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", svgContentType)
	w.WriteHeader(http.StatusOK)
	if err := scene.WriteSVG(w, tl.Scene()); err != nil {
		h.log.Warn("write svg failed", slog.String("error", err.Error()))
	}
}

func (h *Handler) options(r *http.Request, snap *snapshot.DataSnapshot) (timeline.Options, error) {
	q := r.URL.Query()
	opts := timeline.Options{
		Width:     defaultWidth,
		Measurer:  scene.NewFontMeasurer(),
		Wallclock: true,
		Logger:    h.log,
		Clock:     h.Now,
	}
	if h.metrics != nil {
		opts.Observer = h.metrics
	}

	if v := q.Get("width"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || !(f > 0 && f <= maxWidth) {
			return opts, errors.New("width must be a positive number up to 16384")
		}
		opts.Width = f
	}
	if v := q.Get("height"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || !(f >= 0 && f <= maxHeight) {
			return opts, errors.New("height must be a non-negative number up to 16384")
		}
		opts.Height = f
	}
	if v := q.Get("zoom"); v != "" {
		z, err := strconv.Atoi(v)
		if err != nil {
			return opts, errors.New("zoom must be an integer")
		}
		if _, err := timeaxis.SecondsPerDivision(z); err != nil {
			return opts, err
		}
		opts.Zoom = z
	}
	if q.Get("sidebar") == "0" {
		opts.HideSidebar = true
	}

	switch v := q.Get("center"); {
	case v != "":
		c, err := timeaxis.ParseInstant(v)
		if err != nil {
			return opts, err
		}
		opts.Center = c
	case !snap.Span.Start.IsZero():
		opts.Center = snap.Span.Start.Add(snap.Span.Duration() / 2)
	}
	return opts, nil
}
