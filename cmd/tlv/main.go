// tlv is an interactive terminal timeline for band files and clockmail
// databases.
//
// It watches its sources for changes and redraws the timeline in place.
// Drag to pan, scroll to zoom, click an entry for details.
//
// Usage:
//
//	tlv                          # Auto-discover .tlview/bands.yaml and .clockmail/clockmail.db
//	tlv --bands <path>           # Use a specific band file
//	tlv --db <path>              # Use a specific clockmail database
//	tlv --json                   # Dump the loaded bands as JSON and exit
//	tlv --svg out.svg            # Render the timeline as SVG and exit ("-" for stdout)
//	tlv --serve :8080            # Serve /timeline.svg, /bands and /metrics
//	tlv --center 2024-05-01      # Start centred on a date
//	tlv --version                # Print version and exit
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/daviddao/tlview/internal/datasource"
	"github.com/daviddao/tlview/internal/platform/config"
	"github.com/daviddao/tlview/internal/platform/logger"
	"github.com/daviddao/tlview/internal/platform/metrics"
	"github.com/daviddao/tlview/internal/server"
	"github.com/daviddao/tlview/internal/snapshot"
	"github.com/daviddao/tlview/pkg/scene"
	"github.com/daviddao/tlview/pkg/timeaxis"
	"github.com/daviddao/tlview/pkg/timeline"
)

// Version is set via ldflags at build time (e.g. -X main.Version=v0.1.0).
var Version = "dev"

const shutdownTimeout = 10 * time.Second

type options struct {
	bands     string
	db        string
	zoom      int
	center    string
	width     float64
	jsonMode  bool
	svgPath   string
	serveAddr string
	refresh   time.Duration
	logLevel  string
	logFormat string
	logFile   string
}

func main() {
	_ = config.Load()

	var o options
	flag.StringVar(&o.bands, "bands", config.GetEnv("TLV_BANDS", ""), "path to a band file (default: auto-discover)")
	flag.StringVar(&o.db, "db", config.GetEnv("TLV_DB", ""), "path to clockmail.db (default: auto-discover)")
	flag.IntVar(&o.zoom, "zoom", config.GetEnvInt("TLV_ZOOM", timeaxis.DefaultZoom), "initial zoom level (1-14)")
	flag.StringVar(&o.center, "center", "", "initial centre date (RFC 3339 or YYYY-MM-DD, default: data midpoint)")
	flag.Float64Var(&o.width, "width", 1200, "scene width for --svg")
	flag.BoolVar(&o.jsonMode, "json", false, "dump the loaded bands as JSON and exit (no TUI)")
	flag.StringVar(&o.svgPath, "svg", "", "render the timeline as SVG to this path and exit")
	flag.StringVar(&o.serveAddr, "serve", config.GetEnv("TLV_SERVE_ADDR", ""), "serve the HTTP preview on this address instead of the TUI")
	flag.DurationVar(&o.refresh, "refresh", config.GetEnvDuration("TLV_REFRESH", 5*time.Second), "polling fallback interval")
	flag.StringVar(&o.logLevel, "log-level", config.GetEnv("TLV_LOG_LEVEL", "info"), "log level (debug|info|warn|error)")
	flag.StringVar(&o.logFormat, "log-format", config.GetEnv("TLV_LOG_FORMAT", "text"), "log format (text|json)")
	flag.StringVar(&o.logFile, "log-file", config.GetEnv("TLV_LOG_FILE", ""), "write logs to this file (TUI mode logs nowhere by default)")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("tlv %s\n", Version)
		os.Exit(0)
	}
	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "tlv: %v\n", err)
		os.Exit(1)
	}
}

func run(o options) error {
	if _, err := timeaxis.New(o.zoom, 0); err != nil {
		return err
	}
	center, err := parseDate(o.center)
	if err != nil {
		return err
	}
	sources, err := resolveSources(o.bands, o.db)
	if err != nil {
		return err
	}

	switch {
	case o.jsonMode:
		snap, err := snapshot.Build(context.Background(), sources)
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		return writeJSON(os.Stdout, snap)

	case o.svgPath != "":
		snap, err := snapshot.Build(context.Background(), sources)
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		return writeSVG(o, snap, center)

	case o.serveAddr != "":
		log := logger.New(o.logLevel, o.logFormat)
		if o.logFile != "" {
			f, err := openLog(o.logFile)
			if err != nil {
				return err
			}
			defer f.Close()
			log = logger.NewWriter(f, o.logLevel, o.logFormat)
		}
		return serve(o, sources, log)
	}

	log := slog.New(slog.DiscardHandler)
	if o.logFile != "" {
		f, err := openLog(o.logFile)
		if err != nil {
			return err
		}
		defer f.Close()
		log = logger.NewWriter(f, o.logLevel, o.logFormat)
	}
	return runTUI(o, sources, center, log)
}

// resolveSources prefers explicit paths and falls back to discovery.
func resolveSources(bands, db string) ([]datasource.Source, error) {
	var sources []datasource.Source
	if bands != "" {
		if _, err := os.Stat(bands); err != nil {
			return nil, fmt.Errorf("band file: %w", err)
		}
		sources = append(sources, &datasource.FileSource{File: bands})
	}
	if db != "" {
		if _, err := os.Stat(db); err != nil {
			return nil, fmt.Errorf("clockmail db: %w", err)
		}
		sources = append(sources, &datasource.ClockmailSource{DB: db})
	}
	if len(sources) > 0 {
		return sources, nil
	}
	return datasource.Discover()
}

// parseDate accepts RFC 3339, a bare date, "now" or "".
func parseDate(s string) (time.Time, error) {
	switch s {
	case "":
		return time.Time{}, nil
	case "now":
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q (want RFC 3339 or YYYY-MM-DD)", timeaxis.ErrInvalidTimeInput, s)
}

// initialCenter picks the explicit centre, else the data midpoint, else now.
func initialCenter(center time.Time, snap *snapshot.DataSnapshot) time.Time {
	if !center.IsZero() {
		return center
	}
	if snap != nil && !snap.Span.Start.IsZero() {
		return snap.Span.Start.Add(snap.Span.Duration() / 2)
	}
	return time.Now()
}

func openLog(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("log file: %w", err)
	}
	return f, nil
}

// --- Batch modes ---

func writeJSON(w io.Writer, snap *snapshot.DataSnapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(server.BandsResponse(snap)); err != nil {
		return fmt.Errorf("json: %w", err)
	}
	return nil
}

func writeSVG(o options, snap *snapshot.DataSnapshot, center time.Time) error {
	tl, err := timeline.New(timeline.Options{
		Width:     o.width,
		Zoom:      o.zoom,
		Center:    initialCenter(center, snap),
		Measurer:  scene.NewFontMeasurer(),
		Wallclock: true,
	})
	if err != nil {
		return err
	}
	if err := tl.SetData(snap.Bands); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	out := os.Stdout
	if o.svgPath != "-" {
		f, err := os.Create(o.svgPath)
		if err != nil {
			return fmt.Errorf("svg: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := scene.WriteSVG(out, tl.Scene()); err != nil {
		return fmt.Errorf("svg: %w", err)
	}
	return nil
}

// --- HTTP preview ---

func serve(o options, sources []datasource.Source, log *slog.Logger) error {
	met := metrics.New()
	h := server.NewHandler(log, met)

	reload := func() {
		snap, err := snapshot.Build(context.Background(), sources)
		met.ObserveReload(bandCount(snap), err)
		if err != nil {
			log.Error("reload failed", "error", err)
			return
		}
		h.SetSnapshot(snap)
		log.Debug("snapshot reloaded", "bands", len(snap.Bands), "entries", snap.TotalEntries)
	}
	reload()

	w, err := datasource.NewWatcher(sourcePaths(sources)...)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()
	go func() {
		for range w.Changes() {
			reload()
		}
	}()

	srv := &http.Server{Addr: o.serveAddr, Handler: server.NewRouter(h)}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	log.Info("server starting", "addr", o.serveAddr, "sources", len(sources))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-sigCh:
	}
	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func sourcePaths(sources []datasource.Source) []string {
	paths := make([]string, len(sources))
	for i, s := range sources {
		paths[i] = s.Path()
	}
	return paths
}

func bandCount(snap *snapshot.DataSnapshot) int {
	if snap == nil {
		return 0
	}
	return len(snap.Bands)
}

// --- TUI ---

func runTUI(o options, sources []datasource.Source, center time.Time, log *slog.Logger) error {
	snap, err := snapshot.Build(context.Background(), sources)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	w, err := datasource.NewWatcher(sourcePaths(sources)...)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	sched := &teaScheduler{}
	m, err := newModel(sources, w, snap, modelConfig{
		zoom:      o.zoom,
		center:    initialCenter(center, snap),
		scheduler: sched,
		log:       log,
	})
	if err != nil {
		w.Close()
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion())
	sched.send = p.Send

	// Feed source change events into the TUI.
	go func() {
		for range w.Changes() {
			p.Send(sourceChangedMsg{})
		}
	}()

	// Polling fallback: refresh at --refresh interval even if fsnotify misses events.
	if o.refresh > 0 {
		go func() {
			ticker := time.NewTicker(o.refresh)
			defer ticker.Stop()
			for range ticker.C {
				p.Send(sourceChangedMsg{})
			}
		}()
	}

	_, err = p.Run()
	return err
}
