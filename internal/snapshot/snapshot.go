// Package snapshot builds immutable data snapshots from the data sources.
//
// A DataSnapshot captures the bands of every source at a point in time.
// Snapshots are rebuilt on each source change and swapped into the UI
// model whole.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/daviddao/tlview/internal/datasource"
	"github.com/daviddao/tlview/pkg/model"
	"github.com/daviddao/tlview/pkg/timeaxis"
)

// SourceSummary describes what one source contributed.
type SourceSummary struct {
	Name    string
	Bands   int
	Entries int
}

// DataSnapshot is an immutable, self-contained view of all sources.
type DataSnapshot struct {
	// Bands in source order.
	Bands   []model.BandSpec
	Sources []SourceSummary

	// Counts.
	TotalEntries int
	Milestones   int

	// Span runs from the earliest start to the latest end of any entry. It
	// is zero when there are no entries.
	Span timeaxis.Window

	// Timestamp of snapshot creation.
	BuiltAt time.Time
}

// Build loads every source concurrently. The first failure cancels the
// rest and is returned. Band ids must be unique across sources.
func Build(ctx context.Context, sources []datasource.Source) (*DataSnapshot, error) {
	loaded := make([][]model.BandSpec, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			bands, err := src.Load(ctx)
			if err != nil {
				return fmt.Errorf("%s: %w", src.Name(), err)
			}
			loaded[i] = bands
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &DataSnapshot{BuiltAt: time.Now()}
	ids := make(map[string]string)
	for i, bands := range loaded {
		sum := SourceSummary{Name: sources[i].Name(), Bands: len(bands)}
		for _, b := range bands {
			if b.ID != "" {
				if other, dup := ids[b.ID]; dup {
					return nil, fmt.Errorf("band id %q defined by %s and %s", b.ID, other, sum.Name)
				}
				ids[b.ID] = sum.Name
			}
			sum.Entries += len(b.Entries)
			for _, e := range b.Entries {
				if e.IsMilestone() {
					snap.Milestones++
				}
				snap.extend(e)
			}
			snap.Bands = append(snap.Bands, b)
		}
		snap.TotalEntries += sum.Entries
		snap.Sources = append(snap.Sources, sum)
	}
	return snap, nil
}

func (s *DataSnapshot) extend(e model.Entry) {
	if e.Start.IsZero() {
		return
	}
	if s.Span.Start.IsZero() || e.Start.Before(s.Span.Start) {
		s.Span.Start = e.Start
	}
	if end := e.End(); s.Span.Stop.IsZero() || end.After(s.Span.Stop) {
		s.Span.Stop = end
	}
}

// Find returns the entry with the given id in band, if any.
func (s *DataSnapshot) Find(band, entry string) (model.Entry, bool) {
	for _, b := range s.Bands {
		if b.ID != band {
			continue
		}
		for _, e := range b.Entries {
			if e.ID == entry {
				return e, true
			}
		}
	}
	return model.Entry{}, false
}
