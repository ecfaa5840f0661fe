package datasource

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	cmmodel "github.com/daviddao/clockmail/pkg/model"
	"github.com/daviddao/clockmail/pkg/store"

	"github.com/daviddao/tlview/pkg/model"
)

// EventLimit caps the events read from a clockmail database; the newest
// are kept.
const EventLimit = 500

// LocksBandID is the id of the band holding clockmail file locks.
const LocksBandID = "clockmail/locks"

var kindColors = map[cmmodel.EventKind]string{
	cmmodel.EventMsg:      "#529bff",
	cmmodel.EventProgress: "#37b24d",
	cmmodel.EventLockReq:  "#f08c00",
	cmmodel.EventLockRel:  "#868e96",
}

// Open opens the clockmail store at path.
func Open(path string) (*store.Store, error) {
	s, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return s, nil
}

// ClockmailSource shows a clockmail database: one band per agent with its
// events as milestones, and a band of held locks.
type ClockmailSource struct {
	DB string
	// Now is the start of lock bars. Defaults to time.Now.
	Now func() time.Time
}

func (s *ClockmailSource) Name() string { return "clockmail:" + filepath.Base(s.DB) }
func (s *ClockmailSource) Path() string { return s.DB }

func (s *ClockmailSource) Load(ctx context.Context) ([]model.BandSpec, error) {
	st, err := Open(s.DB)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	agents, err := st.ListAgents()
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	// Anchor on the newest id; ListEvents from zero would return the oldest.
	sinceID := max(st.MaxEventID()-int64(EventLimit), 0)
	events, err := st.ListEventsSinceID(sinceID, EventLimit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	locks, err := st.ListLocks()
	if err != nil {
		return nil, fmt.Errorf("list locks: %w", err)
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return ClockmailBands(agents, events, locks, now()), nil
}

// ClockmailBands converts clockmail records to bands. Agents keep their
// order; agents seen only in events follow in order of appearance. Events
// without a creation time are dropped. Locks run from now until they
// expire; expired locks are dropped.
func ClockmailBands(agents []cmmodel.Agent, events []cmmodel.Event, locks []cmmodel.Lock, now time.Time) []model.BandSpec {
	var order []string
	byAgent := make(map[string][]model.Entry)
	seen := make(map[string]bool)
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}
	for _, ag := range agents {
		add(ag.ID)
	}
	for _, e := range events {
		if e.CreatedAt.IsZero() {
			continue
		}
		add(e.AgentID)
		title := string(e.Kind)
		if e.Target != "" {
			title += " " + e.Target
		}
		byAgent[e.AgentID] = append(byAgent[e.AgentID], model.Entry{
			ID:              fmt.Sprint(e.ID),
			Start:           e.CreatedAt,
			Title:           title,
			Tooltip:         e.Body,
			BackgroundColor: kindColors[e.Kind],
			Data: map[string]string{
				"agent":   e.AgentID,
				"kind":    string(e.Kind),
				"lamport": fmt.Sprint(e.LamportTS),
			},
		})
	}

	bands := make([]model.BandSpec, 0, len(order)+1)
	for _, id := range order {
		bands = append(bands, model.BandSpec{
			Type:        model.TypeEventBand,
			ID:          "clockmail/agent/" + id,
			Label:       id,
			Interactive: true,
			Entries:     byAgent[id],
		})
	}

	var held []model.Entry
	for _, l := range locks {
		if !l.ExpiresAt.After(now) {
			continue
		}
		held = append(held, model.Entry{
			ID:      l.Path,
			Start:   now,
			Stop:    l.ExpiresAt,
			Title:   l.Path,
			Tooltip: fmt.Sprintf("held by %s until %s", l.AgentID, l.ExpiresAt.Format(time.RFC3339)),
			Data:    map[string]string{"agent": l.AgentID, "lamport": fmt.Sprint(l.LamportTS)},
		})
	}
	if len(held) > 0 {
		bands = append(bands, model.BandSpec{
			Type:        model.TypeEventBand,
			ID:          LocksBandID,
			Label:       "locks",
			Interactive: true,
			Entries:     held,
		})
	}
	return bands
}
