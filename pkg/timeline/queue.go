package timeline

import "time"

// queue is the default gesture.Scheduler. Calls wait until run is invoked
// after their delay, so they execute on the goroutine driving the Timeline.
type queue struct {
	now   func() time.Time
	calls []*queuedCall
}

type queuedCall struct {
	due time.Time
	f   func()
}

func (q *queue) AfterFunc(d time.Duration, f func()) func() {
	c := &queuedCall{due: q.now().Add(d), f: f}
	q.calls = append(q.calls, c)
	return func() { c.f = nil }
}

// run calls everything that is due, in scheduling order. Calls scheduled
// while running wait for the next run.
func (q *queue) run() {
	now := q.now()
	var due, rest []*queuedCall
	for _, c := range q.calls {
		switch {
		case c.f == nil:
		case now.Before(c.due):
			rest = append(rest, c)
		default:
			due = append(due, c)
		}
	}
	q.calls = rest
	for _, c := range due {
		if f := c.f; f != nil {
			c.f = nil
			f()
		}
	}
}
