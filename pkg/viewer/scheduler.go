package viewer

import (
	"context"
	"slices"
	"time"
)

// FrameID identifies a requested frame. The zero value is never issued.
type FrameID uint64

// FrameScheduler is the host's animation primitive.
//
// RequestFrame and CancelFrame are only called from the control
// goroutine. Post may be called from any goroutine and runs fn on the
// control goroutine.
type FrameScheduler interface {
	RequestFrame(fn func(now time.Time)) FrameID
	CancelFrame(id FrameID)
	Post(fn func())
}

// Loop is a FrameScheduler driven by a fixed-rate ticker. Everything it
// runs, frame callbacks and posted functions alike, runs on the goroutine
// that called Run.
type Loop struct {
	interval time.Duration
	posted   chan func()
	done     chan struct{}

	next    FrameID
	pending map[FrameID]func(time.Time)
}

// NewLoop creates a loop that fires frames fps times per second.
func NewLoop(fps int) *Loop {
	if fps <= 0 {
		fps = 60
	}
	return &Loop{
		interval: time.Second / time.Duration(fps),
		posted:   make(chan func(), 64),
		done:     make(chan struct{}),
		pending:  make(map[FrameID]func(time.Time)),
	}
}

// Interval returns the time between frames.
func (l *Loop) Interval() time.Duration { return l.interval }

// RequestFrame schedules fn for the next tick.
func (l *Loop) RequestFrame(fn func(now time.Time)) FrameID {
	l.next++
	l.pending[l.next] = fn
	return l.next
}

// CancelFrame drops a pending frame. Unknown or already fired IDs are
// ignored.
func (l *Loop) CancelFrame(id FrameID) {
	delete(l.pending, id)
}

// Post queues fn to run on the loop goroutine. After Run returns, Post
// drops fn.
func (l *Loop) Post(fn func()) {
	select {
	case l.posted <- fn:
	case <-l.done:
	}
}

// Run processes posted functions and frame ticks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			clear(l.pending)
			return ctx.Err()
		case fn := <-l.posted:
			fn()
		case now := <-ticker.C:
			l.fire(now)
		}
	}
}

// fire runs the frames that were pending when the tick arrived, in request
// order. Frames requested while firing wait for the next tick.
func (l *Loop) fire(now time.Time) {
	if len(l.pending) == 0 {
		return
	}
	ids := make([]FrameID, 0, len(l.pending))
	for id := range l.pending {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		fn, ok := l.pending[id]
		if !ok {
			continue // cancelled by an earlier callback
		}
		delete(l.pending, id)
		fn(now)
	}
}
