package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrServerFull is returned by Reserve when max_connections is reached.
	ErrServerFull = errors.New("session: server full")
	// ErrShuttingDown is returned by Reserve once Shutdown has started.
	ErrShuttingDown = errors.New("session: shutting down")
)

// Tracker keeps count of live sessions and can cancel them all at shutdown.
// One tracker is shared by every transport, so its limit covers all of them.
type Tracker struct {
	limit int64

	mu      sync.Mutex
	closed  bool
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup

	active atomic.Int64
	total  atomic.Uint64
}

// NewTracker returns an empty tracker. limit <= 0 means unlimited.
func NewTracker(limit int) *Tracker {
	return &Tracker{
		limit:   int64(limit),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Slot is a reserved place for one session. It must be used by exactly one
// call to Go or Run, or given back with Release.
type Slot struct {
	t    *Tracker
	once sync.Once
}

// Reserve claims a slot before the connection is set up.
func (t *Tracker) Reserve() (*Slot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrShuttingDown
	}
	if t.limit > 0 && t.active.Load() >= t.limit {
		return nil, ErrServerFull
	}
	t.active.Add(1)
	t.wg.Add(1)
	return &Slot{t: t}, nil
}

// Release gives the slot back. Safe to call more than once.
func (sl *Slot) Release() {
	sl.once.Do(func() {
		sl.t.active.Add(-1)
		sl.t.wg.Done()
	})
}

// Go runs s in its own goroutine and calls done with its result.
func (sl *Slot) Go(ctx context.Context, s *Session, done func(error)) {
	sctx := sl.t.track(ctx, s)
	go func() {
		err := sl.serve(sctx, s)
		if done != nil {
			done(err)
		}
	}()
}

// Run serves s on the calling goroutine.
func (sl *Slot) Run(ctx context.Context, s *Session) error {
	sctx := sl.t.track(ctx, s)
	return sl.serve(sctx, s)
}

func (sl *Slot) serve(ctx context.Context, s *Session) error {
	defer sl.Release()
	defer sl.t.untrack(s)
	return s.Serve(ctx)
}

// Go reserves a slot and runs s in its own goroutine.
func (t *Tracker) Go(ctx context.Context, s *Session, done func(error)) error {
	sl, err := t.Reserve()
	if err != nil {
		return err
	}
	sl.Go(ctx, s, done)
	return nil
}

// Run reserves a slot and serves s on the calling goroutine.
func (t *Tracker) Run(ctx context.Context, s *Session) error {
	sl, err := t.Reserve()
	if err != nil {
		return err
	}
	return sl.Run(ctx, s)
}

func (t *Tracker) track(ctx context.Context, s *Session) context.Context {
	sctx, cancel := context.WithCancel(ctx)
	t.total.Add(1)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		// reserved before Shutdown, started after its cancel pass
		cancel()
		return sctx
	}
	t.cancels[s.ID()] = cancel
	return sctx
}

func (t *Tracker) untrack(s *Session) {
	t.mu.Lock()
	cancel, ok := t.cancels[s.ID()]
	delete(t.cancels, s.ID())
	t.mu.Unlock()

	if ok {
		cancel()
	}
}

// Active returns the number of reserved or running sessions.
func (t *Tracker) Active() int64 {
	return t.active.Load()
}

// Total returns the number of sessions started since the tracker was created.
func (t *Tracker) Total() uint64 {
	return t.total.Load()
}

// Shutdown refuses new sessions, cancels every live one and waits for them
// to return or for ctx to expire.
func (t *Tracker) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	for _, cancel := range t.cancels {
		cancel()
	}
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
