package wstream

import (
	"context"
	"sync"
)

// gen is one settlement generation: a channel that closes exactly once
// settled, and the error it settled with (nil for success). Replacing a
// signal's generation (reset/resetRejected) never mutates an existing
// gen in place, so a waiter holding a reference to an old gen always
// observes a self-consistent (channel, error) pair even if the signal
// moves on to a new generation in the meantime.
type gen struct {
	done chan struct{}
	err  error
}

// signal is a single-shot settlement slot that can be reset to a fresh
// pending or settled value, modelling the twin-slot ready/closed promise
// pattern from the streams contract this package implements: at any
// moment it is pending, resolved, or rejected with an error, and any of
// those three states can be replaced wholesale by a later call.
type signal struct {
	mu  sync.Mutex
	cur *gen
}

func newPendingSignal() *signal {
	return &signal{cur: &gen{done: make(chan struct{})}}
}

func newSettledSignal(err error) *signal {
	g := &gen{done: make(chan struct{}), err: err}
	close(g.done)
	return &signal{cur: g}
}

// pending reports whether the signal has not yet settled.
func (s *signal) pending() bool {
	s.mu.Lock()
	g := s.cur
	s.mu.Unlock()
	select {
	case <-g.done:
		return false
	default:
		return true
	}
}

// resolve settles a pending signal with success. A no-op if already settled.
func (s *signal) resolve() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.cur.done:
	default:
		close(s.cur.done)
	}
}

// reject settles a pending signal with err. A no-op if already settled.
func (s *signal) reject(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.cur.done:
	default:
		s.cur.err = err
		close(s.cur.done)
	}
}

// reset replaces the slot wholesale with a fresh pending generation,
// discarding whatever it previously held. Used when backpressure
// reasserts itself and `ready` must become pending again.
func (s *signal) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = &gen{done: make(chan struct{})}
}

// resetRejected replaces the slot wholesale with a fresh already-rejected
// generation. Used by releaseLock, which must turn an already-resolved
// promise into a rejected one without a caller ever observing "pending".
func (s *signal) resetRejected(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := &gen{done: make(chan struct{}), err: err}
	close(g.done)
	s.cur = g
}

// wait blocks until the signal's current generation settles, or ctx is done.
func (s *signal) wait(ctx context.Context) error {
	s.mu.Lock()
	g := s.cur
	s.mu.Unlock()
	select {
	case <-g.done:
		return g.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tryErr returns the stored error and whether the current generation has
// settled, without blocking.
func (s *signal) tryErr() (err error, settled bool) {
	s.mu.Lock()
	g := s.cur
	s.mu.Unlock()
	select {
	case <-g.done:
		return g.err, true
	default:
		return nil, false
	}
}
