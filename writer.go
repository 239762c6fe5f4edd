package wstream

import (
	"context"
	"sync"
)

// Settlement is a handle to a pending write or close outcome, or to a
// writer's ready/closed signal:
// the Go expression of the streams contract's "returned promise"
// (spec.md §9 design note). Wait blocks until it settles or ctx is
// done.
type Settlement struct {
	sig *signal
}

// Wait blocks until the settlement resolves or rejects, or ctx is done.
func (r *Settlement) Wait(ctx context.Context) error {
	return r.sig.wait(ctx)
}

// Done returns a channel closed once the settlement has settled, for
// callers that want to select on it alongside other work.
func (r *Settlement) Done() <-chan struct{} {
	r.sig.mu.Lock()
	ch := r.sig.cur.done
	r.sig.mu.Unlock()
	return ch
}

// Writer is the exclusive handle a producer uses (spec.md §4.4). Obtain
// one with Stream.GetWriter; release it with ReleaseLock.
type Writer struct {
	mu       sync.Mutex
	released bool
	stream   *Stream

	ready  *signal
	closed *signal
}

// newWriterLocked builds a Writer whose ready/closed signals are
// initialized from the stream's current state, per the table in
// spec.md §4.4. Caller must hold stream.mu.
func newWriterLocked(s *Stream) *Writer {
	w := &Writer{stream: s}

	switch {
	case s.pendingAbortRequest != nil:
		// Open Question 1 (spec.md §9 / DESIGN.md): constructing a writer
		// over a stream with an abort already in flight.
		w.ready = newSettledSignal(s.pendingAbortRequest.reason)
		w.closed = newPendingSignal()
	case s.state == Closed:
		w.ready = newSettledSignal(nil)
		w.closed = newSettledSignal(nil)
	case s.state == Errored:
		w.ready = newSettledSignal(s.storedError)
		w.closed = newSettledSignal(s.storedError)
	case s.backpressure:
		w.ready = newPendingSignal()
		w.closed = newPendingSignal()
	default:
		w.ready = newSettledSignal(nil)
		w.closed = newPendingSignal()
	}

	return w
}

// attachedStream returns the owning stream, or ErrReleased if the
// writer has already released its lock.
func (w *Writer) attachedStream() (*Stream, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.released {
		return nil, ErrReleased
	}
	return w.stream, nil
}

// Ready mirrors the streams contract's `ready` property: settles
// (successfully) whenever the stream is accepting further writes
// without backpressure, and rejects if the stream errors while
// signalling pressure.
func (w *Writer) Ready() *Settlement {
	return &Settlement{w.ready}
}

// Closed mirrors the streams contract's `closed` property: settles
// successfully when the stream closes cleanly under this writer, and
// rejects if the stream errors or this writer is released first.
func (w *Writer) Closed() *Settlement {
	return &Settlement{w.closed}
}

// DesiredSize returns hwm-totalSize, 0 once closed, or nil once errored
// or while an abort is pending.
func (w *Writer) DesiredSize() (*float64, error) {
	s, err := w.attachedStream()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Errored || s.pendingAbortRequest != nil {
		return nil, nil
	}
	if s.state == Closed {
		v := 0.0
		return &v, nil
	}
	// s.mu is already held, so compute directly rather than through
	// Controller.DesiredSize, which takes the same lock.
	v := s.controller.hwm - s.controller.queue.totalSize()
	return &v, nil
}

// Write records a pending request on the stream and hands chunk to the
// controller. The returned Settlement settles when the chunk's sink
// write settles, or when the stream errors before it is ever
// dispatched.
func (w *Writer) Write(chunk []byte) (*Settlement, error) {
	s, err := w.attachedStream()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	switch {
	case s.state == Closed:
		s.mu.Unlock()
		return nil, ErrClosed
	case s.state == Errored:
		err := s.storedError
		s.mu.Unlock()
		return nil, err
	case s.closeRequest != nil || s.inflightCloseRequest != nil:
		s.mu.Unlock()
		return nil, ErrCloseRequested
	case s.pendingAbortRequest != nil:
		// Not explicit in spec.md §4.4's precondition table, but required
		// by §8's "Abort dominance": queued writes submitted once an
		// abort is underway must never reach the sink.
		reason := s.pendingAbortRequest.reason
		s.mu.Unlock()
		return nil, reason
	}

	sig := s.addWriteRequestLocked()
	s.mu.Unlock()

	s.controller.write(chunk)
	return &Settlement{sig}, nil
}

// Close requests a clean close: the sentinel is enqueued behind any
// chunks already queued, `ready` resolves immediately (a closing stream
// accepts no more chunks, so there is nothing left to be backpressured
// against), and the returned Settlement settles when the sink's Close
// call settles.
func (w *Writer) Close() (*Settlement, error) {
	s, err := w.attachedStream()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	switch {
	case s.state == Closed:
		s.mu.Unlock()
		return nil, ErrClosed
	case s.state == Errored:
		err := s.storedError
		s.mu.Unlock()
		return nil, err
	case s.closeRequest != nil || s.inflightCloseRequest != nil:
		s.mu.Unlock()
		return nil, ErrCloseRequested
	case s.pendingAbortRequest != nil:
		reason := s.pendingAbortRequest.reason
		s.mu.Unlock()
		return nil, reason
	}

	sig := newPendingSignal()
	s.closeRequest = sig
	s.writer.ready.resolve()
	s.backpressure = false
	s.mu.Unlock()

	s.controller.close()
	return &Settlement{sig}, nil
}

// CloseWithErrorPropagation is the pipe-consumer variant of Close: a
// stream that is already closed, or already has a close pending, is
// treated as a success (where Close would return ErrClosed or
// ErrCloseRequested); an errored stream rejects with its stored error,
// as Close does; otherwise it behaves like a normal Close.
func (w *Writer) CloseWithErrorPropagation() (*Settlement, error) {
	s, err := w.attachedStream()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	switch {
	case s.state == Closed:
		s.mu.Unlock()
		return &Settlement{newSettledSignal(nil)}, nil
	case s.state == Writable && (s.closeRequest != nil || s.inflightCloseRequest != nil):
		s.mu.Unlock()
		return &Settlement{newSettledSignal(nil)}, nil
	case s.state == Errored:
		storedErr := s.storedError
		s.mu.Unlock()
		return nil, storedErr
	}
	s.mu.Unlock()

	return w.Close()
}

// Abort forwards to the stream's abort path, bypassing the
// stream-level locked check: the writer holding the lock is authorized
// to abort unconditionally.
func (w *Writer) Abort(ctx context.Context, reason error) error {
	s, err := w.attachedStream()
	if err != nil {
		return err
	}
	return s.abortInternal(ctx, reason)
}

// ReleaseLock detaches this writer from its stream. A no-op if already
// released. The stream, its queue, and any in-flight sink operation
// continue to completion; their outcomes simply no longer reach this
// writer's ready/closed signals.
func (w *Writer) ReleaseLock() {
	w.mu.Lock()
	if w.released {
		w.mu.Unlock()
		return
	}
	w.released = true
	s := w.stream
	w.mu.Unlock()

	if w.ready.pending() {
		w.ready.reject(ErrReleased)
	} else {
		w.ready.resetRejected(ErrReleased)
	}
	if w.closed.pending() {
		w.closed.reject(ErrReleased)
	} else {
		w.closed.resetRejected(ErrReleased)
	}

	s.mu.Lock()
	if s.writer == w {
		s.writer = nil
	}
	s.mu.Unlock()

	w.mu.Lock()
	w.stream = nil
	w.mu.Unlock()
}
