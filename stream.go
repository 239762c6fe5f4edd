package wstream

import (
	"context"
	"sync"
)

// pendingAbort records an abort that arrived while some sink operation
// was already in flight: it cannot be performed until that operation
// settles.
type pendingAbort struct {
	reason error
	sig    *signal
}

// Stream is the central state machine (spec.md §4.3): canonical state,
// the stored error, the pending write/close request bookkeeping, the
// in-flight request slot, and the pending abort request. Construct one
// with NewStream.
type Stream struct {
	mu sync.Mutex

	state       State
	storedError error

	writer     *Writer
	controller *Controller

	writeRequests        []*signal
	inflightWriteRequest *signal
	closeRequest         *signal
	inflightCloseRequest *signal
	pendingAbortRequest  *pendingAbort

	backpressure bool
}

// NewStream constructs a Stream over sink, validates the strategy, and
// triggers the controller's Start. ctx is threaded through to every
// sink call and is expected to outlive the stream; it does not provide
// cancellation of an in-flight sink operation (spec.md §5: "a
// dispatched sink operation runs to completion").
func NewStream(ctx context.Context, sink Sink, strat Strategy) (*Stream, error) {
	if ts, ok := sink.(TypedSink); ok {
		if t := ts.Type(); t != "" {
			return nil, ErrReservedSinkType
		}
	}

	s := &Stream{state: Writable}
	ctrl, err := newController(ctx, s, sink, strat)
	if err != nil {
		return nil, err
	}
	s.controller = ctrl
	ctrl.beginStart()
	return s, nil
}

// State returns the stream's current canonical state.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the stored error, non-nil only once State() == Errored.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storedError
}

// Locked reports whether a Writer currently holds this stream's lock.
func (s *Stream) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer != nil
}

// GetWriter acquires the exclusive writer handle, or ErrLocked if one
// is already attached.
func (s *Stream) GetWriter() (*Writer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer != nil {
		return nil, ErrLocked
	}
	w := newWriterLocked(s)
	s.writer = w
	return w, nil
}

// Abort aborts the stream from the stream-level surface, which is only
// permitted while unlocked; a locked stream must be aborted through
// its Writer.
func (s *Stream) Abort(ctx context.Context, reason error) error {
	s.mu.Lock()
	if s.writer != nil {
		s.mu.Unlock()
		return ErrLocked
	}
	s.mu.Unlock()
	return s.abortInternal(ctx, reason)
}

// abortInternal implements spec.md §4.3 Stream.abort, shared by the
// stream-level and writer-level entry points.
func (s *Stream) abortInternal(ctx context.Context, reason error) error {
	s.mu.Lock()

	switch s.state {
	case Closed:
		s.mu.Unlock()
		return nil
	case Errored:
		err := s.storedError
		s.mu.Unlock()
		return err
	}

	if s.pendingAbortRequest != nil {
		s.mu.Unlock()
		return ErrAbortPending
	}

	if reason == nil {
		reason = ErrAborted
	}

	if s.writer != nil {
		rejectSignalLocked(s.writer.ready, reason)
	}

	inflight := s.inflightWriteRequest != nil || s.inflightCloseRequest != nil
	if !inflight {
		s.errorStreamLocked(reason)
		s.mu.Unlock()
		return s.controller.abort(ctx, reason)
	}

	sig := newPendingSignal()
	s.pendingAbortRequest = &pendingAbort{reason: reason, sig: sig}
	s.mu.Unlock()
	return sig.wait(ctx)
}

// addWriteRequestLocked appends a fresh pending write-completion signal.
// Caller must hold s.mu and must have already verified the stream is
// locked, writable, and has no close pending.
func (s *Stream) addWriteRequestLocked() *signal {
	sig := newPendingSignal()
	s.writeRequests = append(s.writeRequests, sig)
	return sig
}

// updateBackpressureLocked stores bp and, if it differs from the
// previous value and a writer is attached, flips the writer's ready
// signal: reset to pending when backpressure engages, resolved when it
// lifts. Caller must hold s.mu.
func (s *Stream) updateBackpressureLocked(bp bool) {
	if s.writer != nil && bp != s.backpressure {
		if bp {
			s.writer.ready.reset()
		} else {
			s.writer.ready.resolve()
		}
	}
	s.backpressure = bp
}

// errorStreamLocked transitions the stream to Errored exactly once and
// rejects every request that is not currently in flight (in-flight
// requests settle precisely once, through the finishInflight*
// notifications). Caller must hold s.mu.
func (s *Stream) errorStreamLocked(err error) {
	if s.state != Writable {
		return
	}
	s.state = Errored
	s.storedError = err

	for _, req := range s.writeRequests {
		req.reject(err)
	}
	s.writeRequests = nil

	if s.closeRequest != nil {
		s.closeRequest.reject(err)
		s.closeRequest = nil
	}

	if s.writer != nil {
		rejectSignalLocked(s.writer.ready, err)
		rejectSignalLocked(s.writer.closed, err)
	}
}

// finishInflightWrite is the controller's notification that the
// in-flight write's sink call fulfilled.
func (s *Stream) finishInflightWrite() {
	s.mu.Lock()

	req := s.inflightWriteRequest
	s.inflightWriteRequest = nil
	if req != nil {
		req.resolve()
	}

	if s.state == Errored {
		// A concurrent error landed while this write was in flight.
		if s.pendingAbortRequest != nil {
			par := s.pendingAbortRequest
			s.pendingAbortRequest = nil
			par.sig.reject(s.storedError)
		}
		s.mu.Unlock()
		return
	}

	if s.pendingAbortRequest != nil {
		par := s.pendingAbortRequest
		s.pendingAbortRequest = nil
		s.errorStreamLocked(par.reason)
		s.mu.Unlock()
		s.dispatchPendingAbort(par)
		return
	}

	s.mu.Unlock()
}

// finishInflightWriteWithError is the controller's notification that
// the in-flight write's sink call rejected with reason.
func (s *Stream) finishInflightWriteWithError(reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := s.inflightWriteRequest
	s.inflightWriteRequest = nil
	if req != nil {
		req.reject(reason)
	}

	wasErrored := s.state == Errored
	if !wasErrored {
		s.state = Errored
		s.storedError = reason
	}
	stored := s.storedError

	if s.writer != nil {
		rejectSignalLocked(s.writer.ready, reason)
		rejectSignalLocked(s.writer.closed, stored)
	}

	if s.pendingAbortRequest != nil {
		par := s.pendingAbortRequest
		s.pendingAbortRequest = nil
		par.sig.reject(stored)
	}

	for _, r := range s.writeRequests {
		r.reject(stored)
	}
	s.writeRequests = nil

	if s.closeRequest != nil {
		s.closeRequest.reject(stored)
		s.closeRequest = nil
	}
}

// finishInflightClose is the controller's notification that the
// in-flight close's sink call fulfilled.
func (s *Stream) finishInflightClose() {
	s.mu.Lock()

	req := s.inflightCloseRequest
	s.inflightCloseRequest = nil
	if req != nil {
		req.resolve()
	}

	if s.pendingAbortRequest != nil {
		par := s.pendingAbortRequest
		s.pendingAbortRequest = nil
		s.state = Errored
		s.storedError = ErrAbortAfterClose
		if s.writer != nil {
			rejectSignalLocked(s.writer.closed, ErrAbortAfterClose)
		}
		s.mu.Unlock()
		// The close already fully drained and settled the sink; there is
		// nothing left for sink.Abort to do, so the pending abort simply
		// resolves (spec.md §8 scenario 5).
		par.sig.resolve()
		return
	}

	s.state = Closed
	if s.writer != nil {
		s.writer.closed.resolve()
	}
	s.mu.Unlock()
}

// finishInflightCloseWithError is the controller's notification that
// the in-flight close's sink call rejected with reason.
func (s *Stream) finishInflightCloseWithError(reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := s.inflightCloseRequest
	s.inflightCloseRequest = nil
	if req != nil {
		req.reject(reason)
	}

	wasErrored := s.state == Errored
	if !wasErrored {
		s.state = Errored
		s.storedError = reason
	}
	stored := s.storedError

	if s.writer != nil {
		rejectSignalLocked(s.writer.closed, reason)
		rejectSignalLocked(s.writer.ready, stored)
	}

	if s.pendingAbortRequest != nil {
		par := s.pendingAbortRequest
		s.pendingAbortRequest = nil
		par.sig.reject(stored)
	}

	for _, r := range s.writeRequests {
		r.reject(stored)
	}
	s.writeRequests = nil
}

// dispatchPendingAbort runs sink.Abort for a pending abort request that
// was waiting on an in-flight write, and settles its signal with the
// outcome. Runs outside s.mu, in the same goroutine the write
// settlement arrived on.
func (s *Stream) dispatchPendingAbort(par *pendingAbort) {
	err := s.controller.abort(s.controller.ctx, par.reason)
	if err != nil {
		par.sig.reject(err)
	} else {
		par.sig.resolve()
	}
}

// rejectSignalLocked rejects sig if pending, or replaces it with a
// fresh rejected generation if it had already settled — the "reset to
// rejected" move from spec.md §9's design note. Caller must hold the
// owning stream's mu (sig's own internal lock is independent and safe
// to take while holding the stream lock).
func rejectSignalLocked(sig *signal, err error) {
	if sig.pending() {
		sig.reject(err)
	} else {
		sig.resetRejected(err)
	}
}
