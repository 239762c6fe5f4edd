package sinks

import (
	"context"
	"sync"

	"github.com/sagernet/wstream"
)

// StubSink is an in-memory sink for tests: it accepts every chunk
// without persisting anywhere and tracks enough state for assertions.
type StubSink struct {
	mu sync.Mutex

	started bool
	closed  bool
	aborted bool

	abortReason error

	// Written holds every chunk seen by Write, in submission order.
	Written [][]byte

	// ErrorOnWrite, if non-nil, is returned by the next call to Write
	// instead of recording the chunk; it is then cleared.
	ErrorOnWrite error
}

// NewStubSink returns a ready-to-use StubSink.
func NewStubSink() *StubSink {
	return &StubSink{}
}

func (s *StubSink) Start(ctx context.Context, c *wstream.Controller) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	return nil
}

func (s *StubSink) Write(ctx context.Context, chunk []byte, c *wstream.Controller) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ErrorOnWrite != nil {
		err := s.ErrorOnWrite
		s.ErrorOnWrite = nil
		return err
	}
	s.Written = append(s.Written, append([]byte(nil), chunk...))
	return nil
}

func (s *StubSink) Close(ctx context.Context, c *wstream.Controller) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *StubSink) Abort(ctx context.Context, reason error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aborted = true
	s.abortReason = reason
	return nil
}

// Snapshot returns a copy of every chunk written so far.
func (s *StubSink) Snapshot() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.Written))
	copy(out, s.Written)
	return out
}

// WasStarted reports whether Start has been called.
func (s *StubSink) WasStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// WasClosed reports whether Close has been called.
func (s *StubSink) WasClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// WasAborted reports whether Abort has been called, and with what reason.
func (s *StubSink) WasAborted() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted, s.abortReason
}
