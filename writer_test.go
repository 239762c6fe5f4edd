package wstream

import (
	"context"
	"errors"
	"testing"
)

func TestWriterDesiredSizeAcrossStates(t *testing.T) {
	sink := &testSink{}
	s, err := NewStream(context.Background(), sink, Strategy{HighWaterMark: 5})
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	w, err := s.GetWriter()
	if err != nil {
		t.Fatalf("GetWriter: %v", err)
	}

	size, err := w.DesiredSize()
	if err != nil || size == nil || *size != 5 {
		t.Fatalf("expected desired size 5, got %v, %v", size, err)
	}

	if _, err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	waitUntil(t, testTimeout, sink.wasClosed)
	waitUntil(t, testTimeout, func() bool { return s.State() == Closed })

	size, err = w.DesiredSize()
	if err != nil || size == nil || *size != 0 {
		t.Fatalf("expected desired size 0 once closed, got %v, %v", size, err)
	}
}

func TestWriterDesiredSizeNilWhileErrored(t *testing.T) {
	boom := errors.New("boom")
	sink := &testSink{writeFn: func(ctx context.Context, chunk []byte, c *Controller) error { return boom }}
	s, err := NewStream(context.Background(), sink, Strategy{HighWaterMark: 5})
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	w, err := s.GetWriter()
	if err != nil {
		t.Fatalf("GetWriter: %v", err)
	}
	settle, err := w.Write([]byte("x"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = settle.Wait(context.Background())

	size, err := w.DesiredSize()
	if err != nil || size != nil {
		t.Fatalf("expected nil, nil once errored, got %v, %v", size, err)
	}
}

// TestNewWriterOverPendingAbort covers Open Question 1: acquiring a
// writer while a prior writer's abort is still waiting on an in-flight
// operation.
func TestNewWriterOverPendingAbort(t *testing.T) {
	writeStarted := make(chan struct{})
	release := make(chan struct{})
	sink := &testSink{writeFn: func(ctx context.Context, chunk []byte, c *Controller) error {
		close(writeStarted)
		<-release
		return nil
	}}

	s, err := NewStream(context.Background(), sink, Strategy{HighWaterMark: 5})
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	w1, err := s.GetWriter()
	if err != nil {
		t.Fatalf("GetWriter: %v", err)
	}
	if _, err := w1.Write([]byte("a")); err != nil {
		t.Fatalf("write: %v", err)
	}
	<-writeStarted

	abortReason := errors.New("r")
	abortErrCh := make(chan error, 1)
	go func() { abortErrCh <- w1.Abort(context.Background(), abortReason) }()
	waitUntil(t, testTimeout, s.hasPendingAbort)

	w1.ReleaseLock()
	w2, err := s.GetWriter()
	if err != nil {
		t.Fatalf("expected to be able to acquire a writer over a pending abort, got %v", err)
	}
	if err := w2.ready.wait(context.Background()); err != abortReason {
		t.Fatalf("expected new writer's ready to be rejected with the pending abort reason, got %v", err)
	}
	if !w2.closed.pending() {
		t.Fatalf("expected new writer's closed to still be pending")
	}

	close(release)
	if err := <-abortErrCh; err != nil {
		t.Fatalf("abort: %v", err)
	}
}

func TestCloseWithErrorPropagation(t *testing.T) {
	t.Run("already closed", func(t *testing.T) {
		sink := &testSink{}
		s, err := NewStream(context.Background(), sink, Strategy{HighWaterMark: 1})
		if err != nil {
			t.Fatalf("NewStream: %v", err)
		}
		w, err := s.GetWriter()
		if err != nil {
			t.Fatalf("GetWriter: %v", err)
		}
		if _, err := w.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		waitUntil(t, testTimeout, func() bool { return s.State() == Closed })

		settle, err := w.CloseWithErrorPropagation()
		if err != nil {
			t.Fatalf("CloseWithErrorPropagation: %v", err)
		}
		if err := settle.Wait(context.Background()); err != nil {
			t.Fatalf("settle: %v", err)
		}
	})

	t.Run("errored", func(t *testing.T) {
		boom := errors.New("boom")
		sink := &testSink{writeFn: func(ctx context.Context, chunk []byte, c *Controller) error { return boom }}
		s, err := NewStream(context.Background(), sink, Strategy{HighWaterMark: 1})
		if err != nil {
			t.Fatalf("NewStream: %v", err)
		}
		w, err := s.GetWriter()
		if err != nil {
			t.Fatalf("GetWriter: %v", err)
		}
		settle, err := w.Write([]byte("x"))
		if err != nil {
			t.Fatalf("write: %v", err)
		}
		_ = settle.Wait(context.Background())

		if _, err := w.CloseWithErrorPropagation(); err != boom {
			t.Fatalf("expected %v, got %v", boom, err)
		}
	})
}

func TestReleaseLockIsIdempotent(t *testing.T) {
	s, err := NewStream(context.Background(), &testSink{}, Strategy{HighWaterMark: 1})
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	w, err := s.GetWriter()
	if err != nil {
		t.Fatalf("GetWriter: %v", err)
	}
	w.ReleaseLock()
	w.ReleaseLock()
	if s.Locked() {
		t.Fatalf("expected stream unlocked")
	}
	if _, err := w.Write([]byte("x")); err != ErrReleased {
		t.Fatalf("expected ErrReleased on a released writer, got %v", err)
	}
}
