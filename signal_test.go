package wstream

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSignalResolve(t *testing.T) {
	s := newPendingSignal()
	if !s.pending() {
		t.Fatalf("expected pending signal")
	}
	s.resolve()
	if s.pending() {
		t.Fatalf("expected settled signal")
	}
	if err := s.wait(context.Background()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	// a second resolve/reject is a no-op
	s.reject(errors.New("too late"))
	if err := s.wait(context.Background()); err != nil {
		t.Fatalf("expected first settlement to stick, got %v", err)
	}
}

func TestSignalReject(t *testing.T) {
	boom := errors.New("boom")
	s := newPendingSignal()
	s.reject(boom)
	if err := s.wait(context.Background()); err != boom {
		t.Fatalf("expected %v, got %v", boom, err)
	}
}

func TestSignalResetToPending(t *testing.T) {
	s := newSettledSignal(nil)
	s.reset()
	if !s.pending() {
		t.Fatalf("expected pending after reset")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.wait(ctx); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestSignalResetRejected(t *testing.T) {
	boom := errors.New("boom")
	s := newSettledSignal(nil)
	s.resetRejected(boom)
	if err := s.wait(context.Background()); err != boom {
		t.Fatalf("expected %v, got %v", boom, err)
	}
}

func TestSignalWaitObservesLateSettlement(t *testing.T) {
	s := newPendingSignal()
	boom := errors.New("late")
	go func() {
		time.Sleep(5 * time.Millisecond)
		s.reject(boom)
	}()
	if err := s.wait(context.Background()); err != boom {
		t.Fatalf("expected %v, got %v", boom, err)
	}
}

func TestSignalTryErr(t *testing.T) {
	s := newPendingSignal()
	if _, settled := s.tryErr(); settled {
		t.Fatalf("expected unsettled")
	}
	s.resolve()
	if err, settled := s.tryErr(); !settled || err != nil {
		t.Fatalf("expected settled nil, got settled=%v err=%v", settled, err)
	}
}
