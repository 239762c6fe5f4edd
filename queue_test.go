package wstream

import (
	"math"
	"testing"
)

func TestSizeQueueOrdering(t *testing.T) {
	var q sizeQueue
	if err := q.enqueue(queueRecord{chunk: []byte("a"), size: 1}); err != nil {
		t.Fatalf("enqueue a: %v", err)
	}
	if err := q.enqueue(queueRecord{chunk: []byte("b"), size: 2}); err != nil {
		t.Fatalf("enqueue b: %v", err)
	}
	if q.totalSize() != 3 {
		t.Fatalf("expected total 3, got %v", q.totalSize())
	}
	if got := string(q.peek().chunk); got != "a" {
		t.Fatalf("expected peek to return head 'a', got %q", got)
	}
	first := q.dequeue()
	if string(first.chunk) != "a" {
		t.Fatalf("expected dequeue to return 'a', got %q", first.chunk)
	}
	if q.totalSize() != 2 {
		t.Fatalf("expected total 2 after dequeue, got %v", q.totalSize())
	}
	second := q.dequeue()
	if string(second.chunk) != "b" {
		t.Fatalf("expected dequeue to return 'b', got %q", second.chunk)
	}
	if q.len() != 0 {
		t.Fatalf("expected empty queue, got len %d", q.len())
	}
}

func TestSizeQueueInvalidSize(t *testing.T) {
	cases := []struct {
		name string
		size float64
	}{
		{"nan", math.NaN()},
		{"negative", -1},
		{"negative-infinity", math.Inf(-1)},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var q sizeQueue
			if err := q.enqueue(queueRecord{size: c.size}); err != ErrInvalidSize {
				t.Fatalf("expected ErrInvalidSize, got %v", err)
			}
		})
	}
}

func TestSizeQueuePositiveInfinityPermitted(t *testing.T) {
	var q sizeQueue
	if err := q.enqueue(queueRecord{chunk: []byte("huge"), size: math.Inf(1)}); err != nil {
		t.Fatalf("expected +Inf size to be accepted, got %v", err)
	}
	if !math.IsInf(q.totalSize(), 1) {
		t.Fatalf("expected total size to be +Inf, got %v", q.totalSize())
	}
}

func TestSizeQueueClear(t *testing.T) {
	var q sizeQueue
	_ = q.enqueue(queueRecord{chunk: []byte("a"), size: 1})
	_ = q.enqueue(queueRecord{chunk: []byte("b"), size: 1})
	q.clear()
	if q.len() != 0 || q.totalSize() != 0 {
		t.Fatalf("expected empty queue after clear, got len=%d total=%v", q.len(), q.totalSize())
	}
}
