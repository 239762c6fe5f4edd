package wstream

import "math"

// queueRecord is one entry in a sizeQueue: either a chunk awaiting
// dispatch to the sink, or the close sentinel (isClose=true, size 0).
type queueRecord struct {
	chunk   []byte
	size    float64
	isClose bool
}

// sizeQueue is an ordered FIFO of queueRecord with a running total size,
// the §4.1 Size Queue component. Adapted from the "ordered sized
// records" shape of smux's shaperHeap, dropped down from a priority
// heap to a plain FIFO since this contract has no frame-class
// prioritization to do.
type sizeQueue struct {
	records []queueRecord
	total   float64
}

// enqueue appends a record. It rejects NaN, negative, and -Inf sizes;
// +Inf is permitted (see DESIGN.md Open Question 3) and forces
// backpressure for as long as it sits in the queue.
func (q *sizeQueue) enqueue(rec queueRecord) error {
	if math.IsNaN(rec.size) || rec.size < 0 || math.IsInf(rec.size, -1) {
		return ErrInvalidSize
	}
	q.records = append(q.records, rec)
	q.total += rec.size
	return nil
}

// peek returns the head record without removing it. Undefined (panics)
// when empty, per spec.md §4.1.
func (q *sizeQueue) peek() queueRecord {
	return q.records[0]
}

// dequeue removes and returns the head record. Undefined (panics) when
// empty, per spec.md §4.1.
func (q *sizeQueue) dequeue() queueRecord {
	rec := q.records[0]
	q.records[0] = queueRecord{}
	q.records = q.records[1:]
	q.total -= rec.size
	return rec
}

func (q *sizeQueue) len() int {
	return len(q.records)
}

func (q *sizeQueue) totalSize() float64 {
	return q.total
}

// clear empties the queue, used by Controller.abort to discard
// never-dispatched work.
func (q *sizeQueue) clear() {
	q.records = nil
	q.total = 0
}
