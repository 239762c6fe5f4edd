package wstream

import (
	"context"
	"math"

	"github.com/pkg/errors"
)

// Controller owns the chunk queue, the queuing strategy, and the sink
// reference, and decides when to dispatch the next sink operation. It
// is the value handed to Sink methods so a sink can read desired size
// or call Error without reaching back into the Stream.
type Controller struct {
	stream *Stream
	ctx    context.Context

	queue  sizeQueue
	hwm    float64
	sizeFn func([]byte) (float64, error)
	sink   Sink

	started bool
}

func newController(ctx context.Context, stream *Stream, sink Sink, strat Strategy) (*Controller, error) {
	if !validHWM(strat.HighWaterMark) {
		return nil, ErrInvalidHWM
	}
	c := &Controller{
		stream: stream,
		ctx:    ctx,
		hwm:    strat.HighWaterMark,
		sizeFn: strat.Size,
		sink:   sink,
	}

	stream.mu.Lock()
	stream.backpressure = strat.HighWaterMark <= 0
	stream.mu.Unlock()

	return c, nil
}

func validHWM(hwm float64) bool {
	return !math.IsNaN(hwm) && hwm >= 0 && !math.IsInf(hwm, 0)
}

// beginStart launches the sink's optional Start method in the
// background, the way a promise-returning constructor would: the
// Stream is usable (writes can be queued) immediately, but nothing is
// dispatched to the sink until Start settles.
func (c *Controller) beginStart() {
	go c.start()
}

func (c *Controller) start() {
	var err error
	if ss, ok := c.sink.(StartSink); ok {
		err = ss.Start(c.ctx, c)
	}
	if err != nil {
		c.errorIfNeeded(err)
		return
	}

	c.stream.mu.Lock()
	c.started = true
	c.stream.mu.Unlock()

	// Open Question (spec.md §9): flush anything queued while Start was
	// still in flight.
	c.tryAdvance()
}

// write is invoked by Writer.Write after it has recorded the pending
// write request on the Stream. It never returns an error to the
// caller directly: any failure here errors the whole stream, and the
// write request the caller already registered settles through that
// error path exactly once.
func (c *Controller) write(chunk []byte) {
	size := 1.0
	if c.sizeFn != nil {
		v, err := c.sizeFn(chunk)
		if err != nil {
			c.errorIfNeeded(errors.Wrap(err, "wstream: chunk size function"))
			return
		}
		size = v
	}

	c.stream.mu.Lock()
	err := c.queue.enqueue(queueRecord{chunk: chunk, size: size})
	if err != nil {
		c.stream.mu.Unlock()
		c.errorIfNeeded(err)
		return
	}
	if c.stream.state == Writable && c.stream.closeRequest == nil && c.stream.inflightCloseRequest == nil {
		c.recomputeBackpressureLocked()
	}
	c.stream.mu.Unlock()

	c.tryAdvance()
}

// close enqueues the close sentinel and attempts to advance.
func (c *Controller) close() {
	c.stream.mu.Lock()
	// A zero-size, non-close record would never fail enqueue; the
	// sentinel is even less likely to, but the error is propagated for
	// completeness and symmetry with write's enqueue step.
	err := c.queue.enqueue(queueRecord{isClose: true})
	c.stream.mu.Unlock()
	if err != nil {
		c.errorIfNeeded(err)
		return
	}
	c.tryAdvance()
}

// tryAdvance is the §4.2 "advance" operation: it dispatches the next
// sink operation if one isn't already in flight, the sink has
// started, and the stream is still writable.
func (c *Controller) tryAdvance() {
	c.stream.mu.Lock()

	if c.stream.state != Writable || !c.started {
		c.stream.mu.Unlock()
		return
	}
	if c.stream.inflightWriteRequest != nil || c.stream.inflightCloseRequest != nil {
		c.stream.mu.Unlock()
		return
	}
	if c.queue.len() == 0 {
		c.stream.mu.Unlock()
		return
	}

	rec := c.queue.peek()
	if rec.isClose {
		req := c.stream.closeRequest
		c.stream.closeRequest = nil
		c.stream.inflightCloseRequest = req
		c.queue.dequeue()
		c.stream.mu.Unlock()
		go c.processClose()
		return
	}

	if len(c.stream.writeRequests) == 0 {
		c.stream.mu.Unlock()
		panic("wstream: queue head is a chunk but no write request is pending")
	}
	req := c.stream.writeRequests[0]
	c.stream.writeRequests = c.stream.writeRequests[1:]
	c.stream.inflightWriteRequest = req
	c.stream.mu.Unlock()

	go c.processWrite(rec.chunk)
}

// processWrite dispatches a single chunk to the sink and folds its
// settlement back into the Stream.
func (c *Controller) processWrite(chunk []byte) {
	var err error
	if ws, ok := c.sink.(WriteSink); ok {
		err = ws.Write(c.ctx, chunk, c)
	}

	if err == nil {
		c.stream.finishInflightWrite()
		if c.stream.State() == Errored {
			return
		}

		c.stream.mu.Lock()
		if c.queue.len() > 0 {
			c.queue.dequeue()
		}
		if c.stream.state == Writable && c.stream.closeRequest == nil && c.stream.inflightCloseRequest == nil {
			c.recomputeBackpressureLocked()
		}
		c.stream.mu.Unlock()

		c.tryAdvance()
		return
	}

	wasErrored := c.stream.State() == Errored
	c.stream.finishInflightWriteWithError(err)
	if !wasErrored {
		c.stream.mu.Lock()
		c.queue.clear()
		c.stream.mu.Unlock()
	}
}

// processClose dispatches the close sentinel to the sink and folds
// its settlement back into the Stream.
func (c *Controller) processClose() {
	var err error
	if cs, ok := c.sink.(CloseSink); ok {
		err = cs.Close(c.ctx, c)
	}

	if err == nil {
		c.stream.finishInflightClose()
	} else {
		c.stream.finishInflightCloseWithError(err)
	}
}

// abort clears the queue and forwards to the sink's optional Abort.
func (c *Controller) abort(ctx context.Context, reason error) error {
	c.stream.mu.Lock()
	c.queue.clear()
	c.stream.mu.Unlock()

	if as, ok := c.sink.(AbortSink); ok {
		return as.Abort(ctx, reason)
	}
	return nil
}

// Error is the controller-facing error entry point given to the sink
// (spec.md §6): permitted only while the stream is still writable.
func (c *Controller) Error(e error) {
	c.errorIfNeeded(e)
}

func (c *Controller) errorIfNeeded(e error) {
	c.stream.mu.Lock()
	c.stream.errorStreamLocked(e)
	c.stream.mu.Unlock()
}

// DesiredSize returns hwm - totalSize, the controller-facing view used
// by sinks to decide how eagerly to drain (spec.md §4.2 getDesiredSize).
func (c *Controller) DesiredSize() float64 {
	c.stream.mu.Lock()
	defer c.stream.mu.Unlock()
	return c.hwm - c.queue.totalSize()
}

// recomputeBackpressureLocked must be called with stream.mu held.
func (c *Controller) recomputeBackpressureLocked() {
	bp := c.hwm-c.queue.totalSize() <= 0
	c.stream.updateBackpressureLocked(bp)
}
