// MIT License
//
// Copyright (c) 2016-2017 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package wstream implements the core state machine of a writable
// byte/chunk stream: a single-writer-locked producer handle, a queue
// sized by a configurable strategy, backpressure derived from a high
// water mark, and at-most-one in-flight operation against an opaque
// Sink. It does not implement any concrete sink, transport, or
// companion readable/pipe machinery; see package sinks for reference
// sinks.
package wstream

import "context"

// Sink is the external collaborator a Stream drains chunks into: a
// file, socket, compressor, or any other consumer. A sink implements
// whichever of StartSink, WriteSink, CloseSink, AbortSink it needs;
// all four are optional, and a sink satisfying none of them is a valid
// (if useless) discard sink.
type Sink interface{}

// StartSink is called once, during stream construction. Until it
// returns, no writes or closes are dispatched to the sink.
type StartSink interface {
	Start(ctx context.Context, c *Controller) error
}

// WriteSink is called at most once at a time, with chunks in
// submission order. Its return drives queue advancement.
type WriteSink interface {
	Write(ctx context.Context, chunk []byte, c *Controller) error
}

// CloseSink is called at most once, after the last queued chunk has
// been written.
type CloseSink interface {
	Close(ctx context.Context, c *Controller) error
}

// AbortSink is called at most once, when the stream is aborted.
type AbortSink interface {
	Abort(ctx context.Context, reason error) error
}

// TypedSink lets a sink brand itself with a type name. This mirrors
// the standardized streams contract's reserved `type` field on sink
// objects (set aside for a future byte/BYOB sink mode): a sink that
// implements TypedSink and returns a non-empty string is rejected at
// construction with ErrReservedSinkType.
type TypedSink interface {
	Type() string
}

// Strategy is the queuing strategy contract: HighWaterMark must be a
// non-negative finite number, and Size, if non-nil, maps a chunk to a
// non-negative size (+Inf is accepted and forces backpressure while the
// chunk is queued; NaN or negative sizes error the stream). A nil Size
// gives every chunk size 1 (count-based backpressure).
type Strategy struct {
	HighWaterMark float64
	Size          func(chunk []byte) (float64, error)
}

// State is the Stream's canonical lifecycle state.
type State int32

const (
	Writable State = iota
	Closed
	Errored
)

func (s State) String() string {
	switch s {
	case Writable:
		return "writable"
	case Closed:
		return "closed"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}
