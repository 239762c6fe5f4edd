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

package wstream

import "errors"

// Contract errors: brand/lock/state violations that never originate from
// the sink or strategy.
var (
	ErrLocked           = errors.New("wstream: stream already locked")
	ErrReleased         = errors.New("wstream: writer lock has been released")
	ErrClosed           = errors.New("wstream: stream is closed")
	ErrCloseRequested   = errors.New("wstream: close already requested")
	ErrReservedSinkType = errors.New("wstream: sink declares a reserved type")
	ErrInvalidHWM       = errors.New("wstream: high water mark must be a non-negative finite number")
	ErrInvalidSize      = errors.New("wstream: chunk size must not be NaN or negative")
	ErrAbortPending     = errors.New("wstream: an abort request is already pending")
)

// ErrAborted is the error stored when a stream is aborted with a nil
// reason and no other error already claimed storedError. An abort with
// a non-nil reason stores that reason itself, and rejects the writer's
// ready signal with it, instead of ErrAborted.
var ErrAborted = errors.New("wstream: stream aborted")

// ErrAbortAfterClose is stored when an abort races a close that goes on
// to complete successfully: the stream still ends up errored, but for a
// distinct reason than a plain abort.
var ErrAbortAfterClose = errors.New("wstream: abort requested but close completed successfully")
