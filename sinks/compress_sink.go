// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
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

package sinks

import (
	"context"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/pkg/errors"

	"github.com/sagernet/wstream"
)

// CompressSink wraps an io.WriteCloser with a flate compressor: each
// chunk is written and flushed individually, so the sink never holds
// a chunk back waiting for a bigger batch, and closes the compressor
// (writing flate's final block) before closing the underlying writer.
type CompressSink struct {
	dst   io.WriteCloser
	level int
	w     *flate.Writer
}

// NewCompressSink wraps dst. level is a flate.* compression level
// constant, or nil for flate.DefaultCompression; pass a pointer to
// flate.NoCompression explicitly to disable compression rather than
// omitting level, since NoCompression is itself 0.
func NewCompressSink(dst io.WriteCloser, level *int) *CompressSink {
	lvl := flate.DefaultCompression
	if level != nil {
		lvl = *level
	}
	return &CompressSink{dst: dst, level: lvl}
}

func (c *CompressSink) Start(ctx context.Context, ctrl *wstream.Controller) error {
	w, err := flate.NewWriter(c.dst, c.level)
	if err != nil {
		return errors.Wrap(err, "wstream/sinks: flate writer")
	}
	c.w = w
	return nil
}

func (c *CompressSink) Write(ctx context.Context, chunk []byte, ctrl *wstream.Controller) error {
	if _, err := c.w.Write(chunk); err != nil {
		return errors.Wrap(err, "wstream/sinks: compressed write")
	}
	return errors.Wrap(c.w.Flush(), "wstream/sinks: compressed flush")
}

func (c *CompressSink) Close(ctx context.Context, ctrl *wstream.Controller) error {
	if err := c.w.Close(); err != nil {
		return errors.Wrap(err, "wstream/sinks: flate close")
	}
	return c.dst.Close()
}

func (c *CompressSink) Abort(ctx context.Context, reason error) error {
	return c.dst.Close()
}
