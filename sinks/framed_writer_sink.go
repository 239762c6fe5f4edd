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

package sinks

import (
	"context"
	"encoding/binary"
	"net"

	"github.com/pkg/errors"
	"github.com/sagernet/sing/common/bufio"

	"github.com/sagernet/wstream"
)

const headerSize = 4

// FramedWriterSink drains each chunk onto conn as a length-prefixed
// frame: a 4-byte little-endian length header followed by the chunk's
// bytes. When conn supports scatter-gather writes it writes the header
// and payload as a single vectorised call instead of copying them into
// one buffer first.
type FramedWriterSink struct {
	conn net.Conn

	vw     bufio.VectorisedWriter
	header []byte
	vec    [][]byte
}

// NewFramedWriterSink wraps conn. conn is closed when the sink's Close
// or Abort is invoked.
func NewFramedWriterSink(conn net.Conn) *FramedWriterSink {
	return &FramedWriterSink{conn: conn}
}

func (f *FramedWriterSink) Start(ctx context.Context, c *wstream.Controller) error {
	f.header = make([]byte, headerSize)
	if vw, ok := bufio.CreateVectorisedWriter(f.conn); ok {
		f.vw = vw
		f.vec = make([][]byte, 2)
	}
	return nil
}

func (f *FramedWriterSink) Write(ctx context.Context, chunk []byte, c *wstream.Controller) error {
	binary.LittleEndian.PutUint32(f.header, uint32(len(chunk)))

	if f.vw != nil {
		f.vec[0] = f.header
		f.vec[1] = chunk
		_, err := bufio.WriteVectorised(f.vw, f.vec)
		return errors.Wrap(err, "wstream/sinks: vectorised frame write")
	}

	buf := make([]byte, headerSize+len(chunk))
	copy(buf, f.header)
	copy(buf[headerSize:], chunk)
	_, err := f.conn.Write(buf)
	return errors.Wrap(err, "wstream/sinks: frame write")
}

func (f *FramedWriterSink) Close(ctx context.Context, c *wstream.Controller) error {
	return f.conn.Close()
}

func (f *FramedWriterSink) Abort(ctx context.Context, reason error) error {
	return f.conn.Close()
}
