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

// Command wscat pipes stdin into a Stream over a TCP connection, one
// chunk per Read, respecting the stream's backpressure before reading
// the next chunk.
package main

import (
	"context"
	"io"
	"log"
	"net"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/sagernet/wstream"
	"github.com/sagernet/wstream/sinks"
)

// VERSION is injected by buildflags.
var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	app := cli.NewApp()
	app.Name = "wscat"
	app.Usage = "pipe stdin into a writable stream over TCP"
	app.Version = VERSION
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "addr",
			Value: "127.0.0.1:4000",
			Usage: "remote address to dial",
		},
		cli.Float64Flag{
			Name:  "hwm",
			Value: 65536,
			Usage: "queuing strategy high water mark, in bytes",
		},
		cli.IntFlag{
			Name:  "chunk",
			Value: 4096,
			Usage: "stdin read buffer size, in bytes",
		},
		cli.BoolFlag{
			Name:  "compress",
			Usage: "flate-compress the stream instead of framing it",
		},
		cli.StringFlag{
			Name:  "c",
			Value: "",
			Usage: "config from json file, which will override the flags above",
		},
	}
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		color.Red("%+v", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	config := Config{
		Addr:     c.String("addr"),
		HWM:      c.Float64("hwm"),
		Chunk:    c.Int("chunk"),
		Compress: c.Bool("compress"),
	}
	if path := c.String("c"); path != "" {
		if err := parseJSONConfig(&config, path); err != nil {
			return errors.Wrap(err, "parseJSONConfig")
		}
	}

	conn, err := (&net.Dialer{}).DialContext(context.Background(), "tcp", config.Addr)
	if err != nil {
		return errors.Wrap(err, "dial")
	}
	defer conn.Close()
	log.Println("connected to", config.Addr)

	var sink wstream.Sink
	if config.Compress {
		sink = sinks.NewCompressSink(conn, nil)
		log.Println("compression: enabled")
	} else {
		sink = sinks.NewFramedWriterSink(conn)
		log.Println("framing: length-prefixed")
	}

	log.Println("high water mark:", config.HWM)
	byteLength := func(chunk []byte) (float64, error) { return float64(len(chunk)), nil }
	stream, err := wstream.NewStream(context.Background(), sink, wstream.Strategy{HighWaterMark: config.HWM, Size: byteLength})
	if err != nil {
		return errors.Wrap(err, "wstream.NewStream")
	}

	writer, err := stream.GetWriter()
	if err != nil {
		return errors.Wrap(err, "GetWriter")
	}

	if err := pipeStdin(writer, config.Chunk); err != nil {
		return err
	}

	settle, err := writer.Close()
	if err != nil {
		return errors.Wrap(err, "Close")
	}
	return settle.Wait(context.Background())
}

// pipeStdin reads chunkSize-sized buffers from stdin and writes each
// one to w, waiting on w.Ready() before the next read so a slow sink
// applies real backpressure to the reader instead of buffering stdin
// unbounded in memory. Writes already dispatched to the sink are
// allowed to settle in the background; Ready rejecting surfaces any
// error one of them hit.
func pipeStdin(w *wstream.Writer, chunkSize int) error {
	buf := make([]byte, chunkSize)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])

			if _, writeErr := w.Write(chunk); writeErr != nil {
				return errors.Wrap(writeErr, "Write")
			}
			if waitErr := w.Ready().Wait(context.Background()); waitErr != nil {
				return errors.Wrap(waitErr, "Ready")
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read stdin")
		}
	}
}
