package sinks

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sagernet/wstream"
)

func readFrame(t *testing.T, r io.Reader) []byte {
	t.Helper()
	header := make([]byte, headerSize)
	_, err := io.ReadFull(r, header)
	require.NoError(t, err)
	payload := make([]byte, binary.LittleEndian.Uint32(header))
	_, err = io.ReadFull(r, payload)
	require.NoError(t, err)
	return payload
}

func TestFramedWriterSinkRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	sink := NewFramedWriterSink(client)
	s, err := wstream.NewStream(context.Background(), sink, wstream.Strategy{HighWaterMark: 4})
	require.NoError(t, err)

	w, err := s.GetWriter()
	require.NoError(t, err)

	readErrCh := make(chan error, 1)
	var frames [][]byte
	go func() {
		defer func() { readErrCh <- nil }()
		for i := 0; i < 2; i++ {
			frames = append(frames, readFrame(t, server))
		}
	}()

	settle1, err := w.Write([]byte("frame one"))
	require.NoError(t, err)
	settle2, err := w.Write([]byte("frame two"))
	require.NoError(t, err)

	require.NoError(t, settle1.Wait(context.Background()))
	require.NoError(t, settle2.Wait(context.Background()))
	<-readErrCh

	require.Equal(t, [][]byte{[]byte("frame one"), []byte("frame two")}, frames)
}
