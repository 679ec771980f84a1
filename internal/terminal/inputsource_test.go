package terminal

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInputSourceReadLineTrimsCR(t *testing.T) {
	src := NewInputSource(bytes.NewReader([]byte("status\r\nexit\n")))

	line, err := src.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "status", line)

	line, err = src.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "exit", line)

	_, err = src.ReadLine()
	require.ErrorIs(t, err, io.EOF)
}

func TestInputSourceReadLineReturnsFinalPartialLine(t *testing.T) {
	src := NewInputSource(bytes.NewReader([]byte("exit")))

	line, err := src.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "exit", line)

	_, err = src.ReadLine()
	require.ErrorIs(t, err, io.EOF)
}

func TestInputSourceSurfacesReadError(t *testing.T) {
	boom := errors.New("tty gone")
	src := NewInputSource(errReader{err: boom})

	_, err := src.ReadLine()
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, src.Err(), boom)
}

// A line prompt and an interactive session taking turns on one stream must
// not lose the first byte typed after the session ends.
func TestSessionHandsInputBackAtBoundary(t *testing.T) {
	pr, pw := io.Pipe()
	src := NewInputSource(pr)
	ch := newFakeChannel()

	sess := NewSession(ch, nil, io.Discard,
		WithInputSource(src), WithReceiveTimeout(5*time.Millisecond))

	resc := make(chan []string, 1)
	errc := make(chan error, 1)
	go func() {
		commands, err := sess.Run()
		resc <- commands
		errc <- err
	}()

	_, werr := pw.Write([]byte("ls\r\x1d"))
	require.NoError(t, werr)
	require.NoError(t, <-errc)
	require.Equal(t, []string{"ls"}, <-resc)
	require.Equal(t, "ls\r", ch.Sent())

	// The next line belongs to the prompt, first character included.
	go pw.Write([]byte("status\n"))
	line, err := src.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "status", line)
}
