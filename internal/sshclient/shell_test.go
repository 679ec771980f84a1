package sshclient

import (
	"io"
	"testing"
	"time"

	"github.com/ankouros/rshell/internal/terminal"
	"github.com/stretchr/testify/require"
)

func newQueuedChannel(chunks ...[]byte) *ShellChannel {
	c := &ShellChannel{
		out:  make(chan []byte, len(chunks)),
		done: make(chan struct{}),
	}
	for _, b := range chunks {
		c.out <- b
	}
	return c
}

func TestReceiveSplitsOversizedChunks(t *testing.T) {
	c := newQueuedChannel([]byte("abcdefgh"))

	b, err := c.Receive(3, time.Second)
	require.NoError(t, err)
	require.Equal(t, "abc", string(b))

	// Leftover is served before the queue.
	b, err = c.Receive(3, time.Second)
	require.NoError(t, err)
	require.Equal(t, "def", string(b))

	b, err = c.Receive(3, time.Second)
	require.NoError(t, err)
	require.Equal(t, "gh", string(b))
}

func TestReceiveTimesOutWhenQueueEmpty(t *testing.T) {
	c := newQueuedChannel()

	_, err := c.Receive(1024, 5*time.Millisecond)
	require.ErrorIs(t, err, terminal.ErrTimedOut)
}

func TestReceiveReportsEndOfStream(t *testing.T) {
	c := newQueuedChannel([]byte("bye"))
	close(c.out)

	b, err := c.Receive(1024, time.Second)
	require.NoError(t, err)
	require.Equal(t, "bye", string(b))

	_, err = c.Receive(1024, time.Second)
	require.ErrorIs(t, err, io.EOF)
}
