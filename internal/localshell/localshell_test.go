package localshell

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/ankouros/rshell/internal/terminal"
	"github.com/stretchr/testify/require"
)

func TestTakeSplitsOversizedChunks(t *testing.T) {
	c := &ProcessChannel{
		out:  make(chan []byte, 1),
		done: make(chan struct{}),
	}
	c.out <- []byte("12345")

	b, err := c.Receive(2, time.Second)
	require.NoError(t, err)
	require.Equal(t, "12", string(b))

	b, err = c.Receive(1024, time.Second)
	require.NoError(t, err)
	require.Equal(t, "345", string(b))

	_, err = c.Receive(1024, 5*time.Millisecond)
	require.ErrorIs(t, err, terminal.ErrTimedOut)
}

func TestProcessChannelRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a pty")
	}

	ch, err := Start(context.Background(), []string{"/bin/cat"}, 80, 24)
	require.NoError(t, err)
	defer ch.Close()

	require.NoError(t, ch.Send([]byte("hello\n")))

	var got []byte
	require.Eventually(t, func() bool {
		b, rerr := ch.Receive(1024, 50*time.Millisecond)
		if rerr != nil {
			return false
		}
		got = append(got, b...)
		return bytes.Contains(got, []byte("hello"))
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSessionOverProcessChannel(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns a pty")
	}

	ch, err := Start(context.Background(), []string{"/bin/cat"}, 80, 24)
	require.NoError(t, err)
	defer ch.Close()

	in := bytes.NewReader([]byte("echo hi\r\x1d"))
	sess := terminal.NewSession(ch, in, io.Discard,
		terminal.WithReceiveTimeout(20*time.Millisecond))

	commands, err := sess.Run()
	require.NoError(t, err)
	require.Equal(t, []string{"echo hi"}, commands)
}
