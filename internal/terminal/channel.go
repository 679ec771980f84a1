package terminal

import (
	"errors"
	"time"
)

// ErrTimedOut reports that a bounded Receive produced no data within its
// timeout. It is not a failure; the session loop treats it as a spurious
// wakeup and keeps running.
var ErrTimedOut = errors.New("receive timed out")

// Channel is a bidirectional byte stream carrying a remote shell.
// Implementations include SSH-backed shell sessions and local PTY process
// sessions. The channel arrives already connected and authenticated; the
// session layer never dials.
//
// Receive returns up to max bytes, ErrTimedOut when nothing arrived within
// the timeout, or io.EOF once the remote side closed the stream. io.EOF is
// a clean termination, whatever the remote's reason for closing.
type Channel interface {
	Send(p []byte) error
	Receive(max int, timeout time.Duration) ([]byte, error)
	Close() error
}
