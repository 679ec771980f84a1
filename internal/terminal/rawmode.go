package terminal

import (
	"fmt"
	"sync"

	"golang.org/x/term"
)

// Swappable for tests so raw-mode accounting can be verified without a TTY.
var (
	makeRaw      = term.MakeRaw
	restoreState = term.Restore
	isTerminal   = term.IsTerminal
)

// RawMode holds exclusive raw-mode control of one local terminal device.
// The snapshot of the prior mode is captured once on enter and re-applied
// exactly once on Restore, whatever exit path the session takes. At most
// one RawMode may be outstanding per device.
type RawMode struct {
	fd    int
	state *term.State
	once  sync.Once
}

// EnterRawMode switches the terminal on fd to raw mode: no line buffering,
// no local echo, no signal-generating control characters. On failure no
// mode change has taken place and there is nothing to restore.
func EnterRawMode(fd int) (*RawMode, error) {
	if !isTerminal(fd) {
		return nil, fmt.Errorf("fd %d is not a terminal", fd)
	}
	state, err := makeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("enter raw mode: %w", err)
	}
	return &RawMode{fd: fd, state: state}, nil
}

// Restore re-applies the captured terminal attributes. Safe to call more
// than once; only the first call touches the device.
func (r *RawMode) Restore() error {
	var err error
	r.once.Do(func() {
		err = restoreState(r.fd, r.state)
	})
	return err
}
