package localshell

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/ankouros/rshell/internal/terminal"
	"github.com/creack/pty"
)

// ProcessChannel runs a local shell process under a pty and exposes it as a
// terminal.Channel. It is a stand-in for an SSH shell: same session loop,
// same audit log, no network. Useful for trying the client against the
// local machine and for exercising the session layer end to end.
type ProcessChannel struct {
	cmd *exec.Cmd
	pty *os.File

	out      chan []byte
	done     chan struct{}
	leftover []byte

	once sync.Once
}

var _ terminal.Channel = (*ProcessChannel)(nil)

// Start launches argv[0] with the remaining args under a pty sized to
// cols x rows. An empty argv falls back to $SHELL, then /bin/sh.
func Start(ctx context.Context, argv []string, cols, rows int) (*ProcessChannel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(argv) == 0 {
		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}
		argv = []string{shell}
	}

	cmd := exec.Command(argv[0], argv[1:]...) //nolint:gosec // operator-chosen shell
	cmd.Env = os.Environ()

	f, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}

	c := &ProcessChannel{
		cmd:  cmd,
		pty:  f,
		out:  make(chan []byte, 128),
		done: make(chan struct{}),
	}

	_ = c.Resize(cols, rows)

	go c.pump(f)
	go func() {
		_ = cmd.Wait()
		_ = c.Close()
	}()

	return c, nil
}

func (c *ProcessChannel) pump(r io.Reader) {
	defer close(c.out)

	buf := make([]byte, 8192)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			b := make([]byte, n)
			copy(b, buf[:n])
			select {
			case c.out <- b:
			case <-c.done:
				return
			}
		}
		if err != nil {
			// Reading a pty after the child exits fails with EIO;
			// either way the stream is over.
			return
		}
	}
}

func (c *ProcessChannel) Send(p []byte) error {
	if c.pty == nil {
		return errors.New("process not running")
	}
	_, err := c.pty.Write(p)
	return err
}

func (c *ProcessChannel) Receive(max int, timeout time.Duration) ([]byte, error) {
	if len(c.leftover) > 0 {
		return c.take(c.leftover, max), nil
	}

	select {
	case b, ok := <-c.out:
		if !ok {
			return nil, io.EOF
		}
		return c.take(b, max), nil
	case <-time.After(timeout):
		return nil, terminal.ErrTimedOut
	}
}

func (c *ProcessChannel) take(b []byte, max int) []byte {
	if max > 0 && len(b) > max {
		c.leftover = b[max:]
		return b[:max]
	}
	c.leftover = nil
	return b
}

func (c *ProcessChannel) Resize(cols, rows int) error {
	if c.pty == nil || cols <= 0 || rows <= 0 {
		return nil
	}
	return pty.Setsize(c.pty, &pty.Winsize{
		Cols: uint16(cols),
		Rows: uint16(rows),
	})
}

func (c *ProcessChannel) Close() error {
	c.once.Do(func() {
		close(c.done)

		if c.pty != nil {
			_ = c.pty.Close()
		}
		if c.cmd != nil && c.cmd.Process != nil {
			_ = c.cmd.Process.Kill()
			_, _ = c.cmd.Process.Wait()
		}
	})
	return nil
}
