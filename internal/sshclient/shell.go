package sshclient

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ankouros/rshell/internal/terminal"
	"golang.org/x/crypto/ssh"
)

// ShellChannel is an interactive remote shell on an established SSH client,
// exposed as a terminal.Channel. Output from the remote pty is pumped into
// an internal queue; Receive drains it with a bounded wait.
//
// A ShellChannel has exactly one consumer: the terminal session loop.
type ShellChannel struct {
	sess  *ssh.Session
	stdin io.WriteCloser

	out      chan []byte
	done     chan struct{}
	leftover []byte

	once sync.Once
}

var _ terminal.Channel = (*ShellChannel)(nil)

// OpenShell requests a pty on a new session of client and starts the remote
// shell. The client itself stays open after the channel is closed; the
// caller owns it.
func OpenShell(client *ssh.Client, cols, rows int) (*ShellChannel, error) {
	sess, err := client.NewSession()
	if err != nil {
		return nil, err
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}

	if err := sess.RequestPty("xterm-256color", rows, cols, modes); err != nil {
		_ = sess.Close()
		return nil, err
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		_ = sess.Close()
		return nil, err
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		_ = sess.Close()
		return nil, err
	}
	stderr, err := sess.StderrPipe()
	if err != nil {
		_ = sess.Close()
		return nil, err
	}

	if err := sess.Shell(); err != nil {
		_ = sess.Close()
		return nil, err
	}

	c := &ShellChannel{
		sess:  sess,
		stdin: stdin,
		out:   make(chan []byte, 128),
		done:  make(chan struct{}),
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.pump(stdout)
	}()
	go func() {
		defer wg.Done()
		c.pump(stderr)
	}()

	// End of stream once both remote pipes are done (EOF / disconnect).
	go func() {
		wg.Wait()
		close(c.out)
	}()

	return c, nil
}

func (c *ShellChannel) pump(r io.Reader) {
	buf := make([]byte, 8192)
	for {
		select {
		case <-c.done:
			return
		default:
		}

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
			return
		}
	}
}

func (c *ShellChannel) Send(p []byte) error {
	_, err := c.stdin.Write(p)
	return err
}

// Receive returns up to max queued bytes, terminal.ErrTimedOut when the
// remote produced nothing within timeout, or io.EOF once both remote pipes
// have closed and the queue is drained.
func (c *ShellChannel) Receive(max int, timeout time.Duration) ([]byte, error) {
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

func (c *ShellChannel) take(b []byte, max int) []byte {
	if max > 0 && len(b) > max {
		c.leftover = b[max:]
		return b[:max]
	}
	c.leftover = nil
	return b
}

// Resize propagates a local terminal size change to the remote pty.
func (c *ShellChannel) Resize(cols, rows int) error {
	if c.sess == nil {
		return nil
	}
	return c.sess.WindowChange(rows, cols)
}

func (c *ShellChannel) Close() error {
	c.once.Do(func() {
		close(c.done)
	})
	if c.sess != nil {
		return c.sess.Close()
	}
	return nil
}

// RunCommand executes one command on its own session and returns trimmed
// stdout. Used by the health monitor for metric probes.
func RunCommand(client *ssh.Client, command string) (string, error) {
	sess, err := client.NewSession()
	if err != nil {
		return "", err
	}
	defer sess.Close()

	out, err := sess.Output(command)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
