package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Defaults match the interactive clients this session layer grew out of:
// Ctrl+] ends the session, remote output is read in 1 KiB chunks with a
// one-second bounded wait.
const (
	DefaultSentinel       = 0x1d
	DefaultChunkSize      = 1024
	DefaultReceiveTimeout = time.Second
)

// LocalInputError reports a failure reading the local keyboard stream.
type LocalInputError struct{ Err error }

func (e LocalInputError) Error() string { return "local input: " + e.Err.Error() }
func (e LocalInputError) Unwrap() error { return e.Err }

// ChannelWriteError reports a failure forwarding a keystroke to the remote.
type ChannelWriteError struct{ Err error }

func (e ChannelWriteError) Error() string { return "channel write: " + e.Err.Error() }
func (e ChannelWriteError) Unwrap() error { return e.Err }

// Session multiplexes one interactive run between a local keyboard/display
// pair and a remote shell Channel. Keystrokes are forwarded verbatim to the
// remote and simultaneously fed to a LineAssembler so the operator's
// commands can be audited afterwards; remote output is mirrored verbatim to
// the local display.
//
// A Session is single-use and owned by exactly one caller. It holds no
// process-wide state.
type Session struct {
	ch  Channel
	in  io.Reader
	src *InputSource
	out io.Writer

	asm *LineAssembler
	log zerolog.Logger

	sentinel    byte
	chunkSize   int
	recvTimeout time.Duration
}

type Option func(*Session)

// WithSentinel overrides the exit keystroke. The sentinel is intercepted:
// it never reaches the remote and never appears in the command log.
func WithSentinel(b byte) Option {
	return func(s *Session) { s.sentinel = b }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) { s.log = log }
}

func WithChunkSize(n int) Option {
	return func(s *Session) { s.chunkSize = n }
}

func WithReceiveTimeout(d time.Duration) Option {
	return func(s *Session) { s.recvTimeout = d }
}

// WithInputSource borrows keystrokes from a caller-owned InputSource
// instead of reading the in Reader directly. Callers that alternate between
// interactive sessions and a line-oriented prompt on the same stream must
// share one source, so a byte typed right after a session ends reaches the
// prompt instead of a reader the session left behind.
func WithInputSource(src *InputSource) Option {
	return func(s *Session) { s.src = src }
}

func NewSession(ch Channel, in io.Reader, out io.Writer, opts ...Option) *Session {
	s := &Session{
		ch:          ch,
		in:          in,
		out:         out,
		asm:         NewLineAssembler(),
		log:         zerolog.Nop(),
		sentinel:    DefaultSentinel,
		chunkSize:   DefaultChunkSize,
		recvTimeout: DefaultReceiveTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run drives the session until the operator types the sentinel, the remote
// closes the channel, or an I/O error surfaces. The assembler is flushed on
// every exit path, so a partially typed command is never lost; the returned
// log is ordered oldest first.
//
// Within one direction bytes are forwarded in the order received. When both
// sides are ready in the same cycle each is serviced before the next wait,
// so neither direction starves the other.
func (s *Session) Run() (commands []string, err error) {
	defer func() {
		s.asm.Flush()
		commands = s.asm.Commands()
	}()

	src := s.src
	if src == nil {
		src = NewInputSource(s.in)
	}
	keys := src.Bytes()

	chunks := make(chan []byte, 16)
	errc := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go s.pumpRemote(chunks, errc, done)

	for {
		select {
		case b, ok := <-keys:
			if !ok {
				if rerr := src.Err(); rerr != nil {
					err = LocalInputError{Err: rerr}
					return
				}
				// Local input ended; treat like a clean exit.
				s.log.Debug().Msg("local input closed")
				return
			}
			if b == s.sentinel {
				s.log.Debug().Msg("exit sentinel")
				return
			}
			if werr := s.ch.Send([]byte{b}); werr != nil {
				err = ChannelWriteError{Err: werr}
				return
			}
			s.asm.Feed(b)

		case chunk, ok := <-chunks:
			if !ok {
				s.log.Debug().Msg("remote end of stream")
				return
			}
			if _, werr := s.out.Write(chunk); werr != nil {
				err = fmt.Errorf("write local output: %w", werr)
				return
			}

		case err = <-errc:
			return
		}
	}
}

// Commands returns the log reconstructed so far. Run's return value is the
// complete log; this accessor exists for status display mid-session.
func (s *Session) Commands() []string {
	return s.asm.Commands()
}

func (s *Session) pumpRemote(chunks chan<- []byte, errc chan<- error, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}

		data, err := s.ch.Receive(s.chunkSize, s.recvTimeout)
		if errors.Is(err, ErrTimedOut) {
			continue
		}
		if errors.Is(err, io.EOF) {
			close(chunks)
			return
		}
		if err != nil {
			select {
			case errc <- fmt.Errorf("channel receive: %w", err):
			case <-done:
			}
			return
		}
		if len(data) == 0 {
			continue
		}
		select {
		case chunks <- data:
		case <-done:
			return
		}
	}
}

// RunInteractiveSession places the local terminal into raw mode, connects
// it to ch, and blocks until the session ends. The prior terminal mode is
// restored on every exit path before the command log is returned; a restore
// failure is joined onto the session's own error.
func RunInteractiveSession(ch Channel, opts ...Option) (commands []string, err error) {
	raw, err := EnterRawMode(int(os.Stdin.Fd()))
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := raw.Restore(); rerr != nil {
			err = errors.Join(err, fmt.Errorf("restore terminal: %w", rerr))
		}
	}()

	return NewSession(ch, os.Stdin, os.Stdout, opts...).Run()
}
