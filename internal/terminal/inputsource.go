package terminal

import (
	"errors"
	"io"
	"strings"
	"sync"
)

// InputSource owns all reads from one local input stream. A single pump
// goroutine reads bytes for the source's whole lifetime; interactive
// sessions borrow the byte stream while they run, and line-oriented prompts
// read whole lines from the same stream between sessions. Because there is
// only ever one reader of the underlying stream, nothing typed at a session
// boundary is lost in the handoff.
type InputSource struct {
	bytes chan byte

	mu  sync.Mutex
	err error
}

func NewInputSource(r io.Reader) *InputSource {
	s := &InputSource{bytes: make(chan byte, 64)}
	go s.pump(r)
	return s
}

func (s *InputSource) pump(r io.Reader) {
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			s.bytes <- buf[0]
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
			}
			close(s.bytes)
			return
		}
	}
}

// Bytes is the raw keystroke stream. Closed once the underlying stream
// ends; Err reports why.
func (s *InputSource) Bytes() <-chan byte { return s.bytes }

// Err returns the read error that ended the stream, or nil for a plain
// end of input.
func (s *InputSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// ReadLine reads one newline-terminated line, trimming a trailing CR.
// Used by the command prompts between interactive sessions. Returns io.EOF
// once the stream is exhausted.
func (s *InputSource) ReadLine() (string, error) {
	var line []byte
	for {
		b, ok := <-s.bytes
		if !ok {
			if err := s.Err(); err != nil {
				return "", err
			}
			if len(line) > 0 {
				return trimLine(line), nil
			}
			return "", io.EOF
		}
		if b == '\n' {
			return trimLine(line), nil
		}
		line = append(line, b)
	}
}

func trimLine(b []byte) string {
	return strings.TrimRight(string(b), "\r")
}
