package terminal

import (
	"strings"
	"unicode/utf8"
)

const (
	charCR        = 0x0d
	charBackspace = 0x08
	charDelete    = 0x7f
)

// LineAssembler reconstructs logical command lines from a raw keystroke
// stream. It is the audit side of an interactive session: every byte the
// operator types is fed in, and completed commands come out, independent of
// whatever the remote shell echoes back.
//
// The reconstruction is a deliberate best-effort approximation of operator
// intent. It handles carriage-return commits and backspace editing; it does
// not attempt to track remote-side line editing it cannot observe (history
// substitution, cursor movement).
type LineAssembler struct {
	buf      []byte
	commands []string
}

func NewLineAssembler() *LineAssembler {
	return &LineAssembler{}
}

// Feed consumes one raw keystroke byte.
func (a *LineAssembler) Feed(b byte) {
	switch {
	case b == charCR:
		a.commit()

	case b == charBackspace || b == charDelete:
		// Drop the last rune, not the last byte, so multibyte input
		// erases cleanly. Backspace on an empty buffer is a no-op.
		if len(a.buf) > 0 {
			_, size := utf8.DecodeLastRune(a.buf)
			a.buf = a.buf[:len(a.buf)-size]
		}

	case b >= 0x20:
		// Printable ASCII and UTF-8 lead/continuation bytes.
		a.buf = append(a.buf, b)

	default:
		// Remaining control bytes (ESC sequences, ^C, the exit
		// sentinel) carry no command text.
	}
}

// FeedBytes consumes a run of keystrokes in order.
func (a *LineAssembler) FeedBytes(p []byte) {
	for _, b := range p {
		a.Feed(b)
	}
}

// Flush commits any partially typed command. Called when a session ends
// without a final carriage return so the in-progress line is not lost.
func (a *LineAssembler) Flush() {
	a.commit()
}

// Commands returns the reconstructed command log, oldest first.
func (a *LineAssembler) Commands() []string {
	if len(a.commands) == 0 {
		return nil
	}
	out := make([]string, len(a.commands))
	copy(out, a.commands)
	return out
}

// Pending returns the current in-progress buffer. Exposed for tests and
// status display; the buffer is still owned by the assembler.
func (a *LineAssembler) Pending() string {
	return string(a.buf)
}

func (a *LineAssembler) commit() {
	line := strings.TrimSpace(string(a.buf))
	if line != "" {
		a.commands = append(a.commands, line)
	}
	a.buf = a.buf[:0]
}
