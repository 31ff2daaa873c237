package proto

import (
	"bytes"
	"errors"
	"iter"
)

// DefaultMaxLineLength is the IRC line limit, terminator included.
const DefaultMaxLineLength = 512

// ErrLineTooLong is reported when a peer sends more than the allowed number of
// bytes without a line terminator.
var ErrLineTooLong = errors.New("line exceeds maximum length")

var crlf = []byte("\r\n")

// RawLine is one protocol message as received from the wire, without its CRLF.
type RawLine []byte

// Framer reassembles an arbitrarily chunked byte stream into RawLines.
// A Framer belongs to a single connection and is not safe for concurrent use.
type Framer struct {
	buf      []byte
	max      int
	overflow bool
}

// NewFramer returns a framer that refuses to buffer more than max bytes
// without seeing a terminator. max <= 0 selects DefaultMaxLineLength.
func NewFramer(max int) *Framer {
	if max <= 0 {
		max = DefaultMaxLineLength
	}
	return &Framer{
		buf: make([]byte, 0, max),
		max: max,
	}
}

// Feed appends chunk to the receive buffer and returns the complete lines it
// now holds. Lines are removed from the buffer as they are yielded; anything
// after the last terminator stays buffered for the next call.
//
// Once every complete line has been yielded, a remainder longer than the
// configured maximum yields (nil, ErrLineTooLong). From then on the framer is
// spent and every Feed yields only that error.
func (f *Framer) Feed(chunk []byte) iter.Seq2[RawLine, error] {
	if !f.overflow {
		f.buf = append(f.buf, chunk...)
	}

	return func(yield func(RawLine, error) bool) {
		if f.overflow {
			yield(nil, ErrLineTooLong)
			return
		}

		for {
			i := bytes.Index(f.buf, crlf)
			if i < 0 {
				break
			}

			line := make(RawLine, i)
			copy(line, f.buf[:i])
			f.consume(i + len(crlf))

			if !yield(line, nil) {
				return
			}
		}

		// a final '\r' may be the first half of a terminator
		pending := len(f.buf)
		if pending > 0 && f.buf[pending-1] == '\r' {
			pending--
		}
		if pending > f.max {
			f.overflow = true
			f.buf = f.buf[:0]
			yield(nil, ErrLineTooLong)
		}
	}
}

// consume drops the first n bytes of the buffer, keeping its backing array.
func (f *Framer) consume(n int) {
	rest := copy(f.buf, f.buf[n:])
	f.buf = f.buf[:rest]
}

// Buffered returns the number of bytes waiting for a terminator.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Reset discards any buffered data.
func (f *Framer) Reset() {
	f.buf = nil
	f.overflow = false
}
