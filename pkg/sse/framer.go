package sse

import "bytes"

// Framer turns an arbitrary sequence of byte chunks into complete
// newline-delimited lines. It owns its buffer exclusively: every complete
// line is removed the moment it is recognized, so at most one partial
// (unterminated) line is ever retained between feeds.
//
// Framer is pure buffering — it performs no I/O and applies no policy.
// Empty lines are emitted faithfully; skipping them is the caller's concern.
// No maximum buffer size is enforced here; backpressure belongs to the
// owning session.
type Framer struct {
	buf []byte
}

// NewFramer returns a Framer whose initial buffer capacity is sized from the
// advisory hint in KiB (the client.sse_buffer_kib setting). The hint affects
// allocation only; the buffer still grows as needed.
func NewFramer(bufferKiB int) *Framer {
	if bufferKiB <= 0 {
		bufferKiB = DefaultBufferKiB
	}
	return &Framer{buf: make([]byte, 0, bufferKiB*1024)}
}

// Feed appends chunk to the internal buffer and returns every complete line
// discovered in this call, in order, delimiters excluded. A delimiter split
// across two feeds is handled correctly because undelivered bytes remain
// buffered between calls.
func (f *Framer) Feed(chunk []byte) []string {
	f.buf = append(f.buf, chunk...)

	var lines []string
	start := 0
	for {
		i := bytes.IndexByte(f.buf[start:], '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(f.buf[start:start+i]))
		start += i + 1
	}

	// Shrink by removing the fully consumed prefix, keeping only the
	// trailing partial line.
	if start > 0 {
		n := copy(f.buf, f.buf[start:])
		f.buf = f.buf[:n]
	}

	return lines
}

// Pending returns the number of buffered bytes not yet framed into a line.
func (f *Framer) Pending() int {
	return len(f.buf)
}
