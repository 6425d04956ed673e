// Package sse implements the client side of the line-framed event-stream
// protocol spoken by the agent service: UTF-8 text lines separated by '\n',
// payload lines carrying the "data: " prefix, and the reserved "[DONE]"
// payload marking normal end of stream.
//
// This package intentionally does NOT provide SSE writer or server
// capabilities, and is not generic over other event-stream framings.
package sse

// Wire framing constants. These must match the service byte-for-byte.
const (
	// DataPrefix marks a payload-bearing line: the six characters
	// 'd','a','t','a',':',' '.
	DataPrefix = "data: "

	// DoneSentinel is the reserved payload signalling normal stream
	// termination. It is never delivered to consumers as a regular event.
	DoneSentinel = "[DONE]"

	// DefaultBufferKiB is the framing-buffer sizing hint applied when the
	// caller provides none.
	DefaultBufferKiB = 64
)

// Event is a single opaque payload extracted from one "data: " frame.
// It has no identity beyond its position in the stream and is immutable
// once produced.
type Event struct {
	// Data is the payload text following the "data: " prefix.
	Data string
}
