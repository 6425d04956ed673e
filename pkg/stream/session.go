// Package stream implements the streaming half of the agent-service client:
// one Session per streaming HTTP exchange, line framing via pkg/sse,
// in-order event delivery, terminal-sentinel detection, and prompt
// cancellation that composes with pkg/cancel tokens.
//
// Data flows one direction: network bytes → Framer → Session → consumer
// callbacks. Cancellation flows the other way: Stop (or a linked cancel
// token) aborts the underlying transport synchronously.
package stream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/papercomputeco/reel/pkg/logger"
	"github.com/papercomputeco/reel/pkg/sse"
)

// State of a Session. Terminal states (Completed, Cancelled, Failed) are
// absorbing; there are no transitions out of them.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Handler holds the consumer callbacks for one session. Set the slots before
// Start; they are never re-read after construction.
//
// OnEvent fires once per frame, in frame order, never batched or reordered.
// Exactly one of OnDone/OnError fires for a session that terminates on its
// own; neither fires for a session stopped via Stop. A Stop racing inbound
// data may let a small number of already-framed events through, but the
// at-most-one-terminal-callback guarantee always holds.
type Handler struct {
	OnEvent func(sse.Event)
	OnDone  func()
	OnError func(*Error)
}

// Config configures a Session. Zero values get defaults.
type Config struct {
	// Client is the HTTP client for the exchange. Defaults to a client with
	// no overall timeout: streams are long-lived, and cancellation is the
	// caller's timeout mechanism.
	Client *http.Client

	// BufferKiB is the advisory framing-buffer sizing hint, normally the
	// client.sse_buffer_kib setting. Zero means sse.DefaultBufferKiB.
	BufferKiB int

	// Logger defaults to a no-op logger when nil.
	Logger *slog.Logger
}

// Session owns one streaming HTTP exchange. Construct with New, call Start
// exactly once, and Stop to abort. The session serializes its own state
// transitions, so Stop may be called from any goroutine at any time.
type Session struct {
	handler Handler
	client  *http.Client
	logger  *slog.Logger
	bufKiB  int

	mu     sync.Mutex
	state  State
	framer *sse.Framer
	abort  context.CancelFunc // aborts the live transport handle
}

// New returns an idle session that will deliver through h.
func New(cfg Config, h Handler) *Session {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	kib := cfg.BufferKiB
	if kib <= 0 {
		kib = sse.DefaultBufferKiB
	}

	return &Session{
		handler: h,
		client:  client,
		logger:  log,
		bufKiB:  kib,
		state:   StateIdle,
		framer:  sse.NewFramer(kib),
	}
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start opens the streaming exchange: POST endpoint with body as the JSON
// entity. Caller headers are merged in without being overridden, with one
// exception: Content-Type is always set for the JSON body. Accept is
// defaulted to text/event-stream only when the caller supplied none.
//
// Start never blocks the caller; connection and delivery happen on the
// session's reader goroutine, and failures surface through the error
// callback. Start is valid only from Idle and fails fast with
// ErrAlreadyStarted otherwise.
func (s *Session) Start(endpoint string, body []byte, headers http.Header) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateConnecting
	ctx, abort := context.WithCancel(context.Background())
	s.abort = abort
	s.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		// Surfaced through the error callback like any other connect
		// failure so the caller has a single error path.
		s.fail(KindConnect, fmt.Errorf("creating request: %w", err))
		return nil
	}

	for k, vs := range headers {
		if http.CanonicalHeaderKey(k) == "Content-Type" {
			continue
		}
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/event-stream")
	}

	go s.run(req)

	return nil
}

// Stop aborts the session. Valid from any state and idempotent: stopping an
// Idle session parks it in Cancelled, stopping an already-terminated session
// is a no-op. Stop never invokes the done or error callback — cancellation
// is silent, since the caller already knows it asked to stop.
func (s *Session) Stop() {
	s.mu.Lock()
	switch s.state {
	case StateCompleted, StateCancelled, StateFailed:
		s.mu.Unlock()
		return
	}
	s.state = StateCancelled
	abort := s.abort
	s.mu.Unlock()

	// Transport abort is requested synchronously within Stop.
	if abort != nil {
		abort()
	}
	s.logger.Debug("stream stopped")
}

// run drives the exchange on the reader goroutine.
func (s *Session) run(req *http.Request) {
	resp, err := s.client.Do(req)
	if err != nil {
		s.fail(KindConnect, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.fail(KindConnect, fmt.Errorf("unexpected status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(b))))
		return
	}

	if !s.transition(StateConnecting, StateStreaming) {
		// Stopped while connecting.
		return
	}
	s.logger.Debug("stream connected", "url", req.URL.String())

	buf := make([]byte, s.bufKiB*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if !s.consume(buf[:n]) {
				return
			}
		}
		if err != nil {
			if err == io.EOF {
				// The transport finished cleanly but the protocol did not:
				// the sentinel never arrived.
				err = io.ErrUnexpectedEOF
			}
			s.fail(KindStream, err)
			return
		}
	}
}

// consume frames one chunk and delivers its events in frame order. It
// returns false once the session has reached a terminal state and reading
// should cease, including mid-chunk when the sentinel arrives with more
// bytes behind it.
func (s *Session) consume(chunk []byte) bool {
	s.mu.Lock()
	if s.state != StateStreaming {
		s.mu.Unlock()
		return false
	}
	lines := s.framer.Feed(chunk)
	s.mu.Unlock()

	for _, line := range lines {
		if line == "" {
			continue
		}
		payload, ok := strings.CutPrefix(line, sse.DataPrefix)
		if !ok {
			// Tolerant of extension lines: anything without the data
			// prefix is skipped, never an error.
			continue
		}

		if payload == sse.DoneSentinel {
			if s.transition(StateStreaming, StateCompleted) {
				s.abortTransport()
				if s.handler.OnDone != nil {
					s.handler.OnDone()
				}
			}
			return false
		}

		s.mu.Lock()
		streaming := s.state == StateStreaming
		s.mu.Unlock()
		if !streaming {
			return false
		}
		if s.handler.OnEvent != nil {
			s.handler.OnEvent(sse.Event{Data: payload})
		}
	}

	return true
}

// transition moves from→to under the session lock, returning false when the
// session is no longer in from. Terminal transitions go through here, which
// is what makes the done/error callbacks exactly-once.
func (s *Session) transition(from, to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return false
	}
	s.state = to
	return true
}

// fail moves the session to Failed and fires the error callback, unless the
// session already terminated. Cancellation lands here too — the aborted
// transport surfaces a read error — and stays silent by design.
func (s *Session) fail(kind ErrorKind, err error) {
	s.mu.Lock()
	switch s.state {
	case StateConnecting, StateStreaming:
	default:
		s.mu.Unlock()
		return
	}
	s.state = StateFailed
	s.mu.Unlock()

	s.logger.Debug("stream failed", "kind", kind.String(), "error", err)
	if s.handler.OnError != nil {
		s.handler.OnError(&Error{Kind: kind, Err: err})
	}
}

func (s *Session) abortTransport() {
	s.mu.Lock()
	abort := s.abort
	s.mu.Unlock()
	if abort != nil {
		abort()
	}
}
