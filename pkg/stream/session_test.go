package stream_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/reel/pkg/cancel"
	"github.com/papercomputeco/reel/pkg/sse"
	"github.com/papercomputeco/reel/pkg/stream"
)

// recorder collects callback invocations for assertions.
type recorder struct {
	mu     sync.Mutex
	events []string
	done   int
	errs   []*stream.Error
}

func (r *recorder) handler() stream.Handler {
	return stream.Handler{
		OnEvent: func(ev sse.Event) {
			r.mu.Lock()
			r.events = append(r.events, ev.Data)
			r.mu.Unlock()
		},
		OnDone: func() {
			r.mu.Lock()
			r.done++
			r.mu.Unlock()
		},
		OnError: func(err *stream.Error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) DoneCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

func (r *recorder) Errors() []*stream.Error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*stream.Error(nil), r.errs...)
}

// terminalCallbacks returns done invocations plus error invocations, for
// asserting the at-most-one-terminal-callback invariant.
func (r *recorder) terminalCallbacks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done + len(r.errs)
}

// sseServer serves each string in chunks as one flushed write.
func sseServer(chunks ...string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, chunk := range chunks {
			_, _ = w.Write([]byte(chunk))
			flusher.Flush()
		}
	}))
}

var _ = Describe("Session", func() {
	var rec *recorder

	BeforeEach(func() {
		rec = &recorder{}
	})

	newSession := func() *stream.Session {
		return stream.New(stream.Config{}, rec.handler())
	}

	Describe("Start", func() {
		It("streams events in frame order across arbitrary chunk boundaries", func() {
			srv := sseServer("data: hel", "lo\ndata: world\n", "data: [DONE]\n")
			defer srv.Close()

			sess := newSession()
			Expect(sess.Start(srv.URL, []byte(`{}`), nil)).To(Succeed())

			Eventually(rec.DoneCount).Should(Equal(1))
			Expect(rec.Events()).To(Equal([]string{"hello", "world"}))
			Expect(rec.Errors()).To(BeEmpty())
			Expect(sess.State()).To(Equal(stream.StateCompleted))
		})

		It("rejects a second Start on the same session", func() {
			srv := sseServer("data: [DONE]\n")
			defer srv.Close()

			sess := newSession()
			Expect(sess.Start(srv.URL, nil, nil)).To(Succeed())
			Expect(sess.Start(srv.URL, nil, nil)).To(MatchError(stream.ErrAlreadyStarted))
		})

		It("sends a POST with JSON content type and merged caller headers", func() {
			var gotMethod, gotContentType, gotAuth, gotBody string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
				gotContentType = r.Header.Get("Content-Type")
				gotAuth = r.Header.Get("Authorization")
				b := make([]byte, r.ContentLength)
				_, _ = r.Body.Read(b)
				gotBody = string(b)
				_, _ = w.Write([]byte("data: [DONE]\n"))
			}))
			defer srv.Close()

			headers := http.Header{}
			headers.Set("Authorization", "Bearer sekrit")
			// Caller content-type must lose to the JSON body's.
			headers.Set("Content-Type", "text/plain")

			sess := newSession()
			Expect(sess.Start(srv.URL, []byte(`{"content":"hi"}`), headers)).To(Succeed())

			Eventually(rec.DoneCount).Should(Equal(1))
			Expect(gotMethod).To(Equal(http.MethodPost))
			Expect(gotContentType).To(Equal("application/json"))
			Expect(gotAuth).To(Equal("Bearer sekrit"))
			Expect(gotBody).To(Equal(`{"content":"hi"}`))
		})
	})

	Describe("framing and filtering", func() {
		It("skips empty lines and lines without the data prefix", func() {
			srv := sseServer("event: ping\n\n: keep-alive\ndata: only\ndata: [DONE]\n")
			defer srv.Close()

			sess := newSession()
			Expect(sess.Start(srv.URL, nil, nil)).To(Succeed())

			Eventually(rec.DoneCount).Should(Equal(1))
			Expect(rec.Events()).To(Equal([]string{"only"}))
		})

		It("stops processing after the sentinel even when more bytes follow in the same chunk", func() {
			srv := sseServer("data: first\ndata: [DONE]\ndata: after\n")
			defer srv.Close()

			sess := newSession()
			Expect(sess.Start(srv.URL, nil, nil)).To(Succeed())

			Eventually(rec.DoneCount).Should(Equal(1))
			Consistently(rec.Events, 100*time.Millisecond).Should(Equal([]string{"first"}))
			Expect(rec.terminalCallbacks()).To(Equal(1))
		})

		It("never delivers the sentinel as a regular event", func() {
			srv := sseServer("data: [DONE]\n")
			defer srv.Close()

			sess := newSession()
			Expect(sess.Start(srv.URL, nil, nil)).To(Succeed())

			Eventually(rec.DoneCount).Should(Equal(1))
			Expect(rec.Events()).To(BeEmpty())
		})
	})

	Describe("failure paths", func() {
		It("reports a connect-kind error for a non-2xx response", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "no such session", http.StatusNotFound)
			}))
			defer srv.Close()

			sess := newSession()
			Expect(sess.Start(srv.URL, nil, nil)).To(Succeed())

			Eventually(func() int { return len(rec.Errors()) }).Should(Equal(1))
			err := rec.Errors()[0]
			Expect(err.Kind).To(Equal(stream.KindConnect))
			Expect(err.Error()).To(ContainSubstring("404"))
			Expect(err.Error()).To(ContainSubstring("no such session"))
			Expect(rec.DoneCount()).To(BeZero())
			Expect(sess.State()).To(Equal(stream.StateFailed))
		})

		It("reports a connect-kind error when the server is unreachable", func() {
			srv := sseServer()
			url := srv.URL
			srv.Close()

			sess := newSession()
			Expect(sess.Start(url, nil, nil)).To(Succeed())

			Eventually(func() int { return len(rec.Errors()) }).Should(Equal(1))
			Expect(rec.Errors()[0].Kind).To(Equal(stream.KindConnect))
		})

		It("reports a stream-kind error when the stream ends without the sentinel", func() {
			srv := sseServer("data: partial\n")
			defer srv.Close()

			sess := newSession()
			Expect(sess.Start(srv.URL, nil, nil)).To(Succeed())

			Eventually(func() int { return len(rec.Errors()) }).Should(Equal(1))
			Expect(rec.Errors()[0].Kind).To(Equal(stream.KindStream))
			Expect(rec.Events()).To(Equal([]string{"partial"}))
			Expect(rec.DoneCount()).To(BeZero())
			Expect(rec.terminalCallbacks()).To(Equal(1))
		})
	})

	Describe("Stop", func() {
		It("discards a session stopped before any chunk arrives, with no callbacks", func() {
			reached := make(chan struct{})
			release := make(chan struct{})
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				close(reached)
				<-release
				_, _ = w.Write([]byte("data: late\ndata: [DONE]\n"))
			}))
			defer srv.Close()
			defer close(release)

			sess := newSession()
			Expect(sess.Start(srv.URL, nil, nil)).To(Succeed())

			Eventually(reached).Should(BeClosed())
			sess.Stop()

			Expect(sess.State()).To(Equal(stream.StateCancelled))
			Consistently(rec.terminalCallbacks, 200*time.Millisecond).Should(BeZero())
			Expect(rec.Events()).To(BeEmpty())
		})

		It("is idempotent and a no-op after completion", func() {
			srv := sseServer("data: x\ndata: [DONE]\n")
			defer srv.Close()

			sess := newSession()
			Expect(sess.Start(srv.URL, nil, nil)).To(Succeed())
			Eventually(rec.DoneCount).Should(Equal(1))

			sess.Stop()
			sess.Stop()

			Expect(sess.State()).To(Equal(stream.StateCompleted))
			Expect(rec.terminalCallbacks()).To(Equal(1))
		})

		It("parks an unstarted session in Cancelled and rejects a later Start", func() {
			sess := newSession()
			sess.Stop()

			Expect(sess.State()).To(Equal(stream.StateCancelled))
			Expect(sess.Start("http://127.0.0.1:0", nil, nil)).To(MatchError(stream.ErrAlreadyStarted))
		})

		It("stays silent when stopping mid-stream", func() {
			firstDelivered := make(chan struct{})
			release := make(chan struct{})
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				flusher := w.(http.Flusher)
				_, _ = w.Write([]byte("data: one\n"))
				flusher.Flush()
				<-release
			}))
			defer srv.Close()
			defer close(release)

			sess := stream.New(stream.Config{}, stream.Handler{
				OnEvent: func(ev sse.Event) {
					rec.handler().OnEvent(ev)
					select {
					case <-firstDelivered:
					default:
						close(firstDelivered)
					}
				},
				OnDone:  rec.handler().OnDone,
				OnError: rec.handler().OnError,
			})
			Expect(sess.Start(srv.URL, nil, nil)).To(Succeed())

			Eventually(firstDelivered).Should(BeClosed())
			sess.Stop()

			Expect(sess.State()).To(Equal(stream.StateCancelled))
			Consistently(rec.terminalCallbacks, 200*time.Millisecond).Should(BeZero())
		})
	})

	Describe("cancel token integration", func() {
		It("stops the session when a linked token is cancelled", func() {
			reached := make(chan struct{})
			release := make(chan struct{})
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				close(reached)
				<-release
			}))
			defer srv.Close()
			defer close(release)

			sess := newSession()
			tok := cancel.NewLinkedToken()
			tok.Link(cancel.Func(sess.Stop))

			Expect(sess.Start(srv.URL, nil, nil)).To(Succeed())
			Eventually(reached).Should(BeClosed())

			tok.Cancel()

			Expect(sess.State()).To(Equal(stream.StateCancelled))
			Consistently(rec.terminalCallbacks, 100*time.Millisecond).Should(BeZero())
		})

		It("stops a session linked after the token was already cancelled", func() {
			tok := cancel.NewLinkedToken()
			tok.Cancel()

			sess := newSession()
			tok.Link(cancel.Func(sess.Stop))

			Expect(sess.State()).To(Equal(stream.StateCancelled))
		})
	})
})
