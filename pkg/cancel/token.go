// Package cancel provides once-only cancellation tokens with registerable
// callbacks and hierarchical (linked) propagation.
//
// A Token is the completion signal used to tear down in-flight streaming
// work. Unlike a context.Context, callbacks registered on a Token run
// synchronously in registration order, and registering on an
// already-cancelled token invokes the callback inline rather than dropping
// it. A LinkedToken additionally sweeps its dependents, so cancelling a
// parent operation cancels every child request it spawned without the parent
// tracking child completion.
//
// A token may be queried and registered against by many readers, but has
// exactly one canonical owner responsible for calling Cancel.
package cancel

import "sync"

// Canceller is anything that can be cancelled. Token, LinkedToken, and Func
// all satisfy it, so linked hierarchies can nest arbitrary work.
type Canceller interface {
	Cancel()
}

// Func adapts a plain function to the Canceller interface.
type Func func()

// Cancel invokes the wrapped function.
func (f Func) Cancel() { f() }

// Token is a one-way Active→Cancelled signal. Create tokens with NewToken;
// the zero value works but cannot be linked to anything.
type Token struct {
	mu        sync.Mutex
	cancelled bool
	callbacks []func()
}

// NewToken returns an active token.
func NewToken() *Token {
	return &Token{}
}

// Cancel transitions the token to Cancelled and invokes every registered
// callback exactly once, in registration order, then clears the list.
// Subsequent calls are no-ops.
func (t *Token) Cancel() {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return
	}
	t.cancelled = true
	cbs := t.callbacks
	t.callbacks = nil
	t.mu.Unlock()

	// Callbacks run outside the lock so they may query the token or register
	// further callbacks (which then run inline) without deadlocking.
	for _, cb := range cbs {
		cb()
	}
}

// Cancelled reports whether Cancel has been called. It is a pure query with
// no side effects and never blocks beyond the internal mutex.
func (t *Token) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// OnCancel registers fn to run at cancellation time. If the token is already
// cancelled, fn runs inline, exactly once, before OnCancel returns.
func (t *Token) OnCancel(fn func()) {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		fn()
		return
	}
	t.callbacks = append(t.callbacks, fn)
	t.mu.Unlock()
}
