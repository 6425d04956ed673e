package cancel

import "sync"

// LinkedToken is a Token that additionally propagates cancellation to a set
// of dependent Cancellers it has absorbed via Link.
type LinkedToken struct {
	Token

	depMu sync.Mutex
	deps  []Canceller
	swept bool
}

// NewLinkedToken returns an active linked token with no dependents.
func NewLinkedToken() *LinkedToken {
	return &LinkedToken{}
}

// Link records dep as a dependent of this token. If the token is already
// cancelled at the time of linking, dep is cancelled before Link returns —
// propagation is never deferred or dropped.
func (t *LinkedToken) Link(dep Canceller) {
	t.depMu.Lock()
	if t.swept || t.Cancelled() {
		t.depMu.Unlock()
		dep.Cancel()
		return
	}
	t.deps = append(t.deps, dep)
	t.depMu.Unlock()
}

// Cancel cancels the token itself (running local callbacks per Token.Cancel),
// then cancels every currently-linked dependent. Dependents already cancelled
// independently are unaffected since Cancel is idempotent everywhere.
func (t *LinkedToken) Cancel() {
	t.Token.Cancel()

	t.depMu.Lock()
	if t.swept {
		t.depMu.Unlock()
		return
	}
	t.swept = true
	deps := t.deps
	t.deps = nil
	t.depMu.Unlock()

	for _, dep := range deps {
		dep.Cancel()
	}
}
