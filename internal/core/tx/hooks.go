package tx

import (
	"context"
	"sync"
)

type hooksKey struct{}

// CommitHooks collects callbacks that must only run once the outermost
// transaction has committed.
type CommitHooks struct {
	mu  sync.Mutex
	fns []func()
}

// WithCommitHooks attaches a fresh hook list to ctx. Managers call it when
// they open the outermost transaction.
func WithCommitHooks(ctx context.Context) (context.Context, *CommitHooks) {
	h := &CommitHooks{}
	return context.WithValue(ctx, hooksKey{}, h), h
}

// HasCommitHooks reports whether ctx already belongs to a transaction that
// collects hooks.
func HasCommitHooks(ctx context.Context) bool {
	_, ok := ctx.Value(hooksKey{}).(*CommitHooks)
	return ok
}

// AfterCommit defers fn until the transaction carried by ctx commits. Outside
// a transaction fn runs immediately. On rollback fn is dropped.
func AfterCommit(ctx context.Context, fn func()) {
	h, ok := ctx.Value(hooksKey{}).(*CommitHooks)
	if !ok {
		fn()
		return
	}
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

// Run executes the collected callbacks in registration order.
func (h *CommitHooks) Run() {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
