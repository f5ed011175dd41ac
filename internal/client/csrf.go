package client

import (
	"sync"

	"github.com/imtihanhq/imtihanctl/internal/state"
)

// csrfRetryPolicy is the explicit two-state policy for the one bounded
// replay after a CSRF rejection: a request starts fresh, may move to
// retried exactly once, and can never retry again from there.
type csrfRetryPolicy int

const (
	csrfFresh csrfRetryPolicy = iota
	csrfRetried
)

func (p csrfRetryPolicy) canRetry() bool {
	return p == csrfFresh
}

// csrfManager caches the CSRF token in the state store so it survives
// process restarts, the same way the web client kept it in storage.
type csrfManager struct {
	mu    sync.Mutex
	store state.Store
}

func newCSRFManager(store state.Store) *csrfManager {
	return &csrfManager{store: store}
}

func (m *csrfManager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	tok, _ := m.store.Get(state.KeyCSRFToken)
	return tok
}

func (m *csrfManager) SetToken(tok string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tok == "" {
		_ = m.store.Delete(state.KeyCSRFToken)
		return
	}

	_ = m.store.Set(state.KeyCSRFToken, tok)
}

func (m *csrfManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	_ = m.store.Delete(state.KeyCSRFToken)
}
