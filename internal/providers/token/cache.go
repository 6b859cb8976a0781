// Package token caches short-lived provider bearer credentials, one slot per
// credential class.
package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/liftride/payment-service/internal/app/domain/payment"
	"github.com/liftride/payment-service/internal/app/metrics"
)

// Token is a cached bearer credential. The cache is process-local only: a
// restart forces exactly one re-authentication per credential class on next
// use.
type Token struct {
	Access    string
	ExpiresAt time.Time
}

// RefreshFunc performs the provider's authentication handshake for one
// credential class.
type RefreshFunc func(ctx context.Context, class payment.CredentialClass) (Token, error)

// Manager is a single-slot-per-class, read-mostly token cache. The mutex is
// held across a refresh, which doubles as in-flight de-duplication: two
// goroutines hitting an expired slot produce one handshake, not two.
type Manager struct {
	refresh RefreshFunc

	mu    sync.Mutex
	slots map[payment.CredentialClass]Token
	now   func() time.Time
}

// NewManager builds a manager around the provider's handshake.
func NewManager(refresh RefreshFunc) *Manager {
	return &Manager{
		refresh: refresh,
		slots:   make(map[payment.CredentialClass]Token),
		now:     time.Now,
	}
}

// Get returns the cached token for the class when its expiry is strictly in
// the future, otherwise performs one handshake and caches the result.
// No clock-skew buffer is applied before expiry; a token expiring mid-flight
// surfaces as a provider-side auth error on that call.
func (m *Manager) Get(ctx context.Context, class payment.CredentialClass) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cached, ok := m.slots[class]; ok && cached.ExpiresAt.After(m.now()) {
		return cached, nil
	}

	fresh, err := m.refresh(ctx, class)
	if err != nil {
		metrics.RecordTokenRefresh(string(class), false)
		return Token{}, fmt.Errorf("token: refresh %s credentials: %w", class, err)
	}
	if fresh.Access == "" {
		metrics.RecordTokenRefresh(string(class), false)
		return Token{}, fmt.Errorf("token: provider returned empty %s token", class)
	}
	metrics.RecordTokenRefresh(string(class), true)
	m.slots[class] = fresh
	return fresh, nil
}

// Invalidate drops the cached token for a class so the next Get refreshes.
func (m *Manager) Invalidate(class payment.CredentialClass) {
	m.mu.Lock()
	delete(m.slots, class)
	m.mu.Unlock()
}
