// Package idempotency guards against duplicate submissions of the same
// logical payment. Adapters generate a fresh provider reference per call, so
// the caller-facing API is where duplicates must be stopped.
package idempotency

import (
	"context"
	"sync"
	"time"
)

const (
	// InProgressExpiry bounds how long a claimed reference blocks another
	// attempt when the first one never completes.
	InProgressExpiry = 30 * time.Second
	// CompletedExpiry is how long a finished reference stays known.
	CompletedExpiry = 24 * time.Hour
)

// Store is the duplicate-submission guard.
type Store interface {
	// Claim marks the reference as in progress. It returns false when the
	// reference is already claimed or completed, meaning the submission is a
	// duplicate.
	Claim(ctx context.Context, reference string) (bool, error)
	// Complete marks the reference as finished so later duplicates are
	// rejected for the completed window.
	Complete(ctx context.Context, reference string) error
	// Release frees a claimed reference after a failed attempt so the caller
	// may retry with the same reference.
	Release(ctx context.Context, reference string) error
}

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	completed bool
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory guard.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Claim(_ context.Context, reference string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[reference]; ok && e.expiresAt.After(m.now()) {
		return false, nil
	}
	m.entries[reference] = memoryEntry{expiresAt: m.now().Add(InProgressExpiry)}
	return true, nil
}

func (m *MemoryStore) Complete(_ context.Context, reference string) error {
	m.mu.Lock()
	m.entries[reference] = memoryEntry{completed: true, expiresAt: m.now().Add(CompletedExpiry)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Release(_ context.Context, reference string) error {
	m.mu.Lock()
	delete(m.entries, reference)
	m.mu.Unlock()
	return nil
}
