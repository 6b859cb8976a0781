// Package memory provides the in-memory transaction store used by tests and
// single-process deployments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/liftride/payment-service/internal/app/domain/payment"
	"github.com/liftride/payment-service/internal/app/storage"
)

// Store is a mutex-guarded map implementation of storage.TransactionStore.
type Store struct {
	mu  sync.RWMutex
	txs map[string]payment.Transaction
}

var _ storage.TransactionStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{txs: make(map[string]payment.Transaction)}
}

func (s *Store) CreateTransaction(_ context.Context, tx payment.Transaction) (payment.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	s.txs[tx.ID] = tx
	return tx, nil
}

func (s *Store) UpdateTransactionStatus(_ context.Context, id string, status payment.Status, reason string) (payment.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[id]
	if !ok {
		return payment.Transaction{}, storage.ErrNotFound
	}
	tx.Status = status
	tx.Reason = reason
	tx.UpdatedAt = time.Now().UTC()
	s.txs[id] = tx
	return tx, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (payment.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.txs[id]
	if !ok {
		return payment.Transaction{}, storage.ErrNotFound
	}
	return tx, nil
}

func (s *Store) GetTransactionByReference(_ context.Context, reference string) (payment.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tx := range s.txs {
		if tx.Reference == reference {
			return tx, nil
		}
	}
	return payment.Transaction{}, storage.ErrNotFound
}

func (s *Store) GetTransactionByToken(_ context.Context, verificationToken string) (payment.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tx := range s.txs {
		if tx.VerificationToken == verificationToken {
			return tx, nil
		}
	}
	return payment.Transaction{}, storage.ErrNotFound
}

func (s *Store) ListTransactions(_ context.Context, kind payment.Kind) ([]payment.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]payment.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		if kind == "" || tx.Kind == kind {
			out = append(out, tx)
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *Store) ListOpenTransactions(_ context.Context) ([]payment.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []payment.Transaction
	for _, tx := range s.txs {
		if !tx.Status.Terminal() {
			out = append(out, tx)
		}
	}
	sortByCreation(out)
	return out, nil
}

func sortByCreation(txs []payment.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		return txs[i].CreatedAt.Before(txs[j].CreatedAt)
	})
}
