// Package storage defines the persistence interfaces of the payment layer.
package storage

import (
	"context"
	"errors"

	"github.com/liftride/payment-service/internal/app/domain/payment"
)

// ErrNotFound is returned when a transaction does not exist.
var ErrNotFound = errors.New("storage: transaction not found")

// TransactionStore persists the payment ledger the reconciler works from.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx payment.Transaction) (payment.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id string, status payment.Status, reason string) (payment.Transaction, error)
	GetTransaction(ctx context.Context, id string) (payment.Transaction, error)
	GetTransactionByReference(ctx context.Context, reference string) (payment.Transaction, error)
	GetTransactionByToken(ctx context.Context, verificationToken string) (payment.Transaction, error)
	ListTransactions(ctx context.Context, kind payment.Kind) ([]payment.Transaction, error)
	ListOpenTransactions(ctx context.Context) ([]payment.Transaction, error)
}
