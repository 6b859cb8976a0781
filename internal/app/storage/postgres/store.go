// Package postgres implements the transaction store on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/liftride/payment-service/internal/app/domain/payment"
	"github.com/liftride/payment-service/internal/app/storage"
)

// Store implements storage.TransactionStore backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.TransactionStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const columns = `id, kind, operator, provider, phone, amount, currency, reference, verification_token, status, reason, created_at, updated_at`

func (s *Store) CreateTransaction(ctx context.Context, tx payment.Transaction) (payment.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_transactions (`+columns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, tx.ID, tx.Kind, tx.Operator, tx.Provider, tx.Phone, tx.Amount, tx.Currency,
		tx.Reference, tx.VerificationToken, tx.Status, tx.Reason, tx.CreatedAt, tx.UpdatedAt)
	if err != nil {
		return payment.Transaction{}, err
	}
	return tx, nil
}

func (s *Store) UpdateTransactionStatus(ctx context.Context, id string, status payment.Status, reason string) (payment.Transaction, error) {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE payment_transactions
		SET status = $2, reason = $3, updated_at = $4
		WHERE id = $1
	`, id, status, reason, now)
	if err != nil {
		return payment.Transaction{}, err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return payment.Transaction{}, storage.ErrNotFound
	}
	return s.GetTransaction(ctx, id)
}

func (s *Store) GetTransaction(ctx context.Context, id string) (payment.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+columns+` FROM payment_transactions WHERE id = $1
	`, id)
	return scanTransaction(row)
}

func (s *Store) GetTransactionByReference(ctx context.Context, reference string) (payment.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+columns+` FROM payment_transactions WHERE reference = $1
		ORDER BY created_at DESC LIMIT 1
	`, reference)
	return scanTransaction(row)
}

func (s *Store) GetTransactionByToken(ctx context.Context, verificationToken string) (payment.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+columns+` FROM payment_transactions WHERE verification_token = $1
		ORDER BY created_at DESC LIMIT 1
	`, verificationToken)
	return scanTransaction(row)
}

func (s *Store) ListTransactions(ctx context.Context, kind payment.Kind) ([]payment.Transaction, error) {
	query := `SELECT ` + columns + ` FROM payment_transactions ORDER BY created_at`
	args := []interface{}{}
	if kind != "" {
		query = `SELECT ` + columns + ` FROM payment_transactions WHERE kind = $1 ORDER BY created_at`
		args = append(args, kind)
	}
	return s.list(ctx, query, args...)
}

func (s *Store) ListOpenTransactions(ctx context.Context) ([]payment.Transaction, error) {
	return s.list(ctx, `
		SELECT `+columns+` FROM payment_transactions
		WHERE status IN ($1, $2)
		ORDER BY created_at
	`, payment.StatusPending, payment.StatusProcessing)
}

func (s *Store) list(ctx context.Context, query string, args ...interface{}) ([]payment.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payment.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scanner) (payment.Transaction, error) {
	var tx payment.Transaction
	err := row.Scan(&tx.ID, &tx.Kind, &tx.Operator, &tx.Provider, &tx.Phone, &tx.Amount,
		&tx.Currency, &tx.Reference, &tx.VerificationToken, &tx.Status, &tx.Reason,
		&tx.CreatedAt, &tx.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return payment.Transaction{}, storage.ErrNotFound
	}
	if err != nil {
		return payment.Transaction{}, err
	}
	return tx, nil
}
