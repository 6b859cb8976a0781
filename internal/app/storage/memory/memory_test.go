package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/liftride/payment-service/internal/app/domain/payment"
	"github.com/liftride/payment-service/internal/app/storage"
)

func seed(t *testing.T, s *Store, reference, token string, status payment.Status) payment.Transaction {
	t.Helper()
	tx, err := s.CreateTransaction(context.Background(), payment.Transaction{
		Kind:              payment.KindPayin,
		Operator:          payment.OperatorMTN,
		Provider:          payment.ProviderMTN,
		Phone:             "670123456",
		Amount:            1500,
		Currency:          "XAF",
		Reference:         reference,
		VerificationToken: token,
		Status:            status,
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	return tx
}

func TestCreateAssignsIDAndTimestamps(t *testing.T) {
	s := New()
	tx := seed(t, s, "ride-1", "tok-1", payment.StatusPending)
	if tx.ID == "" {
		t.Fatal("missing generated id")
	}
	if tx.CreatedAt.IsZero() || tx.UpdatedAt.IsZero() {
		t.Fatal("missing timestamps")
	}
}

func TestLookups(t *testing.T) {
	s := New()
	created := seed(t, s, "ride-2", "tok-2", payment.StatusPending)

	byID, err := s.GetTransaction(context.Background(), created.ID)
	if err != nil || byID.Reference != "ride-2" {
		t.Fatalf("GetTransaction: %+v, %v", byID, err)
	}
	byRef, err := s.GetTransactionByReference(context.Background(), "ride-2")
	if err != nil || byRef.ID != created.ID {
		t.Fatalf("GetTransactionByReference: %+v, %v", byRef, err)
	}
	byTok, err := s.GetTransactionByToken(context.Background(), "tok-2")
	if err != nil || byTok.ID != created.ID {
		t.Fatalf("GetTransactionByToken: %+v, %v", byTok, err)
	}

	if _, err := s.GetTransaction(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateTransactionStatus(t *testing.T) {
	s := New()
	created := seed(t, s, "ride-3", "tok-3", payment.StatusPending)

	updated, err := s.UpdateTransactionStatus(context.Background(), created.ID, payment.StatusCompleted, "settled")
	if err != nil {
		t.Fatalf("UpdateTransactionStatus: %v", err)
	}
	if updated.Status != payment.StatusCompleted || updated.Reason != "settled" {
		t.Fatalf("update not applied: %+v", updated)
	}

	if _, err := s.UpdateTransactionStatus(context.Background(), "missing", payment.StatusFailed, ""); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListOpenTransactionsSkipsTerminal(t *testing.T) {
	s := New()
	seed(t, s, "ride-4", "tok-4", payment.StatusPending)
	seed(t, s, "ride-5", "tok-5", payment.StatusProcessing)
	seed(t, s, "ride-6", "tok-6", payment.StatusCompleted)
	seed(t, s, "ride-7", "tok-7", payment.StatusFailed)

	open, err := s.ListOpenTransactions(context.Background())
	if err != nil {
		t.Fatalf("ListOpenTransactions: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected 2 open transactions, got %d", len(open))
	}
	for _, tx := range open {
		if tx.Status.Terminal() {
			t.Fatalf("terminal transaction %s listed as open", tx.Reference)
		}
	}
}

func TestListTransactionsByKind(t *testing.T) {
	s := New()
	seed(t, s, "ride-8", "tok-8", payment.StatusPending)
	if _, err := s.CreateTransaction(context.Background(), payment.Transaction{
		Kind: payment.KindPayout, Reference: "payout-1", VerificationToken: "tok-9", Status: payment.StatusPending,
	}); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	payouts, err := s.ListTransactions(context.Background(), payment.KindPayout)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(payouts) != 1 || payouts[0].Reference != "payout-1" {
		t.Fatalf("payout filter broken: %+v", payouts)
	}

	all, err := s.ListTransactions(context.Background(), "")
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(all))
	}
}
