// Package reconciler re-checks non-terminal transactions against the
// providers so missed callbacks cannot strand a payment.
package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/liftride/payment-service/internal/app/domain/payment"
	"github.com/liftride/payment-service/internal/app/metrics"
	"github.com/liftride/payment-service/internal/app/storage"
	"github.com/liftride/payment-service/internal/app/system"
	"github.com/liftride/payment-service/internal/retry"
	"github.com/liftride/payment-service/pkg/logger"
)

var _ system.Service = (*Reconciler)(nil)

// Checker is the orchestrator surface the reconciler needs.
type Checker interface {
	CheckPayment(ctx context.Context, token, phone string) (int, payment.CheckResult)
	CheckPayout(ctx context.Context, token, phone string) (int, payment.CheckResult)
}

// Reconciler polls open transactions on a fixed interval. It never
// re-submits a payment; it only refreshes stored status and marks
// permanently failed transactions terminal.
type Reconciler struct {
	store    storage.TransactionStore
	checker  Checker
	log      *logger.Logger
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// New creates a lifecycle-managed reconciler.
func New(store storage.TransactionStore, checker Checker, interval time.Duration, log *logger.Logger) *Reconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = logger.NewDefault("reconciler")
	}
	return &Reconciler{
		store:    store,
		checker:  checker,
		log:      log,
		interval: interval,
	}
}

func (r *Reconciler) Name() string { return "payment-reconciler" }

func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				r.tick(runCtx)
			}
		}
	}()

	r.log.Info("payment reconciler started")
	return nil
}

func (r *Reconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.log.Info("payment reconciler stopped")
	return nil
}

// tick runs one reconciliation pass.
func (r *Reconciler) tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, r.interval)
	defer cancel()

	open, err := r.store.ListOpenTransactions(ctx)
	if err != nil {
		r.log.WithError(err).Warn("reconciler tick failed")
		return
	}

	for _, tx := range open {
		r.reconcile(ctx, tx)
	}
}

// Reconcile refreshes one transaction's stored status from its provider.
// Exported so operational tooling can force a single pass.
func (r *Reconciler) Reconcile(ctx context.Context, tx payment.Transaction) {
	r.reconcile(ctx, tx)
}

func (r *Reconciler) reconcile(ctx context.Context, tx payment.Transaction) {
	if tx.VerificationToken == "" {
		return
	}

	var result payment.CheckResult
	if tx.Kind == payment.KindPayout {
		_, result = r.checker.CheckPayout(ctx, tx.VerificationToken, tx.Phone)
	} else {
		_, result = r.checker.CheckPayment(ctx, tx.VerificationToken, tx.Phone)
	}

	// A check that never got a provider answer (token failure, transport
	// error, unexpected response) says nothing about the transaction. It
	// stays open for the next pass.
	if !result.Conclusive {
		r.log.WithField("transaction_id", tx.ID).Debug("status check inconclusive, keeping transaction open")
		return
	}

	next := result.Status
	reason := tx.Reason
	if result.Found {
		if result.Reason != "" {
			reason = result.Reason
		}
	} else {
		// The provider has no record of the transaction. The retry tables
		// decide whether to keep polling; for an unknown record they answer
		// no, so the transaction is closed rather than polled forever.
		if !retry.ShouldRetry(string(tx.Status), tx.Reason) {
			next = payment.StatusFailed
			reason = "transaction not found at provider"
		}
	}

	if next == tx.Status {
		return
	}
	if _, err := r.store.UpdateTransactionStatus(ctx, tx.ID, next, reason); err != nil {
		r.log.WithError(err).
			WithField("transaction_id", tx.ID).
			Warn("status update failed")
		return
	}
	metrics.RecordReconcilerTransition(string(next))
	r.log.WithField("transaction_id", tx.ID).
		WithField("status", next).
		Info("transaction status reconciled")
}
