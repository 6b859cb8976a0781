// Package orchestrator dispatches unified payment operations to the adapter
// matching the subscriber's operator.
package orchestrator

import (
	"context"
	"net/http"
	"time"

	"github.com/liftride/payment-service/internal/app/domain/payment"
	"github.com/liftride/payment-service/internal/app/metrics"
	"github.com/liftride/payment-service/internal/operator"
	"github.com/liftride/payment-service/internal/providers"
	"github.com/liftride/payment-service/pkg/logger"
)

// Orchestrator is pure dispatch: it classifies the phone number, fails fast
// when no operator matches, and delegates to the selected adapter set. It
// holds no state beyond the classifier and its two adapter references.
type Orchestrator struct {
	classifier *operator.Classifier
	adapters   map[payment.Operator]providers.AdapterSet
	log        *logger.Logger
}

// New wires an orchestrator over one adapter set per operator.
func New(classifier *operator.Classifier, mtn, orange providers.AdapterSet, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.NewDefault("orchestrator")
	}
	return &Orchestrator{
		classifier: classifier,
		adapters: map[payment.Operator]providers.AdapterSet{
			payment.OperatorMTN:    mtn,
			payment.OperatorOrange: orange,
		},
		log: log,
	}
}

// Operator exposes classification so callers can persist the routing
// decision alongside the transaction.
func (o *Orchestrator) Operator(phone string) (payment.Operator, error) {
	return o.classifier.Classify(phone)
}

// ProviderFor reports which integration serves an operator.
func (o *Orchestrator) ProviderFor(op payment.Operator) payment.Provider {
	if adapter, ok := o.adapters[op]; ok {
		return adapter.Provider()
	}
	return ""
}

// select resolves the adapter for a phone number.
func (o *Orchestrator) selectAdapter(phone string) (payment.Operator, providers.AdapterSet, *payment.Result) {
	op, err := o.classifier.Classify(phone)
	if err != nil {
		o.log.WithError(err).Warn("operator classification failed")
		return "", nil, &payment.Result{Success: false, Message: "unsupported operator"}
	}
	return op, o.adapters[op], nil
}

// Payin routes a collection to the subscriber's operator.
func (o *Orchestrator) Payin(ctx context.Context, intent payment.Intent) (int, payment.Result) {
	_, adapter, failure := o.selectAdapter(intent.Phone)
	if failure != nil {
		return http.StatusBadRequest, *failure
	}
	start := time.Now()
	code, result := adapter.Payin(ctx, intent)
	metrics.RecordProviderCall(string(adapter.Provider()), "payin", result.Success, time.Since(start))
	return code, result
}

// Payout routes a disbursement to the recipient's operator.
func (o *Orchestrator) Payout(ctx context.Context, intent payment.Intent) (int, payment.Result) {
	_, adapter, failure := o.selectAdapter(intent.Phone)
	if failure != nil {
		return http.StatusBadRequest, *failure
	}
	start := time.Now()
	code, result := adapter.Payout(ctx, intent)
	metrics.RecordProviderCall(string(adapter.Provider()), "payout", result.Success, time.Since(start))
	return code, result
}

// CheckPayment looks up a collection by verification token; the phone number
// selects which provider to ask.
func (o *Orchestrator) CheckPayment(ctx context.Context, token, phone string) (int, payment.CheckResult) {
	_, adapter, failure := o.selectAdapter(phone)
	if failure != nil {
		return http.StatusBadRequest, payment.CheckResult{Status: payment.StatusPending}
	}
	start := time.Now()
	code, result := adapter.CheckPayin(ctx, token)
	metrics.RecordProviderCall(string(adapter.Provider()), "check_payin", result.Conclusive, time.Since(start))
	return code, result
}

// CheckPayout looks up a disbursement by verification token.
func (o *Orchestrator) CheckPayout(ctx context.Context, token, phone string) (int, payment.CheckResult) {
	_, adapter, failure := o.selectAdapter(phone)
	if failure != nil {
		return http.StatusBadRequest, payment.CheckResult{Status: payment.StatusPending}
	}
	start := time.Now()
	code, result := adapter.CheckPayout(ctx, token)
	metrics.RecordProviderCall(string(adapter.Provider()), "check_payout", result.Conclusive, time.Since(start))
	return code, result
}
