package orchestrator

import (
	"context"
	"net/http"
	"testing"

	"github.com/liftride/payment-service/internal/app/domain/payment"
	"github.com/liftride/payment-service/internal/operator"
	"github.com/liftride/payment-service/pkg/logger"
)

type recordingAdapter struct {
	provider payment.Provider
	payins   int
	payouts  int
	checks   int
}

func (r *recordingAdapter) Provider() payment.Provider { return r.provider }

func (r *recordingAdapter) Payin(context.Context, payment.Intent) (int, payment.Result) {
	r.payins++
	return http.StatusAccepted, payment.Result{Success: true, VerificationToken: string(r.provider) + "-tok"}
}

func (r *recordingAdapter) Payout(context.Context, payment.Intent) (int, payment.Result) {
	r.payouts++
	return http.StatusAccepted, payment.Result{Success: true}
}

func (r *recordingAdapter) CheckPayin(context.Context, string) (int, payment.CheckResult) {
	r.checks++
	return http.StatusOK, payment.CheckResult{Conclusive: true, Found: true, Status: payment.StatusCompleted}
}

func (r *recordingAdapter) CheckPayout(context.Context, string) (int, payment.CheckResult) {
	r.checks++
	return http.StatusOK, payment.CheckResult{Conclusive: true, Found: true, Status: payment.StatusCompleted}
}

func newOrchestrator(t *testing.T) (*Orchestrator, *recordingAdapter, *recordingAdapter) {
	t.Helper()
	classifier, err := operator.NewClassifier(operator.DefaultTable())
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}
	mtn := &recordingAdapter{provider: payment.ProviderMTN}
	orange := &recordingAdapter{provider: payment.ProviderOrange}
	return New(classifier, mtn, orange, logger.NewNop()), mtn, orange
}

func TestPayinRoutesByPrefix(t *testing.T) {
	o, mtn, orange := newOrchestrator(t)

	if _, result := o.Payin(context.Background(), payment.Intent{Phone: "670123456", Amount: 100, Reference: "a"}); !result.Success {
		t.Fatalf("mtn payin failed: %+v", result)
	}
	if _, result := o.Payin(context.Background(), payment.Intent{Phone: "690123456", Amount: 100, Reference: "b"}); !result.Success {
		t.Fatalf("orange payin failed: %+v", result)
	}

	if mtn.payins != 1 || orange.payins != 1 {
		t.Fatalf("dispatch counts mtn=%d orange=%d, want 1/1", mtn.payins, orange.payins)
	}
}

func TestPayinUnsupportedOperator(t *testing.T) {
	o, mtn, orange := newOrchestrator(t)

	code, result := o.Payin(context.Background(), payment.Intent{Phone: "660123456", Amount: 100, Reference: "c"})
	if result.Success {
		t.Fatal("expected failure for unassigned prefix")
	}
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if result.Message != "unsupported operator" {
		t.Fatalf("message = %q", result.Message)
	}
	if mtn.payins != 0 || orange.payins != 0 {
		t.Fatal("no adapter may be called for an unclassifiable number")
	}
}

func TestPayoutRoutesByPrefix(t *testing.T) {
	o, _, orange := newOrchestrator(t)

	if _, result := o.Payout(context.Background(), payment.Intent{Phone: "655123456", Amount: 100, Reference: "d"}); !result.Success {
		t.Fatalf("payout failed: %+v", result)
	}
	if orange.payouts != 1 {
		t.Fatalf("orange payouts = %d", orange.payouts)
	}
}

func TestCheckPaymentRoutesByPhone(t *testing.T) {
	o, mtn, _ := newOrchestrator(t)

	code, res := o.CheckPayment(context.Background(), "tok", "670123456")
	if code != http.StatusOK || !res.Found {
		t.Fatalf("check: code=%d res=%+v", code, res)
	}
	if mtn.checks != 1 {
		t.Fatalf("mtn checks = %d", mtn.checks)
	}

	code, res = o.CheckPayment(context.Background(), "tok", "12")
	if code != http.StatusBadRequest || res.Found {
		t.Fatalf("invalid phone should fail fast, got code=%d res=%+v", code, res)
	}
}

func TestOperatorAndProviderFor(t *testing.T) {
	o, _, _ := newOrchestrator(t)

	op, err := o.Operator("680123456")
	if err != nil || op != payment.OperatorMTN {
		t.Fatalf("Operator = %q, %v", op, err)
	}
	if p := o.ProviderFor(payment.OperatorOrange); p != payment.ProviderOrange {
		t.Fatalf("ProviderFor(orange) = %q", p)
	}
	if p := o.ProviderFor(payment.Operator("vodafone")); p != "" {
		t.Fatalf("unknown operator should map to empty provider, got %q", p)
	}
}
