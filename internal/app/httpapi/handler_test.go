package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/liftride/payment-service/internal/app"
	"github.com/liftride/payment-service/internal/app/domain/payment"
	"github.com/liftride/payment-service/internal/app/storage/memory"
	"github.com/liftride/payment-service/internal/config"
	"github.com/liftride/payment-service/internal/idempotency"
	"github.com/liftride/payment-service/internal/operator"
	"github.com/liftride/payment-service/internal/orchestrator"
	"github.com/liftride/payment-service/internal/providers"
	"github.com/liftride/payment-service/internal/webhook"
	"github.com/liftride/payment-service/pkg/logger"
)

type stubAdapter struct {
	provider    payment.Provider
	payinCode   int
	payinResult payment.Result
	checkCode   int
	checkResult payment.CheckResult
}

func (s *stubAdapter) Provider() payment.Provider { return s.provider }

func (s *stubAdapter) Payin(context.Context, payment.Intent) (int, payment.Result) {
	return s.payinCode, s.payinResult
}

func (s *stubAdapter) Payout(context.Context, payment.Intent) (int, payment.Result) {
	return s.payinCode, s.payinResult
}

func (s *stubAdapter) CheckPayin(context.Context, string) (int, payment.CheckResult) {
	return s.checkCode, s.checkResult
}

func (s *stubAdapter) CheckPayout(context.Context, string) (int, payment.CheckResult) {
	return s.checkCode, s.checkResult
}

func newTestApp(t *testing.T, mtn, orange providers.AdapterSet) *app.Application {
	t.Helper()
	classifier, err := operator.NewClassifier(operator.DefaultTable())
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}
	return &app.Application{
		Config:       &config.Config{CallbackSecret: "shhh"},
		Orchestrator: orchestrator.New(classifier, mtn, orange, logger.NewNop()),
		Transactions: memory.New(),
		Idempotency:  idempotency.NewMemoryStore(),
	}
}

func acceptedAdapter(provider payment.Provider) *stubAdapter {
	return &stubAdapter{
		provider:    provider,
		payinCode:   http.StatusAccepted,
		payinResult: payment.Result{Success: true, VerificationToken: "tok-1", Message: "accepted"},
		checkCode:   http.StatusOK,
		checkResult: payment.CheckResult{Conclusive: true, Found: true, Status: payment.StatusCompleted, Amount: 1500},
	}
}

func postJSON(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPayinRecordsTransaction(t *testing.T) {
	a := newTestApp(t, acceptedAdapter(payment.ProviderMTN), acceptedAdapter(payment.ProviderOrange))
	h := NewHandler(a, logger.NewNop())

	rec := postJSON(t, h, "/payments/payin", paymentRequest{
		PhoneNumber: "670123456",
		Amount:      1500,
		Currency:    "XAF",
		Reference:   "ride-42",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp paymentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.VerificationToken != "tok-1" {
		t.Fatalf("expected verification token tok-1, got %q", resp.VerificationToken)
	}

	tx, err := a.Transactions.GetTransactionByReference(context.Background(), "ride-42")
	if err != nil {
		t.Fatalf("transaction was not recorded: %v", err)
	}
	if tx.Operator != payment.OperatorMTN {
		t.Fatalf("expected mtn operator, got %q", tx.Operator)
	}
	if tx.Status != payment.StatusPending {
		t.Fatalf("expected pending status, got %q", tx.Status)
	}
	if tx.Kind != payment.KindPayin {
		t.Fatalf("expected payin kind, got %q", tx.Kind)
	}
}

func TestPayinRejectsDuplicateReference(t *testing.T) {
	a := newTestApp(t, acceptedAdapter(payment.ProviderMTN), acceptedAdapter(payment.ProviderOrange))
	h := NewHandler(a, logger.NewNop())

	req := paymentRequest{PhoneNumber: "670123456", Amount: 1000, Currency: "XAF", Reference: "ride-7"}
	if rec := postJSON(t, h, "/payments/payin", req); rec.Code != http.StatusOK {
		t.Fatalf("first submission failed: %d", rec.Code)
	}
	if rec := postJSON(t, h, "/payments/payin", req); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate, got %d", rec.Code)
	}
}

func TestPayinFailureReleasesReference(t *testing.T) {
	failing := &stubAdapter{
		provider:    payment.ProviderMTN,
		payinCode:   http.StatusInternalServerError,
		payinResult: payment.Result{Success: false, Message: "provider down"},
	}
	a := newTestApp(t, failing, acceptedAdapter(payment.ProviderOrange))
	h := NewHandler(a, logger.NewNop())

	req := paymentRequest{PhoneNumber: "670123456", Amount: 1000, Currency: "XAF", Reference: "ride-9"}
	rec := postJSON(t, h, "/payments/payin", req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected provider status to pass through, got %d", rec.Code)
	}

	// Failed attempt must not block a retry with the same reference.
	failing.payinCode = http.StatusAccepted
	failing.payinResult = payment.Result{Success: true, VerificationToken: "tok-2"}
	if rec := postJSON(t, h, "/payments/payin", req); rec.Code != http.StatusOK {
		t.Fatalf("retry after failure was rejected: %d %s", rec.Code, rec.Body.String())
	}
}

func TestPayinValidation(t *testing.T) {
	a := newTestApp(t, acceptedAdapter(payment.ProviderMTN), acceptedAdapter(payment.ProviderOrange))
	h := NewHandler(a, logger.NewNop())

	cases := []paymentRequest{
		{Amount: 100, Reference: "r1"},                          // no phone
		{PhoneNumber: "670123456", Reference: "r2"},             // no amount
		{PhoneNumber: "670123456", Amount: 100},                 // no reference
		{PhoneNumber: "670123456", Amount: -5, Reference: "r3"}, // negative amount
	}
	for i, c := range cases {
		if rec := postJSON(t, h, "/payments/payin", c); rec.Code != http.StatusBadRequest {
			t.Errorf("case %d: expected 400, got %d", i, rec.Code)
		}
	}
}

func TestPayinMalformedBody(t *testing.T) {
	a := newTestApp(t, acceptedAdapter(payment.ProviderMTN), acceptedAdapter(payment.ProviderOrange))
	h := NewHandler(a, logger.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/payments/payin", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetPaymentNotFound(t *testing.T) {
	a := newTestApp(t, acceptedAdapter(payment.ProviderMTN), acceptedAdapter(payment.ProviderOrange))
	h := NewHandler(a, logger.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/payments/missing", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCheckPaymentUpdatesStoredStatus(t *testing.T) {
	a := newTestApp(t, acceptedAdapter(payment.ProviderMTN), acceptedAdapter(payment.ProviderOrange))
	h := NewHandler(a, logger.NewNop())

	tx, err := a.Transactions.CreateTransaction(context.Background(), payment.Transaction{
		Kind:              payment.KindPayin,
		Operator:          payment.OperatorMTN,
		Provider:          payment.ProviderMTN,
		Phone:             "670123456",
		Amount:            1500,
		Currency:          "XAF",
		Reference:         "ride-11",
		VerificationToken: "tok-11",
		Status:            payment.StatusPending,
	})
	if err != nil {
		t.Fatalf("seed transaction: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/payments/ride-11/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.TransactionStatus != payment.StatusCompleted {
		t.Fatalf("unexpected status response: %+v", resp)
	}

	updated, err := a.Transactions.GetTransaction(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("get updated transaction: %v", err)
	}
	if updated.Status != payment.StatusCompleted {
		t.Fatalf("stored status not updated, got %q", updated.Status)
	}
}

func TestCheckPaymentPersistsFailureReason(t *testing.T) {
	failed := &stubAdapter{
		provider:  payment.ProviderMTN,
		checkCode: http.StatusOK,
		checkResult: payment.CheckResult{
			Conclusive: true,
			Found:      true,
			Status:     payment.StatusFailed,
			Reason:     "NOT_ENOUGH_FUNDS",
		},
	}
	a := newTestApp(t, failed, acceptedAdapter(payment.ProviderOrange))
	h := NewHandler(a, logger.NewNop())

	tx, err := a.Transactions.CreateTransaction(context.Background(), payment.Transaction{
		Kind:              payment.KindPayin,
		Operator:          payment.OperatorMTN,
		Provider:          payment.ProviderMTN,
		Phone:             "670123456",
		Amount:            1500,
		Currency:          "XAF",
		Reference:         "ride-12",
		VerificationToken: "tok-12",
		Status:            payment.StatusProcessing,
	})
	if err != nil {
		t.Fatalf("seed transaction: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/payments/ride-12/status", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// NOT_ENOUGH_FUNDS is a permanent failure, so the caller must not be
	// told to retry.
	if resp.Retryable {
		t.Fatalf("underfunded payer reported retryable: %+v", resp)
	}

	updated, err := a.Transactions.GetTransaction(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("get updated transaction: %v", err)
	}
	if updated.Status != payment.StatusFailed {
		t.Fatalf("stored status = %q, want failed", updated.Status)
	}
	if updated.Reason != "NOT_ENOUGH_FUNDS" {
		t.Fatalf("stored reason = %q, want the provider failure code", updated.Reason)
	}
}

func TestCallbackUpdatesTransaction(t *testing.T) {
	a := newTestApp(t, acceptedAdapter(payment.ProviderMTN), acceptedAdapter(payment.ProviderOrange))
	h := NewHandler(a, logger.NewNop())

	_, err := a.Transactions.CreateTransaction(context.Background(), payment.Transaction{
		Kind:              payment.KindPayin,
		Operator:          payment.OperatorMTN,
		Provider:          payment.ProviderMTN,
		Phone:             "670123456",
		Amount:            2000,
		Currency:          "XAF",
		Reference:         "ride-21",
		VerificationToken: "tok-21",
		Status:            payment.StatusPending,
	})
	if err != nil {
		t.Fatalf("seed transaction: %v", err)
	}

	body := []byte(`{"referenceId":"tok-21","status":"SUCCESSFUL"}`)
	req := httptest.NewRequest(http.MethodPost, "/callbacks/mtn", bytes.NewReader(body))
	req.Header.Set("X-Callback-Signature", webhook.Sign(body, "shhh"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	tx, err := a.Transactions.GetTransactionByReference(context.Background(), "ride-21")
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if tx.Status != payment.StatusCompleted {
		t.Fatalf("callback did not complete transaction, got %q", tx.Status)
	}
}

func TestCallbackRejectsBadSignature(t *testing.T) {
	a := newTestApp(t, acceptedAdapter(payment.ProviderMTN), acceptedAdapter(payment.ProviderOrange))
	h := NewHandler(a, logger.NewNop())

	body := []byte(`{"referenceId":"tok-1","status":"SUCCESSFUL"}`)
	req := httptest.NewRequest(http.MethodPost, "/callbacks/mtn", bytes.NewReader(body))
	req.Header.Set("X-Callback-Signature", "deadbeef")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCallbackUnknownTokenIsAcknowledged(t *testing.T) {
	a := newTestApp(t, acceptedAdapter(payment.ProviderMTN), acceptedAdapter(payment.ProviderOrange))
	h := NewHandler(a, logger.NewNop())

	body := []byte(`{"depositId":"nope","status":"COMPLETED"}`)
	req := httptest.NewRequest(http.MethodPost, "/callbacks/aggregator", bytes.NewReader(body))
	req.Header.Set("X-Callback-Signature", webhook.Sign(body, "shhh"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 ack for unknown token, got %d", rec.Code)
	}
}

func TestCallbackUnknownProvider(t *testing.T) {
	a := newTestApp(t, acceptedAdapter(payment.ProviderMTN), acceptedAdapter(payment.ProviderOrange))
	h := NewHandler(a, logger.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/callbacks/paypal", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
