// Package httpapi exposes the payment orchestration REST API.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/liftride/payment-service/internal/app"
	"github.com/liftride/payment-service/internal/app/domain/payment"
	"github.com/liftride/payment-service/internal/app/storage"
	"github.com/liftride/payment-service/internal/httputil"
	"github.com/liftride/payment-service/internal/retry"
	"github.com/liftride/payment-service/internal/status"
	"github.com/liftride/payment-service/internal/webhook"
	"github.com/liftride/payment-service/pkg/logger"
)

// handler bundles the HTTP endpoints over the application services.
type handler struct {
	app *app.Application
	log *logger.Logger
}

// NewHandler returns a router exposing the payment REST API.
func NewHandler(application *app.Application, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.HandleFunc("/payments/payin", h.payin).Methods(http.MethodPost)
	r.HandleFunc("/payments/payout", h.payout).Methods(http.MethodPost)
	r.HandleFunc("/payments/{reference}", h.getPayment).Methods(http.MethodGet)
	r.HandleFunc("/payments/{reference}/status", h.checkPayment).Methods(http.MethodGet)
	r.HandleFunc("/callbacks/{provider}", h.callback).Methods(http.MethodPost)
	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type paymentRequest struct {
	PhoneNumber  string  `json:"phone_number"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Reason       string  `json:"reason"`
	Reference    string  `json:"reference"`
	CustomerName string  `json:"customer_name"`
}

func (p paymentRequest) validate() error {
	switch {
	case strings.TrimSpace(p.PhoneNumber) == "":
		return fmt.Errorf("phone_number is required")
	case p.Amount <= 0:
		return fmt.Errorf("amount must be positive")
	case strings.TrimSpace(p.Reference) == "":
		return fmt.Errorf("reference is required")
	}
	return nil
}

type paymentResponse struct {
	StatusCode        int             `json:"status_code"`
	Success           bool            `json:"success"`
	TransactionID     string          `json:"transaction_id,omitempty"`
	VerificationToken string          `json:"verification_token,omitempty"`
	Message           string          `json:"message,omitempty"`
	Raw               json.RawMessage `json:"raw_provider_response,omitempty"`
}

func (h *handler) payin(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, payment.KindPayin)
}

func (h *handler) payout(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, payment.KindPayout)
}

// submit drives the shared payin/payout flow: validate, claim the reference,
// dispatch, record the transaction.
func (h *handler) submit(w http.ResponseWriter, r *http.Request, kind payment.Kind) {
	var req paymentRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx := r.Context()
	claimed, err := h.app.Idempotency.Claim(ctx, req.Reference)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !claimed {
		writeError(w, http.StatusConflict, fmt.Errorf("reference %s already submitted", req.Reference))
		return
	}

	intent := payment.Intent{
		Phone:        req.PhoneNumber,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Reason:       req.Reason,
		Reference:    req.Reference,
		CustomerName: req.CustomerName,
	}

	var code int
	var result payment.Result
	if kind == payment.KindPayout {
		code, result = h.app.Orchestrator.Payout(ctx, intent)
	} else {
		code, result = h.app.Orchestrator.Payin(ctx, intent)
	}

	if !result.Success {
		// Free the reference so the caller may retry the same booking.
		if err := h.app.Idempotency.Release(ctx, req.Reference); err != nil {
			h.log.WithError(err).Warn("idempotency release failed")
		}
		writeJSON(w, httpStatus(code), paymentResponse{
			StatusCode: code,
			Success:    false,
			Message:    result.Message,
			Raw:        result.Raw,
		})
		return
	}

	op, _ := h.app.Orchestrator.Operator(req.PhoneNumber)
	tx, err := h.app.Transactions.CreateTransaction(ctx, payment.Transaction{
		Kind:              kind,
		Operator:          op,
		Provider:          h.app.Orchestrator.ProviderFor(op),
		Phone:             req.PhoneNumber,
		Amount:            req.Amount,
		Currency:          req.Currency,
		Reference:         req.Reference,
		VerificationToken: result.VerificationToken,
		Status:            payment.StatusPending,
	})
	if err != nil {
		h.log.WithError(err).WithField("reference", req.Reference).Error("transaction record failed")
	}
	if err := h.app.Idempotency.Complete(ctx, req.Reference); err != nil {
		h.log.WithError(err).Warn("idempotency complete failed")
	}

	writeJSON(w, http.StatusOK, paymentResponse{
		StatusCode:        code,
		Success:           true,
		TransactionID:     tx.ID,
		VerificationToken: result.VerificationToken,
		Message:           result.Message,
		Raw:               result.Raw,
	})
}

func (h *handler) getPayment(w http.ResponseWriter, r *http.Request) {
	reference := mux.Vars(r)["reference"]
	tx, err := h.app.Transactions.GetTransactionByReference(r.Context(), reference)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

type statusResponse struct {
	StatusCode        int             `json:"status_code"`
	Success           bool            `json:"success"`
	Found             bool            `json:"found"`
	TransactionStatus payment.Status  `json:"transaction_status"`
	TransactionAmount float64         `json:"transaction_amount,omitempty"`
	Retryable         bool            `json:"retryable"`
	Raw               json.RawMessage `json:"raw_provider_response,omitempty"`
}

// checkPayment polls the provider for the transaction's current state and
// persists any transition.
func (h *handler) checkPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reference := mux.Vars(r)["reference"]

	tx, err := h.app.Transactions.GetTransactionByReference(ctx, reference)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	var code int
	var result payment.CheckResult
	if tx.Kind == payment.KindPayout {
		code, result = h.app.Orchestrator.CheckPayout(ctx, tx.VerificationToken, tx.Phone)
	} else {
		code, result = h.app.Orchestrator.CheckPayment(ctx, tx.VerificationToken, tx.Phone)
	}

	reason := tx.Reason
	if result.Found && result.Reason != "" {
		reason = result.Reason
	}
	if result.Found && result.Status != tx.Status {
		if _, err := h.app.Transactions.UpdateTransactionStatus(ctx, tx.ID, result.Status, reason); err != nil {
			h.log.WithError(err).WithField("transaction_id", tx.ID).Warn("status update failed")
		}
	}

	writeJSON(w, http.StatusOK, statusResponse{
		StatusCode:        code,
		Success:           result.Status == payment.StatusCompleted,
		Found:             result.Found,
		TransactionStatus: result.Status,
		TransactionAmount: result.Amount,
		Retryable:         retry.ShouldRetry(string(result.Status), reason),
		Raw:               result.Raw,
	})
}

// callbackPayload covers the token and status fields across the three
// providers' callback shapes.
type callbackPayload struct {
	ReferenceID string `json:"referenceId"`
	DepositID   string `json:"depositId"`
	PayoutID    string `json:"payoutId"`
	PayToken    string `json:"payToken"`
	Status      string `json:"status"`
	Reason      string `json:"reason"`
}

func (p callbackPayload) token() string {
	for _, t := range []string{p.ReferenceID, p.DepositID, p.PayoutID, p.PayToken} {
		if t != "" {
			return t
		}
	}
	return ""
}

// callback ingests a provider status notification. The body is verified
// against the shared callback secret before anything is parsed.
func (h *handler) callback(w http.ResponseWriter, r *http.Request) {
	providerName := mux.Vars(r)["provider"]
	prov, ok := callbackProvider(providerName)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown provider %s", providerName))
		return
	}

	body, _, err := httputil.ReadAllWithLimit(r.Body, 1<<20)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read callback body: %w", err))
		return
	}
	defer r.Body.Close()

	if secret := h.app.Config.CallbackSecret; secret != "" {
		if !webhook.Verify(body, secret, r.Header.Get("X-Callback-Signature")) {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid callback signature"))
			return
		}
	}

	var payload callbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode callback: %w", err))
		return
	}
	token := payload.token()
	if token == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("callback carries no transaction identifier"))
		return
	}

	ctx := r.Context()
	tx, err := h.app.Transactions.GetTransactionByToken(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		// Unknown token: acknowledged so the provider stops redelivering,
		// logged for reconciliation.
		h.log.WithField("verification_token", token).Warn("callback for unknown transaction")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	mapped := status.Map(prov, payload.Status)
	if mapped != tx.Status {
		if _, err := h.app.Transactions.UpdateTransactionStatus(ctx, tx.ID, mapped, payload.Reason); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func callbackProvider(name string) (payment.Provider, bool) {
	switch name {
	case "mtn":
		return payment.ProviderMTN, true
	case "orange":
		return payment.ProviderOrange, true
	case "aggregator", "pawapay":
		return payment.ProviderAggregator, true
	default:
		return "", false
	}
}

// httpStatus maps an adapter status code to an HTTP response code; 0 means
// the provider never answered.
func httpStatus(code int) int {
	if code == 0 {
		return http.StatusBadGateway
	}
	return code
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
