package pawapay

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/liftride/payment-service/internal/app/domain/payment"
	"github.com/liftride/payment-service/internal/httputil"
	"github.com/liftride/payment-service/internal/phone"
	"github.com/liftride/payment-service/internal/providers"
	"github.com/liftride/payment-service/internal/status"
)

// body assembles a deposit or payout request in the configured wire version.
// idField is "depositId" or "payoutId"; partyField is "payer" or "recipient".
func (a *Adapter) body(id, idField, partyField, msisdn string, amount float64, description string) map[string]interface{} {
	req := map[string]interface{}{
		idField:                id,
		"customerTimestamp":    time.Now().UTC().Format(time.RFC3339),
		"statementDescription": providers.SanitizeDescription(description),
	}
	formatted := providers.FormatAmount(amount, a.cfg.Currency)
	switch a.cfg.Version {
	case WireV1:
		req["amount"] = map[string]string{"value": formatted, "currency": a.cfg.Currency}
		req["correspondent"] = a.correspondent
		req[partyField] = map[string]interface{}{
			"type":    "MSISDN",
			"address": map[string]string{"value": msisdn},
		}
	default:
		req["amount"] = formatted
		req["currency"] = a.cfg.Currency
		req["provider"] = a.correspondent
		req[partyField] = map[string]interface{}{
			"type": "MMO",
			"accountDetails": map[string]string{
				"phoneNumber": msisdn,
				"provider":    a.correspondent,
			},
		}
	}
	return req
}

type submitResponse struct {
	DepositID string `json:"depositId"`
	PayoutID  string `json:"payoutId"`
	Status    string `json:"status"`
}

// Payin submits a deposit request. The deposit id generated here is the
// verification token; the aggregator echoes it in callbacks and lookups.
func (a *Adapter) Payin(ctx context.Context, intent payment.Intent) (int, payment.Result) {
	msisdn, err := phone.International(intent.Phone)
	if err != nil {
		return http.StatusBadRequest, payment.Result{Success: false, Message: err.Error()}
	}

	if a.testMode != nil {
		if canned, ok := a.testMode.Canned(msisdn, payment.KindPayin); ok {
			return http.StatusOK, canned
		}
	}

	access, err := a.tokens.Get(ctx, payment.ClassAPI)
	if err != nil {
		a.log.WithError(err).Warn("token refresh failed")
		return 0, payment.Result{Success: false, Message: "authentication with provider failed"}
	}

	depositID := uuid.NewString()
	req := a.body(depositID, "depositId", "payer", msisdn, intent.Amount, intent.Reason)

	code, raw, err := httputil.PostJSON(ctx, a.doer, a.cfg.BaseURL+"/deposits", req, a.headers(access.Access))
	if err != nil {
		a.log.WithError(err).WithField("reference", intent.Reference).Warn("deposit submit failed")
		return 0, payment.Result{Success: false, Message: "provider unreachable"}
	}

	var resp submitResponse
	_ = json.Unmarshal(raw, &resp)
	accepted := (code == http.StatusOK || code == http.StatusCreated) &&
		status.Map(payment.ProviderAggregator, resp.Status) != payment.StatusFailed
	if !accepted {
		return code, payment.Result{Success: false, Message: failureMessage(raw), Raw: raw}
	}

	a.log.WithField("reference", intent.Reference).
		WithField("verification_token", depositID).
		Info("deposit accepted")
	return code, payment.Result{Success: true, VerificationToken: depositID, Message: "payment request accepted", Raw: raw}
}

// record is one element of the lookup array for deposits and payouts.
type record struct {
	DepositID       string `json:"depositId"`
	PayoutID        string `json:"payoutId"`
	Status          string `json:"status"`
	RequestedAmount string `json:"requestedAmount"`
	Amount          struct {
		Value string `json:"value"`
	} `json:"amount"`
	FailureReason struct {
		FailureCode    string `json:"failureCode"`
		FailureMessage string `json:"failureMessage"`
	} `json:"failureReason"`
}

func (r record) amountValue() float64 {
	s := r.RequestedAmount
	if s == "" {
		s = r.Amount.Value
	}
	f, _ := parseFloat(s)
	return f
}

// CheckPayin fetches the deposit state. The aggregator answers with an array
// keyed by our id; an empty array means the deposit was never created.
func (a *Adapter) CheckPayin(ctx context.Context, verificationToken string) (int, payment.CheckResult) {
	return a.check(ctx, "/deposits/", verificationToken)
}

func (a *Adapter) check(ctx context.Context, path, verificationToken string) (int, payment.CheckResult) {
	access, err := a.tokens.Get(ctx, payment.ClassAPI)
	if err != nil {
		a.log.WithError(err).Warn("token refresh failed during status check")
		return 0, payment.CheckResult{Status: payment.StatusProcessing}
	}

	code, raw, err := httputil.Get(ctx, a.doer, a.cfg.BaseURL+path+verificationToken, a.headers(access.Access))
	if err != nil {
		return 0, payment.CheckResult{Status: payment.StatusProcessing}
	}
	if code == http.StatusNotFound {
		return code, payment.CheckResult{Conclusive: true, Found: false, Status: payment.StatusProcessing, Raw: raw}
	}
	if code != http.StatusOK {
		return code, payment.CheckResult{Status: payment.StatusProcessing, Raw: raw}
	}

	var records []record
	if err := json.Unmarshal(raw, &records); err != nil {
		return code, payment.CheckResult{Status: payment.StatusProcessing, Raw: raw}
	}
	// An empty array is the aggregator's way of saying the id was never
	// created, distinct from a response we could not decode.
	if len(records) == 0 {
		return code, payment.CheckResult{Conclusive: true, Found: false, Status: payment.StatusProcessing, Raw: raw}
	}
	rec := records[0]
	reason := rec.Status
	if rec.FailureReason.FailureCode != "" {
		reason = rec.FailureReason.FailureCode
		if rec.FailureReason.FailureMessage != "" {
			reason += ": " + rec.FailureReason.FailureMessage
		}
	}
	return code, payment.CheckResult{
		Conclusive: true,
		Found:      true,
		Status:     status.Map(payment.ProviderAggregator, rec.Status),
		Reason:     reason,
		Amount:     rec.amountValue(),
		Raw:        raw,
	}
}
