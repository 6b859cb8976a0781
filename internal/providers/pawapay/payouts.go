package pawapay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/liftride/payment-service/internal/app/domain/payment"
	"github.com/liftride/payment-service/internal/httputil"
	"github.com/liftride/payment-service/internal/phone"
	"github.com/liftride/payment-service/internal/status"
)

// Payout submits a payout request after confirming the wallet balance for
// the configured currency covers the amount. Insufficient balance is
// terminal and returns before any transfer call.
func (a *Adapter) Payout(ctx context.Context, intent payment.Intent) (int, payment.Result) {
	msisdn, err := phone.International(intent.Phone)
	if err != nil {
		return http.StatusBadRequest, payment.Result{Success: false, Message: err.Error()}
	}

	amount := intent.Amount
	if a.testMode != nil {
		if canned, ok := a.testMode.Canned(msisdn, payment.KindPayout); ok {
			return http.StatusOK, canned
		}
		amount = a.testMode.PayoutAmount(amount)
	}

	access, err := a.tokens.Get(ctx, payment.ClassAPI)
	if err != nil {
		a.log.WithError(err).Warn("token refresh failed")
		return 0, payment.Result{Success: false, Message: "authentication with provider failed"}
	}

	available, code, err := a.balance(ctx, access.Access)
	if err != nil {
		a.log.WithError(err).Warn("wallet balance check failed")
		return code, payment.Result{Success: false, Message: "balance check failed"}
	}
	if available < amount {
		a.log.WithField("available", available).WithField("requested", amount).
			Warn("payout rejected for insufficient balance")
		return http.StatusOK, payment.Result{Success: false, Message: "insufficient wallet balance"}
	}

	payoutID := uuid.NewString()
	req := a.body(payoutID, "payoutId", "recipient", msisdn, amount, intent.Reason)

	respCode, raw, err := httputil.PostJSON(ctx, a.doer, a.cfg.BaseURL+"/payouts", req, a.headers(access.Access))
	if err != nil {
		a.log.WithError(err).WithField("reference", intent.Reference).Warn("payout submit failed")
		return 0, payment.Result{Success: false, Message: "provider unreachable"}
	}

	var resp submitResponse
	_ = json.Unmarshal(raw, &resp)
	accepted := (respCode == http.StatusOK || respCode == http.StatusCreated) &&
		status.Map(payment.ProviderAggregator, resp.Status) != payment.StatusFailed
	if !accepted {
		return respCode, payment.Result{Success: false, Message: failureMessage(raw), Raw: raw}
	}

	a.log.WithField("reference", intent.Reference).
		WithField("verification_token", payoutID).
		Info("payout accepted")
	return respCode, payment.Result{Success: true, VerificationToken: payoutID, Message: "payout request accepted", Raw: raw}
}

// CheckPayout fetches the payout state by its id.
func (a *Adapter) CheckPayout(ctx context.Context, verificationToken string) (int, payment.CheckResult) {
	return a.check(ctx, "/payouts/", verificationToken)
}

// balance returns the wallet balance for the configured currency.
func (a *Adapter) balance(ctx context.Context, access string) (float64, int, error) {
	code, raw, err := httputil.Get(ctx, a.doer, a.cfg.BaseURL+"/wallet-balances", a.headers(access))
	if err != nil {
		return 0, 0, err
	}
	if code != http.StatusOK {
		return 0, code, fmt.Errorf("pawapay: wallet-balances returned %d", code)
	}
	var payload struct {
		Balances []struct {
			Amount   string `json:"amount"`
			Currency string `json:"currency"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, code, fmt.Errorf("pawapay: decode wallet-balances: %w", err)
	}
	for _, b := range payload.Balances {
		if strings.EqualFold(b.Currency, a.cfg.Currency) {
			amount, err := parseFloat(b.Amount)
			if err != nil {
				return 0, code, fmt.Errorf("pawapay: parse wallet balance: %w", err)
			}
			return amount, code, nil
		}
	}
	return 0, code, fmt.Errorf("pawapay: no wallet for currency %s", a.cfg.Currency)
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
