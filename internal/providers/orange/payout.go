package orange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/liftride/payment-service/internal/app/domain/payment"
	"github.com/liftride/payment-service/internal/httputil"
	"github.com/liftride/payment-service/internal/phone"
)

// Payout runs the cashin sequence after confirming the merchant balance
// covers the requested amount. Insufficient balance is terminal and returns
// before any cashin call. Canned sandbox numbers return before any network
// activity, matching the other adapters.
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

	access, err := a.tokens.Get(ctx, payment.ClassDisbursement)
	if err != nil {
		a.log.WithError(err).Warn("disbursement token refresh failed")
		return 0, payment.Result{Success: false, Message: "authentication with provider failed"}
	}

	available, code, err := a.balance(ctx, access.Access)
	if err != nil {
		a.log.WithError(err).Warn("balance check failed")
		return code, payment.Result{Success: false, Message: "balance check failed"}
	}
	if available < amount {
		a.log.WithField("available", available).WithField("requested", amount).
			Warn("payout rejected for insufficient balance")
		return http.StatusOK, payment.Result{Success: false, Message: "insufficient merchant balance"}
	}

	return a.pay(ctx, intent, amount, "cashin")
}

// CheckPayout fetches the cashin state for a payToken.
func (a *Adapter) CheckPayout(ctx context.Context, verificationToken string) (int, payment.CheckResult) {
	return a.checkStatus(ctx, payment.ClassDisbursement, "cashin/paymentstatus", verificationToken)
}

// balance fetches the merchant account balance.
func (a *Adapter) balance(ctx context.Context, access string) (float64, int, error) {
	code, raw, err := httputil.Get(ctx, a.doer,
		a.cfg.BaseURL+"/omcoreapis/1.0.2/account/balance", a.headers(access))
	if err != nil {
		return 0, 0, err
	}
	if code != http.StatusOK {
		return 0, code, fmt.Errorf("orange: balance endpoint returned %d", code)
	}
	var env envelope
	var data struct {
		Balance float64 `json:"balance"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return 0, code, fmt.Errorf("orange: decode balance response: %w", err)
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return 0, code, fmt.Errorf("orange: decode balance data: %w", err)
	}
	return data.Balance, code, nil
}
