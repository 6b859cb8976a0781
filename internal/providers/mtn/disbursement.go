package mtn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/liftride/payment-service/internal/app/domain/payment"
	"github.com/liftride/payment-service/internal/httputil"
	"github.com/liftride/payment-service/internal/phone"
	"github.com/liftride/payment-service/internal/providers"
)

type transfer struct {
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	ExternalID   string `json:"externalId"`
	Payee        party  `json:"payee"`
	PayerMessage string `json:"payerMessage"`
	PayeeNote    string `json:"payeeNote"`
}

// Payout submits a disbursement transfer. The merchant balance is checked
// first: an insufficient balance is terminal and returns before any transfer
// call so no partial attempt ever needs reversal.
func (a *Adapter) Payout(ctx context.Context, intent payment.Intent) (int, payment.Result) {
	msisdn, err := phone.International(intent.Phone)
	if err != nil {
		return http.StatusBadRequest, payment.Result{Success: false, Message: err.Error()}
	}

	amount := intent.Amount
	if a.testMode != nil {
		if canned, ok := a.testMode.Canned(msisdn, payment.KindPayout); ok {
			return http.StatusAccepted, canned
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

	referenceID := uuid.NewString()
	note := providers.SanitizeDescription(intent.Reason)
	body := transfer{
		Amount:       providers.FormatAmount(amount, a.cfg.Currency),
		Currency:     a.cfg.Currency,
		ExternalID:   intent.Reference,
		Payee:        party{PartyIDType: "MSISDN", PartyID: msisdn},
		PayerMessage: note,
		PayeeNote:    note,
	}

	respCode, raw, err := httputil.PostJSON(ctx, a.doer, a.cfg.BaseURL+"/disbursement/v1_0/transfer",
		body, a.headers(access.Access, a.cfg.DisbursementKey, referenceID))
	if err != nil {
		a.log.WithError(err).WithField("reference", intent.Reference).Warn("transfer failed")
		return 0, payment.Result{Success: false, Message: "provider unreachable"}
	}
	if respCode != http.StatusAccepted {
		return respCode, payment.Result{Success: false, Message: errorMessage(raw), Raw: raw}
	}

	a.log.WithField("reference", intent.Reference).
		WithField("verification_token", referenceID).
		Info("transfer accepted")
	return respCode, payment.Result{Success: true, VerificationToken: referenceID, Message: "payout request accepted", Raw: raw}
}

// CheckPayout fetches the current state of a transfer by its reference.
func (a *Adapter) CheckPayout(ctx context.Context, verificationToken string) (int, payment.CheckResult) {
	return a.check(ctx, payment.ClassDisbursement, "/disbursement/v1_0/transfer/", verificationToken)
}

// balance fetches the disbursement account balance.
func (a *Adapter) balance(ctx context.Context, access string) (float64, int, error) {
	code, raw, err := httputil.Get(ctx, a.doer, a.cfg.BaseURL+"/disbursement/v1_0/account/balance",
		a.headers(access, a.cfg.DisbursementKey, ""))
	if err != nil {
		return 0, 0, err
	}
	if code != http.StatusOK {
		return 0, code, fmt.Errorf("mtn: balance endpoint returned %d", code)
	}
	var payload struct {
		AvailableBalance string `json:"availableBalance"`
		Currency         string `json:"currency"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, code, err
	}
	available, err := parseAmount(payload.AvailableBalance)
	if err != nil {
		return 0, code, err
	}
	return available, code, nil
}

func parseAmount(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
