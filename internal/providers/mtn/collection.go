package mtn

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/liftride/payment-service/internal/app/domain/payment"
	"github.com/liftride/payment-service/internal/httputil"
	"github.com/liftride/payment-service/internal/phone"
	"github.com/liftride/payment-service/internal/providers"
	"github.com/liftride/payment-service/internal/status"
)

// party is the payer/payee shape shared by requesttopay and transfer.
type party struct {
	PartyIDType string `json:"partyIdType"`
	PartyID     string `json:"partyId"`
}

type requestToPay struct {
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	ExternalID   string `json:"externalId"`
	Payer        party  `json:"payer"`
	PayerMessage string `json:"payerMessage"`
	PayeeNote    string `json:"payeeNote"`
}

// Payin submits a requesttopay. MoMo answers 202 with an empty body when the
// request is accepted; settlement is reported later against the
// X-Reference-Id we generated, which becomes the verification token.
func (a *Adapter) Payin(ctx context.Context, intent payment.Intent) (int, payment.Result) {
	msisdn, err := phone.International(intent.Phone)
	if err != nil {
		return http.StatusBadRequest, payment.Result{Success: false, Message: err.Error()}
	}

	if a.testMode != nil {
		if canned, ok := a.testMode.Canned(msisdn, payment.KindPayin); ok {
			return http.StatusAccepted, canned
		}
	}

	access, err := a.tokens.Get(ctx, payment.ClassCollection)
	if err != nil {
		a.log.WithError(err).Warn("collection token refresh failed")
		return 0, payment.Result{Success: false, Message: "authentication with provider failed"}
	}

	referenceID := uuid.NewString()
	note := providers.SanitizeDescription(intent.Reason)
	body := requestToPay{
		Amount:       providers.FormatAmount(intent.Amount, a.cfg.Currency),
		Currency:     a.cfg.Currency,
		ExternalID:   intent.Reference,
		Payer:        party{PartyIDType: "MSISDN", PartyID: msisdn},
		PayerMessage: note,
		PayeeNote:    note,
	}

	code, raw, err := httputil.PostJSON(ctx, a.doer, a.cfg.BaseURL+"/collection/v1_0/requesttopay",
		body, a.headers(access.Access, a.cfg.CollectionKey, referenceID))
	if err != nil {
		a.log.WithError(err).WithField("reference", intent.Reference).Warn("requesttopay failed")
		return 0, payment.Result{Success: false, Message: "provider unreachable"}
	}
	if code != http.StatusAccepted {
		return code, payment.Result{Success: false, Message: errorMessage(raw), Raw: raw}
	}

	a.log.WithField("reference", intent.Reference).
		WithField("verification_token", referenceID).
		Info("requesttopay accepted")
	return code, payment.Result{Success: true, VerificationToken: referenceID, Message: "payment request accepted", Raw: raw}
}

// transactionRecord is the status shape for both products.
type transactionRecord struct {
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	ExternalID string `json:"externalId"`
	Status     string `json:"status"`
	Reason     struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"reason"`
}

// CheckPayin fetches the current state of a collection by its reference.
func (a *Adapter) CheckPayin(ctx context.Context, verificationToken string) (int, payment.CheckResult) {
	return a.check(ctx, payment.ClassCollection, "/collection/v1_0/requesttopay/", verificationToken)
}

func (a *Adapter) check(ctx context.Context, class payment.CredentialClass, path, verificationToken string) (int, payment.CheckResult) {
	_, subKey := a.product(class)
	access, err := a.tokens.Get(ctx, class)
	if err != nil {
		a.log.WithError(err).Warn("token refresh failed during status check")
		return 0, payment.CheckResult{Status: payment.StatusPending}
	}

	code, raw, err := httputil.Get(ctx, a.doer, a.cfg.BaseURL+path+verificationToken,
		a.headers(access.Access, subKey, ""))
	if err != nil {
		return 0, payment.CheckResult{Status: payment.StatusPending}
	}
	// A missing record means the transaction was never created or the token
	// does not belong to this product; reconciliation-relevant, not an error.
	if code == http.StatusNotFound {
		return code, payment.CheckResult{Conclusive: true, Found: false, Status: payment.StatusPending, Raw: raw}
	}
	if code != http.StatusOK {
		return code, payment.CheckResult{Status: payment.StatusPending, Raw: raw}
	}

	var record transactionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return code, payment.CheckResult{Status: payment.StatusPending, Raw: raw}
	}
	amount, _ := parseAmount(record.Amount)
	reason := record.Status
	if record.Reason.Code != "" {
		reason = record.Reason.Code
		if record.Reason.Message != "" {
			reason += ": " + record.Reason.Message
		}
	}
	return code, payment.CheckResult{
		Conclusive: true,
		Found:      true,
		Status:     status.Map(payment.ProviderMTN, record.Status),
		Reason:     reason,
		Amount:     amount,
		Raw:        raw,
	}
}
