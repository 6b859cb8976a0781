package orange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/liftride/payment-service/internal/app/domain/payment"
	"github.com/liftride/payment-service/internal/httputil"
	"github.com/liftride/payment-service/internal/phone"
	"github.com/liftride/payment-service/internal/providers"
	"github.com/liftride/payment-service/internal/status"
)

// payRequest is the body for mp/pay and cashin/pay. Orange wants the amount
// as an integer string and the description restricted to plain letters.
type payRequest struct {
	NotifURL          string `json:"notifUrl"`
	ChannelUserMsisdn string `json:"channelUserMsisdn"`
	Amount            string `json:"amount"`
	SubscriberMsisdn  string `json:"subscriberMsisdn"`
	PIN               string `json:"pin"`
	OrderID           string `json:"orderId"`
	Description       string `json:"description"`
	PayToken          string `json:"payToken"`
}

type payData struct {
	PayToken      string  `json:"payToken"`
	Status        string  `json:"status"`
	TxnID         string  `json:"txnid"`
	InitTxnStatus string  `json:"inittxnstatus"`
	Amount        float64 `json:"amount"`
}

// Payin runs the two-step merchant payment: init issues a payToken, pay
// submits the charge against it. The payToken is the verification token for
// all later status lookups.
func (a *Adapter) Payin(ctx context.Context, intent payment.Intent) (int, payment.Result) {
	return a.pay(ctx, intent, intent.Amount, "mp")
}

// pay drives the init+pay sequence for either product ("mp" or "cashin").
func (a *Adapter) pay(ctx context.Context, intent payment.Intent, amount float64, product string) (int, payment.Result) {
	msisdn, err := phone.International(intent.Phone)
	if err != nil {
		return http.StatusBadRequest, payment.Result{Success: false, Message: err.Error()}
	}

	kind := payment.KindPayin
	class := payment.ClassCollection
	if product == "cashin" {
		kind = payment.KindPayout
		class = payment.ClassDisbursement
	}
	if a.testMode != nil {
		if canned, ok := a.testMode.Canned(msisdn, kind); ok {
			return http.StatusOK, canned
		}
	}

	access, err := a.tokens.Get(ctx, class)
	if err != nil {
		a.log.WithError(err).Warn("token refresh failed")
		return 0, payment.Result{Success: false, Message: "authentication with provider failed"}
	}

	payToken, code, initRaw, err := a.initPayToken(ctx, access.Access, product)
	if err != nil {
		a.log.WithError(err).WithField("reference", intent.Reference).Warn("pay token init failed")
		return code, payment.Result{Success: false, Message: errorMessage(initRaw), Raw: initRaw}
	}

	body := payRequest{
		NotifURL:          a.cfg.NotifURL,
		ChannelUserMsisdn: a.cfg.MerchantMSISDN,
		Amount:            providers.FormatAmount(amount, a.cfg.Currency),
		SubscriberMsisdn:  msisdn,
		PIN:               a.cfg.PIN,
		OrderID:           intent.Reference,
		Description:       providers.SanitizeDescription(intent.Reason),
		PayToken:          payToken,
	}

	respCode, raw, err := httputil.PostJSON(ctx, a.doer,
		a.cfg.BaseURL+"/omcoreapis/1.0.2/"+product+"/pay", body, a.headers(access.Access))
	if err != nil {
		a.log.WithError(err).WithField("reference", intent.Reference).Warn("pay call failed")
		return 0, payment.Result{Success: false, Message: "provider unreachable"}
	}
	if respCode != http.StatusOK && respCode != http.StatusCreated {
		return respCode, payment.Result{Success: false, Message: errorMessage(raw), Raw: raw}
	}

	var env envelope
	var data payData
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 {
		_ = json.Unmarshal(env.Data, &data)
	}
	mapped := status.Map(payment.ProviderOrange, data.Status)
	if mapped == payment.StatusFailed {
		return respCode, payment.Result{Success: false, VerificationToken: payToken, Message: errorMessage(raw), Raw: raw}
	}

	a.log.WithField("reference", intent.Reference).
		WithField("verification_token", payToken).
		Info(product + " accepted")
	return respCode, payment.Result{Success: true, VerificationToken: payToken, Message: "payment request accepted", Raw: raw}
}

// initPayToken performs the init step for a product and returns the issued
// payToken.
func (a *Adapter) initPayToken(ctx context.Context, access, product string) (string, int, []byte, error) {
	code, raw, err := httputil.PostJSON(ctx, a.doer,
		a.cfg.BaseURL+"/omcoreapis/1.0.2/"+product+"/init", nil, a.headers(access))
	if err != nil {
		return "", 0, nil, err
	}
	if code != http.StatusOK && code != http.StatusCreated {
		return "", code, raw, fmt.Errorf("orange: %s/init returned %d", product, code)
	}
	var env envelope
	var data struct {
		PayToken string `json:"payToken"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", code, raw, fmt.Errorf("orange: decode %s/init response: %w", product, err)
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.PayToken == "" {
		return "", code, raw, fmt.Errorf("orange: %s/init returned no payToken", product)
	}
	return data.PayToken, code, raw, nil
}

// CheckPayin fetches the merchant-payment state for a payToken.
func (a *Adapter) CheckPayin(ctx context.Context, verificationToken string) (int, payment.CheckResult) {
	return a.checkStatus(ctx, payment.ClassCollection, "mp/paymentstatus", verificationToken)
}

func (a *Adapter) checkStatus(ctx context.Context, class payment.CredentialClass, path, verificationToken string) (int, payment.CheckResult) {
	access, err := a.tokens.Get(ctx, class)
	if err != nil {
		a.log.WithError(err).Warn("token refresh failed during status check")
		return 0, payment.CheckResult{Status: payment.StatusPending}
	}

	code, raw, err := httputil.Get(ctx, a.doer,
		a.cfg.BaseURL+"/omcoreapis/1.0.2/"+path+"/"+verificationToken, a.headers(access.Access))
	if err != nil {
		return 0, payment.CheckResult{Status: payment.StatusPending}
	}
	if code == http.StatusNotFound {
		return code, payment.CheckResult{Conclusive: true, Found: false, Status: payment.StatusPending, Raw: raw}
	}
	if code != http.StatusOK {
		return code, payment.CheckResult{Status: payment.StatusPending, Raw: raw}
	}

	var env envelope
	var data payData
	if err := json.Unmarshal(raw, &env); err != nil {
		return code, payment.CheckResult{Status: payment.StatusPending, Raw: raw}
	}
	_ = json.Unmarshal(env.Data, &data)
	return code, payment.CheckResult{
		Conclusive: true,
		Found:      true,
		Status:     status.Map(payment.ProviderOrange, data.Status),
		Reason:     data.Status,
		Amount:     data.Amount,
		Raw:        raw,
	}
}
