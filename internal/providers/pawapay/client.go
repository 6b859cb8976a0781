// Package pawapay integrates the payment aggregator. The aggregator routes
// to the underlying mobile-money networks itself; the adapter selects the
// network through a correspondent code derived from the operator
// classification of the recipient's number.
//
// The aggregator has published two wire formats. V1 nests the amount as a
// {value, currency} object under a "correspondent" field; V2 flattens the
// amount to a string and renames the field to "provider". One adapter serves
// both behind an explicit version switch; V2 is the current contract.
package pawapay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/liftride/payment-service/internal/app/domain/payment"
	"github.com/liftride/payment-service/internal/httputil"
	"github.com/liftride/payment-service/internal/providers"
	"github.com/liftride/payment-service/internal/providers/token"
	"github.com/liftride/payment-service/pkg/logger"
)

// WireVersion selects the request encoding.
type WireVersion int

const (
	// WireV1 nests the amount object and uses the "correspondent" field.
	WireV1 WireVersion = 1
	// WireV2 uses a string amount and the "provider" field. Current default.
	WireV2 WireVersion = 2
)

// Correspondent codes the aggregator understands for Cameroon.
const (
	CorrespondentMTN    = "MTN_MOMO_CMR"
	CorrespondentOrange = "ORANGE_CMR"
)

// CorrespondentFor returns the aggregator network code for an operator.
func CorrespondentFor(op payment.Operator) (string, error) {
	switch op {
	case payment.OperatorMTN:
		return CorrespondentMTN, nil
	case payment.OperatorOrange:
		return CorrespondentOrange, nil
	default:
		return "", fmt.Errorf("pawapay: no correspondent for operator %q", op)
	}
}

// Config holds the aggregator credentials.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Currency     string
	Version      WireVersion
	Timeout      time.Duration
}

func (c Config) validate() error {
	switch {
	case strings.TrimSpace(c.BaseURL) == "":
		return fmt.Errorf("pawapay: BaseURL is required")
	case strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.ClientSecret) == "":
		return fmt.Errorf("pawapay: client credentials are required")
	}
	if c.Version != 0 && c.Version != WireV1 && c.Version != WireV2 {
		return fmt.Errorf("pawapay: unknown wire version %d", c.Version)
	}
	return nil
}

// Adapter implements providers.AdapterSet through the aggregator for one
// fixed correspondent. The factory builds one instance per operator.
type Adapter struct {
	cfg           Config
	correspondent string
	doer          httputil.Doer
	tokens        *token.Manager
	testMode      providers.TestModeStrategy
	log           *logger.Logger
}

var _ providers.AdapterSet = (*Adapter)(nil)

// New builds an aggregator adapter bound to one operator's correspondent.
func New(cfg Config, op payment.Operator, doer httputil.Doer, testMode providers.TestModeStrategy, log *logger.Logger) (*Adapter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	correspondent, err := CorrespondentFor(op)
	if err != nil {
		return nil, err
	}
	if cfg.Version == 0 {
		cfg.Version = WireV2
	}
	if cfg.Currency == "" {
		cfg.Currency = "XAF"
	}
	if doer == nil {
		doer = httputil.NewClient(cfg.Timeout)
	}
	if log == nil {
		log = logger.NewDefault("pawapay")
	}
	a := &Adapter{
		cfg:           cfg,
		correspondent: correspondent,
		doer:          doer,
		testMode:      testMode,
		log:           log,
	}
	a.tokens = token.NewManager(a.authenticate)
	return a, nil
}

// Provider identifies this integration.
func (a *Adapter) Provider() payment.Provider { return payment.ProviderAggregator }

// authenticate exchanges the client credentials for an API token. The
// aggregator has a single credential class.
func (a *Adapter) authenticate(ctx context.Context, _ payment.CredentialClass) (token.Token, error) {
	code, body, err := httputil.PostJSON(ctx, a.doer, a.cfg.BaseURL+"/auth/token", map[string]string{
		"clientId":     a.cfg.ClientID,
		"clientSecret": a.cfg.ClientSecret,
	}, nil)
	if err != nil {
		return token.Token{}, err
	}
	if code < 200 || code >= 300 {
		return token.Token{}, fmt.Errorf("pawapay: token endpoint returned %d", code)
	}

	var payload struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expiresIn"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return token.Token{}, fmt.Errorf("pawapay: decode token response: %w", err)
	}
	if payload.ExpiresIn <= 0 {
		payload.ExpiresIn = 3600
	}
	return token.Token{
		Access:    payload.Token,
		ExpiresAt: time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second),
	}, nil
}

func (a *Adapter) headers(access string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + access}
}

// failureMessage extracts the rejection or failure message from a response
// body, falling back to the generic message.
func failureMessage(body []byte) string {
	var payload struct {
		RejectionReason struct {
			RejectionMessage string `json:"rejectionMessage"`
		} `json:"rejectionReason"`
		FailureReason struct {
			FailureMessage string `json:"failureMessage"`
		} `json:"failureReason"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.RejectionReason.RejectionMessage != "":
			return payload.RejectionReason.RejectionMessage
		case payload.FailureReason.FailureMessage != "":
			return payload.FailureReason.FailureMessage
		case payload.Message != "":
			return payload.Message
		}
	}
	return providers.FallbackMessage
}
