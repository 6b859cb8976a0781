// Package mtn integrates the MTN Mobile Money Open API: the collection
// product for payins and the disbursement product for payouts.
package mtn

import (
	"context"
	"encoding/base64"
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

// Config holds the MoMo API credentials and environment selection. The
// collection and disbursement products carry separate subscription keys and
// issue separate tokens.
type Config struct {
	BaseURL           string
	APIUser           string
	APIKey            string
	CollectionKey     string
	DisbursementKey   string
	TargetEnvironment string // "sandbox" or "mtncameroon"
	CallbackURL       string
	Currency          string
	Timeout           time.Duration
}

func (c Config) validate() error {
	switch {
	case strings.TrimSpace(c.BaseURL) == "":
		return fmt.Errorf("mtn: BaseURL is required")
	case strings.TrimSpace(c.APIUser) == "" || strings.TrimSpace(c.APIKey) == "":
		return fmt.Errorf("mtn: API user and key are required")
	case strings.TrimSpace(c.CollectionKey) == "":
		return fmt.Errorf("mtn: collection subscription key is required")
	case strings.TrimSpace(c.DisbursementKey) == "":
		return fmt.Errorf("mtn: disbursement subscription key is required")
	case strings.TrimSpace(c.TargetEnvironment) == "":
		return fmt.Errorf("mtn: target environment is required")
	}
	return nil
}

// Adapter implements providers.AdapterSet against the MoMo API.
type Adapter struct {
	cfg      Config
	doer     httputil.Doer
	tokens   *token.Manager
	testMode providers.TestModeStrategy
	log      *logger.Logger
}

var _ providers.AdapterSet = (*Adapter)(nil)

// New builds the adapter. doer may be nil, in which case a default client
// with an explicit timeout is used. testMode must be nil in production.
func New(cfg Config, doer httputil.Doer, testMode providers.TestModeStrategy, log *logger.Logger) (*Adapter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Currency == "" {
		cfg.Currency = "XAF"
	}
	if doer == nil {
		doer = httputil.NewClient(cfg.Timeout)
	}
	if log == nil {
		log = logger.NewDefault("mtn-momo")
	}
	a := &Adapter{
		cfg:      cfg,
		doer:     doer,
		testMode: testMode,
		log:      log,
	}
	a.tokens = token.NewManager(a.authenticate)
	return a, nil
}

// Provider identifies this integration.
func (a *Adapter) Provider() payment.Provider { return payment.ProviderMTN }

// product returns the URL segment and subscription key for a credential
// class. Collection and disbursement are distinct MoMo products.
func (a *Adapter) product(class payment.CredentialClass) (string, string) {
	if class == payment.ClassDisbursement {
		return "disbursement", a.cfg.DisbursementKey
	}
	return "collection", a.cfg.CollectionKey
}

// authenticate exchanges the API user/key pair for a bearer token. MoMo
// tokens live one hour; the response carries expires_in in seconds.
func (a *Adapter) authenticate(ctx context.Context, class payment.CredentialClass) (token.Token, error) {
	product, subKey := a.product(class)
	basic := base64.StdEncoding.EncodeToString([]byte(a.cfg.APIUser + ":" + a.cfg.APIKey))

	code, body, err := httputil.PostJSON(ctx, a.doer, a.cfg.BaseURL+"/"+product+"/token/", nil, map[string]string{
		"Authorization":             "Basic " + basic,
		"Ocp-Apim-Subscription-Key": subKey,
	})
	if err != nil {
		return token.Token{}, err
	}
	if code < 200 || code >= 300 {
		return token.Token{}, fmt.Errorf("mtn: token endpoint returned %d", code)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return token.Token{}, fmt.Errorf("mtn: decode token response: %w", err)
	}
	if payload.ExpiresIn <= 0 {
		payload.ExpiresIn = 3600
	}
	return token.Token{
		Access:    payload.AccessToken,
		ExpiresAt: time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second),
	}, nil
}

// headers assembles the per-request header set for a product call.
func (a *Adapter) headers(access, subKey, referenceID string) map[string]string {
	h := map[string]string{
		"Authorization":             "Bearer " + access,
		"X-Target-Environment":      a.cfg.TargetEnvironment,
		"Ocp-Apim-Subscription-Key": subKey,
	}
	if referenceID != "" {
		h["X-Reference-Id"] = referenceID
	}
	if a.cfg.CallbackURL != "" {
		h["X-Callback-Url"] = a.cfg.CallbackURL
	}
	return h
}

// errorMessage extracts the message from a MoMo error body, falling back to
// the generic message when the body is empty or unparseable.
func errorMessage(body []byte) string {
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return providers.FallbackMessage
}
