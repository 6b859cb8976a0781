// Package orange integrates the Orange Money web-payment APIs: merchant
// payment (mp) for payins and cashin for payouts.
package orange

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

// Config holds the Orange Money credentials. ConsumerKey/ConsumerSecret feed
// the OAuth token exchange; APIUsername/APIPassword form the X-AUTH-TOKEN
// merchant header; the PIN authorizes individual transactions.
type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	APIUsername    string
	APIPassword    string
	MerchantMSISDN string
	PIN            string
	NotifURL       string
	Currency       string
	Timeout        time.Duration
}

func (c Config) validate() error {
	switch {
	case strings.TrimSpace(c.BaseURL) == "":
		return fmt.Errorf("orange: BaseURL is required")
	case strings.TrimSpace(c.ConsumerKey) == "" || strings.TrimSpace(c.ConsumerSecret) == "":
		return fmt.Errorf("orange: consumer key and secret are required")
	case strings.TrimSpace(c.APIUsername) == "" || strings.TrimSpace(c.APIPassword) == "":
		return fmt.Errorf("orange: API username and password are required")
	case strings.TrimSpace(c.MerchantMSISDN) == "":
		return fmt.Errorf("orange: merchant MSISDN is required")
	case strings.TrimSpace(c.PIN) == "":
		return fmt.Errorf("orange: merchant PIN is required")
	}
	return nil
}

// Adapter implements providers.AdapterSet against the Orange Money API.
type Adapter struct {
	cfg      Config
	doer     httputil.Doer
	tokens   *token.Manager
	testMode providers.TestModeStrategy
	log      *logger.Logger
}

var _ providers.AdapterSet = (*Adapter)(nil)

// New builds the adapter. doer may be nil; testMode must be nil in
// production.
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
		log = logger.NewDefault("orange-money")
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
func (a *Adapter) Provider() payment.Provider { return payment.ProviderOrange }

// authenticate exchanges the consumer credentials for a bearer token. Orange
// issues one token for both products but the collection and disbursement
// slots are cached independently, matching the per-class cache contract.
func (a *Adapter) authenticate(ctx context.Context, _ payment.CredentialClass) (token.Token, error) {
	basic := base64.StdEncoding.EncodeToString([]byte(a.cfg.ConsumerKey + ":" + a.cfg.ConsumerSecret))

	code, body, err := httputil.PostForm(ctx, a.doer, a.cfg.BaseURL+"/token",
		"grant_type=client_credentials", map[string]string{
			"Authorization": "Basic " + basic,
		})
	if err != nil {
		return token.Token{}, err
	}
	if code < 200 || code >= 300 {
		return token.Token{}, fmt.Errorf("orange: token endpoint returned %d", code)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return token.Token{}, fmt.Errorf("orange: decode token response: %w", err)
	}
	if payload.ExpiresIn <= 0 {
		payload.ExpiresIn = 3600
	}
	return token.Token{
		Access:    payload.AccessToken,
		ExpiresAt: time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second),
	}, nil
}

// headers assembles the bearer and merchant auth headers every omcoreapis
// call requires.
func (a *Adapter) headers(access string) map[string]string {
	authToken := base64.StdEncoding.EncodeToString([]byte(a.cfg.APIUsername + ":" + a.cfg.APIPassword))
	return map[string]string{
		"Authorization": "Bearer " + access,
		"X-AUTH-TOKEN":  authToken,
	}
}

// envelope is the {message, data} wrapper omcoreapis wraps every payload in.
type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// errorMessage extracts the message field from an error body, falling back
// to the generic message.
func errorMessage(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return providers.FallbackMessage
}
