// Package config loads the service configuration from process environment
// variables. All credentials, base URLs, callback URLs and environment
// selection are fixed at construction time; there is no runtime
// reconfiguration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// Mode selects how the two operators are served.
type Mode string

const (
	// ModeDirect uses the telco integrations directly.
	ModeDirect Mode = "direct"
	// ModeAggregator routes both operators through the aggregator.
	ModeAggregator Mode = "aggregator"
)

// Config is the full environment-sourced configuration.
type Config struct {
	Environment       string        `env:"PAYMENT_ENV,default=sandbox"` // sandbox or production
	ListenAddr        string        `env:"LISTEN_ADDR,default=:8080"`
	GatewayMode       string        `env:"GATEWAY_MODE,default=direct"`
	OperatorTablePath string        `env:"OPERATOR_TABLE_PATH"`
	ProviderTimeout   time.Duration `env:"PROVIDER_TIMEOUT,default=30s"`
	CallbackSecret    string        `env:"CALLBACK_SECRET"`
	DatabaseURL       string        `env:"DATABASE_URL"`

	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL,default=1m"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	SandboxPayoutAmount float64 `env:"SANDBOX_PAYOUT_AMOUNT,default=100"`

	MTN     MTNConfig
	Orange  OrangeConfig
	Pawapay PawapayConfig
}

// MTNConfig holds the MoMo credential set.
type MTNConfig struct {
	BaseURL           string `env:"MTN_BASE_URL"`
	APIUser           string `env:"MTN_API_USER"`
	APIKey            string `env:"MTN_API_KEY"`
	CollectionKey     string `env:"MTN_COLLECTION_KEY"`
	DisbursementKey   string `env:"MTN_DISBURSEMENT_KEY"`
	TargetEnvironment string `env:"MTN_TARGET_ENVIRONMENT,default=sandbox"`
	CallbackURL       string `env:"MTN_CALLBACK_URL"`
	Currency          string `env:"MTN_CURRENCY,default=XAF"`
}

// OrangeConfig holds the Orange Money credential set.
type OrangeConfig struct {
	BaseURL        string `env:"ORANGE_BASE_URL"`
	ConsumerKey    string `env:"ORANGE_CONSUMER_KEY"`
	ConsumerSecret string `env:"ORANGE_CONSUMER_SECRET"`
	APIUsername    string `env:"ORANGE_API_USERNAME"`
	APIPassword    string `env:"ORANGE_API_PASSWORD"`
	MerchantMSISDN string `env:"ORANGE_MERCHANT_MSISDN"`
	PIN            string `env:"ORANGE_MERCHANT_PIN"`
	NotifURL       string `env:"ORANGE_NOTIF_URL"`
	Currency       string `env:"ORANGE_CURRENCY,default=XAF"`
}

// PawapayConfig holds the aggregator credential set.
type PawapayConfig struct {
	BaseURL      string `env:"PAWAPAY_BASE_URL"`
	ClientID     string `env:"PAWAPAY_CLIENT_ID"`
	ClientSecret string `env:"PAWAPAY_CLIENT_SECRET"`
	CallbackURL  string `env:"PAWAPAY_CALLBACK_URL"`
	Currency     string `env:"PAWAPAY_CURRENCY,default=XAF"`
	WireVersion  int    `env:"PAWAPAY_WIRE_VERSION,default=2"`
}

// Load decodes the configuration from the environment and validates the
// parts the selected gateway mode requires.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Mode returns the parsed gateway mode.
func (c *Config) Mode() Mode {
	return Mode(strings.ToLower(strings.TrimSpace(c.GatewayMode)))
}

// Sandbox reports whether the service runs against provider sandboxes.
func (c *Config) Sandbox() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) != "production"
}

// Validate checks that the credentials required by the gateway mode are
// present. Missing credentials are a configuration error detected before any
// network call.
func (c *Config) Validate() error {
	switch c.Mode() {
	case ModeDirect:
		if c.MTN.BaseURL == "" || c.MTN.APIUser == "" || c.MTN.APIKey == "" {
			return fmt.Errorf("config: direct mode requires MTN credentials")
		}
		if c.Orange.BaseURL == "" || c.Orange.ConsumerKey == "" || c.Orange.ConsumerSecret == "" {
			return fmt.Errorf("config: direct mode requires Orange credentials")
		}
	case ModeAggregator:
		if c.Pawapay.BaseURL == "" || c.Pawapay.ClientID == "" || c.Pawapay.ClientSecret == "" {
			return fmt.Errorf("config: aggregator mode requires aggregator credentials")
		}
	default:
		return fmt.Errorf("config: unknown gateway mode %q", c.GatewayMode)
	}
	return nil
}
