// Package app wires the payment orchestration service together.
package app

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/liftride/payment-service/internal/app/domain/payment"
	"github.com/liftride/payment-service/internal/app/services/reconciler"
	"github.com/liftride/payment-service/internal/app/storage"
	"github.com/liftride/payment-service/internal/app/storage/memory"
	"github.com/liftride/payment-service/internal/app/storage/postgres"
	"github.com/liftride/payment-service/internal/app/system"
	"github.com/liftride/payment-service/internal/config"
	"github.com/liftride/payment-service/internal/httputil"
	"github.com/liftride/payment-service/internal/idempotency"
	"github.com/liftride/payment-service/internal/operator"
	"github.com/liftride/payment-service/internal/orchestrator"
	"github.com/liftride/payment-service/internal/providers"
	"github.com/liftride/payment-service/internal/providers/mtn"
	"github.com/liftride/payment-service/internal/providers/orange"
	"github.com/liftride/payment-service/internal/providers/pawapay"
	"github.com/liftride/payment-service/pkg/logger"
)

// Application ties the orchestrator, stores and background services together
// and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Config       *config.Config
	Orchestrator *orchestrator.Orchestrator
	Transactions storage.TransactionStore
	Idempotency  idempotency.Store
	Reconciler   *reconciler.Reconciler
}

// New builds a fully configured application from environment-sourced
// configuration. Construction fails fast on missing credentials; no network
// call is made until the first payment.
func New(cfg *config.Config, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	classifier, err := buildClassifier(cfg)
	if err != nil {
		return nil, err
	}

	var testMode providers.TestModeStrategy
	if cfg.Sandbox() {
		log.Warn("sandbox environment; payout amounts are clamped")
		testMode = &providers.SandboxStrategy{FixedPayoutAmount: cfg.SandboxPayoutAmount}
	}

	mtnSet, orangeSet, err := buildAdapters(cfg, testMode, log)
	if err != nil {
		return nil, err
	}

	orch := orchestrator.New(classifier, mtnSet, orangeSet, log)

	store, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	var guard idempotency.Store
	if cfg.RedisAddr != "" {
		guard = idempotency.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	} else {
		guard = idempotency.NewMemoryStore()
	}

	rec := reconciler.New(store, orch, cfg.ReconcileInterval, log)

	manager := system.NewManager()
	manager.Register(rec)

	return &Application{
		manager:      manager,
		log:          log,
		Config:       cfg,
		Orchestrator: orch,
		Transactions: store,
		Idempotency:  guard,
		Reconciler:   rec,
	}, nil
}

// Start launches the background services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.StartAll(ctx)
}

// Stop shuts the background services down.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.StopAll(ctx)
}

func buildClassifier(cfg *config.Config) (*operator.Classifier, error) {
	if cfg.OperatorTablePath == "" {
		return operator.NewDefaultClassifier(), nil
	}
	table, err := operator.LoadTable(cfg.OperatorTablePath)
	if err != nil {
		return nil, err
	}
	return operator.NewClassifier(table)
}

// buildAdapters assembles one adapter set per operator. In direct mode each
// telco gets its own integration; in aggregator mode both operators route
// through the aggregator with per-operator correspondents.
func buildAdapters(cfg *config.Config, testMode providers.TestModeStrategy, log *logger.Logger) (providers.AdapterSet, providers.AdapterSet, error) {
	switch cfg.Mode() {
	case config.ModeDirect:
		mtnDoer := httputil.WithBreaker("mtn", httputil.NewClient(cfg.ProviderTimeout))
		mtnSet, err := mtn.New(mtn.Config{
			BaseURL:           cfg.MTN.BaseURL,
			APIUser:           cfg.MTN.APIUser,
			APIKey:            cfg.MTN.APIKey,
			CollectionKey:     cfg.MTN.CollectionKey,
			DisbursementKey:   cfg.MTN.DisbursementKey,
			TargetEnvironment: cfg.MTN.TargetEnvironment,
			CallbackURL:       cfg.MTN.CallbackURL,
			Currency:          cfg.MTN.Currency,
			Timeout:           cfg.ProviderTimeout,
		}, mtnDoer, testMode, log.WithField("provider", "mtn_momo"))
		if err != nil {
			return nil, nil, err
		}

		orangeDoer := httputil.WithBreaker("orange", httputil.NewClient(cfg.ProviderTimeout))
		orangeSet, err := orange.New(orange.Config{
			BaseURL:        cfg.Orange.BaseURL,
			ConsumerKey:    cfg.Orange.ConsumerKey,
			ConsumerSecret: cfg.Orange.ConsumerSecret,
			APIUsername:    cfg.Orange.APIUsername,
			APIPassword:    cfg.Orange.APIPassword,
			MerchantMSISDN: cfg.Orange.MerchantMSISDN,
			PIN:            cfg.Orange.PIN,
			NotifURL:       cfg.Orange.NotifURL,
			Currency:       cfg.Orange.Currency,
			Timeout:        cfg.ProviderTimeout,
		}, orangeDoer, testMode, log.WithField("provider", "orange_money"))
		if err != nil {
			return nil, nil, err
		}
		return mtnSet, orangeSet, nil

	case config.ModeAggregator:
		pcfg := pawapay.Config{
			BaseURL:      cfg.Pawapay.BaseURL,
			ClientID:     cfg.Pawapay.ClientID,
			ClientSecret: cfg.Pawapay.ClientSecret,
			CallbackURL:  cfg.Pawapay.CallbackURL,
			Currency:     cfg.Pawapay.Currency,
			Version:      pawapay.WireVersion(cfg.Pawapay.WireVersion),
		}
		doer := httputil.WithBreaker("pawapay", httputil.NewClient(cfg.ProviderTimeout))
		mtnSet, err := pawapay.New(pcfg, payment.OperatorMTN, doer, testMode, log.WithField("provider", "aggregator"))
		if err != nil {
			return nil, nil, err
		}
		orangeSet, err := pawapay.New(pcfg, payment.OperatorOrange, doer, testMode, log.WithField("provider", "aggregator"))
		if err != nil {
			return nil, nil, err
		}
		return mtnSet, orangeSet, nil

	default:
		return nil, nil, fmt.Errorf("app: unknown gateway mode %q", cfg.GatewayMode)
	}
}

func buildStore(cfg *config.Config) (storage.TransactionStore, error) {
	if cfg.DatabaseURL == "" {
		return memory.New(), nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("app: open database: %w", err)
	}
	return postgres.New(db), nil
}
