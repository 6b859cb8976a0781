// Package payment holds the shared types of the payment orchestration layer.
package payment

import (
	"encoding/json"
	"time"
)

// Operator identifies a mobile-money network a subscriber belongs to.
type Operator string

const (
	OperatorMTN    Operator = "mtn"
	OperatorOrange Operator = "orange"
)

// Provider identifies a concrete API integration executing a transaction.
// The aggregator can execute for either operator.
type Provider string

const (
	ProviderMTN        Provider = "mtn_momo"
	ProviderOrange     Provider = "orange_money"
	ProviderAggregator Provider = "aggregator"
)

// CredentialClass selects which token cache slot an adapter uses. The telco
// APIs issue separate tokens for collection and disbursement products; the
// aggregator has a single class.
type CredentialClass string

const (
	ClassCollection   CredentialClass = "collection"
	ClassDisbursement CredentialClass = "disbursement"
	ClassAPI          CredentialClass = "api"
)

// Kind distinguishes the two transaction directions.
type Kind string

const (
	KindPayin  Kind = "payin"
	KindPayout Kind = "payout"
)

// Intent is the immutable input to a payin or payout. It is created by the
// booking layer; the orchestration core never mutates it.
type Intent struct {
	Phone        string
	Amount       float64
	Currency     string
	Reason       string
	Reference    string // booking or transaction reference from the caller
	CustomerName string // optional, payouts only
}

// Result is the unified outcome every adapter produces. VerificationToken is
// the single identifier used for all later status lookups against the
// provider that executed the transaction, regardless of that provider's
// native field naming.
type Result struct {
	Success           bool            `json:"success"`
	VerificationToken string          `json:"verification_token,omitempty"`
	Message           string          `json:"message,omitempty"`
	Raw               json.RawMessage `json:"raw_provider_response,omitempty"`
}

// CheckResult is the unified outcome of a status lookup. Conclusive reports
// whether the provider actually answered the lookup; Found is meaningful
// only when it did. A token failure, transport error, or unexpected response
// leaves Conclusive false, which is a different condition than a genuine
// provider-side "no such transaction" (Conclusive true, Found false).
// Reason carries the provider's native status or failure code for the retry
// classifier.
type CheckResult struct {
	Conclusive bool            `json:"conclusive"`
	Found      bool            `json:"found"`
	Status     Status          `json:"status"`
	Reason     string          `json:"reason,omitempty"`
	Amount     float64         `json:"amount,omitempty"`
	Raw        json.RawMessage `json:"raw_provider_response,omitempty"`
}

// Transaction is the ledger record kept for every initiated payment so the
// reconciler can re-check non-terminal entries later.
type Transaction struct {
	ID                string    `json:"id"`
	Kind              Kind      `json:"kind"`
	Operator          Operator  `json:"operator"`
	Provider          Provider  `json:"provider"`
	Phone             string    `json:"phone"`
	Amount            float64   `json:"amount"`
	Currency          string    `json:"currency"`
	Reference         string    `json:"reference"`
	VerificationToken string    `json:"verification_token"`
	Status            Status    `json:"status"`
	Reason            string    `json:"reason,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
