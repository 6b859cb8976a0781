// Package providers defines the adapter contract every payment integration
// implements and the request-shaping helpers they share.
//
// An adapter owns all provider-specific concerns: wire format, headers,
// authentication, and status vocabulary. Raw provider JSON never crosses the
// adapter boundary except as the opaque raw-response debug field on the
// unified result types.
package providers

import (
	"context"

	"github.com/liftride/payment-service/internal/app/domain/payment"
)

// AdapterSet groups the payin, payout and verification operations for one
// execution path. Implementations must not panic across this boundary:
// every failure, transport or business, is folded into the returned result
// with Success=false.
//
// Callers are responsible for not invoking Payin or Payout twice for the
// same logical intent; adapters generate a fresh client reference per call.
type AdapterSet interface {
	// Provider identifies the integration executing the transactions.
	Provider() payment.Provider

	// Payin initiates a customer-to-merchant collection. The returned status
	// code is the provider's HTTP status (0 on transport failure). Success
	// means the request was accepted, not that funds have moved; the final
	// state arrives via callback or a later check.
	Payin(ctx context.Context, intent payment.Intent) (int, payment.Result)

	// Payout initiates a merchant-to-customer disbursement. The adapter
	// checks the merchant balance first; an insufficient balance is a
	// terminal failure returned before any transfer attempt.
	Payout(ctx context.Context, intent payment.Intent) (int, payment.Result)

	// CheckPayin fetches the current state of a collection by its
	// verification token.
	CheckPayin(ctx context.Context, token string) (int, payment.CheckResult)

	// CheckPayout fetches the current state of a disbursement by its
	// verification token.
	CheckPayout(ctx context.Context, token string) (int, payment.CheckResult)
}

// FallbackMessage is used when a provider error carries no usable message.
const FallbackMessage = "payment could not be processed"
