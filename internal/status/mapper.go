// Package status normalizes provider-native transaction statuses into the
// shared vocabulary.
package status

import (
	"strings"

	"github.com/liftride/payment-service/internal/app/domain/payment"
)

// Per-provider tables. Keys are upper-cased before lookup so casing drift in
// provider responses cannot produce unknowns.
var (
	mtnTable = map[string]payment.Status{
		"PENDING":    payment.StatusPending,
		"ONGOING":    payment.StatusProcessing,
		"SUCCESSFUL": payment.StatusCompleted,
		"FAILED":     payment.StatusFailed,
		"REJECTED":   payment.StatusFailed,
		"TIMEOUT":    payment.StatusFailed,
	}

	// Orange emits SUCCESSFULL (double L) in production. The correctly
	// spelled variant is mapped as well in case the API is ever fixed.
	orangeTable = map[string]payment.Status{
		"INITIATED":   payment.StatusPending,
		"PENDING":     payment.StatusPending,
		"SUCCESSFULL": payment.StatusCompleted,
		"SUCCESSFUL":  payment.StatusCompleted,
		"SUCCESS":     payment.StatusCompleted,
		"FAILED":      payment.StatusFailed,
		"CANCELLED":   payment.StatusFailed,
		"EXPIRED":     payment.StatusFailed,
	}

	aggregatorTable = map[string]payment.Status{
		"ACCEPTED":          payment.StatusPending,
		"ENQUEUED":          payment.StatusProcessing,
		"SUBMITTED":         payment.StatusProcessing,
		"IN_RECONCILIATION": payment.StatusProcessing,
		"COMPLETED":         payment.StatusCompleted,
		"FAILED":            payment.StatusFailed,
		"REJECTED":          payment.StatusFailed,
		"DUPLICATE_IGNORED": payment.StatusFailed,
	}
)

// Map translates a provider-native status string into the shared enum. The
// function is total: unknown strings resolve to the most conservative
// non-terminal value for the provider so a transaction is never declared
// failed (or settled) on the strength of an unrecognized word.
func Map(provider payment.Provider, native string) payment.Status {
	key := strings.ToUpper(strings.TrimSpace(native))
	switch provider {
	case payment.ProviderMTN:
		if s, ok := mtnTable[key]; ok {
			return s
		}
		return payment.StatusPending
	case payment.ProviderOrange:
		if s, ok := orangeTable[key]; ok {
			return s
		}
		return payment.StatusPending
	case payment.ProviderAggregator:
		if s, ok := aggregatorTable[key]; ok {
			return s
		}
		return payment.StatusProcessing
	default:
		return payment.StatusPending
	}
}
