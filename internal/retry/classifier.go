// Package retry classifies provider failures as transient or permanent.
// The decision is advisory: the reconciler consults it, nothing in the core
// schedules a retry on its own.
package retry

import "strings"

// retryable lists failure codes that indicate a transient condition worth
// re-polling or re-submitting.
var retryable = []string{
	"INTERNAL_PROCESSING_ERROR",
	"SERVICE_UNAVAILABLE",
	"UNSPECIFIED_FAILURE",
	"TIMEOUT",
	"TRANSIENT",
	"IN_RECONCILIATION",
	"PAYMENT_IN_PROGRESS",
	"ONGOING",
	"PENDING",
}

// permanent lists failure codes that can never succeed on a retry.
var permanent = []string{
	"PAYER_NOT_FOUND",
	"PAYEE_NOT_FOUND",
	"PAYER_REJECTED",
	"PAYER_LIMIT_REACHED",
	"NOT_ENOUGH_FUNDS",
	"INSUFFICIENT_BALANCE",
	"INVALID_RECIPIENT",
	"NOT_ALLOWED",
	"CANCELLED",
	"EXPIRED",
	"REJECTED",
	"DUPLICATE",
}

// ShouldRetry reports whether a failed transaction is worth another attempt.
// The status is checked against both fixed sets first; when it matches
// neither, the free-text reason is scanned for the same markers. Anything
// unrecognized is treated as permanent: unknown failures must not be retried
// indefinitely.
func ShouldRetry(status, reason string) bool {
	if matched, retry := classify(status); matched {
		return retry
	}
	if matched, retry := classify(reason); matched {
		return retry
	}
	return false
}

// classify returns (matched, retryable) for a status or free-text reason.
// Permanent markers win over retryable ones so that a message mentioning
// both ("timeout while payer rejected") is not retried.
func classify(s string) (bool, bool) {
	key := strings.ToUpper(strings.TrimSpace(s))
	if key == "" {
		return false, false
	}
	for _, p := range permanent {
		if strings.Contains(key, p) {
			return true, false
		}
	}
	for _, r := range retryable {
		if strings.Contains(key, r) {
			return true, true
		}
	}
	return false, false
}
