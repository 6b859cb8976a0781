package providers

import "github.com/liftride/payment-service/internal/app/domain/payment"

// TestModeStrategy captures sandbox-only behavioral overrides. It is wired
// into adapters only when the environment is a sandbox; production wiring
// passes nil and the production code paths contain no test conditionals.
type TestModeStrategy interface {
	// PayoutAmount returns the amount to actually disburse for a requested
	// amount. Sandboxes clamp this so test runs never move real-scale sums.
	PayoutAmount(requested float64) float64

	// Canned returns a prebaked result for known test numbers, bypassing the
	// network entirely.
	Canned(msisdn string, kind payment.Kind) (payment.Result, bool)
}

// SandboxStrategy is the standard sandbox override set.
type SandboxStrategy struct {
	// FixedPayoutAmount replaces every payout amount when > 0.
	FixedPayoutAmount float64
	// CannedResults maps international-format test numbers to results.
	CannedResults map[string]payment.Result
}

func (s *SandboxStrategy) PayoutAmount(requested float64) float64 {
	if s.FixedPayoutAmount > 0 {
		return s.FixedPayoutAmount
	}
	return requested
}

func (s *SandboxStrategy) Canned(msisdn string, _ payment.Kind) (payment.Result, bool) {
	res, ok := s.CannedResults[msisdn]
	return res, ok
}
