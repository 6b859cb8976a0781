package providers

import (
	"testing"

	"github.com/liftride/payment-service/internal/app/domain/payment"
)

func TestFormatAmountIntegerCurrencies(t *testing.T) {
	cases := []struct {
		amount   float64
		currency string
		want     string
	}{
		{1234.99, "XAF", "1234"}, // floored, never rounded up
		{1234.01, "XAF", "1234"},
		{1500, "XAF", "1500"},
		{500.5, "xaf", "500"},
		{250.75, "UGX", "250"},
	}
	for _, c := range cases {
		if got := FormatAmount(c.amount, c.currency); got != c.want {
			t.Errorf("FormatAmount(%v, %s) = %q, want %q", c.amount, c.currency, got, c.want)
		}
	}
}

func TestFormatAmountDecimalCurrencies(t *testing.T) {
	cases := []struct {
		amount   float64
		currency string
		want     string
	}{
		{10.5, "USD", "10.50"},
		{10, "EUR", "10.00"},
		{0.1, "GHS", "0.10"},
	}
	for _, c := range cases {
		if got := FormatAmount(c.amount, c.currency); got != c.want {
			t.Errorf("FormatAmount(%v, %s) = %q, want %q", c.amount, c.currency, got, c.want)
		}
	}
}

func TestSanitizeDescription(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Réservation n°12", "Reservation n12"},
		{"Course aéroport Yaoundé", "Course aeroport Yaounde"},
		{"plain text 123", "plain text 123"},
		{"tabs\tand\nnewlines", "tabsandnewlines"},
		{"  extra   spaces  ", "extra spaces"},
		{"émojis 🚕 stripped", "emojis stripped"},
		{"", ""},
	}
	for _, c := range cases {
		if got := SanitizeDescription(c.in); got != c.want {
			t.Errorf("SanitizeDescription(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSandboxStrategyPayoutAmount(t *testing.T) {
	s := &SandboxStrategy{FixedPayoutAmount: 100}
	if got := s.PayoutAmount(50000); got != 100 {
		t.Fatalf("PayoutAmount(50000) = %v, want clamp to 100", got)
	}

	unset := &SandboxStrategy{}
	if got := unset.PayoutAmount(50000); got != 50000 {
		t.Fatalf("PayoutAmount without clamp = %v, want 50000", got)
	}
}

func TestSandboxStrategyCanned(t *testing.T) {
	s := &SandboxStrategy{CannedResults: map[string]payment.Result{
		"237670000001": {Success: false, Message: "simulated decline"},
	}}

	res, ok := s.Canned("237670000001", payment.KindPayin)
	if !ok || res.Success {
		t.Fatalf("expected canned decline, got ok=%v res=%+v", ok, res)
	}
	if _, ok := s.Canned("237670000002", payment.KindPayin); ok {
		t.Fatal("unknown number must not return a canned result")
	}
}
