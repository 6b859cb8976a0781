package metrics

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/", "/"},
		{"", "/"},
		{"/healthz", "/healthz"},
		{"/payments", "/payments"},
		{"/payments/payin", "/payments/payin"},
		{"/payments/payout", "/payments/payout"},
		{"/payments/ride-42", "/payments/:reference"},
		{"/payments/ride-42/status", "/payments/:reference/status"},
		{"/callbacks/mtn", "/callbacks/:provider"},
		{"/callbacks/aggregator", "/callbacks/:provider"},
	}
	for _, c := range cases {
		if got := canonicalPath(c.in); got != c.want {
			t.Errorf("canonicalPath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
