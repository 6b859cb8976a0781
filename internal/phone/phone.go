// Package phone normalizes Cameroonian subscriber numbers between the
// formats the providers expect.
package phone

import (
	"fmt"
	"strings"
)

// CountryCode is the Cameroon calling code providers expect prefixed to
// international-format numbers.
const CountryCode = "237"

// nationalLength is the number of digits in a national-format number.
const nationalLength = 9

// Normalize strips formatting and a recognized country calling code,
// returning the canonical 9-digit national number. Mobile numbers start
// with 6; anything else is rejected.
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	digits = strings.TrimPrefix(digits, "00"+CountryCode)
	if len(digits) == nationalLength+len(CountryCode) && strings.HasPrefix(digits, CountryCode) {
		digits = digits[len(CountryCode):]
	}

	if len(digits) != nationalLength {
		return "", fmt.Errorf("phone: %q is not a %d-digit national number", raw, nationalLength)
	}
	if digits[0] != '6' {
		return "", fmt.Errorf("phone: %q is not a mobile number", raw)
	}
	return digits, nil
}

// International returns the number in 237XXXXXXXXX form, the format the
// provider APIs require for MSISDN fields.
func International(raw string) (string, error) {
	national, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	return CountryCode + national, nil
}
