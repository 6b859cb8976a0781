package providers

import (
	"math"
	"strconv"
	"strings"
)

// integerCurrencies lists ISO codes whose minor unit is zero: the providers
// reject decimal amounts for these outright.
var integerCurrencies = map[string]bool{
	"XAF": true,
	"XOF": true,
	"GNF": true,
	"RWF": true,
	"UGX": true,
}

// FormatAmount renders an amount the way the provider wire formats expect.
// Integer-only currencies are floored, never rounded: rounding 1234.99 up
// would disburse more than the caller authorized.
func FormatAmount(amount float64, currency string) string {
	if integerCurrencies[strings.ToUpper(currency)] {
		return strconv.FormatInt(int64(math.Floor(amount)), 10)
	}
	return strconv.FormatFloat(amount, 'f', 2, 64)
}
