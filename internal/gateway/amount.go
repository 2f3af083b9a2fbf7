package gateway

import (
	"fmt"
	"strconv"
	"strings"
)

// zeroExponentCurrencies are currencies whose minor unit equals the major
// unit, so amounts pass through undivided.
var zeroExponentCurrencies = map[string]struct{}{
	"JPY": {}, "KRW": {}, "VND": {}, "CLP": {}, "ISK": {}, "XOF": {}, "XAF": {},
}

// CurrencyExponent returns the number of minor-unit digits for a currency
// code. Unknown currencies default to 2.
func CurrencyExponent(currency string) int {
	if _, ok := zeroExponentCurrencies[strings.ToUpper(currency)]; ok {
		return 0
	}
	return 2
}

// MajorUnits formats an amount in minor units as the decimal string
// processors with decimal APIs expect, e.g. 1050 -> "10.50" for USD and
// "1050" for JPY.
func MajorUnits(amount int64, currency string) string {
	exp := CurrencyExponent(currency)
	if exp == 0 {
		return strconv.FormatInt(amount, 10)
	}
	div := int64(1)
	for i := 0; i < exp; i++ {
		div *= 10
	}
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%0*d", sign, amount/div, exp, amount%div)
}

// MinorUnits parses a processor decimal string back into minor units.
func MinorUnits(decimal string, currency string) (int64, error) {
	s := strings.TrimSpace(decimal)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	exp := CurrencyExponent(currency)

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	// One sign at most, and at least one digit after it; ParseInt would
	// accept a second sign in the digits.
	if s == "" || s == "." || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("invalid amount %q", decimal)
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > exp {
		return 0, fmt.Errorf("amount %q has more than %d decimal places", decimal, exp)
	}
	for len(frac) < exp {
		frac += "0"
	}

	n, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", decimal, err)
	}
	if neg {
		n = -n
	}
	return n, nil
}
