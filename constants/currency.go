package constants

import "strings"

// SupportedCurrency is the only currency code the engine emits. Source
// currency symbols are never carried into the output.
const SupportedCurrency = "USD"

// knownCurrencyCodes lists ISO 4217 codes that commonly show up on invoices.
var knownCurrencyCodes = map[string]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "INR": {}, "JPY": {}, "CNY": {}, "CAD": {},
	"AUD": {}, "NZD": {}, "CHF": {}, "SEK": {}, "NOK": {}, "DKK": {}, "SGD": {},
	"HKD": {}, "AED": {}, "SAR": {}, "ZAR": {}, "BRL": {}, "MXN": {}, "RUB": {},
	"KRW": {}, "PLN": {}, "TRY": {}, "IDR": {}, "MYR": {}, "THB": {}, "PHP": {},
	"VND": {}, "NGN": {}, "PKR": {}, "BDT": {}, "LKR": {}, "ILS": {}, "CZK": {},
}

// IsCurrencyCode reports whether s is a known three-letter currency code (case-insensitive).
func IsCurrencyCode(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != 3 {
		return false
	}
	_, ok := knownCurrencyCodes[strings.ToUpper(s)]
	return ok
}
