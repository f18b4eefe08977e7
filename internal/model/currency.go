package model

// fiatCurrencies is the set of ISO 4217 codes the engine treats as fiat.
// Fiat tickers are excluded from market-data lookups and contribute no
// price risk to the NAV series.
var fiatCurrencies = map[string]struct{}{
	"AUD": {}, "BRL": {}, "CAD": {}, "CHF": {}, "CNY": {}, "CZK": {},
	"DKK": {}, "EUR": {}, "GBP": {}, "HKD": {}, "HUF": {}, "IDR": {},
	"ILS": {}, "INR": {}, "JPY": {}, "KRW": {}, "MXN": {}, "MYR": {},
	"NOK": {}, "NZD": {}, "PHP": {}, "PLN": {}, "RUB": {}, "SEK": {},
	"SGD": {}, "THB": {}, "TRY": {}, "TWD": {}, "USD": {}, "ZAR": {},
}

// IsFiat reports whether ticker is a known fiat currency code.
func IsFiat(ticker string) bool {
	_, ok := fiatCurrencies[ticker]
	return ok
}
