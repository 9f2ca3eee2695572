package pricing

import (
	"strconv"
	"strings"
)

type currencyInfo struct {
	exponent int
	symbol   string
}

// currencies maps lower-cased ISO codes to their minor-unit exponent and
// display symbol. Codes outside the table fall back to two decimal places
// and the upper-cased code itself.
var currencies = map[string]currencyInfo{
	"eur": {exponent: 2, symbol: "€"},
	"usd": {exponent: 2, symbol: "$"},
	"gbp": {exponent: 2, symbol: "£"},
	"jpy": {exponent: 0},
	"krw": {exponent: 0},
}

// Exponent returns the number of minor-unit decimal places for the currency.
func Exponent(code string) int {
	if info, ok := currencies[normalizeCode(code)]; ok {
		return info.exponent
	}
	return 2
}

// Symbol resolves the display symbol for a currency code, falling back to
// the upper-cased code when no symbol is known.
func Symbol(code string) string {
	if info, ok := currencies[normalizeCode(code)]; ok && info.symbol != "" {
		return info.symbol
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// FormatMinor renders a minor-unit amount for display, symbol first, with the
// currency's exponent as the decimal precision ("€20.40", "JPY2000").
func FormatMinor(minor Money, currency string) string {
	return Symbol(currency) + strconv.FormatFloat(FromMinorUnits(minor, currency), 'f', Exponent(currency), 64)
}
