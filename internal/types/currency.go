package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "usd"

// CURRENCY_CODES_SYMBOLS maps lower-case ISO currency codes to display symbols
var CURRENCY_CODES_SYMBOLS = map[string]string{
	"usd": "$",
	"cad": "CA$",
	"eur": "€",
	"gbp": "£",
	"aud": "AU$",
}

// GetCurrencySymbol returns the symbol for a given currency code
// if the code is not found, it returns the code itself
func GetCurrencySymbol(code string) string {
	if symbol, ok := CURRENCY_CODES_SYMBOLS[strings.ToLower(code)]; ok {
		return symbol
	}
	return code
}

// FormatAmount renders an amount as symbol plus two decimals, e.g. $5.00
func FormatAmount(amount decimal.Decimal, currency string) string {
	return GetCurrencySymbol(currency) + amount.StringFixed(2)
}

// ToMinorUnits converts a major-unit amount to cents, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
