package utils

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var currencySymbols = map[string]string{
	"brl": "R$",
	"usd": "US$",
	"eur": "€",
}

// FormatMinorUnits renders an amount in minor units using pt-BR number
// formatting, e.g. 500 brl -> "R$ 5,00".
func FormatMinorUnits(minor int64, currency string) string {
	p := message.NewPrinter(language.BrazilianPortuguese)
	symbol, ok := currencySymbols[strings.ToLower(currency)]
	if !ok {
		symbol = strings.ToUpper(currency)
	}
	return symbol + " " + p.Sprintf("%.2f", float64(minor)/100)
}
