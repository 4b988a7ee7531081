package document

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ru = message.NewPrinter(language.Russian)

// Fixed renders a value with two decimals and no grouping, as report tables print it
func Fixed(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Money renders a ruble amount with Russian digit grouping, e.g. "1 250 000,50 ₽"
func Money(d decimal.Decimal) string {
	return ru.Sprintf("%.2f ₽", d.Round(2).InexactFloat64())
}

// Count renders an integer with Russian digit grouping
func Count(n int64) string {
	return ru.Sprintf("%d", n)
}

// Percent renders a percentage with two decimals
func Percent(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}
